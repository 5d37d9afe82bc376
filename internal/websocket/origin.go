package websocket

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginChecker builds the upgrader's CheckOrigin from the allowed origin list.
// "*" allows any origin; requests without an Origin header (non-browser) are accepted
func OriginChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(strings.ToLower(o), "/")] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}

		// Same host is always allowed
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return set[strings.ToLower(u.Scheme+"://"+u.Host)]
	}
}
