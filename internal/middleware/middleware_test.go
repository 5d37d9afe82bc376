package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestBearerAuth(t *testing.T) {
	r := gin.New()
	r.GET("/metrics", BearerAuth(AuthConfig{Token: "t0k"}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer wrong", http.StatusUnauthorized},
		{"Bearer t0k", http.StatusOK},
		{"bearer t0k", http.StatusOK},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("header %q: expected %d, got %d", tt.header, tt.want, w.Code)
		}
	}
}

func TestBearerAuthDisabled(t *testing.T) {
	r := gin.New()
	r.GET("/metrics", BearerAuth(AuthConfig{}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected open endpoint, got %d", w.Code)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "abc123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get(HeaderRequestID) != "abc123" {
		t.Errorf("expected request id echoed, got %q", w.Header().Get(HeaderRequestID))
	}
	if w.Header().Get(HeaderTraceID) == "" {
		t.Error("expected generated trace id")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if len(w.Header().Get(HeaderRequestID)) != 8 {
		t.Errorf("expected generated 8-char request id, got %q", w.Header().Get(HeaderRequestID))
	}
}

func TestSanitize(t *testing.T) {
	if got := SanitizeChatMessage("  hi\x00 there\x07\n  "); got != "hi there" {
		t.Errorf("unexpected chat sanitize %q", got)
	}
	if got := SanitizeSearch("  amal "); got != "  amal " {
		t.Errorf("search must keep spaces, got %q", got)
	}
	if got := SanitizeAdminKey(" k\x00e\ty "); got != "key" {
		t.Errorf("unexpected key sanitize %q", got)
	}
	if got := SanitizeString("<b>", DefaultSanitizeConfig()); got != "&lt;b&gt;" {
		t.Errorf("expected escaped html, got %q", got)
	}

	long := strings.Repeat("é", 2100)
	if got := SanitizeChatMessage(long); len([]rune(got)) != 2000 {
		t.Errorf("expected 2000 runes, got %d", len([]rune(got)))
	}
}
