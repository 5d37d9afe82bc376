package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(store session.Store) (*gin.Engine, *SessionAuth) {
	auth := NewSessionAuth(store, CookieConfig{Duration: time.Hour})
	r := gin.New()
	r.GET("/admin", auth.RequireAdmin(), func(c *gin.Context) {
		sess := CurrentSession(c)
		c.JSON(http.StatusOK, gin.H{"key": sess.AdminKey, "ephemeral": sess.Ephemeral()})
	})
	r.GET("/chat", auth.Conversation(), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentSession(c).ID)
	})
	return r, auth
}

func TestRequireAdminWithoutSession(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	defer store.Close()
	r, _ := newAuthRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error":"Unauthorized"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestRequireAdminWithCookie(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	defer store.Close()
	r, _ := newAuthRouter(store)

	sess, err := store.Create(context.Background(), "secret")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.ID})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"key":"secret"`) || !strings.Contains(w.Body.String(), `"ephemeral":false`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestRequireAdminUnknownCookieIsCleared(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	defer store.Close()
	r, _ := newAuthRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "gone"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Errorf("expected cookie to be cleared, got %q", w.Header().Get("Set-Cookie"))
	}
}

func TestRequireAdminRejectsChatSession(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	defer store.Close()
	r, _ := newAuthRouter(store)

	chat, _ := store.Create(context.Background(), "")
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: chat.ID})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("chat session must not grant admin access, got %d", w.Code)
	}
}

func TestRequireAdminWithHeader(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	defer store.Close()
	r, _ := newAuthRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("x-admin-key", " scripted\x00 ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"key":"scripted"`) || !strings.Contains(w.Body.String(), `"ephemeral":true`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if store.Size() != 0 {
		t.Error("header sessions must not be stored")
	}
}

func TestConversationCreatesAndReuses(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	defer store.Close()
	auth := NewSessionAuth(store, CookieConfig{Name: ChatCookie, Duration: time.Hour})
	r := gin.New()
	r.GET("/chat", auth.Conversation(), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentSession(c).ID)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat", nil))
	id := w.Body.String()
	if id == "" || !strings.HasPrefix(w.Header().Get("Set-Cookie"), ChatCookie+"=") {
		t.Fatalf("expected new conversation cookie, got %q", w.Header().Get("Set-Cookie"))
	}

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	req.AddCookie(&http.Cookie{Name: ChatCookie, Value: id})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() != id {
		t.Errorf("expected same conversation %s, got %s", id, w.Body.String())
	}
	if w.Header().Get("Set-Cookie") != "" {
		t.Error("existing conversation should not reset the cookie")
	}
}

// Property: qualquer sessão criada no store é aceita via cookie
func TestSessionCookieProperties(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	defer store.Close()
	r, _ := newAuthRouter(store)

	properties := gopter.NewProperties(nil)

	properties.Property("stored admin session authenticates", prop.ForAll(
		func(key string) bool {
			sess, err := store.Create(context.Background(), key)
			if err != nil {
				return false
			}
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.ID})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			return w.Code == http.StatusOK
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t)
}
