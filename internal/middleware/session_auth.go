package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/client"
	"github.com/cleberrangel/leads-admin-api/internal/logger"
	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/cleberrangel/leads-admin-api/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	// SessionCookie guarda a sessão do painel de admin
	SessionCookie = "session_id"
	// ChatCookie guarda a conversa anônima do widget
	ChatCookie = "chat_id"

	contextSession = "session"
)

var errNoCookie = errors.New("cookie de sessão ausente")

// CookieConfig contains configuration for session cookies
type CookieConfig struct {
	Name     string        // cookie name
	Duration time.Duration // cookie max-age
	Domain   string        // cookie domain
	Secure   bool          // secure cookie flag
}

// SessionAuth carrega a sessão do store a partir do cookie
type SessionAuth struct {
	store  session.Store
	cookie CookieConfig
}

// NewSessionAuth creates a new session middleware
func NewSessionAuth(store session.Store, cookie CookieConfig) *SessionAuth {
	if cookie.Duration == 0 {
		cookie.Duration = 24 * time.Hour
	}
	if cookie.Name == "" {
		cookie.Name = SessionCookie
	}
	return &SessionAuth{store: store, cookie: cookie}
}

// RequireAdmin exige uma sessão de admin: cookie de sessão ou header x-admin-key.
// Com o header, a sessão é de uso único e não é persistida
func (m *SessionAuth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := SanitizeAdminKey(c.GetHeader(client.HeaderAdminKey)); key != "" {
			setSession(c, session.NewEphemeral(key))
			c.Next()
			return
		}

		sess, err := m.load(c)
		if err != nil || !sess.IsAdmin() {
			if errors.Is(err, session.ErrNotFound) {
				m.ClearCookie(c)
				logger.AuditResult(c.Request.Context(), logger.AuditActionSessionExpired, "session", c.ClientIP(), err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Success: false,
				Error:   model.MsgUnauthorized,
				Details: "sessão não encontrada ou expirada",
			})
			return
		}

		setSession(c, sess)
		c.Next()
	}
}

// Conversation carrega a conversa do cookie ou abre uma nova (sem chave de admin)
func (m *SessionAuth) Conversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := m.load(c)
		if err != nil {
			sess, err = m.store.Create(c.Request.Context(), "")
			if err != nil {
				logger.FromGin(c).Error().Err(err).Msg("Erro ao abrir conversa")
				c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{
					Success: false,
					Error:   "Erro interno do servidor",
				})
				return
			}
			m.SetCookie(c, sess.ID)
		}

		setSession(c, sess)
		c.Next()
	}
}

// SetCookie grava o cookie de sessão
func (m *SessionAuth) SetCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookie.Name, id, int(m.cookie.Duration.Seconds()), "/", m.cookie.Domain, m.cookie.Secure, true)
}

// ClearCookie expira o cookie de sessão
func (m *SessionAuth) ClearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookie.Name, "", -1, "/", m.cookie.Domain, m.cookie.Secure, true)
}

func (m *SessionAuth) load(c *gin.Context) (*session.Session, error) {
	id, err := c.Cookie(m.cookie.Name)
	if err != nil || id == "" {
		return nil, errNoCookie
	}
	return m.store.Get(c.Request.Context(), id)
}

func setSession(c *gin.Context, sess *session.Session) {
	c.Set(contextSession, sess)
	if !sess.Ephemeral() {
		c.Request = c.Request.WithContext(logger.WithSessionID(c.Request.Context(), sess.ID))
	}
}

// CurrentSession retorna a sessão carregada pelo middleware
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(contextSession)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}
