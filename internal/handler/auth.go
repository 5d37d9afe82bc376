package handler

import (
	"net/http"

	"github.com/cleberrangel/leads-admin-api/internal/logger"
	"github.com/cleberrangel/leads-admin-api/internal/middleware"
	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/cleberrangel/leads-admin-api/internal/service"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles admin login/logout
type AuthHandler struct {
	leads *service.LeadService
	auth  *middleware.SessionAuth
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(leads *service.LeadService, auth *middleware.SessionAuth) *AuthHandler {
	return &AuthHandler{
		leads: leads,
		auth:  auth,
	}
}

// LoginResponse é o corpo de um login bem-sucedido
type LoginResponse struct {
	Session model.SessionInfo `json:"session"`
	View    *model.LeadsView  `json:"view"`
}

// Login abre a sessão com a chave de admin e devolve a primeira página
// @Summary      Login com chave de admin
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.LoginRequest true "Chave de admin"
// @Success      200 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Failure      401 {object} model.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, model.ErrEmptyKey)
		return
	}

	ctx := c.Request.Context()
	sess, err := h.leads.Login(ctx, middleware.SanitizeAdminKey(req.Key))
	if err != nil {
		logger.AuditResult(ctx, logger.AuditActionLoginFailed, "auth", c.ClientIP(), err)
		respondError(c, err)
		return
	}

	ctx = logger.WithSessionID(ctx, sess.ID)
	logger.Audit(ctx, logger.AuditEvent{
		Action:   logger.AuditActionLogin,
		Resource: "auth",
		ClientIP: c.ClientIP(),
		Success:  true,
		Details:  map[string]interface{}{"leads": sess.ViewModel().Len(), "current_error": sess.LastError},
	})

	h.auth.SetCookie(c, sess.ID)

	view := h.leads.View(sess)
	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data: LoginResponse{
			Session: model.SessionInfo{CreatedAt: sess.CreatedAt, ExpiresAt: sess.ExpiresAt},
			View:    view,
		},
	})
}

// Logout remove a chave, o snapshot e o erro da sessão
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200 {object} model.Response
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	ctx := c.Request.Context()

	err := h.leads.Logout(ctx, sess)
	logger.AuditResult(ctx, logger.AuditActionLogout, "auth", c.ClientIP(), err)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auth.ClearCookie(c)
	c.JSON(http.StatusOK, model.Response{Success: true})
}

// Me retorna a validade da sessão atual
func (h *AuthHandler) Me(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    model.SessionInfo{CreatedAt: sess.CreatedAt, ExpiresAt: sess.ExpiresAt},
	})
}
