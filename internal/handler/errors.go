package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/cleberrangel/leads-admin-api/internal/logger"
	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/cleberrangel/leads-admin-api/internal/session"
	"github.com/gin-gonic/gin"
)

// statusFor mapeia erros de domínio para status HTTP
func statusFor(err error) int {
	var upstream *model.UpstreamError
	switch {
	case errors.Is(err, model.ErrEmptyKey), errors.Is(err, model.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrKeyRejected), errors.Is(err, session.ErrNotFound):
		return http.StatusUnauthorized
	case errors.As(err, &upstream):
		if upstream.Status == http.StatusUnauthorized || upstream.Status == http.StatusForbidden {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, model.ErrServer), errors.Is(err, model.ErrExportFailed), errors.Is(err, model.ErrChatFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError escreve um model.ErrorResponse com a mensagem exibida ao usuário
func respondError(c *gin.Context, err error) {
	status := statusFor(err)

	msg := model.CurrentError(err)
	switch {
	case errors.Is(err, model.ErrEmptyKey):
		msg = "chave de admin obrigatória"
	case errors.Is(err, model.ErrEmptyMessage):
		msg = "mensagem vazia"
	case status == http.StatusInternalServerError:
		msg = "erro interno"
	}

	log := logger.FromGin(c)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("Erro na requisição")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("Requisição rejeitada")
	}

	c.JSON(status, model.ErrorResponse{
		Success: false,
		Error:   msg,
		Details: err.Error(),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Success: false,
		Error:   "payload inválido",
		Details: err.Error(),
	})
}
