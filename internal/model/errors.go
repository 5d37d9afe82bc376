package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized indica que a API de leads rejeitou a chave de admin
	ErrUnauthorized = errors.New("chave de admin inválida")

	// ErrServer indica falha de rede/transporte ao falar com a API de leads
	ErrServer = errors.New("falha ao contatar a API de leads")

	// ErrExportFailed indica falha no download do CSV
	ErrExportFailed = errors.New("falha no download do CSV")

	// ErrChatFailed indica falha no backend do chatbot
	ErrChatFailed = errors.New("falha ao contatar o chatbot")

	// ErrEmptyKey indica chave de admin vazia
	ErrEmptyKey = errors.New("chave de admin vazia")

	// ErrEmptyMessage indica mensagem de chat vazia
	ErrEmptyMessage = errors.New("mensagem vazia")

	// ErrKeyRejected indica que a chave não confere com ADMIN_KEY_HASH
	ErrKeyRejected = errors.New("chave de admin não confere")
)

// Mensagens exibidas ao usuário (erro corrente do painel)
const (
	MsgUnauthorized = "Unauthorized"
	MsgServerError  = "Server error"
	MsgExportFailed = "CSV download failed"
)

// UpstreamError representa uma resposta não-2xx da API externa
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Unwrap permite errors.Is(err, ErrUnauthorized)
func (e *UpstreamError) Unwrap() error {
	return ErrUnauthorized
}

// CurrentError converte um erro no texto exibido ao usuário
// Respostas não-2xx usam a mensagem da API (ou "Unauthorized");
// falhas de transporte usam a mensagem genérica de cada operação
func CurrentError(err error) string {
	if err == nil {
		return ""
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		if upstream.Message != "" {
			return upstream.Message
		}
		return MsgUnauthorized
	}

	switch {
	case errors.Is(err, ErrExportFailed):
		return MsgExportFailed
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrKeyRejected):
		return MsgUnauthorized
	default:
		return MsgServerError
	}
}
