package handler

import (
	"context"
	"net/http"

	"github.com/cleberrangel/leads-admin-api/internal/logger"
	"github.com/cleberrangel/leads-admin-api/internal/middleware"
	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/cleberrangel/leads-admin-api/internal/service"
	"github.com/cleberrangel/leads-admin-api/internal/session"
	"github.com/cleberrangel/leads-admin-api/internal/websocket"
	"github.com/gin-gonic/gin"
)

// ConversationNotifier empurra mensagens para as conexões WebSocket de uma conversa
type ConversationNotifier interface {
	SendToConversation(conversationID string, message websocket.OutboundMessage)
}

// ChatHandler serve o chat do widget (relay simples, histórico e WebSocket)
type ChatHandler struct {
	chat     *service.ChatService
	store    session.Store
	notifier ConversationNotifier
}

// NewChatHandler cria o handler de chat
func NewChatHandler(chat *service.ChatService, store session.Store) *ChatHandler {
	return &ChatHandler{
		chat:  chat,
		store: store,
	}
}

// SetNotifier liga o hub WebSocket (criado depois do handler, pois o hub usa Respond)
func (h *ChatHandler) SetNotifier(n ConversationNotifier) {
	h.notifier = n
}

// ChatMessagesResponse é o retorno do envio de mensagem
type ChatMessagesResponse struct {
	Reply      *model.ChatMessage  `json:"reply"`
	Transcript []model.ChatMessage `json:"transcript"`
}

// Relay repassa {message} ao chatbot e devolve {reply}, sem histórico
// @Summary      Chat relay
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request body model.ChatRequest true "Mensagem"
// @Success      200 {object} model.ChatReply
// @Failure      400 {object} model.ErrorResponse
// @Failure      502 {object} model.ErrorResponse
// @Router       /chat [post]
func (h *ChatHandler) Relay(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, model.ErrEmptyMessage)
		return
	}

	ctx := c.Request.Context()
	reply, err := h.chat.Relay(ctx, middleware.SanitizeChatMessage(req.Message))
	logger.AuditResult(ctx, logger.AuditActionChatMessage, "chat", c.ClientIP(), err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.ChatReply{Reply: reply})
}

// Transcript devolve o histórico da conversa do cookie chat_id
func (h *ChatHandler) Transcript(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    h.chat.Transcript(sess),
	})
}

// Send grava a mensagem, consulta o chatbot e devolve a resposta e o histórico
// @Summary      Envia mensagem no chat
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request body model.ChatRequest true "Mensagem"
// @Success      200 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Failure      502 {object} model.ErrorResponse
// @Router       /api/chat/messages [post]
func (h *ChatHandler) Send(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, model.ErrEmptyMessage)
		return
	}

	sess := middleware.CurrentSession(c)
	ctx := c.Request.Context()

	reply, err := h.chat.Send(ctx, sess, middleware.SanitizeChatMessage(req.Message))
	logger.AuditResult(ctx, logger.AuditActionChatMessage, "chat", c.ClientIP(), err)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notify(sess.ID, reply)

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data: ChatMessagesResponse{
			Reply:      reply,
			Transcript: h.chat.Transcript(sess),
		},
	})
}

// Respond atende mensagens vindas do WebSocket (implementa websocket.ChatResponder)
func (h *ChatHandler) Respond(ctx context.Context, conversationID, text string) (*model.ChatMessage, error) {
	sess, err := h.store.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	reply, err := h.chat.Send(ctx, sess, text)
	logger.AuditResult(ctx, logger.AuditActionChatMessage, "websocket", "", err)
	return reply, err
}

func (h *ChatHandler) notify(conversationID string, reply *model.ChatMessage) {
	if h.notifier == nil {
		return
	}
	h.notifier.SendToConversation(conversationID, websocket.OutboundMessage{
		Type: websocket.TypeMessage,
		Data: reply,
	})
}
