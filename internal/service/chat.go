package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/logger"
	"github.com/cleberrangel/leads-admin-api/internal/metrics"
	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/cleberrangel/leads-admin-api/internal/session"
	"github.com/google/uuid"
)

// MaxTranscript limita o histórico guardado por sessão de chat
const MaxTranscript = 200

// ChatRelay envia a mensagem ao chatbot e devolve a resposta
type ChatRelay interface {
	Send(ctx context.Context, message string) (string, error)
}

// ChatService mantém o histórico da conversa e repassa as mensagens ao chatbot
type ChatService struct {
	store session.Store
	relay ChatRelay
	now   func() time.Time
}

// NewChatService cria o serviço de chat
func NewChatService(store session.Store, relay ChatRelay) *ChatService {
	return &ChatService{
		store: store,
		relay: relay,
		now:   time.Now,
	}
}

// Relay repassa uma mensagem sem histórico (endpoint /chat do widget)
func (s *ChatService) Relay(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", model.ErrEmptyMessage
	}

	reply, err := s.relay.Send(ctx, text)
	metrics.Get().IncrementChat(err == nil)
	if err != nil {
		return "", err
	}
	return reply, nil
}

// Send grava a mensagem do usuário, consulta o chatbot e grava a resposta.
// Se o chatbot falhar, a mensagem do usuário permanece e nenhuma resposta é gravada
func (s *ChatService) Send(ctx context.Context, sess *session.Session, text string) (*model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.ErrEmptyMessage
	}

	log := logger.Get(ctx)

	s.append(sess, model.SenderUser, text)
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	reply, err := s.relay.Send(ctx, text)
	metrics.Get().IncrementChat(err == nil)
	if err != nil {
		log.Warn().Err(err).Msg("Chatbot não respondeu")
		return nil, err
	}

	bot := s.append(sess, model.SenderBot, reply)
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	log.Debug().Int("transcript", len(sess.Transcript)).Msg("Mensagem de chat respondida")
	return &bot, nil
}

// Transcript devolve o histórico em ordem cronológica
func (s *ChatService) Transcript(sess *session.Session) []model.ChatMessage {
	if sess.Transcript == nil {
		return []model.ChatMessage{}
	}
	return sess.Transcript
}

func (s *ChatService) append(sess *session.Session, from, text string) model.ChatMessage {
	msg := model.NewChatMessage(uuid.NewString(), from, text, s.now())
	sess.Transcript = append(sess.Transcript, msg)
	if len(sess.Transcript) > MaxTranscript {
		sess.Transcript = sess.Transcript[len(sess.Transcript)-MaxTranscript:]
	}
	return msg
}

func (s *ChatService) save(ctx context.Context, sess *session.Session) error {
	if sess.Ephemeral() {
		return nil
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("salvar conversa: %w", err)
	}
	return nil
}
