// Package session guarda a chave de admin e o estado de visualização de cada navegador.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/cleberrangel/leads-admin-api/internal/viewmodel"
)

// ErrNotFound indica sessão inexistente ou expirada
var ErrNotFound = errors.New("sessão não encontrada")

// Session representa o estado de um navegador
// Sessões de chat anônimas têm AdminKey vazia
type Session struct {
	ID           string              `json:"id"`
	AdminKey     string              `json:"admin_key,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	ExpiresAt    time.Time           `json:"expires_at"`
	View         viewmodel.State     `json:"view"`
	LastError    string              `json:"last_error,omitempty"`
	FetchFailure *FetchFailure       `json:"fetch_failure,omitempty"`
	Transcript   []model.ChatMessage `json:"transcript,omitempty"`
}

// FetchFailure registra a última busca de leads que falhou; o snapshot está vazio
// até a próxima busca bem-sucedida. Status é 0 em falhas de transporte
type FetchFailure struct {
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

// Err reconstrói o erro da busca a partir do que ficou salvo
func (f *FetchFailure) Err() error {
	if f.Status != 0 {
		return &model.UpstreamError{Status: f.Status, Message: f.Message}
	}
	return fmt.Errorf("%s: %w", f.Message, model.ErrServer)
}

// IsAdmin indica se a sessão foi aberta com uma chave de admin
func (s *Session) IsAdmin() bool {
	return s.AdminKey != ""
}

// NewEphemeral cria uma sessão de uso único (header x-admin-key); nunca é persistida
func NewEphemeral(adminKey string) *Session {
	now := time.Now()
	return &Session{
		AdminKey:  adminKey,
		CreatedAt: now,
		ExpiresAt: now,
		View:      viewmodel.New().State(),
	}
}

// Ephemeral indica uma sessão sem ID, que não deve ser salva no store
func (s *Session) Ephemeral() bool {
	return s.ID == ""
}

// Expired indica se a sessão já expirou em now
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ViewModel reconstrói o view-model a partir do estado salvo
func (s *Session) ViewModel() *viewmodel.LeadList {
	return viewmodel.FromState(s.View)
}

// StoreView grava o estado do view-model na sessão
func (s *Session) StoreView(v *viewmodel.LeadList) {
	s.View = v.State()
}

// clone copia os slices para que o chamador não compartilhe memória com o store
func (s *Session) clone() *Session {
	cp := *s
	if s.View.RawLeads != nil {
		cp.View.RawLeads = append([]model.Lead(nil), s.View.RawLeads...)
	}
	if s.Transcript != nil {
		cp.Transcript = append([]model.ChatMessage(nil), s.Transcript...)
	}
	return &cp
}

// Store persiste sessões
type Store interface {
	Create(ctx context.Context, adminKey string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// New monta uma sessão com ID aleatório válida por ttl. Backends externos usam
// para criar sessões antes de persistir
func New(adminKey string, ttl time.Duration) (*Session, error) {
	return newSession(adminKey, ttl, time.Now())
}

// newSession monta uma sessão com ID aleatório
func newSession(adminKey string, ttl time.Duration, now time.Time) (*Session, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        id,
		AdminKey:  adminKey,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		View:      viewmodel.New().State(),
	}, nil
}

// generateID gera um ID de sessão seguro (32 bytes, base64 URL)
func generateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ClosableStore é um Store que mantém recursos abertos
type ClosableStore interface {
	Store
	Close() error
}

// Open escolhe o backend: Redis quando redisURL está definido, memória caso contrário
func Open(redisURL string, ttl time.Duration) (ClosableStore, error) {
	if redisURL == "" {
		return NewMemoryStore(ttl), nil
	}
	return NewRedisStore(redisURL, ttl)
}
