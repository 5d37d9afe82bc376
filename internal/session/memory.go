package session

import (
	"context"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/cache"
)

// MemoryStore guarda sessões no processo (padrão quando REDIS_URL não está definido)
type MemoryStore struct {
	items *cache.Cache[*Session]
	ttl   time.Duration
}

// NewMemoryStore cria um store em memória com o TTL informado
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: cache.New[*Session](ttl, time.Minute),
		ttl:   ttl,
	}
}

// Create abre uma nova sessão
func (m *MemoryStore) Create(_ context.Context, adminKey string) (*Session, error) {
	s, err := newSession(adminKey, m.ttl, time.Now())
	if err != nil {
		return nil, err
	}
	m.items.SetWithTTL(s.ID, s.clone(), m.ttl)
	return s, nil
}

// Get retorna uma cópia da sessão
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.items.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

// Save substitui a sessão armazenada (last write wins)
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	remaining := time.Until(s.ExpiresAt)
	if remaining <= 0 {
		m.items.Delete(s.ID)
		return ErrNotFound
	}
	m.items.SetWithTTL(s.ID, s.clone(), remaining)
	return nil
}

// Delete remove a sessão
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.items.Delete(id)
	return nil
}

// Ping sempre responde; o store em memória não tem dependências
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close para o sweeper do cache
func (m *MemoryStore) Close() error {
	m.items.Stop()
	return nil
}

// Size retorna o número de sessões ativas
func (m *MemoryStore) Size() int {
	return m.items.Size()
}
