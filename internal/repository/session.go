package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/database"
	"github.com/cleberrangel/leads-admin-api/internal/logger"
	"github.com/cleberrangel/leads-admin-api/internal/session"
)

// SessionRepository guarda sessões no PostgreSQL (tabela sessions, JSONB)
type SessionRepository struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSessionRepository cria um novo repositório de sessões
func NewSessionRepository(db *sql.DB, ttl time.Duration) *SessionRepository {
	return &SessionRepository{db: db, ttl: ttl}
}

// Create abre uma nova sessão
func (r *SessionRepository) Create(ctx context.Context, adminKey string) (*session.Session, error) {
	s, err := session.New(adminKey, r.ttl)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}

	query := `
		INSERT INTO sessions (id, is_admin, data, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, NOW(), $5)
	`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.IsAdmin(), data, s.CreatedAt, s.ExpiresAt); err != nil {
		return nil, fmt.Errorf("erro ao inserir sessão: %w", err)
	}
	return s, nil
}

// Get lê a sessão; ausente ou expirada vira session.ErrNotFound
func (r *SessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	query := `
		SELECT data
		FROM sessions
		WHERE id = $1 AND expires_at > NOW()
	`

	var data []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar sessão: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Save grava a sessão mantendo a expiração original (last write wins)
func (r *SessionRepository) Save(ctx context.Context, s *session.Session) error {
	if s.Expired(time.Now()) {
		_ = r.Delete(ctx, s.ID)
		return session.ErrNotFound
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	query := `
		UPDATE sessions
		SET data = $2, is_admin = $3, updated_at = NOW()
		WHERE id = $1 AND expires_at > NOW()
	`
	res, err := r.db.ExecContext(ctx, query, s.ID, data, s.IsAdmin())
	if err != nil {
		return fmt.Errorf("erro ao atualizar sessão: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return session.ErrNotFound
	}
	return nil
}

// Delete remove a sessão
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = $1", id); err != nil {
		return fmt.Errorf("erro ao remover sessão: %w", err)
	}
	return nil
}

// Ping verifica a conexão com o banco
func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close fecha o pool de conexões
func (r *SessionRepository) Close() error {
	return r.db.Close()
}

// PoolStats expõe as estatísticas do pool de conexões
func (r *SessionRepository) PoolStats() database.PoolStats {
	return database.GetPoolStats(r.db)
}

// DeleteExpired remove sessões vencidas e retorna quantas foram removidas
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= NOW()")
	if err != nil {
		return 0, fmt.Errorf("erro ao limpar sessões: %w", err)
	}
	return res.RowsAffected()
}

// CountActive retorna o número de sessões válidas, separando admin e chat
func (r *SessionRepository) CountActive(ctx context.Context) (admin, chat int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE is_admin),
			COUNT(*) FILTER (WHERE NOT is_admin)
		FROM sessions
		WHERE expires_at > NOW()
	`
	err = r.db.QueryRowContext(ctx, query).Scan(&admin, &chat)
	return admin, chat, err
}

// RunCleanup remove sessões vencidas a cada interval até ctx ser cancelado
func (r *SessionRepository) RunCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.DeleteExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Get(ctx).Warn().Err(err).Msg("Falha na limpeza de sessões")
				continue
			}
			if n > 0 {
				logger.Get(ctx).Info().Int64("removed", n).Msg("Sessões expiradas removidas")
			}
		}
	}
}
