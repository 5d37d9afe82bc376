package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "leads-admin:session:"

// RedisStore guarda sessões no Redis, serializadas em JSON com TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore conecta ao Redis a partir de uma URL redis://
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opts), ttl), nil
}

// NewRedisStoreWithClient usa um cliente já configurado
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

// Create abre uma nova sessão
func (r *RedisStore) Create(ctx context.Context, adminKey string) (*Session, error) {
	s, err := newSession(adminKey, r.ttl, time.Now())
	if err != nil {
		return nil, err
	}
	if err := r.write(ctx, s, r.ttl); err != nil {
		return nil, err
	}
	return s, nil
}

// Get lê a sessão; chave ausente vira ErrNotFound
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return &s, nil
}

// Save grava a sessão mantendo a expiração original
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	remaining := time.Until(s.ExpiresAt)
	if remaining <= 0 {
		_ = r.Delete(ctx, s.ID)
		return ErrNotFound
	}
	return r.write(ctx, s, remaining)
}

// Delete remove a sessão
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping verifica a conexão com o Redis
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close fecha o cliente Redis
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) write(ctx context.Context, s *Session, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
