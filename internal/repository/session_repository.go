package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blockdeals/blockdeals/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository keeps per-visitor sessions in redis. The record expires
// with the key, so a vanished key simply means the visitor has to log in
// again.
type SessionRepository struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func sessionKey(id string) string {
	return "session:" + id
}

func (r *SessionRepository) Save(ctx context.Context, session models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.ID)
	}

	if err := r.client.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (models.Session, error) {
	payload, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return models.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
