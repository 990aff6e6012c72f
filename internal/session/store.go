// Package session keeps per-login state in Redis.
//
// A session is one Redis hash. Identity, filters, edit target and each cached message live in
// their own fields, so requests that touch different parts of a session never overwrite each other.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crm-whatsapp/crm-service/internal/domain"
)

// ErrNotFound is returned for unknown, expired or logged-out sessions.
var ErrNotFound = errors.New("session not found")

const (
	fieldIdentity   = "identity"
	fieldFilters    = "filters"
	fieldEditTarget = "edit_target"
	messagePrefix   = "msg:"
)

// Store persists sessions.
type Store interface {
	Save(ctx context.Context, sess *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	SetFilters(ctx context.Context, sess *domain.Session, q domain.ClientQuery) error
	SetEditTarget(ctx context.Context, sess *domain.Session, clientID string) error
	SetMessage(ctx context.Context, sess *domain.Session, clientID, message string) error
}

type identity struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// RedisStore keeps one hash per session, expiring with the session.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a store.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "crm"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, id)
}

// Save writes the whole session, replacing any previous state, and keeps its original expiry.
func (s *RedisStore) Save(ctx context.Context, sess *domain.Session) error {
	ident, err := json.Marshal(identity{
		ID:        sess.ID,
		Username:  sess.Username,
		Role:      sess.Role,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	filters, err := json.Marshal(sess.ActiveFilters)
	if err != nil {
		return fmt.Errorf("encode session filters: %w", err)
	}

	values := map[string]any{
		fieldIdentity:   ident,
		fieldFilters:    filters,
		fieldEditTarget: sess.PendingEditTarget,
	}
	for clientID, msg := range sess.Messages {
		values[messagePrefix+clientID] = msg
	}

	return s.write(ctx, sess, true, values)
}

// SetFilters replaces only the board filters of sess.
func (s *RedisStore) SetFilters(ctx context.Context, sess *domain.Session, q domain.ClientQuery) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode session filters: %w", err)
	}
	return s.write(ctx, sess, false, map[string]any{fieldFilters: raw})
}

// SetEditTarget replaces only the pending edit target of sess.
func (s *RedisStore) SetEditTarget(ctx context.Context, sess *domain.Session, clientID string) error {
	return s.write(ctx, sess, false, map[string]any{fieldEditTarget: clientID})
}

// SetMessage stores the cached message for one client without touching other fields.
func (s *RedisStore) SetMessage(ctx context.Context, sess *domain.Session, clientID, message string) error {
	return s.write(ctx, sess, false, map[string]any{messagePrefix + clientID: message})
}

func (s *RedisStore) write(ctx context.Context, sess *domain.Session, replace bool, values map[string]any) error {
	if time.Until(sess.ExpiresAt) <= 0 {
		return ErrNotFound
	}
	key := s.key(sess.ID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if replace {
			pipe.Del(ctx, key)
		}
		pipe.HSet(ctx, key, values)
		pipe.ExpireAt(ctx, key, sess.ExpiresAt)
		return nil
	})
	return err
}

// Get loads a live session. A hash without identity, left behind by a write racing a logout,
// counts as missing.
func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, err
	}
	rawIdent, ok := fields[fieldIdentity]
	if !ok {
		return nil, ErrNotFound
	}

	var ident identity
	if err := json.Unmarshal([]byte(rawIdent), &ident); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	sess := &domain.Session{
		ID:                ident.ID,
		Username:          ident.Username,
		Role:              ident.Role,
		CreatedAt:         ident.CreatedAt,
		ExpiresAt:         ident.ExpiresAt,
		PendingEditTarget: fields[fieldEditTarget],
	}
	if raw := fields[fieldFilters]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &sess.ActiveFilters); err != nil {
			return nil, fmt.Errorf("decode session filters: %w", err)
		}
	}
	for field, value := range fields {
		if clientID, ok := strings.CutPrefix(field, messagePrefix); ok {
			sess.RememberMessage(clientID, value)
		}
	}
	return sess, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}
