package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/clinicdesk/clinic-voice-platform/internal/dialog"
)

var redisTracer = otel.Tracer("clinicdesk.internal.sessionstore.redis")

const sessionKeyPrefix = "session:call:"

// RedisStore keeps sessions in Redis with a sliding TTL: every save renews
// the expiry, so the key dies TTL after the last turn, not the first.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore builds a store over the given client. A non-positive ttl
// falls back to DefaultTTL.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if rdb == nil {
		panic("sessionstore: redis client required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (s *RedisStore) Load(ctx context.Context, id string) (dialog.Session, error) {
	ctx, span := redisTracer.Start(ctx, "sessionstore.load")
	defer span.End()

	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return dialog.Session{}, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return dialog.Session{}, fmt.Errorf("sessionstore: get session: %w", err)
	}

	var sess dialog.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		return dialog.Session{}, fmt.Errorf("sessionstore: decode session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess dialog.Session) error {
	ctx, span := redisTracer.Start(ctx, "sessionstore.save")
	defer span.End()

	if sess.ID == "" {
		return fmt.Errorf("sessionstore: session id required")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("sessionstore: marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("sessionstore: set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	ctx, span := redisTracer.Start(ctx, "sessionstore.delete")
	defer span.End()

	if err := s.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("sessionstore: delete session: %w", err)
	}
	return nil
}
