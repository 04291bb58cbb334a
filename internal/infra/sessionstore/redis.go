package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bryanwahyu/palm-oracle/internal/domain/session"
)

const (
	sessionKeyPrefix = "palm:session:" // palm:session:{id}
	DefaultTTL       = 24 * time.Hour

	maxUpdateRetries = 10
)

// Redis stores each session as one JSON value; every save refreshes the TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) key(id session.ID) string { return sessionKeyPrefix + string(id) }

func (r *Redis) Get(ctx context.Context, id session.ID) (*session.Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *Redis) Save(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Update is an optimistic WATCH/MULTI transaction; a concurrent write to the
// key makes EXEC fail and fn runs again on the fresh value.
func (r *Redis) Update(ctx context.Context, id session.ID, fn func(*session.Session) error) (*session.Session, error) {
	key := r.key(id)
	var out *session.Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return session.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		var s session.Session
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		if err := fn(&s); err != nil {
			return err
		}
		raw, err := json.Marshal(&s)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = &s
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", session.ErrConflict, id)
}

func (r *Redis) Delete(ctx context.Context, id session.ID) error {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

// Check implements middleware.HealthChecker.
func (r *Redis) Check(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
