// Package redis provides Redis-based adapters for the videobot system.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openclip/videobot/internal/domain/model"
	apperrors "github.com/openclip/videobot/internal/errors"
)

const defaultPrefix = "videobot:session:"

// Concurrent updates for the same user are rare (one person typing), but a
// poll callback can race a user command. Update retries a few times on WATCH
// conflicts before giving up.
const casMaxRetries = 16

// SessionStore keeps one conversation session per user as a JSON document.
// Sessions are reconstructible state, so an optional idle TTL lets stale
// conversations age out on their own.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// SessionStoreOptions configures a SessionStore.
type SessionStoreOptions struct {
	// Prefix overrides the default key prefix.
	Prefix string
	// TTL is the idle expiry for session documents. Zero means no expiry.
	TTL time.Duration
}

// NewSessionStore creates a Redis-based session store.
func NewSessionStore(client redis.UniversalClient, opts SessionStoreOptions) *SessionStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &SessionStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *SessionStore) key(userID int64) string {
	return s.prefix + strconv.FormatInt(userID, 10)
}

// Get returns the session for the given user, or a not-found error.
func (s *SessionStore) Get(ctx context.Context, userID int64) (model.Session, error) {
	if userID == 0 {
		return model.Session{}, apperrors.Validation("user id is required")
	}

	data, err := s.client.Get(ctx, s.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, apperrors.NotFound("session not found")
		}
		return model.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return model.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}

// Save writes the session unconditionally.
func (s *SessionStore) Save(ctx context.Context, sess model.Session) error {
	if sess.UserID == 0 {
		return apperrors.Validation("user id is required")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the session for the given user. Deleting a missing session
// is not an error.
func (s *SessionStore) Delete(ctx context.Context, userID int64) error {
	if userID == 0 {
		return nil
	}
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Update applies fn to the user's session under optimistic concurrency
// control. A missing session is presented to fn as a fresh idle session.
// If fn returns an error the session is left untouched and the error is
// returned as-is.
func (s *SessionStore) Update(
	ctx context.Context,
	userID int64,
	now time.Time,
	fn func(model.Session) (model.Session, error),
) (model.Session, error) {
	if userID == 0 {
		return model.Session{}, apperrors.Validation("user id is required")
	}

	key := s.key(userID)
	var result model.Session

	txn := func(tx *redis.Tx) error {
		sess := model.NewSession(userID, now)
		data, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			// fresh session
		case err != nil:
			return fmt.Errorf("redis get: %w", err)
		default:
			if err := json.Unmarshal([]byte(data), &sess); err != nil {
				return fmt.Errorf("unmarshal session: %w", err)
			}
		}

		next, err := fn(sess)
		if err != nil {
			return err
		}
		next.UserID = userID

		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for i := 0; i < casMaxRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return model.Session{}, err
	}
	return model.Session{}, apperrors.Conflict("session update contention")
}
