// Package redis stores dialogue sessions in Redis as JSON with a TTL.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/m3rciful/goldbot/core/logger"
	"github.com/m3rciful/goldbot/internal/dialogue"
	"github.com/m3rciful/goldbot/internal/pricing"
)

const keyPrefix = "goldbot:session:"

// Client is the subset of *redis.Client the store uses.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// SessionStore implements dialogue.SessionStore on Redis.
type SessionStore struct {
	client  Client
	catalog pricing.Catalog
	ttl     time.Duration
}

// NewSessionStore builds a store; ttl <= 0 stores keys without expiry.
func NewSessionStore(client Client, cat pricing.Catalog, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, catalog: cat, ttl: ttl}
}

func sessionKey(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

// Get loads the user's session. A value that no longer decodes against the
// catalog is dropped and reported as missing.
func (s *SessionStore) Get(ctx context.Context, userID int64) (dialogue.Session, bool, error) {
	data, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return dialogue.Session{}, false, nil
	}
	if err != nil {
		return dialogue.Session{}, false, fmt.Errorf("redis get session: %w", err)
	}
	sess, err := dialogue.DecodeSession(s.catalog, data)
	if err != nil {
		logger.LogEvent(ctx, logger.Store, slog.LevelWarn, "session.decode",
			slog.Int64("user_id", userID),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		if delErr := s.Remove(ctx, userID); delErr != nil {
			return dialogue.Session{}, false, delErr
		}
		return dialogue.Session{}, false, nil
	}
	return sess, true, nil
}

// Put stores the session, refreshing its TTL.
func (s *SessionStore) Put(ctx context.Context, sess dialogue.Session) error {
	data, err := sess.MarshalJSON()
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKey(sess.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Remove deletes the session key.
func (s *SessionStore) Remove(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

var _ dialogue.SessionStore = (*SessionStore)(nil)
