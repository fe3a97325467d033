package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/config"
)

// NewRedisClient connects to Redis. It returns nil when the server cannot be
// reached so callers can run without the shared token cache and rate limiting.
func NewRedisClient(cfg config.RedisConfig, logger *logrus.Logger) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	addr := cfg.RedisAddr()
	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).WithField("addr", addr).Warn("Redis unavailable, continuing without it")
		_ = client.Close()
		return nil
	}

	logger.WithField("addr", addr).Info("Connected to Redis")
	return client
}

// TokenStore keeps the payment gateway access token in Redis so every server
// instance reuses one token until it nears expiry.
type TokenStore struct {
	rdb *redis.Client
	key string
}

// NewTokenStore creates a token store under key
func NewTokenStore(rdb *redis.Client, key string) *TokenStore {
	return &TokenStore{rdb: rdb, key: key}
}

// GetToken returns the shared token and when it expires. An absent token is
// reported as an empty string with no error.
func (s *TokenStore) GetToken(ctx context.Context) (string, time.Time, error) {
	pipe := s.rdb.Pipeline()
	get := pipe.Get(ctx, s.key)
	ttl := pipe.PTTL(ctx, s.key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return "", time.Time{}, fmt.Errorf("failed to read token: %w", err)
	}

	token, err := get.Result()
	if errors.Is(err, redis.Nil) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to read token: %w", err)
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		return "", time.Time{}, nil
	}
	return token, time.Now().Add(remaining), nil
}

// SetToken stores token until expiresAt
func (s *TokenStore) SetToken(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, s.key, token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// WindowCounter counts hits per key in fixed windows
type WindowCounter struct {
	rdb    *redis.Client
	prefix string
}

// NewWindowCounter creates a counter whose keys are namespaced by prefix
func NewWindowCounter(rdb *redis.Client, prefix string) *WindowCounter {
	return &WindowCounter{rdb: rdb, prefix: prefix}
}

// Hit records one hit for key and returns the count in the current window
// and the time left until the window resets.
func (w *WindowCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	fullKey := w.prefix + ":" + key

	count, err := w.rdb.Incr(ctx, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to increment %s: %w", fullKey, err)
	}
	if count == 1 {
		if err := w.rdb.Expire(ctx, fullKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("failed to set window on %s: %w", fullKey, err)
		}
		return count, window, nil
	}

	ttl, err := w.rdb.PTTL(ctx, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read window of %s: %w", fullKey, err)
	}
	if ttl < 0 {
		// a key left without expiry would never reset
		w.rdb.Expire(ctx, fullKey, window)
		ttl = window
	}
	return count, ttl, nil
}
