package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// HitCounter counts requests per key in fixed windows. *cache.WindowCounter implements it.
type HitCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxRequests int           // Max requests per client and scope
	Window      time.Duration // Fixed window length
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 100,
		Window:      time.Minute,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Scope      string
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// RetryAfterSeconds is the whole number of seconds until the window resets
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int(math.Ceil(time.Until(e.RetryAfter).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// RateLimitService enforces per-client request limits
type RateLimitService struct {
	counter HitCounter
	config  RateLimitConfig
	logger  *logrus.Logger
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(counter HitCounter, config RateLimitConfig, logger *logrus.Logger) *RateLimitService {
	if config.MaxRequests <= 0 || config.Window <= 0 {
		config = DefaultRateLimitConfig()
	}
	return &RateLimitService{
		counter: counter,
		config:  config,
		logger:  logger,
	}
}

// Check records one request from identifier in scope and returns a
// *RateLimitError once the window's budget is spent. Counter failures let
// the request through.
func (s *RateLimitService) Check(ctx context.Context, scope, identifier string) error {
	if s == nil || s.counter == nil {
		return nil
	}

	count, ttl, err := s.counter.Hit(ctx, scope+":"+identifier, s.config.Window)
	if err != nil {
		s.logger.WithError(err).WithField("scope", scope).Warn("Rate limiter unavailable, allowing request")
		return nil
	}

	if count > int64(s.config.MaxRequests) {
		retryAfter := time.Now().Add(ttl)
		s.logger.WithFields(logrus.Fields{
			"scope":      scope,
			"identifier": identifier,
			"count":      count,
		}).Warn("Rate limit exceeded")
		return &RateLimitError{
			Message:    fmt.Sprintf("Too many requests. Please try again after %s", retryAfter.Format("15:04:05")),
			RetryAfter: retryAfter,
			Scope:      scope,
		}
	}

	return nil
}
