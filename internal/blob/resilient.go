package blob

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"xetra/internal/util"
)

// ResilientConfig tunes the Resilient decorator.
type ResilientConfig struct {
	MaxRetries      int           // attempts per call, at least 1
	BaseDelay       time.Duration // first backoff interval
	MaxDelay        time.Duration
	RateLimitPerMin int // 0 disables rate limiting
	TripAfter       uint32
	OpenTimeout     time.Duration
}

// DefaultResilientConfig returns sensible settings for remote stores.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		MaxRetries:  3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		TripAfter:   5,
		OpenTimeout: 30 * time.Second,
	}
}

// Resilient wraps a Backend with retries, a circuit breaker and an optional
// rate limit. ErrNotFound is returned immediately and does not count as a
// breaker failure.
type Resilient struct {
	next    Backend
	cfg     ResilientConfig
	breaker *gobreaker.CircuitBreaker
	limiter *util.RateLimiter
	logger  *slog.Logger
}

// NewResilient decorates next.
func NewResilient(next Backend, cfg ResilientConfig, logger *slog.Logger) *Resilient {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.TripAfter == 0 {
		cfg.TripAfter = 5
	}
	r := &Resilient{
		next:    next,
		cfg:     cfg,
		limiter: util.NewRateLimiter(cfg.RateLimitPerMin),
		logger:  logger,
	}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    next.String(),
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.TripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})
	return r
}

func (r *Resilient) String() string { return r.next.String() }

// List lists keys with retries.
func (r *Resilient) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := r.do(ctx, "list", prefix, func() error {
		var err error
		keys, err = r.next.List(ctx, prefix)
		return err
	})
	return keys, err
}

// Get reads an object with retries.
func (r *Resilient) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.do(ctx, "get", key, func() error {
		var err error
		data, err = r.next.Get(ctx, key)
		return err
	})
	return data, err
}

// Put writes an object with retries.
func (r *Resilient) Put(ctx context.Context, key string, data []byte) error {
	return r.do(ctx, "put", key, func() error {
		return r.next.Put(ctx, key, data)
	})
}

func (r *Resilient) do(ctx context.Context, op, key string, fn func() error) error {
	attempt := 0
	b := util.NewExponentialBackoff(r.cfg.BaseDelay, r.cfg.MaxDelay)
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.cfg.MaxRetries-1)), ctx)

	return backoff.RetryNotify(func() error {
		attempt++
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		_, err := r.breaker.Execute(func() (interface{}, error) {
			return nil, fn()
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotFound) ||
			errors.Is(err, gobreaker.ErrOpenState) ||
			errors.Is(err, gobreaker.ErrTooManyRequests) ||
			errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		r.logger.Warn("object store call failed, retrying",
			"op", op,
			"key", key,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	})
}
