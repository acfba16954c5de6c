package api

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	apiRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_api_retries_total",
		Help: "Total number of retry attempts by error kind",
	}, []string{"kind"})

	apiRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_api_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error kind",
	}, []string{"kind"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the first backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration

	// BackoffMultiplier grows the backoff between attempts.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// WithRetry executes fn with exponential backoff and ±20% jitter, retrying
// only failures classified as retryable (network and server errors).
// Validation, auth and not-found failures return immediately, as does any
// unclassified error. Mutations must not be passed through WithRetry; they
// are not idempotent by default and retrying them is the caller's explicit
// choice.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		kind := KindOf(err)

		var apiErr *Error
		if !errors.As(err, &apiErr) || !apiErr.Retryable() {
			return lastErr
		}

		if attempt >= cfg.MaxAttempts {
			break
		}

		apiRetriesTotal.WithLabelValues(string(kind)).Inc()

		// ±20% jitter to avoid synchronized retries
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))

		log.Debug().
			Str("kind", string(kind)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	apiRetryExhaustedTotal.WithLabelValues(string(KindOf(lastErr))).Inc()
	log.Warn().
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	// both the sentinel and the classified error stay unwrappable, so the
	// caller can still branch on the failure kind after exhaustion
	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, cfg.MaxAttempts, lastErr)
}
