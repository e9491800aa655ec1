// Package startup holds boot-time helpers shared by the CLI commands.
package startup

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
)

// RetryConfig configures the exponential backoff retry behavior.
type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  uint
}

// DefaultRetryConfig waits for a backend that is still coming up.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  5,
	}
}

// IsNetworkError checks if an error is likely due to network unavailability.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	var dnsErr *net.DNSError
	if errors.As(err, &netErr) || errors.As(err, &dnsErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	networkIndicators := []string{
		"connection refused",
		"no such host",
		"timeout",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"i/o timeout",
		"connection reset",
		"temporary failure in name resolution",
	}
	for _, indicator := range networkIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// WithRetry runs fn with exponential backoff, retrying network errors only.
// Any other error is returned after the first attempt.
func WithRetry(ctx context.Context, name string, cfg RetryConfig, fn func() error, logger zerolog.Logger) error {
	attempts := 0
	err := retry.Do(
		func() error {
			attempts++
			return fn()
		},
		retry.Context(ctx),
		retry.Attempts(cfg.MaxAttempts),
		retry.Delay(cfg.InitialDelay),
		retry.MaxDelay(cfg.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsNetworkError),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn().
				Err(err).
				Str("operation", name).
				Uint("attempt", n+1).
				Uint("maxAttempts", cfg.MaxAttempts).
				Msg("network error, will retry")
		}),
	)
	if err != nil {
		logger.Error().Err(err).Str("operation", name).Int("attempts", attempts).Msg("operation failed")
		return err
	}
	if attempts > 1 {
		logger.Info().Str("operation", name).Int("attempt", attempts).Msg("operation succeeded after retry")
	}
	return nil
}
