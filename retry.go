package framelai

import (
	"context"
	"errors"
	"time"
)

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	MaxAttempts int                          // Total number of attempts, including the first
	Backoff     time.Duration                // Fixed delay between attempts
	OnFailure   func(attempt int, err error) // Called after each failed attempt (optional)
	ShouldRetry func(err error) bool         // Decides whether to try again; IsRetryable when nil
}

// DefaultRetryConfig returns the retry behaviour used for remote requests.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: MaxTranslationRetries,
		Backoff:     1 * time.Second,
	}
}

// RetryFunc is a function that can be retried.
type RetryFunc[T any] func() (T, error)

// WithRetry executes a function up to cfg.MaxAttempts times with a fixed
// backoff between attempts.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn RetryFunc[T]) (T, error) {
	var lastErr error
	var zero T

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		// Check context before each attempt
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if cfg.OnFailure != nil {
			cfg.OnFailure(attempt, err)
		}

		shouldRetry := cfg.ShouldRetry
		if shouldRetry == nil {
			shouldRetry = IsRetryable
		}
		if !shouldRetry(err) {
			return zero, err
		}

		// Don't sleep after the last attempt
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(cfg.Backoff):
			}
		}
	}

	return zero, lastErr
}

// IsRetryable checks if an error is retryable. Transport errors without a
// classification are retried; context errors never are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if isCanceled(err) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}

	return true
}

// isCanceled reports whether err comes from a cancelled or expired context.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// RetryableTranslator wraps a RemoteTranslator with retry logic. An
// unsuccessful response, an empty translation and a transport error all
// count as failed attempts; every attempt is used unless the context ends.
// ProviderError.Retryable only reaches the OnFailure hook.
type RetryableTranslator struct {
	remote RemoteTranslator
	config RetryConfig
}

// NewRetryableTranslator creates a new translator with retry logic.
func NewRetryableTranslator(remote RemoteTranslator, cfg RetryConfig) *RetryableTranslator {
	cfg.ShouldRetry = func(err error) bool { return !isCanceled(err) }
	return &RetryableTranslator{
		remote: remote,
		config: cfg,
	}
}

// Translate implements RemoteTranslator with retry logic. The returned
// response is always successful when err is nil.
func (r *RetryableTranslator) Translate(ctx context.Context, req TranslateRequest) (TranslateResponse, error) {
	return WithRetry(ctx, r.config, func() (TranslateResponse, error) {
		resp, err := r.remote.Translate(ctx, req)
		if err != nil {
			return TranslateResponse{}, err
		}
		if !resp.Success {
			msg := resp.Error
			if msg == "" {
				msg = "translation failed"
			}
			return TranslateResponse{}, &ProviderError{Message: msg, Retryable: true}
		}
		if resp.Translation == "" {
			return TranslateResponse{}, &ProviderError{Message: "remote returned nothing", Cause: ErrEmptyTranslation, Retryable: true}
		}
		return resp, nil
	})
}

// Verify RetryableTranslator implements RemoteTranslator
var _ RemoteTranslator = (*RetryableTranslator)(nil)
