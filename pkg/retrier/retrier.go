// Package retrier wraps network operations with bounded retries and pure
// exponential backoff. It deliberately does not classify failures: callers
// pass only operations where blind retry is safe, or mark final failures
// with Permanent.
package retrier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 1 * time.Second
)

// ExhaustedError is returned after every attempt of a named operation has
// failed. It wraps the last failure.
type ExhaustedError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Name, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// PermanentError marks a failure that must not be retried. The retrier
// returns the wrapped error immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the retrier stops retrying and surfaces it as-is.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Executor runs operations with bounded retries. Between failed attempts it
// sleeps initialDelay * 2^attempt (no jitter). An optional per-attempt
// timeout turns a slow attempt into a failure that consumes one retry.
type Executor struct {
	maxAttempts       int
	initialDelay      time.Duration
	perAttemptTimeout time.Duration
	logger            *zap.Logger
	sleep             func(ctx context.Context, d time.Duration) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxAttempts sets the total number of attempts (not extra retries).
func WithMaxAttempts(n int) Option {
	return func(e *Executor) {
		e.maxAttempts = n
	}
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(e *Executor) {
		e.initialDelay = d
	}
}

// WithPerAttemptTimeout bounds each individual attempt. Zero disables it.
func WithPerAttemptTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.perAttemptTimeout = d
	}
}

// WithLogger sets the logger used for attempt reporting.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithSleep replaces the backoff sleep function, used by tests to observe
// delays without a real clock.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		e.sleep = fn
	}
}

// New creates an Executor with defaults and optional overrides.
func New(opts ...Option) *Executor {
	e := &Executor{
		maxAttempts:  defaultMaxAttempts,
		initialDelay: defaultInitialDelay,
		logger:       zap.NewNop(),
		sleep:        sleepWithContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxAttempts < 1 {
		e.maxAttempts = 1
	}
	return e
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn up to maxAttempts times under the given name.
func (e *Executor) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	delay := e.initialDelay
	var lastErr error

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
		}

		err := e.runAttempt(ctx, name, fn)
		if err == nil {
			if attempt > 0 {
				e.logger.Debug("operation succeeded after retry",
					zap.String("operation", name),
					zap.Int("attempt", attempt+1))
			}
			return nil
		}

		var perm *PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}

		lastErr = err
		e.logger.Warn("operation attempt failed",
			zap.String("operation", name),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", e.maxAttempts),
			zap.Error(err))
	}

	e.logger.Error("operation exhausted all attempts",
		zap.String("operation", name),
		zap.Int("attempts", e.maxAttempts),
		zap.Error(lastErr))

	return &ExhaustedError{Name: name, Attempts: e.maxAttempts, Err: lastErr}
}

// runAttempt executes one attempt, bounding it with the per-attempt timeout
// when configured. A timed-out attempt counts as a failure even if the
// underlying operation ignores its context.
func (e *Executor) runAttempt(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if e.perAttemptTimeout <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, e.perAttemptTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(attemptCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			// outer cancellation aborts the whole run, not just the attempt
			return Permanent(ctx.Err())
		}
		return fmt.Errorf("%s attempt timed out after %s", name, e.perAttemptTimeout)
	}
}

// DoWithData runs fn with retries and returns its value.
func DoWithData[T any](e *Executor, ctx context.Context, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, name, func(ctx context.Context) error {
		var inner error
		result, inner = fn(ctx)
		return inner
	})
	return result, err
}
