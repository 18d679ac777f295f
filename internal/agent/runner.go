// Package agent wraps one unit of pipeline work with timeout enforcement,
// bounded retries and execution-status tracking.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dealflow-labs/dealflow-go/internal/domain"
)

// Operation is one no-argument unit of work producing a typed payload.
type Operation[T any] func(ctx context.Context) (T, error)

// Runner executes operations for a single named stage. A Runner is safe to
// read concurrently via Status, but Run calls must not overlap; retries within
// one stage are strictly sequential.
type Runner[T any] struct {
	stage       string
	maxRetries  int
	timeout     time.Duration
	backoffBase time.Duration
	backoffMax  time.Duration
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	status domain.ExecutionStatus
}

// Config tunes one Runner. Zero values fall back to defaults.
type Config struct {
	MaxRetries  int
	Timeout     time.Duration
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

const (
	defaultMaxRetries  = 3
	defaultTimeout     = 2 * time.Minute
	defaultBackoffBase = time.Second
	defaultBackoffMax  = 30 * time.Second
)

func NewRunner[T any](stage string, cfg Config, logger *slog.Logger) *Runner[T] {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = defaultBackoffMax
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner[T]{
		stage:       stage,
		maxRetries:  cfg.MaxRetries,
		timeout:     cfg.Timeout,
		backoffBase: cfg.BackoffBase,
		backoffMax:  cfg.BackoffMax,
		logger:      logger,
		sleep:       sleepContext,
		status: domain.ExecutionStatus{
			StageName: stage,
			State:     domain.StagePending,
		},
	}
}

// Stage returns the stage name this runner owns.
func (r *Runner[T]) Stage() string { return r.stage }

// Status returns a copy of the current execution status.
func (r *Runner[T]) Status() domain.ExecutionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// MarkRecovered flips a failed status to completed after the stage's result
// was replaced by a successful attempt made outside the retry budget. The
// retry count stays, the error message is cleared. No-op unless failed.
func (r *Runner[T]) MarkRecovered() {
	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.State != domain.StageFailed {
		return
	}
	r.status.State = domain.StageCompleted
	r.status.CompletedAt = &now
	r.status.ErrorMessage = ""
}

// Reset returns a reused runner to a fresh pending status.
func (r *Runner[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = domain.ExecutionStatus{
		StageName: r.stage,
		State:     domain.StagePending,
	}
}

// Run executes op under the runner's retry and timeout policy. On success it
// returns the payload with state completed. On exhaustion it returns a
// *MaxRetriesError with state failed. Permanent errors and parent-context
// cancellation fail immediately without burning the remaining budget.
func (r *Runner[T]) Run(ctx context.Context, op Operation[T]) (T, error) {
	var zero T

	now := time.Now().UTC()
	r.mu.Lock()
	r.status = domain.ExecutionStatus{
		StageName: r.stage,
		State:     domain.StageRunning,
		StartedAt: &now,
	}
	r.mu.Unlock()

	r.logger.Info("stage starting", "stage", r.stage)

	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		out, err := r.attempt(ctx, op)
		if err == nil {
			r.finish(domain.StageCompleted, "")
			r.logger.Info("stage completed", "stage", r.stage, "attempt", attempt)
			return out, nil
		}

		if ctx.Err() != nil {
			err = ctx.Err()
			r.finish(domain.StageFailed, err.Error())
			return zero, &OperationError{Stage: r.stage, Err: err}
		}
		if IsPermanent(err) {
			r.finish(domain.StageFailed, err.Error())
			r.logger.Error("stage failed permanently", "stage", r.stage, "error", err)
			return zero, &OperationError{Stage: r.stage, Err: err}
		}

		lastErr = err
		r.setRetryCount(attempt)

		var timeoutErr *TimeoutError
		switch {
		case errors.As(err, &timeoutErr):
			r.logger.Warn("stage attempt timed out",
				"stage", r.stage, "attempt", attempt, "max_retries", r.maxRetries)
		case IsRetryable(err):
			r.logger.Warn("stage attempt failed",
				"stage", r.stage, "attempt", attempt, "max_retries", r.maxRetries, "error", err)
		default:
			r.logger.Error("stage attempt failed unexpectedly",
				"stage", r.stage, "attempt", attempt, "max_retries", r.maxRetries, "error", err)
		}

		if attempt < r.maxRetries {
			r.setState(domain.StageRetrying)
			delay := r.backoff(attempt)
			r.logger.Info("stage retrying", "stage", r.stage, "delay", delay)
			if err := r.sleep(ctx, delay); err != nil {
				r.finish(domain.StageFailed, err.Error())
				return zero, &OperationError{Stage: r.stage, Err: err}
			}
			r.setState(domain.StageRunning)
		}
	}

	r.finish(domain.StageFailed, lastErr.Error())
	r.logger.Error("stage exhausted retries",
		"stage", r.stage, "attempts", r.maxRetries, "error", lastErr)
	return zero, &MaxRetriesError{Stage: r.stage, Attempts: r.maxRetries, LastErr: lastErr}
}

func (r *Runner[T]) attempt(ctx context.Context, op Operation[T]) (T, error) {
	var zero T

	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		out T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := op(attemptCtx)
		done <- outcome{out: out, err: err}
	}()

	select {
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, &TimeoutError{Stage: r.stage, Timeout: r.timeout}
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, &TimeoutError{Stage: r.stage, Timeout: r.timeout}
		}
		return res.out, res.err
	}
}

func (r *Runner[T]) backoff(attempt int) time.Duration {
	delay := r.backoffBase << uint(attempt)
	if delay > r.backoffMax || delay <= 0 {
		return r.backoffMax
	}
	return delay
}

func (r *Runner[T]) setState(state domain.StageState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.State = state
}

func (r *Runner[T]) setRetryCount(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.RetryCount = count
}

func (r *Runner[T]) finish(state domain.StageState, errMsg string) {
	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.State = state
	r.status.CompletedAt = &now
	r.status.ErrorMessage = errMsg
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
