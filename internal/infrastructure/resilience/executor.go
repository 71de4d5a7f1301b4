// Package resilience wraps calls to the retrieval backends (vector store,
// embedding and generation models, reranker, message queue) with bounded
// retries and per-operation circuit breaking. Each adapter supplies its own
// ErrorClassifier, so the executor never inspects backend error types itself.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrorClassification tells the executor how to treat a failed call:
// Retryable schedules another attempt, RecordFailure counts the error
// toward the breaker's trip ratio.
type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

// ErrorClassifier maps a backend error onto retry and breaker decisions.
type ErrorClassifier func(err error) ErrorClassification

// Executor runs backend callbacks under a shared retry policy. Breakers are
// keyed by operation name, so qdrant.search tripping open does not block
// ollama.embed.
type Executor struct {
	policy   Config
	breakers *breakerPool
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		policy:   cfg.withDefaults(),
		breakers: newBreakerPool(),
	}
}

// Execute invokes fn under the retry policy, routed through the circuit
// breaker registered for operation when breaking is enabled. The error
// returned is either the last backend error, the context error when the
// caller gave up, or a breaker rejection (see IsCircuitOpen).
func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil callback for operation %q", operation)
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unnamed"
	}
	if classifier == nil {
		classifier = func(error) ErrorClassification {
			return ErrorClassification{RecordFailure: true}
		}
	}

	if !e.policy.BreakerEnabled {
		return e.retry(ctx, op, fn, classifier)
	}

	breaker := e.breakers.get(op, e.policy, classifier)
	_, err := breaker.Execute(func() (struct{}, error) {
		return struct{}{}, e.retry(ctx, op, fn, classifier)
	})
	return err
}

func (e *Executor) retry(
	ctx context.Context,
	op string,
	fn func(context.Context) error,
	classify ErrorClassifier,
) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= e.policy.RetryMaxAttempts || !classify(err).Retryable {
			return err
		}

		delay := e.policy.backoffFor(attempt)
		slog.Warn("backend_call_retrying",
			"operation", op,
			"attempt", attempt,
			"max_attempts", e.policy.RetryMaxAttempts,
			"delay", delay,
			"error", err,
		)
		if !sleepUnlessDone(ctx, delay) {
			return err
		}
	}
}

// sleepUnlessDone waits for d and reports false if the context was
// cancelled first.
func sleepUnlessDone(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
