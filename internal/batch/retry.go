package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/lqa/internal/observability"
	"github.com/jackzampolin/lqa/internal/report"
)

// maxRetryDelay caps exponential back-off between attempts.
const maxRetryDelay = 30 * time.Second

// Coordinator retries failed attempts for an item up to a fixed budget,
// checking the batch token before every attempt.
type Coordinator struct {
	exec    *Executor
	budget  int
	delay   time.Duration
	token   *Token
	logger  *slog.Logger
	metrics *observability.BatchMetrics
}

// NewCoordinator creates a coordinator. budget is the number of retries
// after the first attempt; delay is the base back-off between attempts.
func NewCoordinator(exec *Executor, budget int, delay time.Duration, token *Token, logger *slog.Logger, metrics *observability.BatchMetrics) (*Coordinator, error) {
	if exec == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if budget < 0 {
		return nil, fmt.Errorf("retry budget must not be negative, got %d", budget)
	}
	if token == nil {
		token = NewToken(context.Background())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		exec:    exec,
		budget:  budget,
		delay:   delay,
		token:   token,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Run attempts the item until one attempt succeeds, the budget is spent,
// or the token is set. On failure the returned error is the last attempt's
// error only. If the token is set before any attempt, the error is
// Cancelled and the analyzer is never called.
func (c *Coordinator) Run(ctx context.Context, item *Item) (*report.Report, int, error) {
	var (
		rep      *report.Report
		attempts int
		lastErr  error
	)

	delayType := retry.FixedDelay
	if c.delay > 0 {
		delayType = retry.BackOffDelay
	}

	err := retry.Do(
		func() error {
			if c.token.Cancelled() {
				return cancelledError()
			}
			if attempts > 0 {
				c.metrics.RecordRetry(ctx)
				c.logger.Debug("retrying item",
					"item_id", item.ID,
					"attempt", attempts+1,
					"max_attempts", c.budget+1,
					"last_error", lastErr)
			}
			attempts++
			r, err := c.exec.Attempt(ctx, item)
			if err != nil {
				lastErr = err
				return err
			}
			rep = r
			return nil
		},
		retry.Context(c.token.Context()),
		retry.Attempts(uint(c.budget)+1),
		retry.Delay(c.delay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(delayType),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
	if err == nil {
		return rep, attempts, nil
	}

	// retry-go reports the token's context error when cancellation lands
	// before the first attempt or during back-off; surface the last real
	// failure instead when there was one.
	var ae *AttemptError
	if !errors.As(err, &ae) {
		if lastErr != nil {
			return nil, attempts, lastErr
		}
		return nil, attempts, cancelledError()
	}
	if ae.Kind == KindCancelled && lastErr != nil {
		return nil, attempts, lastErr
	}
	return nil, attempts, ae
}
