package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/lqa/internal/observability"
)

// Reference values for a batch run.
const (
	DefaultConcurrency = 5
	DefaultRetryBudget = 2
	DefaultDeadline    = 30 * time.Second
	DefaultMaxItems    = 100
)

// Options are the explicit tuning parameters of one run.
type Options struct {
	// Concurrency is the number of workers pulling from the queue.
	Concurrency int
	// RetryBudget is the number of retries allowed after the first attempt.
	RetryBudget int
	// Deadline bounds each attempt; every retry gets a fresh window.
	Deadline time.Duration
	// RetryDelay is the base exponential back-off between attempts. Zero retries immediately.
	RetryDelay time.Duration
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		Concurrency: DefaultConcurrency,
		RetryBudget: DefaultRetryBudget,
		Deadline:    DefaultDeadline,
	}
}

// Validate checks that the options describe a runnable batch.
func (o Options) Validate() error {
	var errs []error
	if o.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", o.Concurrency))
	}
	if o.RetryBudget < 0 {
		errs = append(errs, fmt.Errorf("retry budget must not be negative, got %d", o.RetryBudget))
	}
	if o.Deadline <= 0 {
		errs = append(errs, fmt.Errorf("attempt deadline must be positive, got %s", o.Deadline))
	}
	if o.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry delay must not be negative, got %s", o.RetryDelay))
	}
	return errors.Join(errs...)
}

// Config wires a run to its collaborators.
type Config struct {
	Options

	// Analyze performs the external analysis. Required.
	Analyze AnalyzeFunc

	// Update receives item state transitions. Optional.
	Update UpdateFunc

	// OnProgress receives a copy of the run state after every change. Optional.
	OnProgress func(RunState)

	Logger  *slog.Logger
	Metrics *observability.BatchMetrics
}

// Run is a batch in progress. It is created by Start and finishes on its
// own once the queue drains or the run is cancelled.
type Run struct {
	id       string
	cfg      Config
	logger   *slog.Logger
	token    *Token
	queue    *Queue
	progress *Progress
	coord    *Coordinator

	analyzing atomic.Int32
	peak      atomic.Int32

	done  chan struct{}
	final RunState
}

// Start validates the configuration and launches a run over items.
// Items are started in slice order. Cancelling ctx is equivalent to
// calling Cancel: in-flight attempts still run to completion.
func Start(ctx context.Context, cfg Config, items []*Item) (*Run, error) {
	if err := cfg.Options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch options: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()
	r := &Run{
		id:     id,
		cfg:    cfg,
		logger: logger.With("batch", id),
		token:  NewToken(ctx),
		queue:  NewQueue(items),
		done:   make(chan struct{}),
	}
	r.progress = NewProgress(id, r.queue.Len(), cfg.OnProgress)

	exec, err := NewExecutor(cfg.Analyze, cfg.Deadline, r.logger, cfg.Metrics)
	if err != nil {
		r.token.Cancel()
		return nil, err
	}
	r.coord, err = NewCoordinator(exec, cfg.RetryBudget, cfg.RetryDelay, r.token, r.logger, cfg.Metrics)
	if err != nil {
		r.token.Cancel()
		return nil, err
	}

	go r.run(ctx)
	return r, nil
}

// RunBatch starts a run and waits for it to finish.
func RunBatch(ctx context.Context, cfg Config, items []*Item) (RunState, error) {
	r, err := Start(ctx, cfg, items)
	if err != nil {
		return RunState{}, err
	}
	return r.Wait(), nil
}

// ID returns the run identifier.
func (r *Run) ID() string {
	return r.id
}

// Cancel sets the run's cancellation token. Workers stop taking new items
// and no further retries start.
func (r *Run) Cancel() {
	r.token.Cancel()
}

// Snapshot returns the live run state.
func (r *Run) Snapshot() RunState {
	return r.progress.Snapshot()
}

// Done is closed when the run is complete.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run is complete and returns the terminal state.
func (r *Run) Wait() RunState {
	<-r.done
	return r.final
}

// PeakAnalyzing returns the highest number of items that were analyzing at once.
func (r *Run) PeakAnalyzing() int {
	return int(r.peak.Load())
}

func (r *Run) run(ctx context.Context) {
	total := r.queue.Len()
	r.progress.begin(time.Now())
	r.logger.Info("batch started", "items", total, "concurrency", r.cfg.Concurrency,
		"retry_budget", r.cfg.RetryBudget, "deadline", r.cfg.Deadline)

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go r.worker(ctx, i, &wg)
	}
	wg.Wait()

	cancelled := r.token.Cancelled()
	r.token.Cancel() // release the context derived from ctx
	r.progress.finish(time.Now(), cancelled)
	r.final = r.progress.Snapshot()

	r.logger.Info("batch complete",
		"total", r.final.Total,
		"completed", r.final.Completed,
		"success", r.final.Success,
		"failed", r.final.Failed,
		"cancelled", cancelled)
	close(r.done)
}

func (r *Run) worker(ctx context.Context, id int, wg *sync.WaitGroup) {
	defer wg.Done()
	logger := r.logger.With("worker", id)
	logger.Debug("worker started")

	for {
		if r.token.Cancelled() {
			logger.Debug("worker stopping", "reason", "cancelled")
			return
		}
		item, ok := r.queue.Pop()
		if !ok {
			logger.Debug("worker stopping", "reason", "queue drained")
			return
		}
		r.process(ctx, logger, item)
	}
}

func (r *Run) process(ctx context.Context, logger *slog.Logger, item *Item) {
	n := r.analyzing.Add(1)
	for {
		peak := r.peak.Load()
		if n <= peak || r.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	untrack := r.cfg.Metrics.TrackInflight(ctx)
	defer func() {
		untrack()
		r.analyzing.Add(-1)
	}()

	r.notify(item.ID, Update{Status: StatusAnalyzing})

	rep, attempts, err := r.coord.Run(ctx, item)
	switch {
	case err == nil:
		r.notify(item.ID, Update{Status: StatusCompleted, Report: rep})
		r.progress.recordSuccess()
		r.cfg.Metrics.RecordItem(ctx, string(StatusCompleted))
		logger.Debug("item completed", "item_id", item.ID, "attempts", attempts, "quality", rep.Overall.QualityLevel)

	case errors.Is(err, ErrCancelled):
		// Never attempted: hand the item back so a later run picks it up.
		r.notify(item.ID, Update{Status: StatusPending})
		r.cfg.Metrics.RecordItem(ctx, string(KindCancelled))
		logger.Debug("item released", "item_id", item.ID)

	default:
		msg := err.Error()
		r.notify(item.ID, Update{Status: StatusFailed, Error: msg})
		r.progress.recordFailure(item, msg)
		r.cfg.Metrics.RecordItem(ctx, string(StatusFailed))
		logger.Warn("item failed", "item_id", item.ID, "attempts", attempts, "error", msg)
	}
}

func (r *Run) notify(id string, u Update) {
	if r.cfg.Update != nil {
		r.cfg.Update(id, u)
	}
}
