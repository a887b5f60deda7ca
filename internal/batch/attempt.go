package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/lqa/internal/observability"
	"github.com/jackzampolin/lqa/internal/providers"
	"github.com/jackzampolin/lqa/internal/report"
)

// AnalyzeFunc performs the external analysis of one item and returns the
// raw structured output. The context carries the attempt deadline;
// implementations that ignore it are abandoned when the deadline passes.
type AnalyzeFunc func(ctx context.Context, item *Item) ([]byte, error)

// FromAnalyzer adapts a provider analyzer to an AnalyzeFunc.
func FromAnalyzer(a providers.Analyzer) AnalyzeFunc {
	return func(ctx context.Context, item *Item) ([]byte, error) {
		return a.Analyze(ctx, &providers.AnalysisRequest{
			ItemID: item.ID,
			Name:   item.Name,
			Locale: item.Locale,
			Source: item.Source,
			Target: item.Target,
		})
	}
}

// FromRegistry resolves the named analyzer on every call, so a config
// reload that replaces it takes effect for the next attempt.
func FromRegistry(reg *providers.Registry, name string) AnalyzeFunc {
	return func(ctx context.Context, item *Item) ([]byte, error) {
		a, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		return FromAnalyzer(a)(ctx, item)
	}
}

// analysisOutcome is what the analysis goroutine hands back.
type analysisOutcome struct {
	raw []byte
	err error
}

// Executor runs a single attempt for an item, racing the analysis against
// the attempt deadline and normalizing any successful report.
type Executor struct {
	analyze  AnalyzeFunc
	deadline time.Duration
	logger   *slog.Logger
	metrics  *observability.BatchMetrics
}

// NewExecutor creates an executor. deadline must be positive.
func NewExecutor(analyze AnalyzeFunc, deadline time.Duration, logger *slog.Logger, metrics *observability.BatchMetrics) (*Executor, error) {
	if analyze == nil {
		return nil, fmt.Errorf("analyze function is required")
	}
	if deadline <= 0 {
		return nil, fmt.Errorf("attempt deadline must be positive, got %s", deadline)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		analyze:  analyze,
		deadline: deadline,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Attempt runs the analysis once. The analysis context is detached from
// ctx's cancellation so a batch cancel never interrupts an attempt that
// has already started; only the deadline bounds it. A result that arrives
// after the deadline lands in a channel nobody reads and is dropped.
func (e *Executor) Attempt(ctx context.Context, item *Item) (*report.Report, error) {
	start := time.Now()
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.deadline)
	defer cancel()

	outcomes := make(chan analysisOutcome, 1)
	go func() {
		raw, err := e.analyze(actx, item)
		outcomes <- analysisOutcome{raw: raw, err: err}
	}()

	var (
		rep *report.Report
		err error
	)
	select {
	case out := <-outcomes:
		rep, err = e.settle(out)
	case <-actx.Done():
		err = &AttemptError{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("analysis did not finish within %s", e.deadline),
			Err:     actx.Err(),
		}
	}

	elapsed := time.Since(start)
	if err != nil {
		ae := classify(err)
		e.metrics.RecordAttempt(ctx, string(ae.Kind), elapsed)
		e.logger.Debug("attempt failed", "item_id", item.ID, "kind", ae.Kind, "elapsed", elapsed, "error", ae)
		return nil, ae
	}

	e.metrics.RecordAttempt(ctx, "ok", elapsed)
	e.logger.Debug("attempt succeeded", "item_id", item.ID, "elapsed", elapsed, "quality", rep.Overall.QualityLevel)
	return rep, nil
}

func (e *Executor) settle(out analysisOutcome) (*report.Report, error) {
	if out.err != nil {
		return nil, out.err
	}
	rep, err := report.Decode(out.raw)
	if err != nil {
		return nil, err
	}
	return report.Normalize(rep), nil
}
