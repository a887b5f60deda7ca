package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricItemsTotal      = "lqa.batch.items.total"
	metricAttemptsTotal   = "lqa.batch.attempts.total"
	metricRetriesTotal    = "lqa.batch.retries.total"
	metricAttemptDuration = "lqa.batch.attempt.duration.seconds"
	metricInflightItems   = "lqa.batch.inflight.items"

	attrOutcome = "outcome"
	attrKind    = "kind"
)

// attemptBucketBoundaries covers fast cached responses up to the slowest
// analyses we tolerate before the per-attempt deadline trips.
var attemptBucketBoundaries = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120}

// BatchMetrics holds OTel instruments for batch analysis runs.
// All methods are safe to call on a nil receiver.
type BatchMetrics struct {
	itemsTotal      metric.Int64Counter
	attemptsTotal   metric.Int64Counter
	retriesTotal    metric.Int64Counter
	attemptDuration metric.Float64Histogram
	inflightItems   metric.Int64UpDownCounter
}

// NewBatchMetrics creates batch instruments from the given meter.
func NewBatchMetrics(mt metric.Meter) (*BatchMetrics, error) {
	b := newMetricBuilder(mt)

	bm := &BatchMetrics{
		itemsTotal:      b.counter(metricItemsTotal, "Items finished, by outcome", "{item}"),
		attemptsTotal:   b.counter(metricAttemptsTotal, "Analysis attempts, by result kind", "{attempt}"),
		retriesTotal:    b.counter(metricRetriesTotal, "Attempts scheduled after a failed attempt", "{retry}"),
		attemptDuration: b.histogram(metricAttemptDuration, "Wall time of a single analysis attempt", "s", attemptBucketBoundaries...),
		inflightItems:   b.upDownCounter(metricInflightItems, "Items currently being analyzed", "{item}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return bm, nil
}

// RecordAttempt records one finished attempt. kind is "ok" or the failure kind.
func (bm *BatchMetrics) RecordAttempt(ctx context.Context, kind string, d time.Duration) {
	if bm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrKind, kind))
	bm.attemptsTotal.Add(ctx, 1, attrs)
	bm.attemptDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordRetry counts an attempt scheduled after a failure.
func (bm *BatchMetrics) RecordRetry(ctx context.Context) {
	if bm == nil {
		return
	}

	bm.retriesTotal.Add(ctx, 1)
}

// RecordItem counts a finished item by outcome.
func (bm *BatchMetrics) RecordItem(ctx context.Context, outcome string) {
	if bm == nil {
		return
	}

	bm.itemsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (bm *BatchMetrics) TrackInflight(ctx context.Context) func() {
	if bm == nil {
		return func() {}
	}

	bm.inflightItems.Add(ctx, 1)

	return func() {
		bm.inflightItems.Add(ctx, -1)
	}
}
