package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackzampolin/lqa/internal/providers"
	"github.com/jackzampolin/lqa/internal/report"
)

// Kind classifies why an attempt did not produce a report.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindTimeout    Kind = "timeout"
	KindSchema     Kind = "schema"
	KindValidation Kind = "validation"
	KindCancelled  Kind = "cancelled"
)

// Sentinels for errors.Is checks against an *AttemptError.
var (
	ErrNetwork    = errors.New("network error")
	ErrTimeout    = errors.New("timeout")
	ErrSchema     = errors.New("schema error")
	ErrValidation = errors.New("validation error")
	ErrCancelled  = errors.New("cancelled")
)

var kindSentinel = map[Kind]error{
	KindNetwork:    ErrNetwork,
	KindTimeout:    ErrTimeout,
	KindSchema:     ErrSchema,
	KindValidation: ErrValidation,
	KindCancelled:  ErrCancelled,
}

// AttemptError is the failure of a single attempt or, once retries are
// exhausted, of the whole item.
type AttemptError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AttemptError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *AttemptError) Is(target error) bool {
	return kindSentinel[e.Kind] == target
}

// Retryable reports whether another attempt may follow this failure.
func (e *AttemptError) Retryable() bool {
	return e.Kind != KindCancelled
}

func cancelledError() *AttemptError {
	return &AttemptError{Kind: KindCancelled, Message: "batch cancelled before the item was analyzed"}
}

// classify maps an analyzer or decoding failure onto the error taxonomy.
func classify(err error) *AttemptError {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae
	}

	switch {
	case errors.Is(err, report.ErrMalformed):
		return &AttemptError{Kind: KindSchema, Err: err}
	case errors.Is(err, report.ErrInvalid):
		return &AttemptError{Kind: KindValidation, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &AttemptError{Kind: KindTimeout, Err: err}
	}

	if rle, ok := providers.IsRateLimitError(err); ok {
		return &AttemptError{Kind: KindNetwork, Message: rle.Error(), Err: err}
	}
	return &AttemptError{Kind: KindNetwork, Err: err}
}

// isRetryable is the retry predicate handed to the retry loop.
func isRetryable(err error) bool {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae.Retryable()
	}
	return !errors.Is(err, context.Canceled)
}
