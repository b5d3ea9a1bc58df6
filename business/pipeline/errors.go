package pipeline

import (
	"context"
	"errors"
	"fmt"

	"priceSense/business/bandit"
)

type ErrorKind string

const (
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindTimeoutExceeded     ErrorKind = "timeout_exceeded"
	KindInvariantViolation  ErrorKind = "invariant_violation"
	KindCanceled            ErrorKind = "canceled"
	KindInternal            ErrorKind = "internal"
)

// StageError is a stage failure after classification.
type StageError struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

func (e StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e StageError) Unwrap() error {
	return e.Err
}

// Classify assigns a kind to an error returned by a stage. Errors that
// already carry a kind keep it.
func Classify(stage string, err error) StageError {
	var se StageError
	if errors.As(err, &se) {
		se.Stage = stage
		return se
	}

	kind := KindUpstreamUnavailable
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeoutExceeded
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.Is(err, bandit.ErrInvalidParameters):
		kind = KindInvariantViolation
	}
	return StageError{Stage: stage, Kind: kind, Err: err}
}

// Policy decides whether execution continues after a stage failure.
type Policy func(StageError) bool

// FailSoft continues after every failure except caller cancellation.
func FailSoft(e StageError) bool {
	return e.Kind != KindCanceled
}

// FailFastOn stops on the given kinds and on cancellation, and continues
// otherwise.
func FailFastOn(kinds ...ErrorKind) Policy {
	return func(e StageError) bool {
		if e.Kind == KindCanceled {
			return false
		}
		for _, k := range kinds {
			if e.Kind == k {
				return false
			}
		}
		return true
	}
}
