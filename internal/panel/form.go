// Package panel implements the configuration, document and evaluation forms.
// Each form tracks its own submission state and never touches the query transcript.
package panel

import (
	"context"
	"errors"
	"sync"

	"github.com/Yates-Labs/permitdesk/internal/backend"
)

var ErrFormBusy = errors.New("a submission is already pending")

// Status is the lifecycle of one form submission.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// FormState is a tagged variant: Value is only meaningful when Succeeded and
// Message only when Failed.
type FormState[T any] struct {
	Status  Status
	Value   T
	Message string
}

func (s FormState[T]) Pending() bool {
	return s.Status == StatusPending
}

// Form holds one FormState and allows a single pending submission at a time.
type Form[T any] struct {
	mu    sync.Mutex
	state FormState[T]
}

func (f *Form[T]) State() FormState[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Status == "" {
		return FormState[T]{Status: StatusIdle}
	}
	return f.state
}

// Begin moves the form to Pending, or returns ErrFormBusy if it already is.
func (f *Form[T]) Begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Status == StatusPending {
		return ErrFormBusy
	}
	f.state = FormState[T]{Status: StatusPending}
	return nil
}

func (f *Form[T]) Succeed(v T) {
	f.mu.Lock()
	f.state = FormState[T]{Status: StatusSucceeded, Value: v}
	f.mu.Unlock()
}

func (f *Form[T]) Fail(message string) {
	f.mu.Lock()
	f.state = FormState[T]{Status: StatusFailed, Message: message}
	f.mu.Unlock()
}

// submit runs fn as one submission of f. A failure is recorded with the same
// user-facing message the query path uses.
func submit[T any](ctx context.Context, f *Form[T], fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := f.Begin(); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	if err != nil {
		f.Fail(backend.ErrorMessage(err))
		return zero, err
	}
	f.Succeed(v)
	return v, nil
}
