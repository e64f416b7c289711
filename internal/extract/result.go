package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrMismatch marks markup that no longer has the expected structure.
	ErrMismatch = errors.New("structure mismatch")
	// ErrUnavailable marks a document that could not be fetched or parsed.
	ErrUnavailable = errors.New("document unavailable")
)

// Result is the outcome of one field extraction.
type Result[T any] struct {
	Value T
	Err   error
}

// Found wraps a successfully extracted value.
func Found[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Missing records a soft failure. A nil err is reported as ErrMismatch.
func Missing[T any](err error) Result[T] {
	if err == nil {
		err = ErrMismatch
	}
	return Result[T]{Err: err}
}

// OK reports whether the value was extracted.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Ptr returns a pointer to a copy of the value, or nil on failure.
func (r Result[T]) Ptr() *T {
	if !r.OK() {
		return nil
	}
	v := r.Value
	return &v
}

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMismatch, fmt.Sprintf(format, args...))
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}

// isSoft reports whether err is a per-field (or per-item) failure.
func isSoft(err error) bool {
	return errors.Is(err, ErrMismatch) || errors.Is(err, ErrUnavailable)
}
