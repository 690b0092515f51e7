// Package ragerr defines the failure kinds surfaced by the ingest and ask
// pipelines and renders them as short user-facing messages.
package ragerr

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error leaving a pipeline component wraps exactly one of these.
var (
	ErrFetch             = errors.New("FetchError")
	ErrInvalidShape      = errors.New("InvalidShapeError")
	ErrInvalidConfig     = errors.New("InvalidConfigError")
	ErrStoreTeardown     = errors.New("StoreTeardownError")
	ErrStorePersist      = errors.New("StorePersistError")
	ErrEmbeddingProvider = errors.New("EmbeddingProviderError")
	ErrNotInitialized    = errors.New("NotInitializedError")
	ErrNoData            = errors.New("NoDataError")
	ErrGeneration        = errors.New("GenerationError")
)

var kinds = []error{
	ErrFetch,
	ErrInvalidShape,
	ErrInvalidConfig,
	ErrStoreTeardown,
	ErrStorePersist,
	ErrEmbeddingProvider,
	ErrNotInitialized,
	ErrNoData,
	ErrGeneration,
}

// Error ties an underlying cause to one failure kind.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	cause := "unknown error"
	if e.Err != nil {
		cause = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, cause)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New wraps err with the given kind. If err already carries a kind it is returned unchanged.
func New(kind error, op string, err error) error {
	if err != nil && KindOf(err) != nil {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a kinded error from a formatted cause.
func Newf(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the failure kind carried by err, or nil.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Message renders err as "<Kind>: <cause>" for display. Errors without a kind
// are shown as they are.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Err == nil {
			return e.Kind.Error()
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return err.Error()
}
