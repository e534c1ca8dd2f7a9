// Package errs defines the compositor's error taxonomy.
package errs

import (
	"errors"
	"fmt"
)

// Kind categorises an Error.
type Kind string

const (
	// KindImport marks bytes that could not be read or decoded as an image.
	KindImport Kind = "IMPORT"
	// KindBounds marks a value outside its configured range. Callers clamp
	// instead of failing, so this kind is mostly seen in logs.
	KindBounds Kind = "BOUNDS"
	// KindRenderTarget marks a drawing surface that could not be allocated.
	KindRenderTarget Kind = "RENDER_TARGET"
	// KindStaleSelection marks an operation on a layer id that no longer exists.
	KindStaleSelection Kind = "STALE_SELECTION"
)

// Sentinels for errors.Is checks against a kind.
var (
	ErrImport         = &Error{Kind: KindImport}
	ErrBounds         = &Error{Kind: KindBounds}
	ErrRenderTarget   = &Error{Kind: KindRenderTarget}
	ErrStaleSelection = &Error{Kind: KindStaleSelection}
)

// Error is the error type returned by the document, import and render paths.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Op != "" {
		s += " " + e.Op
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrImport) works
// regardless of Op and Msg.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Import wraps a decode failure.
func Import(op string, err error) error {
	return &Error{Kind: KindImport, Op: op, Err: err}
}

// Bounds reports a clamped value.
func Bounds(op string, value, lo, hi float64) error {
	return &Error{
		Kind: KindBounds,
		Op:   op,
		Msg:  fmt.Sprintf("%g outside [%g, %g]", value, lo, hi),
	}
}

// RenderTarget reports a surface that could not be acquired.
func RenderTarget(op string, width, height int, err error) error {
	return &Error{
		Kind: KindRenderTarget,
		Op:   op,
		Msg:  fmt.Sprintf("%dx%d", width, height),
		Err:  err,
	}
}

// StaleSelection reports a missing layer id.
func StaleSelection(op, id string) error {
	return &Error{Kind: KindStaleSelection, Op: op, Msg: fmt.Sprintf("layer %q not found", id)}
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
