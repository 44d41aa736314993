package xmlbind

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying the kind of an engine failure.
// Use errors.Is() to check for these error kinds.
var (
	// ErrBind indicates the object graph and the document could not be bound to each other.
	ErrBind = errors.New("bind failed")

	// ErrValidation indicates a document or graph violated a descriptor constraint.
	ErrValidation = errors.New("validation failed")

	// ErrResolve indicates no descriptor could be produced for a type or element.
	ErrResolve = errors.New("resolve failed")

	// ErrMapping indicates a mapping document could not be loaded or applied.
	ErrMapping = errors.New("mapping failed")

	// ErrIO indicates the underlying reader or writer failed.
	ErrIO = errors.New("io failed")
)

// Kind classifies an engine Error.
type Kind int

const (
	KindBind Kind = iota
	KindValidation
	KindResolve
	KindMapping
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindBind:
		return "bind"
	case KindValidation:
		return "validation"
	case KindResolve:
		return "resolve"
	case KindMapping:
		return "mapping"
	case KindIO:
		return "io"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindResolve:
		return ErrResolve
	case KindMapping:
		return ErrMapping
	case KindIO:
		return ErrIO
	default:
		return ErrBind
	}
}

// Error is the single error type returned by the engine.
// Marshal and Unmarshal never return any other error type.
type Error struct {
	Kind Kind   // Failure classification
	Path string // Element path or type name where the failure happened
	Msg  string // Human readable description
	Err  error  // Underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Msg
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

func newError(kind Kind, path string, cause error, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Path: path,
		Msg:  fmt.Sprintf(format, args...),
		Err:  cause,
	}
}

// wrapError converts any error into an *Error, leaving engine errors untouched.
func wrapError(kind Kind, path string, err error) error {
	if err == nil {
		return nil
	}
	var ee *Error
	if errors.As(err, &ee) {
		return err
	}
	return newError(kind, path, err, "%s", kindVerb(kind))
}

func kindVerb(kind Kind) string {
	switch kind {
	case KindIO:
		return "stream error"
	case KindMapping:
		return "cannot load mapping"
	case KindResolve:
		return "cannot resolve"
	case KindValidation:
		return "invalid value"
	default:
		return "cannot bind"
	}
}
