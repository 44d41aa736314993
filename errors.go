package oxm

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrConfig indicates conflicting or invalid marshaller settings.
	ErrConfig = errors.New("invalid configuration")

	// ErrSystem indicates the marshaller could not be set up, e.g. a mapping failed to load.
	ErrSystem = errors.New("system failure")

	// ErrMarshal indicates writing an object graph failed.
	ErrMarshal = errors.New("marshalling failed")

	// ErrUnmarshal indicates reading an object graph failed.
	ErrUnmarshal = errors.New("unmarshalling failed")

	// ErrValidation indicates a graph or document failed validation.
	// Validation failures also match ErrMarshal or ErrUnmarshal.
	ErrValidation = errors.New("validation failed")

	// ErrUncategorized indicates a failure the engine did not classify.
	ErrUncategorized = errors.New("uncategorized mapping failure")

	// ErrUnsupportedSource indicates an unknown or empty Source.
	ErrUnsupportedSource = errors.New("unsupported source")

	// ErrUnsupportedResult indicates an unknown or empty Result.
	ErrUnsupportedResult = errors.New("unsupported result")
)

// ConfigError represents a marshaller configuration error.
type ConfigError struct {
	Err    error  // Underlying sentinel error (ErrConfig)
	Field  string // Setting that triggered the error
	Reason string // What is wrong with it
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (field %s): %s", e.Err.Error(), e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// SystemError represents a failure to build marshaller infrastructure.
type SystemError struct {
	Err   error  // Underlying sentinel error (ErrSystem)
	Op    string // Operation that failed
	Cause error  // Original error
}

func (e *SystemError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Err.Error(), e.Op, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Op)
}

func (e *SystemError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// MappingError represents a failure while marshalling or unmarshalling.
// Marshalling records the direction, since engines generally do not.
type MappingError struct {
	Err         error // Underlying sentinel error (ErrMarshal, ErrUnmarshal, ErrValidation, ErrUncategorized)
	Marshalling bool  // True when the failure happened while marshalling
	Cause       error // Original error from the engine
}

// Direction returns ErrMarshal or ErrUnmarshal.
func (e *MappingError) Direction() error {
	if e.Marshalling {
		return ErrMarshal
	}
	return ErrUnmarshal
}

func (e *MappingError) Error() string {
	var msg string
	switch e.Err {
	case ErrMarshal, ErrUnmarshal:
		msg = e.Err.Error()
	default:
		verb := "unmarshalling"
		if e.Marshalling {
			verb = "marshalling"
		}
		msg = fmt.Sprintf("%s while %s", e.Err.Error(), verb)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Is matches the direction sentinel for every classified failure.
func (e *MappingError) Is(target error) bool {
	return e.Err != ErrUncategorized && target == e.Direction()
}

func (e *MappingError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// NewConfigError creates a ConfigError for the given setting.
func NewConfigError(field, reason string) error {
	return &ConfigError{
		Err:    ErrConfig,
		Field:  field,
		Reason: reason,
	}
}

// NewSystemError creates a SystemError for a failed setup operation.
func NewSystemError(op string, cause error) error {
	return &SystemError{
		Err:   ErrSystem,
		Op:    op,
		Cause: cause,
	}
}

// NewMarshallingFailure creates a MappingError for a failed marshal.
func NewMarshallingFailure(cause error) error {
	return &MappingError{Err: ErrMarshal, Marshalling: true, Cause: cause}
}

// NewUnmarshallingFailure creates a MappingError for a failed unmarshal.
func NewUnmarshallingFailure(cause error) error {
	return &MappingError{Err: ErrUnmarshal, Cause: cause}
}

// NewValidationFailure creates a MappingError for a validation failure.
func NewValidationFailure(cause error, marshalling bool) error {
	return &MappingError{Err: ErrValidation, Marshalling: marshalling, Cause: cause}
}

// NewUncategorizedFailure creates a MappingError for an unclassified failure.
func NewUncategorizedFailure(cause error, marshalling bool) error {
	return &MappingError{Err: ErrUncategorized, Marshalling: marshalling, Cause: cause}
}
