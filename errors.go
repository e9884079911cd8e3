package clone

import (
	"errors"
	"fmt"
)

var (
	// ErrStackOverflow indicates the traversal depth bound was exceeded.
	ErrStackOverflow = errors.New("clone: maximum nesting depth exceeded")

	// ErrValidation indicates a malformed, truncated or out-of-range stream,
	// or a live value that failed a transfer precondition.
	ErrValidation = errors.New("clone: unable to deserialize data")

	// ErrDataClone indicates a live value that is not of a cloneable kind.
	ErrDataClone = errors.New("clone: value could not be cloned")

	// ErrExistingException marks a failure raised by a host callback during traversal.
	ErrExistingException = errors.New("clone: host callback failed")

	// ErrUnspecified indicates an internal invariant violation.
	ErrUnspecified = errors.New("clone: unspecified error")

	// ErrTruncatedData indicates a read past the end of the stream.
	ErrTruncatedData = errors.New("clone: truncated data")

	// ErrTrailingData is returned when non-zero bytes follow the root value.
	ErrTrailingData = errors.New("clone: non-zero trailing data found after decoding")

	// ErrUnsupportedVersion indicates a stream written by a newer format version.
	ErrUnsupportedVersion = errors.New("clone: unsupported format version")

	// ErrUnknownTag indicates a tag byte outside the known enumeration.
	ErrUnknownTag = errors.New("clone: unknown tag")

	// ErrBadPoolIndex indicates a back-reference beyond the current pool size.
	ErrBadPoolIndex = errors.New("clone: pool index out of range")

	// ErrBadView indicates an ArrayBufferView whose geometry does not fit its buffer.
	ErrBadView = errors.New("clone: invalid array buffer view")

	// ErrNeutered indicates use of an ArrayBuffer whose contents were transferred away.
	ErrNeutered = errors.New("clone: array buffer is neutered")

	// ErrStringTooLong indicates a string length that collides with a reserved sentinel.
	ErrStringTooLong = errors.New("clone: string length collides with a reserved sentinel")

	// ErrInvalidString indicates a Go string that is not valid UTF-8 and so has
	// no exact UTF-16 form.
	ErrInvalidString = errors.New("clone: string is not valid UTF-8")

	// ErrIndexTooLarge indicates an array index that collides with a reserved sentinel.
	ErrIndexTooLarge = errors.New("clone: array index collides with a reserved sentinel")

	// ErrUnknownPort indicates a MessagePort missing from the port list.
	ErrUnknownPort = errors.New("clone: message port is not in the port list")

	// ErrEmptyPayload is returned when deserializing a zero-length stream.
	ErrEmptyPayload = errors.New("clone: empty payload")

	// ErrNilIO indicates an nil io.Reader/io.Writer was supplied.
	ErrNilIO = errors.New("clone: called with a nil io.Reader/io.Writer")
)

// Code classifies a failed serialize or deserialize call.
type Code uint8

const (
	StackOverflowError Code = iota + 1
	ValidationError
	DataCloneError
	ExistingExceptionError
	UnspecifiedError
)

func (c Code) String() string {
	switch c {
	case StackOverflowError:
		return "StackOverflowError"
	case ValidationError:
		return "ValidationError"
	case DataCloneError:
		return "DataCloneError"
	case ExistingExceptionError:
		return "ExistingExceptionError"
	case UnspecifiedError:
		return "UnspecifiedError"
	default:
		return fmt.Sprintf("Code(%d)", uint8(c))
	}
}

// sentinel maps a code to the error callers match with errors.Is.
func (c Code) sentinel() error {
	switch c {
	case StackOverflowError:
		return ErrStackOverflow
	case ValidationError:
		return ErrValidation
	case DataCloneError:
		return ErrDataClone
	case ExistingExceptionError:
		return ErrExistingException
	default:
		return ErrUnspecified
	}
}

// CloneError is the error returned by every failing call of the codec.
// errors.Is matches both the code sentinel (ErrValidation, ...) and the cause.
type CloneError struct {
	Code Code
	Err  error // cause; for ExistingExceptionError the host error itself
}

func (e *CloneError) Error() string {
	if e.Code == ExistingExceptionError && e.Err != nil {
		// the host failure is re-surfaced as is
		return e.Err.Error()
	}
	if e.Err == nil || e.Err == e.Code.sentinel() {
		return e.Code.sentinel().Error()
	}
	return fmt.Sprintf("%v: %v", e.Code.sentinel(), e.Err)
}

func (e *CloneError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Code.sentinel()}
	}
	return []error{e.Code.sentinel(), e.Err}
}

func newError(code Code, cause error) *CloneError {
	return &CloneError{Code: code, Err: cause}
}

// CodeOf returns the Code carried by err, or 0 if err is not a *CloneError.
func CodeOf(err error) Code {
	var ce *CloneError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}
