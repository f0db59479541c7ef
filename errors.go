package zipgraph

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// CodecError is the error surface of this package. Every error returned by
// the codec wraps one of the sentinel kinds below, so callers can classify
// failures with errors.Is while still seeing a specific message.
type CodecError interface {
	error
	WithMessage(message string) CodecError
	Wrap(err error) CodecError
}

type baseCodecError string

const rootError = baseCodecError("")

// ErrFormat reports corrupt or inconsistent graph data: a bad header, a
// reference distance beyond the window or the nodes decoded so far,
// residual or interval counts that contradict the outdegree, or a
// truncated bitstream.
var ErrFormat = rootError.WithMessage("malformed graph data")

// ErrOutOfRange reports a node id outside [0, nodeCount).
var ErrOutOfRange = rootError.WithMessage("node id out of range")

// ErrStorage reports a failure in the underlying file, mmap, or stream.
var ErrStorage = rootError.WithMessage("storage failure")

// ErrConfig reports an invalid coder configuration.
var ErrConfig = rootError.WithMessage("invalid configuration")

// ErrIntegrity reports an encoder precondition violation: a successor set
// that is not strictly ascending or contains an id at or above the node
// count. It aborts the enclosing compression job.
var ErrIntegrity = rootError.WithMessage("successor set violates encoder preconditions")

func (e baseCodecError) Error() string {
	return string(e)
}

func (e baseCodecError) WithMessage(message string) CodecError {
	return customCodecError{
		message:       message,
		originalError: e,
	}
}

func (e baseCodecError) Wrap(err error) CodecError {
	return customCodecError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customCodecError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a
// string describing the error.
func (e customCodecError) Error() string {
	return e.message
}

func (e customCodecError) WithMessage(message string) CodecError {
	return customCodecError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customCodecError) Wrap(err error) CodecError {
	return customCodecError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customCodecError) Unwrap() error {
	return e.originalError
}
