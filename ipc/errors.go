package ipc

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// FrameErrorKind classifies failures on the command channel.
type FrameErrorKind int

const (
	// FrameErrorIO indicates a read or write failure other than a clean close.
	FrameErrorIO FrameErrorKind = iota
	// FrameErrorShortRead indicates end-of-stream in the middle of a frame.
	FrameErrorShortRead
	// FrameErrorProtocol indicates a malformed frame: wrong header size, bad
	// magic, unknown opcode, descriptor mismatch or unexpected ancillary data.
	FrameErrorProtocol
	// FrameErrorOutOfMemory indicates a blob buffer could not be grown.
	FrameErrorOutOfMemory
)

func (k FrameErrorKind) String() string {
	switch k {
	case FrameErrorIO:
		return "io"
	case FrameErrorShortRead:
		return "short_read"
	case FrameErrorProtocol:
		return "protocol"
	case FrameErrorOutOfMemory:
		return "out_of_memory"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FrameError represents a command channel failure.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the stream can no longer be trusted to be
// frame-aligned. I/O failures and short reads are fatal; protocol and
// resource errors are answered with a reply and the loop continues.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorIO || e.Kind == FrameErrorShortRead
}

// Result returns the negated errno sent to the controller for this error.
func (e *FrameError) Result() int32 {
	switch e.Kind {
	case FrameErrorProtocol:
		return -int32(unix.EINVAL)
	case FrameErrorOutOfMemory:
		return -int32(unix.ENOMEM)
	default:
		return -int32(unix.EIO)
	}
}

// IsFatalFrameError returns true if err is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// ResultCode maps err to the reply result code. Errors that are not frame
// errors map to -EIO.
func ResultCode(err error) int32 {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.Result()
	}
	return -int32(unix.EIO)
}

func protocolError(format string, args ...any) *FrameError {
	return &FrameError{Kind: FrameErrorProtocol, Msg: fmt.Sprintf(format, args...)}
}

func ioError(msg string, err error) *FrameError {
	return &FrameError{Kind: FrameErrorIO, Msg: msg, Err: err}
}

// OutOfMemory wraps a buffer growth failure.
func OutOfMemory(err error) *FrameError {
	return &FrameError{Kind: FrameErrorOutOfMemory, Msg: "failed to allocate command buffers", Err: err}
}
