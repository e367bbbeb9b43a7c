// Copyright 2016 Aleksandr Demakin. All rights reserved.

package ipc

import (
	"fmt"
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// Kind is a semantic class of a failure, independent of the platform error code.
type Kind int

const (
	// Os is an uncategorized kernel failure. Error.Errno holds the raw code.
	Os Kind = iota
	// WouldBlock means a non-blocking operation had no data or no room.
	WouldBlock
	// NotFound means a named object is absent, or the handle has been closed.
	NotFound
	// AlreadyExists means an exclusive creation collided with an existing object.
	AlreadyExists
	// InvalidName means a malformed object name.
	InvalidName
	// MessageTooLarge means a message exceeds the maximum message size of a queue.
	MessageTooLarge
	// BufferTooSmall means a receive buffer is smaller than the maximum message size of a queue.
	BufferTooSmall
	// BrokenPipe means the peer end has been closed.
	BrokenPipe
	// ResourceExhausted means descriptor or kernel object limits were hit.
	ResourceExhausted
	// Io means a short read or write, which violates a fixed-size contract.
	Io
	// Timeout means a timed operation has expired.
	Timeout
)

var kindNames = [...]string{
	Os:                "os error",
	WouldBlock:        "operation would block",
	NotFound:          "not found",
	AlreadyExists:     "already exists",
	InvalidName:       "invalid name",
	MessageTooLarge:   "message too large",
	BufferTooSmall:    "buffer too small",
	BrokenPipe:        "broken pipe",
	ResourceExhausted: "resource exhausted",
	Io:                "i/o error",
	Timeout:           "timed out",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// sentinels to be used with errors.Is.
var (
	ErrWouldBlock        = &Error{Kind: WouldBlock}
	ErrNotFound          = &Error{Kind: NotFound}
	ErrAlreadyExists     = &Error{Kind: AlreadyExists}
	ErrInvalidName       = &Error{Kind: InvalidName}
	ErrMessageTooLarge   = &Error{Kind: MessageTooLarge}
	ErrBufferTooSmall    = &Error{Kind: BufferTooSmall}
	ErrBrokenPipe        = &Error{Kind: BrokenPipe}
	ErrResourceExhausted = &Error{Kind: ResourceExhausted}
	ErrIo                = &Error{Kind: Io}
	ErrTimeout           = &Error{Kind: Timeout}
)

// Error is the error type returned by every operation of the library.
type Error struct {
	Kind Kind
	// Op is the operation which failed, like "mq_open" or "eventfd: signal".
	Op string
	// Errno is the platform error code, if the failure came from the kernel.
	Errno syscall.Errno
	// Err is the underlying error, may be nil.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		// a syscall error repeats the op, only its errno is worth printing.
		if _, ok := e.Err.(*os.SyscallError); ok && e.Errno != 0 {
			return msg + ": " + e.Errno.Error()
		}
		return msg + ": " + e.Err.Error()
	}
	if e.Errno != 0 {
		msg += ": " + e.Errno.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
// For Os errors, a target with a non-zero Errno must match it too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Errno == 0 || t.Errno == e.Errno
}

// Temporary returns true, if the operation may succeed if retried later.
func (e *Error) Temporary() bool {
	return e.Kind == WouldBlock || e.Kind == Timeout
}

// NewError returns an error of the given kind, which is not caused by a syscall.
func NewError(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

// NewSyscallError converts a syscall failure into an *Error.
// The kind is chosen by the errno.
func NewSyscallError(op string, err error) error {
	if err == nil {
		return nil
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return &Error{Kind: Os, Op: op, Err: err}
	}
	if _, ok := err.(*os.SyscallError); !ok {
		err = os.NewSyscallError(op, errno)
	}
	return &Error{Kind: KindForErrno(errno), Op: op, Errno: errno, Err: err}
}

// KindOf returns the kind of err. Errors, which were not produced by the library,
// are classified by their errno, if any, and are Os otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return KindForErrno(errno)
	}
	return Os
}

// IsTemporary returns true, if err is a WouldBlock or a Timeout error.
func IsTemporary(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Temporary()
	}
	return false
}
