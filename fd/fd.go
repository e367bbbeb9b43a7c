// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build unix

package fd

import (
	"runtime"
	"sync/atomic"

	"github.com/nxgtw/go-hinix"
	"github.com/nxgtw/go-hinix/internal/common"
	"github.com/nxgtw/go-hinix/internal/logging"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	closedBit = uint64(1) << 63
	refMask   = closedBit - 1
)

// Owner owns a single kernel descriptor.
// The descriptor is closed exactly once: by Close, by Release,
// or by a finalizer if the owner becomes unreachable while still open.
// Calls in flight keep the descriptor open: if the owner is closed while
// some of them still run, the last one to return closes it.
// An Owner must not be copied.
type Owner struct {
	// state is closedBit | the number of calls in flight.
	state atomic.Uint64
	fd    int
	name  string
}

// View is a non-owning reference to a descriptor. It is valid only while
// the owner it was borrowed from remains open.
type View struct {
	fd int
}

// Fd returns the raw descriptor value.
func (v View) Fd() int {
	return v.fd
}

// Valid returns false, if the view was borrowed from a closed owner.
func (v View) Valid() bool {
	return v.fd >= 0
}

// New takes ownership of fd, which must be a descriptor returned by a successful kernel call.
// name is used in errors and log messages.
func New(fd int, name string) *Owner {
	o := &Owner{fd: fd, name: name}
	runtime.SetFinalizer(o, (*Owner).Release)
	return o
}

// Name returns the name given to the owner.
func (o *Owner) Name() string {
	return o.name
}

// Borrow returns a view of the descriptor. The view of a closed owner is not valid.
func (o *Owner) Borrow() View {
	return View{fd: o.Fd()}
}

// Fd returns the raw descriptor value, or -1, if the owner is closed.
func (o *Owner) Fd() int {
	if o.IsClosed() {
		return -1
	}
	return o.fd
}

// IsClosed returns true, if the descriptor has been released.
// The kernel descriptor may still be open, until calls in flight return.
func (o *Owner) IsClosed() bool {
	return o.state.Load()&closedBit != 0
}

// Control calls f with the live descriptor. The descriptor stays open until f returns,
// even if the owner is closed concurrently.
// It returns a NotFound error if the owner is closed.
func (o *Owner) Control(f func(fd int) error) error {
	if !o.incref() {
		return o.closedError()
	}
	defer o.decref()
	return f(o.fd)
}

func (o *Owner) incref() bool {
	for {
		s := o.state.Load()
		if s&closedBit != 0 {
			return false
		}
		if o.state.CompareAndSwap(s, s+1) {
			return true
		}
	}
}

func (o *Owner) decref() {
	if o.state.Add(^uint64(0)) == closedBit {
		o.closeLogged()
	}
}

// markClosed sets the closed flag. It returns false, if the owner was already closed.
// idle is true, if no calls were in flight, and the caller must close the descriptor.
func (o *Owner) markClosed() (ok, idle bool) {
	for {
		s := o.state.Load()
		if s&closedBit != 0 {
			return false, false
		}
		if o.state.CompareAndSwap(s, s|closedBit) {
			return true, s&refMask == 0
		}
	}
}

// Read performs a single read(2), retrying it if interrupted.
func (o *Owner) Read(b []byte) (n int, err error) {
	err = o.Control(func(fd int) error {
		return common.UninterruptedSyscall(func() error {
			var rerr error
			n, rerr = unix.Read(fd, b)
			return rerr
		})
	})
	if n < 0 {
		n = 0
	}
	return n, o.wrap("read", err)
}

// Write performs a single write(2), retrying it if interrupted.
func (o *Owner) Write(b []byte) (n int, err error) {
	err = o.Control(func(fd int) error {
		return common.UninterruptedSyscall(func() error {
			var werr error
			n, werr = unix.Write(fd, b)
			return werr
		})
	})
	if n < 0 {
		n = 0
	}
	return n, o.wrap("write", err)
}

// Duplicate creates a new owner for a duplicate of the descriptor.
// Both refer to the same kernel object, and each of them must be closed separately.
func (o *Owner) Duplicate() (*Owner, error) {
	var newFd int
	err := o.Control(func(fd int) error {
		return common.UninterruptedSyscall(func() error {
			var derr error
			newFd, derr = unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
			return derr
		})
	})
	if err != nil {
		return nil, o.wrap("dup", err)
	}
	return New(newFd, o.name), nil
}

// SetNonblocking sets or clears O_NONBLOCK. The flag belongs to the open file description,
// so it is shared with all duplicates of the descriptor.
func (o *Owner) SetNonblocking(nonblocking bool) error {
	err := o.Control(func(fd int) error {
		return unix.SetNonblock(fd, nonblocking)
	})
	return o.wrap("fcntl", err)
}

// Nonblocking returns true, if O_NONBLOCK is set on the descriptor.
func (o *Owner) Nonblocking() (bool, error) {
	var flags int
	err := o.Control(func(fd int) error {
		var ferr error
		flags, ferr = unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
		return ferr
	})
	if err != nil {
		return false, o.wrap("fcntl", err)
	}
	return flags&unix.O_NONBLOCK != 0, nil
}

// Close closes the descriptor. Closing an already closed owner returns a NotFound error.
// The descriptor is released even if close(2) fails.
// If other calls are in flight, Close returns immediately, and the descriptor
// is closed when the last of them returns. Its close error is logged then.
func (o *Owner) Close() error {
	ok, idle := o.markClosed()
	if !ok {
		return o.closedError()
	}
	runtime.SetFinalizer(o, nil)
	if !idle {
		return nil
	}
	return o.wrap("close", unix.Close(o.fd))
}

// Release closes the descriptor, if it is still open, and swallows the error.
// Close failures are logged, as there is nobody to return them to.
func (o *Owner) Release() {
	ok, idle := o.markClosed()
	if !ok {
		return
	}
	runtime.SetFinalizer(o, nil)
	if idle {
		o.closeLogged()
	}
}

func (o *Owner) closeLogged() {
	if err := unix.Close(o.fd); err != nil {
		logging.L().Warn("failed to close descriptor",
			zap.String("object", o.name),
			zap.Int("fd", o.fd),
			zap.Error(err))
	}
}

func (o *Owner) closedError() error {
	return &ipc.Error{Kind: ipc.NotFound, Op: o.name, Err: errors.New("descriptor is closed")}
}

// wrap converts raw syscall errors into *ipc.Error, leaving those already converted as is.
func (o *Owner) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ipc.Error); ok {
		return err
	}
	return ipc.NewSyscallError(o.name+": "+op, err)
}
