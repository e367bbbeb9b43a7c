// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

package eventfd

import (
	"github.com/nxgtw/go-hinix"
	"github.com/nxgtw/go-hinix/fd"
	"github.com/nxgtw/go-hinix/internal/allocator"

	"golang.org/x/sys/unix"
)

// Mode selects what Consume returns.
type Mode int

const (
	// ModeCounter makes Consume return the whole value and reset it to zero.
	ModeCounter Mode = iota
	// ModeSemaphore makes Consume return 1 and decrement the value by 1.
	ModeSemaphore
)

func (m Mode) String() string {
	if m == ModeSemaphore {
		return "semaphore"
	}
	return "counter"
}

const (
	// MaxValue is the maximum value the kernel counter can hold.
	MaxValue = uint64(0xfffffffffffffffe)
	// valueSize is the size of every read and write on an eventfd.
	valueSize = 8
)

// this is to ensure, that EventFd satisfies common interfaces.
var (
	_ ipc.Blocker = (*EventFd)(nil)
)

// EventFd is an event counter backed by a linux eventfd object.
// It is safe for concurrent use: all synchronization is done by the kernel.
type EventFd struct {
	owner *fd.Owner
	mode  Mode
}

// New creates a new event counter.
//	initval - initial counter value. The kernel takes it as a 32-bit unsigned int,
//		larger values can be added with Signal.
//	mode - ModeCounter or ModeSemaphore.
//	flags - 0 or ipc.O_NONBLOCK.
func New(initval uint32, mode Mode, flags int) (*EventFd, error) {
	sysflags := unix.EFD_CLOEXEC
	if mode == ModeSemaphore {
		sysflags |= unix.EFD_SEMAPHORE
	}
	if flags&ipc.O_NONBLOCK != 0 {
		sysflags |= unix.EFD_NONBLOCK
	}
	id, err := unix.Eventfd(uint(initval), sysflags)
	if err != nil {
		return nil, ipc.NewSyscallError("eventfd", err)
	}
	return &EventFd{owner: fd.New(id, "eventfd"), mode: mode}, nil
}

// Signal adds delta to the counter.
// If the counter would exceed MaxValue, it blocks until a reader makes room,
// or returns a WouldBlock error in non-blocking mode.
func (e *EventFd) Signal(delta uint64) error {
	value := delta
	n, err := e.owner.Write(allocator.Uint64Data(&value))
	if err != nil {
		return err
	}
	if n != valueSize {
		return ipc.NewError(ipc.Io, "eventfd: signal", "short write of %d bytes", n)
	}
	return nil
}

// Consume reads the counter. In ModeCounter it returns the value and resets it to zero,
// in ModeSemaphore it returns 1 and decrements the value.
// If the counter is zero, it blocks until someone signals,
// or returns a WouldBlock error in non-blocking mode.
func (e *EventFd) Consume() (uint64, error) {
	var value uint64
	n, err := e.owner.Read(allocator.Uint64Data(&value))
	if err != nil {
		return 0, err
	}
	if n != valueSize {
		return 0, ipc.NewError(ipc.Io, "eventfd: consume", "short read of %d bytes", n)
	}
	return value, nil
}

// Duplicate returns a new handle for the same counter, which is closed independently.
// The blocking mode is shared between duplicates.
func (e *EventFd) Duplicate() (*EventFd, error) {
	owner, err := e.owner.Duplicate()
	if err != nil {
		return nil, err
	}
	return &EventFd{owner: owner, mode: e.mode}, nil
}

// Mode returns the mode the counter was created with.
func (e *EventFd) Mode() Mode {
	return e.mode
}

// SetBlocking sets whether Signal and Consume block.
// This applies to all duplicates of the handle.
func (e *EventFd) SetBlocking(block bool) error {
	return e.owner.SetNonblocking(!block)
}

// Blocking returns true, if the handle is in blocking mode.
func (e *EventFd) Blocking() (bool, error) {
	nb, err := e.owner.Nonblocking()
	return !nb, err
}

// Fd returns the descriptor, so that it can be used with poll/epoll.
// It returns -1 for a closed handle.
func (e *EventFd) Fd() int {
	return e.owner.Fd()
}

// Close closes the handle. The counter is destroyed when its last handle is closed.
func (e *EventFd) Close() error {
	return e.owner.Close()
}
