// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build unix

package common

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// AbsTimeoutToTimeSpec returns an absolute CLOCK_REALTIME deadline for timeout.
// A negative timeout means 'no timeout' and gives nil.
func AbsTimeoutToTimeSpec(timeout time.Duration) *unix.Timespec {
	if timeout >= 0 {
		ts := unix.NsecToTimespec(time.Now().Add(timeout).UnixNano())
		return &ts
	}
	return nil
}

// UninterruptedSyscall calls f until it returns something but EINTR.
func UninterruptedSyscall(f func() error) error {
	for {
		err := f()
		if !IsInterruptedSyscallErr(err) {
			return err
		}
	}
}

// IsInterruptedSyscallErr returns true, if err is EINTR, possibly wrapped into *os.SyscallError.
func IsInterruptedSyscallErr(err error) bool {
	return SyscallErrHasCode(err, syscall.EINTR)
}

// SyscallErrHasCode returns true, if err is code, possibly wrapped into *os.SyscallError.
func SyscallErrHasCode(err error, code syscall.Errno) bool {
	if errno, ok := err.(syscall.Errno); ok {
		return errno == code
	}
	if sysErr, ok := err.(*os.SyscallError); ok {
		if errno, ok := sysErr.Err.(syscall.Errno); ok {
			return errno == code
		}
	}
	return false
}
