// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build unix

package ipc

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// KindForErrno maps a platform error code onto a semantic kind.
// EMSGSIZE is reported as MessageTooLarge; receive paths remap it themselves.
func KindForErrno(errno syscall.Errno) Kind {
	switch errno {
	case unix.EAGAIN:
		return WouldBlock
	case unix.ENOENT:
		return NotFound
	case unix.EEXIST:
		return AlreadyExists
	case unix.ENAMETOOLONG:
		return InvalidName
	case unix.EMSGSIZE:
		return MessageTooLarge
	case unix.EPIPE:
		return BrokenPipe
	case unix.EMFILE, unix.ENFILE, unix.ENOMEM, unix.ENOSPC, unix.ENODEV:
		return ResourceExhausted
	case unix.ETIMEDOUT:
		return Timeout
	default:
		return Os
	}
}
