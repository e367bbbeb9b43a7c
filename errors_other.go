// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build !unix

package ipc

import "syscall"

// KindForErrno maps a platform error code onto a semantic kind.
// There are no supported primitives on this platform, so everything is Os.
func KindForErrno(errno syscall.Errno) Kind {
	return Os
}
