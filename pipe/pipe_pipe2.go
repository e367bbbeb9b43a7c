// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build dragonfly || freebsd || linux || netbsd || openbsd || solaris

package pipe

import "golang.org/x/sys/unix"

func pipeFds() ([2]int, error) {
	var fds [2]int
	err := unix.Pipe2(fds[:], unix.O_CLOEXEC)
	return fds, err
}
