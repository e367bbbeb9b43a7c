// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build aix || darwin

package pipe

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// there is no pipe2 on these systems. ForkLock keeps a concurrent fork from inheriting the descriptors.
func pipeFds() ([2]int, error) {
	var fds [2]int
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	if err := unix.Pipe(fds[:]); err != nil {
		return fds, err
	}
	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])
	return fds, nil
}
