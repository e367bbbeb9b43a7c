// Copyright 2015 Aleksandr Demakin. All rights reserved.

//go:build linux

package mq

import (
	"os"
	"unsafe"

	"github.com/nxgtw/go-hinix/internal/allocator"

	"golang.org/x/sys/unix"
)

// linuxMqAttr is struct mq_attr. Fields are C longs.
type linuxMqAttr struct {
	Flags   int /* Flags: 0 or O_NONBLOCK */
	Maxmsg  int /* Max. # of messages on queue */
	Msgsize int /* Max. message size (bytes) */
	Curmsgs int /* # of messages currently in queue */
	_       [4]int
}

// syscalls. The kernel expects names without the leading '/', which the C library strips.

func mq_open(name string, flags int, mode uint32, attrs *linuxMqAttr) (int, error) {
	nameBytes, err := unix.BytePtrFromString(name[1:])
	if err != nil {
		return -1, err
	}
	id, _, errno := unix.Syscall6(unix.SYS_MQ_OPEN,
		uintptr(unsafe.Pointer(nameBytes)),
		uintptr(flags),
		uintptr(mode),
		uintptr(unsafe.Pointer(attrs)),
		0,
		0)
	allocator.Use(unsafe.Pointer(nameBytes))
	allocator.Use(unsafe.Pointer(attrs))
	if errno != 0 {
		return -1, os.NewSyscallError("mq_open", errno)
	}
	return int(id), nil
}

func mq_timedsend(id int, data []byte, prio uint32, timeout *unix.Timespec) error {
	rawData := allocator.ByteSliceData(data)
	_, _, errno := unix.Syscall6(unix.SYS_MQ_TIMEDSEND,
		uintptr(id),
		uintptr(rawData),
		uintptr(len(data)),
		uintptr(prio),
		uintptr(unsafe.Pointer(timeout)),
		0)
	allocator.Use(rawData)
	allocator.Use(unsafe.Pointer(timeout))
	if errno != 0 {
		return os.NewSyscallError("mq_timedsend", errno)
	}
	return nil
}

func mq_timedreceive(id int, data []byte, prio *uint32, timeout *unix.Timespec) (int, error) {
	rawData := allocator.ByteSliceData(data)
	msgSize, _, errno := unix.Syscall6(unix.SYS_MQ_TIMEDRECEIVE,
		uintptr(id),
		uintptr(rawData),
		uintptr(len(data)),
		uintptr(unsafe.Pointer(prio)),
		uintptr(unsafe.Pointer(timeout)),
		0)
	allocator.Use(rawData)
	allocator.Use(unsafe.Pointer(prio))
	allocator.Use(unsafe.Pointer(timeout))
	if errno != 0 {
		return 0, os.NewSyscallError("mq_timedreceive", errno)
	}
	return int(msgSize), nil
}

func mq_getsetattr(id int, attrs, oldAttrs *linuxMqAttr) error {
	_, _, errno := unix.Syscall(unix.SYS_MQ_GETSETATTR,
		uintptr(id),
		uintptr(unsafe.Pointer(attrs)),
		uintptr(unsafe.Pointer(oldAttrs)))
	allocator.Use(unsafe.Pointer(attrs))
	allocator.Use(unsafe.Pointer(oldAttrs))
	if errno != 0 {
		return os.NewSyscallError("mq_getsetattr", errno)
	}
	return nil
}

func mq_unlink(name string) error {
	nameBytes, err := unix.BytePtrFromString(name[1:])
	if err != nil {
		return err
	}
	_, _, errno := unix.Syscall(unix.SYS_MQ_UNLINK, uintptr(unsafe.Pointer(nameBytes)), 0, 0)
	allocator.Use(unsafe.Pointer(nameBytes))
	if errno != 0 {
		return os.NewSyscallError("mq_unlink", errno)
	}
	return nil
}
