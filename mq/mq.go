// Copyright 2016 Aleksandr Demakin. All rights reserved.

package mq

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/nxgtw/go-hinix"
)

const (
	// DefaultPriority is the priority used by tools, which don't specify one.
	DefaultPriority = 0
	// MaxPriority is the highest message priority accepted by the kernel.
	MaxPriority = 32767
	// DefaultMaxMessages is the kernel default queue capacity.
	DefaultMaxMessages = 10
	// DefaultMaxMessageSize is the kernel default message size.
	// Its max value can be set via procfs.
	DefaultMaxMessageSize = 8192

	maxNameLen = 255
)

// Messenger is an interface which must be satisfied by any
// message queue implementation on any platform.
type Messenger interface {
	Send(data []byte, prio uint32) error
	Receive(data []byte) (int, uint32, error)
	io.Closer
}

// TimedMessenger is a Messenger, which supports send/receive timeouts.
type TimedMessenger interface {
	Messenger
	SendTimeout(data []byte, prio uint32, timeout time.Duration) error
	ReceiveTimeout(data []byte, timeout time.Duration) (int, uint32, error)
}

// Attributes is a point-in-time snapshot of the queue attributes.
type Attributes struct {
	// Flags is 0 or O_NONBLOCK.
	Flags           int
	MaxMessages     int
	MaxMessageSize  int
	CurrentMessages int
}

func checkMqPerm(perm os.FileMode) bool {
	return uint(perm)&0111 == 0
}

// checkName validates a queue name. It must be '/' followed by
// a non-empty name without any other slashes.
// Names are never normalized: '/q' and 'q' must not silently refer to the same queue.
func checkName(name string) error {
	var reason string
	switch {
	case len(name) == 0 || name[0] != '/':
		reason = "must start with '/'"
	case len(name) == 1:
		reason = "is empty"
	case strings.IndexByte(name[1:], '/') >= 0:
		reason = "must not contain '/' after the first symbol"
	case strings.IndexByte(name, 0) >= 0:
		reason = "must not contain NUL"
	case name == "/." || name == "/..":
		reason = "is reserved"
	case len(name)-1 > maxNameLen:
		reason = "is too long"
	default:
		return nil
	}
	return ipc.NewError(ipc.InvalidName, "mq", "queue name %q %s", name, reason)
}
