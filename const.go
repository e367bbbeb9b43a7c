// Copyright 2015 Aleksandr Demakin. All rights reserved.

package ipc

// Open flags for named objects: message queues and fifos.
// Create flags are mutually exclusive, as are access flags.
const (
	// O_OPEN_OR_CREATE opens an object, creating it if needed. It is the default create mode.
	O_OPEN_OR_CREATE = 0x00000001
	// O_CREATE_ONLY creates an object, failing with AlreadyExists if it is there.
	O_CREATE_ONLY = 0x00000002
	// O_OPEN_ONLY opens an existing object, failing with NotFound if it is absent.
	O_OPEN_ONLY = 0x00000004
	// O_READ_ONLY, O_WRITE_ONLY and O_READWRITE set the access mode. Read-write is the default.
	O_READ_ONLY  = 0x00000008
	O_WRITE_ONLY = 0x00000010
	O_READWRITE  = 0x00000020
	// O_NONBLOCK makes blocking operations fail with WouldBlock instead of waiting.
	// It is accepted by eventfd.New as well.
	O_NONBLOCK = 0x00000040
)
