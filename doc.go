// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package ipc provides safe handles over kernel signaling primitives.
// Currently it implements the following mechanisms:
//	event counters, eventfd (linux)
//	posix message queues (linux)
//	anonymous and named pipes (unix)
// Every handle owns its kernel descriptor through an fd.Owner, and every
// failure is reported as an *Error carrying a semantic Kind.
// The primitives live in the subpackages; this package holds the shared
// error taxonomy, open flags and interfaces.
package ipc
