// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package eventfd implements event counters over linux eventfd objects.
// A counter can be used as a lightweight wait/notify mechanism between goroutines,
// or between processes, which have inherited or received the descriptor.
//
// Use Duplicate to hand a counter to another goroutine, which may close it on its own.
package eventfd
