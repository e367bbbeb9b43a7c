// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package pipe implements anonymous pipes.
// A pipe is a unidirectional byte stream with two ends, created by a single call.
// The ends are owned independently: when every copy of the write end is closed,
// reads return io.EOF; when every copy of the read end is closed, writes fail
// with a BrokenPipe error.
//
// End of stream is reported the io.Reader way: Read returns 0, io.EOF rather than 0, nil,
// so ReadEnd works with io.Copy, io.ReadAll and bufio. io.EOF is never wrapped
// into an *ipc.Error. A zero-length Read returns 0, nil without a syscall.
package pipe
