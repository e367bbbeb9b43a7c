// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build unix

package pipe

import (
	"io"

	"github.com/nxgtw/go-hinix"
	"github.com/nxgtw/go-hinix/fd"
)

// this is to ensure, that pipe ends satisfy common interfaces.
var (
	_ io.ReadCloser  = (*ReadEnd)(nil)
	_ io.WriteCloser = (*WriteEnd)(nil)
	_ ipc.Blocker    = (*ReadEnd)(nil)
	_ ipc.Blocker    = (*WriteEnd)(nil)
)

// ReadEnd is the read end of a pipe.
type ReadEnd struct {
	owner *fd.Owner
}

// WriteEnd is the write end of a pipe.
type WriteEnd struct {
	owner *fd.Owner
}

// New creates a pipe and returns its write and read ends.
// It returns a ResourceExhausted error, if the process is out of descriptors.
func New() (*WriteEnd, *ReadEnd, error) {
	fds, err := pipeFds()
	if err != nil {
		return nil, nil, ipc.NewSyscallError("pipe", err)
	}
	return &WriteEnd{owner: fd.New(fds[1], "pipe: write end")},
		&ReadEnd{owner: fd.New(fds[0], "pipe: read end")},
		nil
}

// Read reads up to len(b) bytes. It blocks, if the pipe is empty, and the write end is open.
// Once all copies of the write end are closed and the pipe is drained, it returns 0, io.EOF.
func (r *ReadEnd) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	n, err := r.owner.Read(b)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Duplicate returns a new handle for the read end, which is closed independently.
func (r *ReadEnd) Duplicate() (*ReadEnd, error) {
	owner, err := r.owner.Duplicate()
	if err != nil {
		return nil, err
	}
	return &ReadEnd{owner: owner}, nil
}

// SetBlocking sets whether Read blocks on an empty pipe.
// This applies to all duplicates of the handle.
func (r *ReadEnd) SetBlocking(block bool) error {
	return r.owner.SetNonblocking(!block)
}

// Fd returns the descriptor, or -1 for a closed handle.
func (r *ReadEnd) Fd() int {
	return r.owner.Fd()
}

// Close closes the read end. A pipe end can't be reopened.
func (r *ReadEnd) Close() error {
	return r.owner.Close()
}

// Write writes all of b, unless an error occurs.
// It returns a BrokenPipe error, if all copies of the read end are closed.
// In non-blocking mode it returns the number of bytes written before the pipe got full
// along with a WouldBlock error.
func (w *WriteEnd) Write(b []byte) (int, error) {
	written := 0
	for written < len(b) {
		n, err := w.owner.Write(b[written:])
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, &ipc.Error{Kind: ipc.Io, Op: "pipe: write", Err: io.ErrShortWrite}
		}
	}
	return written, nil
}

// Duplicate returns a new handle for the write end, which is closed independently.
// The read end sees io.EOF only when every duplicate is closed.
func (w *WriteEnd) Duplicate() (*WriteEnd, error) {
	owner, err := w.owner.Duplicate()
	if err != nil {
		return nil, err
	}
	return &WriteEnd{owner: owner}, nil
}

// SetBlocking sets whether Write blocks on a full pipe.
// This applies to all duplicates of the handle.
func (w *WriteEnd) SetBlocking(block bool) error {
	return w.owner.SetNonblocking(!block)
}

// Fd returns the descriptor, or -1 for a closed handle.
func (w *WriteEnd) Fd() int {
	return w.owner.Fd()
}

// Close closes the write end. A pipe end can't be reopened.
func (w *WriteEnd) Close() error {
	return w.owner.Close()
}
