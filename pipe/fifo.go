// Copyright 2015 Aleksandr Demakin. All rights reserved.

//go:build unix

package pipe

import (
	"os"
	"strings"

	"github.com/nxgtw/go-hinix"
	"github.com/nxgtw/go-hinix/fd"
	"github.com/nxgtw/go-hinix/internal/common"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// OpenFifoReader opens the read end of a named pipe.
//	name - fifo path. If it has no '/', the fifo is placed into /tmp.
//	flag - a combination of ipc.O_OPEN_OR_CREATE or ipc.O_CREATE_ONLY and ipc.O_NONBLOCK.
//		Without create flags the fifo must exist.
//		Without ipc.O_NONBLOCK the call blocks until a writer opens the fifo.
//	perm - permissions of a new fifo.
func OpenFifoReader(name string, flag int, perm os.FileMode) (*ReadEnd, error) {
	owner, err := openFifo(name, flag, perm, unix.O_RDONLY)
	if err != nil {
		return nil, err
	}
	return &ReadEnd{owner: owner}, nil
}

// OpenFifoWriter opens the write end of a named pipe. Arguments are the same as for OpenFifoReader.
// Without ipc.O_NONBLOCK the call blocks until a reader opens the fifo.
// With ipc.O_NONBLOCK it returns a WouldBlock error, if there are no readers yet.
func OpenFifoWriter(name string, flag int, perm os.FileMode) (*WriteEnd, error) {
	owner, err := openFifo(name, flag, perm, unix.O_WRONLY)
	if err != nil {
		return nil, err
	}
	return &WriteEnd{owner: owner}, nil
}

// DestroyFifo removes a named pipe. Opened ends stay usable.
// It returns nil, if the fifo does not exist.
func DestroyFifo(name string) error {
	err := unix.Unlink(fifoPath(name))
	if err == nil || err == unix.ENOENT {
		return nil
	}
	return ipc.NewSyscallError("unlink "+fifoPath(name), err)
}

func openFifo(name string, flag int, perm os.FileMode, access int) (*fd.Owner, error) {
	if len(name) == 0 {
		return nil, ipc.NewError(ipc.InvalidName, "fifo", "empty fifo name")
	}
	if flag&(ipc.O_READ_ONLY|ipc.O_WRITE_ONLY|ipc.O_READWRITE) != 0 {
		return nil, &ipc.Error{Kind: ipc.Os, Op: "fifo", Errno: unix.EINVAL,
			Err: errors.New("access mode is defined by the fifo end")}
	}
	if _, err := common.CreateModeToOsMode(flag); err != nil {
		return nil, &ipc.Error{Kind: ipc.Os, Op: "fifo", Errno: unix.EINVAL, Err: err}
	}
	path := fifoPath(name)
	if flag&(ipc.O_OPEN_OR_CREATE|ipc.O_CREATE_ONLY) != 0 {
		err := unix.Mkfifo(path, uint32(perm.Perm()))
		if err != nil && !(err == unix.EEXIST && flag&ipc.O_OPEN_OR_CREATE != 0) {
			return nil, ipc.NewSyscallError("mkfifo "+path, err)
		}
	}
	sysflags := access | unix.O_CLOEXEC
	if flag&ipc.O_NONBLOCK != 0 {
		sysflags |= unix.O_NONBLOCK
	}
	var id int
	err := common.UninterruptedSyscall(func() error {
		var oerr error
		id, oerr = unix.Open(path, sysflags, 0)
		return oerr
	})
	if err != nil {
		err = ipc.NewSyscallError("open "+path, err)
		// a non-blocking writer can't open a fifo nobody reads.
		if e, ok := err.(*ipc.Error); ok && e.Errno == unix.ENXIO {
			e.Kind = ipc.WouldBlock
		}
		return nil, err
	}
	if err = checkIsFifo(id); err != nil {
		unix.Close(id)
		return nil, errors.Wrapf(err, "open %s", path)
	}
	end := "read end"
	if access == unix.O_WRONLY {
		end = "write end"
	}
	return fd.New(id, "fifo "+path+": "+end), nil
}

func checkIsFifo(id int) error {
	var st unix.Stat_t
	if err := unix.Fstat(id, &st); err != nil {
		return ipc.NewSyscallError("fstat", err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFIFO {
		return &ipc.Error{Kind: ipc.AlreadyExists, Op: "fifo", Err: errors.New("the file is not a fifo")}
	}
	return nil
}

// fifoPath returns full path for the fifo
// if its name contains '/' ('/tmp/fifo', './fifo') - use it
// if only filename was passed, assume it is in /tmp
func fifoPath(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	return "/tmp/" + name
}
