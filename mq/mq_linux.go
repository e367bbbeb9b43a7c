// Copyright 2015 Aleksandr Demakin. All rights reserved.

//go:build linux

package mq

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/nxgtw/go-hinix"
	"github.com/nxgtw/go-hinix/fd"
	"github.com/nxgtw/go-hinix/internal/common"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
	"golang.org/x/sys/unix"
)

// this is to ensure, that linux implementation of ipc mq satisfies queue interfaces.
var (
	_ Messenger      = (*MessageQueue)(nil)
	_ TimedMessenger = (*MessageQueue)(nil)
	_ ipc.Blocker    = (*MessageQueue)(nil)
	_ ipc.Destroyer  = (*MessageQueue)(nil)
)

type queueState int32

const (
	stateOpen queueState = iota
	stateClosed
)

// receivePool holds scratch buffers for ReceiveBytes.
var receivePool bytebufferpool.Pool

// MessageQueue is a posix message queue.
// Its geometry is read from the kernel once, when the queue is opened, and cached.
// It is safe for concurrent use: all synchronization is done by the kernel.
type MessageQueue struct {
	name           string
	owner          *fd.Owner
	state          atomic.Int32
	maxMessages    int
	maxMessageSize int
}

// Create creates new queue with the given name and permissions,
// or opens an existing one, unless ipc.O_CREATE_ONLY is passed.
//	name - queue name: '/' followed by a name without slashes.
//	flag - a combination of ipc.O_OPEN_OR_CREATE or ipc.O_CREATE_ONLY, access flags and ipc.O_NONBLOCK.
//		Without create flags ipc.O_OPEN_OR_CREATE is assumed, without access flags ipc.O_READWRITE.
//	perm - object's permission bits. 'x' permissions are not allowed.
//	maxMessages - queue capacity, if the queue is created.
//	maxMessageSize - maximum message size, if the queue is created.
// The geometry of an existing queue may differ from the requested one.
// MaxMessages and MaxMessageSize always return the actual values.
func Create(name string, flag int, perm os.FileMode, maxMessages, maxMessageSize int) (*MessageQueue, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if !checkMqPerm(perm) {
		return nil, invalidArgument("mq_open", "invalid mq permissions %v", perm)
	}
	if maxMessages <= 0 || maxMessageSize <= 0 {
		return nil, invalidArgument("mq_open", "invalid queue geometry %dx%d", maxMessages, maxMessageSize)
	}
	createMode, err := common.CreateModeToOsMode(flag)
	if err != nil {
		return nil, invalidArgument("mq_open", "%v", err)
	}
	if createMode == 0 {
		return nil, invalidArgument("mq_open", "O_OPEN_ONLY can't be used to create a queue")
	}
	sysflags, err := openFlags(flag)
	if err != nil {
		return nil, err
	}
	attrs := &linuxMqAttr{Maxmsg: maxMessages, Msgsize: maxMessageSize}
	id, err := mq_open(name, sysflags|createMode, uint32(perm), attrs)
	if err != nil {
		return nil, ipc.NewSyscallError("mq_open "+name, err)
	}
	return newQueue(name, id)
}

// Open opens an existing queue for reading and writing.
// It returns a NotFound error, if the queue does not exist.
func Open(name string) (*MessageQueue, error) {
	return OpenFlags(name, ipc.O_READWRITE)
}

// OpenFlags opens an existing queue.
//	flag - flag is a combination of (ipc.O_READ_ONLY or ipc.O_WRITE_ONLY or ipc.O_READWRITE) and ipc.O_NONBLOCK.
//		O_READ_ONLY
//			Open the queue to receive messages only.
//		O_WRITE_ONLY
//			Open the queue to send messages only.
//		O_READWRITE
//			Open the queue to both send and receive messages.
func OpenFlags(name string, flag int) (*MessageQueue, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	sysflags, err := openFlags(flag)
	if err != nil {
		return nil, err
	}
	id, err := mq_open(name, sysflags, 0, nil)
	if err != nil {
		return nil, ipc.NewSyscallError("mq_open "+name, err)
	}
	return newQueue(name, id)
}

func openFlags(flag int) (int, error) {
	access, err := common.AccessModeToOsMode(flag)
	if err != nil {
		return 0, invalidArgument("mq_open", "%v", err)
	}
	sysflags := access | unix.O_CLOEXEC
	if flag&ipc.O_NONBLOCK != 0 {
		sysflags |= unix.O_NONBLOCK
	}
	return sysflags, nil
}

func newQueue(name string, id int) (*MessageQueue, error) {
	result := &MessageQueue{name: name, owner: fd.New(id, "mq "+name)}
	attrs, err := result.Attributes()
	if err != nil {
		result.owner.Release()
		return nil, errors.Wrap(err, "failed to get mq attrs")
	}
	result.maxMessages = attrs.MaxMessages
	result.maxMessageSize = attrs.MaxMessageSize
	return result, nil
}

// Name returns the name of the queue.
func (mq *MessageQueue) Name() string {
	return mq.name
}

// MaxMessages returns the queue capacity.
func (mq *MessageQueue) MaxMessages() int {
	return mq.maxMessages
}

// MaxMessageSize returns the maximum message size.
func (mq *MessageQueue) MaxMessageSize() int {
	return mq.maxMessageSize
}

// Send sends a message with a given priority.
// It blocks if the queue is full, or returns a WouldBlock error in non-blocking mode.
// Messages are received in descending priority order, and in FIFO order within a priority.
func (mq *MessageQueue) Send(data []byte, prio uint32) error {
	return mq.SendTimeout(data, prio, time.Duration(-1))
}

// SendTimeout sends a message with a given priority.
// It blocks if the queue is full, waiting for room unless timeout is passed.
// A negative timeout means no timeout.
func (mq *MessageQueue) SendTimeout(data []byte, prio uint32, timeout time.Duration) error {
	if mq.IsClosed() {
		return mq.closedError()
	}
	if len(data) > mq.maxMessageSize {
		return ipc.NewError(ipc.MessageTooLarge, "mq_send "+mq.name,
			"message of %d bytes exceeds the maximum of %d bytes", len(data), mq.maxMessageSize)
	}
	ts := common.AbsTimeoutToTimeSpec(timeout)
	err := mq.control(func(id int) error {
		return common.UninterruptedSyscall(func() error {
			return mq_timedsend(id, data, prio, ts)
		})
	})
	return mq.wrap("mq_send", err)
}

// Receive receives the oldest message of the highest priority.
// data must be at least MaxMessageSize bytes long.
// It blocks if the queue is empty, or returns a WouldBlock error in non-blocking mode.
// Returns message len and priority.
func (mq *MessageQueue) Receive(data []byte) (int, uint32, error) {
	return mq.ReceiveTimeout(data, time.Duration(-1))
}

// ReceiveTimeout receives a message, returning its len and priority.
// It blocks if the queue is empty, waiting for a message unless timeout is passed.
// A negative timeout means no timeout.
func (mq *MessageQueue) ReceiveTimeout(data []byte, timeout time.Duration) (int, uint32, error) {
	if mq.IsClosed() {
		return 0, 0, mq.closedError()
	}
	if len(data) < mq.maxMessageSize {
		return 0, 0, ipc.NewError(ipc.BufferTooSmall, "mq_receive "+mq.name,
			"the buffer of %d bytes is smaller than the message size of %d bytes", len(data), mq.maxMessageSize)
	}
	var n int
	var prio uint32
	ts := common.AbsTimeoutToTimeSpec(timeout)
	err := mq.control(func(id int) error {
		return common.UninterruptedSyscall(func() error {
			var rerr error
			n, rerr = mq_timedreceive(id, data, &prio, ts)
			return rerr
		})
	})
	if err != nil {
		err = mq.wrap("mq_receive", err)
		if e, ok := err.(*ipc.Error); ok && e.Errno == unix.EMSGSIZE {
			e.Kind = ipc.BufferTooSmall
		}
		return 0, 0, err
	}
	return n, prio, nil
}

// ReceiveBytes receives a message into a newly allocated slice of its exact size.
func (mq *MessageQueue) ReceiveBytes() ([]byte, uint32, error) {
	buf := receivePool.Get()
	defer receivePool.Put(buf)
	if cap(buf.B) < mq.maxMessageSize {
		buf.B = make([]byte, mq.maxMessageSize)
	}
	buf.B = buf.B[:mq.maxMessageSize]
	n, prio, err := mq.Receive(buf.B)
	if err != nil {
		return nil, 0, err
	}
	result := make([]byte, n)
	copy(result, buf.B[:n])
	return result, prio, nil
}

// Attributes returns current attributes of the queue.
// CurrentMessages may be changed by any process at any moment.
func (mq *MessageQueue) Attributes() (Attributes, error) {
	attrs := new(linuxMqAttr)
	err := mq.control(func(id int) error {
		return mq_getsetattr(id, nil, attrs)
	})
	if err != nil {
		return Attributes{}, mq.wrap("mq_getattr", err)
	}
	return Attributes{
		Flags:           attrs.Flags,
		MaxMessages:     attrs.Maxmsg,
		MaxMessageSize:  attrs.Msgsize,
		CurrentMessages: attrs.Curmsgs,
	}, nil
}

// SetNonblocking sets whether the send/receive operations on the queue fail instead of blocking.
// This applies to the descriptor of the current instance and its duplicates.
func (mq *MessageQueue) SetNonblocking(nonblocking bool) error {
	attrs := new(linuxMqAttr)
	if nonblocking {
		attrs.Flags = unix.O_NONBLOCK
	}
	err := mq.control(func(id int) error {
		return mq_getsetattr(id, attrs, nil)
	})
	return mq.wrap("mq_setattr", err)
}

// SetBlocking sets whether the send/receive operations on the queue block.
func (mq *MessageQueue) SetBlocking(block bool) error {
	return mq.SetNonblocking(!block)
}

// Duplicate returns a new handle for the same queue, which is closed independently.
func (mq *MessageQueue) Duplicate() (*MessageQueue, error) {
	var owner *fd.Owner
	err := mq.control(func(int) error {
		var derr error
		owner, derr = mq.owner.Duplicate()
		return derr
	})
	if err != nil {
		return nil, err
	}
	result := &MessageQueue{
		name:           mq.name,
		owner:          owner,
		maxMessages:    mq.maxMessages,
		maxMessageSize: mq.maxMessageSize,
	}
	return result, nil
}

// Fd returns the queue descriptor, so that it can be used with poll/epoll.
// It returns -1 for a closed queue.
func (mq *MessageQueue) Fd() int {
	if mq.IsClosed() {
		return -1
	}
	return mq.owner.Fd()
}

// IsClosed returns true, if the queue has been closed.
func (mq *MessageQueue) IsClosed() bool {
	return queueState(mq.state.Load()) == stateClosed
}

// Close closes the queue. The queue itself is not removed, see Destroy.
// Any operation on a closed queue returns a NotFound error.
func (mq *MessageQueue) Close() error {
	if !mq.state.CompareAndSwap(int32(stateOpen), int32(stateClosed)) {
		return mq.closedError()
	}
	return mq.owner.Close()
}

// Destroy closes the queue and removes it permanently.
func (mq *MessageQueue) Destroy() error {
	if err := mq.Close(); err != nil {
		return errors.Wrap(err, "mq close failed")
	}
	return Unlink(mq.name)
}

// Unlink removes the queue permanently. Processes, which have the queue opened,
// can use it until they close it. A missing queue is not an error.
func Unlink(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := mq_unlink(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ipc.NewSyscallError("mq_unlink "+name, err)
	}
	return nil
}

func (mq *MessageQueue) control(f func(id int) error) error {
	if mq.IsClosed() {
		return mq.closedError()
	}
	return mq.owner.Control(f)
}

func (mq *MessageQueue) closedError() error {
	return &ipc.Error{Kind: ipc.NotFound, Op: "mq " + mq.name, Err: errors.New("queue is closed")}
}

func (mq *MessageQueue) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ipc.Error); ok {
		return err
	}
	return ipc.NewSyscallError(op+" "+mq.name, err)
}

func invalidArgument(op string, format string, args ...interface{}) error {
	return &ipc.Error{Kind: ipc.Os, Op: op, Errno: unix.EINVAL, Err: errors.Errorf(format, args...)}
}
