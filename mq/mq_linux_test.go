// Copyright 2015 Aleksandr Demakin. All rights reserved.

//go:build linux

package mq

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/nxgtw/go-hinix"
	"github.com/nxgtw/go-hinix/internal/test"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

const (
	testMqPrefix   = "go-hinix.mq"
	mqSendProgPath = "../cmd/mqsend"
)

func skipIfNoMq(t *testing.T, err error) {
	if errors.Is(err, unix.ENOSYS) {
		t.Skip("posix message queues are not supported by the kernel")
	}
}

// newTestMq creates a fresh queue, which is removed when the test finishes.
func newTestMq(t *testing.T, flag int, maxMessages, maxMessageSize int) *MessageQueue {
	name := testutil.UniqueName(testMqPrefix)
	mq, err := Create(name, flag|ipc.O_CREATE_ONLY, 0666, maxMessages, maxMessageSize)
	skipIfNoMq(t, err)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		mq.Close()
		Unlink(name)
	})
	return mq
}

func TestCreateOpenMq(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, 0, 8, 512)
	a.Equal(8, mq.MaxMessages())
	a.Equal(512, mq.MaxMessageSize())
	mq2, err := Open(mq.Name())
	if !a.NoError(err) {
		return
	}
	defer mq2.Close()
	a.Equal(mq.MaxMessages(), mq2.MaxMessages())
	a.Equal(mq.MaxMessageSize(), mq2.MaxMessageSize())
}

func TestCreateMqExcl(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, 0, 8, 512)
	_, err := Create(mq.Name(), ipc.O_CREATE_ONLY, 0666, 8, 512)
	a.ErrorIs(err, ipc.ErrAlreadyExists)
	// open-or-create reuses the queue and reports its real geometry.
	mq2, err := Create(mq.Name(), ipc.O_OPEN_OR_CREATE, 0666, 2, 128)
	if !a.NoError(err) {
		return
	}
	defer mq2.Close()
	a.Equal(8, mq2.MaxMessages())
	a.Equal(512, mq2.MaxMessageSize())
}

func TestCreateMqInvalidArgs(t *testing.T) {
	a := assert.New(t)
	name := testutil.UniqueName(testMqPrefix)
	_, err := Create(name, ipc.O_CREATE_ONLY, 0777, 4, 128)
	a.Equal(ipc.Os, ipc.KindOf(err))
	_, err = Create(name, ipc.O_CREATE_ONLY, 0666, 0, 128)
	a.Equal(ipc.Os, ipc.KindOf(err))
	_, err = Create(name, ipc.O_OPEN_ONLY, 0666, 4, 128)
	a.Equal(ipc.Os, ipc.KindOf(err))
	_, err = Create(name, ipc.O_CREATE_ONLY|ipc.O_OPEN_OR_CREATE, 0666, 4, 128)
	a.Equal(ipc.Os, ipc.KindOf(err))
	_, err = Create("no-slash", ipc.O_CREATE_ONLY, 0666, 4, 128)
	a.ErrorIs(err, ipc.ErrInvalidName)
	_, err = Open("no-slash")
	a.ErrorIs(err, ipc.ErrInvalidName)
	a.ErrorIs(Unlink("/a/b"), ipc.ErrInvalidName)
	// nothing has been created.
	_, err = Open(name)
	skipIfNoMq(t, err)
	a.ErrorIs(err, ipc.ErrNotFound)
}

func TestOpenMissingMq(t *testing.T) {
	a := assert.New(t)
	name := testutil.UniqueName(testMqPrefix)
	_, err := Open(name)
	skipIfNoMq(t, err)
	a.ErrorIs(err, ipc.ErrNotFound)
	a.NoError(Unlink(name))
}

func TestMqFullNonBlocking(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, ipc.O_NONBLOCK, 4, 512)
	for i := 0; i < 4; i++ {
		if !a.NoError(mq.Send([]byte{byte(i)}, 0)) {
			return
		}
	}
	err := mq.Send([]byte{4}, 0)
	a.ErrorIs(err, ipc.ErrWouldBlock)
	a.True(ipc.IsTemporary(err))
	buf := make([]byte, mq.MaxMessageSize())
	n, _, err := mq.Receive(buf)
	a.NoError(err)
	a.Equal(1, n)
	a.Equal(byte(0), buf[0])
	a.NoError(mq.Send([]byte{4}, 0))
}

func TestMqEmptyNonBlocking(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, ipc.O_NONBLOCK, 4, 128)
	buf := make([]byte, 128)
	n, prio, err := mq.Receive(buf)
	a.ErrorIs(err, ipc.ErrWouldBlock)
	a.Zero(n)
	a.Zero(prio)
}

func TestMqPriorityOrder(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, ipc.O_NONBLOCK, 8, 128)
	for _, prio := range []uint32{1, 5, 3} {
		if !a.NoError(mq.Send([]byte{byte(prio)}, prio)) {
			return
		}
	}
	a.NoError(mq.Send([]byte("first"), 2))
	a.NoError(mq.Send([]byte("second"), 2))
	buf := make([]byte, 128)
	for _, expected := range []uint32{5, 3} {
		n, prio, err := mq.Receive(buf)
		if !a.NoError(err) {
			return
		}
		a.Equal(expected, prio)
		a.Equal([]byte{byte(expected)}, buf[:n])
	}
	for _, expected := range []string{"first", "second"} {
		n, prio, err := mq.Receive(buf)
		if !a.NoError(err) {
			return
		}
		a.Equal(uint32(2), prio)
		a.Equal(expected, string(buf[:n]))
	}
	n, prio, err := mq.Receive(buf)
	a.NoError(err)
	a.Equal(uint32(1), prio)
	a.Equal(1, n)
}

func TestMqPrioMany(t *testing.T) {
	prios := [...]int{8, 4, 7, 1, 0, 15, 2, 4}
	a := assert.New(t)
	mq := newTestMq(t, ipc.O_NONBLOCK, 8, 8)
	for _, prio := range prios {
		message := make([]byte, 8)
		message[0] = byte(prio)
		if !a.NoError(mq.Send(message, uint32(prio))) {
			return
		}
	}
	sort.Ints(prios[:])
	for i := len(prios) - 1; i >= 0; i-- {
		message := make([]byte, 8)
		_, prio, err := mq.Receive(message)
		if !a.NoError(err) {
			continue
		}
		a.Equal(uint32(prios[i]), prio)
		a.Equal(byte(prio), message[0])
	}
}

func TestMqInvalidPriority(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, ipc.O_NONBLOCK, 4, 128)
	a.NoError(mq.Send([]byte{1}, MaxPriority))
	err := mq.Send([]byte{1}, MaxPriority+1)
	a.Equal(ipc.Os, ipc.KindOf(err))
	a.ErrorIs(err, &ipc.Error{Kind: ipc.Os, Errno: unix.EINVAL})
}

func TestMqSendTooLarge(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, ipc.O_NONBLOCK, 4, 512)
	a.NoError(mq.Send(make([]byte, 512), 0))
	err := mq.Send(make([]byte, 513), 0)
	a.ErrorIs(err, ipc.ErrMessageTooLarge)
	attrs, err := mq.Attributes()
	a.NoError(err)
	a.Equal(1, attrs.CurrentMessages)
}

func TestMqReceiveBufferTooSmall(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, ipc.O_NONBLOCK, 4, 512)
	a.NoError(mq.Send([]byte{1, 2, 3}, 0))
	_, _, err := mq.Receive(make([]byte, 511))
	a.ErrorIs(err, ipc.ErrBufferTooSmall)
	// the message is still there.
	n, _, err := mq.Receive(make([]byte, 512))
	a.NoError(err)
	a.Equal(3, n)
}

func TestMqReceiveBytes(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, ipc.O_NONBLOCK, 4, 512)
	a.NoError(mq.Send([]byte("hello"), 7))
	a.NoError(mq.Send([]byte("bye"), 1))
	data, prio, err := mq.ReceiveBytes()
	a.NoError(err)
	a.Equal("hello", string(data))
	a.Equal(uint32(7), prio)
	data, prio, err = mq.ReceiveBytes()
	a.NoError(err)
	a.Equal("bye", string(data))
	a.Equal(uint32(1), prio)
	_, _, err = mq.ReceiveBytes()
	a.ErrorIs(err, ipc.ErrWouldBlock)
}

func TestMqGetAttrs(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, 0, 5, 121)
	a.NoError(mq.Send(make([]byte, 1), 0))
	attrs, err := mq.Attributes()
	a.NoError(err)
	a.Equal(5, attrs.MaxMessages)
	a.Equal(121, attrs.MaxMessageSize)
	a.Equal(1, attrs.CurrentMessages)
	a.Zero(attrs.Flags & unix.O_NONBLOCK)
}

func TestMqSetNonblocking(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, 0, 4, 128)
	a.NoError(mq.SetNonblocking(true))
	attrs, err := mq.Attributes()
	a.NoError(err)
	a.NotZero(attrs.Flags & unix.O_NONBLOCK)
	_, _, err = mq.Receive(make([]byte, 128))
	a.ErrorIs(err, ipc.ErrWouldBlock)
	a.NoError(mq.SetBlocking(true))
	attrs, err = mq.Attributes()
	a.NoError(err)
	a.Zero(attrs.Flags & unix.O_NONBLOCK)
}

func TestMqReceiveTimeout(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, 0, 4, 128)
	start := time.Now()
	_, _, err := mq.ReceiveTimeout(make([]byte, 128), time.Millisecond*50)
	a.ErrorIs(err, ipc.ErrTimeout)
	a.True(ipc.IsTemporary(err))
	a.True(time.Since(start) >= time.Millisecond*40)
}

func TestMqSendTimeout(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, 0, 1, 128)
	a.NoError(mq.SendTimeout([]byte{1}, 0, time.Millisecond*50))
	err := mq.SendTimeout([]byte{2}, 0, time.Millisecond*50)
	a.ErrorIs(err, ipc.ErrTimeout)
}

func TestMqBlockingReceiveWakesUp(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, 0, 4, 128)
	sender, err := Open(mq.Name())
	if !a.NoError(err) {
		return
	}
	go func() {
		defer sender.Close()
		time.Sleep(time.Millisecond * 50)
		sender.Send([]byte("wake up"), 3)
	}()
	buf := make([]byte, 128)
	var n int
	var prio uint32
	success := testutil.WaitForFunc(func() {
		n, prio, err = mq.Receive(buf)
	}, time.Second*2)
	if !a.True(success) {
		return
	}
	a.NoError(err)
	a.Equal("wake up", string(buf[:n]))
	a.Equal(uint32(3), prio)
}

func TestMqUseAfterClose(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, ipc.O_NONBLOCK, 4, 128)
	a.False(mq.IsClosed())
	a.NoError(mq.Close())
	a.True(mq.IsClosed())
	a.Equal(-1, mq.Fd())
	a.ErrorIs(mq.Close(), ipc.ErrNotFound)
	a.ErrorIs(mq.Send([]byte{1}, 0), ipc.ErrNotFound)
	_, _, err := mq.Receive(make([]byte, 128))
	a.ErrorIs(err, ipc.ErrNotFound)
	// a closed queue reports NotFound before checking sizes.
	a.ErrorIs(mq.Send(make([]byte, 200), 0), ipc.ErrNotFound)
	_, _, err = mq.Receive(make([]byte, 1))
	a.ErrorIs(err, ipc.ErrNotFound)
	_, _, err = mq.ReceiveBytes()
	a.ErrorIs(err, ipc.ErrNotFound)
	_, err = mq.Attributes()
	a.ErrorIs(err, ipc.ErrNotFound)
	a.ErrorIs(mq.SetNonblocking(false), ipc.ErrNotFound)
	_, err = mq.Duplicate()
	a.ErrorIs(err, ipc.ErrNotFound)
	// closing does not remove the queue.
	mq2, err := Open(mq.Name())
	if a.NoError(err) {
		a.NoError(mq2.Close())
	}
}

func TestMqDestroy(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, 0, 4, 128)
	a.NoError(mq.Destroy())
	_, err := Open(mq.Name())
	a.ErrorIs(err, ipc.ErrNotFound)
	a.NoError(Unlink(mq.Name()))
}

func TestMqDuplicate(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, ipc.O_NONBLOCK, 4, 128)
	dup, err := mq.Duplicate()
	if !a.NoError(err) {
		return
	}
	defer dup.Close()
	a.Equal(mq.Name(), dup.Name())
	a.Equal(mq.MaxMessageSize(), dup.MaxMessageSize())
	a.NotEqual(mq.Fd(), dup.Fd())
	a.NoError(mq.Send([]byte{42}, 0))
	a.NoError(mq.Close())
	buf := make([]byte, 128)
	n, _, err := dup.Receive(buf)
	a.NoError(err)
	a.Equal([]byte{42}, buf[:n])
}

func TestMqOpenReadOnly(t *testing.T) {
	a := assert.New(t)
	mq := newTestMq(t, 0, 4, 128)
	ro, err := OpenFlags(mq.Name(), ipc.O_READ_ONLY|ipc.O_NONBLOCK)
	if !a.NoError(err) {
		return
	}
	defer ro.Close()
	err = ro.Send([]byte{1}, 0)
	a.ErrorIs(err, &ipc.Error{Kind: ipc.Os, Errno: unix.EBADF})
	_, _, err = ro.Receive(make([]byte, 128))
	a.ErrorIs(err, ipc.ErrWouldBlock)
	_, err = OpenFlags(mq.Name(), ipc.O_READ_ONLY|ipc.O_WRITE_ONLY)
	a.Equal(ipc.Os, ipc.KindOf(err))
}

func TestMqReceiveFromAnotherProcess(t *testing.T) {
	if testing.Short() || !testutil.GoAvailable() {
		t.Skip("requires the go tool")
	}
	a := assert.New(t)
	mq := newTestMq(t, 0, 4, 512)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute*2)
	defer cancel()
	result := testutil.RunTestApp(ctx, mqSendProgPath, "-p", "9", mq.Name(), "from another process")
	if !a.NoError(result.Err) {
		t.Logf("program output is %q", result.Output)
		return
	}
	buf := make([]byte, 512)
	n, prio, err := mq.ReceiveTimeout(buf, time.Second)
	a.NoError(err)
	a.Equal("from another process", string(buf[:n]))
	a.Equal(uint32(9), prio)
}

func TestMqBlockingReceiveFromAnotherProcess(t *testing.T) {
	if testing.Short() || !testutil.GoAvailable() {
		t.Skip("requires the go tool")
	}
	const payload = "00FF10AB7F"
	a := assert.New(t)
	mq := newTestMq(t, 0, 4, 64)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute*2)
	defer cancel()
	var n int
	var prio uint32
	var err error
	buf := make([]byte, 64)
	received := make(chan struct{})
	go func() {
		defer close(received)
		n, prio, err = mq.Receive(buf)
	}()
	resultChan := testutil.RunTestAppAsync(ctx, mqSendProgPath, "-x", "-p", "2", mq.Name(), payload)
	result, ok := testutil.WaitForAppResultChan(resultChan, time.Minute*2)
	if !a.True(ok, "mqsend did not finish") {
		return
	}
	if !a.NoError(result.Err) {
		t.Logf("program output is %q", result.Output)
		// unblock the receiver.
		mq.Send(nil, 0)
		<-received
		return
	}
	select {
	case <-received:
	case <-time.After(time.Second * 5):
		t.Fatal("receive was not woken by another process")
	}
	a.NoError(err)
	a.Equal(uint32(2), prio)
	a.Equal(payload, testutil.BytesToString(buf[:n]))
}
