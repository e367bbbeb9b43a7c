// Copyright 2015 Aleksandr Demakin. All rights reserved.

// Package testutil contains helpers for the tests of the library.
package testutil

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// TestAppResult is the outcome of a program started with 'go run'.
type TestAppResult struct {
	// Output holds both stdout and stderr.
	Output string
	Err    error
}

var nameCounter atomic.Int32

// UniqueName returns a name for a named kernel object, which is unique
// for this process and for the given prefix. It starts with a '/'.
func UniqueName(prefix string) string {
	return fmt.Sprintf("/%s-%d-%d", prefix, os.Getpid(), nameCounter.Add(1))
}

// StringToBytes decodes a hex string, two symbols per byte, like '00FF10'.
func StringToBytes(input string) ([]byte, error) {
	data, err := hex.DecodeString(input)
	if err != nil {
		return nil, errors.Wrapf(err, "bad byte string %q", input)
	}
	return data, nil
}

// BytesToString encodes data as an upper-case hex string, the reverse of StringToBytes.
func BytesToString(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

// GoAvailable returns true, if the go tool can be found in PATH.
func GoAvailable() bool {
	_, err := exec.LookPath("go")
	return err == nil
}

func startTestApp(ctx context.Context, args []string) (*exec.Cmd, *bytes.Buffer, error) {
	cmd := exec.CommandContext(ctx, "go", append([]string{"run"}, args...)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Start(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to start go run")
	}
	return cmd, &out, nil
}

func waitTestApp(cmd *exec.Cmd, out *bytes.Buffer) TestAppResult {
	err := cmd.Wait()
	if err != nil {
		err = errors.Wrapf(err, "%s", strings.Join(cmd.Args, " "))
	}
	return TestAppResult{Output: out.String(), Err: err}
}

// RunTestApp runs a go program via 'go run' and waits for it to finish.
// The program is killed, if ctx is done before that.
func RunTestApp(ctx context.Context, args ...string) TestAppResult {
	cmd, out, err := startTestApp(ctx, args)
	if err != nil {
		return TestAppResult{Err: err}
	}
	return waitTestApp(cmd, out)
}

// RunTestAppAsync starts a go program via 'go run' and returns immediately.
// The result is delivered to the returned channel once the program exits.
func RunTestAppAsync(ctx context.Context, args ...string) <-chan TestAppResult {
	ch := make(chan TestAppResult, 1)
	cmd, out, err := startTestApp(ctx, args)
	if err != nil {
		ch <- TestAppResult{Err: err}
		return ch
	}
	go func() {
		ch <- waitTestApp(cmd, out)
	}()
	return ch
}

// WaitForAppResultChan waits for a value from ch with a timeout.
func WaitForAppResultChan(ch <-chan TestAppResult, d time.Duration) (TestAppResult, bool) {
	select {
	case result := <-ch:
		return result, true
	case <-time.After(d):
		return TestAppResult{}, false
	}
}

// WaitForFunc calls f asynchronously leaving it some time to finish.
// It returns true, if f completed.
func WaitForFunc(f func(), d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		f()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
