// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

// mqrecv receives a message from a POSIX message queue and prints it.
// Text messages are printed as is, binary ones as a hex dump.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/nxgtw/go-hinix"
	"github.com/nxgtw/go-hinix/internal/config"
	"github.com/nxgtw/go-hinix/internal/logging"
	"github.com/nxgtw/go-hinix/mq"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const usage = `usage: mqrecv [flags] {name}
  receives a message from a posix message queue.
  name must start with '/'.
`

type options struct {
	wait      time.Duration
	timeout   time.Duration
	printPrio bool
	name      string
}

func parseArgs(args []string, cfg *config.Config, output io.Writer) (*options, error) {
	var opts options
	fs := flag.NewFlagSet("mqrecv", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, usage)
		fs.PrintDefaults()
	}
	fs.DurationVar(&opts.wait, "wait", cfg.OpenTimeout, "how long to wait for the queue to be created")
	fs.DurationVar(&opts.timeout, "t", 0, "receive timeout, 0 means forever")
	fs.BoolVar(&opts.printPrio, "p", false, "print message priority before the message")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("expected a queue name")
	}
	opts.name = fs.Arg(0)
	return &opts, nil
}

// openQueue opens the queue for reading. If wait is positive, it retries with
// an exponential backoff while the queue does not exist.
func openQueue(name string, wait time.Duration, log *zap.Logger) (*mq.MessageQueue, error) {
	if wait <= 0 {
		return mq.OpenFlags(name, ipc.O_READ_ONLY)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = wait
	var q *mq.MessageQueue
	op := func() error {
		var err error
		q, err = mq.OpenFlags(name, ipc.O_READ_ONLY)
		if err != nil && ipc.KindOf(err) != ipc.NotFound {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		log.Debug("queue is not there yet", zap.String("queue", name), zap.Duration("retry_in", next))
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return q, nil
}

func receive(opts *options, output io.Writer, log *zap.Logger) error {
	q, err := openQueue(opts.name, opts.wait, log)
	if err != nil {
		return errors.Wrap(err, "failed to open the queue")
	}
	defer q.Close()
	var data []byte
	var prio uint32
	if opts.timeout > 0 {
		buff := make([]byte, q.MaxMessageSize())
		var n int
		n, prio, err = q.ReceiveTimeout(buff, opts.timeout)
		data = buff[:n]
	} else {
		data, prio, err = q.ReceiveBytes()
	}
	if err != nil {
		return errors.Wrap(err, "failed to receive")
	}
	log.Debug("message received",
		zap.String("queue", opts.name),
		zap.Int("size", len(data)),
		zap.Uint32("priority", prio))
	if opts.printPrio {
		fmt.Fprintf(output, "%d: ", prio)
	}
	if utf8.Valid(data) {
		_, err = fmt.Fprintln(output, string(data))
	} else {
		_, err = fmt.Fprint(output, hex.Dump(data))
	}
	return err
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Development: cfg.LogDev})
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	defer log.Sync()
	ipc.SetLogger(log)
	opts, err := parseArgs(args, cfg, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if err = receive(opts, stdout, log); err != nil {
		log.Error("mqrecv failed", zap.String("queue", opts.name), zap.Error(err))
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
