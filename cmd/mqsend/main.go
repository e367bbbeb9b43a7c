// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

// mqsend sends a message to a POSIX message queue.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/nxgtw/go-hinix"
	"github.com/nxgtw/go-hinix/internal/config"
	"github.com/nxgtw/go-hinix/internal/logging"
	"github.com/nxgtw/go-hinix/mq"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const usage = `usage: mqsend [flags] {name} {message}
  sends a message to a posix message queue.
  name must start with '/'.
  with -x the message is a hex string, like '00FF10', and is sent as raw bytes.
  queue geometry and permissions default to HINIX_MQ_* environment variables.
`

type options struct {
	create         bool
	maxMessages    int
	maxMessageSize int
	prio           uint
	hex            bool
	name           string
	msg            []byte
}

func parseArgs(args []string, cfg *config.Config, output io.Writer) (*options, error) {
	var opts options
	fs := flag.NewFlagSet("mqsend", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, usage)
		fs.PrintDefaults()
	}
	fs.BoolVar(&opts.create, "c", false, "create the queue, if it does not exist")
	fs.BoolVar(&opts.create, "create", false, "same as -c")
	fs.IntVar(&opts.maxMessages, "n", cfg.MaxMessages, "the number of messages the queue can hold, if created")
	fs.IntVar(&opts.maxMessages, "nmsg", cfg.MaxMessages, "same as -n")
	fs.IntVar(&opts.maxMessageSize, "s", cfg.MaxMessageSize, "the maximum size of each message, if created")
	fs.IntVar(&opts.maxMessageSize, "maxsz", cfg.MaxMessageSize, "same as -s")
	fs.UintVar(&opts.prio, "p", mq.DefaultPriority, "message priority")
	fs.UintVar(&opts.prio, "prio", mq.DefaultPriority, "same as -p")
	fs.BoolVar(&opts.hex, "x", false, "the message is hex encoded binary data")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return nil, errors.New("expected a queue name and a message")
	}
	if opts.prio > mq.MaxPriority {
		err := errors.Errorf("priority %d is out of range [0, %d]", opts.prio, mq.MaxPriority)
		fmt.Fprintln(output, err)
		return nil, err
	}
	opts.name, opts.msg = fs.Arg(0), []byte(fs.Arg(1))
	if opts.hex {
		data, err := hex.DecodeString(fs.Arg(1))
		if err != nil {
			err = errors.Wrap(err, "invalid hex message")
			fmt.Fprintln(output, err)
			return nil, err
		}
		opts.msg = data
	}
	return &opts, nil
}

func send(opts *options, cfg *config.Config, log *zap.Logger) error {
	var q *mq.MessageQueue
	var err error
	if opts.create {
		q, err = mq.Create(opts.name, ipc.O_WRITE_ONLY|ipc.O_OPEN_OR_CREATE, cfg.FileMode(), opts.maxMessages, opts.maxMessageSize)
	} else {
		q, err = mq.OpenFlags(opts.name, ipc.O_WRITE_ONLY)
	}
	if err != nil {
		return errors.Wrap(err, "failed to open the queue")
	}
	defer q.Close()
	if err = q.Send(opts.msg, uint32(opts.prio)); err != nil {
		return errors.Wrap(err, "failed to send")
	}
	log.Debug("message sent",
		zap.String("queue", opts.name),
		zap.Int("size", len(opts.msg)),
		zap.Uint("priority", opts.prio))
	return nil
}

func run(args []string, stderr io.Writer) int {
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
	if err = send(opts, cfg, log); err != nil {
		log.Error("mqsend failed", zap.String("queue", opts.name), zap.Error(err))
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}
