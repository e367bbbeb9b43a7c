// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package config loads the settings of the command line tools from the environment.
package config

import (
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Prefix is the environment variable prefix, i.e. HINIX_MQ_MAX_MESSAGES.
const Prefix = "HINIX"

// Config holds all tool configuration.
type Config struct {
	// queue geometry used when a tool creates a queue.
	MaxMessages    int    `envconfig:"MQ_MAX_MESSAGES" default:"4"`
	MaxMessageSize int    `envconfig:"MQ_MAX_MESSAGE_SIZE" default:"512"`
	Perm           uint32 `envconfig:"MQ_PERM" default:"0660"`
	// how long mqrecv waits for a queue to appear. 0 means no waiting.
	OpenTimeout time.Duration `envconfig:"OPEN_RETRY_TIMEOUT" default:"0s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogDev   bool   `envconfig:"LOG_DEV" default:"false"`
}

// FileMode returns queue permissions as os.FileMode.
func (c *Config) FileMode() os.FileMode {
	return os.FileMode(c.Perm) & os.ModePerm
}

// Validate checks the values, which can't be checked by envconfig.
func (c *Config) Validate() error {
	if c.MaxMessages <= 0 || c.MaxMessageSize <= 0 {
		return errors.Errorf("invalid queue geometry %dx%d", c.MaxMessages, c.MaxMessageSize)
	}
	if c.OpenTimeout < 0 {
		return errors.Errorf("negative open timeout %v", c.OpenTimeout)
	}
	return nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		MaxMessages:    4,
		MaxMessageSize: 512,
		Perm:           0660,
		LogLevel:       "info",
	}
}
