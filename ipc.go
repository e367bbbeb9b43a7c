// Copyright 2016 Aleksandr Demakin. All rights reserved.

package ipc

import (
	"github.com/nxgtw/go-hinix/internal/logging"

	"go.uber.org/zap"
)

// Destroyer is an object which can be permanently removed.
type Destroyer interface {
	Destroy() error
}

// Blocker is an object, whose operations can be blockable or not.
type Blocker interface {
	SetBlocking(bool) error
}

// SetLogger installs a logger for failures which cannot be returned to a caller,
// such as errors of a close performed by a finalizer.
// A nil logger restores the default no-op one.
func SetLogger(l *zap.Logger) {
	logging.Set(l)
}
