// Copyright 2016 Aleksandr Demakin. All rights reserved.

package common

import (
	"os"

	"github.com/nxgtw/go-hinix"

	"github.com/pkg/errors"
)

// AccessModeToOsMode converts library's access flags into
// os flags, which can be passed to system calls.
// No access flags means read-write access.
func AccessModeToOsMode(mode int) (int, error) {
	if mode&ipc.O_READ_ONLY != 0 {
		if mode&(ipc.O_WRITE_ONLY|ipc.O_READWRITE) != 0 {
			return 0, errors.New("incompatible open flags")
		}
		return os.O_RDONLY, nil
	}
	if mode&ipc.O_WRITE_ONLY != 0 {
		if mode&ipc.O_READWRITE != 0 {
			return 0, errors.New("incompatible open flags")
		}
		return os.O_WRONLY, nil
	}
	return os.O_RDWR, nil
}

// CreateModeToOsMode converts library's create flags into
// os flags, which can be passed to system calls.
// No create flags means O_OPEN_OR_CREATE.
func CreateModeToOsMode(mode int) (int, error) {
	if mode&ipc.O_OPEN_OR_CREATE != 0 {
		if mode&(ipc.O_CREATE_ONLY|ipc.O_OPEN_ONLY) != 0 {
			return 0, errors.New("incompatible open flags")
		}
		return os.O_CREATE, nil
	}
	if mode&ipc.O_CREATE_ONLY != 0 {
		if mode&ipc.O_OPEN_ONLY != 0 {
			return 0, errors.New("incompatible open flags")
		}
		return os.O_CREATE | os.O_EXCL, nil
	}
	if mode&ipc.O_OPEN_ONLY != 0 {
		return 0, nil
	}
	return os.O_CREATE, nil
}
