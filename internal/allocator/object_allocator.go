// Copyright 2015 Aleksandr Demakin. All rights reserved.

// Package allocator gives raw access to the memory of go objects,
// which are passed to the kernel by pointer.
package allocator

import (
	"runtime"
	"unsafe"
)

// ByteSliceData returns a pointer to the data of the given byte slice.
// It returns nil for an empty slice, as the kernel never touches the buffer then.
func ByteSliceData(slice []byte) unsafe.Pointer {
	if cap(slice) == 0 {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(slice))
}

// Uint64Data returns a byte slice, which uses the memory of *v.
// Its length is 8, and its contents are in the native byte order.
func Uint64Data(v *uint64) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// Use prevents the object from being collected until this call.
func Use(p unsafe.Pointer) {
	runtime.KeepAlive(p)
}
