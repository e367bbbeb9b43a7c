// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package fd implements ownership of kernel descriptors.
// An Owner closes its descriptor exactly once; sharing a kernel object
// between several owners is done with Duplicate, never by sharing an Owner
// under a lock.
// Closing an owner does not interrupt its blocked calls: the descriptor stays
// open until they return, so its number is never reused under a running syscall.
package fd
