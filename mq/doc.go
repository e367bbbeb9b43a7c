// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package mq implements interprocess queues logic.
// It provides access to posix message queues on linux.
// A queue is identified by a name like "/queue": a single leading slash
// followed by a name without other slashes.
// Messages are delivered in descending priority order, FIFO within a priority.
package mq
