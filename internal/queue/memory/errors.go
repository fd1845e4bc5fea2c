package memory

import "errors"

// ErrQueueClosed is returned when publishing to a closed transport.
var ErrQueueClosed = errors.New("memory transport is closed")
