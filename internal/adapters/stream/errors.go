package stream

import "errors"

// Sentinel kinds for stream errors.
var (
	ErrClosed           = errors.New("stream closed")
	ErrUnknownPartition = errors.New("unknown partition")
)
