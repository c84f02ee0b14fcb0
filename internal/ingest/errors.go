package ingest

import "errors"

// Sentinel kinds for producer errors.
var (
	ErrDuplicate = errors.New("duplicate event id")
)
