package delivery

import "errors"

// Sentinel kinds for delivery errors.
var (
	ErrUnknownConnection = errors.New("unknown connection")
)
