package service

import (
	"errors"
)

// Sentinel kinds for service errors, matchable with errors.Is.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrNoBallPosition = errors.New("no ball position sample for match")
	ErrNoTrackingData = errors.New("no tracking samples for team")
)
