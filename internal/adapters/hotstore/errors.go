package hotstore

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound         = errors.New("record not found")
	ErrIncompleteRecord = errors.New("record missing kind, match id or id")
)
