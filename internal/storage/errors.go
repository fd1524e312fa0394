package storage

import "errors"

var (
	// ErrStorageUnavailable means the collection could not be opened at all.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrStorageRead        = errors.New("storage read error")
	ErrStorageWrite       = errors.New("storage write error")
	ErrDuplicateKey       = errors.New("duplicate key")
)
