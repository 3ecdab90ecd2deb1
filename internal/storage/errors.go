package storage

import "errors"

// Storage errors shared by all checkpoint store implementations.
var (
	// ErrNotFound is returned when no checkpoint exists for the pool.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when saving a checkpoint for a
	// (pool, period) that already exists. Checkpoints are append-only;
	// a finished period is never rewritten.
	ErrDuplicateKey = errors.New("duplicate key: checkpoints are append-only")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
