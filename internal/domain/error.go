package domain

import (
	"errors"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrLockUnavailable    = errors.New("lock unavailable")

	// ErrCorrelationUnavailable means no token recovery source produced a key
	// for an inbound callback.
	ErrCorrelationUnavailable = errors.New("no correlation token recoverable from callback")
)
