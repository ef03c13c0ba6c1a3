package storage

import "errors"

// Common client storage errors
var (
	// ErrTokenNotFound indicates that no auth token record exists
	ErrTokenNotFound = errors.New("auth token not found")

	// ErrOperationNotFound indicates that queue operation was not found
	ErrOperationNotFound = errors.New("operation not found")

	// ErrOperationConflict indicates that a status transition lost a
	// compare-and-swap race (another drainer already processed the operation)
	ErrOperationConflict = errors.New("operation status conflict")

	// ErrEntryNotFound indicates that cache entry was not found
	ErrEntryNotFound = errors.New("cache entry not found")

	// ErrTierNotFound indicates that cache tier does not exist
	ErrTierNotFound = errors.New("cache tier not found")

	// ErrProblemNotFound indicates that problem is not in the local projection
	ErrProblemNotFound = errors.New("problem not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
