package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. History stores do not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: record already exists")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyEvaluated is returned when marking a feedback record
	// evaluated a second time. Evaluation fields are written exactly once.
	ErrAlreadyEvaluated = errors.New("feedback record already evaluated")
)
