package coverletters

import "errors"

var (
	// ErrNotFound indicates the draft does not exist or belongs to someone else.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a draft with the same ID is already stored.
	ErrConflict = errors.New("already exists")
)
