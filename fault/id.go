package fault

import "errors"

// Predefined errors for record id handling.
var (
	// ErrInvalidId indicates that a value could not be used as a record id.
	// Ids are positive 64 bit integers.
	ErrInvalidId = errors.New("invalid id")

	// ErrIdIsNil indicates that a record carried no id where one is required.
	ErrIdIsNil = errors.New("id is nil")
)
