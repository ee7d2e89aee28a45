package sapling

import "errors"

var (
	// ErrResourceNotFound is returned when a resource provider has no file
	// with the requested name.
	ErrResourceNotFound = errors.New("sapling: resource not found")

	// ErrGridMismatch is returned when grid tile sizes and gaps disagree on
	// the number of rows or columns.
	ErrGridMismatch = errors.New("sapling: grid sizes and gaps do not match")
)
