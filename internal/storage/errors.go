package storage

import "errors"

// ErrNotFound is returned when the requested wedding or its parent record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a save would violate slug uniqueness.
var ErrConflict = errors.New("conflict")
