package storage

import "errors"

var (
	// ErrNotFound indicates that the targeted record id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrTagExists indicates that a tag with the same name is already
	// registered. Callers treat this as a recoverable conflict.
	ErrTagExists = errors.New("tag already exists")
)
