package schema

import "errors"

var (
	// ErrEmptyVersion is returned when a version schema has no identifier
	ErrEmptyVersion = errors.New("version identifier is empty")

	// ErrDuplicateMessage is returned when a message name is added twice to one version
	ErrDuplicateMessage = errors.New("duplicate message")

	// ErrDuplicateEnum is returned when an enum name is added twice to one version
	ErrDuplicateEnum = errors.New("duplicate enum")

	// ErrInvalidMessage is returned when a message cannot be indexed
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidEnum is returned when an enum cannot be indexed
	ErrInvalidEnum = errors.New("invalid enum")
)
