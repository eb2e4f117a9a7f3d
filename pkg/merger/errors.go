package merger

import "errors"

var (
	// ErrNoVersions is returned when Merge is called with an empty version list
	ErrNoVersions = errors.New("no versions to merge")

	// ErrInvalidVersion is returned for a nil version schema or one without an identifier
	ErrInvalidVersion = errors.New("invalid version schema")

	// ErrDuplicateVersion is returned when two inputs share a version identifier
	ErrDuplicateVersion = errors.New("duplicate version")

	// ErrInternal wraps a recovered panic from a merge task
	ErrInternal = errors.New("internal merge error")
)
