package protobuf

import "errors"

var (
	// ErrNoProtoFiles is returned when a version has no .proto sources
	ErrNoProtoFiles = errors.New("no .proto files")

	// ErrCompile wraps protocompile failures; the wrapped error carries file and position
	ErrCompile = errors.New("proto compilation failed")

	// ErrReadSources is returned when a version directory cannot be read
	ErrReadSources = errors.New("cannot read proto sources")
)
