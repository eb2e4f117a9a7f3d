package config

import "errors"

var (
	// ErrUnsupportedFormat is returned for merge files that are not YAML or TOML
	ErrUnsupportedFormat = errors.New("unsupported config file format")

	// ErrInvalidMergeFile wraps validation failures of a merge file
	ErrInvalidMergeFile = errors.New("invalid merge file")
)
