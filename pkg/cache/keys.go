// Package cache keeps merged schemas in an expiring LRU keyed by a fingerprint of the
// merge inputs.
//
// Fingerprint format version: v2
// Format: v2:{sha256 hex}
//
// The hash covers, in this order:
//   - each version in input order (the first version is the baseline, so order
//     matters): version + \0, then its files sorted by path as path + \0 + content + \0
//   - each import path tree in the same layout, keyed by its directory, after a \2 marker
//   - excluded messages and excluded fields, each sorted
//   - field name mappings sorted by key as key + \0 + value + \0
//
// Worker count is not hashed: merge output does not depend on it.
//
// CHANGING THE HASH LAYOUT REQUIRES BUMPING THE FORMAT VERSION
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"sort"

	"github.com/platinummonkey/protomerge/pkg/merger"
)

const keyFormatVersion = "v2"

// VersionSources holds one version's .proto sources keyed by import path
type VersionSources struct {
	Version string
	Sources map[string]string
}

// Fingerprint derives the cache key of a merge run. imports holds the sources found
// under the import paths, keyed by directory; edits there change the key too.
func Fingerprint(versions []VersionSources, imports []VersionSources, opts merger.Options) string {
	hasher := sha256.New()

	for _, v := range versions {
		writeSources(hasher, v)
	}
	hasher.Write([]byte{2})
	for _, v := range imports {
		writeSources(hasher, v)
	}

	writeSorted(hasher, opts.ExcludedMessages)
	writeSorted(hasher, opts.ExcludedFields)

	keys := make([]string, 0, len(opts.FieldNameMappings))
	for k := range opts.FieldNameMappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeField(hasher, k)
		writeField(hasher, opts.FieldNameMappings[k])
	}

	return keyFormatVersion + ":" + hex.EncodeToString(hasher.Sum(nil))
}

func writeSources(h hash.Hash, v VersionSources) {
	writeField(h, v.Version)

	paths := make([]string, 0, len(v.Sources))
	for path := range v.Sources {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		writeField(h, path)
		writeField(h, v.Sources[path])
	}
	// Terminator keeps file sets of adjacent trees apart
	h.Write([]byte{1})
}

func writeField(h hash.Hash, s string) {
	h.Write([]byte(s))
	h.Write([]byte{0}) // Separator
}

func writeSorted(h hash.Hash, values []string) {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	for _, v := range sorted {
		writeField(h, v)
	}
	h.Write([]byte{1})
}
