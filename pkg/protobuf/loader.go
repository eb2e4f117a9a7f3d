package protobuf

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/platinummonkey/protomerge/pkg/observability"
	"github.com/platinummonkey/protomerge/pkg/schema"
)

// Loader compiles the .proto sources of a version into a schema.VersionSchema
type Loader struct {
	importPaths []string
	logger      *observability.Logger
	metrics     *observability.MergeMetrics
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithImportPaths adds directories searched for imports that are not part of the
// version's own sources
func WithImportPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.importPaths = append(l.importPaths, paths...)
	}
}

func WithLogger(logger *observability.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithMetrics(metrics *observability.MergeMetrics) LoaderOption {
	return func(l *Loader) {
		l.metrics = metrics
	}
}

// NewLoader creates a loader
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{logger: observability.NewNopLogger()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadDir reads every .proto file below dir and compiles them as one version
func (l *Loader) LoadDir(ctx context.Context, version, dir string) (*schema.VersionSchema, error) {
	sources, err := ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("version %s: %w", version, err)
	}
	return l.LoadFiles(ctx, version, sources)
}

// LoadFiles compiles in-memory sources keyed by import path (e.g. "shop/order.proto")
func (l *Loader) LoadFiles(ctx context.Context, version string, sources map[string]string) (*schema.VersionSchema, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("version %s: %w", version, ErrNoProtoFiles)
	}
	start := time.Now()

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	resolver := protocompile.CompositeResolver{
		&protocompile.SourceResolver{Accessor: protocompile.SourceAccessorFromMap(sources)},
	}
	if len(l.importPaths) > 0 {
		resolver = append(resolver, &protocompile.SourceResolver{ImportPaths: l.importPaths})
	}

	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(resolver),
	}
	files, err := compiler.Compile(ctx, names...)
	if err != nil {
		return nil, fmt.Errorf("%w: version %s: %w", ErrCompile, version, err)
	}

	descriptors := make([]protoreflect.FileDescriptor, 0, len(files))
	for _, f := range files {
		descriptors = append(descriptors, f)
	}

	vs, err := buildVersion(version, descriptors)
	if err != nil {
		return nil, err
	}

	l.metrics.ObserveLoad(time.Since(start))
	l.logger.WithFields(map[string]interface{}{
		"version":  version,
		"files":    len(names),
		"messages": len(vs.Messages()),
		"enums":    len(vs.Enums()),
		"syntax":   vs.Syntax().String(),
	}).Debug("version loaded")

	return vs, nil
}

func buildVersion(version string, files []protoreflect.FileDescriptor) (*schema.VersionSchema, error) {
	syntax := schema.SyntaxProto3
	for _, fd := range files {
		if isWellKnown(fd) {
			continue
		}
		if fd.Syntax() != protoreflect.Proto3 {
			syntax = schema.SyntaxProto2
		}
	}

	b := schema.NewVersionSchemaBuilder(version, syntax)
	for _, fd := range files {
		if isWellKnown(fd) {
			continue
		}
		declared := fileSyntax(fd)
		messages := fd.Messages()
		for i := 0; i < messages.Len(); i++ {
			b.AddMessage(convertMessage(messages.Get(i), declared, fd.Path()))
		}
		enums := fd.Enums()
		for i := 0; i < enums.Len(); i++ {
			b.AddEnum(convertEnum(enums.Get(i)))
		}
	}
	return b.Build()
}

// ReadDir collects the .proto files below dir keyed by their slash-separated path
// relative to dir. Hidden directories are skipped.
func ReadDir(dir string) (map[string]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadSources, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrReadSources, dir)
	}

	sources := make(map[string]string)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".proto" {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		sources[filepath.ToSlash(rel)] = string(content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadSources, err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoProtoFiles)
	}
	return sources, nil
}
