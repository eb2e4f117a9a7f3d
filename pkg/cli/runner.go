package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/protomerge/pkg/cache"
	"github.com/platinummonkey/protomerge/pkg/config"
	"github.com/platinummonkey/protomerge/pkg/merger"
	"github.com/platinummonkey/protomerge/pkg/observability"
	"github.com/platinummonkey/protomerge/pkg/protobuf"
	"github.com/platinummonkey/protomerge/pkg/schema"
)

// runner holds the resources of one command invocation
type runner struct {
	plan        *config.MergeFile
	logger      *observability.Logger
	metrics     *observability.MergeMetrics
	otelMetrics *observability.OTelMetrics
	cache       *cache.MergeCache
	loader      *protobuf.Loader
	merger      *merger.Merger
	shutdown    *observability.ShutdownManager
}

// newRunner wires configuration, observability, the loader, the merger and the cache.
// Callers must call close when done.
func newRunner(ctx context.Context, cmd *cobra.Command, flags *mergeFlags) (*runner, error) {
	var envFiles []string
	if flags.envFile != "" {
		envFiles = append(envFiles, flags.envFile)
	}
	cfg, err := config.LoadConfig(envFiles...)
	if err != nil {
		return nil, err
	}

	plan, err := flags.plan(cmd, cfg)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, cmd.ErrOrStderr())
	shutdown := observability.NewShutdownManager(logger, 10*time.Second)

	providers, err := observability.InitOTel(ctx, cfg.Observability.OTelConfig(), logger)
	if err != nil {
		return nil, err
	}
	if providers != nil {
		shutdown.Register(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	otelMetrics, err := observability.NewOTelMetrics()
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMergeMetrics(prometheus.NewRegistry())
	metricsFile := flags.metricsFile
	if metricsFile == "" {
		metricsFile = cfg.Observability.MetricsFile
	}
	if metricsFile != "" {
		shutdown.Register(func(context.Context) error {
			return metrics.WriteTextfile(metricsFile)
		})
	}

	var mergeCache *cache.MergeCache
	if cfg.Cache.Enabled && !flags.noCache {
		mergeCache = cache.New(cache.Config{MaxEntries: cfg.Cache.MaxEntries, TTL: cfg.Cache.TTL}, metrics)
	}

	return &runner{
		plan:        plan,
		logger:      logger,
		metrics:     metrics,
		otelMetrics: otelMetrics,
		cache:       mergeCache,
		loader: protobuf.NewLoader(
			protobuf.WithImportPaths(plan.ImportPaths...),
			protobuf.WithLogger(logger),
			protobuf.WithMetrics(metrics),
		),
		merger: merger.New(
			merger.WithLogger(logger),
			merger.WithMetrics(metrics),
			merger.WithOTelMetrics(otelMetrics),
			merger.WithOptions(plan.Options()),
		),
		shutdown: shutdown,
	}, nil
}

// run reads every version directory and returns the merged schema, from the cache
// when the sources, import paths and options are unchanged
func (r *runner) run(ctx context.Context) (merged *merger.MergedSchema, err error) {
	ctx = observability.WithLogger(observability.WithRunID(ctx, uuid.NewString()), r.logger)
	logger := observability.FromContext(ctx)
	defer observability.RecoverPanic(logger, "merge run", &err)

	sources := make([]cache.VersionSources, 0, len(r.plan.Versions))
	for _, v := range r.plan.Versions {
		files, err := protobuf.ReadDir(v.Dir)
		if err != nil {
			return nil, fmt.Errorf("version %s: %w", v.Name, err)
		}
		sources = append(sources, cache.VersionSources{Version: v.Name, Sources: files})
	}

	imports, err := readImportPaths(r.plan.ImportPaths)
	if err != nil {
		return nil, err
	}

	key := cache.Fingerprint(sources, imports, r.plan.Options())
	merged, hit, err := r.cache.GetOrMerge(ctx, key, func(ctx context.Context) (*merger.MergedSchema, error) {
		return r.load(ctx, sources)
	})
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		r.otelMetrics.RecordCacheRequest(ctx, result)
	}
	logger.WithField("cache_hit", hit).Debug("merge run finished")
	return merged, nil
}

func (r *runner) load(ctx context.Context, sources []cache.VersionSources) (*merger.MergedSchema, error) {
	versions := make([]*schema.VersionSchema, 0, len(sources))
	for _, vs := range sources {
		v, err := r.loader.LoadFiles(ctx, vs.Version, vs.Sources)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return r.merger.Merge(ctx, versions)
}

// readImportPaths collects the .proto files under every import path. A directory
// without .proto files contributes nothing.
func readImportPaths(dirs []string) ([]cache.VersionSources, error) {
	imports := make([]cache.VersionSources, 0, len(dirs))
	for _, dir := range dirs {
		files, err := protobuf.ReadDir(dir)
		if errors.Is(err, protobuf.ErrNoProtoFiles) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("import path %s: %w", dir, err)
		}
		imports = append(imports, cache.VersionSources{Version: dir, Sources: files})
	}
	return imports, nil
}

// close runs the shutdown hooks: metrics textfile and trace flush
func (r *runner) close(ctx context.Context) error {
	return r.shutdown.Shutdown(ctx)
}

// openOutput returns the command output, or the named file
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}
