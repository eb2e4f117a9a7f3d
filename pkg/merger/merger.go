package merger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/protomerge/pkg/observability"
	"github.com/platinummonkey/protomerge/pkg/schema"
)

const tracerName = "protomerge/merger"

// Merger reconciles version schemas into one MergedSchema
type Merger struct {
	options     Options
	logger      *observability.Logger
	metrics     *observability.MergeMetrics
	otelMetrics *observability.OTelMetrics
	tracer      trace.Tracer
}

// New creates a merger. Without options it logs nowhere, records no metrics and uses
// the global tracer provider.
func New(opts ...Option) *Merger {
	m := &Merger{
		logger: observability.NewNopLogger(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge merges the versions into one schema. The first version is the baseline. Only
// an empty list or an unusable version schema fails; every disagreement between
// versions resolves to a unified shape plus a diagnostic.
func (m *Merger) Merge(ctx context.Context, versions []*schema.VersionSchema) (*MergedSchema, error) {
	start := time.Now()
	ctx, span := m.tracer.Start(ctx, "merger.Merge",
		trace.WithAttributes(attribute.Int("merge.versions", len(versions))))
	defer span.End()

	if err := validateVersions(versions); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.metrics.ObserveMerge("error", time.Since(start))
		m.otelMetrics.RecordMerge(ctx, "error", time.Since(start), 0)
		return nil, err
	}

	// A run id set by the caller is kept
	if observability.GetRunID(ctx) == "" {
		ctx = observability.WithRunID(ctx, uuid.NewString())
	}
	ctx = observability.WithLogger(ctx, observability.UpdateLoggerWithTraceContext(ctx, m.logger))
	logger := observability.FromContext(ctx).WithField("versions", len(versions))

	mc := newMergeContext(versions, m.options)

	enums, enumDiagnostics := mc.mergeTopLevelEnums()

	results, err := m.mergeTopLevelMessages(ctx, mc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.metrics.ObserveMerge("error", time.Since(start))
		m.otelMetrics.RecordMerge(ctx, "error", time.Since(start), 0)
		logger.WithError(err).Error("merge failed")
		return nil, err
	}

	merged := assemble(mc, enums, enumDiagnostics, results)

	span.SetAttributes(
		attribute.Int("merge.messages", len(merged.messages)),
		attribute.Int("merge.diagnostics", len(merged.diagnostics)),
	)
	m.record(merged, time.Since(start))
	m.otelMetrics.RecordMerge(ctx, "success", time.Since(start), len(merged.diagnostics))

	for _, d := range merged.diagnostics {
		logger.WithFields(map[string]interface{}{
			"kind": string(d.Kind),
			"path": d.Path,
		}).Debug(d.Message)
	}
	logger.WithFields(map[string]interface{}{
		"messages":    len(merged.messages),
		"enums":       len(merged.enums),
		"diagnostics": len(merged.diagnostics),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("merge completed")

	return merged, nil
}

func (m *Merger) record(merged *MergedSchema, d time.Duration) {
	if m.metrics == nil {
		return
	}
	m.metrics.ObserveMerge("success", d)
	m.metrics.SetMergedMessages(len(merged.messages))
	for _, diag := range merged.diagnostics {
		m.metrics.IncDiagnostic(string(diag.Kind))
	}
	merged.Walk(func(msg *MergedMessage) {
		for _, f := range msg.Fields {
			if f.Conflict != ConflictNone {
				m.metrics.IncFieldConflict(f.Conflict.String())
			}
		}
	})
}

func validateVersions(versions []*schema.VersionSchema) error {
	if len(versions) == 0 {
		return ErrNoVersions
	}
	seen := make(map[string]bool, len(versions))
	for i, v := range versions {
		if v == nil {
			return fmt.Errorf("%w: version at index %d is nil", ErrInvalidVersion, i)
		}
		if v.Version() == "" {
			return fmt.Errorf("%w: version at index %d has no identifier", ErrInvalidVersion, i)
		}
		if seen[v.Version()] {
			return fmt.Errorf("%w: %s", ErrDuplicateVersion, v.Version())
		}
		seen[v.Version()] = true
	}
	return nil
}

// messageResult is the private output buffer of one top-level merge task
type messageResult struct {
	message       *MergedMessage
	diagnostics   []Diagnostic
	conflictEnums []*ConflictEnum
	aliases       []EnumAlias
}

func (m *Merger) mergeTopLevelMessages(ctx context.Context, mc *mergeContext) ([]messageResult, error) {
	names := mc.topLevelMessageNames()
	results := make([]messageResult, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mc.options.workers())

	for i, name := range names {
		g.Go(func() (err error) {
			_, span := m.tracer.Start(gctx, "merger.mergeMessage",
				trace.WithAttributes(attribute.String("merge.message", name)))
			defer span.End()
			defer func() {
				if err != nil {
					err = fmt.Errorf("%w: %w", ErrInternal, err)
				}
			}()
			defer observability.RecoverPanic(observability.FromContext(gctx), "merge message "+name, &err)

			results[i].message = mc.mergeMessage(name, mc.collectTopLevel(name), &results[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// assemble builds the schema. Diagnostics are ordered top-level enums first, then
// message buffers sorted by message name.
func assemble(mc *mergeContext, enums []*MergedEnum, enumDiagnostics []Diagnostic, results []messageResult) *MergedSchema {
	s := &MergedSchema{
		versions:       mc.order,
		enums:          enums,
		enumAliases:    make(map[string]string),
		messagesByName: make(map[string]*MergedMessage),
		enumsByName:    make(map[string]*MergedEnum),
		conflictByKey:  make(map[string]*ConflictEnum),
	}
	for _, e := range enums {
		s.enumsByName[e.Name] = e
	}
	for _, r := range results {
		s.messages = append(s.messages, r.message)
		s.messagesByName[r.message.Name] = r.message
	}

	byName := make([]int, len(results))
	for i := range byName {
		byName[i] = i
	}
	sort.SliceStable(byName, func(a, b int) bool {
		return results[byName[a]].message.Name < results[byName[b]].message.Name
	})

	s.diagnostics = append(s.diagnostics, enumDiagnostics...)
	for _, i := range byName {
		r := results[i]
		s.diagnostics = append(s.diagnostics, r.diagnostics...)
		for _, ce := range r.conflictEnums {
			if _, exists := s.conflictByKey[ce.Key()]; exists {
				continue
			}
			s.conflictByKey[ce.Key()] = ce
			s.conflictEnums = append(s.conflictEnums, ce)
		}
		for _, a := range r.aliases {
			if _, exists := s.enumAliases[a.NestedPath]; exists {
				continue
			}
			s.enumAliases[a.NestedPath] = a.Target
			s.aliasOrder = append(s.aliasOrder, a.NestedPath)
		}
	}

	s.summary = summarize(s)
	return s
}

func summarize(s *MergedSchema) Summary {
	summary := Summary{
		Versions:       len(s.versions),
		Messages:       len(s.messages),
		Enums:          len(s.enums),
		ConflictEnums:  len(s.conflictEnums),
		EnumAliases:    len(s.aliasOrder),
		FieldConflicts: make(map[string]int),
	}
	s.Walk(func(m *MergedMessage) {
		summary.Fields += len(m.Fields)
		for _, f := range m.Fields {
			if f.Conflict == ConflictNone {
				continue
			}
			summary.FieldConflicts[f.Conflict.String()]++
			if f.Conflict == ConflictIncompatible {
				summary.Incompatible++
			}
		}
	})
	summarizeDiagnostics(&summary, s.diagnostics)
	return summary
}

// versionedMessage is one version's declaration of a message
type versionedMessage struct {
	version string
	schema  *schema.VersionSchema
	msg     *schema.MessageInfo
}

// mergeContext holds the read-only state shared by all merge tasks of a run
type mergeContext struct {
	versions []*schema.VersionSchema
	order    []string
	options  Options

	excludedMessages map[string]bool
	excludedFields   map[string]bool
	topLevelEnums    map[string][]versionedEnum
	topLevelEnumSeq  []string
}

func newMergeContext(versions []*schema.VersionSchema, options Options) *mergeContext {
	mc := &mergeContext{
		versions:         versions,
		options:          options,
		excludedMessages: toSet(options.ExcludedMessages),
		excludedFields:   toSet(options.ExcludedFields),
		topLevelEnums:    make(map[string][]versionedEnum),
	}
	for _, v := range versions {
		mc.order = append(mc.order, v.Version())
		for _, e := range v.Enums() {
			if _, ok := mc.topLevelEnums[e.Name]; !ok {
				mc.topLevelEnumSeq = append(mc.topLevelEnumSeq, e.Name)
			}
			mc.topLevelEnums[e.Name] = append(mc.topLevelEnums[e.Name], versionedEnum{version: v.Version(), info: e})
		}
	}
	return mc
}

func (mc *mergeContext) mergeTopLevelEnums() ([]*MergedEnum, []Diagnostic) {
	var (
		enums       []*MergedEnum
		diagnostics []Diagnostic
	)
	for _, name := range mc.topLevelEnumSeq {
		e, diags := mergeEnum(name, mc.topLevelEnums[name])
		enums = append(enums, e)
		diagnostics = append(diagnostics, diags...)
	}
	return enums, diagnostics
}

func (mc *mergeContext) topLevelMessageNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, v := range mc.versions {
		for _, m := range v.Messages() {
			if seen[m.Name] || mc.excludedMessages[m.Name] {
				continue
			}
			seen[m.Name] = true
			names = append(names, m.Name)
		}
	}
	return names
}

func (mc *mergeContext) collectTopLevel(name string) []versionedMessage {
	var entries []versionedMessage
	for _, v := range mc.versions {
		if m, ok := v.Message(name); ok {
			entries = append(entries, versionedMessage{version: v.Version(), schema: v, msg: m})
		}
	}
	return entries
}

// mergeMessage merges one message depth-first. Children are merged before the
// parent is assembled; all diagnostics go to out.
func (mc *mergeContext) mergeMessage(path string, entries []versionedMessage, out *messageResult) *MergedMessage {
	msg := &MergedMessage{Name: schema.SimpleName(path), Path: path}
	for _, e := range entries {
		msg.PresentInVersions = append(msg.PresentInVersions, e.version)
		if e.msg.SourceFile != "" {
			msg.SourceFiles = append(msg.SourceFiles, VersionName{Version: e.version, Name: e.msg.SourceFile})
		}
	}

	for _, name := range nestedMessageNames(entries) {
		childPath := path + "." + name
		if mc.excludedMessages[childPath] {
			continue
		}
		var children []versionedMessage
		for _, e := range entries {
			if n := e.msg.NestedMessage(name); n != nil {
				children = append(children, versionedMessage{version: e.version, schema: e.schema, msg: n})
			}
		}
		msg.NestedMessages = append(msg.NestedMessages, mc.mergeMessage(childPath, children, out))
	}

	for _, name := range nestedEnumNames(entries) {
		enumPath := path + "." + name
		var nested []versionedEnum
		for _, e := range entries {
			if n := e.msg.NestedEnum(name); n != nil {
				nested = append(nested, versionedEnum{version: e.version, info: n})
			}
		}
		if topLevel := mc.topLevelEnums[name]; equivalentTopLevel(nested, topLevel) {
			out.aliases = append(out.aliases, EnumAlias{NestedPath: enumPath, Target: name})
			out.diagnostics = append(out.diagnostics, equivalenceDiagnostic(enumPath, name, nested, topLevel))
			continue
		}
		e, diags := mergeEnum(enumPath, nested)
		msg.NestedEnums = append(msg.NestedEnums, e)
		out.diagnostics = append(out.diagnostics, diags...)
	}

	for _, number := range fieldNumbers(entries) {
		fields, contracts, excluded := mc.collectField(path, number, entries)
		if excluded || len(fields) == 0 {
			continue
		}

		c := Classify(fields)
		field := newMergedField(mc.exposedName(path, fields), fields, c, MergeContracts(contracts, c))
		msg.Fields = append(msg.Fields, field)

		fieldPath := path + "." + field.Name
		out.diagnostics = append(out.diagnostics, c.diagnostics(fieldPath, fields)...)

		if c.Kind == ConflictIntEnum {
			ce := buildConflictEnum(path, field, entries)
			out.conflictEnums = append(out.conflictEnums, ce)
			out.diagnostics = append(out.diagnostics, NewDiagnosticBuilder(KindConflictEnum, fieldPath).
				WithMessage("companion enum %s created with %d values", ce.EnumName, len(ce.Values)).
				WithFacts(versionNameFacts(ce.VersionEnumTypes)...).
				Build())
		}
	}

	oneofs, membership, diags := reconcileOneofs(path, entries, msg.Fields)
	msg.Oneofs = oneofs
	msg.MembershipChanges = membership
	out.diagnostics = append(out.diagnostics, diags...)

	return msg
}

func (mc *mergeContext) collectField(path string, number int, entries []versionedMessage) ([]VersionedField, []VersionContract, bool) {
	var (
		fields    []VersionedField
		contracts []VersionContract
	)
	for _, e := range entries {
		f := e.msg.Field(number)
		if f == nil {
			continue
		}
		if mc.excludedFields[path+"."+f.Name] {
			return nil, nil, true
		}
		fields = append(fields, VersionedField{Version: e.version, Field: f})
		contracts = append(contracts, VersionContract{
			Version:  e.version,
			Contract: ResolveContract(e.schema.MessageSyntax(e.msg), f),
		})
	}
	return fields, contracts, false
}

// exposedName is the baseline (first-seen) name unless a mapping overrides it
func (mc *mergeContext) exposedName(path string, fields []VersionedField) string {
	name := fields[0].Field.Name
	if mapped, ok := mc.options.FieldNameMappings[path+"."+name]; ok {
		return mapped
	}
	if mapped, ok := mc.options.FieldNameMappings[name]; ok {
		return mapped
	}
	return name
}

func nestedMessageNames(entries []versionedMessage) []string {
	var names []string
	seen := make(map[string]bool)
	for _, e := range entries {
		for _, n := range e.msg.NestedMessages {
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		}
	}
	return names
}

func nestedEnumNames(entries []versionedMessage) []string {
	var names []string
	seen := make(map[string]bool)
	for _, e := range entries {
		for _, n := range e.msg.NestedEnums {
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		}
	}
	return names
}

// fieldNumbers returns every field number in first-seen order
func fieldNumbers(entries []versionedMessage) []int {
	var numbers []int
	seen := make(map[int]bool)
	for _, e := range entries {
		for _, f := range e.msg.Fields {
			if !seen[f.Number] {
				seen[f.Number] = true
				numbers = append(numbers, f.Number)
			}
		}
	}
	return numbers
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
