// Package merger reconciles N versions of a protobuf schema into one version-agnostic
// MergedSchema with a per-field behavioral contract and structured diagnostics.
//
// # Components
//
// Classify (conflict.go) assigns one ConflictKind per field number and the unified
// type to expose. The decision order is fixed:
//
//  1. repeated in some versions, singular in others (no maps): REPEATED_SINGLE
//  2. identical wire types: NONE
//  3. signed/unsigned or zig-zag/fixed encodings of one width: SIGNED_UNSIGNED (long)
//  4. element types: INT_ENUM, ENUM_ENUM, FLOAT_DOUBLE, WIDENING, STRING_BYTES,
//     PRIMITIVE_MESSAGE, otherwise INCOMPATIBLE
//
// OPTIONAL_REQUIRED is an orthogonal flag. Map fields keep NONE and classify their
// value type separately.
//
// ResolveContract and MergeContracts (contract.go) derive has/nullable/default per
// version and merge them: has is AND, nullable is OR, cardinality is MAP > REPEATED >
// SINGULAR.
//
// reconcileOneofs (oneof.go) groups oneofs by member number set (renames) and then by
// name, and reports partial existence, member set and number changes, and fields that
// move in or out of a oneof.
//
// mergeEnum (enum.go) unions values by number and folds nested enums that match a
// same-named top-level enum into an alias.
//
// # Usage
//
//	m := merger.New(merger.WithLogger(logger), merger.WithWorkers(4))
//	merged, err := m.Merge(ctx, []*schema.VersionSchema{v1, v2})
//	if err != nil {
//		return err // only empty or unusable input fails
//	}
//	for _, d := range merged.Diagnostics() {
//		fmt.Println(d)
//	}
//
// # Determinism
//
// Output depends only on the input order of versions and declarations. Top-level
// messages may merge in parallel; their diagnostics are concatenated by message name
// after all tasks finish.
package merger
