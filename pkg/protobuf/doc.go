// Package protobuf loads the .proto sources of one schema version into a
// schema.VersionSchema.
//
// Sources are compiled with protocompile, so imports, type references and syntax are
// validated before the merger sees them. The resulting descriptors are walked with
// protoreflect:
//
//   - files in the google.protobuf package are skipped
//   - synthetic map entry messages are skipped; the owning field records a MapInfo
//   - proto3 optional fields keep their synthetic oneof and are marked with explicit
//     presence
//   - editions files use proto3 contract rules with each field's resolved presence
//
// A version's default syntax is proto3 only when every file of the version is proto3.
// Each message also records the syntax of the file that declared it.
//
//	loader := protobuf.NewLoader(protobuf.WithImportPaths("third_party"))
//	v1, err := loader.LoadDir(ctx, "v1", "./protos/v1")
package protobuf
