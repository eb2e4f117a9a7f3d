// Package schema defines the per-version input model consumed by the merger.
//
// A VersionSchema is one version's complete, already-parsed set of messages and enums.
// It is produced once (usually by the protobuf loader in pkg/protobuf) and is never
// mutated afterwards, so any number of merges may read it concurrently.
//
// # Types
//
// FieldInfo carries the facts the merger needs for one field: its number (the field's
// identity within a message), wire type, label, resolved message/enum type name, map
// key/value info and oneof membership. HostType maps a field onto the boxed host-level
// representation used for conflict classification:
//
//	int32, uint32, sint32, fixed32, sfixed32 -> int
//	int64, uint64, sint64, fixed64, sfixed64 -> long
//	float -> float, double -> double, bool -> bool
//	string -> string, bytes -> bytes
//	message / enum -> simple type name
//
// # Example
//
//	v1 := schema.NewVersionSchema("v1", schema.SyntaxProto2)
//	v1.AddMessage(&schema.MessageInfo{
//		Name: "Order",
//		Fields: []*schema.FieldInfo{
//			{Name: "id", Number: 1, Type: schema.FieldTypeInt64, Label: schema.FieldLabelRequired},
//		},
//	})
package schema
