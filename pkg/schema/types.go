package schema

import "strings"

// Syntax is the schema syntax generation a message was declared under
type Syntax int

const (
	SyntaxUnknown Syntax = iota
	SyntaxProto2
	SyntaxProto3
)

func (s Syntax) String() string {
	return []string{"unknown", "proto2", "proto3"}[s]
}

// ParseSyntax converts "proto2"/"proto3" into a Syntax. Anything else is proto2,
// which is the protobuf default when no syntax statement is present.
func ParseSyntax(s string) Syntax {
	if strings.TrimSpace(s) == "proto3" {
		return SyntaxProto3
	}
	return SyntaxProto2
}

// FieldType represents the protobuf field type
type FieldType int

const (
	FieldTypeUnknown FieldType = iota
	FieldTypeDouble
	FieldTypeFloat
	FieldTypeInt32
	FieldTypeInt64
	FieldTypeUint32
	FieldTypeUint64
	FieldTypeSint32
	FieldTypeSint64
	FieldTypeFixed32
	FieldTypeFixed64
	FieldTypeSfixed32
	FieldTypeSfixed64
	FieldTypeBool
	FieldTypeString
	FieldTypeBytes
	FieldTypeMessage
	FieldTypeEnum
)

func (ft FieldType) String() string {
	return []string{
		"unknown", "double", "float", "int32", "int64", "uint32", "uint64",
		"sint32", "sint64", "fixed32", "fixed64", "sfixed32", "sfixed64",
		"bool", "string", "bytes", "message", "enum",
	}[ft]
}

// Host-level type names. Every 32-bit integer encoding collapses to HostInt and every
// 64-bit encoding to HostLong.
const (
	HostInt    = "int"
	HostLong   = "long"
	HostFloat  = "float"
	HostDouble = "double"
	HostBool   = "bool"
	HostString = "string"
	HostBytes  = "bytes"
)

// Is32Bit reports whether the type is a 32-bit integer encoding
func (ft FieldType) Is32Bit() bool {
	switch ft {
	case FieldTypeInt32, FieldTypeUint32, FieldTypeSint32, FieldTypeFixed32, FieldTypeSfixed32:
		return true
	}
	return false
}

// Is64Bit reports whether the type is a 64-bit integer encoding
func (ft FieldType) Is64Bit() bool {
	switch ft {
	case FieldTypeInt64, FieldTypeUint64, FieldTypeSint64, FieldTypeFixed64, FieldTypeSfixed64:
		return true
	}
	return false
}

// IsSigned reports whether the integer encoding is signed
func (ft FieldType) IsSigned() bool {
	switch ft {
	case FieldTypeInt32, FieldTypeSint32, FieldTypeSfixed32,
		FieldTypeInt64, FieldTypeSint64, FieldTypeSfixed64:
		return true
	}
	return false
}

// IsUnsigned reports whether the integer encoding is unsigned
func (ft FieldType) IsUnsigned() bool {
	switch ft {
	case FieldTypeUint32, FieldTypeFixed32, FieldTypeUint64, FieldTypeFixed64:
		return true
	}
	return false
}

// IsNumeric covers integers and floating point types
func (ft FieldType) IsNumeric() bool {
	return ft.Is32Bit() || ft.Is64Bit() || ft == FieldTypeFloat || ft == FieldTypeDouble
}

// IsScalar is true for every type that is not a message or enum
func (ft FieldType) IsScalar() bool {
	return ft != FieldTypeUnknown && ft != FieldTypeMessage && ft != FieldTypeEnum
}

// HostType returns the host representation of a scalar type. Message and enum types
// return an empty string because their host type is the referenced type name.
func (ft FieldType) HostType() string {
	switch {
	case ft.Is32Bit():
		return HostInt
	case ft.Is64Bit():
		return HostLong
	}
	switch ft {
	case FieldTypeFloat:
		return HostFloat
	case FieldTypeDouble:
		return HostDouble
	case FieldTypeBool:
		return HostBool
	case FieldTypeString:
		return HostString
	case FieldTypeBytes:
		return HostBytes
	}
	return ""
}

// ParseFieldType converts a proto scalar keyword into a FieldType
func ParseFieldType(s string) FieldType {
	switch s {
	case "double":
		return FieldTypeDouble
	case "float":
		return FieldTypeFloat
	case "int32":
		return FieldTypeInt32
	case "int64":
		return FieldTypeInt64
	case "uint32":
		return FieldTypeUint32
	case "uint64":
		return FieldTypeUint64
	case "sint32":
		return FieldTypeSint32
	case "sint64":
		return FieldTypeSint64
	case "fixed32":
		return FieldTypeFixed32
	case "fixed64":
		return FieldTypeFixed64
	case "sfixed32":
		return FieldTypeSfixed32
	case "sfixed64":
		return FieldTypeSfixed64
	case "bool":
		return FieldTypeBool
	case "string":
		return FieldTypeString
	case "bytes":
		return FieldTypeBytes
	}
	return FieldTypeUnknown
}

// FieldLabel represents field cardinality
type FieldLabel int

const (
	FieldLabelOptional FieldLabel = iota
	FieldLabelRequired
	FieldLabelRepeated
)

func (fl FieldLabel) String() string {
	return []string{"optional", "required", "repeated"}[fl]
}

// SimpleName strips any package or parent qualification from a type name
func SimpleName(fullName string) string {
	fullName = strings.TrimPrefix(fullName, ".")
	if i := strings.LastIndex(fullName, "."); i >= 0 {
		return fullName[i+1:]
	}
	return fullName
}
