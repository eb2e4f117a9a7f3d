package protobuf

import (
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/platinummonkey/protomerge/pkg/schema"
)

// fileSyntax maps a file's syntax to the contract generation its messages follow
func fileSyntax(fd protoreflect.FileDescriptor) schema.Syntax {
	switch fd.Syntax() {
	case protoreflect.Proto2:
		return schema.SyntaxProto2
	case protoreflect.Proto3, protoreflect.Editions:
		return schema.SyntaxProto3
	}
	return schema.SyntaxUnknown
}

func isWellKnown(fd protoreflect.FileDescriptor) bool {
	return fd.Package() == "google.protobuf" || strings.HasPrefix(string(fd.Package()), "google.protobuf.")
}

// convertMessage converts a message descriptor and everything nested in it
func convertMessage(md protoreflect.MessageDescriptor, syntax schema.Syntax, sourceFile string) *schema.MessageInfo {
	msg := &schema.MessageInfo{
		Name:       string(md.Name()),
		FullName:   string(md.FullName()),
		Syntax:     syntax,
		SourceFile: sourceFile,
	}

	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		msg.Fields = append(msg.Fields, convertField(fields.Get(i), syntax))
	}

	oneofs := md.Oneofs()
	for i := 0; i < oneofs.Len(); i++ {
		od := oneofs.Get(i)
		info := &schema.OneofInfo{Name: string(od.Name()), Synthetic: od.IsSynthetic()}
		members := od.Fields()
		for j := 0; j < members.Len(); j++ {
			info.FieldNumbers = append(info.FieldNumbers, int(members.Get(j).Number()))
		}
		msg.Oneofs = append(msg.Oneofs, info)
	}

	nested := md.Messages()
	for i := 0; i < nested.Len(); i++ {
		nmd := nested.Get(i)
		if nmd.IsMapEntry() {
			continue
		}
		msg.NestedMessages = append(msg.NestedMessages, convertMessage(nmd, syntax, sourceFile))
	}

	enums := md.Enums()
	for i := 0; i < enums.Len(); i++ {
		msg.NestedEnums = append(msg.NestedEnums, convertEnum(enums.Get(i)))
	}

	return msg
}

func convertField(fd protoreflect.FieldDescriptor, syntax schema.Syntax) *schema.FieldInfo {
	f := &schema.FieldInfo{
		Name:     string(fd.Name()),
		Number:   int(fd.Number()),
		Type:     fieldType(fd.Kind()),
		Label:    fieldLabel(fd.Cardinality()),
		TypeName: typeName(fd),
	}

	if fd.IsMap() {
		f.Type = schema.FieldTypeMessage
		f.Label = schema.FieldLabelRepeated
		f.TypeName = ""
		f.Map = &schema.MapInfo{
			KeyType:       fieldType(fd.MapKey().Kind()),
			ValueType:     fieldType(fd.MapValue().Kind()),
			ValueTypeName: typeName(fd.MapValue()),
		}
	}

	if od := fd.ContainingOneof(); od != nil {
		f.OneofName = string(od.Name())
		f.SyntheticOneof = od.IsSynthetic()
	}

	// Proto2 presence follows from the label alone
	if syntax == schema.SyntaxProto3 && fd.Cardinality() != protoreflect.Repeated {
		f.ExplicitPresence = fd.HasOptionalKeyword() || (fd.ParentFile().Syntax() == protoreflect.Editions && fd.HasPresence())
	}

	if opts, ok := fd.Options().(*descriptorpb.FieldOptions); ok {
		f.Deprecated = opts.GetDeprecated()
	}

	if fd.HasDefault() {
		if fd.Kind() == protoreflect.EnumKind {
			f.DefaultValue = string(fd.DefaultEnumValue().Name())
		} else {
			f.DefaultValue = fd.Default().String()
		}
	}

	return f
}

func convertEnum(ed protoreflect.EnumDescriptor) *schema.EnumInfo {
	e := &schema.EnumInfo{
		Name:     string(ed.Name()),
		FullName: string(ed.FullName()),
	}
	values := ed.Values()
	for i := 0; i < values.Len(); i++ {
		v := values.Get(i)
		e.Values = append(e.Values, schema.EnumValue{Name: string(v.Name()), Number: int(v.Number())})
	}
	return e
}

func typeName(fd protoreflect.FieldDescriptor) string {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return string(fd.Message().FullName())
	case protoreflect.EnumKind:
		return string(fd.Enum().FullName())
	}
	return ""
}

func fieldLabel(c protoreflect.Cardinality) schema.FieldLabel {
	switch c {
	case protoreflect.Repeated:
		return schema.FieldLabelRepeated
	case protoreflect.Required:
		return schema.FieldLabelRequired
	}
	return schema.FieldLabelOptional
}

func fieldType(k protoreflect.Kind) schema.FieldType {
	switch k {
	case protoreflect.DoubleKind:
		return schema.FieldTypeDouble
	case protoreflect.FloatKind:
		return schema.FieldTypeFloat
	case protoreflect.Int32Kind:
		return schema.FieldTypeInt32
	case protoreflect.Int64Kind:
		return schema.FieldTypeInt64
	case protoreflect.Uint32Kind:
		return schema.FieldTypeUint32
	case protoreflect.Uint64Kind:
		return schema.FieldTypeUint64
	case protoreflect.Sint32Kind:
		return schema.FieldTypeSint32
	case protoreflect.Sint64Kind:
		return schema.FieldTypeSint64
	case protoreflect.Fixed32Kind:
		return schema.FieldTypeFixed32
	case protoreflect.Fixed64Kind:
		return schema.FieldTypeFixed64
	case protoreflect.Sfixed32Kind:
		return schema.FieldTypeSfixed32
	case protoreflect.Sfixed64Kind:
		return schema.FieldTypeSfixed64
	case protoreflect.BoolKind:
		return schema.FieldTypeBool
	case protoreflect.StringKind:
		return schema.FieldTypeString
	case protoreflect.BytesKind:
		return schema.FieldTypeBytes
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return schema.FieldTypeMessage
	case protoreflect.EnumKind:
		return schema.FieldTypeEnum
	}
	return schema.FieldTypeUnknown
}
