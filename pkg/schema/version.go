package schema

import "fmt"

// VersionSchema is one version's complete set of top-level messages and enums.
// Instances are built with a VersionSchemaBuilder and are read-only afterwards.
type VersionSchema struct {
	version  string
	syntax   Syntax
	messages []*MessageInfo
	enums    []*EnumInfo

	messagesByName map[string]*MessageInfo
	enumsByName    map[string]*EnumInfo
	enumsByFull    map[string]*EnumInfo
}

// Version returns the version identifier
func (v *VersionSchema) Version() string {
	return v.version
}

// Syntax returns the version-wide syntax default
func (v *VersionSchema) Syntax() Syntax {
	return v.syntax
}

// Messages returns the top-level messages in declaration order
func (v *VersionSchema) Messages() []*MessageInfo {
	return v.messages
}

// Enums returns the top-level enums in declaration order
func (v *VersionSchema) Enums() []*EnumInfo {
	return v.enums
}

// Message looks up a top-level message by name
func (v *VersionSchema) Message(name string) (*MessageInfo, bool) {
	m, ok := v.messagesByName[name]
	return m, ok
}

// Enum looks up a top-level enum by name
func (v *VersionSchema) Enum(name string) (*EnumInfo, bool) {
	e, ok := v.enumsByName[name]
	return e, ok
}

// EnumByFullName finds any enum, nested or top-level, by its fully qualified name
func (v *VersionSchema) EnumByFullName(fullName string) (*EnumInfo, bool) {
	e, ok := v.enumsByFull[fullName]
	return e, ok
}

// MessageSyntax resolves the syntax a message was declared under
func (v *VersionSchema) MessageSyntax(m *MessageInfo) Syntax {
	if m != nil && m.Syntax != SyntaxUnknown {
		return m.Syntax
	}
	if v.syntax == SyntaxUnknown {
		return SyntaxProto2
	}
	return v.syntax
}

// VersionSchemaBuilder collects messages and enums for one version
type VersionSchemaBuilder struct {
	schema *VersionSchema
	err    error
}

// NewVersionSchemaBuilder creates a builder for the given version
func NewVersionSchemaBuilder(version string, syntax Syntax) *VersionSchemaBuilder {
	return &VersionSchemaBuilder{
		schema: &VersionSchema{
			version:        version,
			syntax:         syntax,
			messagesByName: make(map[string]*MessageInfo),
			enumsByName:    make(map[string]*EnumInfo),
			enumsByFull:    make(map[string]*EnumInfo),
		},
	}
}

// AddMessage adds a top-level message. The first error sticks and is returned by Build.
func (b *VersionSchemaBuilder) AddMessage(m *MessageInfo) *VersionSchemaBuilder {
	if b.err != nil {
		return b
	}
	if m == nil || m.Name == "" {
		b.err = fmt.Errorf("%w: message has no name", ErrInvalidMessage)
		return b
	}
	if _, exists := b.schema.messagesByName[m.Name]; exists {
		b.err = fmt.Errorf("%w: %s", ErrDuplicateMessage, m.Name)
		return b
	}
	b.schema.messages = append(b.schema.messages, m)
	b.schema.messagesByName[m.Name] = m
	b.indexNestedEnums(m)
	return b
}

// AddEnum adds a top-level enum
func (b *VersionSchemaBuilder) AddEnum(e *EnumInfo) *VersionSchemaBuilder {
	if b.err != nil {
		return b
	}
	if e == nil || e.Name == "" {
		b.err = fmt.Errorf("%w: enum has no name", ErrInvalidEnum)
		return b
	}
	if _, exists := b.schema.enumsByName[e.Name]; exists {
		b.err = fmt.Errorf("%w: %s", ErrDuplicateEnum, e.Name)
		return b
	}
	b.schema.enums = append(b.schema.enums, e)
	b.schema.enumsByName[e.Name] = e
	if e.FullName != "" {
		b.schema.enumsByFull[e.FullName] = e
	}
	return b
}

func (b *VersionSchemaBuilder) indexNestedEnums(m *MessageInfo) {
	for _, e := range m.NestedEnums {
		if e.FullName != "" {
			b.schema.enumsByFull[e.FullName] = e
		}
	}
	for _, nested := range m.NestedMessages {
		b.indexNestedEnums(nested)
	}
}

// Build returns the finished schema
func (b *VersionSchemaBuilder) Build() (*VersionSchema, error) {
	if b.err != nil {
		return nil, fmt.Errorf("version %q: %w", b.schema.version, b.err)
	}
	if b.schema.version == "" {
		return nil, ErrEmptyVersion
	}
	return b.schema, nil
}

// MustBuild is like Build but panics on error. Intended for tests and fixtures.
func (b *VersionSchemaBuilder) MustBuild() *VersionSchema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
