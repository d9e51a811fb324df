package ast

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
}

// Document represents a complete GraphQL document: executable operations,
// schema type definitions, or a mix of both.
type Document struct {
	Definitions []Definition
}

// TokenLiteral returns a string representation of the document.
func (d *Document) TokenLiteral() string {
	if len(d.Definitions) > 0 {
		return d.Definitions[0].TokenLiteral()
	}
	return ""
}

// Operation returns the first operation definition in the document, or nil.
func (d *Document) Operation() *OperationDefinition {
	for _, def := range d.Definitions {
		if op, ok := def.(*OperationDefinition); ok {
			return op
		}
	}
	return nil
}

// TypeDefinition returns the named object or input type definition, or nil.
func (d *Document) TypeDefinition(name string) *TypeDefinition {
	for _, def := range d.Definitions {
		if td, ok := def.(*TypeDefinition); ok && td.Name == name {
			return td
		}
	}
	return nil
}

// Definition is an interface for all top-level definitions in a GraphQL document.
type Definition interface {
	Node
}

// Operation kinds.
const (
	OperationQuery        = "query"
	OperationMutation     = "mutation"
	OperationSubscription = "subscription"
)

// OperationDefinition represents a GraphQL operation (query, mutation, or subscription).
type OperationDefinition struct {
	Operation           string               // One of the Operation* kinds
	Name                string               // Optional operation name
	VariableDefinitions []VariableDefinition // Variable definitions for this operation
	SelectionSet        *SelectionSet        // The fields to select
}

// TokenLiteral returns the operation name or type.
func (op *OperationDefinition) TokenLiteral() string {
	if op.Name != "" {
		return op.Name
	}
	return op.Operation
}

// VariableDefinition represents a variable definition in an operation.
type VariableDefinition struct {
	Variable     string // Variable name (without $)
	Type         Type   // The type of the variable
	DefaultValue *Value // Value used when the variable is not supplied
}

// TokenLiteral returns the variable name.
func (v *VariableDefinition) TokenLiteral() string {
	return v.Variable
}

// Type represents a GraphQL type reference (e.g., String, [Int!], User).
type Type struct {
	Name    string // Base type name
	NonNull bool   // Whether the type is non-nullable (!)
	IsList  bool   // Whether the type is a list ([])
	Elem    *Type  // Element type if this is a list
}

// String renders the type reference in SDL notation.
func (t *Type) String() string {
	if t == nil {
		return ""
	}
	s := t.Name
	if t.IsList {
		s = "[" + t.Elem.String() + "]"
	}
	if t.NonNull {
		s += "!"
	}
	return s
}

// SelectionSet represents a set of fields to select.
type SelectionSet struct {
	Selections []Selection
}

// Selection is an interface for all selections (fields, fragments, etc.).
type Selection interface {
	Node
}

// Field represents a single field selection in a GraphQL query.
type Field struct {
	Alias        string        // Response key override, if any
	Name         string        // Field name
	Arguments    []Argument    // Field arguments
	Directives   []Directive   // Directives applied to the selection
	SelectionSet *SelectionSet // Nested selections (if any)
}

// TokenLiteral returns the field name.
func (f *Field) TokenLiteral() string {
	return f.Name
}

// ResponseKey is the alias when present, otherwise the field name.
func (f *Field) ResponseKey() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Argument represents an argument passed to a field or directive.
type Argument struct {
	Name  string // Argument name
	Value *Value // Argument value
}

// TokenLiteral returns the argument name.
func (a *Argument) TokenLiteral() string {
	return a.Name
}

// Directive is an '@name(args)' annotation.
type Directive struct {
	Name      string
	Arguments []Argument
}

// TokenLiteral returns the directive name.
func (d *Directive) TokenLiteral() string {
	return d.Name
}

// Argument returns the value of the named argument, or nil.
func (d *Directive) Argument(name string) *Value {
	for _, a := range d.Arguments {
		if a.Name == name {
			return a.Value
		}
	}
	return nil
}

// Value kinds.
const (
	KindInt      = "Int"
	KindFloat    = "Float"
	KindString   = "String"
	KindBoolean  = "Boolean"
	KindNull     = "Null"
	KindEnum     = "Enum"
	KindVariable = "Variable"
	KindObject   = "Object"
	KindArray    = "Array"
	KindIllegal  = "Illegal"
)

// Value represents a literal or variable value in GraphQL.
type Value struct {
	Kind         string            // One of the Kind* constants
	Literal      string            // The literal value
	ObjectFields map[string]*Value // For object values
	List         []*Value          // For array values
}

// TokenLiteral returns the literal value.
func (v *Value) TokenLiteral() string {
	return v.Literal
}

// Type definition kinds.
const (
	TypeKindObject = "type"
	TypeKindInput  = "input"
)

// TypeDefinition represents an object or input type in a GraphQL schema
// (e.g., "type Mutation { ... }" or "input ConfigFileInput { ... }").
type TypeDefinition struct {
	Kind       string             // TypeKindObject or TypeKindInput
	Name       string             // Type name
	Directives []Directive        // Directives applied to the type
	Fields     []*FieldDefinition // Fields in this type
}

// TokenLiteral returns the type name.
func (t *TypeDefinition) TokenLiteral() string {
	return t.Name
}

// FieldDefinition is a field declared inside a type definition.
type FieldDefinition struct {
	Name        string
	Description string
	Arguments   []*InputValueDefinition
	Type        *Type
	Directives  []Directive
}

// TokenLiteral returns the field name.
func (f *FieldDefinition) TokenLiteral() string {
	return f.Name
}

// Directive returns the named directive on the field, or nil.
func (f *FieldDefinition) Directive(name string) *Directive {
	for i := range f.Directives {
		if f.Directives[i].Name == name {
			return &f.Directives[i]
		}
	}
	return nil
}

// InputValueDefinition is an argument of a field definition or a field of an
// input type.
type InputValueDefinition struct {
	Name         string
	Type         *Type
	DefaultValue *Value
}

// TokenLiteral returns the argument name.
func (i *InputValueDefinition) TokenLiteral() string {
	return i.Name
}
