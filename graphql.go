// Package configql exposes configuration mutations over GraphQL. It
// includes lexing, parsing, execution, mutation dispatch and HTTP handler
// support.
package configql

import (
	"github.com/Protocol-Lattice/configql/ast"
	"github.com/Protocol-Lattice/configql/dispatch"
	"github.com/Protocol-Lattice/configql/executor"
	"github.com/Protocol-Lattice/configql/handler"
	"github.com/Protocol-Lattice/configql/lexer"
	"github.com/Protocol-Lattice/configql/parser"
	"github.com/Protocol-Lattice/configql/registry"
	"github.com/Protocol-Lattice/configql/session"
	"github.com/Protocol-Lattice/configql/state"
	"github.com/Protocol-Lattice/configql/token"
)

// ===========================
// Re-exported Types
// ===========================

// Token types
type (
	TokenType = token.TokenType
	Token     = token.Token
)

// Token constants
const (
	ILLEGAL  = token.ILLEGAL
	EOF      = token.EOF
	IDENT    = token.IDENT
	INT      = token.INT
	FLOAT    = token.FLOAT
	STRING   = token.STRING
	ASSIGN   = token.ASSIGN
	COLON    = token.COLON
	COMMA    = token.COMMA
	PIPE     = token.PIPE
	LPAREN   = token.LPAREN
	RPAREN   = token.RPAREN
	LBRACE   = token.LBRACE
	RBRACE   = token.RBRACE
	LBRACKET = token.LBRACKET
	RBRACKET = token.RBRACKET
	DOLLAR   = token.DOLLAR
	BANG     = token.BANG
	AT       = token.AT
	SPREAD   = token.SPREAD
)

// AST types
type (
	Node                 = ast.Node
	Document             = ast.Document
	Definition           = ast.Definition
	OperationDefinition  = ast.OperationDefinition
	VariableDefinition   = ast.VariableDefinition
	Type                 = ast.Type
	SelectionSet         = ast.SelectionSet
	Selection            = ast.Selection
	Field                = ast.Field
	Argument             = ast.Argument
	Directive            = ast.Directive
	Value                = ast.Value
	TypeDefinition       = ast.TypeDefinition
	FieldDefinition      = ast.FieldDefinition
	InputValueDefinition = ast.InputValueDefinition
)

// Executor types
type (
	ResolverFunc = executor.ResolverFunc
	ResolveInfo  = executor.ResolveInfo
	Executor     = executor.Executor
)

// Dispatch types
type (
	Verb        = dispatch.Verb
	Result      = dispatch.Result
	Event       = dispatch.Event
	Handler     = dispatch.Handler
	Factory     = dispatch.Factory
	Constructor = dispatch.Constructor
)

// Verbs
const (
	Configure = dispatch.Configure
	Save      = dispatch.Save
	Load      = dispatch.Load
	Add       = dispatch.Add
	Delete    = dispatch.Delete
)

// Session types
type (
	Backend = session.Backend
	Session = session.Session
	Request = session.Request
)

// Lexer type
type Lexer = lexer.Lexer

// Parser type
type Parser = parser.Parser

// ===========================
// Convenience Functions
// ===========================

// NewLexer creates a new lexer for the given GraphQL source.
func NewLexer(input string) *Lexer {
	return lexer.New(input)
}

// NewParser creates a new parser for the given lexer.
func NewParser(l *Lexer) *Parser {
	return parser.New(l)
}

// NewExecutor creates a new executor instance.
func NewExecutor() *Executor {
	return executor.New()
}

// SetSession installs the process-wide session handle used by mutation
// handlers.
func SetSession(b Backend) {
	state.SetSession(b)
}

// ===========================
// Global Registry Functions
// ===========================

// RegisterQueryResolver registers a query resolver in the global registry.
func RegisterQueryResolver(field string, resolver ResolverFunc) {
	registry.RegisterQueryResolver(field, resolver)
}

// RegisterMutationResolver registers a mutation resolver in the global registry.
func RegisterMutationResolver(field string, resolver ResolverFunc) error {
	return registry.RegisterMutationResolver(field, resolver)
}

// RegisterSubscriptionResolver registers a subscription resolver in the global registry.
func RegisterSubscriptionResolver(field string, resolver ResolverFunc) {
	registry.RegisterSubscriptionResolver(field, resolver)
}

// MakeConfigureResolver registers a configure mutation in the global registry.
func MakeConfigureResolver(mutation string) (*Handler, error) {
	return registry.MakeConfigureResolver(mutation)
}

// MakeConfigFileResolver registers a save/load mutation in the global registry.
func MakeConfigFileResolver(mutation string) (*Handler, error) {
	return registry.MakeConfigFileResolver(mutation)
}

// MakeImageResolver registers an add/delete mutation in the global registry.
func MakeImageResolver(mutation string) (*Handler, error) {
	return registry.MakeImageResolver(mutation)
}

// RegisterOverride installs a custom command constructor for commandID.
func RegisterOverride(commandID string, c Constructor) error {
	return dispatch.RegisterOverride(commandID, c)
}

// ===========================
// HTTP Handlers
// ===========================

// GraphqlHandler handles standard GraphQL HTTP requests.
var GraphqlHandler = handler.GraphQL

// SubscriptionHandler handles GraphQL subscriptions over WebSocket.
var SubscriptionHandler = handler.Subscription
