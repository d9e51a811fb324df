package token

// TokenType represents the type of a token in the GraphQL lexer.
type TokenType string

const (
	// Special tokens
	ILLEGAL TokenType = "ILLEGAL" // Unknown token
	EOF     TokenType = "EOF"     // End of file

	// Identifiers and literals
	IDENT  TokenType = "IDENT"  // Names: fields, types, directives, enum values
	INT    TokenType = "INT"    // Integer literals
	FLOAT  TokenType = "FLOAT"  // Float literals
	STRING TokenType = "STRING" // String literals

	// Punctuators
	ASSIGN   TokenType = "="   // Default value marker
	COLON    TokenType = ":"   // Type and argument separator
	COMMA    TokenType = ","   // Insignificant separator
	PIPE     TokenType = "|"   // Union member separator
	LPAREN   TokenType = "("   // Argument list start
	RPAREN   TokenType = ")"   // Argument list end
	LBRACE   TokenType = "{"   // Selection set or field list start
	RBRACE   TokenType = "}"   // Selection set or field list end
	LBRACKET TokenType = "["   // List start
	RBRACKET TokenType = "]"   // List end
	DOLLAR   TokenType = "$"   // Variable prefix
	BANG     TokenType = "!"   // Non-null marker
	AT       TokenType = "@"   // Directive prefix
	SPREAD   TokenType = "..." // Fragment spread
)

// Token represents a single token in the GraphQL source.
type Token struct {
	Type    TokenType // The type of the token
	Literal string    // The literal value of the token
	Line    int       // 1-based source line the token starts on
}
