package lexer

import (
	"unicode"

	"github.com/Protocol-Lattice/configql/token"
)

// Lexer tokenizes GraphQL source code, both executable documents and SDL.
type Lexer struct {
	input        string // The input string
	position     int    // Current position in input (points to current char)
	readPosition int    // Next reading position (after current char)
	ch           byte   // Current char under examination
	line         int    // Line of the current char
}

// New creates a new Lexer for the given input string.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken returns the next token from the input. Commas are returned as
// tokens; whitespace and '#' comments are dropped.
func (l *Lexer) NextToken() token.Token {
	l.skipIgnored()

	tok := token.Token{Line: l.line}
	switch l.ch {
	case '=':
		tok.Type, tok.Literal = token.ASSIGN, "="
	case ':':
		tok.Type, tok.Literal = token.COLON, ":"
	case ',':
		tok.Type, tok.Literal = token.COMMA, ","
	case '|':
		tok.Type, tok.Literal = token.PIPE, "|"
	case '(':
		tok.Type, tok.Literal = token.LPAREN, "("
	case ')':
		tok.Type, tok.Literal = token.RPAREN, ")"
	case '{':
		tok.Type, tok.Literal = token.LBRACE, "{"
	case '}':
		tok.Type, tok.Literal = token.RBRACE, "}"
	case '[':
		tok.Type, tok.Literal = token.LBRACKET, "["
	case ']':
		tok.Type, tok.Literal = token.RBRACKET, "]"
	case '$':
		tok.Type, tok.Literal = token.DOLLAR, "$"
	case '!':
		tok.Type, tok.Literal = token.BANG, "!"
	case '@':
		tok.Type, tok.Literal = token.AT, "@"
	case '"':
		tok.Type = token.STRING
		tok.Literal = l.readString()
		return tok
	case '.':
		if l.peekChar() == '.' && l.readPosition+1 < len(l.input) && l.input[l.readPosition+1] == '.' {
			l.readChar()
			l.readChar()
			tok.Type, tok.Literal = token.SPREAD, "..."
		} else {
			tok.Type, tok.Literal = token.ILLEGAL, "."
		}
	case 0:
		tok.Type, tok.Literal = token.EOF, ""
		return tok
	default:
		if isLetter(l.ch) {
			tok.Type = token.IDENT
			tok.Literal = l.readIdentifier()
			return tok
		}
		if isDigit(l.ch) || (l.ch == '-' && isDigit(l.peekChar())) {
			tok.Literal, tok.Type = l.readNumber()
			return tok
		}
		tok.Type, tok.Literal = token.ILLEGAL, string(l.ch)
	}
	l.readChar()
	return tok
}

// skipIgnored advances past whitespace and '#' line comments.
func (l *Lexer) skipIgnored() {
	for {
		switch l.ch {
		case ' ', '\t', '\n', '\r':
			l.readChar()
		case '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads an integer or float literal, including an optional
// leading minus sign, fraction and exponent.
func (l *Lexer) readNumber() (string, token.TokenType) {
	start := l.position
	typ := token.INT
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		typ = token.FLOAT
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		typ = token.FLOAT
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.position], typ
}

// readString reads a string literal, resolving the common escape sequences.
func (l *Lexer) readString() string {
	l.readChar() // opening quote
	var out []byte
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case 0:
				return string(out)
			default:
				out = append(out, l.ch)
			}
			l.readChar()
			continue
		}
		out = append(out, l.ch)
		l.readChar()
	}
	l.readChar() // closing quote
	return string(out)
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
