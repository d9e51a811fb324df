package parser

import (
	"fmt"

	"github.com/Protocol-Lattice/configql/ast"
	"github.com/Protocol-Lattice/configql/lexer"
	"github.com/Protocol-Lattice/configql/token"
)

// Parser parses GraphQL source code into an AST.
type Parser struct {
	l         *lexer.Lexer // The lexer to read tokens from
	curToken  token.Token  // Current token
	peekToken token.Token  // Next token
	errors    []string     // Problems found while parsing
}

// New creates a new Parser for the given lexer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Initialize two tokens
	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns the problems collected while parsing. The parser keeps
// going after an error so that one document reports all of them.
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	p.errors = append(p.errors, fmt.Sprintf("line %d: %s", p.curToken.Line, msg))
}

// skipCommas drops insignificant commas.
func (p *Parser) skipCommas() {
	for p.curToken.Type == token.COMMA {
		p.nextToken()
	}
}

// ParseDocument parses a GraphQL document.
func (p *Parser) ParseDocument() *ast.Document {
	doc := &ast.Document{}
	for p.curToken.Type != token.EOF {
		def := p.parseDefinition()
		if def != nil {
			doc.Definitions = append(doc.Definitions, def)
		}
	}
	return doc
}

// parseDefinition parses a single definition (operation or type).
func (p *Parser) parseDefinition() ast.Definition {
	// A leading description belongs to the next type system definition.
	if p.curToken.Type == token.STRING {
		p.nextToken()
	}
	switch {
	case p.curToken.Type == token.LBRACE:
		return p.parseOperationDefinition()
	case p.curToken.Type != token.IDENT:
		p.errorf("unexpected %q", p.curToken.Literal)
		p.nextToken()
		return nil
	}
	switch p.curToken.Literal {
	case ast.OperationQuery, ast.OperationMutation, ast.OperationSubscription:
		return p.parseOperationDefinition()
	case ast.TypeKindObject, ast.TypeKindInput:
		return p.parseTypeDefinition()
	case "extend":
		p.nextToken()
		return p.parseDefinition()
	case "schema", "scalar", "enum", "union", "interface", "directive", "fragment":
		p.skipDefinition()
		return nil
	}
	p.errorf("unknown definition %q", p.curToken.Literal)
	p.nextToken()
	return nil
}

// skipDefinition steps over a definition this parser does not model. It
// consumes tokens up to and including the first balanced brace block, or up
// to the next top-level keyword for brace-less forms such as scalars.
func (p *Parser) skipDefinition() {
	p.nextToken()
	for p.curToken.Type != token.EOF {
		switch p.curToken.Type {
		case token.LBRACE:
			p.skipBlock(token.LBRACE, token.RBRACE)
			return
		case token.LPAREN:
			p.skipBlock(token.LPAREN, token.RPAREN)
			continue
		case token.STRING:
			return
		case token.IDENT:
			if isTopLevelKeyword(p.curToken.Literal) {
				return
			}
		}
		p.nextToken()
	}
}

func isTopLevelKeyword(lit string) bool {
	switch lit {
	case "query", "mutation", "subscription", "type", "input", "extend",
		"schema", "scalar", "enum", "union", "interface", "directive", "fragment":
		return true
	}
	return false
}

// skipBlock skips over a balanced open/close block.
func (p *Parser) skipBlock(open, close token.TokenType) {
	depth := 0
	for p.curToken.Type != token.EOF {
		switch p.curToken.Type {
		case open:
			depth++
		case close:
			depth--
		}
		p.nextToken()
		if depth == 0 {
			return
		}
	}
}

// parseOperationDefinition parses a query, mutation, or subscription operation.
func (p *Parser) parseOperationDefinition() *ast.OperationDefinition {
	op := &ast.OperationDefinition{Operation: ast.OperationQuery}
	if p.curToken.Type == token.IDENT {
		op.Operation = p.curToken.Literal
		p.nextToken()
		if p.curToken.Type == token.IDENT {
			op.Name = p.curToken.Literal
			p.nextToken()
		}
		if p.curToken.Type == token.LPAREN {
			op.VariableDefinitions = p.parseVariableDefinitions()
		}
		p.parseDirectives()
	}
	if p.curToken.Type != token.LBRACE {
		p.errorf("expected selection set for %s, got %q", op.Operation, p.curToken.Literal)
		return op
	}
	op.SelectionSet = p.parseSelectionSet()
	return op
}

// parseVariableDefinitions parses variable definitions for an operation.
func (p *Parser) parseVariableDefinitions() []ast.VariableDefinition {
	var vars []ast.VariableDefinition
	p.nextToken() // skip '('
	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if p.curToken.Type != token.DOLLAR {
			p.errorf("expected variable, got %q", p.curToken.Literal)
			p.nextToken()
			continue
		}
		p.nextToken() // skip '$'
		if p.curToken.Type != token.IDENT {
			p.errorf("expected variable name, got %q", p.curToken.Literal)
			continue
		}
		varDef := ast.VariableDefinition{Variable: p.curToken.Literal}
		p.nextToken()
		if p.curToken.Type == token.COLON {
			p.nextToken()
			if t := p.parseType(); t != nil {
				varDef.Type = *t
			}
		}
		if p.curToken.Type == token.ASSIGN {
			p.nextToken()
			varDef.DefaultValue = p.parseValue()
		}
		vars = append(vars, varDef)
		p.skipCommas()
	}
	p.nextToken() // skip ')'
	return vars
}

// parseSelectionSet parses a selection set (fields within braces).
func (p *Parser) parseSelectionSet() *ast.SelectionSet {
	ss := &ast.SelectionSet{}
	p.nextToken() // skip '{'
	for p.curToken.Type != token.RBRACE && p.curToken.Type != token.EOF {
		if sel := p.parseSelection(); sel != nil {
			ss.Selections = append(ss.Selections, sel)
		}
		p.skipCommas()
	}
	p.nextToken() // skip '}'
	return ss
}

// parseSelection parses a single selection. Fragments are not supported and
// are reported as errors.
func (p *Parser) parseSelection() ast.Selection {
	if p.curToken.Type == token.SPREAD {
		p.errorf("fragments are not supported")
		p.nextToken()
		if p.curToken.Type == token.IDENT {
			p.nextToken()
		}
		return nil
	}
	return p.parseField()
}

// parseField parses a field selection, with an optional alias.
func (p *Parser) parseField() *ast.Field {
	if p.curToken.Type != token.IDENT {
		p.errorf("expected field name, got %q", p.curToken.Literal)
		p.nextToken()
		return nil
	}
	field := &ast.Field{Name: p.curToken.Literal}
	p.nextToken()
	if p.curToken.Type == token.COLON {
		p.nextToken()
		if p.curToken.Type != token.IDENT {
			p.errorf("expected field name after alias %q", field.Name)
			return nil
		}
		field.Alias = field.Name
		field.Name = p.curToken.Literal
		p.nextToken()
	}
	if p.curToken.Type == token.LPAREN {
		field.Arguments = p.parseArguments()
	}
	field.Directives = p.parseDirectives()
	if p.curToken.Type == token.LBRACE {
		field.SelectionSet = p.parseSelectionSet()
	}
	return field
}

// parseArguments parses a parenthesized argument list.
func (p *Parser) parseArguments() []ast.Argument {
	var args []ast.Argument
	p.nextToken() // skip '('
	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if p.curToken.Type != token.IDENT {
			p.errorf("expected argument name, got %q", p.curToken.Literal)
			p.nextToken()
			continue
		}
		arg := ast.Argument{Name: p.curToken.Literal}
		p.nextToken()
		if p.curToken.Type != token.COLON {
			p.errorf("expected ':' after argument %q", arg.Name)
			continue
		}
		p.nextToken()
		arg.Value = p.parseValue()
		args = append(args, arg)
		p.skipCommas()
	}
	p.nextToken() // skip ')'
	return args
}

// parseDirectives parses zero or more '@name(args)' directives.
func (p *Parser) parseDirectives() []ast.Directive {
	var dirs []ast.Directive
	for p.curToken.Type == token.AT {
		p.nextToken()
		if p.curToken.Type != token.IDENT {
			p.errorf("expected directive name, got %q", p.curToken.Literal)
			return dirs
		}
		d := ast.Directive{Name: p.curToken.Literal}
		p.nextToken()
		if p.curToken.Type == token.LPAREN {
			d.Arguments = p.parseArguments()
		}
		dirs = append(dirs, d)
	}
	return dirs
}

// parseValue parses a value (string, number, boolean, null, enum, variable,
// object, array).
func (p *Parser) parseValue() *ast.Value {
	switch p.curToken.Type {
	case token.LBRACE:
		return p.parseObject()
	case token.LBRACKET:
		return p.parseArray()
	}

	val := &ast.Value{Literal: p.curToken.Literal}
	switch p.curToken.Type {
	case token.INT:
		val.Kind = ast.KindInt
	case token.FLOAT:
		val.Kind = ast.KindFloat
	case token.STRING:
		val.Kind = ast.KindString
	case token.IDENT:
		switch p.curToken.Literal {
		case "true", "false":
			val.Kind = ast.KindBoolean
		case "null":
			val.Kind = ast.KindNull
		default:
			val.Kind = ast.KindEnum
		}
	case token.DOLLAR:
		p.nextToken() // skip '$'
		val.Kind = ast.KindVariable
		val.Literal = ""
		if p.curToken.Type != token.IDENT {
			p.errorf("expected variable name, got %q", p.curToken.Literal)
			return val
		}
		val.Literal = p.curToken.Literal
	default:
		p.errorf("unexpected value %q", p.curToken.Literal)
		val.Kind = ast.KindIllegal
	}
	p.nextToken()
	return val
}

// parseObject parses a GraphQL object literal.
func (p *Parser) parseObject() *ast.Value {
	objFields := make(map[string]*ast.Value)
	p.nextToken() // skip '{'
	for p.curToken.Type != token.RBRACE && p.curToken.Type != token.EOF {
		if p.curToken.Type != token.IDENT {
			p.errorf("expected object key, got %q", p.curToken.Literal)
			p.skipTo(token.RBRACE)
			break
		}
		key := p.curToken.Literal
		p.nextToken()
		if p.curToken.Type != token.COLON {
			p.errorf("expected ':' after object key %q", key)
			p.skipTo(token.RBRACE)
			break
		}
		p.nextToken() // skip ':'
		objFields[key] = p.parseValue()
		p.skipCommas()
	}
	p.nextToken() // skip '}'
	return &ast.Value{Kind: ast.KindObject, ObjectFields: objFields}
}

// skipTo advances until the current token has the given type or input ends.
func (p *Parser) skipTo(t token.TokenType) {
	for p.curToken.Type != t && p.curToken.Type != token.EOF {
		p.nextToken()
	}
}

// parseArray parses a list of values.
func (p *Parser) parseArray() *ast.Value {
	arr := []*ast.Value{}
	p.nextToken() // skip '['
	for p.curToken.Type != token.RBRACKET && p.curToken.Type != token.EOF {
		arr = append(arr, p.parseValue())
		p.skipCommas()
	}
	p.nextToken() // skip ']'
	return &ast.Value{Kind: ast.KindArray, List: arr}
}

// parseType parses a type reference (e.g., String, [Int!], User!).
func (p *Parser) parseType() *ast.Type {
	var t ast.Type
	switch p.curToken.Type {
	case token.LBRACKET:
		p.nextToken() // skip '['
		t = ast.Type{IsList: true, Elem: p.parseType()}
		if p.curToken.Type != token.RBRACKET {
			p.errorf("expected ']' to close list type, got %q", p.curToken.Literal)
		} else {
			p.nextToken()
		}
	case token.IDENT:
		t = ast.Type{Name: p.curToken.Literal}
		p.nextToken()
	default:
		p.errorf("expected type, got %q", p.curToken.Literal)
		return nil
	}
	if p.curToken.Type == token.BANG {
		t.NonNull = true
		p.nextToken()
	}
	return &t
}

// parseTypeDefinition parses "type Name { ... }" and "input Name { ... }".
func (p *Parser) parseTypeDefinition() ast.Definition {
	td := &ast.TypeDefinition{Kind: p.curToken.Literal}
	p.nextToken() // skip keyword
	if p.curToken.Type != token.IDENT {
		p.errorf("expected type name, got %q", p.curToken.Literal)
		return nil
	}
	td.Name = p.curToken.Literal
	p.nextToken()

	// "implements A & B" is accepted and ignored.
	if p.curToken.Type == token.IDENT && p.curToken.Literal == "implements" {
		p.nextToken()
		for p.curToken.Type == token.IDENT || p.curToken.Type == token.ILLEGAL {
			p.nextToken()
		}
	}
	td.Directives = p.parseDirectives()

	if p.curToken.Type != token.LBRACE {
		return td
	}
	p.nextToken() // skip '{'
	for p.curToken.Type != token.RBRACE && p.curToken.Type != token.EOF {
		if field := p.parseFieldDefinition(); field != nil {
			td.Fields = append(td.Fields, field)
		}
		p.skipCommas()
	}
	p.nextToken() // skip '}'
	return td
}

// parseFieldDefinition parses one field of a type definition:
// "description"? name(args)?: Type @directives*
func (p *Parser) parseFieldDefinition() *ast.FieldDefinition {
	field := &ast.FieldDefinition{}
	if p.curToken.Type == token.STRING {
		field.Description = p.curToken.Literal
		p.nextToken()
	}
	if p.curToken.Type != token.IDENT {
		p.errorf("expected field name, got %q", p.curToken.Literal)
		p.nextToken()
		return nil
	}
	field.Name = p.curToken.Literal
	p.nextToken()

	if p.curToken.Type == token.LPAREN {
		field.Arguments = p.parseInputValueDefinitions()
	}
	if p.curToken.Type != token.COLON {
		p.errorf("expected ':' after field %q", field.Name)
		return nil
	}
	p.nextToken()
	field.Type = p.parseType()
	if p.curToken.Type == token.ASSIGN {
		// input fields may carry defaults; they are not needed by callers
		p.nextToken()
		p.parseValue()
	}
	field.Directives = p.parseDirectives()
	return field
}

// parseInputValueDefinitions parses "(name: Type = default, ...)".
func (p *Parser) parseInputValueDefinitions() []*ast.InputValueDefinition {
	var defs []*ast.InputValueDefinition
	p.nextToken() // skip '('
	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if p.curToken.Type == token.STRING {
			p.nextToken()
			continue
		}
		if p.curToken.Type != token.IDENT {
			p.errorf("expected argument name, got %q", p.curToken.Literal)
			p.nextToken()
			continue
		}
		def := &ast.InputValueDefinition{Name: p.curToken.Literal}
		p.nextToken()
		if p.curToken.Type != token.COLON {
			p.errorf("expected ':' after argument %q", def.Name)
			continue
		}
		p.nextToken()
		def.Type = p.parseType()
		if p.curToken.Type == token.ASSIGN {
			p.nextToken()
			def.DefaultValue = p.parseValue()
		}
		p.parseDirectives()
		defs = append(defs, def)
		p.skipCommas()
	}
	p.nextToken() // skip ')'
	return defs
}
