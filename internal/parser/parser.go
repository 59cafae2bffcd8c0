// Package parser implements the recursive-descent parser for a7. It
// consumes the token stream produced by the lexer and builds an untyped
// AST, recovering from errors at top-level declaration boundaries.
package parser

import (
	"fmt"
	"strings"

	"github.com/oxhq/a7c/internal/ast"
	"github.com/oxhq/a7c/internal/diag"
	"github.com/oxhq/a7c/internal/span"
	"github.com/oxhq/a7c/internal/token"
)

const (
	// maxIterations bounds the top-level declaration loop as a guard
	// against a recovery routine that stops making progress.
	maxIterations = 1000
	// maxSyncSkip bounds how many tokens synchronization may discard.
	maxSyncSkip = 100
	// structLiteralLookback is how far the parser looks behind a `Name{`
	// sequence for a statement keyword before allowing a struct literal.
	structLiteralLookback = 8
)

// Parser holds the token cursor and the source context used for
// diagnostics.
type Parser struct {
	tokens   []token.Token
	filename string
	lines    []string
	pos      int

	// bodyDepth tracks block nesting; errors raised inside a function
	// body propagate instead of triggering declaration-level recovery.
	bodyDepth int
	bodyError bool
}

// New builds a parser over tokens. lines are the split source lines,
// retained for diagnostic rendering.
func New(tokens []token.Token, filename string, lines []string) *Parser {
	p := &Parser{tokens: tokens, filename: filename, lines: lines}
	p.skipTerminators()
	return p
}

// Parse runs the full grammar and returns the PROGRAM root.
func Parse(tokens []token.Token, filename string, lines []string) (*ast.Node, *diag.Error) {
	return New(tokens, filename, lines).Parse()
}

func (p *Parser) current() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek(offset int) token.Token {
	pos := p.pos + offset
	if pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[pos]
}

func (p *Parser) advance() token.Token {
	prev := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return prev
}

func (p *Parser) match(kinds ...token.Kind) bool {
	cur := p.current().Kind
	for _, k := range kinds {
		if cur == k {
			return true
		}
	}
	return false
}

func (p *Parser) consume(kind token.Kind, message string) (token.Token, *diag.Error) {
	if !p.match(kind) {
		if message == "" {
			message = fmt.Sprintf("Expected %s, got %s", kind, p.current().Kind)
		}
		return token.Token{}, p.errorAtCurrent(message)
	}
	return p.advance(), nil
}

func (p *Parser) skipTerminators() {
	for p.match(token.TERMINATOR) {
		p.advance()
	}
}

func (p *Parser) atEnd() bool {
	return p.match(token.EOF)
}

func (p *Parser) errorAtCurrent(message string) *diag.Error {
	return p.errorAt(message, p.current())
}

func (p *Parser) errorAt(message string, t token.Token) *diag.Error {
	if p.bodyDepth > 0 {
		p.bodyError = true
	}
	return diag.NewParseError(message, t.Span(), p.filename, p.lines)
}

// Parse consumes the whole token stream. After at least one declaration
// has parsed, most errors trigger synchronization to the next declaration
// boundary; errors inside function bodies always propagate.
func (p *Parser) Parse() (*ast.Node, *diag.Error) {
	var declarations []*ast.Node

	p.skipTerminators()

	for iterations := 0; !p.atEnd() && iterations < maxIterations; iterations++ {
		prevPos := p.pos
		p.bodyError = false

		decl, err := p.parseDeclaration()
		if err != nil {
			if len(declarations) == 0 || p.bodyError {
				return nil, err
			}
			if len(declarations) == 1 && strings.Contains(err.Message, "Expected declaration") {
				return nil, p.errorAtCurrent(fmt.Sprintf(
					"Unexpected token '%s' after parsing complete program", p.current().Lexeme))
			}
			if strings.Contains(err.Message, "Expected expression after") {
				return nil, err
			}
			p.synchronize()
			if p.pos <= prevPos && !p.atEnd() {
				p.advance()
			}
			continue
		}

		if decl != nil {
			declarations = append(declarations, decl)
		}
		p.skipTerminators()
		if p.pos <= prevPos && !p.atEnd() {
			p.advance()
		}
	}

	if !p.atEnd() {
		return nil, p.errorAtCurrent(fmt.Sprintf(
			"Unexpected token '%s' after parsing complete program", p.current().Lexeme))
	}

	return ast.Program(declarations), nil
}

// synchronize discards tokens until a terminator or a token that can
// start a declaration, bounded by maxSyncSkip.
func (p *Parser) synchronize() {
	for skipped := 0; !p.atEnd() && skipped < maxSyncSkip; skipped++ {
		if p.match(token.TERMINATOR) {
			p.advance()
			return
		}
		if p.match(token.FN, token.STRUCT, token.ENUM, token.PUB, token.IMPORT) {
			return
		}
		if p.match(token.IDENTIFIER) {
			next := p.peek(1).Kind
			if next == token.DECLARE_CONST || next == token.DECLARE_VAR {
				return
			}
		}
		p.advance()
	}
	if !p.atEnd() {
		p.pos = len(p.tokens) - 1
	}
}

func (p *Parser) parseDeclaration() (*ast.Node, *diag.Error) {
	p.skipTerminators()
	if p.atEnd() {
		return nil, nil
	}

	isPublic := false
	if p.match(token.PUB) {
		isPublic = true
		p.advance()
	}

	if p.match(token.IMPORT) {
		return p.parseImport(isPublic)
	}

	if p.match(token.IDENTIFIER) {
		switch p.peek(1).Kind {
		case token.DECLARE_CONST:
			return p.parseConstOrTypeDecl(isPublic)
		case token.DECLARE_VAR:
			return p.parseVarDecl(isPublic)
		}
	}

	if p.match(token.FN) {
		return nil, p.errorAtCurrent("Function declarations must have names")
	}

	return nil, p.errorAtCurrent("Expected declaration (constant, variable, or function)")
}

func (p *Parser) parseImport(isPublic bool) (*ast.Node, *diag.Error) {
	importTok, err := p.consume(token.IMPORT, "")
	if err != nil {
		return nil, err
	}
	if !p.match(token.STRING_LITERAL) {
		return nil, p.errorAtCurrent("Expected module path after import")
	}
	pathTok := p.advance()
	return &ast.Node{
		Kind:       ast.IMPORT,
		ModulePath: trimQuotes(pathTok.Lexeme),
		IsPublic:   isPublic,
		Span:       importTok.Span(),
	}, nil
}

// parseConstOrTypeDecl parses `Name :: …` declarations: functions,
// structs, enums, unions, aliased imports, and plain constants.
func (p *Parser) parseConstOrTypeDecl(isPublic bool) (*ast.Node, *diag.Error) {
	nameTok := p.advance()
	if _, err := p.consume(token.DECLARE_CONST, ""); err != nil {
		return nil, err
	}

	switch p.current().Kind {
	case token.FN:
		return p.parseFunctionDecl(nameTok.Lexeme, isPublic, nameTok)
	case token.STRUCT:
		return p.parseStructDecl(nameTok.Lexeme, isPublic, nameTok)
	case token.ENUM:
		return p.parseEnumDecl(nameTok.Lexeme, isPublic, nameTok)
	case token.UNION:
		return p.parseUnionDecl(nameTok.Lexeme, isPublic, nameTok)
	case token.IMPORT:
		p.advance()
		if !p.match(token.STRING_LITERAL) {
			return nil, p.errorAtCurrent("Expected module path after import")
		}
		pathTok := p.advance()
		return &ast.Node{
			Kind:       ast.IMPORT,
			Name:       nameTok.Lexeme,
			ModulePath: trimQuotes(pathTok.Lexeme),
			IsPublic:   isPublic,
			Span:       nameTok.Span(),
		}, nil
	}

	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Node{
		Kind:     ast.CONST,
		Name:     nameTok.Lexeme,
		Value:    value,
		IsPublic: isPublic,
		Span:     nameTok.Span(),
	}, nil
}

func (p *Parser) parseVarDecl(isPublic bool) (*ast.Node, *diag.Error) {
	nameTok := p.advance()
	if _, err := p.consume(token.DECLARE_VAR, ""); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Node{
		Kind:     ast.VAR,
		Name:     nameTok.Lexeme,
		Value:    value,
		IsPublic: isPublic,
		Span:     nameTok.Span(),
	}, nil
}

func (p *Parser) parseFunctionDecl(name string, isPublic bool, nameTok token.Token) (*ast.Node, *diag.Error) {
	if _, err := p.consume(token.FN, ""); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LEFT_PAREN, ""); err != nil {
		return nil, err
	}

	genericParams, params, err := p.parseMixedParameters()
	if err != nil {
		return nil, err
	}

	var returnType *ast.Node
	if !p.match(token.LEFT_BRACE) && p.startsType() {
		returnType, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}

	if !p.match(token.LEFT_BRACE) {
		return nil, p.errorAtCurrent("Expected function body after function signature")
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.Node{
		Kind:          ast.FUNCTION,
		Name:          name,
		Parameters:    params,
		GenericParams: genericParams,
		ReturnType:    returnType,
		Body:          body,
		IsPublic:      isPublic,
		Span:          nameTok.Span(),
	}, nil
}

func (p *Parser) startsType() bool {
	cur := p.current().Kind
	return cur.IsPrimitiveType() ||
		cur == token.IDENTIFIER || cur == token.GENERIC_TYPE ||
		cur == token.REF || cur == token.LEFT_BRACKET ||
		cur == token.FN || cur == token.STRUCT
}

// parseMixedParameters parses the parameter list of a function, where
// generic type parameters ($T) and value parameters (name: Type) share
// one set of parentheses.
func (p *Parser) parseMixedParameters() (generics, params []*ast.Node, err *diag.Error) {
	for !p.match(token.RIGHT_PAREN) && !p.atEnd() {
		p.skipTerminators()
		if p.match(token.RIGHT_PAREN) {
			break
		}
		if p.match(token.GENERIC_TYPE) {
			genTok := p.advance()
			generics = append(generics, &ast.Node{
				Kind: ast.GENERIC_PARAM,
				Name: genTok.Lexeme[1:], // drop '$'
				Span: genTok.Span(),
			})
		} else {
			param, perr := p.parseParameter()
			if perr != nil {
				return nil, nil, perr
			}
			params = append(params, param)
		}

		if p.match(token.COMMA) {
			p.advance()
		} else if !p.match(token.RIGHT_PAREN) {
			break
		}
	}
	p.skipTerminators()
	if _, cerr := p.consume(token.RIGHT_PAREN, ""); cerr != nil {
		return nil, nil, cerr
	}
	return generics, params, nil
}

func (p *Parser) parseParameter() (*ast.Node, *diag.Error) {
	nameTok, err := p.consume(token.IDENTIFIER, "")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.COLON, ""); err != nil {
		return nil, err
	}
	paramType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return &ast.Node{
		Kind:      ast.PARAMETER,
		Name:      nameTok.Lexeme,
		ParamType: paramType,
		Span:      nameTok.Span(),
	}, nil
}

func (p *Parser) parseType() (*ast.Node, *diag.Error) {
	startTok := p.current()

	// Reference types: ref T.
	if p.match(token.REF) {
		p.advance()
		target, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.TYPE_POINTER, TargetType: target, Span: startTok.Span()}, nil
	}

	// Array [N]T and slice []T types.
	if p.match(token.LEFT_BRACKET) {
		p.advance()
		var size *ast.Node
		if !p.match(token.RIGHT_BRACKET) {
			var err *diag.Error
			size, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.consume(token.RIGHT_BRACKET, ""); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if size != nil {
			return &ast.Node{Kind: ast.TYPE_ARRAY, ElementType: elem, Size: size, Span: startTok.Span()}, nil
		}
		return &ast.Node{Kind: ast.TYPE_SLICE, ElementType: elem, Span: startTok.Span()}, nil
	}

	// Function types: fn(T1, T2) R.
	if p.match(token.FN) {
		p.advance()
		if _, err := p.consume(token.LEFT_PAREN, ""); err != nil {
			return nil, err
		}
		var paramTypes []*ast.Node
		for !p.match(token.RIGHT_PAREN) && !p.atEnd() {
			pt, err := p.parseType()
			if err != nil {
				return nil, err
			}
			paramTypes = append(paramTypes, pt)
			if p.match(token.COMMA) {
				p.advance()
			} else {
				break
			}
		}
		if _, err := p.consume(token.RIGHT_PAREN, ""); err != nil {
			return nil, err
		}
		var ret *ast.Node
		if p.startsType() {
			var err *diag.Error
			ret, err = p.parseType()
			if err != nil {
				return nil, err
			}
		}
		return &ast.Node{
			Kind:       ast.TYPE_FUNCTION,
			Parameters: paramTypes,
			ReturnType: ret,
			Span:       startTok.Span(),
		}, nil
	}

	// Inline struct types: struct { name: T, … }.
	if p.match(token.STRUCT) {
		p.advance()
		fields, err := p.parseFieldList()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.TYPE_STRUCT, Fields: fields, Span: startTok.Span()}, nil
	}

	// Generic types: $T.
	if p.match(token.GENERIC_TYPE) {
		genTok := p.advance()
		return &ast.Node{Kind: ast.TYPE_GENERIC, Name: genTok.Lexeme[1:], Span: genTok.Span()}, nil
	}

	// Named types.
	if p.match(token.IDENTIFIER) {
		nameTok := p.advance()
		return &ast.Node{Kind: ast.TYPE_IDENTIFIER, Name: nameTok.Lexeme, Span: nameTok.Span()}, nil
	}

	// Primitive types.
	if p.current().Kind.IsPrimitiveType() {
		primTok := p.advance()
		return ast.PrimitiveType(primTok.Kind.PrimitiveName(), primTok.Span()), nil
	}

	return nil, p.errorAtCurrent("Expected type")
}

// parseFieldList parses `{ name: Type, … }` shared by struct and union
// bodies.
func (p *Parser) parseFieldList() ([]*ast.Node, *diag.Error) {
	if _, err := p.consume(token.LEFT_BRACE, ""); err != nil {
		return nil, err
	}
	var fields []*ast.Node
	for !p.match(token.RIGHT_BRACE) && !p.atEnd() {
		p.skipTerminators()
		if p.match(token.RIGHT_BRACE) {
			break
		}
		nameTok, err := p.consume(token.IDENTIFIER, "")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.COLON, ""); err != nil {
			return nil, err
		}
		fieldType, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, &ast.Node{
			Kind:      ast.FIELD,
			Name:      nameTok.Lexeme,
			FieldType: fieldType,
			Span:      nameTok.Span(),
		})
		if p.match(token.COMMA) {
			p.advance()
		}
		p.skipTerminators()
	}
	if _, err := p.consume(token.RIGHT_BRACE, ""); err != nil {
		return nil, err
	}
	return fields, nil
}

func (p *Parser) parseStructDecl(name string, isPublic bool, nameTok token.Token) (*ast.Node, *diag.Error) {
	if _, err := p.consume(token.STRUCT, ""); err != nil {
		return nil, err
	}

	var genericParams []*ast.Node
	if p.match(token.LEFT_PAREN) && p.peek(1).Kind == token.GENERIC_TYPE {
		p.advance()
		for !p.match(token.RIGHT_PAREN) && !p.atEnd() {
			if p.match(token.GENERIC_TYPE) {
				genTok := p.advance()
				genericParams = append(genericParams, &ast.Node{
					Kind: ast.GENERIC_PARAM,
					Name: genTok.Lexeme[1:],
					Span: genTok.Span(),
				})
			}
			if p.match(token.COMMA) {
				p.advance()
			} else {
				break
			}
		}
		if _, err := p.consume(token.RIGHT_PAREN, ""); err != nil {
			return nil, err
		}
	}

	fields, err := p.parseFieldList()
	if err != nil {
		return nil, err
	}

	return &ast.Node{
		Kind:          ast.STRUCT,
		Name:          name,
		Fields:        fields,
		GenericParams: genericParams,
		IsPublic:      isPublic,
		Span:          nameTok.Span(),
	}, nil
}

func (p *Parser) parseEnumDecl(name string, isPublic bool, nameTok token.Token) (*ast.Node, *diag.Error) {
	if _, err := p.consume(token.ENUM, ""); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LEFT_BRACE, ""); err != nil {
		return nil, err
	}

	var variants []*ast.Node
	p.skipTerminators()
	for !p.match(token.RIGHT_BRACE) && !p.atEnd() {
		variantTok, err := p.consume(token.IDENTIFIER, "")
		if err != nil {
			return nil, err
		}
		variant := &ast.Node{
			Kind: ast.ENUM_VARIANT,
			Name: variantTok.Lexeme,
			Span: variantTok.Span(),
		}
		if p.match(token.ASSIGN) {
			p.advance()
			value, verr := p.parseExpression()
			if verr != nil {
				return nil, verr
			}
			variant.Value = value
		}
		variants = append(variants, variant)

		if p.match(token.COMMA) {
			p.advance()
		}
		p.skipTerminators()
	}
	if _, err := p.consume(token.RIGHT_BRACE, ""); err != nil {
		return nil, err
	}

	return &ast.Node{
		Kind:     ast.ENUM,
		Name:     name,
		Variants: variants,
		IsPublic: isPublic,
		Span:     nameTok.Span(),
	}, nil
}

func (p *Parser) parseUnionDecl(name string, isPublic bool, nameTok token.Token) (*ast.Node, *diag.Error) {
	if _, err := p.consume(token.UNION, ""); err != nil {
		return nil, err
	}

	isTagged := false
	if p.match(token.LEFT_PAREN) {
		p.advance()
		if p.match(token.IDENTIFIER) && p.current().Lexeme == "tag" {
			isTagged = true
			p.advance()
		}
		if _, err := p.consume(token.RIGHT_PAREN, ""); err != nil {
			return nil, err
		}
	}

	fields, err := p.parseFieldList()
	if err != nil {
		return nil, err
	}

	return &ast.Node{
		Kind:     ast.UNION,
		Name:     name,
		Fields:   fields,
		IsTagged: isTagged,
		IsPublic: isPublic,
		Span:     nameTok.Span(),
	}, nil
}

func (p *Parser) parseBlock() (*ast.Node, *diag.Error) {
	startTok, err := p.consume(token.LEFT_BRACE, "")
	if err != nil {
		return nil, err
	}

	p.bodyDepth++
	defer func() { p.bodyDepth-- }()

	var statements []*ast.Node
	p.skipTerminators()
	for !p.match(token.RIGHT_BRACE) && !p.atEnd() {
		stmt, serr := p.parseStatement()
		if serr != nil {
			return nil, serr
		}
		if stmt != nil {
			statements = append(statements, stmt)
		}
		p.skipTerminators()
	}

	endTok, err := p.consume(token.RIGHT_BRACE, "")
	if err != nil {
		return nil, err
	}

	return &ast.Node{
		Kind:       ast.BLOCK,
		Statements: statements,
		Span:       span.Between(startTok.Span(), endTok.Span()),
	}, nil
}

func (p *Parser) parseStatement() (*ast.Node, *diag.Error) {
	startTok := p.current()

	switch startTok.Kind {
	case token.RET:
		p.advance()
		var value *ast.Node
		if !p.match(token.TERMINATOR, token.RIGHT_BRACE) {
			var err *diag.Error
			value, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}
		return &ast.Node{Kind: ast.RETURN, Value: value, Span: startTok.Span()}, nil

	case token.BREAK:
		p.advance()
		return &ast.Node{Kind: ast.BREAK, Span: startTok.Span()}, nil

	case token.CONTINUE:
		p.advance()
		return &ast.Node{Kind: ast.CONTINUE, Span: startTok.Span()}, nil

	case token.FALL:
		p.advance()
		return &ast.Node{Kind: ast.FALL, Span: startTok.Span()}, nil

	case token.MATCH:
		return p.parseMatchStatement()

	case token.DEFER:
		p.advance()
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.DEFER, Statement: stmt, Span: startTok.Span()}, nil

	case token.DEL:
		p.advance()
		operand, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.DEL, Operand: operand, Span: startTok.Span()}, nil

	case token.IF:
		return p.parseIfStatement()

	case token.WHILE:
		return p.parseWhileStatement()

	case token.FOR:
		return p.parseForStatement()

	case token.LEFT_BRACE:
		return p.parseBlock()
	}

	// Local declarations: name := value, name: T = value, name :: value.
	if p.match(token.IDENTIFIER) {
		switch p.peek(1).Kind {
		case token.DECLARE_VAR:
			nameTok := p.advance()
			p.advance() // :=
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			return &ast.Node{Kind: ast.VAR, Name: nameTok.Lexeme, Value: value, Span: nameTok.Span()}, nil

		case token.COLON:
			nameTok := p.advance()
			p.advance() // :
			explicitType, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.ASSIGN, ""); err != nil {
				return nil, err
			}
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			return &ast.Node{
				Kind:         ast.VAR,
				Name:         nameTok.Lexeme,
				ExplicitType: explicitType,
				Value:        value,
				Span:         nameTok.Span(),
			}, nil

		case token.DECLARE_CONST:
			nameTok := p.advance()
			p.advance() // ::
			switch p.current().Kind {
			case token.STRUCT:
				return p.parseStructDecl(nameTok.Lexeme, false, nameTok)
			case token.ENUM:
				return p.parseEnumDecl(nameTok.Lexeme, false, nameTok)
			case token.UNION:
				return p.parseUnionDecl(nameTok.Lexeme, false, nameTok)
			case token.FN:
				return p.parseFunctionDecl(nameTok.Lexeme, false, nameTok)
			}
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			return &ast.Node{Kind: ast.CONST, Name: nameTok.Lexeme, Value: value, Span: nameTok.Span()}, nil
		}
	}

	return p.parseExpressionOrAssignment()
}

func (p *Parser) parseIfStatement() (*ast.Node, *diag.Error) {
	ifTok := p.advance()
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	thenStmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	var elseStmt *ast.Node
	if p.match(token.ELSE) {
		p.advance()
		elseStmt, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}

	return &ast.Node{
		Kind:      ast.IF_STMT,
		Condition: condition,
		Then:      thenStmt,
		Else:      elseStmt,
		Span:      ifTok.Span(),
	}, nil
}

func (p *Parser) parseWhileStatement() (*ast.Node, *diag.Error) {
	whileTok := p.advance()
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.Node{
		Kind:      ast.WHILE,
		Condition: condition,
		Body:      body,
		Span:      whileTok.Span(),
	}, nil
}

// parseForStatement disambiguates the four for-forms by the tokens
// following `for`: `{` is the infinite loop; an identifier followed by
// `,` or `in` is iteration; any other identifier starts the C-style form.
// A header starting with neither `{` nor an identifier is an error.
func (p *Parser) parseForStatement() (*ast.Node, *diag.Error) {
	forTok := p.advance()

	if p.match(token.LEFT_BRACE) {
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.FOR, Body: body, Span: forTok.Span()}, nil
	}

	if !p.match(token.IDENTIFIER) {
		return nil, p.errorAtCurrent("Expected identifier or '{' after 'for' keyword")
	}

	firstTok := p.advance()

	switch p.current().Kind {
	case token.COMMA:
		// for index, value in iterable { … }
		p.advance()
		if !p.match(token.IDENTIFIER) {
			return nil, p.errorAtCurrent("Expected identifier after comma in for loop")
		}
		secondTok := p.advance()
		if !p.match(token.IN) {
			return nil, p.errorAtCurrent("Expected 'in' keyword in for loop")
		}
		p.advance()
		iterable, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.Node{
			Kind:     ast.FOR_IN_INDEXED,
			IndexVar: firstTok.Lexeme,
			Iterator: secondTok.Lexeme,
			Iterable: iterable,
			Body:     body,
			Span:     forTok.Span(),
		}, nil

	case token.IN:
		// for value in iterable { … }
		p.advance()
		iterable, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.Node{
			Kind:     ast.FOR_IN,
			Iterator: firstTok.Lexeme,
			Iterable: iterable,
			Body:     body,
			Span:     forTok.Span(),
		}, nil
	}

	// C-style: rewind to the identifier and parse init as a declaration
	// or expression statement.
	p.pos--

	var init *ast.Node
	var err *diag.Error
	if p.peek(1).Kind == token.DECLARE_VAR {
		nameTok := p.advance()
		p.advance() // :=
		value, verr := p.parseExpression()
		if verr != nil {
			return nil, verr
		}
		init = &ast.Node{Kind: ast.VAR, Name: nameTok.Lexeme, Value: value, Span: nameTok.Span()}
	} else {
		init, err = p.parseExpressionOrAssignment()
		if err != nil {
			return nil, err
		}
	}

	if !p.match(token.TERMINATOR) {
		return nil, p.errorAtCurrent("Expected ';' or newline in for loop")
	}
	p.advance()

	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.match(token.TERMINATOR) {
		return nil, p.errorAtCurrent("Expected ';' or newline in for loop")
	}
	p.advance()

	update, err := p.parseExpressionOrAssignment()
	if err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.Node{
		Kind:      ast.FOR,
		Init:      init,
		Condition: condition,
		Update:    update,
		Body:      body,
		Span:      forTok.Span(),
	}, nil
}

func (p *Parser) parseMatchStatement() (*ast.Node, *diag.Error) {
	matchTok := p.advance()
	expression, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LEFT_BRACE, ""); err != nil {
		return nil, err
	}
	p.skipTerminators()

	var cases []*ast.Node
	var elseCase []*ast.Node

	for !p.match(token.RIGHT_BRACE) && !p.atEnd() {
		switch {
		case p.match(token.CASE):
			caseTok := p.advance()
			patterns := []*ast.Node{}
			pattern, perr := p.parsePattern()
			if perr != nil {
				return nil, perr
			}
			patterns = append(patterns, pattern)
			for p.match(token.COMMA) {
				p.advance()
				pattern, perr = p.parsePattern()
				if perr != nil {
					return nil, perr
				}
				patterns = append(patterns, pattern)
			}
			if _, cerr := p.consume(token.COLON, ""); cerr != nil {
				return nil, cerr
			}
			body, berr := p.parseStatement()
			if berr != nil {
				return nil, berr
			}
			cases = append(cases, &ast.Node{
				Kind:      ast.CASE_BRANCH,
				Patterns:  patterns,
				Statement: body,
				Span:      caseTok.Span(),
			})

		case p.match(token.ELSE):
			p.advance()
			if _, cerr := p.consume(token.COLON, ""); cerr != nil {
				return nil, cerr
			}
			stmt, serr := p.parseStatement()
			if serr != nil {
				return nil, serr
			}
			elseCase = []*ast.Node{stmt}

		default:
			return nil, p.errorAtCurrent("Expected 'case' or 'else' in match statement")
		}
		p.skipTerminators()
	}

	if _, err := p.consume(token.RIGHT_BRACE, ""); err != nil {
		return nil, err
	}

	return &ast.Node{
		Kind:       ast.MATCH,
		Expression: expression,
		Cases:      cases,
		ElseCase:   elseCase,
		Span:       matchTok.Span(),
	}, nil
}

// parsePattern parses a match pattern: literal, identifier,
// EnumName.Variant, or a range start..end.
func (p *Parser) parsePattern() (*ast.Node, *diag.Error) {
	startTok := p.current()
	pattern, err := p.parsePrimaryPattern()
	if err != nil {
		return nil, err
	}

	if p.match(token.DOT_DOT) {
		p.advance()
		end, eerr := p.parsePrimaryPattern()
		if eerr != nil {
			return nil, eerr
		}
		return &ast.Node{
			Kind:  ast.PATTERN_RANGE,
			Start: pattern,
			End:   end,
			Span:  startTok.Span(),
		}, nil
	}
	return pattern, nil
}

func (p *Parser) parsePrimaryPattern() (*ast.Node, *diag.Error) {
	startTok := p.current()

	if p.match(token.INTEGER_LITERAL, token.FLOAT_LITERAL, token.CHAR_LITERAL, token.STRING_LITERAL) {
		return &ast.Node{
			Kind:    ast.PATTERN_LITERAL,
			Literal: ast.LiteralFromToken(p.advance()),
			Span:    startTok.Span(),
		}, nil
	}

	if p.match(token.IDENTIFIER) {
		firstTok := p.advance()
		if p.match(token.DOT) {
			p.advance()
			if !p.match(token.IDENTIFIER) {
				return nil, p.errorAtCurrent("Expected identifier after '.' in pattern")
			}
			variantTok := p.advance()
			return &ast.Node{
				Kind:     ast.PATTERN_ENUM,
				EnumType: firstTok.Lexeme,
				Variant:  variantTok.Lexeme,
				Span:     startTok.Span(),
			}, nil
		}
		return &ast.Node{
			Kind: ast.PATTERN_IDENTIFIER,
			Name: firstTok.Lexeme,
			Span: startTok.Span(),
		}, nil
	}

	// Complex patterns fall back to expression parsing.
	return p.parseExpression()
}

func (p *Parser) parseExpressionOrAssignment() (*ast.Node, *diag.Error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.current().Kind.IsAssignOp() {
		opTok := p.advance()
		value, verr := p.parseExpression()
		if verr != nil {
			return nil, verr
		}
		return &ast.Node{
			Kind:   ast.ASSIGNMENT,
			Target: expr,
			AsgOp:  ast.AssignOpForToken(opTok.Kind),
			Value:  value,
			Span:   expr.Span,
		}, nil
	}

	if !validExpressionStatement(expr) {
		if expr.Kind == ast.IDENTIFIER {
			if p.match(token.INTEGER_LITERAL, token.FLOAT_LITERAL, token.STRING_LITERAL, token.CHAR_LITERAL) {
				return nil, p.errorAtCurrent(
					"Missing assignment operator (:= or =) between identifier and value")
			}
			return nil, p.errorAtCurrent(fmt.Sprintf(
				"Identifier '%s' cannot be used as a statement", expr.Name))
		}
		return nil, p.errorAtCurrent(fmt.Sprintf(
			"Expression of type %s cannot be used as a statement", expr.Kind))
	}

	return &ast.Node{Kind: ast.EXPRESSION_STMT, Expression: expr, Span: expr.Span}, nil
}

// validExpressionStatement rejects bare literals and identifiers as
// statements; every other expression form is allowed.
func validExpressionStatement(expr *ast.Node) bool {
	return expr.Kind != ast.LITERAL && expr.Kind != ast.IDENTIFIER
}

func (p *Parser) parseExpression() (*ast.Node, *diag.Error) {
	return p.parseBinaryExpression(0)
}

func (p *Parser) parseBinaryExpression(minPrecedence int) (*ast.Node, *diag.Error) {
	left, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}

	for {
		opTok := p.current()
		binOp := ast.BinaryOpForToken(opTok.Kind)
		if binOp == ast.BinNone {
			break
		}
		precedence := binOp.Precedence()
		if precedence < minPrecedence {
			break
		}

		p.advance()

		if p.atEnd() || p.match(token.TERMINATOR, token.RIGHT_PAREN,
			token.RIGHT_BRACE, token.RIGHT_BRACKET, token.COMMA) {
			return nil, p.errorAtCurrent(fmt.Sprintf(
				"Expected expression after '%s' operator", opTok.Lexeme))
		}

		right, rerr := p.parseBinaryExpression(precedence + 1)
		if rerr != nil {
			return nil, rerr
		}

		left = &ast.Node{
			Kind:  ast.BINARY,
			Left:  left,
			BinOp: binOp,
			Right: right,
			Span:  span.Between(left.Span, right.Span),
		}
	}

	return left, nil
}

func (p *Parser) parseUnaryExpression() (*ast.Node, *diag.Error) {
	startTok := p.current()

	if unOp := ast.UnaryOpForToken(startTok.Kind); unOp != ast.UnNone {
		p.advance()
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Node{
			Kind:    ast.UNARY,
			UnOp:    unOp,
			Operand: operand,
			Span:    startTok.Span(),
		}, nil
	}

	return p.parsePostfixExpression()
}

func (p *Parser) parsePostfixExpression() (*ast.Node, *diag.Error) {
	expr, err := p.parsePrimaryExpression()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current().Kind {
		case token.LEFT_PAREN:
			expr, err = p.parseCallExpression(expr)
		case token.LEFT_BRACKET:
			expr, err = p.parseIndexExpression(expr)
		case token.DOT:
			expr, err = p.parseFieldAccess(expr)
		default:
			return expr, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseCallExpression(function *ast.Node) (*ast.Node, *diag.Error) {
	p.advance() // (
	var arguments []*ast.Node

	if !p.match(token.RIGHT_PAREN) {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		arguments = append(arguments, arg)
		for p.match(token.COMMA) {
			p.advance()
			arg, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
			arguments = append(arguments, arg)
		}
	}

	if _, err := p.consume(token.RIGHT_PAREN, ""); err != nil {
		return nil, err
	}

	return &ast.Node{
		Kind:      ast.CALL,
		Function:  function,
		Arguments: arguments,
		Span:      function.Span,
	}, nil
}

func (p *Parser) parseIndexExpression(object *ast.Node) (*ast.Node, *diag.Error) {
	p.advance() // [

	// Slice from the start: [..end].
	if p.match(token.DOT_DOT) {
		p.advance()
		var end *ast.Node
		if !p.match(token.RIGHT_BRACKET) {
			var err *diag.Error
			end, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.consume(token.RIGHT_BRACKET, ""); err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.SLICE, Object: object, End: end, Span: object.Span}, nil
	}

	index, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	// Slice with both bounds: [a..b] or [a..].
	if p.match(token.DOT_DOT) {
		p.advance()
		var end *ast.Node
		if !p.match(token.RIGHT_BRACKET) {
			end, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}
		if _, cerr := p.consume(token.RIGHT_BRACKET, ""); cerr != nil {
			return nil, cerr
		}
		return &ast.Node{Kind: ast.SLICE, Object: object, Start: index, End: end, Span: object.Span}, nil
	}

	if _, cerr := p.consume(token.RIGHT_BRACKET, ""); cerr != nil {
		return nil, cerr
	}
	return &ast.Node{Kind: ast.INDEX, Object: object, Index: index, Span: object.Span}, nil
}

// parseFieldAccess parses `.name`. The pointer sugar fields `adr` and
// `val` are kept as FIELD_ACCESS nodes here; the preprocessor lowers
// them to ADDRESS_OF and DEREF.
func (p *Parser) parseFieldAccess(object *ast.Node) (*ast.Node, *diag.Error) {
	p.advance() // .
	if !p.match(token.IDENTIFIER) {
		return nil, p.errorAtCurrent("Expected field name after '.'")
	}
	fieldTok := p.advance()
	return &ast.Node{
		Kind:   ast.FIELD_ACCESS,
		Object: object,
		Field:  fieldTok.Lexeme,
		Span:   object.Span,
	}, nil
}

func (p *Parser) parsePrimaryExpression() (*ast.Node, *diag.Error) {
	startTok := p.current()

	switch startTok.Kind {
	case token.INTEGER_LITERAL, token.FLOAT_LITERAL, token.CHAR_LITERAL,
		token.STRING_LITERAL, token.TRUE_LITERAL, token.FALSE_LITERAL,
		token.NIL_LITERAL:
		return ast.LiteralFromToken(p.advance()), nil

	case token.LEFT_BRACKET:
		return p.parseArrayLiteral()

	case token.NEW:
		p.advance()
		targetType, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.NEW_EXPR, TargetType: targetType, Span: startTok.Span()}, nil

	case token.IDENTIFIER:
		nameTok := p.advance()

		// cast(T, expr) is spelled like a call.
		if nameTok.Lexeme == "cast" && p.match(token.LEFT_PAREN) {
			return p.parseCastExpression(startTok)
		}

		if p.match(token.LEFT_BRACE) && p.allowStructLiteral() {
			return p.parseStructLiteral(nameTok.Lexeme, startTok.Span())
		}
		return &ast.Node{Kind: ast.IDENTIFIER, Name: nameTok.Lexeme, Span: nameTok.Span()}, nil

	case token.BUILTIN_ID:
		builtinTok := p.advance()
		return &ast.Node{Kind: ast.IDENTIFIER, Name: builtinTok.Lexeme, Span: builtinTok.Span()}, nil

	case token.LEFT_PAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, cerr := p.consume(token.RIGHT_PAREN, ""); cerr != nil {
			return nil, cerr
		}
		return expr, nil

	case token.IF:
		return p.parseIfExpression()
	}

	return nil, p.errorAtCurrent("Expected expression")
}

// allowStructLiteral implements the context-sensitive `Name{` rule: in a
// position where a statement may begin with `{`, the brace opens a block,
// not a struct literal. The parser looks back a bounded number of tokens
// for one of the keywords that introduce such positions.
func (p *Parser) allowStructLiteral() bool {
	lookback := structLiteralLookback
	if p.pos < lookback {
		lookback = p.pos
	}
	for i := 1; i <= lookback; i++ {
		switch p.tokens[p.pos-i].Kind {
		case token.IF, token.WHILE, token.FOR, token.MATCH, token.ELSE:
			return false
		}
	}
	return true
}

func (p *Parser) parseCastExpression(startTok token.Token) (*ast.Node, *diag.Error) {
	p.advance() // (
	targetType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, cerr := p.consume(token.COMMA, "Expected ',' after type in cast expression"); cerr != nil {
		return nil, cerr
	}
	expression, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, cerr := p.consume(token.RIGHT_PAREN, "Expected ')' after cast expression"); cerr != nil {
		return nil, cerr
	}
	return &ast.Node{
		Kind:       ast.CAST,
		TargetType: targetType,
		Expression: expression,
		Span:       startTok.Span(),
	}, nil
}

func (p *Parser) parseIfExpression() (*ast.Node, *diag.Error) {
	ifTok := p.advance()
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, cerr := p.consume(token.LEFT_BRACE, ""); cerr != nil {
		return nil, cerr
	}
	thenExpr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, cerr := p.consume(token.RIGHT_BRACE, ""); cerr != nil {
		return nil, cerr
	}

	var elseExpr *ast.Node
	if p.match(token.ELSE) {
		p.advance()
		if _, cerr := p.consume(token.LEFT_BRACE, ""); cerr != nil {
			return nil, cerr
		}
		elseExpr, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, cerr := p.consume(token.RIGHT_BRACE, ""); cerr != nil {
			return nil, cerr
		}
	}

	return &ast.Node{
		Kind:      ast.IF_EXPR,
		Condition: condition,
		ThenExpr:  thenExpr,
		ElseExpr:  elseExpr,
		Span:      ifTok.Span(),
	}, nil
}

func (p *Parser) parseArrayLiteral() (*ast.Node, *diag.Error) {
	startTok := p.advance() // [
	var elements []*ast.Node

	if !p.match(token.RIGHT_BRACKET) {
		elem, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		elements = append(elements, elem)
		for p.match(token.COMMA) {
			p.advance()
			if p.match(token.RIGHT_BRACKET) { // trailing comma
				break
			}
			elem, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
			elements = append(elements, elem)
		}
	}

	if _, err := p.consume(token.RIGHT_BRACKET, ""); err != nil {
		return nil, err
	}

	return &ast.Node{Kind: ast.ARRAY_INIT, Elements: elements, Span: startTok.Span()}, nil
}

// parseStructLiteral parses `Name{field: v, …}` (named) or `Name{v1, v2}`
// (positional; the preprocessor assigns field names later).
func (p *Parser) parseStructLiteral(structName string, sp span.Span) (*ast.Node, *diag.Error) {
	p.advance() // {
	var fieldInits []*ast.Node

	p.skipTerminators()
	if !p.match(token.RIGHT_BRACE) {
		named := p.match(token.IDENTIFIER) && p.peek(1).Kind == token.COLON

		for {
			var init *ast.Node
			if named {
				nameTok, err := p.consume(token.IDENTIFIER, "")
				if err != nil {
					return nil, err
				}
				if _, err := p.consume(token.COLON, ""); err != nil {
					return nil, err
				}
				value, verr := p.parseExpression()
				if verr != nil {
					return nil, verr
				}
				init = &ast.Node{
					Kind:  ast.FIELD_INIT,
					Name:  nameTok.Lexeme,
					Value: value,
					Span:  nameTok.Span(),
				}
			} else {
				value, verr := p.parseExpression()
				if verr != nil {
					return nil, verr
				}
				init = &ast.Node{Kind: ast.FIELD_INIT, Value: value, Span: value.Span}
			}
			fieldInits = append(fieldInits, init)

			if !p.match(token.COMMA) {
				break
			}
			p.advance()
			p.skipTerminators()
			if p.match(token.RIGHT_BRACE) { // trailing comma
				break
			}
		}
	}

	p.skipTerminators()
	if _, err := p.consume(token.RIGHT_BRACE, ""); err != nil {
		return nil, err
	}

	return &ast.Node{
		Kind:       ast.STRUCT_INIT,
		StructType: structName,
		FieldInits: fieldInits,
		Span:       sp,
	}, nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
