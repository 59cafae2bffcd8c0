package ast

import (
	"strconv"
	"strings"

	"github.com/oxhq/a7c/internal/span"
	"github.com/oxhq/a7c/internal/token"
)

// LiteralFromToken converts a literal token into a LITERAL node, parsing
// the numeric value and unescaping string and char payloads. RawText
// keeps the source lexeme for emission.
func LiteralFromToken(t token.Token) *Node {
	n := &Node{Kind: LITERAL, Span: t.Span(), RawText: t.Lexeme}

	switch t.Kind {
	case token.INTEGER_LITERAL:
		n.LiteralKind = LitInteger
		n.IntVal = parseInt(t.Lexeme)
	case token.FLOAT_LITERAL:
		n.LiteralKind = LitFloat
		n.FloatVal, _ = strconv.ParseFloat(t.Lexeme, 64)
	case token.STRING_LITERAL:
		n.LiteralKind = LitString
		n.StrVal = unquote(t.Lexeme)
	case token.CHAR_LITERAL:
		n.LiteralKind = LitChar
		n.StrVal = unquote(t.Lexeme)
	case token.TRUE_LITERAL:
		n.LiteralKind = LitBoolean
		n.BoolVal = true
	case token.FALSE_LITERAL:
		n.LiteralKind = LitBoolean
	case token.NIL_LITERAL:
		n.LiteralKind = LitNil
	}
	return n
}

// IntLiteral builds an integer LITERAL node, used by constant folding.
func IntLiteral(v int64, sp span.Span) *Node {
	return &Node{
		Kind:        LITERAL,
		Span:        sp,
		LiteralKind: LitInteger,
		IntVal:      v,
		RawText:     strconv.FormatInt(v, 10),
	}
}

// FloatLiteral builds a float LITERAL node.
func FloatLiteral(v float64, sp span.Span) *Node {
	return &Node{
		Kind:        LITERAL,
		Span:        sp,
		LiteralKind: LitFloat,
		FloatVal:    v,
		RawText:     strconv.FormatFloat(v, 'g', -1, 64),
	}
}

// BoolLiteral builds a boolean LITERAL node.
func BoolLiteral(v bool, sp span.Span) *Node {
	return &Node{
		Kind:        LITERAL,
		Span:        sp,
		LiteralKind: LitBoolean,
		BoolVal:     v,
		RawText:     strconv.FormatBool(v),
	}
}

// PrimitiveType builds a TYPE_PRIMITIVE node.
func PrimitiveType(name string, sp span.Span) *Node {
	return &Node{Kind: TYPE_PRIMITIVE, Name: name, Span: sp}
}

func parseInt(text string) int64 {
	base := 10
	digits := text
	switch {
	case strings.HasPrefix(text, "0x"), strings.HasPrefix(text, "0X"):
		base, digits = 16, text[2:]
	case strings.HasPrefix(text, "0b"), strings.HasPrefix(text, "0B"):
		base, digits = 2, text[2:]
	case strings.HasPrefix(text, "0o"), strings.HasPrefix(text, "0O"):
		base, digits = 8, text[2:]
	}
	v, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		// Literals beyond int64 that still fit in uint64 keep their bit
		// pattern (and read as negative); larger ones saturate at the
		// int64 maximum. RawText keeps the source text either way.
		if u, uerr := strconv.ParseUint(digits, base, 64); uerr == nil {
			return int64(u)
		}
	}
	return v
}

// unquote strips the surrounding quotes and decodes the escape sequences
// the lexer accepted.
func unquote(lexeme string) string {
	if len(lexeme) < 2 {
		return lexeme
	}
	body := lexeme[1 : len(lexeme)-1]
	if !strings.ContainsRune(body, '\\') {
		return body
	}

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case '\\':
			b.WriteByte('\\')
		case '\'':
			b.WriteByte('\'')
		case '"':
			b.WriteByte('"')
		case 'x':
			if i+2 < len(body) {
				if v, err := strconv.ParseUint(body[i+1:i+3], 16, 8); err == nil {
					b.WriteByte(byte(v))
					i += 2
					continue
				}
			}
			b.WriteByte('x')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}
