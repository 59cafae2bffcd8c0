// Package token defines the terminal vocabulary of the a7 language: token
// kinds, the token record produced by the lexer, and the keyword table.
package token

import (
	"fmt"

	"github.com/oxhq/a7c/internal/span"
)

// Kind discriminates every terminal the lexer can produce.
type Kind uint8

const (
	ILLEGAL Kind = iota

	// Literals
	INTEGER_LITERAL
	FLOAT_LITERAL
	STRING_LITERAL
	CHAR_LITERAL
	TRUE_LITERAL
	FALSE_LITERAL
	NIL_LITERAL

	// Identifiers
	IDENTIFIER
	BUILTIN_ID   // @sqrt
	GENERIC_TYPE // $T, $i32, $MyType

	// Keywords
	AND
	AS
	BOOL
	BREAK
	CASE
	CHAR
	CONTINUE
	DEL
	DEFER
	ELSE
	ENUM
	F32
	F64
	FALL
	FN
	FOR
	IF
	IMPORT
	IN
	I8
	I16
	I32
	I64
	ISIZE
	MATCH
	NEW
	NOT
	OR
	PUB
	REF
	RET
	STRING
	STRUCT
	UNION
	U8
	U16
	U32
	U64
	USIZE
	WHILE

	// Arithmetic operators
	PLUS     // +
	MINUS    // -
	MULTIPLY // *
	DIVIDE   // /
	MODULO   // %

	// Assignment operators
	ASSIGN             // =
	PLUS_ASSIGN        // +=
	MINUS_ASSIGN       // -=
	MULTIPLY_ASSIGN    // *=
	DIVIDE_ASSIGN      // /=
	MODULO_ASSIGN      // %=
	BITWISE_AND_ASSIGN // &=
	BITWISE_OR_ASSIGN  // |=
	BITWISE_XOR_ASSIGN // ^=
	LEFT_SHIFT_ASSIGN  // <<=
	RIGHT_SHIFT_ASSIGN // >>=

	// Comparison operators
	EQUAL         // ==
	NOT_EQUAL     // !=
	LESS_THAN     // <
	LESS_EQUAL    // <=
	GREATER_THAN  // >
	GREATER_EQUAL // >=

	// Bitwise operators
	BITWISE_AND // &
	BITWISE_OR  // |
	BITWISE_XOR // ^
	BITWISE_NOT // ~
	LEFT_SHIFT  // <<
	RIGHT_SHIFT // >>

	LOGICAL_NOT // !

	// Punctuation
	COLON         // :
	COMMA         // ,
	DOT           // .
	DOT_DOT       // ..
	DECLARE_CONST // ::
	DECLARE_VAR   // :=
	LEFT_PAREN    // (
	RIGHT_PAREN   // )
	LEFT_BRACKET  // [
	RIGHT_BRACKET // ]
	LEFT_BRACE    // {
	RIGHT_BRACE   // }

	// TERMINATOR is the logical end of a statement, emitted for both
	// newline and ';'. Consecutive terminators are deduplicated.
	TERMINATOR
	EOF
)

var kindNames = map[Kind]string{
	ILLEGAL:            "ILLEGAL",
	INTEGER_LITERAL:    "INTEGER_LITERAL",
	FLOAT_LITERAL:      "FLOAT_LITERAL",
	STRING_LITERAL:     "STRING_LITERAL",
	CHAR_LITERAL:       "CHAR_LITERAL",
	TRUE_LITERAL:       "TRUE_LITERAL",
	FALSE_LITERAL:      "FALSE_LITERAL",
	NIL_LITERAL:        "NIL_LITERAL",
	IDENTIFIER:         "IDENTIFIER",
	BUILTIN_ID:         "BUILTIN_ID",
	GENERIC_TYPE:       "GENERIC_TYPE",
	AND:                "AND",
	AS:                 "AS",
	BOOL:               "BOOL",
	BREAK:              "BREAK",
	CASE:               "CASE",
	CHAR:               "CHAR",
	CONTINUE:           "CONTINUE",
	DEL:                "DEL",
	DEFER:              "DEFER",
	ELSE:               "ELSE",
	ENUM:               "ENUM",
	F32:                "F32",
	F64:                "F64",
	FALL:               "FALL",
	FN:                 "FN",
	FOR:                "FOR",
	IF:                 "IF",
	IMPORT:             "IMPORT",
	IN:                 "IN",
	I8:                 "I8",
	I16:                "I16",
	I32:                "I32",
	I64:                "I64",
	ISIZE:              "ISIZE",
	MATCH:              "MATCH",
	NEW:                "NEW",
	NOT:                "NOT",
	OR:                 "OR",
	PUB:                "PUB",
	REF:                "REF",
	RET:                "RET",
	STRING:             "STRING",
	STRUCT:             "STRUCT",
	UNION:              "UNION",
	U8:                 "U8",
	U16:                "U16",
	U32:                "U32",
	U64:                "U64",
	USIZE:              "USIZE",
	WHILE:              "WHILE",
	PLUS:               "PLUS",
	MINUS:              "MINUS",
	MULTIPLY:           "MULTIPLY",
	DIVIDE:             "DIVIDE",
	MODULO:             "MODULO",
	ASSIGN:             "ASSIGN",
	PLUS_ASSIGN:        "PLUS_ASSIGN",
	MINUS_ASSIGN:       "MINUS_ASSIGN",
	MULTIPLY_ASSIGN:    "MULTIPLY_ASSIGN",
	DIVIDE_ASSIGN:      "DIVIDE_ASSIGN",
	MODULO_ASSIGN:      "MODULO_ASSIGN",
	BITWISE_AND_ASSIGN: "BITWISE_AND_ASSIGN",
	BITWISE_OR_ASSIGN:  "BITWISE_OR_ASSIGN",
	BITWISE_XOR_ASSIGN: "BITWISE_XOR_ASSIGN",
	LEFT_SHIFT_ASSIGN:  "LEFT_SHIFT_ASSIGN",
	RIGHT_SHIFT_ASSIGN: "RIGHT_SHIFT_ASSIGN",
	EQUAL:              "EQUAL",
	NOT_EQUAL:          "NOT_EQUAL",
	LESS_THAN:          "LESS_THAN",
	LESS_EQUAL:         "LESS_EQUAL",
	GREATER_THAN:       "GREATER_THAN",
	GREATER_EQUAL:      "GREATER_EQUAL",
	BITWISE_AND:        "BITWISE_AND",
	BITWISE_OR:         "BITWISE_OR",
	BITWISE_XOR:        "BITWISE_XOR",
	BITWISE_NOT:        "BITWISE_NOT",
	LEFT_SHIFT:         "LEFT_SHIFT",
	RIGHT_SHIFT:        "RIGHT_SHIFT",
	LOGICAL_NOT:        "LOGICAL_NOT",
	COLON:              "COLON",
	COMMA:              "COMMA",
	DOT:                "DOT",
	DOT_DOT:            "DOT_DOT",
	DECLARE_CONST:      "DECLARE_CONST",
	DECLARE_VAR:        "DECLARE_VAR",
	LEFT_PAREN:         "LEFT_PAREN",
	RIGHT_PAREN:        "RIGHT_PAREN",
	LEFT_BRACKET:       "LEFT_BRACKET",
	RIGHT_BRACKET:      "RIGHT_BRACKET",
	LEFT_BRACE:         "LEFT_BRACE",
	RIGHT_BRACE:        "RIGHT_BRACE",
	TERMINATOR:         "TERMINATOR",
	EOF:                "EOF",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Keywords maps identifier text to the keyword or literal kind it lexes as.
// The three literal words true/false/nil become distinct literal kinds.
var Keywords = map[string]Kind{
	"and":      AND,
	"as":       AS,
	"bool":     BOOL,
	"break":    BREAK,
	"case":     CASE,
	"char":     CHAR,
	"continue": CONTINUE,
	"del":      DEL,
	"defer":    DEFER,
	"else":     ELSE,
	"enum":     ENUM,
	"f32":      F32,
	"f64":      F64,
	"fall":     FALL,
	"false":    FALSE_LITERAL,
	"fn":       FN,
	"for":      FOR,
	"if":       IF,
	"import":   IMPORT,
	"in":       IN,
	"i8":       I8,
	"i16":      I16,
	"i32":      I32,
	"i64":      I64,
	"isize":    ISIZE,
	"match":    MATCH,
	"new":      NEW,
	"nil":      NIL_LITERAL,
	"not":      NOT,
	"or":       OR,
	"pub":      PUB,
	"ref":      REF,
	"ret":      RET,
	"string":   STRING,
	"struct":   STRUCT,
	"true":     TRUE_LITERAL,
	"union":    UNION,
	"u8":       U8,
	"u16":      U16,
	"u32":      U32,
	"u64":      U64,
	"usize":    USIZE,
	"while":    WHILE,
}

// Token is a single lexed terminal. Line and Column locate the first
// character; Length is the lexeme byte length.
type Token struct {
	Kind   Kind
	Lexeme string
	Line   int
	Column int
	Length int
}

// Span converts the token's position into a diagnostic span.
func (t Token) Span() span.Span {
	return span.New(t.Line, t.Column, t.Length)
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Kind, t.Lexeme, t.Line, t.Column)
}

// IsAssignOp reports whether the kind is `=` or a compound assignment
// operator.
func (k Kind) IsAssignOp() bool {
	switch k {
	case ASSIGN, PLUS_ASSIGN, MINUS_ASSIGN, MULTIPLY_ASSIGN, DIVIDE_ASSIGN,
		MODULO_ASSIGN, BITWISE_AND_ASSIGN, BITWISE_OR_ASSIGN,
		BITWISE_XOR_ASSIGN, LEFT_SHIFT_ASSIGN, RIGHT_SHIFT_ASSIGN:
		return true
	}
	return false
}

// IsPrimitiveType reports whether the kind names one of the builtin
// primitive types.
func (k Kind) IsPrimitiveType() bool {
	switch k {
	case I8, I16, I32, I64, U8, U16, U32, U64, ISIZE, USIZE, F32, F64,
		BOOL, CHAR, STRING:
		return true
	}
	return false
}

// PrimitiveName returns the source spelling of a primitive type kind.
func (k Kind) PrimitiveName() string {
	switch k {
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case ISIZE:
		return "isize"
	case USIZE:
		return "usize"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case BOOL:
		return "bool"
	case CHAR:
		return "char"
	case STRING:
		return "string"
	}
	return ""
}
