// Package ast defines the untyped syntax tree produced by the parser and
// annotated in place by the semantic passes and the preprocessor.
//
// Nodes are a single record with a kind discriminator and kind-specific
// fields, plus a common header (span, resolved type, annotation bits).
// Child fields are enumerated through a uniform edge iterator so that
// every tree walk can run on an explicit stack and write replacement
// nodes back through the parent slot.
package ast

import (
	"fmt"

	"github.com/oxhq/a7c/internal/span"
	"github.com/oxhq/a7c/internal/types"
)

// Kind discriminates AST nodes.
type Kind uint8

const (
	INVALID Kind = iota

	PROGRAM
	IMPORT
	CONST
	VAR
	FUNCTION
	PARAMETER
	GENERIC_PARAM
	STRUCT
	ENUM
	ENUM_VARIANT
	UNION
	FIELD

	BLOCK
	IF_STMT
	IF_EXPR
	WHILE
	FOR
	FOR_IN
	FOR_IN_INDEXED
	MATCH
	CASE_BRANCH
	PATTERN_LITERAL
	PATTERN_IDENTIFIER
	PATTERN_ENUM
	PATTERN_RANGE
	RETURN
	BREAK
	CONTINUE
	FALL
	DEFER
	DEL
	EXPRESSION_STMT
	ASSIGNMENT

	LITERAL
	IDENTIFIER
	BINARY
	UNARY
	CALL
	INDEX
	SLICE
	FIELD_ACCESS
	ADDRESS_OF
	DEREF
	CAST
	NEW_EXPR
	STRUCT_INIT
	FIELD_INIT
	ARRAY_INIT

	TYPE_PRIMITIVE
	TYPE_IDENTIFIER
	TYPE_ARRAY
	TYPE_SLICE
	TYPE_POINTER
	TYPE_FUNCTION
	TYPE_STRUCT
	TYPE_GENERIC
)

var kindNames = [...]string{
	INVALID:            "INVALID",
	PROGRAM:            "PROGRAM",
	IMPORT:             "IMPORT",
	CONST:              "CONST",
	VAR:                "VAR",
	FUNCTION:           "FUNCTION",
	PARAMETER:          "PARAMETER",
	GENERIC_PARAM:      "GENERIC_PARAM",
	STRUCT:             "STRUCT",
	ENUM:               "ENUM",
	ENUM_VARIANT:       "ENUM_VARIANT",
	UNION:              "UNION",
	FIELD:              "FIELD",
	BLOCK:              "BLOCK",
	IF_STMT:            "IF_STMT",
	IF_EXPR:            "IF_EXPR",
	WHILE:              "WHILE",
	FOR:                "FOR",
	FOR_IN:             "FOR_IN",
	FOR_IN_INDEXED:     "FOR_IN_INDEXED",
	MATCH:              "MATCH",
	CASE_BRANCH:        "CASE_BRANCH",
	PATTERN_LITERAL:    "PATTERN_LITERAL",
	PATTERN_IDENTIFIER: "PATTERN_IDENTIFIER",
	PATTERN_ENUM:       "PATTERN_ENUM",
	PATTERN_RANGE:      "PATTERN_RANGE",
	RETURN:             "RETURN",
	BREAK:              "BREAK",
	CONTINUE:           "CONTINUE",
	FALL:               "FALL",
	DEFER:              "DEFER",
	DEL:                "DEL",
	EXPRESSION_STMT:    "EXPRESSION_STMT",
	ASSIGNMENT:         "ASSIGNMENT",
	LITERAL:            "LITERAL",
	IDENTIFIER:         "IDENTIFIER",
	BINARY:             "BINARY",
	UNARY:              "UNARY",
	CALL:               "CALL",
	INDEX:              "INDEX",
	SLICE:              "SLICE",
	FIELD_ACCESS:       "FIELD_ACCESS",
	ADDRESS_OF:         "ADDRESS_OF",
	DEREF:              "DEREF",
	CAST:               "CAST",
	NEW_EXPR:           "NEW_EXPR",
	STRUCT_INIT:        "STRUCT_INIT",
	FIELD_INIT:         "FIELD_INIT",
	ARRAY_INIT:         "ARRAY_INIT",
	TYPE_PRIMITIVE:     "TYPE_PRIMITIVE",
	TYPE_IDENTIFIER:    "TYPE_IDENTIFIER",
	TYPE_ARRAY:         "TYPE_ARRAY",
	TYPE_SLICE:         "TYPE_SLICE",
	TYPE_POINTER:       "TYPE_POINTER",
	TYPE_FUNCTION:      "TYPE_FUNCTION",
	TYPE_STRUCT:        "TYPE_STRUCT",
	TYPE_GENERIC:       "TYPE_GENERIC",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsType reports whether the kind is one of the TYPE_* variants.
func (k Kind) IsType() bool {
	return k >= TYPE_PRIMITIVE && k <= TYPE_GENERIC
}

// LiteralKind discriminates literal values.
type LiteralKind uint8

const (
	LitNone LiteralKind = iota
	LitInteger
	LitFloat
	LitString
	LitChar
	LitBoolean
	LitNil
)

var literalNames = [...]string{
	LitNone:    "NONE",
	LitInteger: "INTEGER",
	LitFloat:   "FLOAT",
	LitString:  "STRING",
	LitChar:    "CHAR",
	LitBoolean: "BOOLEAN",
	LitNil:     "NIL",
}

func (k LiteralKind) String() string {
	if int(k) < len(literalNames) {
		return literalNames[k]
	}
	return fmt.Sprintf("LiteralKind(%d)", uint8(k))
}

// Node is the uniform AST record. The Kind field selects which of the
// remaining fields are meaningful; unused fields stay zero.
type Node struct {
	Kind Kind
	Span span.Span

	// Annotations written by later passes.
	ResolvedType    *types.Type // type checker / preprocessor backfill
	SymID           int32       // name resolver: resolving symbol, 0 = none
	IsPublic        bool
	IsMutable       bool
	IsUsed          bool
	Hoisted         bool
	IsTagged        bool
	EmitName        string // shadowing rename, "" = source name
	StdlibCanonical string

	// Scalars.
	Name       string
	ModulePath string
	Field      string
	Iterator   string
	IndexVar   string
	EnumType   string
	Variant    string
	StructType string

	// Literal payload.
	LiteralKind LiteralKind
	IntVal      int64
	FloatVal    float64
	BoolVal     bool
	StrVal      string
	RawText     string

	// Operators.
	BinOp BinaryOp
	UnOp  UnaryOp
	AsgOp AssignOp

	// Single-node children.
	Value        *Node
	Body         *Node
	Condition    *Node
	Then         *Node
	Else         *Node
	Init         *Node
	Update       *Node
	Target       *Node
	Function     *Node
	Left         *Node
	Right        *Node
	Operand      *Node
	Pointer      *Node
	Object       *Node
	Index        *Node
	Start        *Node
	End          *Node
	Iterable     *Node
	ThenExpr     *Node
	ElseExpr     *Node
	ReturnType   *Node
	ExplicitType *Node
	ParamType    *Node
	FieldType    *Node
	ElementType  *Node
	TargetType   *Node
	Size         *Node
	Statement    *Node
	Literal      *Node
	Expression   *Node

	// List children.
	Declarations  []*Node
	Statements    []*Node
	Parameters    []*Node
	GenericParams []*Node
	Arguments     []*Node
	Fields        []*Node
	Variants      []*Node
	FieldInits    []*Node
	Elements      []*Node
	Cases         []*Node
	ElseCase      []*Node
	Patterns      []*Node
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Name != "" {
		return fmt.Sprintf("%s(%s)", n.Kind, n.Name)
	}
	return n.Kind.String()
}

// Program builds a PROGRAM root.
func Program(decls []*Node) *Node {
	sp := span.New(1, 1, 0)
	if len(decls) > 0 {
		sp = span.Between(decls[0].Span, decls[len(decls)-1].Span)
	}
	return &Node{Kind: PROGRAM, Declarations: decls, Span: sp}
}
