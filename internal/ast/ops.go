package ast

import "github.com/oxhq/a7c/internal/token"

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	BinNone BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
)

var binOpText = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "and", OpOr: "or",
	OpBitAnd: "&", OpBitOr: "|", OpBitXor: "^", OpShl: "<<", OpShr: ">>",
}

func (op BinaryOp) String() string {
	if int(op) < len(binOpText) {
		return binOpText[op]
	}
	return "?"
}

// Precedence returns the binding strength used by the precedence-climbing
// expression parser, low to high: or; and; equality; comparison; |; ^; &;
// shifts; additive; multiplicative.
func (op BinaryOp) Precedence() int {
	switch op {
	case OpOr:
		return 1
	case OpAnd:
		return 2
	case OpEq, OpNe:
		return 3
	case OpLt, OpLe, OpGt, OpGe:
		return 4
	case OpBitOr:
		return 5
	case OpBitXor:
		return 6
	case OpBitAnd:
		return 7
	case OpShl, OpShr:
		return 8
	case OpAdd, OpSub:
		return 9
	case OpMul, OpDiv, OpMod:
		return 10
	}
	return 0
}

// BinaryOpForToken maps a token kind to its binary operator, or BinNone.
func BinaryOpForToken(k token.Kind) BinaryOp {
	switch k {
	case token.PLUS:
		return OpAdd
	case token.MINUS:
		return OpSub
	case token.MULTIPLY:
		return OpMul
	case token.DIVIDE:
		return OpDiv
	case token.MODULO:
		return OpMod
	case token.EQUAL:
		return OpEq
	case token.NOT_EQUAL:
		return OpNe
	case token.LESS_THAN:
		return OpLt
	case token.LESS_EQUAL:
		return OpLe
	case token.GREATER_THAN:
		return OpGt
	case token.GREATER_EQUAL:
		return OpGe
	case token.AND:
		return OpAnd
	case token.OR:
		return OpOr
	case token.BITWISE_AND:
		return OpBitAnd
	case token.BITWISE_OR:
		return OpBitOr
	case token.BITWISE_XOR:
		return OpBitXor
	case token.LEFT_SHIFT:
		return OpShl
	case token.RIGHT_SHIFT:
		return OpShr
	}
	return BinNone
}

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	UnNone UnaryOp = iota
	OpNeg    // -x
	OpNot    // not x, !x
	OpBitNot // ~x
)

func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "-"
	case OpNot:
		return "not"
	case OpBitNot:
		return "~"
	}
	return "?"
}

// UnaryOpForToken maps a token kind to its unary operator, or UnNone.
func UnaryOpForToken(k token.Kind) UnaryOp {
	switch k {
	case token.MINUS:
		return OpNeg
	case token.NOT, token.LOGICAL_NOT:
		return OpNot
	case token.BITWISE_NOT:
		return OpBitNot
	}
	return UnNone
}

// AssignOp enumerates assignment operators.
type AssignOp uint8

const (
	AsgNone AssignOp = iota
	AsgAssign
	AsgAdd
	AsgSub
	AsgMul
	AsgDiv
	AsgMod
	AsgBitAnd
	AsgBitOr
	AsgBitXor
	AsgShl
	AsgShr
)

var asgOpText = [...]string{
	AsgAssign: "=", AsgAdd: "+=", AsgSub: "-=", AsgMul: "*=", AsgDiv: "/=",
	AsgMod: "%=", AsgBitAnd: "&=", AsgBitOr: "|=", AsgBitXor: "^=",
	AsgShl: "<<=", AsgShr: ">>=",
}

func (op AssignOp) String() string {
	if int(op) < len(asgOpText) {
		return asgOpText[op]
	}
	return "?"
}

// AssignOpForToken maps a token kind to its assignment operator, or
// AsgNone.
func AssignOpForToken(k token.Kind) AssignOp {
	switch k {
	case token.ASSIGN:
		return AsgAssign
	case token.PLUS_ASSIGN:
		return AsgAdd
	case token.MINUS_ASSIGN:
		return AsgSub
	case token.MULTIPLY_ASSIGN:
		return AsgMul
	case token.DIVIDE_ASSIGN:
		return AsgDiv
	case token.MODULO_ASSIGN:
		return AsgMod
	case token.BITWISE_AND_ASSIGN:
		return AsgBitAnd
	case token.BITWISE_OR_ASSIGN:
		return AsgBitOr
	case token.BITWISE_XOR_ASSIGN:
		return AsgBitXor
	case token.LEFT_SHIFT_ASSIGN:
		return AsgShl
	case token.RIGHT_SHIFT_ASSIGN:
		return AsgShr
	}
	return AsgNone
}

// Binary returns the underlying binary operator of a compound assignment
// (`+=` → `+`), or BinNone for plain `=`.
func (op AssignOp) Binary() BinaryOp {
	switch op {
	case AsgAdd:
		return OpAdd
	case AsgSub:
		return OpSub
	case AsgMul:
		return OpMul
	case AsgDiv:
		return OpDiv
	case AsgMod:
		return OpMod
	case AsgBitAnd:
		return OpBitAnd
	case AsgBitOr:
		return OpBitOr
	case AsgBitXor:
		return OpBitXor
	case AsgShl:
		return OpShl
	case AsgShr:
		return OpShr
	}
	return BinNone
}
