package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/a7c/internal/ast"
	"github.com/oxhq/a7c/internal/diag"
	"github.com/oxhq/a7c/internal/lexer"
)

func parseSource(t *testing.T, source string) *ast.Node {
	t.Helper()
	program, err := parseSourceErr(source)
	require.Nil(t, err, "unexpected parse failure: %v", err)
	return program
}

func parseSourceErr(source string) (*ast.Node, *diag.Error) {
	tokens, lexErr := lexer.Tokenize(source, "test.a7")
	if lexErr != nil {
		return nil, lexErr
	}
	return Parse(tokens, "test.a7", strings.Split(source, "\n"))
}

func TestMinimalProgram(t *testing.T) {
	program := parseSource(t, "main :: fn() {}")

	require.Len(t, program.Declarations, 1)
	fn := program.Declarations[0]
	assert.Equal(t, ast.FUNCTION, fn.Kind)
	assert.Equal(t, "main", fn.Name)
	require.NotNil(t, fn.Body)
	assert.Equal(t, ast.BLOCK, fn.Body.Kind)
	assert.Empty(t, fn.Body.Statements)
}

func TestEmptyProgram(t *testing.T) {
	for _, source := range []string{"", "\n", ";", "   \n\n  ", "// only a comment\n"} {
		t.Run(fmt.Sprintf("%q", source), func(t *testing.T) {
			program := parseSource(t, source)
			assert.Equal(t, ast.PROGRAM, program.Kind)
			assert.Empty(t, program.Declarations)
		})
	}
}

func TestEveryNodeHasValidSpan(t *testing.T) {
	source := `
Point :: struct { x: i32, y: i32 }
main :: fn(n: i32) i32 {
	s := 0
	for i := 0; i < n; i += 1 {
		s = s + i
	}
	ret s
}
`
	source = strings.ReplaceAll(source, "\t", "    ")
	program := parseSource(t, source)
	ast.Walk(program, func(n *ast.Node) {
		assert.GreaterOrEqual(t, n.Span.StartLine, 1, "node %s has invalid line", n)
		assert.GreaterOrEqual(t, n.Span.StartColumn, 1, "node %s has invalid column", n)
	})
}

func TestStructLiteralVsBlockDisambiguation(t *testing.T) {
	program := parseSource(t, "main :: fn() { if true { x := 1 } }")

	fn := program.Declarations[0]
	require.Len(t, fn.Body.Statements, 1)
	ifStmt := fn.Body.Statements[0]
	require.Equal(t, ast.IF_STMT, ifStmt.Kind)
	require.NotNil(t, ifStmt.Then)
	require.Equal(t, ast.BLOCK, ifStmt.Then.Kind, "the brace must open a block, not a struct literal")

	require.Len(t, ifStmt.Then.Statements, 1)
	varDecl := ifStmt.Then.Statements[0]
	assert.Equal(t, ast.VAR, varDecl.Kind)
	assert.Equal(t, "x", varDecl.Name)
	require.NotNil(t, varDecl.Value)
	assert.Equal(t, int64(1), varDecl.Value.IntVal)
}

func TestIdentifierConditionOpensBlock(t *testing.T) {
	program := parseSource(t, "main :: fn() { if ready { x := 1 } }")
	ifStmt := program.Declarations[0].Body.Statements[0]
	require.Equal(t, ast.IF_STMT, ifStmt.Kind)
	assert.Equal(t, ast.IDENTIFIER, ifStmt.Condition.Kind)
	assert.Equal(t, ast.BLOCK, ifStmt.Then.Kind)
}

func TestStructLiteralAllowedInAssignment(t *testing.T) {
	program := parseSource(t, "main :: fn() { p := Point{x: 1, y: 2} }")
	varDecl := program.Declarations[0].Body.Statements[0]
	require.Equal(t, ast.VAR, varDecl.Kind)
	require.Equal(t, ast.STRUCT_INIT, varDecl.Value.Kind)
	assert.Equal(t, "Point", varDecl.Value.StructType)
	require.Len(t, varDecl.Value.FieldInits, 2)
	assert.Equal(t, "x", varDecl.Value.FieldInits[0].Name)
}

func TestPositionalStructLiteral(t *testing.T) {
	program := parseSource(t, "main :: fn() { p := Point{1, 2} }")
	init := program.Declarations[0].Body.Statements[0].Value
	require.Equal(t, ast.STRUCT_INIT, init.Kind)
	require.Len(t, init.FieldInits, 2)
	assert.Empty(t, init.FieldInits[0].Name)
	assert.Empty(t, init.FieldInits[1].Name)
}

func TestForInLoop(t *testing.T) {
	program := parseSource(t, "main :: fn() { arr := [1,2,3]; for v in arr { } }")

	stmts := program.Declarations[0].Body.Statements
	require.Len(t, stmts, 2)
	forIn := stmts[1]
	require.Equal(t, ast.FOR_IN, forIn.Kind)
	assert.Equal(t, "v", forIn.Iterator)
	require.NotNil(t, forIn.Iterable)
	assert.Equal(t, ast.IDENTIFIER, forIn.Iterable.Kind)
	assert.Equal(t, "arr", forIn.Iterable.Name)
}

func TestForInIndexedLoop(t *testing.T) {
	program := parseSource(t, "main :: fn() { for i, v in arr { } }")
	forIn := program.Declarations[0].Body.Statements[0]
	require.Equal(t, ast.FOR_IN_INDEXED, forIn.Kind)
	assert.Equal(t, "i", forIn.IndexVar)
	assert.Equal(t, "v", forIn.Iterator)
}

func TestInfiniteForLoop(t *testing.T) {
	program := parseSource(t, "main :: fn() { for { break } }")
	loop := program.Declarations[0].Body.Statements[0]
	require.Equal(t, ast.FOR, loop.Kind)
	assert.Nil(t, loop.Init)
	assert.Nil(t, loop.Condition)
	assert.Equal(t, ast.BREAK, loop.Body.Statements[0].Kind)
}

func TestCStyleForLoop(t *testing.T) {
	program := parseSource(t, "main :: fn() { for i := 0; i < 10; i += 1 { } }")
	loop := program.Declarations[0].Body.Statements[0]
	require.Equal(t, ast.FOR, loop.Kind)
	require.NotNil(t, loop.Init)
	assert.Equal(t, ast.VAR, loop.Init.Kind)
	assert.Equal(t, "i", loop.Init.Name)
	require.NotNil(t, loop.Condition)
	assert.Equal(t, ast.BINARY, loop.Condition.Kind)
	require.NotNil(t, loop.Update)
	assert.Equal(t, ast.ASSIGNMENT, loop.Update.Kind)
	assert.Equal(t, ast.AsgAdd, loop.Update.AsgOp)
}

func TestOperatorPrecedence(t *testing.T) {
	program := parseSource(t, "k :: 2 + 3 * 4")
	value := program.Declarations[0].Value
	require.Equal(t, ast.BINARY, value.Kind)
	assert.Equal(t, ast.OpAdd, value.BinOp)
	require.Equal(t, ast.BINARY, value.Right.Kind)
	assert.Equal(t, ast.OpMul, value.Right.BinOp)
}

func TestLogicalPrecedenceLowest(t *testing.T) {
	program := parseSource(t, "k :: a < b and c < d")
	value := program.Declarations[0].Value
	require.Equal(t, ast.BINARY, value.Kind)
	assert.Equal(t, ast.OpAnd, value.BinOp)
	assert.Equal(t, ast.OpLt, value.Left.BinOp)
	assert.Equal(t, ast.OpLt, value.Right.BinOp)
}

func TestMatchStatement(t *testing.T) {
	source := `main :: fn() {
match x {
case 1: { }
case 2, 3: { }
case 4..6: { }
case Color.Red: { }
else: { }
}
}`
	program := parseSource(t, source)
	match := program.Declarations[0].Body.Statements[0]
	require.Equal(t, ast.MATCH, match.Kind)
	require.Len(t, match.Cases, 4)
	assert.Len(t, match.Cases[0].Patterns, 1)
	assert.Len(t, match.Cases[1].Patterns, 2)
	assert.Equal(t, ast.PATTERN_RANGE, match.Cases[2].Patterns[0].Kind)

	enumPattern := match.Cases[3].Patterns[0]
	require.Equal(t, ast.PATTERN_ENUM, enumPattern.Kind)
	assert.Equal(t, "Color", enumPattern.EnumType)
	assert.Equal(t, "Red", enumPattern.Variant)
	require.Len(t, match.ElseCase, 1)
}

func TestDeclarations(t *testing.T) {
	source := `
import "core"
utils :: import "utils"
pub Point :: struct { x: i32, y: i32 }
Color :: enum { Red, Green = 5, Blue }
Value :: union(tag) { i: i32, f: f64 }
limit :: 100
counter := 0
`
	program := parseSource(t, source)
	require.Len(t, program.Declarations, 7)

	assert.Equal(t, ast.IMPORT, program.Declarations[0].Kind)
	assert.Equal(t, "core", program.Declarations[0].ModulePath)

	aliased := program.Declarations[1]
	assert.Equal(t, ast.IMPORT, aliased.Kind)
	assert.Equal(t, "utils", aliased.Name)

	structDecl := program.Declarations[2]
	assert.Equal(t, ast.STRUCT, structDecl.Kind)
	assert.True(t, structDecl.IsPublic)
	assert.Len(t, structDecl.Fields, 2)

	enumDecl := program.Declarations[3]
	assert.Equal(t, ast.ENUM, enumDecl.Kind)
	require.Len(t, enumDecl.Variants, 3)
	assert.Nil(t, enumDecl.Variants[0].Value)
	require.NotNil(t, enumDecl.Variants[1].Value)
	assert.Equal(t, int64(5), enumDecl.Variants[1].Value.IntVal)

	unionDecl := program.Declarations[4]
	assert.Equal(t, ast.UNION, unionDecl.Kind)
	assert.True(t, unionDecl.IsTagged)

	assert.Equal(t, ast.CONST, program.Declarations[5].Kind)
	assert.Equal(t, ast.VAR, program.Declarations[6].Kind)
}

func TestFunctionWithGenericsAndParams(t *testing.T) {
	program := parseSource(t, "max :: fn($T, a: $T, b: $T) $T { ret a }")
	fn := program.Declarations[0]
	require.Equal(t, ast.FUNCTION, fn.Kind)
	require.Len(t, fn.GenericParams, 1)
	assert.Equal(t, "T", fn.GenericParams[0].Name)
	require.Len(t, fn.Parameters, 2)
	assert.Equal(t, ast.TYPE_GENERIC, fn.Parameters[0].ParamType.Kind)
	require.NotNil(t, fn.ReturnType)
	assert.Equal(t, ast.TYPE_GENERIC, fn.ReturnType.Kind)
}

func TestTypeForms(t *testing.T) {
	source := `f :: fn(a: ref i32, b: [4]u8, c: []string, d: fn(i32) bool, e: Point) { }`
	program := parseSource(t, source)
	params := program.Declarations[0].Parameters
	require.Len(t, params, 5)
	assert.Equal(t, ast.TYPE_POINTER, params[0].ParamType.Kind)
	assert.Equal(t, ast.TYPE_ARRAY, params[1].ParamType.Kind)
	assert.Equal(t, ast.TYPE_SLICE, params[2].ParamType.Kind)
	assert.Equal(t, ast.TYPE_FUNCTION, params[3].ParamType.Kind)
	assert.Equal(t, ast.TYPE_IDENTIFIER, params[4].ParamType.Kind)
}

func TestPointerSugarStaysFieldAccess(t *testing.T) {
	program := parseSource(t, "main :: fn() { p := x.adr\nv := p.val }")
	stmts := program.Declarations[0].Body.Statements
	require.Len(t, stmts, 2)
	assert.Equal(t, ast.FIELD_ACCESS, stmts[0].Value.Kind)
	assert.Equal(t, "adr", stmts[0].Value.Field)
	assert.Equal(t, ast.FIELD_ACCESS, stmts[1].Value.Kind)
	assert.Equal(t, "val", stmts[1].Value.Field)
}

func TestCastExpression(t *testing.T) {
	program := parseSource(t, "main :: fn() { x := cast(i64, 42) }")
	cast := program.Declarations[0].Body.Statements[0].Value
	require.Equal(t, ast.CAST, cast.Kind)
	assert.Equal(t, ast.TYPE_PRIMITIVE, cast.TargetType.Kind)
	assert.Equal(t, "i64", cast.TargetType.Name)
	assert.Equal(t, int64(42), cast.Expression.IntVal)
}

func TestNewAndDel(t *testing.T) {
	program := parseSource(t, "main :: fn() { p := new i32\ndel p }")
	stmts := program.Declarations[0].Body.Statements
	require.Len(t, stmts, 2)
	require.Equal(t, ast.NEW_EXPR, stmts[0].Value.Kind)
	assert.Equal(t, ast.DEL, stmts[1].Kind)
}

func TestIfExpression(t *testing.T) {
	program := parseSource(t, "k :: if cond { 1 } else { 2 }")
	value := program.Declarations[0].Value
	require.Equal(t, ast.IF_EXPR, value.Kind)
	assert.Equal(t, int64(1), value.ThenExpr.IntVal)
	assert.Equal(t, int64(2), value.ElseExpr.IntVal)
}

func TestSliceExpressions(t *testing.T) {
	program := parseSource(t, "main :: fn() { a := arr[1..3]\nb := arr[..2]\nc := arr[1..] }")
	stmts := program.Declarations[0].Body.Statements

	first := stmts[0].Value
	require.Equal(t, ast.SLICE, first.Kind)
	require.NotNil(t, first.Start)
	require.NotNil(t, first.End)

	second := stmts[1].Value
	require.Equal(t, ast.SLICE, second.Kind)
	assert.Nil(t, second.Start)
	require.NotNil(t, second.End)

	third := stmts[2].Value
	require.Equal(t, ast.SLICE, third.Kind)
	require.NotNil(t, third.Start)
	assert.Nil(t, third.End)
}

func TestExplicitTypeDeclaration(t *testing.T) {
	program := parseSource(t, "main :: fn() { x: i64 = 5 }")
	varDecl := program.Declarations[0].Body.Statements[0]
	require.Equal(t, ast.VAR, varDecl.Kind)
	require.NotNil(t, varDecl.ExplicitType)
	assert.Equal(t, "i64", varDecl.ExplicitType.Name)
}

func TestDeferStatement(t *testing.T) {
	program := parseSource(t, "main :: fn() { defer cleanup() }")
	deferStmt := program.Declarations[0].Body.Statements[0]
	require.Equal(t, ast.DEFER, deferStmt.Kind)
	assert.Equal(t, ast.EXPRESSION_STMT, deferStmt.Statement.Kind)
}

func TestIdentifierStatementRejected(t *testing.T) {
	_, err := parseSourceErr("main :: fn() { x }")
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "Identifier 'x' cannot be used as a statement")
}

func TestMissingAssignmentOperator(t *testing.T) {
	_, err := parseSourceErr("main :: fn() { x 1 }")
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "Missing assignment operator")
}

func TestMissingOperandAfterOperator(t *testing.T) {
	_, err := parseSourceErr("k :: 1 +")
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "Expected expression after '+' operator")
}

func TestAnonymousFunctionRejected(t *testing.T) {
	_, err := parseSourceErr("fn() {}")
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "Function declarations must have names")
}

func TestTrailingGarbageAfterProgram(t *testing.T) {
	_, err := parseSourceErr("main :: fn() {}\n)")
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "after parsing complete program")
}

func TestErrorRecoveryAcrossDeclarations(t *testing.T) {
	// The third declaration is malformed; synchronization must skip it
	// and still parse the surrounding ones.
	source := "a :: 1\nb :: 2\nstruct\nc :: 3"
	program, err := parseSourceErr(source)
	require.Nil(t, err, "recovery should skip the bad declaration")

	names := make([]string, 0, len(program.Declarations))
	for _, d := range program.Declarations {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestDeepNesting(t *testing.T) {
	depth := 30

	var b strings.Builder
	b.WriteString("main :: fn() {\n")
	for i := 0; i < depth; i++ {
		b.WriteString("if true {\n")
	}
	b.WriteString("x := 1\n")
	for i := 0; i < depth; i++ {
		b.WriteString("}\n")
	}
	b.WriteString("}\n")

	program := parseSource(t, b.String())
	require.Len(t, program.Declarations, 1)

	// Nested binary expressions.
	expr := "k :: " + strings.Repeat("(1 + ", depth) + "1" + strings.Repeat(")", depth)
	program = parseSource(t, expr)
	require.Len(t, program.Declarations, 1)

	// Nested blocks.
	blocks := "main :: fn() " + strings.Repeat("{ ", depth+1) + strings.Repeat("} ", depth+1)
	program = parseSource(t, blocks)
	require.Len(t, program.Declarations, 1)
}

func TestLocalTypeDeclarations(t *testing.T) {
	source := `main :: fn() {
Pair :: struct { a: i32, b: i32 }
Mode :: enum { On, Off }
helper :: fn() { }
limit :: 10
}`
	program := parseSource(t, source)
	stmts := program.Declarations[0].Body.Statements
	require.Len(t, stmts, 4)
	assert.Equal(t, ast.STRUCT, stmts[0].Kind)
	assert.Equal(t, ast.ENUM, stmts[1].Kind)
	assert.Equal(t, ast.FUNCTION, stmts[2].Kind)
	assert.Equal(t, ast.CONST, stmts[3].Kind)
}
