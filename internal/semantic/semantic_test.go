package semantic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/a7c/internal/ast"
	"github.com/oxhq/a7c/internal/diag"
	"github.com/oxhq/a7c/internal/lexer"
	"github.com/oxhq/a7c/internal/parser"
	"github.com/oxhq/a7c/internal/stdlib"
	"github.com/oxhq/a7c/internal/symtab"
)

type analysis struct {
	program   *ast.Node
	table     *symtab.Table
	typeMap   TypeMap
	resolver  []*diag.Error
	checker   []*diag.Error
	validator []*diag.Error
}

// allErrors returns every hard error across the three passes.
func (a *analysis) allErrors() []*diag.Error {
	var out []*diag.Error
	for _, list := range [][]*diag.Error{a.resolver, a.checker, a.validator} {
		for _, e := range list {
			if e.Severity == diag.SeverityError {
				out = append(out, e)
			}
		}
	}
	return out
}

func (a *analysis) warnings() []*diag.Error {
	var out []*diag.Error
	for _, e := range a.validator {
		if e.Severity == diag.SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}

func analyze(t *testing.T, source string) *analysis {
	t.Helper()
	tokens, lexErr := lexer.Tokenize(source, "test.a7")
	require.Nil(t, lexErr)
	lines := strings.Split(source, "\n")
	program, parseErr := parser.Parse(tokens, "test.a7", lines)
	require.Nil(t, parseErr)

	registry := stdlib.NewRegistry()
	resolver := NewResolver(registry, "test.a7", lines)
	table := resolver.Resolve(program)

	result := &analysis{program: program, table: table, resolver: resolver.Errors}
	if len(resolver.Errors) > 0 {
		return result
	}

	checker := NewChecker(table, "test.a7", lines)
	result.typeMap = checker.Check(program)
	result.checker = checker.Errors
	if len(checker.Errors) > 0 {
		return result
	}

	validator := NewValidator(table, result.typeMap, "test.a7", lines)
	result.validator = validator.Validate(program)
	return result
}

func expectClean(t *testing.T, source string) *analysis {
	t.Helper()
	result := analyze(t, source)
	require.Empty(t, result.allErrors(), "expected clean analysis")
	return result
}

func expectError(t *testing.T, source, fragment string) {
	t.Helper()
	result := analyze(t, source)
	errs := result.allErrors()
	require.NotEmpty(t, errs, "expected a semantic error")
	if fragment != "" {
		found := false
		for _, e := range errs {
			if strings.Contains(e.Message, fragment) {
				found = true
				break
			}
		}
		assert.True(t, found, "no error mentioning %q in %v", fragment, errs)
	}
}

func TestLiteralInference(t *testing.T) {
	result := expectClean(t, `
main :: fn() {
    a := 42
    b := 3.14
    c := true
    d := "hello"
    e := 'x'
}`)

	body := result.program.Declarations[0].Body
	wantTypes := []string{"i32", "f64", "bool", "string", "char"}
	for i, want := range wantTypes {
		decl := body.Statements[i]
		require.NotNil(t, decl.ResolvedType, "statement %d untyped", i)
		assert.Equal(t, want, decl.ResolvedType.String())
	}
}

func TestRadixLiterals(t *testing.T) {
	expectClean(t, `
main :: fn() {
    a := 0xFF
    b := 0b1010
    c := 0o77
}`)
}

func TestExplicitTypeAdoption(t *testing.T) {
	result := expectClean(t, `
main :: fn() {
    x: i64 = 5
}`)
	decl := result.program.Declarations[0].Body.Statements[0]
	assert.Equal(t, "i64", decl.ResolvedType.String())
}

func TestExplicitTypeMismatch(t *testing.T) {
	expectError(t, `
main :: fn() {
    x: i32 = "nope"
}`, "Cannot assign")
}

func TestMixedNumericArithmeticRejected(t *testing.T) {
	expectError(t, `
main :: fn() {
    x := 1 + 2.5
}`, "not defined for")
}

func TestStringIntArithmeticRejected(t *testing.T) {
	expectError(t, `
main :: fn() {
    a := 1
    b := "s"
    c := a + b
}`, "not defined for")
}

func TestComparisonYieldsBool(t *testing.T) {
	result := expectClean(t, `
main :: fn() {
    x := 1 < 2
}`)
	decl := result.program.Declarations[0].Body.Statements[0]
	assert.Equal(t, "bool", decl.ResolvedType.String())
}

func TestLogicalOperandsMustBeBool(t *testing.T) {
	expectError(t, `
main :: fn() {
    x := 1 and 2
}`, "not defined for")
}

func TestBitwiseRequiresIntegers(t *testing.T) {
	expectClean(t, `
main :: fn() {
    x := 6 & 3
    y := x << 1
    z := ~x
}`)
	expectError(t, `
main :: fn() {
    x := 1.5 & 2.5
}`, "not defined for")
}

func TestIfConditionMustBeBool(t *testing.T) {
	expectError(t, `
main :: fn() {
    if 1 { }
}`, "must be bool")
}

func TestDuplicateTopLevelDeclaration(t *testing.T) {
	expectError(t, `
f :: fn() { }
f :: fn() { }
`, "Duplicate declaration")
}

func TestDuplicateParameter(t *testing.T) {
	expectError(t, `f :: fn(a: i32, a: i32) { }`, "Duplicate parameter")
}

func TestDuplicateVariableInSameScope(t *testing.T) {
	expectError(t, `
main :: fn() {
    x := 1
    x := 2
}`, "Duplicate declaration")
}

func TestShadowingInNestedScopeAllowed(t *testing.T) {
	expectClean(t, `
main :: fn() {
    x := 1
    {
        x := 2
        y := x
    }
}`)
}

func TestUndefinedName(t *testing.T) {
	expectError(t, `
main :: fn() {
    x = 1
}`, "Undefined name")
}

func TestUndefinedType(t *testing.T) {
	expectError(t, `f :: fn(p: Missing) { }`, "Undefined type")
}

func TestFunctionCallChecking(t *testing.T) {
	expectClean(t, `
add :: fn(a: i32, b: i32) i32 { ret a + b }
main :: fn() {
    x := add(1, 2)
}`)

	expectError(t, `
add :: fn(a: i32, b: i32) i32 { ret a + b }
main :: fn() {
    x := add(1)
}`, "Expected 2 argument(s)")

	expectError(t, `
add :: fn(a: i32, b: i32) i32 { ret a + b }
main :: fn() {
    x := add(1, "two")
}`, "Cannot pass")
}

func TestReturnTypeChecking(t *testing.T) {
	expectClean(t, `f :: fn() i32 { ret 5 }`)
	expectError(t, `f :: fn() i32 { ret "s" }`, "Cannot return")
	expectError(t, `f :: fn() { ret 5 }`, "cannot return a value")
	expectError(t, `f :: fn() i32 { ret }`, "must return")
}

func TestReturnPathAnalysis(t *testing.T) {
	expectError(t, `f :: fn() i32 { x := 1 }`, "must return a value on all paths")

	expectClean(t, `
f :: fn(c: bool) i32 {
    if c { ret 1 } else { ret 2 }
}`)

	expectError(t, `
f :: fn(c: bool) i32 {
    if c { ret 1 }
}`, "must return a value on all paths")

	expectClean(t, `
f :: fn() i32 {
    for { ret 1 }
}`)
}

func TestBreakContinueContext(t *testing.T) {
	expectError(t, `main :: fn() { break }`, "'break' outside of a loop")
	expectError(t, `main :: fn() { continue }`, "'continue' outside of a loop")
	expectClean(t, `
main :: fn() {
    while true {
        if false { break }
        continue
    }
}`)
}

func TestFallContext(t *testing.T) {
	expectError(t, `main :: fn() { fall }`, "'fall' outside of a match case")
	expectClean(t, `
main :: fn() {
    x := 1
    match x {
    case 1: { fall }
    case 2: { }
    else: { }
    }
}`)
}

func TestNilAssignableToPointerOnly(t *testing.T) {
	expectClean(t, `
main :: fn() {
    p: ref i32 = nil
}`)
	expectError(t, `
main :: fn() {
    x: i32 = nil
}`, "Cannot assign")
}

func TestPointerSugarTyping(t *testing.T) {
	result := expectClean(t, `
main :: fn() {
    x := 42
    p := x.adr
    v := p.val
}`)
	body := result.program.Declarations[0].Body
	assert.Equal(t, "ref i32", body.Statements[1].ResolvedType.String())
	assert.Equal(t, "i32", body.Statements[2].ResolvedType.String())
}

func TestDerefNonPointerRejected(t *testing.T) {
	expectError(t, `
main :: fn() {
    x := 1
    v := x.val
}`, ".val requires a pointer")
}

func TestDelRequiresPointer(t *testing.T) {
	expectClean(t, `
main :: fn() {
    p := new i32
    del p
}`)
	expectError(t, `
main :: fn() {
    x := 1
    del x
}`, "del requires a pointer")
}

func TestNewYieldsPointer(t *testing.T) {
	result := expectClean(t, `
main :: fn() {
    p := new f64
}`)
	decl := result.program.Declarations[0].Body.Statements[0]
	assert.Equal(t, "ref f64", decl.ResolvedType.String())
}

func TestStructFieldAccess(t *testing.T) {
	expectClean(t, `
Point :: struct { x: i32, y: i32 }
main :: fn() {
    p := Point{x: 1, y: 2}
    a := p.x
}`)

	expectError(t, `
Point :: struct { x: i32, y: i32 }
main :: fn() {
    p := Point{x: 1, y: 2}
    a := p.z
}`, "no field")
}

func TestStructInitFieldChecking(t *testing.T) {
	expectError(t, `
Point :: struct { x: i32, y: i32 }
main :: fn() {
    p := Point{z: 1}
}`, "no field")

	expectError(t, `
Point :: struct { x: i32 }
main :: fn() {
    p := Point{x: "no"}
}`, "Cannot assign")
}

func TestDuplicateStructField(t *testing.T) {
	expectError(t, `Point :: struct { x: i32, x: i32 }`, "Duplicate field")
}

func TestArrayAndIndexing(t *testing.T) {
	result := expectClean(t, `
main :: fn() {
    arr := [1, 2, 3]
    x := arr[0]
}`)
	body := result.program.Declarations[0].Body
	assert.Equal(t, "[3]i32", body.Statements[0].ResolvedType.String())
	assert.Equal(t, "i32", body.Statements[1].ResolvedType.String())

	expectError(t, `
main :: fn() {
    arr := [1, 2, 3]
    x := arr["zero"]
}`, "Index must be an integer")

	expectError(t, `
main :: fn() {
    arr := [1, "two"]
}`, "does not match")
}

func TestForInIteration(t *testing.T) {
	expectClean(t, `
main :: fn() {
    arr := [1, 2, 3]
    s := 0
    for v in arr {
        s = s + v
    }
    for i, v in arr {
        s = s + i + v
    }
}`)

	expectError(t, `
main :: fn() {
    x := 5
    for v in x { }
}`, "Cannot iterate")
}

func TestCasting(t *testing.T) {
	expectClean(t, `
main :: fn() {
    a := cast(i64, 42)
    b := cast(f32, 1.5)
    c := cast(i32, 2.5)
}`)
	expectError(t, `
main :: fn() {
    s := cast(i32, "text")
}`, "Cannot cast")
}

func TestEnumTyping(t *testing.T) {
	result := expectClean(t, `
Color :: enum { Red, Green, Blue }
main :: fn() {
    c := Color.Red
    n := cast(i32, c)
}`)
	body := result.program.Declarations[1].Body
	assert.Equal(t, "Color", body.Statements[0].ResolvedType.String())

	expectError(t, `
Color :: enum { Red }
main :: fn() {
    c := Color.Purple
}`, "no variant")
}

func TestMatchExhaustivenessWarning(t *testing.T) {
	result := analyze(t, `
Color :: enum { Red, Green, Blue }
main :: fn() {
    c := Color.Red
    match c {
    case Color.Red: { }
    }
}`)
	require.Empty(t, result.allErrors())
	warnings := result.warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "not exhaustive")

	// An else branch silences the hint.
	result = analyze(t, `
Color :: enum { Red, Green, Blue }
main :: fn() {
    c := Color.Red
    match c {
    case Color.Red: { }
    else: { }
    }
}`)
	assert.Empty(t, result.warnings())
}

func TestIfExpressionBranchTypes(t *testing.T) {
	expectClean(t, `
main :: fn() {
    c := true
    x := if c { 1 } else { 2 }
}`)
	expectError(t, `
main :: fn() {
    c := true
    x := if c { 1 } else { "two" }
}`, "different types")
}

func TestGenericUnification(t *testing.T) {
	expectClean(t, `
first :: fn($T, a: $T, b: $T) $T { ret a }
main :: fn() {
    x := first(1, 2)
    s := first("a", "b")
}`)

	expectError(t, `
first :: fn($T, a: $T, b: $T) $T { ret a }
main :: fn() {
    x := first(1, "b")
}`, "Generic parameter")
}

func TestStdlibCallsResolveImplicitly(t *testing.T) {
	expectClean(t, `
main :: fn() {
    io.println("hello")
    x := sqrt_f64(2.0)
}`)
}

func TestUnionFieldAccess(t *testing.T) {
	expectClean(t, `
Value :: union(tag) { i: i32, f: f64 }
get :: fn(v: Value) i32 {
    ret v.i
}`)
}

func TestErrorsAccumulateAcrossFunctions(t *testing.T) {
	result := analyze(t, `
f :: fn() { x = 1 }
g :: fn() { y = 2 }
`)
	assert.Len(t, result.resolver, 2, "the resolver must visit everything before failing the stage")
}
