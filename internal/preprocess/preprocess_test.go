package preprocess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/a7c/internal/ast"
	"github.com/oxhq/a7c/internal/lexer"
	"github.com/oxhq/a7c/internal/parser"
	"github.com/oxhq/a7c/internal/stdlib"
)

func parseProgram(t *testing.T, source string) *ast.Node {
	t.Helper()
	tokens, lexErr := lexer.Tokenize(source, "test.a7")
	require.Nil(t, lexErr)
	program, parseErr := parser.Parse(tokens, "test.a7", strings.Split(source, "\n"))
	require.Nil(t, parseErr)
	return program
}

func process(t *testing.T, source string) (*ast.Node, *Preprocessor) {
	t.Helper()
	program := parseProgram(t, source)
	pre := New(nil, nil, stdlib.NewRegistry(), "zig")
	return pre.Process(program), pre
}

func TestFieldSugarLowering(t *testing.T) {
	program, _ := process(t, `
main :: fn() {
    x := 1
    p := x.adr
    v := p.val
}`)

	body := program.Declarations[0].Body
	assert.Equal(t, ast.ADDRESS_OF, body.Statements[1].Value.Kind)
	assert.Equal(t, ast.DEREF, body.Statements[2].Value.Kind)

	// The §8 invariant: no adr/val field access survives preprocessing.
	ast.Walk(program, func(n *ast.Node) {
		if n.Kind == ast.FIELD_ACCESS {
			assert.NotEqual(t, "adr", n.Field)
			assert.NotEqual(t, "val", n.Field)
		}
	})
}

func TestRealFieldAccessPreserved(t *testing.T) {
	program, _ := process(t, `
main :: fn() {
    a := p.x
}`)
	value := program.Declarations[0].Body.Statements[0].Value
	assert.Equal(t, ast.FIELD_ACCESS, value.Kind)
	assert.Equal(t, "x", value.Field)
}

func TestConstantFolding(t *testing.T) {
	program, _ := process(t, "k :: 2 + 3 * 4")
	value := program.Declarations[0].Value
	require.Equal(t, ast.LITERAL, value.Kind)
	assert.Equal(t, ast.LitInteger, value.LiteralKind)
	assert.Equal(t, int64(14), value.IntVal)
	assert.Equal(t, "14", value.RawText)
}

func TestFoldingVariants(t *testing.T) {
	cases := []struct {
		source string
		check  func(t *testing.T, value *ast.Node)
	}{
		{"k :: -5", func(t *testing.T, v *ast.Node) {
			require.Equal(t, ast.LITERAL, v.Kind)
			assert.Equal(t, int64(-5), v.IntVal)
		}},
		{"k :: not true", func(t *testing.T, v *ast.Node) {
			require.Equal(t, ast.LITERAL, v.Kind)
			assert.False(t, v.BoolVal)
		}},
		{"k :: 7 / 2", func(t *testing.T, v *ast.Node) {
			require.Equal(t, ast.LITERAL, v.Kind)
			assert.Equal(t, int64(3), v.IntVal, "integer division truncates")
		}},
		{"k :: 1.5 + 2.5", func(t *testing.T, v *ast.Node) {
			require.Equal(t, ast.LITERAL, v.Kind)
			assert.Equal(t, 4.0, v.FloatVal)
		}},
		{"k :: true and false", func(t *testing.T, v *ast.Node) {
			require.Equal(t, ast.LITERAL, v.Kind)
			assert.False(t, v.BoolVal)
		}},
		{"k :: 7 % 3", func(t *testing.T, v *ast.Node) {
			require.Equal(t, ast.LITERAL, v.Kind)
			assert.Equal(t, int64(1), v.IntVal)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.source, func(t *testing.T) {
			program, _ := process(t, tc.source)
			tc.check(t, program.Declarations[0].Value)
		})
	}
}

func TestDivisionByZeroNotFolded(t *testing.T) {
	for _, source := range []string{"k :: 1 / 0", "k :: 1 % 0"} {
		t.Run(source, func(t *testing.T) {
			program, _ := process(t, source)
			value := program.Declarations[0].Value
			assert.Equal(t, ast.BINARY, value.Kind, "division by zero must stay unfolded")
		})
	}
}

func TestOverflowNotFolded(t *testing.T) {
	program, _ := process(t, "k :: 9223372036854775807 + 1")
	value := program.Declarations[0].Value
	assert.Equal(t, ast.BINARY, value.Kind, "overflow must stay unfolded")
}

func TestShadowingRename(t *testing.T) {
	program, _ := process(t, `
main :: fn() {
    x := 1
    { x := 2 }
}`)

	body := program.Declarations[0].Body
	outer := body.Statements[0]
	require.Equal(t, ast.VAR, outer.Kind)
	assert.Empty(t, outer.EmitName, "outer declaration keeps its source name")

	inner := body.Statements[1].Statements[0]
	require.Equal(t, ast.VAR, inner.Kind)
	assert.Equal(t, "x_1", inner.EmitName)
}

func TestShadowingRenamesAreUnique(t *testing.T) {
	program, _ := process(t, `
main :: fn(x: i32) {
    { x := 1 }
    { x := 2 }
}`)

	var emitted []string
	fn := program.Declarations[0]
	for _, p := range fn.Parameters {
		emitted = append(emitted, p.Name)
	}
	ast.Walk(fn.Body, func(n *ast.Node) {
		if n.Kind == ast.VAR {
			name := n.EmitName
			if name == "" {
				name = n.Name
			}
			emitted = append(emitted, name)
		}
	})

	seen := make(map[string]bool)
	for _, name := range emitted {
		assert.False(t, seen[name], "duplicate emitted name %q", name)
		seen[name] = true
	}
}

func TestMutationAnalysis(t *testing.T) {
	program, _ := process(t, `
main :: fn() {
    x := 1
    y := 2
    x = 3
}`)

	body := program.Declarations[0].Body
	assert.True(t, body.Statements[0].IsMutable, "assigned variable must be mutable")
	assert.False(t, body.Statements[1].IsMutable)
}

func TestMutationThroughProjections(t *testing.T) {
	program, _ := process(t, `
main :: fn() {
    arr := [1, 2, 3]
    arr[0] = 9
    p := q
    p.x = 1
}`)
	body := program.Declarations[0].Body
	assert.True(t, body.Statements[0].IsMutable, "index target chases to the root")
	assert.True(t, body.Statements[2].IsMutable, "field target chases to the root")
}

func TestForInitMarkedMutable(t *testing.T) {
	program, _ := process(t, `
main :: fn() {
    for i := 0; i < 3; i += 1 { }
}`)
	loop := program.Declarations[0].Body.Statements[0]
	require.Equal(t, ast.FOR, loop.Kind)
	assert.True(t, loop.Init.IsMutable)
}

func TestUsageAnalysis(t *testing.T) {
	program, _ := process(t, `
main :: fn(used: i32, unused: i32) {
    a := used
    b := 2
}`)

	fn := program.Declarations[0]
	assert.True(t, fn.Parameters[0].IsUsed)
	assert.False(t, fn.Parameters[1].IsUsed)

	body := fn.Body
	assert.False(t, body.Statements[0].IsUsed, "a is never read")
	assert.False(t, body.Statements[1].IsUsed)
}

func TestTypeBackfillForMutableLiterals(t *testing.T) {
	program, _ := process(t, `
main :: fn() {
    x := 1
    x = 2
    s := "hi"
    s = "bye"
}`)
	body := program.Declarations[0].Body
	require.NotNil(t, body.Statements[0].ResolvedType)
	assert.Equal(t, "i32", body.Statements[0].ResolvedType.String())
	require.NotNil(t, body.Statements[2].ResolvedType)
	assert.Equal(t, "string", body.Statements[2].ResolvedType.String())
}

func TestStructInitNormalization(t *testing.T) {
	program, _ := process(t, `
Point :: struct { x: i32, y: i32 }
main :: fn() {
    p := Point{1, 2}
}`)

	init := program.Declarations[1].Body.Statements[0].Value
	require.Equal(t, ast.STRUCT_INIT, init.Kind)
	require.Len(t, init.FieldInits, 2)
	assert.Equal(t, "x", init.FieldInits[0].Name)
	assert.Equal(t, "y", init.FieldInits[1].Name)
}

func TestOverfullStructInitLeftAlone(t *testing.T) {
	program, _ := process(t, `
Point :: struct { x: i32 }
main :: fn() {
    p := Point{1, 2}
}`)
	init := program.Declarations[1].Body.Statements[0].Value
	assert.Empty(t, init.FieldInits[0].Name, "overfull init is the type checker's problem")
}

func TestStdlibResolution(t *testing.T) {
	program, _ := process(t, `
main :: fn() {
    io.println("hi")
    x := sqrt_f32(2.0)
    y := unknown_fn(1)
}`)

	body := program.Declarations[0].Body
	call := body.Statements[0].Expression
	require.Equal(t, ast.CALL, call.Kind)
	assert.Equal(t, "std.io.println", call.StdlibCanonical)

	mathCall := body.Statements[1].Value
	assert.Equal(t, "std.math.sqrt", mathCall.StdlibCanonical)

	unknownCall := body.Statements[2].Value
	assert.Empty(t, unknownCall.StdlibCanonical)
}

func TestNestedFunctionHoisting(t *testing.T) {
	program, _ := process(t, `
outer :: fn() {
    inner :: fn() {
        x := 1
        { x := 2 }
    }
}`)

	inner := program.Declarations[0].Body.Statements[0]
	require.Equal(t, ast.FUNCTION, inner.Kind)
	assert.True(t, inner.Hoisted)

	// The nested function gets the same annotation passes.
	innerShadow := inner.Body.Statements[1].Statements[0]
	assert.Equal(t, "x_1", innerShadow.EmitName)
}

func TestIdempotence(t *testing.T) {
	source := `
Point :: struct { x: i32, y: i32 }
main :: fn() {
    x := 1
    x = 2
    { x := 3 }
    p := Point{4, 5}
    q := p.adr
    io.println("done")
    k := 2 + 3
}`
	program := parseProgram(t, source)

	first := New(nil, nil, stdlib.NewRegistry(), "zig")
	program = first.Process(program)
	assert.Greater(t, first.ChangesMade, 0)

	second := New(nil, nil, stdlib.NewRegistry(), "zig")
	program = second.Process(program)
	assert.Equal(t, 0, second.ChangesMade, "a second run must be a no-op")
}

func TestDeepNestingUsesExplicitStacks(t *testing.T) {
	depth := 40

	var b strings.Builder
	b.WriteString("main :: fn() {\n")
	for i := 0; i < depth; i++ {
		b.WriteString("if true {\n")
	}
	b.WriteString("x := v.adr.val.adr.val\n")
	for i := 0; i < depth; i++ {
		b.WriteString("}\n")
	}
	b.WriteString("}\n")

	program, _ := process(t, b.String())
	require.NotNil(t, program)

	expr := "k :: " + strings.Repeat("(1 + ", depth) + "1" + strings.Repeat(")", depth)
	program, _ = process(t, expr)
	value := program.Declarations[0].Value
	require.Equal(t, ast.LITERAL, value.Kind)
	assert.Equal(t, int64(depth+1), value.IntVal)
}

func TestBackendMappingWarning(t *testing.T) {
	program := parseProgram(t, `main :: fn() { io.println("hi") }`)
	pre := New(nil, nil, stdlib.NewRegistry(), "wasm")
	pre.Process(program)
	require.Len(t, pre.Warnings, 1)
	assert.Contains(t, pre.Warnings[0].Message, "no mapping for backend")
}
