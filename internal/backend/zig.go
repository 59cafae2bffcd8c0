package backend

import (
	"fmt"
	"strings"

	"github.com/oxhq/a7c/internal/ast"
	"github.com/oxhq/a7c/internal/semantic"
	"github.com/oxhq/a7c/internal/stdlib"
	"github.com/oxhq/a7c/internal/symtab"
	"github.com/oxhq/a7c/internal/types"
)

// ZigGenerator emits Zig source from a preprocessed AST.
type ZigGenerator struct {
	registry *stdlib.Registry

	w       *writer
	typeMap semantic.TypeMap
	table   *symtab.Table

	needsStd bool
}

// NewZigGenerator builds a Zig backend over the given stdlib registry.
func NewZigGenerator(registry *stdlib.Registry) *ZigGenerator {
	return &ZigGenerator{registry: registry}
}

// FileExtension implements CodeGenerator.
func (g *ZigGenerator) FileExtension() string { return ".zig" }

// LanguageName implements CodeGenerator.
func (g *ZigGenerator) LanguageName() string { return "Zig" }

// Generate implements CodeGenerator.
func (g *ZigGenerator) Generate(root *ast.Node, typeMap semantic.TypeMap, table *symtab.Table) (string, error) {
	if root == nil || root.Kind != ast.PROGRAM {
		return "", fmt.Errorf("zig backend expects a PROGRAM root, got %s", root)
	}

	g.w = newWriter()
	g.typeMap = typeMap
	g.table = table
	g.needsStd = false

	body := newWriter()
	saved := g.w
	g.w = body
	for _, decl := range root.Declarations {
		if err := g.emitDecl(decl); err != nil {
			return "", err
		}
	}
	// Hoisted nested functions render at module scope after their hosts.
	for _, decl := range root.Declarations {
		if decl.Kind == ast.FUNCTION {
			if err := g.emitHoisted(decl); err != nil {
				return "", err
			}
		}
	}
	g.w = saved

	if g.needsStd {
		g.w.line(`const std = @import("std");`)
		g.w.line("")
	}
	g.w.write(body.String())
	return g.w.String(), nil
}

func (g *ZigGenerator) emitHoisted(fn *ast.Node) error {
	if fn.Body == nil {
		return nil
	}
	for _, stmt := range fn.Body.Statements {
		if stmt.Kind == ast.FUNCTION && stmt.Hoisted {
			if err := g.emitDecl(stmt); err != nil {
				return err
			}
			if err := g.emitHoisted(stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *ZigGenerator) emitDecl(decl *ast.Node) error {
	switch decl.Kind {
	case ast.IMPORT:
		// Module paths are recorded, not linked.
		return nil
	case ast.FUNCTION:
		return g.emitFunction(decl)
	case ast.STRUCT:
		return g.emitStruct(decl)
	case ast.ENUM:
		return g.emitEnum(decl)
	case ast.UNION:
		return g.emitUnion(decl)
	case ast.CONST:
		g.w.writef("const %s = %s;\n", emitName(decl), g.expr(decl.Value))
		return nil
	case ast.VAR:
		g.w.writef("var %s = %s;\n", emitName(decl), g.expr(decl.Value))
		return nil
	}
	return nil
}

func (g *ZigGenerator) emitFunction(fn *ast.Node) error {
	visibility := ""
	if fn.IsPublic || fn.Name == "main" {
		visibility = "pub "
	}

	params := make([]string, 0, len(fn.Parameters))
	for _, p := range fn.Parameters {
		params = append(params, fmt.Sprintf("%s: %s", p.Name, g.typeOf(p.ParamType)))
	}

	ret := "void"
	if fn.ReturnType != nil {
		ret = g.typeOf(fn.ReturnType)
	}

	g.w.writef("%sfn %s(%s) %s ", visibility, fn.Name, strings.Join(params, ", "), ret)
	if fn.Body == nil {
		g.w.line("{}")
		return nil
	}

	g.w.line("{")
	g.w.push()
	for _, p := range fn.Parameters {
		if !p.IsUsed {
			g.w.writef("_ = %s;\n", p.Name)
		}
	}
	for _, stmt := range fn.Body.Statements {
		if stmt.Kind == ast.FUNCTION && stmt.Hoisted {
			continue // rendered at module scope
		}
		if err := g.emitStmt(stmt); err != nil {
			return err
		}
	}
	g.w.pop()
	g.w.line("}")
	g.w.line("")
	return nil
}

func (g *ZigGenerator) emitStruct(decl *ast.Node) error {
	g.w.writef("const %s = struct {\n", decl.Name)
	g.w.push()
	for _, f := range decl.Fields {
		g.w.writef("%s: %s,\n", f.Name, g.typeOf(f.FieldType))
	}
	g.w.pop()
	g.w.line("};")
	g.w.line("")
	return nil
}

func (g *ZigGenerator) emitEnum(decl *ast.Node) error {
	g.w.writef("const %s = enum {\n", decl.Name)
	g.w.push()
	for _, v := range decl.Variants {
		if v.Value != nil {
			g.w.writef("%s = %s,\n", v.Name, g.expr(v.Value))
		} else {
			g.w.writef("%s,\n", v.Name)
		}
	}
	g.w.pop()
	g.w.line("};")
	g.w.line("")
	return nil
}

func (g *ZigGenerator) emitUnion(decl *ast.Node) error {
	keyword := "union"
	if decl.IsTagged {
		keyword = "union(enum)"
	}
	g.w.writef("const %s = %s {\n", decl.Name, keyword)
	g.w.push()
	for _, f := range decl.Fields {
		g.w.writef("%s: %s,\n", f.Name, g.typeOf(f.FieldType))
	}
	g.w.pop()
	g.w.line("};")
	g.w.line("")
	return nil
}

func (g *ZigGenerator) emitStmt(stmt *ast.Node) error {
	switch stmt.Kind {
	case ast.VAR:
		return g.emitVar(stmt)

	case ast.CONST:
		g.w.writef("const %s = %s;\n", emitName(stmt), g.expr(stmt.Value))
		return nil

	case ast.STRUCT:
		return g.emitStruct(stmt)
	case ast.ENUM:
		return g.emitEnum(stmt)
	case ast.UNION:
		return g.emitUnion(stmt)

	case ast.BLOCK:
		g.w.line("{")
		g.w.push()
		for _, s := range stmt.Statements {
			if err := g.emitStmt(s); err != nil {
				return err
			}
		}
		g.w.pop()
		g.w.line("}")
		return nil

	case ast.RETURN:
		if stmt.Value != nil {
			g.w.writef("return %s;\n", g.expr(stmt.Value))
		} else {
			g.w.line("return;")
		}
		return nil

	case ast.BREAK:
		g.w.line("break;")
		return nil
	case ast.CONTINUE:
		g.w.line("continue;")
		return nil
	case ast.FALL:
		// Zig switch prongs do not fall through; `fall` emits nothing and
		// cases are not merged.
		return nil

	case ast.DEFER:
		g.w.write("defer ")
		return g.emitStmt(stmt.Statement)

	case ast.DEL:
		g.needsStd = true
		g.w.writef("std.heap.page_allocator.destroy(%s);\n", g.expr(stmt.Operand))
		return nil

	case ast.IF_STMT:
		return g.emitIf(stmt)

	case ast.WHILE:
		g.w.writef("while (%s) ", g.expr(stmt.Condition))
		return g.emitBody(stmt.Body)

	case ast.FOR:
		return g.emitFor(stmt)

	case ast.FOR_IN:
		g.w.writef("for (%s) |%s| ", g.expr(stmt.Iterable), stmt.Iterator)
		return g.emitBody(stmt.Body)

	case ast.FOR_IN_INDEXED:
		g.w.writef("for (%s, 0..) |%s, %s| ", g.expr(stmt.Iterable), stmt.Iterator, stmt.IndexVar)
		return g.emitBody(stmt.Body)

	case ast.MATCH:
		return g.emitMatch(stmt)

	case ast.EXPRESSION_STMT:
		if call := stmt.Expression; call != nil && call.Kind == ast.CALL && call.StdlibCanonical != "" {
			g.emitStdlibCall(call)
			return nil
		}
		g.w.writef("_ = %s;\n", g.expr(stmt.Expression))
		return nil

	case ast.ASSIGNMENT:
		g.w.writef("%s %s %s;\n", g.expr(stmt.Target), stmt.AsgOp.String(), g.expr(stmt.Value))
		return nil

	case ast.FUNCTION:
		// Non-hoisted nested functions only occur before preprocessing.
		return g.emitFunction(stmt)
	}
	return nil
}

func (g *ZigGenerator) emitVar(stmt *ast.Node) error {
	name := emitName(stmt)
	keyword := "const"
	if stmt.IsMutable {
		keyword = "var"
	}

	typeSuffix := ""
	if stmt.ExplicitType != nil {
		typeSuffix = ": " + g.typeOf(stmt.ExplicitType)
	} else if stmt.IsMutable && stmt.ResolvedType != nil && stmt.ResolvedType.Kind == types.Primitive {
		typeSuffix = ": " + zigTypeName(stmt.ResolvedType.Name)
	}

	g.w.writef("%s %s%s = %s;\n", keyword, name, typeSuffix, g.expr(stmt.Value))
	if !stmt.IsUsed && !stmt.IsMutable {
		g.w.writef("_ = %s;\n", name)
	}
	return nil
}

func (g *ZigGenerator) emitBody(body *ast.Node) error {
	if body == nil {
		g.w.line("{}")
		return nil
	}
	if body.Kind != ast.BLOCK {
		g.w.line("{")
		g.w.push()
		if err := g.emitStmt(body); err != nil {
			return err
		}
		g.w.pop()
		g.w.line("}")
		return nil
	}
	return g.emitStmt(body)
}

func (g *ZigGenerator) emitIf(stmt *ast.Node) error {
	g.w.writef("if (%s) ", g.expr(stmt.Condition))
	if err := g.emitBody(stmt.Then); err != nil {
		return err
	}
	if stmt.Else != nil {
		g.w.write("else ")
		return g.emitBody(stmt.Else)
	}
	return nil
}

// emitFor lowers the C-style form to a Zig while loop with the init in
// an enclosing block; the bare `for { … }` form becomes `while (true)`.
func (g *ZigGenerator) emitFor(stmt *ast.Node) error {
	if stmt.Init == nil && stmt.Condition == nil && stmt.Update == nil {
		g.w.write("while (true) ")
		return g.emitBody(stmt.Body)
	}

	g.w.line("{")
	g.w.push()
	if stmt.Init != nil {
		if err := g.emitStmt(stmt.Init); err != nil {
			return err
		}
	}
	cond := "true"
	if stmt.Condition != nil {
		cond = g.expr(stmt.Condition)
	}
	if stmt.Update != nil && stmt.Update.Kind == ast.ASSIGNMENT {
		g.w.writef("while (%s) : (%s %s %s) ", cond,
			g.expr(stmt.Update.Target), stmt.Update.AsgOp.String(), g.expr(stmt.Update.Value))
	} else {
		g.w.writef("while (%s) ", cond)
	}
	if err := g.emitBody(stmt.Body); err != nil {
		return err
	}
	g.w.pop()
	g.w.line("}")
	return nil
}

func (g *ZigGenerator) emitMatch(stmt *ast.Node) error {
	g.w.writef("switch (%s) {\n", g.expr(stmt.Expression))
	g.w.push()
	for _, c := range stmt.Cases {
		labels := make([]string, 0, len(c.Patterns))
		for _, pattern := range c.Patterns {
			labels = append(labels, g.pattern(pattern))
		}
		g.w.writef("%s => ", strings.Join(labels, ", "))
		if err := g.emitBody(c.Statement); err != nil {
			return err
		}
		g.w.line(",")
	}
	if len(stmt.ElseCase) > 0 {
		g.w.write("else => ")
		for _, es := range stmt.ElseCase {
			if err := g.emitBody(es); err != nil {
				return err
			}
		}
		g.w.line(",")
	}
	g.w.pop()
	g.w.line("}")
	return nil
}

func (g *ZigGenerator) pattern(pattern *ast.Node) string {
	switch pattern.Kind {
	case ast.PATTERN_LITERAL:
		return g.expr(pattern.Literal)
	case ast.PATTERN_IDENTIFIER:
		return pattern.Name
	case ast.PATTERN_ENUM:
		return "." + pattern.Variant
	case ast.PATTERN_RANGE:
		return fmt.Sprintf("%s...%s", g.expr(pattern.Start), g.expr(pattern.End))
	}
	return g.expr(pattern)
}

// emitStdlibCall renders an io.* call through the backend mapping.
func (g *ZigGenerator) emitStdlibCall(call *ast.Node) {
	g.needsStd = true
	mapped := ""
	if g.registry != nil {
		mapped = g.registry.BackendMapping(call.StdlibCanonical, "zig")
	}
	if mapped == "" {
		mapped = "std.debug.print"
	}

	newline := strings.HasSuffix(call.StdlibCanonical, "println") ||
		strings.HasSuffix(call.StdlibCanonical, "eprintln")
	suffix := ""
	if newline {
		suffix = "\\n"
	}

	if strings.HasPrefix(call.StdlibCanonical, "std.io.") {
		if len(call.Arguments) == 1 && call.Arguments[0].Kind == ast.LITERAL &&
			call.Arguments[0].LiteralKind == ast.LitString {
			g.w.writef("%s(\"%s%s\", .{});\n", mapped,
				escapeZigString(call.Arguments[0].StrVal), suffix)
			return
		}
		args := make([]string, 0, len(call.Arguments))
		verbs := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			args = append(args, g.expr(arg))
			verbs = append(verbs, "{any}")
		}
		g.w.writef("%s(\"%s%s\", .{%s});\n", mapped,
			strings.Join(verbs, " "), suffix, strings.Join(args, ", "))
		return
	}

	args := make([]string, 0, len(call.Arguments))
	for _, arg := range call.Arguments {
		args = append(args, g.expr(arg))
	}
	g.w.writef("_ = %s(%s);\n", mapped, strings.Join(args, ", "))
}

func (g *ZigGenerator) expr(n *ast.Node) string {
	if n == nil {
		return "undefined"
	}

	switch n.Kind {
	case ast.LITERAL:
		return g.literal(n)

	case ast.IDENTIFIER:
		if strings.HasPrefix(n.Name, "@") {
			return n.Name
		}
		return n.Name

	case ast.BINARY:
		op := n.BinOp.String()
		switch n.BinOp {
		case ast.OpAnd:
			op = "and"
		case ast.OpOr:
			op = "or"
		}
		return fmt.Sprintf("(%s %s %s)", g.expr(n.Left), op, g.expr(n.Right))

	case ast.UNARY:
		switch n.UnOp {
		case ast.OpNot:
			return fmt.Sprintf("!(%s)", g.expr(n.Operand))
		case ast.OpBitNot:
			return fmt.Sprintf("~(%s)", g.expr(n.Operand))
		default:
			return fmt.Sprintf("-(%s)", g.expr(n.Operand))
		}

	case ast.CALL:
		if n.StdlibCanonical != "" && g.registry != nil {
			if mapped := g.registry.BackendMapping(n.StdlibCanonical, "zig"); mapped != "" {
				args := make([]string, 0, len(n.Arguments))
				for _, arg := range n.Arguments {
					args = append(args, g.expr(arg))
				}
				if strings.HasPrefix(mapped, "std.") {
					g.needsStd = true
				}
				return fmt.Sprintf("%s(%s)", mapped, strings.Join(args, ", "))
			}
		}
		args := make([]string, 0, len(n.Arguments))
		for _, arg := range n.Arguments {
			args = append(args, g.expr(arg))
		}
		return fmt.Sprintf("%s(%s)", g.expr(n.Function), strings.Join(args, ", "))

	case ast.INDEX:
		return fmt.Sprintf("%s[%s]", g.expr(n.Object), g.expr(n.Index))

	case ast.SLICE:
		start := "0"
		if n.Start != nil {
			start = g.expr(n.Start)
		}
		if n.End != nil {
			return fmt.Sprintf("%s[%s..%s]", g.expr(n.Object), start, g.expr(n.End))
		}
		return fmt.Sprintf("%s[%s..]", g.expr(n.Object), start)

	case ast.FIELD_ACCESS:
		return fmt.Sprintf("%s.%s", g.expr(n.Object), n.Field)

	case ast.ADDRESS_OF:
		return fmt.Sprintf("&%s", g.expr(n.Operand))

	case ast.DEREF:
		return fmt.Sprintf("%s.*", g.expr(n.Pointer))

	case ast.CAST:
		return g.cast(n)

	case ast.NEW_EXPR:
		g.needsStd = true
		return fmt.Sprintf("(std.heap.page_allocator.create(%s) catch unreachable)",
			g.typeOf(n.TargetType))

	case ast.STRUCT_INIT:
		inits := make([]string, 0, len(n.FieldInits))
		for _, fi := range n.FieldInits {
			if fi.Name != "" {
				inits = append(inits, fmt.Sprintf(".%s = %s", fi.Name, g.expr(fi.Value)))
			} else {
				inits = append(inits, g.expr(fi.Value))
			}
		}
		return fmt.Sprintf("%s{ %s }", n.StructType, strings.Join(inits, ", "))

	case ast.ARRAY_INIT:
		elems := make([]string, 0, len(n.Elements))
		for _, e := range n.Elements {
			elems = append(elems, g.expr(e))
		}
		elemType := "i32"
		if n.ResolvedType != nil && n.ResolvedType.Kind == types.Array && n.ResolvedType.Elem != nil {
			elemType = g.zigType(n.ResolvedType.Elem)
		}
		return fmt.Sprintf("[_]%s{ %s }", elemType, strings.Join(elems, ", "))

	case ast.IF_EXPR:
		if n.ElseExpr != nil {
			return fmt.Sprintf("(if (%s) %s else %s)",
				g.expr(n.Condition), g.expr(n.ThenExpr), g.expr(n.ElseExpr))
		}
		return fmt.Sprintf("(if (%s) %s)", g.expr(n.Condition), g.expr(n.ThenExpr))
	}

	return "undefined"
}

func (g *ZigGenerator) cast(n *ast.Node) string {
	target := g.typeOf(n.TargetType)
	source := g.typeMap[n.Expression]
	expr := g.expr(n.Expression)

	switch {
	case source != nil && source.IsFloat() && isZigIntType(target):
		return fmt.Sprintf("@as(%s, @intFromFloat(%s))", target, expr)
	case source != nil && source.IsInteger() && (target == "f32" || target == "f64"):
		return fmt.Sprintf("@as(%s, @floatFromInt(%s))", target, expr)
	case source != nil && source.IsInteger() && isZigIntType(target):
		return fmt.Sprintf("@as(%s, @intCast(%s))", target, expr)
	case source != nil && source.Kind == types.Enum && isZigIntType(target):
		return fmt.Sprintf("@as(%s, @intFromEnum(%s))", target, expr)
	}
	return fmt.Sprintf("@as(%s, %s)", target, expr)
}

func (g *ZigGenerator) literal(n *ast.Node) string {
	switch n.LiteralKind {
	case ast.LitString:
		return fmt.Sprintf("\"%s\"", escapeZigString(n.StrVal))
	case ast.LitChar:
		return fmt.Sprintf("'%s'", escapeZigChar(n.StrVal))
	case ast.LitNil:
		return "null"
	case ast.LitBoolean:
		if n.BoolVal {
			return "true"
		}
		return "false"
	}
	if n.RawText != "" {
		return n.RawText
	}
	return fmt.Sprintf("%d", n.IntVal)
}

// typeOf renders a TYPE_* node as Zig source.
func (g *ZigGenerator) typeOf(node *ast.Node) string {
	if node == nil {
		return "void"
	}
	switch node.Kind {
	case ast.TYPE_PRIMITIVE:
		return zigTypeName(node.Name)
	case ast.TYPE_IDENTIFIER, ast.TYPE_GENERIC:
		return node.Name
	case ast.TYPE_POINTER:
		return "*" + g.typeOf(node.TargetType)
	case ast.TYPE_SLICE:
		return "[]" + g.typeOf(node.ElementType)
	case ast.TYPE_ARRAY:
		return fmt.Sprintf("[%s]%s", g.expr(node.Size), g.typeOf(node.ElementType))
	case ast.TYPE_FUNCTION:
		params := make([]string, 0, len(node.Parameters))
		for _, p := range node.Parameters {
			params = append(params, g.typeOf(p))
		}
		ret := "void"
		if node.ReturnType != nil {
			ret = g.typeOf(node.ReturnType)
		}
		return fmt.Sprintf("*const fn (%s) %s", strings.Join(params, ", "), ret)
	case ast.TYPE_STRUCT:
		var b strings.Builder
		b.WriteString("struct { ")
		for i, f := range node.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", f.Name, g.typeOf(f.FieldType))
		}
		b.WriteString(" }")
		return b.String()
	}
	return "void"
}

func (g *ZigGenerator) zigType(t *types.Type) string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case types.Primitive:
		return zigTypeName(t.Name)
	case types.Pointer:
		return "*" + g.zigType(t.Elem)
	case types.Slice:
		return "[]" + g.zigType(t.Elem)
	case types.Array:
		return fmt.Sprintf("[%d]%s", t.Size, g.zigType(t.Elem))
	case types.Struct, types.Enum, types.Union, types.GenericParam:
		return t.Name
	}
	return "void"
}

func zigTypeName(name string) string {
	switch name {
	case "string":
		return "[]const u8"
	case "char":
		return "u8"
	}
	return name
}

func isZigIntType(name string) bool {
	switch name {
	case "i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64", "isize", "usize":
		return true
	}
	return false
}

// emitName returns the shadow-rename when one applies, the source name
// otherwise.
func emitName(n *ast.Node) string {
	if n.EmitName != "" {
		return n.EmitName
	}
	return n.Name
}

func escapeZigString(s string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", "\\n",
		"\t", "\\t",
		"\r", "\\r",
	)
	return replacer.Replace(s)
}

func escapeZigChar(s string) string {
	switch s {
	case "\n":
		return "\\n"
	case "\t":
		return "\\t"
	case "\r":
		return "\\r"
	case "'":
		return "\\'"
	case "\\":
		return "\\\\"
	case "\x00":
		return "\\x00"
	}
	return s
}
