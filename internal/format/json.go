// Package format renders compilation results for humans and machines:
// the pieces of the JSON v2.0 payload and Markdown documentation.
package format

import (
	"github.com/oxhq/a7c/internal/ast"
	"github.com/oxhq/a7c/internal/diag"
	"github.com/oxhq/a7c/internal/token"
)

// TokenJSON is the serialized form of one token.
type TokenJSON struct {
	Type   string `json:"type"`
	Value  string `json:"value"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Length int    `json:"length"`
}

// TokensToJSON converts a token stream for the JSON payload.
func TokensToJSON(tokens []token.Token) []TokenJSON {
	out := make([]TokenJSON, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, TokenJSON{
			Type:   t.Kind.String(),
			Value:  t.Lexeme,
			Line:   t.Line,
			Column: t.Column,
			Length: t.Length,
		})
	}
	return out
}

// SpanToJSON converts a span into the schema's span object.
func SpanToJSON(n *ast.Node) map[string]any {
	sp := n.Span
	return map[string]any{
		"start_line":   sp.StartLine,
		"start_column": sp.StartColumn,
		"end_line":     sp.EndLine,
		"end_column":   sp.EndColumn,
		"length":       sp.Length,
	}
}

// ErrorToDetail converts a diagnostic into the JSON error detail object.
func ErrorToDetail(err *diag.Error, inputPath string) map[string]any {
	detail := map[string]any{
		"type":    string(err.Category),
		"message": err.Message,
		"file":    inputPath,
	}
	if err.Lex != "" {
		detail["kind"] = string(err.Lex)
	}
	if err.Span.Valid() {
		detail["span"] = map[string]any{
			"start_line":   err.Span.StartLine,
			"start_column": err.Span.StartColumn,
			"end_line":     err.Span.EndLine,
			"end_column":   err.Span.EndColumn,
			"length":       err.Span.Length,
		}
	}
	return detail
}

// astEdge tracks where a serialized child map hangs off its parent map.
type astEdge struct {
	node   *ast.Node
	parent map[string]any
	key    string
	index  int // -1 for single fields
}

// ASTToMap serializes the AST into nested maps for JSON output. The walk
// is iterative, mirroring the compiler's traversal contract.
func ASTToMap(root *ast.Node) map[string]any {
	if root == nil {
		return nil
	}

	rootMap := make(map[string]any)
	stack := []astEdge{{node: root, index: -1}}

	for len(stack) > 0 {
		edge := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		m := rootMap
		if edge.parent != nil {
			m = make(map[string]any)
			if edge.index < 0 {
				edge.parent[edge.key] = m
			} else {
				edge.parent[edge.key].([]any)[edge.index] = m
			}
		}

		n := edge.node
		fillScalars(m, n)

		for _, slot := range nodeSlots(n) {
			if slot.single != nil {
				stack = append(stack, astEdge{node: slot.single, parent: m, key: slot.name, index: -1})
			} else if len(slot.list) > 0 {
				arr := make([]any, len(slot.list))
				m[slot.name] = arr
				for i, child := range slot.list {
					stack = append(stack, astEdge{node: child, parent: m, key: slot.name, index: i})
				}
			}
		}
	}

	return rootMap
}

func fillScalars(m map[string]any, n *ast.Node) {
	m["kind"] = n.Kind.String()
	m["span"] = SpanToJSON(n)

	if n.Name != "" {
		m["name"] = n.Name
	}
	if n.ModulePath != "" {
		m["module_path"] = n.ModulePath
	}
	if n.Field != "" {
		m["field"] = n.Field
	}
	if n.Iterator != "" {
		m["iterator"] = n.Iterator
	}
	if n.IndexVar != "" {
		m["index_var"] = n.IndexVar
	}
	if n.EnumType != "" {
		m["enum_type"] = n.EnumType
	}
	if n.Variant != "" {
		m["variant"] = n.Variant
	}
	if n.StructType != "" {
		m["struct_type"] = n.StructType
	}
	if n.IsPublic {
		m["is_public"] = true
	}
	if n.IsTagged {
		m["is_tagged"] = true
	}
	if n.IsMutable {
		m["is_mutable"] = true
	}
	if n.Kind == ast.VAR || n.Kind == ast.PARAMETER {
		m["is_used"] = n.IsUsed
	}
	if n.Hoisted {
		m["hoisted"] = true
	}
	if n.EmitName != "" {
		m["emit_name"] = n.EmitName
	}
	if n.StdlibCanonical != "" {
		m["stdlib_canonical"] = n.StdlibCanonical
	}
	if n.ResolvedType != nil {
		m["resolved_type"] = n.ResolvedType.String()
	}

	if n.LiteralKind != ast.LitNone {
		m["literal_kind"] = n.LiteralKind.String()
		m["raw_text"] = n.RawText
		switch n.LiteralKind {
		case ast.LitInteger:
			m["literal_value"] = n.IntVal
		case ast.LitFloat:
			m["literal_value"] = n.FloatVal
		case ast.LitBoolean:
			m["literal_value"] = n.BoolVal
		case ast.LitString, ast.LitChar:
			m["literal_value"] = n.StrVal
		}
	}

	switch n.Kind {
	case ast.BINARY:
		m["operator"] = n.BinOp.String()
	case ast.UNARY:
		m["operator"] = n.UnOp.String()
	case ast.ASSIGNMENT:
		m["operator"] = n.AsgOp.String()
	}
}

// slotValue pairs a JSON key with either a single child or a child list.
type slotValue struct {
	name   string
	single *ast.Node
	list   []*ast.Node
}

func nodeSlots(n *ast.Node) []slotValue {
	var out []slotValue
	add := func(name string, child *ast.Node) {
		if child != nil {
			out = append(out, slotValue{name: name, single: child})
		}
	}
	addList := func(name string, children []*ast.Node) {
		if len(children) > 0 {
			out = append(out, slotValue{name: name, list: children})
		}
	}

	add("value", n.Value)
	add("body", n.Body)
	add("condition", n.Condition)
	add("then_stmt", n.Then)
	add("else_stmt", n.Else)
	add("init", n.Init)
	add("update", n.Update)
	add("target", n.Target)
	add("function", n.Function)
	add("left", n.Left)
	add("right", n.Right)
	add("operand", n.Operand)
	add("pointer", n.Pointer)
	add("object", n.Object)
	add("index", n.Index)
	add("start", n.Start)
	add("end", n.End)
	add("iterable", n.Iterable)
	add("then_expr", n.ThenExpr)
	add("else_expr", n.ElseExpr)
	add("return_type", n.ReturnType)
	add("explicit_type", n.ExplicitType)
	add("param_type", n.ParamType)
	add("field_type", n.FieldType)
	add("element_type", n.ElementType)
	add("target_type", n.TargetType)
	add("size", n.Size)
	add("statement", n.Statement)
	add("literal", n.Literal)
	add("expression", n.Expression)

	addList("declarations", n.Declarations)
	addList("statements", n.Statements)
	addList("parameters", n.Parameters)
	addList("generic_params", n.GenericParams)
	addList("arguments", n.Arguments)
	addList("fields", n.Fields)
	addList("variants", n.Variants)
	addList("field_inits", n.FieldInits)
	addList("elements", n.Elements)
	addList("cases", n.Cases)
	addList("else_case", n.ElseCase)
	addList("patterns", n.Patterns)

	return out
}
