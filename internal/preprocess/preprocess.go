// Package preprocess runs the annotation-and-lowering passes between
// semantic analysis and emission. It does not change program meaning.
//
// Sub-passes, in order:
//
//  1. Collect struct definitions (field-name order per struct)
//  2. Lower .adr/.val field sugar to ADDRESS_OF / DEREF
//  3. Resolve stdlib calls into StdlibCanonical annotations
//  4. Normalize positional struct inits to named fields
//  5. Mutation analysis (is_mutable)
//  6. Usage analysis (is_used)
//  7. Type-annotation backfill for untyped mutable vars
//  8. Shadowing resolution (emit_name)
//  9. Nested-function hoisting
//  10. Constant folding (shares the bottom-up transform with pass 2)
//
// Every walk runs on an explicit stack; no traversal of user code relies
// on the host call stack.
package preprocess

import (
	"fmt"

	"github.com/oxhq/a7c/internal/ast"
	"github.com/oxhq/a7c/internal/diag"
	"github.com/oxhq/a7c/internal/semantic"
	"github.com/oxhq/a7c/internal/symtab"
	"github.com/oxhq/a7c/internal/types"
)

// Registry is the stdlib lookup interface the preprocessor consumes.
type Registry interface {
	ResolveCall(module, method string) string
	ResolveBuiltin(name string) string
	BackendMapping(canonical, backend string) string
	IsIOCall(module, method string) bool
}

// Preprocessor transforms and annotates the AST in place. ChangesMade
// counts applied rewrites; a second run over the same tree makes zero.
type Preprocessor struct {
	ChangesMade int

	// Warnings collects canonical names with no mapping for the
	// selected backend. The emitter still decides hard failure.
	Warnings []*diag.Error

	table    *symtab.Table
	typeMap  semantic.TypeMap
	registry Registry
	backend  string

	structDefs map[string][]string
}

// New prepares a preprocessor. Any of table, typeMap, and registry may
// be nil; the corresponding passes then skip their lookups. backend
// selects the target used for the canonical-mapping check.
func New(table *symtab.Table, typeMap semantic.TypeMap, registry Registry, backend string) *Preprocessor {
	return &Preprocessor{
		table:      table,
		typeMap:    typeMap,
		registry:   registry,
		backend:    backend,
		structDefs: make(map[string][]string),
	}
}

// Process runs all sub-passes and returns the (possibly replaced) root.
func (p *Preprocessor) Process(root *ast.Node) *ast.Node {
	p.ChangesMade = 0
	if root == nil {
		return nil
	}

	p.collectStructDefs(root)

	root = ast.TransformPostOrder(root, func(n *ast.Node) *ast.Node {
		n = p.lowerFieldSugar(n)
		n = p.foldConstants(n)
		p.resolveStdlibCall(n)
		p.normalizeStructInit(n)
		return n
	})

	if root.Kind == ast.PROGRAM {
		for _, decl := range root.Declarations {
			if decl.Kind == ast.FUNCTION {
				p.annotateFunction(decl)
			}
		}
	}

	return root
}

// ---- Pass 1: struct definition collection ----

func (p *Preprocessor) collectStructDefs(root *ast.Node) {
	ast.Walk(root, func(n *ast.Node) {
		if n.Kind == ast.STRUCT && n.Name != "" {
			fields := make([]string, 0, len(n.Fields))
			for _, f := range n.Fields {
				if f.Name != "" {
					fields = append(fields, f.Name)
				}
			}
			p.structDefs[n.Name] = fields
		}
	})
}

// ---- Pass 2: field-sugar lowering ----

func (p *Preprocessor) lowerFieldSugar(n *ast.Node) *ast.Node {
	if n.Kind != ast.FIELD_ACCESS || n.Object == nil {
		return n
	}
	switch n.Field {
	case "adr":
		p.ChangesMade++
		return &ast.Node{
			Kind:         ast.ADDRESS_OF,
			Operand:      n.Object,
			Span:         n.Span,
			ResolvedType: n.ResolvedType,
		}
	case "val":
		p.ChangesMade++
		return &ast.Node{
			Kind:         ast.DEREF,
			Pointer:      n.Object,
			Span:         n.Span,
			ResolvedType: n.ResolvedType,
		}
	}
	return n
}

// ---- Pass 3: stdlib-call resolution ----

func (p *Preprocessor) resolveStdlibCall(n *ast.Node) {
	if p.registry == nil || n.Kind != ast.CALL || n.Function == nil || n.StdlibCanonical != "" {
		return
	}

	fn := n.Function
	var canonical string
	switch {
	case fn.Kind == ast.FIELD_ACCESS && fn.Object != nil &&
		fn.Object.Kind == ast.IDENTIFIER && fn.Object.Name != "":
		canonical = p.registry.ResolveCall(fn.Object.Name, fn.Field)
	case fn.Kind == ast.IDENTIFIER && fn.Name != "":
		canonical = p.registry.ResolveBuiltin(fn.Name)
	}

	if canonical == "" {
		return
	}
	n.StdlibCanonical = canonical
	p.ChangesMade++

	if p.backend != "" && p.registry.BackendMapping(canonical, p.backend) == "" {
		warn := diag.NewSemanticError(fmt.Sprintf(
			"Stdlib function %s has no mapping for backend %q", canonical, p.backend),
			n.Span, "", nil)
		warn.Severity = diag.SeverityWarning
		p.Warnings = append(p.Warnings, warn)
	}
}

// ---- Pass 4: struct-init normalization ----

func (p *Preprocessor) normalizeStructInit(n *ast.Node) {
	if n.Kind != ast.STRUCT_INIT || len(n.FieldInits) == 0 {
		return
	}

	hasPositional := false
	for _, fi := range n.FieldInits {
		if fi.Name == "" {
			hasPositional = true
			break
		}
	}
	if !hasPositional {
		return
	}

	fieldNames, ok := p.structDefs[n.StructType]
	if !ok {
		return
	}
	if len(n.FieldInits) > len(fieldNames) {
		// Too many inits; the type checker has already reported.
		return
	}

	for i, fi := range n.FieldInits {
		if fi.Name == "" {
			fi.Name = fieldNames[i]
			p.ChangesMade++
		}
	}
}

// ---- Passes 5–9: per-function annotation ----

func (p *Preprocessor) annotateFunction(fn *ast.Node) {
	if fn.Body == nil {
		return
	}

	mutated := collectMutations(fn.Body)
	markMutations(fn, mutated)

	used := collectUsedIdentifiers(fn.Body)
	markUsage(fn, used)

	p.backfillTypes(fn.Body)
	p.resolveShadowing(fn)
	p.hoistNestedFunctions(fn)
}

// rootIdentifier chases through indexing, field access, and dereference
// to the root variable name of an assignment target. Iterative.
func rootIdentifier(n *ast.Node) string {
	for n != nil {
		switch n.Kind {
		case ast.IDENTIFIER:
			return n.Name
		case ast.INDEX, ast.FIELD_ACCESS, ast.SLICE:
			n = n.Object
		case ast.DEREF:
			n = n.Pointer
		default:
			return ""
		}
	}
	return ""
}

// ---- Pass 5: mutation analysis ----

func collectMutations(body *ast.Node) map[string]bool {
	mutations := make(map[string]bool)
	ast.Walk(body, func(n *ast.Node) {
		if n.Kind == ast.ASSIGNMENT && n.Target != nil {
			if root := rootIdentifier(n.Target); root != "" {
				mutations[root] = true
			}
		}
	})
	return mutations
}

func markMutations(fn *ast.Node, mutated map[string]bool) {
	ast.Walk(fn.Body, func(n *ast.Node) {
		if n.Kind == ast.VAR && n.Name != "" && mutated[n.Name] && !n.IsMutable {
			n.IsMutable = true
		}
		if n.Kind == ast.FOR && n.Init != nil &&
			n.Init.Kind == ast.VAR && n.Init.Name != "" {
			n.Init.IsMutable = true
		}
	})
}

// ---- Pass 6: usage analysis ----

func collectUsedIdentifiers(body *ast.Node) map[string]bool {
	used := make(map[string]bool)
	ast.Walk(body, func(n *ast.Node) {
		if (n.Kind == ast.IDENTIFIER || n.Kind == ast.TYPE_IDENTIFIER) && n.Name != "" {
			used[n.Name] = true
		}
	})
	return used
}

func markUsage(fn *ast.Node, used map[string]bool) {
	for _, param := range fn.Parameters {
		if param.Kind == ast.PARAMETER {
			param.IsUsed = param.Name == "" || used[param.Name]
		}
	}
	ast.Walk(fn.Body, func(n *ast.Node) {
		if n.Kind == ast.VAR && n.Name != "" {
			n.IsUsed = used[n.Name]
		}
	})
}

// ---- Pass 7: type-annotation backfill ----

func (p *Preprocessor) backfillTypes(body *ast.Node) {
	ast.Walk(body, func(n *ast.Node) {
		if n.Kind != ast.VAR || !n.IsMutable || n.ExplicitType != nil || n.Value == nil {
			return
		}
		if p.typeMap != nil {
			if _, ok := p.typeMap[n]; ok {
				return
			}
		}
		if n.ResolvedType != nil && n.ResolvedType.Kind != types.Unknown {
			return
		}
		if t := defaultLiteralType(n.Value); t != nil {
			n.ResolvedType = t
			p.ChangesMade++
		}
	})
}

func defaultLiteralType(value *ast.Node) *types.Type {
	if value == nil || value.Kind != ast.LITERAL {
		return nil
	}
	switch value.LiteralKind {
	case ast.LitInteger:
		return types.Prim("i32")
	case ast.LitFloat:
		return types.Prim("f64")
	case ast.LitBoolean:
		return types.Prim("bool")
	case ast.LitString:
		return types.Prim("string")
	case ast.LitChar:
		return types.Prim("char")
	}
	return nil
}

// ---- Pass 8: shadowing resolution ----

// shadowOp is one entry of the iterative shadowing walk: either a scope
// boundary event or a node visit.
type shadowOp struct {
	node       *ast.Node
	enterScope bool
	exitScope  bool
}

func (p *Preprocessor) resolveShadowing(fn *ast.Node) {
	if fn.Body == nil {
		return
	}

	scopes := []map[string]bool{{}}
	emitted := make(map[string]bool)

	for _, param := range fn.Parameters {
		if param.Name != "" {
			scopes[0][param.Name] = true
			emitted[param.Name] = true
		}
	}

	declare := func(name string) string {
		shadowed := false
		for _, outer := range scopes[:len(scopes)-1] {
			if outer[name] {
				shadowed = true
				break
			}
		}
		if !shadowed {
			scopes[len(scopes)-1][name] = true
			emitted[name] = true
			return ""
		}
		for suffix := 1; ; suffix++ {
			candidate := fmt.Sprintf("%s_%d", name, suffix)
			if !emitted[candidate] {
				emitted[candidate] = true
				scopes[len(scopes)-1][name] = true
				return candidate
			}
		}
	}

	stack := []shadowOp{{node: fn.Body}}
	for len(stack) > 0 {
		op := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if op.enterScope {
			scopes = append(scopes, map[string]bool{})
			continue
		}
		if op.exitScope {
			if len(scopes) > 1 {
				scopes = scopes[:len(scopes)-1]
			}
			continue
		}

		n := op.node
		if n == nil {
			continue
		}

		switch n.Kind {
		case ast.VAR:
			if n.Name != "" {
				if rename := declare(n.Name); rename != "" && n.EmitName == "" {
					n.EmitName = rename
					p.ChangesMade++
				}
			}

		case ast.BLOCK:
			// Reverse execution order: enter scope, statements, exit.
			stack = append(stack, shadowOp{exitScope: true})
			for i := len(n.Statements) - 1; i >= 0; i-- {
				stack = append(stack, shadowOp{node: n.Statements[i]})
			}
			stack = append(stack, shadowOp{enterScope: true})

		case ast.IF_STMT, ast.WHILE, ast.FOR, ast.FOR_IN, ast.FOR_IN_INDEXED, ast.MATCH:
			for i := len(n.ElseCase) - 1; i >= 0; i-- {
				stack = append(stack, shadowOp{node: n.ElseCase[i]})
			}
			for i := len(n.Cases) - 1; i >= 0; i-- {
				if n.Cases[i].Statement != nil {
					stack = append(stack, shadowOp{node: n.Cases[i].Statement})
				}
			}
			for _, child := range []*ast.Node{n.Else, n.Then, n.Body, n.Init} {
				if child != nil {
					stack = append(stack, shadowOp{node: child})
				}
			}

		default:
			for _, child := range []*ast.Node{n.Statement, n.Init, n.Else, n.Then, n.Body} {
				if child != nil {
					stack = append(stack, shadowOp{node: child})
				}
			}
			for i := len(n.Statements) - 1; i >= 0; i-- {
				stack = append(stack, shadowOp{node: n.Statements[i]})
			}
		}
	}
}

// ---- Pass 9: nested-function hoisting ----

func (p *Preprocessor) hoistNestedFunctions(fn *ast.Node) {
	body := fn.Body
	if body == nil || body.Kind != ast.BLOCK {
		return
	}
	for _, stmt := range body.Statements {
		if stmt.Kind == ast.FUNCTION {
			if !stmt.Hoisted {
				stmt.Hoisted = true
				p.ChangesMade++
			}
			p.annotateFunction(stmt)
		}
	}
}

// ---- Pass 10: constant folding ----

func (p *Preprocessor) foldConstants(n *ast.Node) *ast.Node {
	switch n.Kind {
	case ast.UNARY:
		return p.foldUnary(n)
	case ast.BINARY:
		return p.foldBinary(n)
	}
	return n
}

func (p *Preprocessor) foldUnary(n *ast.Node) *ast.Node {
	operand := n.Operand
	if operand == nil || operand.Kind != ast.LITERAL {
		return n
	}

	switch n.UnOp {
	case ast.OpNeg:
		switch operand.LiteralKind {
		case ast.LitInteger:
			p.ChangesMade++
			return ast.IntLiteral(-operand.IntVal, n.Span)
		case ast.LitFloat:
			p.ChangesMade++
			return ast.FloatLiteral(-operand.FloatVal, n.Span)
		}
	case ast.OpNot:
		if operand.LiteralKind == ast.LitBoolean {
			p.ChangesMade++
			return ast.BoolLiteral(!operand.BoolVal, n.Span)
		}
	}
	return n
}

func (p *Preprocessor) foldBinary(n *ast.Node) *ast.Node {
	left, right := n.Left, n.Right
	if left == nil || right == nil ||
		left.Kind != ast.LITERAL || right.Kind != ast.LITERAL {
		return n
	}

	if left.LiteralKind == ast.LitInteger && right.LiteralKind == ast.LitInteger {
		if result, ok := foldIntOp(n.BinOp, left.IntVal, right.IntVal); ok {
			p.ChangesMade++
			return ast.IntLiteral(result, n.Span)
		}
		return n
	}

	if left.LiteralKind == ast.LitFloat && right.LiteralKind == ast.LitFloat {
		if result, ok := foldFloatOp(n.BinOp, left.FloatVal, right.FloatVal); ok {
			p.ChangesMade++
			return ast.FloatLiteral(result, n.Span)
		}
		return n
	}

	if left.LiteralKind == ast.LitBoolean && right.LiteralKind == ast.LitBoolean {
		switch n.BinOp {
		case ast.OpAnd:
			p.ChangesMade++
			return ast.BoolLiteral(left.BoolVal && right.BoolVal, n.Span)
		case ast.OpOr:
			p.ChangesMade++
			return ast.BoolLiteral(left.BoolVal || right.BoolVal, n.Span)
		}
	}

	return n
}

// foldIntOp applies an integer operation, refusing division or modulo by
// zero and any overflow; the caller leaves the node unchanged in those
// cases.
func foldIntOp(op ast.BinaryOp, l, r int64) (int64, bool) {
	switch op {
	case ast.OpAdd:
		result := l + r
		if (l > 0 && r > 0 && result < 0) || (l < 0 && r < 0 && result > 0) {
			return 0, false
		}
		return result, true
	case ast.OpSub:
		result := l - r
		if (l >= 0 && r < 0 && result < 0) || (l < 0 && r > 0 && result > 0) {
			return 0, false
		}
		return result, true
	case ast.OpMul:
		if l == 0 || r == 0 {
			return 0, true
		}
		result := l * r
		if result/r != l || (l == -1<<63 && r == -1) {
			return 0, false
		}
		return result, true
	case ast.OpDiv:
		if r == 0 || (l == -1<<63 && r == -1) {
			return 0, false
		}
		return l / r, true
	case ast.OpMod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	}
	return 0, false
}

func foldFloatOp(op ast.BinaryOp, l, r float64) (float64, bool) {
	switch op {
	case ast.OpAdd:
		return l + r, true
	case ast.OpSub:
		return l - r, true
	case ast.OpMul:
		return l * r, true
	case ast.OpDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	}
	return 0, false
}
