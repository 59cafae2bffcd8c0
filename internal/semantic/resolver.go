// Package semantic implements the three analysis passes that run between
// parsing and preprocessing: name resolution, type checking, and
// semantic validation. Each pass accumulates its diagnostics; a stage
// fails when its list is non-empty.
package semantic

import (
	"fmt"

	"github.com/oxhq/a7c/internal/ast"
	"github.com/oxhq/a7c/internal/diag"
	"github.com/oxhq/a7c/internal/symtab"
)

// StdlibNames is the narrow view of the stdlib registry the resolver
// needs: module and builtin names resolve implicitly without a
// declaration in scope.
type StdlibNames interface {
	IsModule(name string) bool
	IsBuiltinName(name string) bool
}

// Resolver builds the symbol table and binds identifier references.
type Resolver struct {
	Errors []*diag.Error

	table    *symtab.Table
	stdlib   StdlibNames
	filename string
	lines    []string
}

// NewResolver prepares a resolver. stdlib may be nil, in which case only
// declared names resolve.
func NewResolver(stdlib StdlibNames, filename string, lines []string) *Resolver {
	return &Resolver{
		table:    symtab.NewTable(),
		stdlib:   stdlib,
		filename: filename,
		lines:    lines,
	}
}

// Resolve runs both phases over the program and returns the symbol
// table. Errors accumulate in r.Errors; resolution visits everything so
// later passes can see all symbols even when the stage fails.
func (r *Resolver) Resolve(program *ast.Node) *symtab.Table {
	if program == nil || program.Kind != ast.PROGRAM {
		return r.table
	}

	// Phase 1: collect top-level declarations into the program scope.
	for _, decl := range program.Declarations {
		r.declareTopLevel(decl)
	}

	// Phase 2: resolve function bodies and constant initializers.
	for _, decl := range program.Declarations {
		switch decl.Kind {
		case ast.FUNCTION:
			r.resolveFunction(decl, symtab.ModuleScopeID)
		case ast.CONST, ast.VAR:
			if decl.Value != nil {
				r.resolveExpr(decl.Value, symtab.ModuleScopeID)
			}
		case ast.STRUCT, ast.UNION:
			r.resolveFields(decl, symtab.ModuleScopeID)
		case ast.ENUM:
			for _, variant := range decl.Variants {
				if variant.Value != nil {
					r.resolveExpr(variant.Value, symtab.ModuleScopeID)
				}
			}
		}
	}

	return r.table
}

func (r *Resolver) errorf(n *ast.Node, format string, args ...any) {
	r.Errors = append(r.Errors,
		diag.NewSemanticError(fmt.Sprintf(format, args...), n.Span, r.filename, r.lines))
}

func (r *Resolver) declareTopLevel(decl *ast.Node) {
	var kind symtab.SymbolKind
	switch decl.Kind {
	case ast.FUNCTION:
		kind = symtab.Function
	case ast.STRUCT:
		kind = symtab.Struct
	case ast.ENUM:
		kind = symtab.Enum
	case ast.UNION:
		kind = symtab.Union
	case ast.CONST:
		kind = symtab.Constant
	case ast.VAR:
		kind = symtab.Variable
	case ast.IMPORT:
		if decl.Name == "" {
			return
		}
		kind = symtab.ImportAlias
	default:
		return
	}

	sym, ok := r.table.Declare(symtab.ModuleScopeID, decl.Name, kind, decl)
	if !ok {
		r.errorf(decl, "Duplicate declaration of %q", decl.Name)
		return
	}
	decl.SymID = sym.ID
}

func (r *Resolver) resolveFunction(fn *ast.Node, parent int32) {
	scope := r.table.PushScope(symtab.FunctionScope, parent)
	r.table.SetFunction(scope, fn)

	for _, gp := range fn.GenericParams {
		sym, ok := r.table.Declare(scope, gp.Name, symtab.GenericParam, gp)
		if !ok {
			r.errorf(gp, "Duplicate generic parameter %q", gp.Name)
			continue
		}
		gp.SymID = sym.ID
	}

	for _, param := range fn.Parameters {
		sym, ok := r.table.Declare(scope, param.Name, symtab.Parameter, param)
		if !ok {
			r.errorf(param, "Duplicate parameter %q", param.Name)
			continue
		}
		param.SymID = sym.ID
		if param.ParamType != nil {
			r.resolveType(param.ParamType, scope)
		}
	}
	if fn.ReturnType != nil {
		r.resolveType(fn.ReturnType, scope)
	}

	if fn.Body != nil {
		r.resolveBlockInto(fn.Body, scope)
	}
}

// resolveBlockInto resolves a block's statements directly in scope,
// without opening another level. Used for function bodies where the
// parameters share the body scope.
func (r *Resolver) resolveBlockInto(block *ast.Node, scope int32) {
	for _, stmt := range block.Statements {
		r.resolveStmt(stmt, scope)
	}
}

func (r *Resolver) resolveStmt(stmt *ast.Node, scope int32) {
	if stmt == nil {
		return
	}

	switch stmt.Kind {
	case ast.VAR:
		if stmt.Value != nil {
			r.resolveExpr(stmt.Value, scope)
		}
		if stmt.ExplicitType != nil {
			r.resolveType(stmt.ExplicitType, scope)
		}
		sym, ok := r.table.Declare(scope, stmt.Name, symtab.Variable, stmt)
		if !ok {
			r.errorf(stmt, "Duplicate declaration of %q", stmt.Name)
			return
		}
		stmt.SymID = sym.ID

	case ast.CONST:
		if stmt.Value != nil {
			r.resolveExpr(stmt.Value, scope)
		}
		sym, ok := r.table.Declare(scope, stmt.Name, symtab.Constant, stmt)
		if !ok {
			r.errorf(stmt, "Duplicate declaration of %q", stmt.Name)
			return
		}
		stmt.SymID = sym.ID

	case ast.STRUCT, ast.UNION:
		kind := symtab.Struct
		if stmt.Kind == ast.UNION {
			kind = symtab.Union
		}
		sym, ok := r.table.Declare(scope, stmt.Name, kind, stmt)
		if !ok {
			r.errorf(stmt, "Duplicate declaration of %q", stmt.Name)
			return
		}
		stmt.SymID = sym.ID
		r.resolveFields(stmt, scope)

	case ast.ENUM:
		sym, ok := r.table.Declare(scope, stmt.Name, symtab.Enum, stmt)
		if !ok {
			r.errorf(stmt, "Duplicate declaration of %q", stmt.Name)
			return
		}
		stmt.SymID = sym.ID

	case ast.FUNCTION:
		sym, ok := r.table.Declare(scope, stmt.Name, symtab.Function, stmt)
		if !ok {
			r.errorf(stmt, "Duplicate declaration of %q", stmt.Name)
			return
		}
		stmt.SymID = sym.ID
		r.resolveFunction(stmt, scope)

	case ast.BLOCK:
		inner := r.table.PushScope(symtab.BlockScope, scope)
		r.resolveBlockInto(stmt, inner)

	case ast.IF_STMT:
		r.resolveExpr(stmt.Condition, scope)
		r.resolveStmt(stmt.Then, scope)
		r.resolveStmt(stmt.Else, scope)

	case ast.WHILE:
		r.resolveExpr(stmt.Condition, scope)
		loop := r.table.PushScope(symtab.LoopScope, scope)
		r.resolveStmt(stmt.Body, loop)

	case ast.FOR:
		loop := r.table.PushScope(symtab.LoopScope, scope)
		if stmt.Init != nil {
			r.resolveStmt(stmt.Init, loop)
		}
		if stmt.Condition != nil {
			r.resolveExpr(stmt.Condition, loop)
		}
		if stmt.Update != nil {
			r.resolveStmt(stmt.Update, loop)
		}
		r.resolveStmt(stmt.Body, loop)

	case ast.FOR_IN:
		r.resolveExpr(stmt.Iterable, scope)
		loop := r.table.PushScope(symtab.LoopScope, scope)
		iter := &ast.Node{Kind: ast.VAR, Name: stmt.Iterator, Span: stmt.Span}
		if sym, ok := r.table.Declare(loop, stmt.Iterator, symtab.Variable, iter); ok {
			stmt.SymID = sym.ID
		}
		r.resolveStmt(stmt.Body, loop)

	case ast.FOR_IN_INDEXED:
		r.resolveExpr(stmt.Iterable, scope)
		loop := r.table.PushScope(symtab.LoopScope, scope)
		idx := &ast.Node{Kind: ast.VAR, Name: stmt.IndexVar, Span: stmt.Span}
		r.table.Declare(loop, stmt.IndexVar, symtab.Variable, idx)
		iter := &ast.Node{Kind: ast.VAR, Name: stmt.Iterator, Span: stmt.Span}
		if sym, ok := r.table.Declare(loop, stmt.Iterator, symtab.Variable, iter); ok {
			stmt.SymID = sym.ID
		}
		r.resolveStmt(stmt.Body, loop)

	case ast.MATCH:
		r.resolveExpr(stmt.Expression, scope)
		for _, c := range stmt.Cases {
			caseScope := r.table.PushScope(symtab.MatchCaseScope, scope)
			for _, pattern := range c.Patterns {
				r.resolvePattern(pattern, caseScope)
			}
			r.resolveStmt(c.Statement, caseScope)
		}
		for _, stmt := range stmt.ElseCase {
			elseScope := r.table.PushScope(symtab.MatchCaseScope, scope)
			r.resolveStmt(stmt, elseScope)
		}

	case ast.RETURN:
		if stmt.Value != nil {
			r.resolveExpr(stmt.Value, scope)
		}

	case ast.DEFER:
		r.resolveStmt(stmt.Statement, scope)

	case ast.DEL:
		r.resolveExpr(stmt.Operand, scope)

	case ast.EXPRESSION_STMT:
		r.resolveExpr(stmt.Expression, scope)

	case ast.ASSIGNMENT:
		r.resolveExpr(stmt.Target, scope)
		r.resolveExpr(stmt.Value, scope)

	case ast.BREAK, ast.CONTINUE, ast.FALL:
		// Context rules belong to the validator.
	}
}

func (r *Resolver) resolvePattern(pattern *ast.Node, scope int32) {
	switch pattern.Kind {
	case ast.PATTERN_ENUM:
		sym := r.table.Lookup(scope, pattern.EnumType)
		if sym == nil {
			r.errorf(pattern, "Undefined name %q", pattern.EnumType)
			return
		}
		pattern.SymID = sym.ID
	case ast.PATTERN_IDENTIFIER:
		sym := r.table.Lookup(scope, pattern.Name)
		if sym != nil {
			pattern.SymID = sym.ID
			return
		}
		// An unbound identifier pattern binds the scrutinee value.
		decl := &ast.Node{Kind: ast.VAR, Name: pattern.Name, Span: pattern.Span}
		if bound, ok := r.table.Declare(scope, pattern.Name, symtab.Variable, decl); ok {
			pattern.SymID = bound.ID
		}
	case ast.PATTERN_RANGE:
		r.resolveExpr(pattern.Start, scope)
		r.resolveExpr(pattern.End, scope)
	case ast.PATTERN_LITERAL:
		// Nothing to bind.
	default:
		r.resolveExpr(pattern, scope)
	}
}

func (r *Resolver) resolveExpr(expr *ast.Node, scope int32) {
	if expr == nil {
		return
	}

	switch expr.Kind {
	case ast.IDENTIFIER:
		r.resolveIdentifier(expr, scope)

	case ast.BINARY:
		r.resolveExpr(expr.Left, scope)
		r.resolveExpr(expr.Right, scope)

	case ast.UNARY:
		r.resolveExpr(expr.Operand, scope)

	case ast.CALL:
		r.resolveCallFunction(expr.Function, scope)
		for _, arg := range expr.Arguments {
			r.resolveExpr(arg, scope)
		}

	case ast.INDEX:
		r.resolveExpr(expr.Object, scope)
		r.resolveExpr(expr.Index, scope)

	case ast.SLICE:
		r.resolveExpr(expr.Object, scope)
		r.resolveExpr(expr.Start, scope)
		r.resolveExpr(expr.End, scope)

	case ast.FIELD_ACCESS:
		r.resolveExpr(expr.Object, scope)

	case ast.ADDRESS_OF:
		r.resolveExpr(expr.Operand, scope)

	case ast.DEREF:
		r.resolveExpr(expr.Pointer, scope)

	case ast.CAST:
		r.resolveType(expr.TargetType, scope)
		r.resolveExpr(expr.Expression, scope)

	case ast.NEW_EXPR:
		r.resolveType(expr.TargetType, scope)

	case ast.STRUCT_INIT:
		sym := r.table.LookupType(scope, expr.StructType)
		if sym == nil {
			r.errorf(expr, "Undefined type %q", expr.StructType)
		} else {
			expr.SymID = sym.ID
		}
		for _, init := range expr.FieldInits {
			r.resolveExpr(init.Value, scope)
		}

	case ast.ARRAY_INIT:
		for _, elem := range expr.Elements {
			r.resolveExpr(elem, scope)
		}

	case ast.IF_EXPR:
		r.resolveExpr(expr.Condition, scope)
		r.resolveExpr(expr.ThenExpr, scope)
		r.resolveExpr(expr.ElseExpr, scope)

	case ast.LITERAL:
		// Nothing to resolve.
	}
}

// resolveCallFunction binds the callee. `module.method` stdlib calls and
// bare builtin names resolve implicitly through the registry.
func (r *Resolver) resolveCallFunction(fn *ast.Node, scope int32) {
	if fn == nil {
		return
	}
	if fn.Kind == ast.FIELD_ACCESS && fn.Object != nil && fn.Object.Kind == ast.IDENTIFIER {
		base := fn.Object
		if sym := r.table.Lookup(scope, base.Name); sym != nil {
			base.SymID = sym.ID
			return
		}
		if r.stdlib != nil && r.stdlib.IsModule(base.Name) {
			return
		}
		r.errorf(base, "Undefined name %q", base.Name)
		return
	}
	if fn.Kind == ast.IDENTIFIER {
		r.resolveIdentifier(fn, scope)
		return
	}
	r.resolveExpr(fn, scope)
}

func (r *Resolver) resolveIdentifier(id *ast.Node, scope int32) {
	if id.Name != "" && id.Name[0] == '@' {
		// Builtin identifiers bypass scope lookup.
		return
	}
	sym := r.table.Lookup(scope, id.Name)
	if sym == nil {
		if r.stdlib != nil && (r.stdlib.IsBuiltinName(id.Name) || r.stdlib.IsModule(id.Name)) {
			return
		}
		r.errorf(id, "Undefined name %q", id.Name)
		return
	}
	id.SymID = sym.ID
}

// resolveType binds TYPE_IDENTIFIER and TYPE_GENERIC nodes against
// nominal-type and generic-parameter symbols only.
func (r *Resolver) resolveType(typeNode *ast.Node, scope int32) {
	if typeNode == nil {
		return
	}
	switch typeNode.Kind {
	case ast.TYPE_IDENTIFIER:
		sym := r.table.LookupType(scope, typeNode.Name)
		if sym == nil {
			r.errorf(typeNode, "Undefined type %q", typeNode.Name)
			return
		}
		typeNode.SymID = sym.ID
	case ast.TYPE_GENERIC:
		if sym := r.table.LookupType(scope, typeNode.Name); sym != nil {
			typeNode.SymID = sym.ID
		}
	case ast.TYPE_ARRAY:
		if typeNode.Size != nil {
			r.resolveExpr(typeNode.Size, scope)
		}
		r.resolveType(typeNode.ElementType, scope)
	case ast.TYPE_SLICE:
		r.resolveType(typeNode.ElementType, scope)
	case ast.TYPE_POINTER:
		r.resolveType(typeNode.TargetType, scope)
	case ast.TYPE_FUNCTION:
		for _, pt := range typeNode.Parameters {
			r.resolveType(pt, scope)
		}
		r.resolveType(typeNode.ReturnType, scope)
	case ast.TYPE_STRUCT:
		r.resolveFields(typeNode, scope)
	}
}

func (r *Resolver) resolveFields(decl *ast.Node, scope int32) {
	seen := make(map[string]bool)
	for _, field := range decl.Fields {
		if seen[field.Name] {
			r.errorf(field, "Duplicate field %q in %q", field.Name, decl.Name)
			continue
		}
		seen[field.Name] = true
		r.resolveType(field.FieldType, scope)
	}
}
