package semantic

import (
	"fmt"

	"github.com/oxhq/a7c/internal/ast"
	"github.com/oxhq/a7c/internal/diag"
	"github.com/oxhq/a7c/internal/symtab"
	"github.com/oxhq/a7c/internal/types"
)

// Validator enforces the context rules not covered by typing:
// break/continue/fall/defer/ret placement, del operands, return-path
// coverage, and the enum exhaustiveness hint.
type Validator struct {
	Errors []*diag.Error

	table    *symtab.Table
	typeMap  TypeMap
	filename string
	lines    []string
}

// NewValidator prepares a validator over the resolved table and type map.
func NewValidator(table *symtab.Table, typeMap TypeMap, filename string, lines []string) *Validator {
	return &Validator{
		table:    table,
		typeMap:  typeMap,
		filename: filename,
		lines:    lines,
	}
}

// validatorCtx carries the statement context down the walk.
type validatorCtx struct {
	fn          *ast.Node // enclosing function, nil at module level
	inLoop      bool
	inMatchCase bool
}

// Validate walks the program and accumulates context-rule violations.
func (v *Validator) Validate(program *ast.Node) []*diag.Error {
	if program == nil || program.Kind != ast.PROGRAM {
		return v.Errors
	}
	for _, decl := range program.Declarations {
		if decl.Kind == ast.FUNCTION {
			v.validateFunction(decl)
		}
	}
	return v.Errors
}

func (v *Validator) errorf(n *ast.Node, format string, args ...any) {
	v.Errors = append(v.Errors,
		diag.NewSemanticError(fmt.Sprintf(format, args...), n.Span, v.filename, v.lines))
}

func (v *Validator) warnf(n *ast.Node, format string, args ...any) {
	warn := diag.NewSemanticError(fmt.Sprintf(format, args...), n.Span, v.filename, v.lines)
	warn.Severity = diag.SeverityWarning
	v.Errors = append(v.Errors, warn)
}

func (v *Validator) validateFunction(fn *ast.Node) {
	if fn.Body == nil {
		return
	}
	ctx := validatorCtx{fn: fn}
	v.validateStmt(fn.Body, ctx)

	// Non-void functions must return on every terminating path.
	if ft := fn.ResolvedType; ft != nil && ft.Kind == types.Function &&
		ft.Return != nil && ft.Return.Kind != types.Void {
		if !terminates(fn.Body) {
			v.errorf(fn, "Function %q must return a value on all paths", fn.Name)
		}
	}
}

func (v *Validator) validateStmt(stmt *ast.Node, ctx validatorCtx) {
	if stmt == nil {
		return
	}

	switch stmt.Kind {
	case ast.BLOCK:
		for _, s := range stmt.Statements {
			v.validateStmt(s, ctx)
		}

	case ast.BREAK:
		if !ctx.inLoop {
			v.errorf(stmt, "'break' outside of a loop")
		}

	case ast.CONTINUE:
		if !ctx.inLoop {
			v.errorf(stmt, "'continue' outside of a loop")
		}

	case ast.FALL:
		if !ctx.inMatchCase {
			v.errorf(stmt, "'fall' outside of a match case")
		}

	case ast.DEFER:
		if ctx.fn == nil {
			v.errorf(stmt, "'defer' outside of a function body")
		}
		v.validateStmt(stmt.Statement, ctx)

	case ast.RETURN:
		if ctx.fn == nil {
			v.errorf(stmt, "'ret' outside of a function body")
		}

	case ast.DEL:
		v.validateDel(stmt)

	case ast.IF_STMT:
		v.validateStmt(stmt.Then, ctx)
		v.validateStmt(stmt.Else, ctx)

	case ast.WHILE:
		loopCtx := ctx
		loopCtx.inLoop = true
		v.validateStmt(stmt.Body, loopCtx)

	case ast.FOR, ast.FOR_IN, ast.FOR_IN_INDEXED:
		loopCtx := ctx
		loopCtx.inLoop = true
		v.validateStmt(stmt.Body, loopCtx)

	case ast.MATCH:
		v.validateMatch(stmt, ctx)

	case ast.FUNCTION:
		v.validateFunction(stmt)
	}
}

func (v *Validator) validateDel(stmt *ast.Node) {
	operand := stmt.Operand
	if operand == nil {
		return
	}
	if !isLValueShape(operand) {
		v.errorf(stmt, "'del' requires an addressable operand")
		return
	}
	if t := v.typeMap[operand]; t != nil && t.Kind != types.Pointer && t.Kind != types.Unknown {
		v.errorf(stmt, "'del' requires a pointer, got %s", t)
	}
}

func (v *Validator) validateMatch(stmt *ast.Node, ctx validatorCtx) {
	caseCtx := ctx
	caseCtx.inMatchCase = true
	for _, c := range stmt.Cases {
		v.validateStmt(c.Statement, caseCtx)
	}
	for _, es := range stmt.ElseCase {
		v.validateStmt(es, ctx)
	}

	// Exhaustiveness hint for enum scrutinees without an else branch.
	if len(stmt.ElseCase) > 0 {
		return
	}
	scrutinee := v.typeMap[stmt.Expression]
	if scrutinee == nil || scrutinee.Kind != types.Enum {
		return
	}
	sym := v.table.Symbol(scrutinee.SymID)
	if sym == nil || sym.Decl == nil {
		return
	}

	covered := make(map[string]bool)
	for _, c := range stmt.Cases {
		for _, pattern := range c.Patterns {
			if pattern.Kind == ast.PATTERN_ENUM {
				covered[pattern.Variant] = true
			}
		}
	}
	var missing []string
	for _, variant := range sym.Decl.Variants {
		if !covered[variant.Name] {
			missing = append(missing, variant.Name)
		}
	}
	if len(missing) > 0 {
		v.warnf(stmt, "Match on enum %q is not exhaustive: missing %d variant(s)",
			sym.Name, len(missing))
	}
}

func isLValueShape(expr *ast.Node) bool {
	switch expr.Kind {
	case ast.IDENTIFIER, ast.DEREF:
		return true
	case ast.INDEX, ast.FIELD_ACCESS:
		return isLValueShape(expr.Object)
	}
	return false
}

// terminates reports whether every path through a statement ends in ret,
// break, continue, or an infinite loop. This is the best-effort CFG the
// return-path check relies on.
func terminates(stmt *ast.Node) bool {
	if stmt == nil {
		return false
	}
	switch stmt.Kind {
	case ast.RETURN, ast.BREAK, ast.CONTINUE:
		return true
	case ast.BLOCK:
		if len(stmt.Statements) == 0 {
			return false
		}
		return terminates(stmt.Statements[len(stmt.Statements)-1])
	case ast.IF_STMT:
		return stmt.Else != nil && terminates(stmt.Then) && terminates(stmt.Else)
	case ast.MATCH:
		if len(stmt.ElseCase) == 0 {
			return false
		}
		for _, c := range stmt.Cases {
			if !terminates(c.Statement) {
				return false
			}
		}
		for _, es := range stmt.ElseCase {
			if !terminates(es) {
				return false
			}
		}
		return true
	case ast.FOR:
		// `for { … }` with no condition never falls through.
		return stmt.Condition == nil && stmt.Init == nil && stmt.Update == nil
	case ast.WHILE:
		cond := stmt.Condition
		return cond != nil && cond.Kind == ast.LITERAL &&
			cond.LiteralKind == ast.LitBoolean && cond.BoolVal
	}
	return false
}
