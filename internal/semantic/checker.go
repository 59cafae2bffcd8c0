package semantic

import (
	"fmt"

	"github.com/oxhq/a7c/internal/ast"
	"github.com/oxhq/a7c/internal/diag"
	"github.com/oxhq/a7c/internal/symtab"
	"github.com/oxhq/a7c/internal/types"
)

// TypeMap records the resolved type of every expression node. The same
// types are also written into each node's ResolvedType field.
type TypeMap map[*ast.Node]*types.Type

// Checker infers and checks the type of every expression, parameter,
// return type, and declared variable.
type Checker struct {
	Errors []*diag.Error
	Types  TypeMap

	table    *symtab.Table
	filename string
	lines    []string

	// fn is the function currently being checked.
	fn *ast.Node
}

// NewChecker prepares a type checker over a resolved symbol table.
func NewChecker(table *symtab.Table, filename string, lines []string) *Checker {
	return &Checker{
		Types:    make(TypeMap),
		table:    table,
		filename: filename,
		lines:    lines,
	}
}

// Check walks the program. Errors accumulate; every expression receives
// a type (UNKNOWN after an error) so later passes never see nils.
func (c *Checker) Check(program *ast.Node) TypeMap {
	if program == nil || program.Kind != ast.PROGRAM {
		return c.Types
	}

	// Give every top-level symbol a type before checking bodies, so
	// forward references between functions work.
	for _, decl := range program.Declarations {
		c.declType(decl)
	}

	for _, decl := range program.Declarations {
		switch decl.Kind {
		case ast.FUNCTION:
			c.checkFunction(decl)
		case ast.CONST, ast.VAR:
			if decl.Value != nil {
				t := c.inferExpr(decl.Value, nil)
				c.setType(decl, t)
				c.symbolType(decl.SymID, t)
			}
		}
	}

	return c.Types
}

func (c *Checker) errorf(n *ast.Node, format string, args ...any) {
	c.Errors = append(c.Errors,
		diag.NewSemanticError(fmt.Sprintf(format, args...), n.Span, c.filename, c.lines))
}

func (c *Checker) setType(n *ast.Node, t *types.Type) *types.Type {
	if t == nil {
		t = types.UnknownType
	}
	c.Types[n] = t
	n.ResolvedType = t
	return t
}

func (c *Checker) symbolType(symID int32, t *types.Type) {
	if sym := c.table.Symbol(symID); sym != nil {
		sym.Type = t
	}
}

// declType assigns types to top-level declarations ahead of body
// checking.
func (c *Checker) declType(decl *ast.Node) {
	switch decl.Kind {
	case ast.STRUCT:
		t := types.NewStruct(decl.Name, decl.SymID)
		c.setType(decl, t)
		c.symbolType(decl.SymID, t)
	case ast.ENUM:
		t := types.NewEnum(decl.Name, decl.SymID)
		c.setType(decl, t)
		c.symbolType(decl.SymID, t)
	case ast.UNION:
		t := types.NewUnion(decl.Name, decl.SymID, decl.IsTagged)
		c.setType(decl, t)
		c.symbolType(decl.SymID, t)
	case ast.FUNCTION:
		t := c.functionType(decl)
		c.setType(decl, t)
		c.symbolType(decl.SymID, t)
	}
}

func (c *Checker) functionType(fn *ast.Node) *types.Type {
	params := make([]*types.Type, len(fn.Parameters))
	for i, p := range fn.Parameters {
		params[i] = c.resolveTypeNode(p.ParamType)
		c.setType(p, params[i])
		c.symbolType(p.SymID, params[i])
	}
	var ret *types.Type
	if fn.ReturnType != nil {
		ret = c.resolveTypeNode(fn.ReturnType)
	}
	return types.NewFunction(params, ret)
}

// resolveTypeNode converts a TYPE_* AST node into a type value.
func (c *Checker) resolveTypeNode(node *ast.Node) *types.Type {
	if node == nil {
		return types.UnknownType
	}

	var t *types.Type
	switch node.Kind {
	case ast.TYPE_PRIMITIVE:
		t = types.Prim(node.Name)
		if t == nil {
			c.errorf(node, "Unknown primitive type %q", node.Name)
			t = types.UnknownType
		}

	case ast.TYPE_IDENTIFIER:
		sym := c.table.Symbol(node.SymID)
		if sym == nil {
			t = types.UnknownType
			break
		}
		switch sym.Kind {
		case symtab.Struct:
			t = types.NewStruct(sym.Name, sym.ID)
		case symtab.Enum:
			t = types.NewEnum(sym.Name, sym.ID)
		case symtab.Union:
			tagged := sym.Decl != nil && sym.Decl.IsTagged
			t = types.NewUnion(sym.Name, sym.ID, tagged)
		case symtab.GenericParam:
			t = types.NewGenericParam(sym.Name)
		default:
			c.errorf(node, "%q is not a type", node.Name)
			t = types.UnknownType
		}

	case ast.TYPE_GENERIC:
		t = types.NewGenericParam(node.Name)

	case ast.TYPE_ARRAY:
		elem := c.resolveTypeNode(node.ElementType)
		size := int64(-1)
		if node.Size != nil && node.Size.Kind == ast.LITERAL && node.Size.LiteralKind == ast.LitInteger {
			size = node.Size.IntVal
		}
		t = types.NewArray(elem, size)

	case ast.TYPE_SLICE:
		t = types.NewSlice(c.resolveTypeNode(node.ElementType))

	case ast.TYPE_POINTER:
		t = types.NewPointer(c.resolveTypeNode(node.TargetType))

	case ast.TYPE_FUNCTION:
		params := make([]*types.Type, len(node.Parameters))
		for i, p := range node.Parameters {
			params[i] = c.resolveTypeNode(p)
		}
		var ret *types.Type
		if node.ReturnType != nil {
			ret = c.resolveTypeNode(node.ReturnType)
		}
		t = types.NewFunction(params, ret)

	case ast.TYPE_STRUCT:
		// Inline struct types are anonymous; identity is the node itself.
		t = types.NewStruct("struct", node.SymID)

	default:
		t = types.UnknownType
	}

	return c.setType(node, t)
}

func (c *Checker) checkFunction(fn *ast.Node) {
	prev := c.fn
	c.fn = fn
	defer func() { c.fn = prev }()

	if fn.ResolvedType == nil || fn.ResolvedType.Kind != types.Function {
		c.setType(fn, c.functionType(fn))
	}
	if fn.Body != nil {
		c.checkBlock(fn.Body)
	}
}

func (c *Checker) checkBlock(block *ast.Node) {
	for _, stmt := range block.Statements {
		c.checkStmt(stmt)
	}
}

func (c *Checker) checkStmt(stmt *ast.Node) {
	if stmt == nil {
		return
	}

	switch stmt.Kind {
	case ast.VAR:
		c.checkVarDecl(stmt)

	case ast.CONST:
		if stmt.Value != nil {
			t := c.inferExpr(stmt.Value, nil)
			c.setType(stmt, t)
			c.symbolType(stmt.SymID, t)
		}

	case ast.FUNCTION:
		c.declType(stmt)
		c.checkFunction(stmt)

	case ast.STRUCT, ast.ENUM, ast.UNION:
		c.declType(stmt)

	case ast.BLOCK:
		c.checkBlock(stmt)

	case ast.IF_STMT:
		cond := c.inferExpr(stmt.Condition, nil)
		if !cond.IsBool() && cond.Kind != types.Unknown {
			c.errorf(stmt.Condition, "If condition must be bool, got %s", cond)
		}
		c.checkStmt(stmt.Then)
		c.checkStmt(stmt.Else)

	case ast.WHILE:
		cond := c.inferExpr(stmt.Condition, nil)
		if !cond.IsBool() && cond.Kind != types.Unknown {
			c.errorf(stmt.Condition, "While condition must be bool, got %s", cond)
		}
		c.checkStmt(stmt.Body)

	case ast.FOR:
		if stmt.Init != nil {
			c.checkStmt(stmt.Init)
		}
		if stmt.Condition != nil {
			cond := c.inferExpr(stmt.Condition, nil)
			if !cond.IsBool() && cond.Kind != types.Unknown {
				c.errorf(stmt.Condition, "For condition must be bool, got %s", cond)
			}
		}
		if stmt.Update != nil {
			c.checkStmt(stmt.Update)
		}
		c.checkStmt(stmt.Body)

	case ast.FOR_IN, ast.FOR_IN_INDEXED:
		iterable := c.inferExpr(stmt.Iterable, nil)
		var elem *types.Type
		switch iterable.Kind {
		case types.Array, types.Slice:
			elem = iterable.Elem
		case types.Unknown:
			elem = types.UnknownType
		default:
			c.errorf(stmt.Iterable, "Cannot iterate over %s", iterable)
			elem = types.UnknownType
		}
		c.symbolType(stmt.SymID, elem)
		c.setType(stmt, elem)
		c.checkStmt(stmt.Body)

	case ast.MATCH:
		c.checkMatch(stmt)

	case ast.RETURN:
		c.checkReturn(stmt)

	case ast.DEFER:
		c.checkStmt(stmt.Statement)

	case ast.DEL:
		t := c.inferExpr(stmt.Operand, nil)
		if t.Kind != types.Pointer && t.Kind != types.Unknown {
			c.errorf(stmt.Operand, "del requires a pointer, got %s", t)
		}

	case ast.EXPRESSION_STMT:
		c.inferExpr(stmt.Expression, nil)

	case ast.ASSIGNMENT:
		c.checkAssignment(stmt)
	}
}

func (c *Checker) checkVarDecl(stmt *ast.Node) {
	var declared *types.Type
	if stmt.ExplicitType != nil {
		declared = c.resolveTypeNode(stmt.ExplicitType)
	}

	var valueType *types.Type
	if stmt.Value != nil {
		valueType = c.inferExpr(stmt.Value, declared)
	}

	t := declared
	if t == nil {
		t = valueType
	} else if valueType != nil && !valueType.AssignableTo(declared) &&
		valueType.Kind != types.Unknown && declared.Kind != types.Unknown &&
		declared.Kind != types.GenericParam {
		c.errorf(stmt, "Cannot assign %s to variable of type %s", valueType, declared)
	}

	c.setType(stmt, t)
	c.symbolType(stmt.SymID, t)
}

func (c *Checker) checkAssignment(stmt *ast.Node) {
	targetType := c.inferExpr(stmt.Target, nil)
	valueType := c.inferExpr(stmt.Value, targetType)

	if !c.isLValue(stmt.Target) {
		c.errorf(stmt.Target, "Invalid assignment target")
	}

	if targetType.Kind == types.Unknown || valueType.Kind == types.Unknown {
		return
	}

	if stmt.AsgOp != ast.AsgAssign {
		// Compound assignment requires the underlying binary operator to
		// be defined on the operand types.
		bin := stmt.AsgOp.Binary()
		if result := c.binaryResult(bin, targetType, valueType); result == nil {
			c.errorf(stmt, "Operator %q not defined for %s and %s",
				stmt.AsgOp.String(), targetType, valueType)
		}
		return
	}

	if !valueType.AssignableTo(targetType) && targetType.Kind != types.GenericParam {
		c.errorf(stmt, "Cannot assign %s to %s", valueType, targetType)
	}
}

func (c *Checker) checkReturn(stmt *ast.Node) {
	if c.fn == nil {
		return
	}
	var want *types.Type = types.VoidType
	if ft := c.fn.ResolvedType; ft != nil && ft.Kind == types.Function {
		want = ft.Return
	}

	if stmt.Value == nil {
		if want.Kind != types.Void {
			c.errorf(stmt, "Function %q must return %s", c.fn.Name, want)
		}
		return
	}

	got := c.inferExpr(stmt.Value, want)
	if want.Kind == types.Void {
		c.errorf(stmt, "Void function %q cannot return a value", c.fn.Name)
		return
	}
	if got.Kind == types.Unknown || want.Kind == types.GenericParam {
		return
	}
	if !got.AssignableTo(want) {
		c.errorf(stmt, "Cannot return %s from function returning %s", got, want)
	}
}

func (c *Checker) checkMatch(stmt *ast.Node) {
	scrutinee := c.inferExpr(stmt.Expression, nil)

	for _, cs := range stmt.Cases {
		for _, pattern := range cs.Patterns {
			c.checkPattern(pattern, scrutinee)
		}
		c.checkStmt(cs.Statement)
	}
	for _, es := range stmt.ElseCase {
		c.checkStmt(es)
	}
}

func (c *Checker) checkPattern(pattern *ast.Node, scrutinee *types.Type) {
	switch pattern.Kind {
	case ast.PATTERN_LITERAL:
		if pattern.Literal != nil {
			t := c.inferExpr(pattern.Literal, scrutinee)
			c.setType(pattern, t)
		}
	case ast.PATTERN_ENUM:
		sym := c.table.Symbol(pattern.SymID)
		if sym == nil {
			return
		}
		if sym.Kind != symtab.Enum {
			c.errorf(pattern, "%q is not an enum", pattern.EnumType)
			return
		}
		if sym.Decl != nil && !enumHasVariant(sym.Decl, pattern.Variant) {
			c.errorf(pattern, "Enum %q has no variant %q", pattern.EnumType, pattern.Variant)
			return
		}
		c.setType(pattern, types.NewEnum(sym.Name, sym.ID))
	case ast.PATTERN_RANGE:
		start := c.inferExpr(pattern.Start, scrutinee)
		end := c.inferExpr(pattern.End, scrutinee)
		if !start.Equal(end) && start.Kind != types.Unknown && end.Kind != types.Unknown {
			c.errorf(pattern, "Range pattern bounds must have the same type")
		}
		c.setType(pattern, start)
	case ast.PATTERN_IDENTIFIER:
		c.setType(pattern, scrutinee)
		c.symbolType(pattern.SymID, scrutinee)
	default:
		c.inferExpr(pattern, scrutinee)
	}
}

func enumHasVariant(enumDecl *ast.Node, name string) bool {
	for _, v := range enumDecl.Variants {
		if v.Name == name {
			return true
		}
	}
	return false
}

// isLValue reports whether an expression can appear on the left of an
// assignment or under .adr.
func (c *Checker) isLValue(expr *ast.Node) bool {
	switch expr.Kind {
	case ast.IDENTIFIER:
		return true
	case ast.INDEX, ast.SLICE:
		return c.isLValue(expr.Object)
	case ast.FIELD_ACCESS:
		return c.isLValue(expr.Object)
	case ast.DEREF:
		return true
	}
	return false
}

// inferExpr assigns and returns the type of an expression. expected
// carries the contextual type used to shape untyped literals: an integer
// literal is i32 unless the context demands another integer type, a
// float literal f64 unless the context demands f32.
func (c *Checker) inferExpr(expr *ast.Node, expected *types.Type) *types.Type {
	if expr == nil {
		return types.UnknownType
	}

	switch expr.Kind {
	case ast.LITERAL:
		return c.setType(expr, literalType(expr, expected))

	case ast.IDENTIFIER:
		return c.setType(expr, c.identifierType(expr))

	case ast.BINARY:
		return c.setType(expr, c.inferBinary(expr))

	case ast.UNARY:
		return c.setType(expr, c.inferUnary(expr))

	case ast.CALL:
		return c.setType(expr, c.inferCall(expr))

	case ast.INDEX:
		return c.setType(expr, c.inferIndex(expr))

	case ast.SLICE:
		return c.setType(expr, c.inferSlice(expr))

	case ast.FIELD_ACCESS:
		return c.setType(expr, c.inferFieldAccess(expr))

	case ast.ADDRESS_OF:
		operand := c.inferExpr(expr.Operand, nil)
		return c.setType(expr, types.NewPointer(operand))

	case ast.DEREF:
		ptr := c.inferExpr(expr.Pointer, nil)
		if ptr.Kind == types.Pointer {
			return c.setType(expr, ptr.Elem)
		}
		if ptr.Kind != types.Unknown {
			c.errorf(expr, "Cannot dereference non-pointer type %s", ptr)
		}
		return c.setType(expr, types.UnknownType)

	case ast.CAST:
		target := c.resolveTypeNode(expr.TargetType)
		source := c.inferExpr(expr.Expression, nil)
		if source.Kind != types.Unknown && target.Kind != types.Unknown &&
			target.Kind != types.GenericParam && source.Kind != types.GenericParam {
			if !source.Castable(target) {
				c.errorf(expr, "Cannot cast %s to %s", source, target)
			}
		}
		return c.setType(expr, target)

	case ast.NEW_EXPR:
		target := c.resolveTypeNode(expr.TargetType)
		return c.setType(expr, types.NewPointer(target))

	case ast.STRUCT_INIT:
		return c.setType(expr, c.inferStructInit(expr))

	case ast.ARRAY_INIT:
		return c.setType(expr, c.inferArrayInit(expr, expected))

	case ast.IF_EXPR:
		cond := c.inferExpr(expr.Condition, nil)
		if !cond.IsBool() && cond.Kind != types.Unknown {
			c.errorf(expr.Condition, "If condition must be bool, got %s", cond)
		}
		thenType := c.inferExpr(expr.ThenExpr, expected)
		if expr.ElseExpr != nil {
			elseType := c.inferExpr(expr.ElseExpr, thenType)
			if !thenType.Equal(elseType) &&
				thenType.Kind != types.Unknown && elseType.Kind != types.Unknown {
				c.errorf(expr, "If expression branches have different types: %s and %s",
					thenType, elseType)
			}
		}
		return c.setType(expr, thenType)
	}

	return c.setType(expr, types.UnknownType)
}

func literalType(lit *ast.Node, expected *types.Type) *types.Type {
	switch lit.LiteralKind {
	case ast.LitInteger:
		if expected != nil && expected.IsInteger() {
			return expected
		}
		return types.Prim("i32")
	case ast.LitFloat:
		if expected != nil && expected.IsFloat() {
			return expected
		}
		return types.Prim("f64")
	case ast.LitBoolean:
		return types.Prim("bool")
	case ast.LitChar:
		return types.Prim("char")
	case ast.LitString:
		return types.Prim("string")
	case ast.LitNil:
		return types.NilType
	}
	return types.UnknownType
}

func (c *Checker) identifierType(id *ast.Node) *types.Type {
	sym := c.table.Symbol(id.SymID)
	if sym == nil {
		// Stdlib names and builtins are typed by the preprocessor and
		// emitter; unresolved ones are already reported.
		return types.UnknownType
	}
	if sym.Type != nil {
		return sym.Type
	}
	// Lazily type constants and variables declared later in the file.
	if sym.Decl != nil && sym.Decl.Value != nil &&
		(sym.Kind == symtab.Constant || sym.Kind == symtab.Variable) {
		t := c.inferExpr(sym.Decl.Value, nil)
		sym.Type = t
		return t
	}
	if sym.Kind.IsNominalType() {
		switch sym.Kind {
		case symtab.Struct:
			return types.NewStruct(sym.Name, sym.ID)
		case symtab.Enum:
			return types.NewEnum(sym.Name, sym.ID)
		case symtab.Union:
			return types.NewUnion(sym.Name, sym.ID, sym.Decl != nil && sym.Decl.IsTagged)
		}
	}
	return types.UnknownType
}

// binaryResult computes the result type of a binary operation, or nil
// when the combination is invalid.
func (c *Checker) binaryResult(op ast.BinaryOp, left, right *types.Type) *types.Type {
	switch op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		if left.IsNumeric() && left.Equal(right) {
			return left
		}
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		if left.Equal(right) {
			return types.Prim("bool")
		}
		if left.Kind == types.Nil && right.Kind == types.Pointer ||
			left.Kind == types.Pointer && right.Kind == types.Nil {
			return types.Prim("bool")
		}
	case ast.OpAnd, ast.OpOr:
		if left.IsBool() && right.IsBool() {
			return types.Prim("bool")
		}
	case ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor, ast.OpShl, ast.OpShr:
		if left.IsInteger() && right.IsInteger() && left.Equal(right) {
			return left
		}
	}
	return nil
}

func (c *Checker) inferBinary(expr *ast.Node) *types.Type {
	left := c.inferExpr(expr.Left, nil)
	// Let the left operand shape untyped literals on the right.
	right := c.inferExpr(expr.Right, left)

	if left.Kind == types.Unknown || right.Kind == types.Unknown ||
		left.Kind == types.GenericParam || right.Kind == types.GenericParam {
		if expr.BinOp >= ast.OpEq && expr.BinOp <= ast.OpOr {
			return types.Prim("bool")
		}
		return left
	}

	if result := c.binaryResult(expr.BinOp, left, right); result != nil {
		return result
	}

	c.errorf(expr, "Operator %q not defined for %s and %s", expr.BinOp.String(), left, right)
	return types.UnknownType
}

func (c *Checker) inferUnary(expr *ast.Node) *types.Type {
	operand := c.inferExpr(expr.Operand, nil)
	if operand.Kind == types.Unknown || operand.Kind == types.GenericParam {
		return operand
	}

	switch expr.UnOp {
	case ast.OpNeg:
		if operand.IsNumeric() {
			return operand
		}
		c.errorf(expr, "Unary '-' requires a numeric operand, got %s", operand)
	case ast.OpNot:
		if operand.IsBool() {
			return operand
		}
		c.errorf(expr, "'not' requires a bool operand, got %s", operand)
	case ast.OpBitNot:
		if operand.IsInteger() {
			return operand
		}
		c.errorf(expr, "'~' requires an integer operand, got %s", operand)
	}
	return types.UnknownType
}

func (c *Checker) inferCall(expr *ast.Node) *types.Type {
	// Stdlib module calls (io.println) and builtins are outside the
	// user type system; arguments are still checked for well-formedness.
	if fn := expr.Function; fn != nil {
		if fn.Kind == ast.FIELD_ACCESS && fn.Object != nil &&
			fn.Object.Kind == ast.IDENTIFIER && fn.Object.SymID == 0 {
			for _, arg := range expr.Arguments {
				c.inferExpr(arg, nil)
			}
			return types.VoidType
		}
		if fn.Kind == ast.IDENTIFIER && (fn.SymID == 0 || (fn.Name != "" && fn.Name[0] == '@')) {
			for _, arg := range expr.Arguments {
				c.inferExpr(arg, nil)
			}
			return types.UnknownType
		}
	}

	fnType := c.inferExpr(expr.Function, nil)
	if fnType.Kind == types.Unknown {
		for _, arg := range expr.Arguments {
			c.inferExpr(arg, nil)
		}
		return types.UnknownType
	}
	if fnType.Kind != types.Function {
		c.errorf(expr, "Cannot call non-function type %s", fnType)
		for _, arg := range expr.Arguments {
			c.inferExpr(arg, nil)
		}
		return types.UnknownType
	}

	if len(expr.Arguments) != len(fnType.Params) {
		c.errorf(expr, "Expected %d argument(s), got %d", len(fnType.Params), len(expr.Arguments))
	}

	// Generic parameters unify structurally by name within one call.
	bindings := make(map[string]*types.Type)
	for i, arg := range expr.Arguments {
		if i >= len(fnType.Params) {
			c.inferExpr(arg, nil)
			continue
		}
		param := fnType.Params[i]
		argType := c.inferExpr(arg, param)
		if argType.Kind == types.Unknown {
			continue
		}
		if param.Kind == types.GenericParam {
			if bound, ok := bindings[param.Name]; ok {
				if !argType.Equal(bound) {
					c.errorf(arg, "Generic parameter %s bound to %s, got %s",
						param.Name, bound, argType)
				}
			} else {
				bindings[param.Name] = argType
			}
			continue
		}
		if !argType.AssignableTo(param) {
			c.errorf(arg, "Cannot pass %s as %s", argType, param)
		}
	}

	ret := fnType.Return
	if ret != nil && ret.Kind == types.GenericParam {
		if bound, ok := bindings[ret.Name]; ok {
			return bound
		}
	}
	return ret
}

func (c *Checker) inferIndex(expr *ast.Node) *types.Type {
	object := c.inferExpr(expr.Object, nil)
	index := c.inferExpr(expr.Index, types.Prim("i32"))

	if !index.IsInteger() && index.Kind != types.Unknown {
		c.errorf(expr.Index, "Index must be an integer, got %s", index)
	}

	switch object.Kind {
	case types.Array, types.Slice:
		return object.Elem
	case types.Unknown, types.GenericParam:
		return types.UnknownType
	}
	if object.Kind == types.Primitive && object.Name == "string" {
		return types.Prim("char")
	}
	c.errorf(expr, "Cannot index type %s", object)
	return types.UnknownType
}

func (c *Checker) inferSlice(expr *ast.Node) *types.Type {
	object := c.inferExpr(expr.Object, nil)
	if expr.Start != nil {
		if t := c.inferExpr(expr.Start, types.Prim("i32")); !t.IsInteger() && t.Kind != types.Unknown {
			c.errorf(expr.Start, "Slice bound must be an integer, got %s", t)
		}
	}
	if expr.End != nil {
		if t := c.inferExpr(expr.End, types.Prim("i32")); !t.IsInteger() && t.Kind != types.Unknown {
			c.errorf(expr.End, "Slice bound must be an integer, got %s", t)
		}
	}

	switch object.Kind {
	case types.Array, types.Slice:
		return types.NewSlice(object.Elem)
	case types.Unknown, types.GenericParam:
		return types.UnknownType
	}
	if object.Kind == types.Primitive && object.Name == "string" {
		return object
	}
	c.errorf(expr, "Cannot slice type %s", object)
	return types.UnknownType
}

func (c *Checker) inferFieldAccess(expr *ast.Node) *types.Type {
	// Enum variant access: Color.Red.
	if expr.Object != nil && expr.Object.Kind == ast.IDENTIFIER {
		if sym := c.table.Symbol(expr.Object.SymID); sym != nil && sym.Kind == symtab.Enum {
			c.setType(expr.Object, types.NewEnum(sym.Name, sym.ID))
			if sym.Decl != nil && !enumHasVariant(sym.Decl, expr.Field) {
				c.errorf(expr, "Enum %q has no variant %q", sym.Name, expr.Field)
				return types.UnknownType
			}
			return types.NewEnum(sym.Name, sym.ID)
		}
	}

	object := c.inferExpr(expr.Object, nil)

	// Pointer sugar keeps its FIELD_ACCESS shape until preprocessing.
	switch expr.Field {
	case "adr":
		if !c.isLValue(expr.Object) {
			c.errorf(expr, ".adr requires an addressable operand")
			return types.UnknownType
		}
		return types.NewPointer(object)
	case "val":
		if object.Kind == types.Pointer {
			return object.Elem
		}
		if object.Kind != types.Unknown && object.Kind != types.GenericParam {
			c.errorf(expr, ".val requires a pointer, got %s", object)
		}
		return types.UnknownType
	}

	// Auto-deref one pointer level for field access.
	base := object
	if base.Kind == types.Pointer {
		base = base.Elem
	}

	switch base.Kind {
	case types.Struct, types.Union:
		sym := c.table.Symbol(base.SymID)
		if sym == nil || sym.Decl == nil {
			return types.UnknownType
		}
		for _, field := range sym.Decl.Fields {
			if field.Name == expr.Field {
				return c.resolveTypeNode(field.FieldType)
			}
		}
		c.errorf(expr, "Type %q has no field %q", base.Name, expr.Field)
		return types.UnknownType
	case types.Slice, types.Array:
		if expr.Field == "len" {
			return types.Prim("usize")
		}
	case types.Unknown, types.GenericParam:
		return types.UnknownType
	}

	c.errorf(expr, "Type %s has no field %q", object, expr.Field)
	return types.UnknownType
}

func (c *Checker) inferStructInit(expr *ast.Node) *types.Type {
	sym := c.table.Symbol(expr.SymID)
	if sym == nil || sym.Decl == nil {
		for _, init := range expr.FieldInits {
			c.inferExpr(init.Value, nil)
		}
		return types.UnknownType
	}
	if sym.Kind != symtab.Struct {
		c.errorf(expr, "%q is not a struct", expr.StructType)
		return types.UnknownType
	}

	decl := sym.Decl
	fieldTypes := make(map[string]*types.Type, len(decl.Fields))
	var fieldOrder []*types.Type
	for _, field := range decl.Fields {
		t := c.resolveTypeNode(field.FieldType)
		fieldTypes[field.Name] = t
		fieldOrder = append(fieldOrder, t)
	}

	for i, init := range expr.FieldInits {
		var want *types.Type
		if init.Name != "" {
			var ok bool
			want, ok = fieldTypes[init.Name]
			if !ok {
				c.errorf(init, "Struct %q has no field %q", sym.Name, init.Name)
				c.inferExpr(init.Value, nil)
				continue
			}
		} else if i < len(fieldOrder) {
			// Positional inits are normalized later; types are checked
			// against field order here.
			want = fieldOrder[i]
		} else {
			c.errorf(init, "Too many field initializers for struct %q", sym.Name)
			c.inferExpr(init.Value, nil)
			continue
		}

		got := c.inferExpr(init.Value, want)
		c.setType(init, got)
		if got.Kind != types.Unknown && want.Kind != types.Unknown &&
			want.Kind != types.GenericParam && !got.AssignableTo(want) {
			c.errorf(init, "Cannot assign %s to field of type %s", got, want)
		}
	}

	return types.NewStruct(sym.Name, sym.ID)
}

func (c *Checker) inferArrayInit(expr *ast.Node, expected *types.Type) *types.Type {
	var elemExpected *types.Type
	if expected != nil && (expected.Kind == types.Array || expected.Kind == types.Slice) {
		elemExpected = expected.Elem
	}

	if len(expr.Elements) == 0 {
		if elemExpected != nil {
			return types.NewArray(elemExpected, 0)
		}
		return types.NewArray(types.UnknownType, 0)
	}

	first := c.inferExpr(expr.Elements[0], elemExpected)
	for _, elem := range expr.Elements[1:] {
		t := c.inferExpr(elem, first)
		if !t.Equal(first) && t.Kind != types.Unknown && first.Kind != types.Unknown {
			c.errorf(elem, "Array element type %s does not match %s", t, first)
		}
	}
	return types.NewArray(first, int64(len(expr.Elements)))
}
