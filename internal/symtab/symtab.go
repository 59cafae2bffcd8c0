// Package symtab holds the scoped symbol table built during name
// resolution and read by every later pass. Scopes live in a single
// arena indexed by integer id; child scopes keep a non-owning back
// reference to their parent for lookup.
package symtab

import (
	"github.com/oxhq/a7c/internal/ast"
	"github.com/oxhq/a7c/internal/intern"
	"github.com/oxhq/a7c/internal/types"
)

// SymbolKind classifies what a name is bound to.
type SymbolKind uint8

const (
	Variable SymbolKind = iota
	Constant
	Parameter
	Function
	Struct
	Enum
	Union
	EnumVariant
	GenericParam
	ImportAlias
)

var symbolKindNames = [...]string{
	Variable:     "variable",
	Constant:     "constant",
	Parameter:    "parameter",
	Function:     "function",
	Struct:       "struct",
	Enum:         "enum",
	Union:        "union",
	EnumVariant:  "enum variant",
	GenericParam: "generic parameter",
	ImportAlias:  "import alias",
}

func (k SymbolKind) String() string {
	if int(k) < len(symbolKindNames) {
		return symbolKindNames[k]
	}
	return "symbol"
}

// IsNominalType reports whether the symbol declares a nominal type.
func (k SymbolKind) IsNominalType() bool {
	return k == Struct || k == Enum || k == Union
}

// ScopeKind tags what construct opened a scope.
type ScopeKind uint8

const (
	ModuleScope ScopeKind = iota
	FunctionScope
	BlockScope
	LoopScope
	MatchCaseScope
)

// Symbol is one declared name. ID 0 is reserved as "no symbol" so that
// AST annotations can use the zero value.
type Symbol struct {
	ID   int32
	Name string
	Kind SymbolKind
	// Decl points at the declaring AST node.
	Decl *ast.Node
	Type *types.Type
}

// Scope is one level of the scope tree.
type Scope struct {
	ID     int32
	Kind   ScopeKind
	Parent int32 // -1 for the module scope

	// FuncDecl is the enclosing FUNCTION node for function scopes.
	FuncDecl *ast.Node

	names map[intern.ID]int32
	order []int32
}

// Table owns all scopes and symbols of one compilation.
type Table struct {
	pool    *intern.Pool
	scopes  []*Scope
	symbols []*Symbol
}

// NewTable builds a table with the module scope (id 0) in place.
func NewTable() *Table {
	t := &Table{
		pool: intern.NewPool(),
		// Slot 0 is the "no symbol" sentinel.
		symbols: []*Symbol{nil},
	}
	t.scopes = append(t.scopes, &Scope{
		ID:     0,
		Kind:   ModuleScope,
		Parent: -1,
		names:  make(map[intern.ID]int32),
	})
	return t
}

// ModuleScopeID is the id of the program scope.
const ModuleScopeID int32 = 0

// PushScope creates a child scope and returns its id.
func (t *Table) PushScope(kind ScopeKind, parent int32) int32 {
	s := &Scope{
		ID:     int32(len(t.scopes)),
		Kind:   kind,
		Parent: parent,
		names:  make(map[intern.ID]int32),
	}
	t.scopes = append(t.scopes, s)
	return s.ID
}

// SetFunction records the FUNCTION declaration owning a function scope.
func (t *Table) SetFunction(scopeID int32, fn *ast.Node) {
	t.scopes[scopeID].FuncDecl = fn
}

// Scope returns the scope record for an id.
func (t *Table) Scope(id int32) *Scope {
	return t.scopes[id]
}

// Symbol returns the symbol for an id, or nil for the zero id.
func (t *Table) Symbol(id int32) *Symbol {
	if id <= 0 || int(id) >= len(t.symbols) {
		return nil
	}
	return t.symbols[id]
}

// Declare binds name in the given scope. It returns the new symbol and
// true, or the existing symbol and false when the name is already bound
// at this scope level.
func (t *Table) Declare(scopeID int32, name string, kind SymbolKind, decl *ast.Node) (*Symbol, bool) {
	scope := t.scopes[scopeID]
	nameID := t.pool.Intern(name)
	if existing, ok := scope.names[nameID]; ok {
		return t.symbols[existing], false
	}

	sym := &Symbol{
		ID:   int32(len(t.symbols)),
		Name: name,
		Kind: kind,
		Decl: decl,
	}
	t.symbols = append(t.symbols, sym)
	scope.names[nameID] = sym.ID
	scope.order = append(scope.order, sym.ID)
	return sym, true
}

// Lookup resolves name starting at scopeID and walking parent scopes.
func (t *Table) Lookup(scopeID int32, name string) *Symbol {
	nameID := t.pool.Intern(name)
	for id := scopeID; id >= 0; {
		scope := t.scopes[id]
		if symID, ok := scope.names[nameID]; ok {
			return t.symbols[symID]
		}
		id = scope.Parent
	}
	return nil
}

// LookupLocal resolves name in exactly one scope.
func (t *Table) LookupLocal(scopeID int32, name string) *Symbol {
	nameID := t.pool.Intern(name)
	if symID, ok := t.scopes[scopeID].names[nameID]; ok {
		return t.symbols[symID]
	}
	return nil
}

// LookupType resolves name against nominal-type and generic-parameter
// symbols only, skipping value bindings that shadow a type name.
func (t *Table) LookupType(scopeID int32, name string) *Symbol {
	nameID := t.pool.Intern(name)
	for id := scopeID; id >= 0; {
		scope := t.scopes[id]
		if symID, ok := scope.names[nameID]; ok {
			sym := t.symbols[symID]
			if sym.Kind.IsNominalType() || sym.Kind == GenericParam {
				return sym
			}
		}
		id = scope.Parent
	}
	return nil
}

// Symbols returns the symbols of a scope in declaration order.
func (t *Table) Symbols(scopeID int32) []*Symbol {
	scope := t.scopes[scopeID]
	out := make([]*Symbol, 0, len(scope.order))
	for _, id := range scope.order {
		out = append(out, t.symbols[id])
	}
	return out
}

// InLoop reports whether any scope from scopeID up to the enclosing
// function boundary is a loop scope.
func (t *Table) InLoop(scopeID int32) bool {
	for id := scopeID; id >= 0; {
		scope := t.scopes[id]
		if scope.Kind == LoopScope {
			return true
		}
		if scope.Kind == FunctionScope {
			return false
		}
		id = scope.Parent
	}
	return false
}

// InMatchCase reports whether scopeID sits inside a match case body,
// without crossing a function boundary.
func (t *Table) InMatchCase(scopeID int32) bool {
	for id := scopeID; id >= 0; {
		scope := t.scopes[id]
		if scope.Kind == MatchCaseScope {
			return true
		}
		if scope.Kind == FunctionScope {
			return false
		}
		id = scope.Parent
	}
	return false
}

// EnclosingFunction returns the FUNCTION node whose scope contains
// scopeID, or nil at module level.
func (t *Table) EnclosingFunction(scopeID int32) *ast.Node {
	for id := scopeID; id >= 0; {
		scope := t.scopes[id]
		if scope.Kind == FunctionScope && scope.FuncDecl != nil {
			return scope.FuncDecl
		}
		id = scope.Parent
	}
	return nil
}

// NumScopes reports how many scopes the table holds.
func (t *Table) NumScopes() int {
	return len(t.scopes)
}
