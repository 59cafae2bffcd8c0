package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/a7c/internal/ast"
)

func TestDeclareAndLookup(t *testing.T) {
	table := NewTable()

	decl := &ast.Node{Kind: ast.VAR, Name: "x"}
	sym, ok := table.Declare(ModuleScopeID, "x", Variable, decl)
	require.True(t, ok)
	assert.Equal(t, "x", sym.Name)
	assert.Same(t, decl, sym.Decl)

	found := table.Lookup(ModuleScopeID, "x")
	require.NotNil(t, found)
	assert.Equal(t, sym.ID, found.ID)
	assert.Nil(t, table.Lookup(ModuleScopeID, "y"))
}

func TestDuplicateDeclarationRejected(t *testing.T) {
	table := NewTable()
	_, ok := table.Declare(ModuleScopeID, "f", Function, nil)
	require.True(t, ok)
	existing, ok := table.Declare(ModuleScopeID, "f", Function, nil)
	assert.False(t, ok)
	assert.Equal(t, "f", existing.Name)
}

func TestNearestScopeWins(t *testing.T) {
	table := NewTable()
	outer, _ := table.Declare(ModuleScopeID, "x", Variable, nil)

	fnScope := table.PushScope(FunctionScope, ModuleScopeID)
	blockScope := table.PushScope(BlockScope, fnScope)
	inner, ok := table.Declare(blockScope, "x", Variable, nil)
	require.True(t, ok, "shadowing in a child scope is allowed")

	assert.Equal(t, inner.ID, table.Lookup(blockScope, "x").ID)
	assert.Equal(t, outer.ID, table.Lookup(fnScope, "x").ID)
}

func TestLookupTypeSkipsValueBindings(t *testing.T) {
	table := NewTable()
	structSym, _ := table.Declare(ModuleScopeID, "Point", Struct, nil)

	fnScope := table.PushScope(FunctionScope, ModuleScopeID)
	table.Declare(fnScope, "Point", Variable, nil)

	found := table.LookupType(fnScope, "Point")
	require.NotNil(t, found)
	assert.Equal(t, structSym.ID, found.ID)
}

func TestLoopAndMatchContexts(t *testing.T) {
	table := NewTable()
	fnScope := table.PushScope(FunctionScope, ModuleScopeID)
	loopScope := table.PushScope(LoopScope, fnScope)
	blockInLoop := table.PushScope(BlockScope, loopScope)
	caseScope := table.PushScope(MatchCaseScope, fnScope)

	assert.True(t, table.InLoop(blockInLoop))
	assert.False(t, table.InLoop(fnScope))
	assert.True(t, table.InMatchCase(caseScope))
	assert.False(t, table.InMatchCase(loopScope))
}

func TestEnclosingFunction(t *testing.T) {
	table := NewTable()
	fn := &ast.Node{Kind: ast.FUNCTION, Name: "main"}
	fnScope := table.PushScope(FunctionScope, ModuleScopeID)
	table.SetFunction(fnScope, fn)
	blockScope := table.PushScope(BlockScope, fnScope)

	assert.Same(t, fn, table.EnclosingFunction(blockScope))
	assert.Nil(t, table.EnclosingFunction(ModuleScopeID))
}

func TestSymbolsPreserveDeclarationOrder(t *testing.T) {
	table := NewTable()
	table.Declare(ModuleScopeID, "b", Variable, nil)
	table.Declare(ModuleScopeID, "a", Variable, nil)
	table.Declare(ModuleScopeID, "c", Variable, nil)

	syms := table.Symbols(ModuleScopeID)
	names := make([]string, len(syms))
	for i, s := range syms {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"b", "a", "c"}, names)
}
