package symtab

import (
	"errors"
	"testing"

	"github.com/gmofishsauce/sinc/internal/types"
	"github.com/stretchr/testify/require"
)

func mustInt(t *testing.T) types.Type {
	t.Helper()
	ty, err := types.NewPrimitive(types.Int)
	require.NoError(t, err)
	return ty
}

// TestShadowing verifies testable property 1 from the spec: for inserts
// (name, scope, L1) and (name, scope, L2) with L1 < L2, a lookup at depth
// >= L2 returns the L2 entry; after scope-exit of L2, lookup returns L1.
func TestShadowing(t *testing.T) {
	tab := New()
	ty := mustInt(t)

	outer := &Symbol{Name: "x", Type: ty, Scope: Scope{Name: "f", Level: 1}}
	inner := &Symbol{Name: "x", Type: ty, Scope: Scope{Name: "f", Level: 2}}
	require.NoError(t, tab.Insert(outer))
	require.NoError(t, tab.Insert(inner))

	got, err := tab.Lookup("x", "f", 2)
	require.NoError(t, err)
	require.Same(t, inner, got)

	tab.RemoveScope("f", 2)

	got, err = tab.Lookup("x", "f", 2)
	require.NoError(t, err)
	require.Same(t, outer, got)
}

func TestInsertDuplicateSameScopeLevelFails(t *testing.T) {
	tab := New()
	ty := mustInt(t)
	sym := &Symbol{Name: "x", Type: ty, Scope: Scope{Name: "f", Level: 1}}
	require.NoError(t, tab.Insert(sym))

	err := tab.Insert(&Symbol{Name: "x", Type: ty, Scope: Scope{Name: "f", Level: 1}})
	require.Error(t, err)
	var dup *DuplicateSymbolError
	require.True(t, errors.As(err, &dup))
}

func TestInsertShadowAcrossScopeNamesAllowed(t *testing.T) {
	tab := New()
	ty := mustInt(t)
	require.NoError(t, tab.Insert(&Symbol{Name: "x", Type: ty, Scope: Scope{Name: "f", Level: 1}}))
	require.NoError(t, tab.Insert(&Symbol{Name: "x", Type: ty, Scope: Scope{Name: "g", Level: 1}}))
}

func TestLookupFallsBackToGlobal(t *testing.T) {
	tab := New()
	ty := mustInt(t)
	global := &Symbol{Name: "G", Type: ty, Scope: Scope{Name: GlobalScope, Level: 0}}
	require.NoError(t, tab.Insert(global))

	got, err := tab.Lookup("G", "somefunc", 3)
	require.NoError(t, err)
	require.Same(t, global, got)
}

func TestLookupNotFound(t *testing.T) {
	tab := New()
	_, err := tab.Lookup("nope", "global", 0)
	require.Error(t, err)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestIsInSymbolTable(t *testing.T) {
	tab := New()
	ty := mustInt(t)
	require.False(t, tab.IsInSymbolTable("x", "f"))
	require.NoError(t, tab.Insert(&Symbol{Name: "x", Type: ty, Scope: Scope{Name: "f", Level: 0}}))
	require.True(t, tab.IsInSymbolTable("x", "f"))
}

func TestRemoveExactMatchOnly(t *testing.T) {
	tab := New()
	ty := mustInt(t)
	a := &Symbol{Name: "x", Type: ty, Scope: Scope{Name: "f", Level: 1}}
	b := &Symbol{Name: "x", Type: ty, Scope: Scope{Name: "f", Level: 2}}
	require.NoError(t, tab.Insert(a))
	require.NoError(t, tab.Insert(b))

	tab.Remove("x", "f", 1)
	require.Len(t, tab.Snapshot(), 1)
	require.Same(t, b, tab.Snapshot()[0])
}

func TestDefineStructComputesOffsets(t *testing.T) {
	tab := New()
	intTy := mustInt(t)
	byteTy, err := types.NewPrimitive(types.Bool)
	require.NoError(t, err)

	def := tab.DefineStruct("Point", []types.FieldDef{
		{Name: "flag", Type: byteTy},
		{Name: "x", Type: intTy},
		{Name: "y", Type: intTy},
	})

	require.Equal(t, 0, def.Fields[0].Offset) // flag: byte at 0
	require.Equal(t, 2, def.Fields[1].Offset) // x: aligned up to 2
	require.Equal(t, 4, def.Fields[2].Offset) // y: next word
	require.Equal(t, 6, def.Size)
	require.Equal(t, 2, def.Align)
}
