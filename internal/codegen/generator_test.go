package codegen

import (
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/sinc/internal/ast"
	"github.com/gmofishsauce/sinc/internal/symtab"
	"github.com/gmofishsauce/sinc/internal/types"
)

// assertAsm fails with a unified diff when got doesn't match want,
// grounded on lang/ygen_test.go's own "diff the emitted assembly"
// style but using go-difflib instead of a hand-rolled line comparison.
func assertAsm(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	require.NoError(t, err)
	t.Fatalf("assembly mismatch:\n%s", diff)
}

func mustInt(t *testing.T, quals ...types.Quality) types.Type {
	t.Helper()
	ty, err := types.NewPrimitive(types.Int, quals...)
	require.NoError(t, err)
	return ty
}

func mustString(t *testing.T) types.Type {
	t.Helper()
	ty, err := types.NewPrimitive(types.String)
	require.NoError(t, err)
	return ty
}

func lit(v int64) *ast.Literal { return &ast.Literal{Kind_: ast.LitInt, IntVal: v} }
func lv(name string) *ast.LValue { return &ast.LValue{Name: name} }

// TestGlobalIntAllocationAndAdd covers spec §8's first end-to-end
// scenario: two global ints, one initialized to the sum of the other
// and a literal.
func TestGlobalIntAllocationAndAdd(t *testing.T) {
	g := New(symtab.New(), nil)
	block := ast.Block{Stmts: []ast.Stmt{
		&ast.Allocation{Name: "x", Type: mustInt(t), Initial: lit(5)},
		&ast.Allocation{Name: "y", Type: mustInt(t), Initial: &ast.Binary{Op: ast.BinAdd, Left: lv("x"), Right: lit(3)}},
	}}

	out, err := g.Compile(block, 0, symtab.GlobalScope, 0, 0)
	require.NoError(t, err)

	want := "" +
		"    @rs 2 x\n" +
		"    lda #$0005\n" +
		"    sta x\n" +
		"    @rs 2 y\n" +
		"    lda x\n" +
		"    pha\n" +
		"    lda #$0003\n" +
		"    @rs 2 __scratch_ptr\n" +
		"    sta __scratch_ptr\n" +
		"    pla\n" +
		"    add __scratch_ptr\n" +
		"    sta y\n"
	assertAsm(t, want, out)
}

// TestStringLiteralConcatenation covers spec §8's "ab"+"cd" scenario:
// the concatenation folds at compile time into a single allocate-and-
// store sequence, never touching a runtime string-concat primitive.
func TestStringLiteralConcatenation(t *testing.T) {
	g := New(symtab.New(), nil)
	block := ast.Block{Stmts: []ast.Stmt{
		&ast.Allocation{Name: "s", Type: mustString(t), Initial: &ast.Binary{
			Op:    ast.BinAdd,
			Left:  &ast.Literal{Kind_: ast.LitString, StrVal: "ab"},
			Right: &ast.Literal{Kind_: ast.LitString, StrVal: "cd"},
		}},
	}}

	out, err := g.Compile(block, 0, symtab.GlobalScope, 0, 0)
	require.NoError(t, err)

	want := "" +
		"    @rs 2 s\n" +
		"    ldb #$000A\n" +
		"    syscall #$0021\n" +
		"    sta s\n" +
		"    lda s\n" +
		"    @rs 2 __scratch_ptr2\n" +
		"    sta __scratch_ptr2\n" +
		"    lda #$0004\n" +
		"    ldy #$0000\n" +
		"    sta (__scratch_ptr2), y\n" +
		"    lda #$0061\n" +
		"    ldy #$0002\n" +
		"    sta (__scratch_ptr2), y\n" +
		"    lda #$0062\n" +
		"    ldy #$0003\n" +
		"    sta (__scratch_ptr2), y\n" +
		"    lda #$0063\n" +
		"    ldy #$0004\n" +
		"    sta (__scratch_ptr2), y\n" +
		"    lda #$0064\n" +
		"    ldy #$0005\n" +
		"    sta (__scratch_ptr2), y\n"
	assertAsm(t, want, out)
}

// TestWhileCountdown covers spec §8's while-countdown scenario and
// testable property 3 (stack-offset invariant): the loop body
// declares a local, and the generator's offset must be back to its
// pre-loop value once the whole statement has been lowered.
func TestWhileCountdown(t *testing.T) {
	g := New(symtab.New(), nil)
	block := ast.Block{Stmts: []ast.Stmt{
		&ast.Allocation{Name: "n", Type: mustInt(t), Initial: lit(3)},
		&ast.WhileLoop{
			Condition: lv("n"),
			Body: ast.Block{Stmts: []ast.Stmt{
				&ast.Allocation{Name: "tmp", Type: mustInt(t), Initial: lit(1)},
				&ast.Assignment{
					Target: ast.LValueRef{Kind: ast.LVSimple, Name: "n"},
					Value:  &ast.Binary{Op: ast.BinSub, Left: lv("n"), Right: lv("tmp")},
				},
			}},
		},
	}}

	entryOffset := g.stackOffset
	_, err := g.Compile(block, 0, symtab.GlobalScope, 0, 0)
	require.NoError(t, err)
	require.Equal(t, entryOffset, g.stackOffset, "stack-offset invariant violated across a while loop")

	// The loop body's local must not leak into the enclosing scope.
	_, err = g.Table.Lookup("tmp", symtab.GlobalScope, 0)
	require.Error(t, err)
}

// TestFunctionCallWithDefaultArgument covers spec §8's function-call
// scenario: a formal with a default value, called with the argument
// omitted.
func TestFunctionCallWithDefaultArgument(t *testing.T) {
	g := New(symtab.New(), nil)
	def := &ast.Definition{
		Name:       "addOne",
		ReturnType: mustInt(t),
		Formals:    []ast.FormalParam{{Name: "step", Type: mustInt(t), Default: lit(1)}},
		Body: ast.Block{Stmts: []ast.Stmt{
			&ast.Return{Value: &ast.Binary{Op: ast.BinAdd, Left: lv("step"), Right: lit(1)}},
		}},
	}
	block := ast.Block{Stmts: []ast.Stmt{
		def,
		&ast.Call{Name: "addOne", Args: nil},
	}}

	out, err := g.Compile(block, 0, symtab.GlobalScope, 0, 0)
	require.NoError(t, err)

	// The call site omitted its only argument, so the default literal
	// (1) must be the value pushed before the jsr.
	require.Contains(t, out, "addOne:")
	require.Contains(t, out, "lda #$0001\n    pha\n    jsr addOne")
}

// TestIfBranchSeesEnclosingFormal covers the scope-name fix in control.go:
// a nested if-branch must still see its enclosing function's own formal,
// since both are compiled under the same scope name and only the nesting
// depth differs.
func TestIfBranchSeesEnclosingFormal(t *testing.T) {
	g := New(symtab.New(), nil)
	def := &ast.Definition{
		Name:       "f",
		ReturnType: mustInt(t),
		Formals:    []ast.FormalParam{{Name: "a", Type: mustInt(t)}},
		Body: ast.Block{Stmts: []ast.Stmt{
			&ast.IfThenElse{
				Condition: lv("a"),
				IfBranch: ast.Block{Stmts: []ast.Stmt{
					&ast.Return{Value: lv("a")},
				}},
			},
			&ast.Return{Value: lit(0)},
		}},
	}
	_, err := g.Compile(ast.Block{Stmts: []ast.Stmt{def}}, 0, symtab.GlobalScope, 0, 0)
	require.NoError(t, err)
}

// TestCallArgumentTypeMismatchRejected covers spec.md's "confirm the type
// matches the corresponding formal" requirement.
func TestCallArgumentTypeMismatchRejected(t *testing.T) {
	g := New(symtab.New(), nil)
	def := &ast.Definition{
		Name:       "takesInt",
		ReturnType: mustInt(t),
		Formals:    []ast.FormalParam{{Name: "n", Type: mustInt(t)}},
		Body:       ast.Block{Stmts: []ast.Stmt{&ast.Return{Value: lv("n")}}},
	}
	block := ast.Block{Stmts: []ast.Stmt{
		def,
		&ast.Allocation{Name: "s", Type: mustString(t), Initial: &ast.Literal{Kind_: ast.LitString, StrVal: "hi"}},
		&ast.Call{Name: "takesInt", Args: []ast.Expr{lv("s")}},
	}}
	_, err := g.Compile(block, 0, symtab.GlobalScope, 0, 0)
	require.Error(t, err)
}

// TestStringCallArgumentPushesTwoWords covers spec.md's call-argument
// convention: a string argument pushes its length, then its address.
func TestStringCallArgumentPushesTwoWords(t *testing.T) {
	g := New(symtab.New(), nil)
	def := &ast.Definition{
		Name:       "takesString",
		ReturnType: mustInt(t),
		Formals:    []ast.FormalParam{{Name: "s", Type: mustString(t)}},
		Body:       ast.Block{Stmts: []ast.Stmt{&ast.Return{Value: lit(0)}}},
	}
	block := ast.Block{Stmts: []ast.Stmt{
		def,
		&ast.Allocation{Name: "greeting", Type: mustString(t), Initial: &ast.Literal{Kind_: ast.LitString, StrVal: "hi"}},
		&ast.Call{Name: "takesString", Args: []ast.Expr{lv("greeting")}},
	}}
	out, err := g.Compile(block, 0, symtab.GlobalScope, 0, 0)
	require.NoError(t, err)

	// The length is read through one indirection and pushed first, then
	// the home address itself, before the jsr.
	require.Contains(t, out, "lda (__scratch_ptr), y\n    pha\n    lda greeting\n    pha\n    jsr takesString")
}

// TestDuplicateFreeRejected covers spec §8's duplicate-free scenario:
// freeing a non-pointer dynamic symbol twice is a compile error, since
// spec only lets a raw ptr be freed more than once.
func TestDuplicateFreeRejected(t *testing.T) {
	g := New(symtab.New(), nil)
	block := ast.Block{Stmts: []ast.Stmt{
		&ast.Allocation{Name: "s", Type: mustString(t), Initial: &ast.Literal{Kind_: ast.LitString, StrVal: "hi"}},
		&ast.Free{Name: "s"},
		&ast.Free{Name: "s"},
	}}

	_, err := g.Compile(block, 0, symtab.GlobalScope, 0, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already been freed")
}

// TestLocalVariableAddressing exercises the X-indexed local-addressing
// convention directly: a function with two scalar locals must address
// the first one through a nonnegative displacement from the live
// stack pointer once the second has been pushed.
func TestLocalVariableAddressing(t *testing.T) {
	g := New(symtab.New(), nil)
	def := &ast.Definition{
		Name:       "two",
		ReturnType: mustInt(t),
		Body: ast.Block{Stmts: []ast.Stmt{
			&ast.Allocation{Name: "a", Type: mustInt(t), Initial: lit(1)},
			&ast.Allocation{Name: "b", Type: mustInt(t), Initial: lit(2)},
			&ast.Return{Value: lv("a")},
		}},
	}
	out, err := g.Compile(ast.Block{Stmts: []ast.Stmt{def}}, 0, symtab.GlobalScope, 0, 0)
	require.NoError(t, err)

	// "a" was pushed before "b", so loading it back after "b" requires
	// a nonzero displacement off the refreshed frame pointer.
	require.Contains(t, out, "tspa")
	require.Contains(t, out, "$0004, x")
}

// TestStringAssignmentDynamic covers var-to-var string assignment: the
// destination's length and buffer are allocated from the source's
// runtime length, then copied with a descending-counter loop (see
// assign.go's genStringAssignDynamic).
func TestStringAssignmentDynamic(t *testing.T) {
	g := New(symtab.New(), nil)
	block := ast.Block{Stmts: []ast.Stmt{
		&ast.Allocation{Name: "src", Type: mustString(t), Initial: &ast.Literal{Kind_: ast.LitString, StrVal: "hi"}},
		&ast.Allocation{Name: "dst", Type: mustString(t)},
		&ast.Assignment{
			Target: ast.LValueRef{Kind: ast.LVSimple, Name: "dst"},
			Value:  lv("src"),
		},
	}}
	out, err := g.Compile(block, 0, symtab.GlobalScope, 0, 0)
	require.NoError(t, err)

	// The source's length is read through one indirection, the
	// destination is freshly allocated (not reallocated, since it was
	// never initialized), and the copy loop counts Y down to zero.
	require.Contains(t, out, "lda src\n")
	require.Contains(t, out, "syscall #$0021") // SyscallAlloc
	require.Contains(t, out, "cmpy #$0000")
	require.Contains(t, out, "decy")
}
