// Package codegen implements the CodeGenerator from spec §4.3: it walks
// an internal/ast.Block and lowers it to VM assembly text consumable by
// internal/assembler.
//
// The central-state shape (current scope name, scope depth, stack
// offset, plus monotonic string-literal and branch-label counters) is
// taken directly from spec §4.3's "Central state" paragraph, which is
// itself the spec's own fix for the design flaw noted in §9: the
// original scatters this as global singletons (a free-standing string
// counter, a free-standing label counter, a dependency vector threaded
// by pointer). Here it all lives on one Generator value threaded
// through every lowering method, the same shape lang/ygen's emit.go /
// main.go uses for its Emitter plus a hand-threaded register allocator,
// but consolidated into a single receiver instead of several loose
// globals.
package codegen

import (
	"fmt"

	"github.com/gmofishsauce/sinc/internal/ast"
	"github.com/gmofishsauce/sinc/internal/isa"
	"github.com/gmofishsauce/sinc/internal/symtab"
	"github.com/gmofishsauce/sinc/internal/types"
)

// wordSize is the VM's word width in bytes (spec §6: a 16-bit target).
const wordSize = 2

// scratchPtr is a reserved two-byte cell used to redirect a
// register-computed address (a local variable's stack slot holding a
// heap pointer) through the indirect-Y addressing mode, which per spec
// §4.4's grammar takes a plain absolute/symbol expression rather than a
// register. This is an ordinary compiler spill-to-temporary, not a
// language feature.
const scratchPtr = "__scratch_ptr"

// scratch2Ptr is a second reserved cell, needed wherever two
// register-computed addresses/values are live at once (array-element
// stores compute a value and a destination address in the same breath).
const scratch2Ptr = "__scratch_ptr2"

// IncludeResolver supplies the source of an @include'd source unit.
// Precompiled includes need no resolution -- they're just recorded as a
// link dependency.
type IncludeResolver interface {
	ResolveSource(path string) (ast.Block, error)
}

// Generator holds the code generator's central mutable state (spec
// §4.3) plus the symbol table it shares with the rest of the toolchain.
type Generator struct {
	Table    *symtab.Table
	Resolver IncludeResolver

	// Dependencies accumulates every @include'd unit, source or
	// precompiled, for the linker's benefit.
	Dependencies []string
	Warnings     []Warning

	includeSeen      map[string]bool
	scratchDeclared  bool
	scratch2Declared bool

	scopeName string
	level     int
	frameBase int
	maxOffset int

	// maxFrameWords bounds a function body's own frame (§4.3.3's
	// definition lowering); zero disables the check, the same
	// convention maxOffset itself already uses.
	maxFrameWords int

	stackOffset int
	stringID    int
	labelID     int
}

func New(table *symtab.Table, resolver IncludeResolver) *Generator {
	return &Generator{
		Table:       table,
		Resolver:    resolver,
		includeSeen: map[string]bool{},
		scopeName:   symtab.GlobalScope,
	}
}

func (g *Generator) warn(line int, format string, args ...any) {
	g.Warnings = append(g.Warnings, Warning{Line: line, Message: fmt.Sprintf(format, args...)})
}

func (g *Generator) nextStringID() int {
	id := g.stringID
	g.stringID++
	return id
}

func (g *Generator) nextLabel(tag string) string {
	id := g.labelID
	g.labelID++
	return fmt.Sprintf(".%s%d", tag, id)
}

// Compile lowers block's statements in order and returns the generated
// assembly text. It is the compiler's single recursive entry point:
// top-level program compilation, and every nested if/while/function
// body, all go through this same method with scopeName/level/frameBase/
// maxOffset describing the block's lexical context.
//
// Testable property 3 (the stack-offset invariant) is enforced here
// rather than by each caller: whatever stackOffset was on entry, Compile
// restores it before returning, emitting the stack-pointer-movement
// helper (§4.3.6) if the block's statements left it drifted, and removes
// every symbol the block itself inserted at (scopeName, level) -- the
// scope-exit half of spec §4.2's invariant.
func (g *Generator) Compile(block ast.Block, level int, scopeName string, maxOffset int, frameBase int) (string, error) {
	savedScope, savedLevel, savedFrame, savedMax := g.scopeName, g.level, g.frameBase, g.maxOffset
	g.scopeName, g.level, g.frameBase, g.maxOffset = scopeName, level, frameBase, maxOffset
	defer func() {
		g.scopeName, g.level, g.frameBase, g.maxOffset = savedScope, savedLevel, savedFrame, savedMax
	}()

	entryOffset := g.stackOffset
	e := newEmitter()

	seenReturn, err := g.compileStmts(e, block)
	if err != nil {
		return "", err
	}

	// A return statement already unwinds to its function's frameBase
	// and emits rts itself (genReturn); restoring here too would emit
	// dead stack-pointer instructions after an unconditional jump, so
	// in that case only the model is reset: code after this block runs
	// on paths that did not return, where the stack is at entry depth.
	if !seenReturn && g.stackOffset != entryOffset {
		g.moveStackPointer(e, entryOffset-g.stackOffset, false)
	}
	g.stackOffset = entryOffset
	g.Table.RemoveScope(scopeName, level)

	return e.String(), nil
}

// compileStmts lowers block's statements into e in order, without any
// scope-entry/scope-exit bookkeeping of its own -- the shared body behind
// both Compile (which wraps it with the scope-exit invariant) and
// genInclude (which must NOT remove the including scope's own symbols
// just because the included unit's Compile-equivalent finished).
func (g *Generator) compileStmts(e *Emitter, block ast.Block) (seenReturn bool, err error) {
	for _, stmt := range block.Stmts {
		if seenReturn {
			g.warn(stmt.SourceLine(), "unreachable code after return")
		}
		if err := g.genStmt(e, stmt); err != nil {
			return false, err
		}
		if stmt.Kind() == ast.KReturn {
			seenReturn = true
		}
		if g.maxOffset > 0 && g.stackOffset-g.frameBase > g.maxOffset {
			return false, errf(stmt.SourceLine(), "stack frame exceeds maximum offset %d", g.maxOffset)
		}
	}
	return seenReturn, nil
}

func (g *Generator) genStmt(e *Emitter, stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.Include:
		return g.genInclude(e, s)
	case *ast.Declaration:
		return g.genDeclaration(e, s)
	case *ast.Allocation:
		return g.genAllocation(e, s)
	case *ast.Assignment:
		return g.genAssignment(e, s)
	case *ast.Return:
		return g.genReturn(e, s)
	case *ast.IfThenElse:
		return g.genIf(e, s)
	case *ast.WhileLoop:
		return g.genWhile(e, s)
	case *ast.Definition:
		return g.genDefinition(e, s)
	case *ast.Call:
		_, err := g.genCall(e, s.Line, s.Name, s.Args)
		return err
	case *ast.InlineAssembly:
		return g.genInlineAssembly(e, s)
	case *ast.Free:
		return g.genFree(e, s)
	default:
		return errf(stmt.SourceLine(), "unhandled statement kind %T", stmt)
	}
}

func (g *Generator) genInclude(e *Emitter, s *ast.Include) error {
	if g.includeSeen[s.Path] {
		g.warn(s.Line, "duplicate include of %q ignored", s.Path)
		return nil
	}
	g.includeSeen[s.Path] = true
	g.Dependencies = append(g.Dependencies, s.Path)

	if s.Precompiled {
		return nil
	}
	if g.Resolver == nil {
		return errf(s.Line, "no include resolver configured for %q", s.Path)
	}
	block, err := g.Resolver.ResolveSource(s.Path)
	if err != nil {
		return errf(s.Line, "cannot resolve include %q: %v", s.Path, err)
	}
	// Lowered directly into e at the includer's own scope: spec's
	// "imports that unit's exported symbols into the current table"
	// means they must survive past this statement, which Compile's
	// own scope-exit bookkeeping would otherwise strip immediately.
	if _, err := g.compileStmts(e, block); err != nil {
		return err
	}
	return nil
}

func (g *Generator) genDeclaration(e *Emitter, s *ast.Declaration) error {
	return g.Table.Insert(&symtab.Symbol{
		Name:    s.Name,
		Type:    s.Type,
		Scope:   symtab.Scope{Name: g.scopeName, Level: g.level},
		Defined: false,
	})
}

func (g *Generator) genInlineAssembly(e *Emitter, s *ast.InlineAssembly) error {
	const targetDialect = "sinc"
	if s.Dialect != targetDialect {
		return errf(s.Line, "inline assembly dialect %q does not match target %q", s.Dialect, targetDialect)
	}
	e.Raw(s.Text)
	return nil
}

func (g *Generator) genFree(e *Emitter, s *ast.Free) error {
	sym, err := g.Table.Lookup(s.Name, g.scopeName, g.level)
	if err != nil {
		return errf(s.Line, "undefined symbol %q", s.Name)
	}
	isPtr := sym.Type.Primary == types.Ptr
	dynamicish := sym.Type.Quals.Has(types.Dynamic) || sym.Type.Primary == types.String
	if !isPtr && !dynamicish {
		return errf(s.Line, "%q is not dynamically allocated memory", s.Name)
	}
	if sym.Freed && !isPtr {
		return errf(s.Line, "%q has already been freed", s.Name)
	}

	g.loadAddressValue(e, sym)
	e.Instr0("tab")
	e.Instr1("syscall", immediate(isa.SyscallFree))

	sym.Freed = true
	sym.Defined = false
	return nil
}

// loadAddressValue loads the address a dynamic/string/ptr symbol holds
// (its own stored value, one level of indirection below the symbol's
// home) into register A.
func (g *Generator) loadAddressValue(e *Emitter, sym *symtab.Symbol) {
	g.loadHome(e, sym)
}

// declareScratch emits the reserved scratch-pointer cell the first time
// it's needed; harmless to call repeatedly.
func (g *Generator) declareScratch(e *Emitter) {
	if g.scratchDeclared {
		return
	}
	g.scratchDeclared = true
	e.Directive("@rs", "2", scratchPtr)
}

func wordsFor(t types.Type, structs types.StructRegistry) int {
	size := t.Size(structs)
	if size <= 0 {
		return 1
	}
	return (size + wordSize - 1) / wordSize
}
