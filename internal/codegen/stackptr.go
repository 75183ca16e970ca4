package codegen

import "github.com/gmofishsauce/sinc/internal/symtab"

// moveStackPointer is the helper from spec §4.3.6: it moves both the
// generator's model of the stack pointer (g.stackOffset) and the VM's
// real SP by delta words (positive grows the frame/pushes, negative
// shrinks it/pops), emitting the minimal instruction sequence.
//
// For |delta| <= 3 words it emits successive single-word incsp/decsp.
// Above that it's cheaper to compute the new SP in the accumulator and
// transfer it back -- but that clobbers A, so preserveRegisters forces
// the single-word sequence regardless of size whenever a live register
// value would otherwise be destroyed.
func (g *Generator) moveStackPointer(e *Emitter, delta int, preserveRegisters bool) {
	abs := delta
	if abs < 0 {
		abs = -abs
	}
	if abs == 0 {
		return
	}

	if abs <= 3 || preserveRegisters {
		op := "decsp"
		if delta < 0 {
			op = "incsp"
		}
		for i := 0; i < abs; i++ {
			e.Instr0(op)
		}
	} else {
		e.Instr0("tspa")
		bytes := immediate(abs * wordSize)
		if delta > 0 {
			e.Instr1("sub", bytes)
		} else {
			e.Instr1("add", bytes)
		}
		e.Instr0("tasp")
	}

	g.stackOffset += delta
}

// refreshFrameX reloads X with the live stack pointer, so a local
// variable's slot can be reached via X-indexed addressing with a
// nonnegative displacement (spec's addressing-mode table has no
// SP-relative mode of its own).
func (g *Generator) refreshFrameX(e *Emitter) {
	e.Instr0("tspa")
	e.Instr0("tax")
}

// homeSlot returns the stack offset of sym's own value word. Ordinarily
// that's sym.StackOffset itself, but a string formal was pushed as a
// (length, address) pair (genDefinition reserves both words for it), and
// every other string-handling helper in this package -- loadValue,
// storeValue, loadAddressOf -- wants the address word, one past the
// length word the call convention pushed first.
func (g *Generator) homeSlot(sym *symtab.Symbol) int {
	if sym.StringFormal {
		return sym.StackOffset + 1
	}
	return sym.StackOffset
}

// localDisplacement returns the nonnegative byte displacement from the
// live stack pointer to sym's slot: sym was allocated when the model
// offset was sym.StackOffset, and only grows as deeper locals are
// pushed, so the slot is always at or above (numerically: reached by a
// positive offset from) the current SP.
func (g *Generator) localDisplacement(sym *symtab.Symbol) int {
	return (g.stackOffset - g.homeSlot(sym)) * wordSize
}

// loadHome loads a symbol's own stored value into A: the literal value
// for a non-dynamic scalar, or the heap address it holds for a
// dynamic/string/pointer symbol (one level of indirection below the
// value itself).
func (g *Generator) loadHome(e *Emitter, sym *symtab.Symbol) {
	if sym.Scope.Level == 0 {
		e.Instr1("lda", absolute(sym.Name))
		return
	}
	g.refreshFrameX(e)
	e.Instr1("lda", indexed(g.localDisplacement(sym), "x"))
}

// storeHome stores A into a symbol's own slot. For a local, A is parked
// in B while refreshFrameX runs, so B is overwritten.
func (g *Generator) storeHome(e *Emitter, sym *symtab.Symbol) {
	if sym.Scope.Level == 0 {
		e.Instr1("sta", absolute(sym.Name))
		return
	}
	e.Instr0("tab") // refreshFrameX goes through A
	g.refreshFrameX(e)
	e.Instr0("tba")
	e.Instr1("sta", indexed(g.localDisplacement(sym), "x"))
}

// loadViaScratch redirects a register-held pointer (already loaded into
// A) through the reserved scratch cell so it can be used as the base of
// an indirect-Y access, since spec §4.4's indirect-Y syntax takes a
// plain absolute/symbol expression rather than a register operand.
func (g *Generator) loadViaScratch(e *Emitter) {
	g.declareScratch(e)
	e.Instr1("sta", absolute(scratchPtr))
}

// loadViaScratch2 is loadViaScratch's twin for the second scratch cell.
func (g *Generator) loadViaScratch2(e *Emitter) {
	if !g.scratch2Declared {
		g.scratch2Declared = true
		e.Directive("@rs", "2", scratch2Ptr)
	}
	e.Instr1("sta", absolute(scratch2Ptr))
}

// loadStringFormalLength loads a string formal's length word -- the
// first of its two pushed words, sitting directly on the stack at
// sym.StackOffset rather than behind a heap indirection.
func (g *Generator) loadStringFormalLength(e *Emitter, sym *symtab.Symbol) {
	g.refreshFrameX(e)
	e.Instr1("lda", indexed((g.stackOffset-sym.StackOffset)*wordSize, "x"))
}

// loadStringLength loads sym's length word into A: a string formal's sits
// directly on the stack, while every other string symbol's home slot
// holds a heap address whose first word is the length.
func (g *Generator) loadStringLength(e *Emitter, sym *symtab.Symbol) {
	if sym.StringFormal {
		g.loadStringFormalLength(e, sym)
		return
	}
	g.loadHome(e, sym)
	g.loadViaScratch(e)
	e.Instr1("ldy", immediate(0))
	e.Instr1("lda", indirectY(scratchPtr))
}
