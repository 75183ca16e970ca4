package codegen

import (
	"fmt"

	"github.com/gmofishsauce/sinc/internal/ast"
	"github.com/gmofishsauce/sinc/internal/isa"
	"github.com/gmofishsauce/sinc/internal/symtab"
	"github.com/gmofishsauce/sinc/internal/types"
)

// genAssignment implements spec §4.3.2's lvalue-form dispatch.
func (g *Generator) genAssignment(e *Emitter, s *ast.Assignment) error {
	switch s.Target.Kind {
	case ast.LVSimple:
		return g.genSimpleAssign(e, s)
	case ast.LVIndexed:
		return g.genIndexedAssign(e, s)
	case ast.LVDereferenced:
		return g.genDereferencedAssign(e, s)
	default:
		return errf(s.Line, "unhandled lvalue kind")
	}
}

func (g *Generator) genSimpleAssign(e *Emitter, s *ast.Assignment) error {
	sym, err := g.Table.Lookup(s.Target.Name, g.scopeName, g.level)
	if err != nil {
		return errf(s.Line, "undefined symbol %q", s.Target.Name)
	}
	if sym.Type.Quals.Has(types.Const) {
		return errf(s.Line, "%q is const and cannot be assigned", s.Target.Name)
	}
	if isStringSymbol(sym) {
		return g.genStringAssign(e, sym, s.Value)
	}
	if _, err := g.evalExpr(e, s.Value); err != nil {
		return err
	}
	g.storeValue(e, sym)
	return nil
}

// genIndexedAssign fetches the index, preserves it, and stores through
// the computed element address. For local arrays this walks the stack
// pointer model via the §4.3.6 helper, which is why the invariant
// re-synchronizes g.stackOffset afterward rather than leaving it to
// drift across the maneuver.
func (g *Generator) genIndexedAssign(e *Emitter, s *ast.Assignment) error {
	sym, err := g.Table.Lookup(s.Target.Name, g.scopeName, g.level)
	if err != nil {
		return errf(s.Line, "undefined symbol %q", s.Target.Name)
	}
	if sym.Type.Primary != types.Array && sym.Type.Primary != types.Ptr {
		return errf(s.Line, "%q is not indexable", s.Target.Name)
	}
	if isStringSymbol(elementTypeSymbol(sym)) {
		return errf(s.Line, "index-assignment into a string is forbidden")
	}

	elemWords := wordsFor(elementType(sym.Type), g.Table.Structs)
	if err := g.elementAddress(e, sym, s.Target.Index, elemWords); err != nil {
		return err
	}
	g.loadViaScratch2(e) // scratch2Ptr <- destination address

	if _, err := g.evalExpr(e, s.Value); err != nil {
		return err
	}
	e.Instr1("ldy", immediate(0))
	e.Instr1("sta", indirectY(scratch2Ptr))
	return nil
}

// elementTypeSymbol is a small shim so isStringSymbol (which takes a
// *symtab.Symbol) can be reused to ask "is the element type a string".
func elementTypeSymbol(sym *symtab.Symbol) *symtab.Symbol {
	return &symtab.Symbol{Type: elementType(sym.Type)}
}

func (g *Generator) genDereferencedAssign(e *Emitter, s *ast.Assignment) error {
	if _, err := g.evalExpr(e, s.Value); err != nil {
		return err
	}
	e.Instr0("pha")
	g.stackOffset++
	if _, err := g.evalExpr(e, s.Target.Inner); err != nil {
		return err
	}
	g.loadViaScratch2(e) // scratch2Ptr <- address to store through
	e.Instr0("pla")
	g.stackOffset--
	e.Instr1("ldy", immediate(0))
	e.Instr1("sta", indirectY(scratch2Ptr))
	return nil
}

// genStringAssign implements spec §4.3.2's string-assignment sequence.
// Literal (or literal-foldable) rvalues are handled by an unrolled
// immediate-byte copy, since the bytes are known at compile time; any
// other string-valued rvalue (another string variable) is copied via
// its own runtime length.
func (g *Generator) genStringAssign(e *Emitter, sym *symtab.Symbol, value ast.Expr) error {
	if text, ok := foldStringLiteral(value); ok {
		return g.genStringAssignLiteral(e, sym, text)
	}
	return g.genStringAssignDynamic(e, sym, value)
}

// foldStringLiteral constant-folds a string expression built only from
// string literals and '+' concatenation -- enough to satisfy the spec's
// "ab"+"cd" end-to-end scenario without a general string-runtime op.
func foldStringLiteral(expr ast.Expr) (string, bool) {
	switch x := expr.(type) {
	case *ast.Literal:
		if x.LitKind() == ast.LitString {
			return x.StrVal, true
		}
		return "", false
	case *ast.Binary:
		if x.Op != ast.BinAdd {
			return "", false
		}
		l, ok := foldStringLiteral(x.Left)
		if !ok {
			return "", false
		}
		r, ok := foldStringLiteral(x.Right)
		if !ok {
			return "", false
		}
		return l + r, true
	default:
		return "", false
	}
}

const allocSlack = 4

func (g *Generator) genStringAssign2Allocate(e *Emitter, sym *symtab.Symbol, byteLen int) {
	e.Instr1("ldb", immediate(byteLen+wordSize+allocSlack))
	if !sym.Allocated {
		e.Instr1("syscall", immediate(isa.SyscallAlloc))
	} else {
		g.loadHome(e, sym)
		e.Instr0("tax")
		e.Instr1("syscall", immediate(isa.SyscallReallocSafe))
	}
	g.storeHome(e, sym)
	sym.Allocated = true
	sym.Freed = false
}

func (g *Generator) genStringAssignLiteral(e *Emitter, sym *symtab.Symbol, text string) error {
	g.genStringAssign2Allocate(e, sym, len(text))

	// Redirect through scratch2Ptr before loading the length into A,
	// not after -- loadHome's own lda would otherwise clobber it.
	g.loadHome(e, sym)
	g.loadViaScratch2(e)

	// Store the length word at offset 0.
	e.Instr1("lda", immediate(len(text)))
	e.Instr1("ldy", immediate(0))
	e.Instr1("sta", indirectY(scratch2Ptr))

	// memcpy the literal bytes starting at offset wordSize.
	for i := 0; i < len(text); i++ {
		e.Instr1("lda", immediate(int(text[i])))
		e.Instr1("ldy", immediate(wordSize+i))
		e.Instr1("sta", indirectY(scratch2Ptr))
	}
	return nil
}

// genStringAssignDynamic copies from another string variable at runtime:
// its length (read, not known until the VM runs) drives a fresh
// allocation or reallocation of the destination exactly like
// genStringAssign2Allocate's literal path, then a descending-counter loop
// walks indirect-Y addressing on both sides to copy the bytes. Unlike
// genStringAssignLiteral, neither the length nor the bytes are available
// at compile time, so the copy itself has to be a loop rather than an
// unrolled sequence.
func (g *Generator) genStringAssignDynamic(e *Emitter, sym *symtab.Symbol, value ast.Expr) error {
	srcName, ok := value.(*ast.LValue)
	if !ok {
		return errf(value.SourceLine(), "unsupported string rvalue form")
	}
	src, err := g.Table.Lookup(srcName.Name, g.scopeName, g.level)
	if err != nil {
		return errf(value.SourceLine(), "undefined symbol %q", srcName.Name)
	}
	if !isStringSymbol(src) {
		return errf(value.SourceLine(), "%q is not a string", srcName.Name)
	}

	g.loadStringLength(e, src)
	e.Instr0("pha") // stash: destination's length word, once allocated
	e.Instr0("pha") // stash: copy-loop counter
	g.stackOffset += 2

	e.Instr1("add", immediate(wordSize+allocSlack))
	e.Instr0("tab")
	if !sym.Allocated {
		e.Instr1("syscall", immediate(isa.SyscallAlloc))
	} else {
		g.loadHome(e, sym)
		e.Instr0("tax")
		e.Instr1("syscall", immediate(isa.SyscallReallocSafe))
	}
	g.storeHome(e, sym)
	sym.Allocated = true
	sym.Freed = false

	g.loadHome(e, sym)
	g.loadViaScratch2(e) // scratch2Ptr <- destination address, length word still at offset 0

	e.Instr0("pla")
	e.Instr1("ldy", immediate(0))
	e.Instr1("sta", indirectY(scratch2Ptr)) // store the destination's length word

	e.Instr0("pla")
	e.Instr0("tay") // Y <- copy-loop counter
	g.stackOffset -= 2

	// Bias both pointers past their length word, so the loop below can
	// index bytes with a plain y in [0, length).
	g.loadHome(e, src)
	g.loadViaScratch(e) // scratchPtr <- source address, length word still at offset 0
	e.Instr1("lda", absolute(scratchPtr))
	e.Instr1("add", immediate(wordSize))
	e.Instr1("sta", absolute(scratchPtr))
	e.Instr1("lda", absolute(scratch2Ptr))
	e.Instr1("add", immediate(wordSize))
	e.Instr1("sta", absolute(scratch2Ptr))

	topLbl := g.nextLabel("strcpy")
	doneLbl := g.nextLabel("strcpydone")
	e.Label(topLbl)
	e.Instr1("cmpy", immediate(0))
	e.Instr1("brz", absolute(doneLbl))
	e.Instr0("decy")
	e.Instr1("lda", indirectY(scratchPtr))
	e.Instr1("sta", indirectY(scratch2Ptr))
	e.Instr1("jmp", absolute(topLbl))
	e.Label(doneLbl)
	return nil
}
