package codegen

import (
	"fmt"

	"github.com/gmofishsauce/sinc/internal/ast"
	"github.com/gmofishsauce/sinc/internal/isa"
	"github.com/gmofishsauce/sinc/internal/symtab"
	"github.com/gmofishsauce/sinc/internal/types"
)

// genAllocation implements spec §4.3.1's four-way storage-class policy.
func (g *Generator) genAllocation(e *Emitter, s *ast.Allocation) error {
	global := g.level == 0
	isConst := s.Type.Quals.Has(types.Const)
	dynamicish := s.Type.Primary == types.String || s.Type.Quals.Has(types.Dynamic)

	if isConst && s.Initial == nil {
		return errf(s.Line, "const %q must be initialized at declaration", s.Name)
	}

	switch {
	case global && isConst:
		return g.genGlobalConstant(e, s)
	case global && !dynamicish:
		return g.genGlobalVariable(e, s)
	case global && dynamicish:
		return g.genGlobalDynamic(e, s)
	case !global && !dynamicish:
		return g.genLocalVariable(e, s)
	default:
		return g.genLocalDynamic(e, s)
	}
}

// genGlobalConstant implements storage class 1: a data-define directive
// holding the literal initializer. Only a literal initializer is
// accepted; anything else, including an expression naming another
// constant, a pointer, or a computed address, is rejected.
func (g *Generator) genGlobalConstant(e *Emitter, s *ast.Allocation) error {
	lit, ok := s.Initial.(*ast.Literal)
	if !ok {
		return errf(s.Line, "const %q's initializer must be a compile-time literal", s.Name)
	}
	switch lit.LitKind() {
	case ast.LitInt:
		e.Directive("@db", s.Name, fmt.Sprintf("(%s)", wordBytesLiteral(int(lit.IntVal))))
	case ast.LitBool:
		v := 0
		if lit.BoolVal {
			v = 1
		}
		e.Directive("@db", s.Name, fmt.Sprintf("(%s)", wordBytesLiteral(v)))
	case ast.LitString:
		e.Directive("@db", s.Name, fmt.Sprintf("%q", lit.StrVal))
	default:
		return errf(s.Line, "unsupported const initializer kind")
	}
	return g.Table.Insert(&symtab.Symbol{
		Name:    s.Name,
		Type:    s.Type,
		Scope:   symtab.Scope{Name: g.scopeName, Level: g.level},
		Defined: true,
	})
}

// wordBytesLiteral renders an integer as the two big-endian bytes a @db
// directive expects for one word, per spec §4.4's data-literal grammar.
func wordBytesLiteral(v int) string {
	u := uint16(v)
	return fmt.Sprintf("%d,%d", byte(u>>8), byte(u))
}

// genGlobalVariable implements storage class 2 for ordinary (non-
// dynamic) globals: reserve the correct byte count, optionally followed
// by an initializer store.
func (g *Generator) genGlobalVariable(e *Emitter, s *ast.Allocation) error {
	size := s.Type.Size(g.Table.Structs)
	if size <= 0 {
		size = wordSize
	}
	e.Directive("@rs", fmt.Sprint(size), s.Name)

	sym := &symtab.Symbol{
		Name:    s.Name,
		Type:    s.Type,
		Scope:   symtab.Scope{Name: g.scopeName, Level: g.level},
		Defined: true,
	}
	if err := g.Table.Insert(sym); err != nil {
		return err
	}
	if s.Initial != nil {
		if s.Type.Primary == types.Array {
			return g.initArray(e, sym, s.Initial)
		}
		if _, err := g.evalExpr(e, s.Initial); err != nil {
			return err
		}
		g.storeHome(e, sym)
	}
	return nil
}

// genGlobalDynamic implements storage class 2's dynamic/string case: a
// one-word pointer slot, filled in by the shared string/dynamic
// assignment sequence (§4.3.2) when initialized.
func (g *Generator) genGlobalDynamic(e *Emitter, s *ast.Allocation) error {
	e.Directive("@rs", fmt.Sprint(wordSize), s.Name)
	sym := &symtab.Symbol{
		Name:    s.Name,
		Type:    s.Type,
		Scope:   symtab.Scope{Name: g.scopeName, Level: g.level},
		Defined: true,
	}
	if err := g.Table.Insert(sym); err != nil {
		return err
	}
	if s.Initial == nil {
		return nil
	}
	return g.genDynamicInit(e, sym, s.Initial)
}

// genLocalVariable implements storage class 3: advance SP to make room,
// then push the initializer (single word, fast path) or reserve the
// uninitialized space.
func (g *Generator) genLocalVariable(e *Emitter, s *ast.Allocation) error {
	words := wordsFor(s.Type, g.Table.Structs)
	base := g.stackOffset

	if s.Initial != nil && words == 1 && s.Type.Primary != types.Array {
		if _, err := g.evalExpr(e, s.Initial); err != nil {
			return err
		}
		e.Instr0("pha")
		g.stackOffset++
	} else {
		g.moveStackPointer(e, words, false)
		sym := &symtab.Symbol{Name: s.Name, Type: s.Type, Scope: symtab.Scope{Name: g.scopeName, Level: g.level}, StackOffset: base, Defined: true, Allocated: true}
		if s.Initial != nil {
			if s.Type.Primary == types.Array {
				if err := g.Table.Insert(sym); err != nil {
					return err
				}
				return g.initArray(e, sym, s.Initial)
			}
			if _, err := g.evalExpr(e, s.Initial); err != nil {
				return err
			}
			g.storeHome(e, sym)
		}
		return g.Table.Insert(sym)
	}

	return g.Table.Insert(&symtab.Symbol{
		Name: s.Name, Type: s.Type, Scope: symtab.Scope{Name: g.scopeName, Level: g.level},
		StackOffset: base, Defined: true, Allocated: true,
	})
}

// genLocalDynamic implements storage class 4's local case.
func (g *Generator) genLocalDynamic(e *Emitter, s *ast.Allocation) error {
	words := wordsFor(s.Type, g.Table.Structs)
	base := g.stackOffset
	g.moveStackPointer(e, words, false)
	sym := &symtab.Symbol{
		Name: s.Name, Type: s.Type, Scope: symtab.Scope{Name: g.scopeName, Level: g.level},
		StackOffset: base, Defined: true,
	}
	if err := g.Table.Insert(sym); err != nil {
		return err
	}
	if s.Initial == nil {
		if isDynamicScalar(sym) {
			// Reserve the heap cell up front so later loads/stores
			// have somewhere to point; the value is left unset.
			e.Instr1("ldb", immediate(wordSize))
			e.Instr1("syscall", immediate(isa.SyscallAlloc))
			g.storeHome(e, sym)
			sym.Allocated = true
		}
		return nil
	}
	return g.genDynamicInit(e, sym, s.Initial)
}

// genDynamicInit dispatches a dynamic symbol's initializer: the string
// assignment sequence for string types, or a one-word allocation syscall
// plus a store into the returned cell for any other dynamic scalar
// (spec §4.3.1 case 4).
func (g *Generator) genDynamicInit(e *Emitter, sym *symtab.Symbol, initial ast.Expr) error {
	if isStringSymbol(sym) {
		return g.genStringAssign(e, sym, initial)
	}
	if _, err := g.evalExpr(e, initial); err != nil {
		return err
	}
	e.Instr0("pha") // value, kept on the stack across the allocation call
	g.stackOffset++
	e.Instr1("ldb", immediate(wordSize))
	e.Instr1("syscall", immediate(isa.SyscallAlloc))
	g.storeHome(e, sym) // var's own slot <- heap address
	sym.Allocated = true
	g.loadViaScratch(e) // scratchPtr <- heap address
	e.Instr0("pla")
	g.stackOffset--
	e.Instr1("ldy", immediate(0))
	e.Instr1("sta", indirectY(scratchPtr))
	return nil
}

// initArray lowers a List initializer: each element is fetched and
// stored in order, per spec §4.3.1's closing paragraph.
func (g *Generator) initArray(e *Emitter, sym *symtab.Symbol, initial ast.Expr) error {
	list, ok := initial.(*ast.List)
	if !ok {
		return errf(initial.SourceLine(), "array %q must be initialized with a list expression", sym.Name)
	}
	if list.Elems == nil || len(list.Elems) != sym.Type.ArrayLen {
		return errf(initial.SourceLine(), "array %q expects %d elements, got %d", sym.Name, sym.Type.ArrayLen, len(list.Elems))
	}
	elemWords := wordsFor(elementType(sym.Type), g.Table.Structs)
	for i, elem := range list.Elems {
		if _, err := g.evalExpr(e, elem); err != nil {
			return err
		}
		g.loadViaScratch(e) // scratchPtr <- element value

		g.loadAddressOf(e, sym)
		if i > 0 {
			e.Instr1("add", immediate(i*elemWords*wordSize))
		}
		g.loadViaScratch2(e) // scratch2Ptr <- destination address

		e.Instr1("lda", absolute(scratchPtr))
		e.Instr1("ldy", immediate(0))
		e.Instr1("sta", indirectY(scratch2Ptr))
	}
	return nil
}
