package codegen

import (
	"github.com/gmofishsauce/sinc/internal/ast"
	"github.com/gmofishsauce/sinc/internal/symtab"
	"github.com/gmofishsauce/sinc/internal/types"
)

func isDynamicScalar(sym *symtab.Symbol) bool {
	return sym.Type.Quals.Has(types.Dynamic) && sym.Type.Primary != types.String
}

func isStringSymbol(sym *symtab.Symbol) bool { return sym.Type.Primary == types.String }

func elementType(t types.Type) types.Type {
	return types.Type{Primary: t.Subtype, StructName: t.StructName}
}

// loadValue loads a symbol's logical value into A, dereferencing the
// extra indirection a dynamic (non-string, non-pointer) scalar carries:
// its own slot holds a heap address, not the value itself.
func (g *Generator) loadValue(e *Emitter, sym *symtab.Symbol) {
	if isDynamicScalar(sym) {
		g.loadHome(e, sym)
		g.loadViaScratch(e)
		e.Instr1("ldy", immediate(0))
		e.Instr1("lda", indirectY(scratchPtr))
		return
	}
	g.loadHome(e, sym)
}

// storeValue is loadValue's write-side counterpart: it assumes the
// dynamic scalar's heap cell already exists (Allocated is true).
func (g *Generator) storeValue(e *Emitter, sym *symtab.Symbol) {
	if isDynamicScalar(sym) {
		e.Instr0("tab") // B = value to store
		g.loadHome(e, sym)
		g.loadViaScratch(e)
		e.Instr0("tba") // A = value, restored
		e.Instr1("ldy", immediate(0))
		e.Instr1("sta", indirectY(scratchPtr))
		return
	}
	g.storeHome(e, sym)
}

// loadAddressOf loads the address of sym's own storage (not its value)
// into A: spec's address-of operator.
func (g *Generator) loadAddressOf(e *Emitter, sym *symtab.Symbol) {
	if sym.Scope.Level == 0 {
		e.Instr1("lda", immediateSymbol(sym.Name))
		return
	}
	g.refreshFrameX(e)
	e.Instr0("txa")
	if d := g.localDisplacement(sym); d != 0 {
		e.Instr1("add", immediate(d))
	}
}

// elementAddress computes the address of sym[index] into A. An array is
// indexed from its own storage; a pointer from the address it holds.
func (g *Generator) elementAddress(e *Emitter, sym *symtab.Symbol, index ast.Expr, elemWords int) error {
	if _, err := g.evalExpr(e, index); err != nil {
		return err
	}
	e.Instr1("ldb", immediate(elemWords*wordSize))
	e.Instr1("mult", "b")
	g.declareScratch(e)
	e.Instr1("sta", absolute(scratchPtr))
	if sym.Type.Primary == types.Ptr {
		g.loadHome(e, sym)
	} else {
		g.loadAddressOf(e, sym)
	}
	e.Instr1("add", absolute(scratchPtr))
	return nil
}

// evalExpr lowers a scalar-valued expression, leaving its result in
// register A, and reports the expression's resolved type so callers that
// need it -- genCall's per-argument type check chief among them -- don't
// have to re-derive it. String literals are rejected here: they are only
// valid as the rvalue of a string assignment, which folds literal
// concatenations at compile time (see assign.go's foldStringLiteral). A
// string variable evaluates to the one-word heap address its home slot
// holds.
func (g *Generator) evalExpr(e *Emitter, expr ast.Expr) (types.Type, error) {
	switch x := expr.(type) {
	case *ast.Literal:
		return g.evalLiteral(e, x)
	case *ast.LValue:
		sym, err := g.Table.Lookup(x.Name, g.scopeName, g.level)
		if err != nil {
			return types.Type{}, errf(x.Line, "undefined symbol %q", x.Name)
		}
		g.loadValue(e, sym)
		return sym.Type, nil
	case *ast.AddressOf:
		sym, err := g.Table.Lookup(x.Name, g.scopeName, g.level)
		if err != nil {
			return types.Type{}, errf(x.Line, "undefined symbol %q", x.Name)
		}
		g.loadAddressOf(e, sym)
		ptrType, err := types.NewPointer(sym.Type.Primary, sym.Type.StructName)
		if err != nil {
			return types.Type{}, errf(x.Line, "%q: %v", x.Name, err)
		}
		return ptrType, nil
	case *ast.Dereferenced:
		if sym, ok := x.Inner.(*ast.LValue); ok {
			target, err := g.Table.Lookup(sym.Name, g.scopeName, g.level)
			if err != nil {
				return types.Type{}, errf(x.Line, "undefined symbol %q", sym.Name)
			}
			if target.Type.Primary != types.Ptr {
				return types.Type{}, errf(x.Line, "%q is not a pointer and cannot be dereferenced", sym.Name)
			}
		}
		innerType, err := g.evalExpr(e, x.Inner)
		if err != nil {
			return types.Type{}, err
		}
		g.loadViaScratch(e)
		e.Instr1("ldy", immediate(0))
		e.Instr1("lda", indirectY(scratchPtr))
		return elementType(innerType), nil
	case *ast.Indexed:
		sym, err := g.Table.Lookup(x.Name, g.scopeName, g.level)
		if err != nil {
			return types.Type{}, errf(x.Line, "undefined symbol %q", x.Name)
		}
		if sym.Type.Primary != types.Array && sym.Type.Primary != types.Ptr {
			return types.Type{}, errf(x.Line, "%q is not indexable", x.Name)
		}
		elemWords := wordsFor(elementType(sym.Type), g.Table.Structs)
		if err := g.elementAddress(e, sym, x.Index, elemWords); err != nil {
			return types.Type{}, err
		}
		g.loadViaScratch(e)
		e.Instr1("ldy", immediate(0))
		e.Instr1("lda", indirectY(scratchPtr))
		return elementType(sym.Type), nil
	case *ast.Unary:
		return g.evalUnary(e, x)
	case *ast.Binary:
		return g.evalBinary(e, x)
	case *ast.SizeOf:
		e.Instr1("lda", immediate(x.TypeName.Size(g.Table.Structs)))
		t, _ := types.NewPrimitive(types.Int)
		return t, nil
	case *ast.ValueReturningCall:
		return g.genCall(e, x.Line, x.Name, x.Args)
	case *ast.List:
		return types.Type{}, errf(x.Line, "list expression is only valid as an array initializer")
	default:
		return types.Type{}, errf(expr.SourceLine(), "unhandled expression kind %T", expr)
	}
}

func (g *Generator) evalLiteral(e *Emitter, x *ast.Literal) (types.Type, error) {
	switch x.LitKind() {
	case ast.LitInt:
		e.Instr1("lda", immediate(int(x.IntVal)))
		t, _ := types.NewPrimitive(types.Int)
		return t, nil
	case ast.LitBool:
		v := 0
		if x.BoolVal {
			v = 1
		}
		e.Instr1("lda", immediate(v))
		t, _ := types.NewPrimitive(types.Bool)
		return t, nil
	case ast.LitFloat:
		return types.Type{}, errf(x.Line, "float literals are not supported by this lowering")
	case ast.LitString:
		return types.Type{}, errf(x.Line, "string literal used outside of string-assignment context")
	default:
		return types.Type{}, errf(x.Line, "unhandled literal kind")
	}
}

func (g *Generator) evalUnary(e *Emitter, x *ast.Unary) (types.Type, error) {
	operandType, err := g.evalExpr(e, x.Operand)
	if err != nil {
		return types.Type{}, err
	}
	switch x.Op {
	case ast.UnaryNeg:
		g.declareScratch(e)
		e.Instr1("sta", absolute(scratchPtr))
		e.Instr1("lda", immediate(0))
		e.Instr1("sub", absolute(scratchPtr))
		return operandType, nil
	case ast.UnaryNot:
		trueLbl := g.nextLabel("nottrue")
		doneLbl := g.nextLabel("notdone")
		e.Instr1("cmp", immediate(0))
		e.Instr1("brz", absolute(trueLbl))
		e.Instr1("lda", immediate(0))
		e.Instr1("jmp", absolute(doneLbl))
		e.Label(trueLbl)
		e.Instr1("lda", immediate(1))
		e.Label(doneLbl)
		t, _ := types.NewPrimitive(types.Bool)
		return t, nil
	default:
		return types.Type{}, errf(x.Line, "unhandled unary operator")
	}
}

// exprIsUnsigned makes a best-effort, purely local judgment of an
// operand's signedness: an lvalue whose symbol is an unsigned int is
// unsigned, everything else (literals, computed expressions) is treated
// as signed. See DESIGN.md for why this is the chosen resolution of the
// "signed vs unsigned when operands disagree" open question: the
// generator only goes unsigned when BOTH operands are demonstrably
// unsigned, defaulting to signed otherwise.
func (g *Generator) exprIsUnsigned(expr ast.Expr) bool {
	lv, ok := expr.(*ast.LValue)
	if !ok {
		return false
	}
	sym, err := g.Table.Lookup(lv.Name, g.scopeName, g.level)
	if err != nil {
		return false
	}
	return sym.Type.Primary == types.Int && sym.Type.Quals.Has(types.Unsigned)
}

func (g *Generator) evalBinary(e *Emitter, x *ast.Binary) (types.Type, error) {
	switch x.Op {
	case ast.BinEqual, ast.BinNotEqual, ast.BinGreater, ast.BinLess, ast.BinGreaterOrEqual, ast.BinLessOrEqual:
		return g.evalComparison(e, x)
	case ast.BinMod:
		return g.evalMod(e, x)
	}

	leftType, err := g.evalExpr(e, x.Left)
	if err != nil {
		return types.Type{}, err
	}
	e.Instr0("pha")
	g.stackOffset++
	if _, err := g.evalExpr(e, x.Right); err != nil {
		return types.Type{}, err
	}
	g.declareScratch(e)
	e.Instr1("sta", absolute(scratchPtr))
	e.Instr0("pla")
	g.stackOffset--

	unsigned := g.exprIsUnsigned(x.Left) && g.exprIsUnsigned(x.Right)

	switch x.Op {
	case ast.BinAdd:
		e.Instr1("add", absolute(scratchPtr))
	case ast.BinSub:
		e.Instr1("sub", absolute(scratchPtr))
	case ast.BinAnd, ast.BinBitAnd:
		e.Instr1("and", absolute(scratchPtr))
	case ast.BinOr, ast.BinBitOr:
		e.Instr1("or", absolute(scratchPtr))
	case ast.BinMul:
		e.Instr1("ldb", absolute(scratchPtr))
		if unsigned {
			e.Instr1("multu", "b")
		} else {
			e.Instr1("mult", "b")
		}
	case ast.BinDiv:
		e.Instr1("ldb", absolute(scratchPtr))
		if unsigned {
			e.Instr1("divu", "b")
		} else {
			e.Instr1("div", "b")
		}
	default:
		return types.Type{}, errf(x.Line, "unhandled binary operator")
	}
	return leftType, nil
}

func (g *Generator) evalMod(e *Emitter, x *ast.Binary) (types.Type, error) {
	leftType, err := g.evalExpr(e, x.Left)
	if err != nil {
		return types.Type{}, err
	}
	e.Instr0("pha")
	g.stackOffset++
	if _, err := g.evalExpr(e, x.Right); err != nil {
		return types.Type{}, err
	}
	g.declareScratch(e)
	e.Instr1("sta", absolute(scratchPtr))
	e.Instr0("pla")
	e.Instr0("pha") // keep a copy of left for the final subtraction

	unsigned := g.exprIsUnsigned(x.Left) && g.exprIsUnsigned(x.Right)
	e.Instr1("ldb", absolute(scratchPtr))
	if unsigned {
		e.Instr1("divu", "b")
	} else {
		e.Instr1("div", "b")
	}
	e.Instr1("ldb", absolute(scratchPtr))
	e.Instr1("mult", "b")
	e.Instr1("sta", absolute(scratchPtr))
	e.Instr0("pla")
	g.stackOffset--
	e.Instr1("sub", absolute(scratchPtr))
	return leftType, nil
}

func (g *Generator) evalComparison(e *Emitter, x *ast.Binary) (types.Type, error) {
	if _, err := g.evalExpr(e, x.Left); err != nil {
		return types.Type{}, err
	}
	e.Instr0("pha")
	g.stackOffset++
	if _, err := g.evalExpr(e, x.Right); err != nil {
		return types.Type{}, err
	}
	g.declareScratch(e)
	e.Instr1("sta", absolute(scratchPtr))
	e.Instr0("pla")
	g.stackOffset--
	e.Instr1("sub", absolute(scratchPtr)) // A = left - right

	trueLbl := g.nextLabel("cmptrue")
	doneLbl := g.nextLabel("cmpdone")
	falseLbl := g.nextLabel("cmpfalse")

	switch x.Op {
	case ast.BinEqual:
		e.Instr1("brz", absolute(trueLbl))
		e.Instr1("jmp", absolute(falseLbl))
	case ast.BinNotEqual:
		e.Instr1("brnz", absolute(trueLbl))
		e.Instr1("jmp", absolute(falseLbl))
	case ast.BinLess:
		e.Instr1("brn", absolute(trueLbl))
		e.Instr1("jmp", absolute(falseLbl))
	case ast.BinGreaterOrEqual:
		e.Instr1("brn", absolute(falseLbl))
		e.Instr1("jmp", absolute(trueLbl))
	case ast.BinGreater:
		e.Instr1("brz", absolute(falseLbl))
		e.Instr1("brn", absolute(falseLbl))
		e.Instr1("jmp", absolute(trueLbl))
	case ast.BinLessOrEqual:
		e.Instr1("brz", absolute(trueLbl))
		e.Instr1("brn", absolute(trueLbl))
		e.Instr1("jmp", absolute(falseLbl))
	default:
		return types.Type{}, errf(x.Line, "operator is not a comparison")
	}

	e.Label(falseLbl)
	e.Instr1("lda", immediate(0))
	e.Instr1("jmp", absolute(doneLbl))
	e.Label(trueLbl)
	e.Instr1("lda", immediate(1))
	e.Label(doneLbl)
	t, _ := types.NewPrimitive(types.Bool)
	return t, nil
}
