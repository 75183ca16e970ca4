package codegen

import (
	"github.com/gmofishsauce/sinc/internal/ast"
	"github.com/gmofishsauce/sinc/internal/symtab"
	"github.com/gmofishsauce/sinc/internal/types"
)

// genDefinition implements spec §4.3.3's definition lowering. A function
// may only be defined at global scope; its formals are inserted at
// (name, level 1) with stack offsets matching the slots the caller will
// have pushed them to, counting up from 0. A string formal occupies two
// of those slots -- length then address, per spec.md's call-argument
// convention and original_source/compile/Functions.cpp's Compiler::define,
// which reserves the pair the same way (stack_offset advances by 2 for a
// STRING formal, its own recorded offset captured before that increase).
// jsr pushes the return address immediately above the last formal, so the
// body's entry stack offset -- and the frameBase genReturn unwinds to --
// sits one word past the formals, leaving that return address undisturbed
// for the trailing rts.
func (g *Generator) genDefinition(e *Emitter, s *ast.Definition) error {
	if g.level != 0 {
		return errf(s.Line, "function %q: definitions are only permitted at global scope", s.Name)
	}

	seenDefault := false
	for _, f := range s.Formals {
		if seenDefault && f.Default == nil {
			return errf(s.Line, "function %q: non-default parameter %q follows a default parameter", s.Name, f.Name)
		}
		if f.Default != nil {
			seenDefault = true
		}
	}

	fnSym := &symtab.Symbol{
		Name:    s.Name,
		Type:    s.ReturnType,
		Scope:   symtab.Scope{Name: symtab.GlobalScope, Level: 0},
		Defined: true,
		Params:  make([]symtab.Param, len(s.Formals)),
	}
	for i, f := range s.Formals {
		fnSym.Params[i] = symtab.Param{Name: f.Name, Type: f.Type, Default: f.Default}
	}
	if err := g.Table.Insert(fnSym); err != nil {
		return err
	}

	e.Label(s.Name)

	offset := 0
	for _, f := range s.Formals {
		stringFormal := f.Type.Primary == types.String
		words := wordsFor(f.Type, g.Table.Structs)
		if stringFormal {
			words = 2
		}
		if err := g.Table.Insert(&symtab.Symbol{
			Name:         f.Name,
			Type:         f.Type,
			Scope:        symtab.Scope{Name: s.Name, Level: 1},
			StackOffset:  offset,
			StringFormal: stringFormal,
			Defined:      true,
			Allocated:    true,
		}); err != nil {
			return err
		}
		offset += words
	}
	entryOffset := offset + 1 // the return address jsr pushed

	savedOffset := g.stackOffset
	g.stackOffset = entryOffset
	body, err := g.Compile(s.Body, 1, s.Name, g.maxFrameWords, entryOffset)
	g.stackOffset = savedOffset
	if err != nil {
		return err
	}
	e.Raw(body)
	e.Instr0("rts")
	return nil
}

// genCall implements spec §4.3.3's call lowering: arguments are
// type-checked against the formals (missing trailing arguments fall back
// to their default expression, matching Functions.cpp's own
// argument_type == formal_type check), then evaluated left-to-right and
// pushed -- one word for a scalar or pointer, two for a string (length,
// then address, per spec.md's call-argument convention and
// Compiler::call's "strings push length (A), then address (B)"). The
// callee's return only unwinds its own locals, not the formals
// underneath them, so the caller pops the argument words itself once
// control comes back.
func (g *Generator) genCall(e *Emitter, line int, name string, args []ast.Expr) (types.Type, error) {
	fn, err := g.Table.Lookup(name, g.scopeName, g.level)
	if err != nil {
		return types.Type{}, errf(line, "undefined function %q", name)
	}
	if !fn.IsFunction() {
		return types.Type{}, errf(line, "%q is not a function", name)
	}
	if len(args) > len(fn.Params) {
		return types.Type{}, errf(line, "%q: too many arguments (expected at most %d)", name, len(fn.Params))
	}

	pushed := 0
	for i, p := range fn.Params {
		var argExpr ast.Expr
		if i < len(args) {
			argExpr = args[i]
		} else if p.Default != nil {
			argExpr, _ = p.Default.(ast.Expr)
		} else {
			return types.Type{}, errf(line, "%q: missing required argument %q", name, p.Name)
		}

		if p.Type.Primary == types.String {
			n, err := g.pushStringArgument(e, line, name, p, argExpr)
			if err != nil {
				return types.Type{}, err
			}
			pushed += n
			continue
		}

		argType, err := g.evalExpr(e, argExpr)
		if err != nil {
			return types.Type{}, err
		}
		if !types.Compatible(argType, p.Type) {
			return types.Type{}, errf(line, "%q: argument %q has type %s, expected %s", name, p.Name, argType, p.Type)
		}
		e.Instr0("pha")
		g.stackOffset++
		pushed++
	}

	e.Instr1("jsr", absolute(name))

	// genReturn only unwinds the callee's own locals down to its
	// frameBase (just above the formals, so the return address it
	// leaves for rts stays put); the formals themselves are still
	// sitting on the physical stack when control comes back here, so
	// the caller is responsible for popping them now. A scalar return
	// value is sitting in A at this point, so the cleanup must use the
	// register-safe sequence regardless of size.
	g.moveStackPointer(e, -pushed, true)

	return fn.Type, nil
}

// pushStringArgument implements the string half of spec.md's call
// convention: the argument must itself be a string variable (a literal or
// other computed string rvalue isn't supported by this lowering, the same
// narrow scope genStringAssignDynamic's rvalue accepts); its length is
// pushed first, then its address -- length lands at the lower stack
// offset, address the one above it, matching how genDefinition lays out a
// string formal's own two words, and how Compiler::call pushes length (A)
// then address (B).
func (g *Generator) pushStringArgument(e *Emitter, line int, fname string, p symtab.Param, argExpr ast.Expr) (int, error) {
	lv, ok := argExpr.(*ast.LValue)
	if !ok {
		return 0, errf(line, "%q: argument %q must be a string variable", fname, p.Name)
	}
	src, err := g.Table.Lookup(lv.Name, g.scopeName, g.level)
	if err != nil {
		return 0, errf(line, "undefined symbol %q", lv.Name)
	}
	if !isStringSymbol(src) {
		return 0, errf(line, "%q: argument %q has type %s, expected string", fname, p.Name, src.Type)
	}

	g.loadStringLength(e, src)
	e.Instr0("pha")
	g.stackOffset++
	g.loadHome(e, src)
	e.Instr0("pha")
	g.stackOffset++
	return 2, nil
}

// genReturn implements spec §4.3.4: the return expression, if any, is
// evaluated into A, the stack pointer is unwound to the enclosing
// function's frameBase (discarding any locals the body pushed, without
// disturbing the formals or the return address beneath them), and rts
// hands control back to the caller.
func (g *Generator) genReturn(e *Emitter, s *ast.Return) error {
	if s.Value != nil {
		if _, err := g.evalExpr(e, s.Value); err != nil {
			return err
		}
	}
	if g.stackOffset != g.frameBase {
		g.moveStackPointer(e, g.frameBase-g.stackOffset, true)
	}
	e.Instr0("rts")
	return nil
}
