package codegen

import "github.com/gmofishsauce/sinc/internal/ast"

// genIf implements spec §4.3.5's conditional lowering: evaluate the
// condition (zero is false, per the VM's own branch semantics), jump to
// the else branch (or straight past, if there isn't one) when it's
// zero, otherwise fall into the if-branch and jump past the else.
//
// Each branch is compiled one level deeper than this statement but under
// the SAME scope name as the enclosing function -- scope names identify
// a function (symtab.go's Lookup falls through to a symbol's own scope
// name or the global scope, never to a sibling name), and depths alone
// distinguish nested blocks within it. A fresh per-branch name would hide
// the enclosing function's own locals and formals from code inside the
// branch, since Lookup only sees symbols filed under the current name (or
// global). original_source/compile/Compiler.cpp's ite() leaves
// current_scope_name alone for exactly this reason (its own reassignment
// of the field is commented out).
func (g *Generator) genIf(e *Emitter, s *ast.IfThenElse) error {
	if _, err := g.evalExpr(e, s.Condition); err != nil {
		return err
	}

	elseLbl := g.nextLabel("else")
	doneLbl := g.nextLabel("endif")
	e.Instr1("cmp", immediate(0))
	e.Instr1("brz", absolute(elseLbl))

	ifText, err := g.Compile(s.IfBranch, g.level+1, g.scopeName, g.maxOffset, g.frameBase)
	if err != nil {
		return err
	}
	e.Raw(ifText)
	e.Instr1("jmp", absolute(doneLbl))

	e.Label(elseLbl)
	if s.ElseBranch != nil {
		elseText, err := g.Compile(*s.ElseBranch, g.level+1, g.scopeName, g.maxOffset, g.frameBase)
		if err != nil {
			return err
		}
		e.Raw(elseText)
	}
	e.Label(doneLbl)
	return nil
}

// genWhile implements spec §4.3.5's loop lowering: test at the top,
// zero exits to the done label, otherwise the body runs and control
// jumps back to re-test.
func (g *Generator) genWhile(e *Emitter, s *ast.WhileLoop) error {
	topLbl := g.nextLabel("wtop")
	doneLbl := g.nextLabel("wdone")

	e.Label(topLbl)
	if _, err := g.evalExpr(e, s.Condition); err != nil {
		return err
	}
	e.Instr1("cmp", immediate(0))
	e.Instr1("brz", absolute(doneLbl))

	bodyText, err := g.Compile(s.Body, g.level+1, g.scopeName, g.maxOffset, g.frameBase)
	if err != nil {
		return err
	}
	e.Raw(bodyText)
	e.Instr1("jmp", absolute(topLbl))
	e.Label(doneLbl)
	return nil
}
