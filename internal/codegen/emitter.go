package codegen

import (
	"fmt"
	"strings"
)

// Emitter accumulates assembly text. Its method set mirrors
// lang/ygen/emit.go's Emitter (Instr0/Instr1/Label/Directive/Comment),
// adapted from writing straight to a *bufio.Writer to building a
// strings.Builder, since compile() returns assembly text rather than
// streaming it to a file.
type Emitter struct {
	b strings.Builder
}

func newEmitter() *Emitter { return &Emitter{} }

func (e *Emitter) String() string { return e.b.String() }

func (e *Emitter) Comment(format string, args ...any) {
	fmt.Fprintf(&e.b, "; %s\n", fmt.Sprintf(format, args...))
}

func (e *Emitter) BlankLine() { e.b.WriteByte('\n') }

func (e *Emitter) Label(name string) { fmt.Fprintf(&e.b, "%s:\n", name) }

func (e *Emitter) Directive(dir string, args ...string) {
	if len(args) > 0 {
		fmt.Fprintf(&e.b, "    %s %s\n", dir, strings.Join(args, " "))
	} else {
		fmt.Fprintf(&e.b, "    %s\n", dir)
	}
}

func (e *Emitter) Instr0(op string) { fmt.Fprintf(&e.b, "    %s\n", op) }

func (e *Emitter) Instr1(op, operand string) { fmt.Fprintf(&e.b, "    %s %s\n", op, operand) }

// Raw appends text verbatim -- unlike Instr0/Instr1 it adds no leading
// indentation, since its callers (a nested Compile's already-formatted
// output, or a user's inline-assembly block) are already laid out one
// instruction per line. A missing trailing newline is still added, so
// whatever comes after always starts its own line.
func (e *Emitter) Raw(text string) {
	e.b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		e.b.WriteByte('\n')
	}
}

// --- Operand text helpers, matching the assembler's input grammar (spec §4.4). ---

func immediate(v int) string { return fmt.Sprintf("#$%04X", uint16(v)) }

// immediateSymbol is an immediate operand naming a symbol rather than a
// literal -- the address-of form, resolved by the linker like any other
// relocatable operand.
func immediateSymbol(name string) string { return "#" + name }

func absolute(symOrLiteral string) string { return symOrLiteral }

func indexed(disp int, reg string) string { return fmt.Sprintf("$%04X, %s", uint16(disp), reg) }

func indirectY(symOrLiteral string) string { return fmt.Sprintf("(%s), y", symOrLiteral) }

func indirectX(symOrLiteral string) string { return fmt.Sprintf("(%s, x)", symOrLiteral) }
