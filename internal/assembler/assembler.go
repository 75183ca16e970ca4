// Package assembler implements the two-pass assembler from spec §4.4:
// assembly text in, a relocatable internal/object.File out.
//
// The two-pass shape (pass one sizes everything and builds the symbol
// table; pass two re-walks the same input with the byte counter reset
// and emits bytes) is grounded on lang/yasm/assembler.go's pass1/pass2
// pair. Unlike the teacher's WOF assembler, symbol classes here follow
// spec §6 (Undefined/Defined/Constant/Reserved/Macro) rather than a
// local/global visibility bit, and addressing-mode encoding follows
// spec §4.4's table instead of the teacher's LUI+ADI/JAL instruction
// pairs.
package assembler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gmofishsauce/sinc/internal/isa"
	"github.com/gmofishsauce/sinc/internal/object"
)

// Includer resolves an @include path to its assembly text. cmd/yasm
// wires this to the filesystem; tests wire it to an in-memory map.
type Includer interface {
	Resolve(path string) (string, error)
}

// Warning is a non-fatal diagnostic, per spec §7.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("warning: %s (line %d)", w.Message, w.Line)
}

type symEntry struct {
	Name    string
	Value   int
	Class   object.SymClass
	Defined bool
}

// Assembler holds the state of one assembly. Construct with New and
// call Assemble once; it is not reusable across runs.
type Assembler struct {
	wordsize  uint8
	vmVersion uint8
	includer  Includer

	pass    int
	pc      int
	codeBuf []byte

	symbols      []symEntry
	relocations  []object.RelEntry
	dataTable    []object.DataEntry
	dependencies []string
	includeSeen  map[string]bool
	warnings     []Warning

	currentTopLabel string
	dataOffset      int
}

func New(wordsize, vmVersion uint8, includer Includer) *Assembler {
	return &Assembler{
		wordsize:    wordsize,
		vmVersion:   vmVersion,
		includer:    includer,
		includeSeen: map[string]bool{},
	}
}

func (a *Assembler) wordsizeBytes() int { return int(a.wordsize) / 8 }

// Warnings returns the warnings accumulated by the last Assemble call.
func (a *Assembler) Warnings() []Warning { return a.warnings }

// Dependencies returns the flattened list of @include paths visited.
func (a *Assembler) Dependencies() []string { return a.dependencies }

type rawLine struct {
	Text string
	Line int
}

// Assemble runs both passes over source (the top-level file's text)
// and returns the resulting object file.
func (a *Assembler) Assemble(entry uint16, source string) (*object.File, error) {
	lines, err := a.expandIncludes(source, "<top>")
	if err != nil {
		return nil, err
	}

	if err := a.runPass(1, lines); err != nil {
		return nil, err
	}
	a.pc = 0
	a.codeBuf = nil
	if err := a.runPass(2, lines); err != nil {
		return nil, err
	}

	return &object.File{
		Wordsize:    a.wordsize,
		VMVersion:   a.vmVersion,
		Entry:       entry,
		Code:        a.codeBuf,
		Symbols:     a.symbolTableEntries(),
		Relocations: a.relocations,
		Data:        a.dataTable,
	}, nil
}

func (a *Assembler) symbolTableEntries() []object.SymEntry {
	out := make([]object.SymEntry, 0, len(a.symbols))
	for _, s := range a.symbols {
		class := s.Class
		if !s.Defined {
			class = object.Undefined
		}
		out = append(out, object.SymEntry{Value: uint16(s.Value), Class: class, Name: s.Name})
	}
	return out
}

// expandIncludes flattens @include directives into a single line
// list, preprocessor-style, so both passes walk identical input.
// Re-including the same path is a warning (spec's "duplicate
// include"), not an error, and the second inclusion is skipped.
func (a *Assembler) expandIncludes(source, path string) ([]rawLine, error) {
	var out []rawLine
	for i, text := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(text)
		if strings.HasPrefix(strings.ToLower(trimmed), "@include") {
			fields := strings.Fields(trimmed)
			if len(fields) != 2 {
				return nil, errf(i+1, "malformed @include directive")
			}
			incPath := fields[1]
			a.dependencies = append(a.dependencies, incPath)
			if a.includeSeen[incPath] {
				a.warnings = append(a.warnings, Warning{Line: i + 1, Message: fmt.Sprintf("duplicate include of %q", incPath)})
				continue
			}
			a.includeSeen[incPath] = true
			if a.includer == nil {
				return nil, errf(i+1, "@include %q but no includer configured", incPath)
			}
			incText, err := a.includer.Resolve(incPath)
			if err != nil {
				return nil, errf(i+1, "@include %q: %v", incPath, err)
			}
			nested, err := a.expandIncludes(incText, incPath)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		out = append(out, rawLine{Text: text, Line: i + 1})
	}
	return out, nil
}

func (a *Assembler) runPass(pass int, lines []rawLine) error {
	a.pass = pass
	a.currentTopLabel = ""
	for _, rl := range lines {
		if err := a.processLine(rl.Line, rl.Text); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) processLine(lineNo int, text string) error {
	text = stripComment(text)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "@") {
		return a.processDirective(lineNo, text)
	}

	if name, value, ok := parseMacro(text); ok {
		return a.defineMacro(lineNo, name, value)
	}

	label, rest, hasLabel := splitLabel(text)
	if hasLabel {
		if err := a.defineLabel(lineNo, label); err != nil {
			return err
		}
		text = strings.TrimSpace(rest)
		if text == "" {
			return nil
		}
	}

	return a.processInstruction(lineNo, text)
}

func stripComment(s string) string {
	if i := strings.Index(s, ";"); i >= 0 {
		return s[:i]
	}
	return s
}

// splitLabel recognizes a leading "label:" on the line, returning the
// label name, the remainder, and whether one was found. Leading
// whitespace before a word ending in ':' still counts.
func splitLabel(s string) (label, rest string, ok bool) {
	fields := strings.SplitN(s, ":", 2)
	if len(fields) != 2 {
		return "", s, false
	}
	first := strings.TrimSpace(fields[0])
	if first == "" || strings.ContainsAny(first, " \t") {
		return "", s, false
	}
	return first, fields[1], true
}

// parseMacro recognizes "name = value".
func parseMacro(s string) (name, value string, ok bool) {
	i := strings.Index(s, "=")
	if i < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(s[:i])
	value = strings.TrimSpace(s[i+1:])
	if name == "" || strings.ContainsAny(name, " \t()") {
		return "", "", false
	}
	return name, value, true
}

func (a *Assembler) expandLabel(name string) string {
	if strings.HasPrefix(name, ".") {
		return a.currentTopLabel + name
	}
	return name
}

func (a *Assembler) defineLabel(lineNo int, name string) error {
	full := a.expandLabel(name)
	if !strings.HasPrefix(name, ".") {
		a.currentTopLabel = name
	}
	if a.pass != 1 {
		return nil
	}
	return a.addSymbol(lineNo, full, a.pc, object.Defined)
}

func (a *Assembler) defineMacro(lineNo int, name, valueText string) error {
	if a.pass != 1 {
		return nil
	}
	val, _, isSym, err := parseValueOrSymbol(lineNo, valueText)
	if err != nil {
		return err
	}
	if isSym {
		return errf(lineNo, "macro %q value must be a literal", name)
	}
	return a.addSymbol(lineNo, name, int(val), object.Macro)
}

func (a *Assembler) addSymbol(lineNo int, name string, value int, class object.SymClass) error {
	for i := range a.symbols {
		if a.symbols[i].Name == name {
			if a.symbols[i].Defined {
				return errf(lineNo, "symbol %q already defined", name)
			}
			a.symbols[i].Value = value
			a.symbols[i].Class = class
			a.symbols[i].Defined = true
			return nil
		}
	}
	a.symbols = append(a.symbols, symEntry{Name: name, Value: value, Class: class, Defined: true})
	return nil
}

func (a *Assembler) lookupSymbol(name string) (*symEntry, bool) {
	for i := range a.symbols {
		if a.symbols[i].Name == name {
			return &a.symbols[i], true
		}
	}
	return nil, false
}

func (a *Assembler) processDirective(lineNo int, text string) error {
	fields := strings.Fields(text)
	name := strings.ToLower(fields[0])
	args := fields[1:]

	switch name {
	case "@rs":
		if len(args) != 2 {
			return errf(lineNo, "malformed @rs directive")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return errf(lineNo, "malformed @rs byte count %q", args[0])
		}
		if a.pass == 1 {
			if err := a.addSymbol(lineNo, args[1], 0, object.Reserved); err != nil {
				return err
			}
			sym, _ := a.lookupSymbol(args[1])
			sym.Value = n // byte count stashed here; linker assigns the real address
		}
		return nil

	case "@db":
		if len(args) < 1 {
			return errf(lineNo, "malformed @db directive")
		}
		name := args[0]
		bytes, err := parseDataLiteral(lineNo, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if a.pass == 1 {
			// The wire format carries no per-entry offset (see
			// original_source/SinObjectFile.cpp's load_sinc_file,
			// which reconstructs data_position_offset by summing
			// byte counts as it reads); the symbol's own Value is
			// where that offset-from-end-of-code lives instead.
			if err := a.addSymbol(lineNo, name, a.dataOffset, object.Constant); err != nil {
				return err
			}
			a.dataTable = append(a.dataTable, object.DataEntry{Name: name, Bytes: bytes})
			a.dataOffset += len(bytes)
		}
		return nil

	case "@align":
		if len(args) != 1 {
			return errf(lineNo, "@align requires 1 argument")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return errf(lineNo, "alignment must be a positive integer")
		}
		pad := (n - a.pc%n) % n
		for i := 0; i < pad; i++ {
			a.emitByte(0)
		}
		return nil

	case "@set":
		if len(args) != 2 {
			return errf(lineNo, "@set requires 2 arguments")
		}
		return a.defineMacro(lineNo, args[0], args[1])

	case "@include":
		// Handled by expandIncludes before either pass runs.
		return nil

	default:
		return errf(lineNo, "unknown directive %q", fields[0])
	}
}

// parseDataLiteral parses a @db data literal: either a quoted string
// or a parenthesized comma-separated byte list, e.g. "ab" or (1,2,3).
func parseDataLiteral(lineNo int, s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return []byte(s[1 : len(s)-1]), nil
	}
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		parts := strings.Split(s[1:len(s)-1], ",")
		out := make([]byte, 0, len(parts))
		for _, p := range parts {
			v, _, isSym, err := parseValueOrSymbol(lineNo, strings.TrimSpace(p))
			if err != nil {
				return nil, err
			}
			if isSym {
				return nil, errf(lineNo, "@db list elements must be literals")
			}
			out = append(out, byte(v))
		}
		return out, nil
	}
	return nil, errf(lineNo, "malformed @db data %q", s)
}

func (a *Assembler) emitByte(b byte) {
	if a.pass == 2 {
		a.codeBuf = append(a.codeBuf, b)
	}
	a.pc++
}

func (a *Assembler) processInstruction(lineNo int, text string) error {
	fields := strings.SplitN(text, " ", 2)
	mnemonic := strings.ToLower(strings.TrimSpace(fields[0]))
	var operandText string
	if len(fields) == 2 {
		operandText = strings.TrimSpace(fields[1])
	}

	in, ok := isa.Lookup(mnemonic)
	if !ok {
		return errf(lineNo, "unknown mnemonic %q", mnemonic)
	}

	if in.Standalone {
		a.emitByte(in.Opcode)
		return nil
	}

	if operandText == "" {
		return errf(lineNo, "%s requires an operand", mnemonic)
	}
	op, err := parseOperand(lineNo, operandText)
	if err != nil {
		return err
	}
	if !in.Modes[op.Mode] {
		return errf(lineNo, "invalid addressing mode for %s", mnemonic)
	}
	if in.Store && op.Mode == isa.Immediate {
		return errf(lineNo, "immediate mode is not valid with store instruction %s", mnemonic)
	}

	a.emitByte(in.Opcode)
	a.emitByte(byte(op.Mode))

	if op.IsRegister {
		// Register-form operands (rol a, mult b) still occupy a full
		// operand word, written as zero, so every non-standalone
		// instruction has the same encoded length.
		a.emitOperandWord(0)
		return nil
	}

	if op.IsSymbol {
		full := a.expandLabel(op.Symbol)
		if a.pass == 2 {
			a.relocations = append(a.relocations, object.RelEntry{Address: uint16(a.pc), Name: full})
		}
		for i := 0; i < a.wordsizeBytes(); i++ {
			a.emitByte(0)
		}
		return nil
	}

	a.emitOperandWord(op.Value)
	return nil
}

func (a *Assembler) emitOperandWord(v int64) {
	n := a.wordsizeBytes()
	for i := n - 1; i >= 0; i-- {
		a.emitByte(byte(v >> (uint(i) * 8)))
	}
}
