// Package isa is the single source of truth for the target VM's
// instruction set: the mnemonic table, addressing-mode encoding, and
// syscall selectors from spec §6. internal/codegen emits mnemonics from
// this table; internal/assembler encodes them. Keeping one table
// shared between the two halves is how the original's
// OpcodeConstants.h / instruction-list pairing is meant to work, per
// original_source/OpcodeConstants.h and lang/yasm/types.go's
// Instruction table.
package isa

import "strings"

// Mode is an addressing-mode encoding, per spec §4.4's table.
type Mode int

const (
	Absolute  Mode = 0
	XIndexed  Mode = 1
	YIndexed  Mode = 2
	Immediate Mode = 3
	// 4 is unused in the spec's table.
	IndirectX Mode = 5
	IndirectY Mode = 6
	RegisterA Mode = 7
	RegisterB Mode = 8
)

// Instr describes one mnemonic: its opcode byte, whether it takes an
// addressing-mode operand at all (Standalone instructions like RTS or
// HALT don't), whether it's a store (store instructions reject
// Immediate mode), and the set of addressing modes it accepts.
type Instr struct {
	Mnemonic   string
	Opcode     byte
	Standalone bool
	Store      bool
	Modes      map[Mode]bool
}

func modes(ms ...Mode) map[Mode]bool {
	out := make(map[Mode]bool, len(ms))
	for _, m := range ms {
		out[m] = true
	}
	return out
}

var memoryModes = modes(Absolute, XIndexed, YIndexed, Immediate, IndirectX, IndirectY)
var storeModes = modes(Absolute, XIndexed, YIndexed, IndirectX, IndirectY)

// Table is keyed by lower-cased mnemonic; assembler input is
// case-insensitive per spec §6.
var Table = buildTable()

func buildTable() map[string]*Instr {
	t := map[string]*Instr{}
	add := func(in *Instr) {
		t[in.Mnemonic] = in
	}

	// 0x0x general.
	add(&Instr{Mnemonic: "nop", Opcode: 0x00, Standalone: true})

	// 0x1x register A: load/store/transfer/inc/dec.
	add(&Instr{Mnemonic: "lda", Opcode: 0x10, Modes: memoryModes})
	add(&Instr{Mnemonic: "sta", Opcode: 0x11, Store: true, Modes: storeModes})
	add(&Instr{Mnemonic: "tab", Opcode: 0x12, Standalone: true})
	add(&Instr{Mnemonic: "tax", Opcode: 0x13, Standalone: true})
	add(&Instr{Mnemonic: "tay", Opcode: 0x14, Standalone: true})
	add(&Instr{Mnemonic: "tasp", Opcode: 0x15, Standalone: true})
	add(&Instr{Mnemonic: "inca", Opcode: 0x16, Standalone: true})
	add(&Instr{Mnemonic: "deca", Opcode: 0x17, Standalone: true})
	add(&Instr{Mnemonic: "tspa", Opcode: 0x18, Standalone: true})

	// 0x2x register B. B can be incremented but, per the original's
	// register convention, never decremented directly.
	add(&Instr{Mnemonic: "ldb", Opcode: 0x20, Modes: memoryModes})
	add(&Instr{Mnemonic: "stb", Opcode: 0x21, Store: true, Modes: storeModes})
	add(&Instr{Mnemonic: "tba", Opcode: 0x22, Standalone: true})
	add(&Instr{Mnemonic: "incb", Opcode: 0x23, Standalone: true})

	// 0x3x register X.
	add(&Instr{Mnemonic: "ldx", Opcode: 0x30, Modes: memoryModes})
	add(&Instr{Mnemonic: "stx", Opcode: 0x31, Store: true, Modes: storeModes})
	add(&Instr{Mnemonic: "txa", Opcode: 0x32, Standalone: true})
	add(&Instr{Mnemonic: "incx", Opcode: 0x33, Standalone: true})
	add(&Instr{Mnemonic: "decx", Opcode: 0x34, Standalone: true})

	// 0x4x register Y.
	add(&Instr{Mnemonic: "ldy", Opcode: 0x40, Modes: memoryModes})
	add(&Instr{Mnemonic: "sty", Opcode: 0x41, Store: true, Modes: storeModes})
	add(&Instr{Mnemonic: "tya", Opcode: 0x42, Standalone: true})
	add(&Instr{Mnemonic: "incy", Opcode: 0x43, Standalone: true})
	add(&Instr{Mnemonic: "decy", Opcode: 0x44, Standalone: true})

	// 0x5x-0x6x ALU. Per spec's addressing-mode table, RegisterA (mode
	// 7) is for bitshifts specifically and RegisterB (mode 8) is for
	// "certain ALU instructions" -- read here as the multiply/divide
	// pair, which take their second operand from B since A already
	// holds the first. The rest (add/sub/and/or/xor/cmp, inc/dec
	// memory) take an ordinary memory/immediate operand.
	add(&Instr{Mnemonic: "rol", Opcode: 0x50, Modes: modes(RegisterA)})
	add(&Instr{Mnemonic: "ror", Opcode: 0x51, Modes: modes(RegisterA)})
	add(&Instr{Mnemonic: "lsl", Opcode: 0x52, Modes: modes(RegisterA)})
	add(&Instr{Mnemonic: "lsr", Opcode: 0x53, Modes: modes(RegisterA)})
	add(&Instr{Mnemonic: "incmem", Opcode: 0x54, Store: true, Modes: storeModes})
	add(&Instr{Mnemonic: "decmem", Opcode: 0x55, Store: true, Modes: storeModes})
	add(&Instr{Mnemonic: "add", Opcode: 0x56, Modes: memoryModes})
	add(&Instr{Mnemonic: "sub", Opcode: 0x57, Modes: memoryModes})
	add(&Instr{Mnemonic: "mult", Opcode: 0x58, Modes: modes(RegisterB)})
	add(&Instr{Mnemonic: "multu", Opcode: 0x59, Modes: modes(RegisterB)})
	add(&Instr{Mnemonic: "div", Opcode: 0x5A, Modes: modes(RegisterB)})
	add(&Instr{Mnemonic: "divu", Opcode: 0x5B, Modes: modes(RegisterB)})
	add(&Instr{Mnemonic: "and", Opcode: 0x5C, Modes: memoryModes})
	add(&Instr{Mnemonic: "or", Opcode: 0x5D, Modes: memoryModes})
	add(&Instr{Mnemonic: "xor", Opcode: 0x5E, Modes: memoryModes})
	add(&Instr{Mnemonic: "cmp", Opcode: 0x5F, Modes: memoryModes})
	add(&Instr{Mnemonic: "cmpx", Opcode: 0x60, Modes: memoryModes})
	add(&Instr{Mnemonic: "cmpy", Opcode: 0x61, Modes: memoryModes})

	// 0x7x FPU. Minimal, for the float primitive; the compiler proper
	// doesn't exercise these, the assembler still must encode them.
	add(&Instr{Mnemonic: "fadd", Opcode: 0x70, Modes: modes(RegisterA)})
	add(&Instr{Mnemonic: "fsub", Opcode: 0x71, Modes: modes(RegisterA)})
	add(&Instr{Mnemonic: "fmul", Opcode: 0x72, Modes: modes(RegisterA)})
	add(&Instr{Mnemonic: "fdiv", Opcode: 0x73, Modes: modes(RegisterA)})

	// 0x9x stack.
	add(&Instr{Mnemonic: "pha", Opcode: 0x90, Standalone: true})
	add(&Instr{Mnemonic: "pla", Opcode: 0x91, Standalone: true})
	add(&Instr{Mnemonic: "phb", Opcode: 0x92, Standalone: true})
	add(&Instr{Mnemonic: "plb", Opcode: 0x93, Standalone: true})
	add(&Instr{Mnemonic: "phx", Opcode: 0x94, Standalone: true})
	add(&Instr{Mnemonic: "plx", Opcode: 0x95, Standalone: true})
	add(&Instr{Mnemonic: "phy", Opcode: 0x96, Standalone: true})
	add(&Instr{Mnemonic: "ply", Opcode: 0x97, Standalone: true})
	add(&Instr{Mnemonic: "incsp", Opcode: 0x98, Standalone: true})
	add(&Instr{Mnemonic: "decsp", Opcode: 0x99, Standalone: true})

	// 0xAx STATUS manipulation.
	add(&Instr{Mnemonic: "clc", Opcode: 0xA0, Standalone: true})
	add(&Instr{Mnemonic: "sec", Opcode: 0xA1, Standalone: true})
	add(&Instr{Mnemonic: "tstatusa", Opcode: 0xA2, Standalone: true})
	add(&Instr{Mnemonic: "tastatus", Opcode: 0xA3, Standalone: true})

	// 0xBx control flow.
	add(&Instr{Mnemonic: "jmp", Opcode: 0xB0, Modes: modes(Absolute)})
	add(&Instr{Mnemonic: "brz", Opcode: 0xB1, Modes: modes(Absolute)})
	add(&Instr{Mnemonic: "brnz", Opcode: 0xB2, Modes: modes(Absolute)})
	add(&Instr{Mnemonic: "brn", Opcode: 0xB3, Modes: modes(Absolute)})
	add(&Instr{Mnemonic: "brc", Opcode: 0xB4, Modes: modes(Absolute)})
	add(&Instr{Mnemonic: "jsr", Opcode: 0xB5, Modes: modes(Absolute)})
	add(&Instr{Mnemonic: "rts", Opcode: 0xB6, Standalone: true})
	add(&Instr{Mnemonic: "irq", Opcode: 0xB7, Standalone: true})
	add(&Instr{Mnemonic: "rti", Opcode: 0xB8, Standalone: true})

	// 0xFA SYSCALL, 0xFF HALT.
	add(&Instr{Mnemonic: "syscall", Opcode: 0xFA, Modes: modes(Immediate)})
	add(&Instr{Mnemonic: "halt", Opcode: 0xFF, Standalone: true})

	return t
}

// Lookup returns the instruction definition for a mnemonic, matching
// case-insensitively.
func Lookup(mnemonic string) (*Instr, bool) {
	in, ok := Table[strings.ToLower(mnemonic)]
	return in, ok
}

// Syscall selectors, per spec §6.
const (
	SyscallFileOpen  = 0x10
	SyscallFileClose = 0x11
	SyscallRead      = 0x12
	SyscallStdout    = 0x13
	SyscallStdoutHex = 0x14
	SyscallFree      = 0x20
	SyscallAlloc     = 0x21
	SyscallRealloc   = 0x22
	SyscallReallocSafe = 0x23
	SyscallExit      = 0xFF
)

// EncodedLen returns the number of bytes assembling one occurrence of
// this instruction produces: 1 for standalone opcodes, 2 plus the
// wordsize in bytes otherwise (testable property 4).
func (in *Instr) EncodedLen(wordsizeBytes int) int {
	if in.Standalone {
		return 1
	}
	return 2 + wordsizeBytes
}
