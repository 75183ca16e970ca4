package assembler

import (
	"fmt"
	"strings"

	"github.com/gmofishsauce/sinc/internal/isa"
)

// Disassemble renders code back to assembly text, one instruction per
// line, resolving addressing-mode bytes back to the syntax from spec
// §4.4's table. It's supplemental tooling grounded on
// lang/yasm/disasm.go and asm/disasm.go, neither of which the spec
// itself requires but both of which the teacher pairs with its
// assembler as a matter of course.
func Disassemble(code []byte, wordsizeBytes int) (string, error) {
	var mnemonicByOpcode = map[byte]*isa.Instr{}
	for _, in := range isa.Table {
		mnemonicByOpcode[in.Opcode] = in
	}

	var out strings.Builder
	i := 0
	for i < len(code) {
		opcode := code[i]
		in, ok := mnemonicByOpcode[opcode]
		if !ok {
			return "", fmt.Errorf("disassemble: unknown opcode 0x%02X at offset %d", opcode, i)
		}
		if in.Standalone {
			fmt.Fprintf(&out, "%s\n", in.Mnemonic)
			i++
			continue
		}
		if i+2+wordsizeBytes > len(code) {
			return "", fmt.Errorf("disassemble: truncated instruction at offset %d", i)
		}
		mode := isa.Mode(code[i+1])
		var operand uint64
		for j := 0; j < wordsizeBytes; j++ {
			operand = operand<<8 | uint64(code[i+2+j])
		}
		fmt.Fprintf(&out, "%s %s\n", in.Mnemonic, renderOperand(mode, operand))
		i += 2 + wordsizeBytes
	}
	return out.String(), nil
}

func renderOperand(mode isa.Mode, value uint64) string {
	switch mode {
	case isa.Absolute:
		return fmt.Sprintf("$%X", value)
	case isa.XIndexed:
		return fmt.Sprintf("$%X, x", value)
	case isa.YIndexed:
		return fmt.Sprintf("$%X, y", value)
	case isa.Immediate:
		return fmt.Sprintf("#$%X", value)
	case isa.IndirectX:
		return fmt.Sprintf("($%X, x)", value)
	case isa.IndirectY:
		return fmt.Sprintf("($%X), y", value)
	case isa.RegisterA:
		return "a"
	case isa.RegisterB:
		return "b"
	default:
		return fmt.Sprintf("<mode %d>$%X", mode, value)
	}
}
