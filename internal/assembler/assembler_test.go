package assembler

import (
	"fmt"
	"testing"

	"github.com/gmofishsauce/sinc/internal/isa"
	"github.com/gmofishsauce/sinc/internal/object"
	"github.com/stretchr/testify/require"
)

// TestRoundTripCounts verifies testable property 4 from the spec: for
// every instruction in the mnemonic table, assembling a one-line
// program yields a byte sequence of the specified length.
func TestRoundTripCounts(t *testing.T) {
	for mnemonic, in := range isa.Table {
		t.Run(mnemonic, func(t *testing.T) {
			src := mnemonic
			if !in.Standalone {
				for m := range in.Modes {
					src = mnemonic + " " + sampleOperand(m)
					break
				}
			}
			a := New(16, 1, nil)
			obj, err := a.Assemble(0x2600, src)
			require.NoError(t, err)
			require.Equal(t, in.EncodedLen(2), len(obj.Code), "mnemonic %s", mnemonic)
		})
	}
}

func sampleOperand(m isa.Mode) string {
	switch m {
	case isa.Absolute:
		return "$1234"
	case isa.XIndexed:
		return "$1234, x"
	case isa.YIndexed:
		return "$1234, y"
	case isa.Immediate:
		return "#$1234"
	case isa.IndirectX:
		return "($1234, x)"
	case isa.IndirectY:
		return "($1234), y"
	case isa.RegisterA:
		return "a"
	case isa.RegisterB:
		return "b"
	default:
		return "$0"
	}
}

func TestLabelsAndForwardReference(t *testing.T) {
	src := `
start: jmp loop
loop: lda $0010
      jmp loop
`
	a := New(16, 1, nil)
	obj, err := a.Assemble(0x2600, src)
	require.NoError(t, err)
	require.Len(t, obj.Code, 4+4+4)

	var loopVal uint16
	for _, s := range obj.Symbols {
		if s.Name == "loop" {
			loopVal = s.Value
		}
	}
	require.Equal(t, uint16(4), loopVal)
}

func TestSublabelScoping(t *testing.T) {
	src := `
outer: nop
.inner: nop
`
	a := New(16, 1, nil)
	obj, err := a.Assemble(0, src)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, s := range obj.Symbols {
		names[s.Name] = true
	}
	require.True(t, names["outer"])
	require.True(t, names["outer.inner"])
}

func TestUnknownMnemonicErrors(t *testing.T) {
	a := New(16, 1, nil)
	_, err := a.Assemble(0, "bogus $1")
	require.Error(t, err)
}

func TestImmediateWithStoreErrors(t *testing.T) {
	a := New(16, 1, nil)
	_, err := a.Assemble(0, "sta #$10")
	require.Error(t, err)
}

func TestIndirectMissingIndexErrors(t *testing.T) {
	a := New(16, 1, nil)
	_, err := a.Assemble(0, "lda ($1234)")
	require.Error(t, err)
}

func TestMalformedDirectiveErrors(t *testing.T) {
	a := New(16, 1, nil)
	_, err := a.Assemble(0, "@rs notanumber foo")
	require.Error(t, err)
}

func TestRelocationTableEntryForSymbolOperand(t *testing.T) {
	src := `lda extern_sym`
	a := New(16, 1, nil)
	obj, err := a.Assemble(0, src)
	require.NoError(t, err)
	require.Len(t, obj.Relocations, 1)
	require.Equal(t, "extern_sym", obj.Relocations[0].Name)
	require.Equal(t, uint16(2), obj.Relocations[0].Address)
}

func TestDbAndRsDirectives(t *testing.T) {
	src := `
@rs 2 counter
@db greeting "hi"
`
	a := New(16, 1, nil)
	obj, err := a.Assemble(0, src)
	require.NoError(t, err)
	require.Len(t, obj.Data, 1)
	require.Equal(t, []byte("hi"), obj.Data[0].Bytes)

	var sawReserved, sawConstant bool
	for _, s := range obj.Symbols {
		if s.Name == "counter" {
			require.Equal(t, object.Reserved, s.Class)
			sawReserved = true
		}
		if s.Name == "greeting" {
			require.Equal(t, object.Constant, s.Class)
			sawConstant = true
		}
	}
	require.True(t, sawReserved)
	require.True(t, sawConstant)
}

type mapIncluder map[string]string

func (m mapIncluder) Resolve(path string) (string, error) {
	text, ok := m[path]
	if !ok {
		return "", fmt.Errorf("no such include %q", path)
	}
	return text, nil
}

func TestIncludeMergesDependencies(t *testing.T) {
	inc := mapIncluder{"lib.asm": "nop\n"}
	a := New(16, 1, inc)
	src := "@include lib.asm\nnop\n"
	obj, err := a.Assemble(0, src)
	require.NoError(t, err)
	require.Len(t, obj.Code, 2)
	require.Contains(t, a.Dependencies(), "lib.asm")
}

func TestDuplicateIncludeWarnsAndSkips(t *testing.T) {
	inc := mapIncluder{"lib.asm": "nop\n"}
	a := New(16, 1, inc)
	src := "@include lib.asm\n@include lib.asm\n"
	obj, err := a.Assemble(0, src)
	require.NoError(t, err)
	require.Len(t, obj.Code, 1)
	require.NotEmpty(t, a.Warnings())
}

func TestDisassembleRoundTrip(t *testing.T) {
	a := New(16, 1, nil)
	obj, err := a.Assemble(0, "lda $1234\nhalt")
	require.NoError(t, err)
	text, err := Disassemble(obj.Code, 2)
	require.NoError(t, err)
	require.Contains(t, text, "lda $1234")
	require.Contains(t, text, "halt")
}
