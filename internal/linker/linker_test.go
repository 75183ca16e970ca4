package linker

import (
	"testing"

	"github.com/gmofishsauce/sinc/internal/object"
	"github.com/stretchr/testify/require"
)

// TestForwardReference implements the spec's "Linker resolves forward
// reference" end-to-end scenario: object A references symbol F
// (undefined); object B defines F at local offset 0x0040. Link bases A
// at 0x2600, B at 0x2600+sizeof(A); the relocation site in A's code
// holds the absolute address of F in B.
func TestForwardReference(t *testing.T) {
	objA := &object.File{
		Wordsize: 16, VMVersion: 1,
		Code: []byte{0x00, 0x00, 0x00, 0x00}, // 4 bytes, relocated at offset 2
		Symbols: []object.SymEntry{
			{Name: "F", Class: object.Undefined},
		},
		Relocations: []object.RelEntry{
			{Address: 2, Name: "F"},
		},
	}
	objB := &object.File{
		Wordsize: 16, VMVersion: 1,
		Code: make([]byte, 0x0040+2),
		Symbols: []object.SymEntry{
			{Name: "F", Value: 0x0040, Class: object.Defined},
		},
	}

	l := New()
	l.AddObject(objA)
	l.AddObject(objB)
	wordsize, payload, err := l.Link()
	require.NoError(t, err)
	require.Equal(t, uint8(16), wordsize)

	bBase := uint16(0x2600) + uint16(len(objA.Code))
	wantF := bBase + 0x0040
	gotF := uint16(payload[2])<<8 | uint16(payload[3])
	require.Equal(t, wantF, gotF)
}

func TestDuplicateDefinitionIsFatal(t *testing.T) {
	objA := &object.File{
		Wordsize: 16, VMVersion: 1, Code: []byte{0, 0},
		Symbols: []object.SymEntry{{Name: "X", Class: object.Defined}},
	}
	objB := &object.File{
		Wordsize: 16, VMVersion: 1, Code: []byte{0, 0},
		Symbols: []object.SymEntry{{Name: "X", Class: object.Defined}},
	}
	l := New()
	l.AddObject(objA)
	l.AddObject(objB)
	_, _, err := l.Link()
	require.Error(t, err)
}

func TestUnresolvedSymbolIsFatal(t *testing.T) {
	obj := &object.File{
		Wordsize: 16, VMVersion: 1, Code: []byte{0, 0},
		Symbols:     []object.SymEntry{{Name: "missing", Class: object.Undefined}},
		Relocations: []object.RelEntry{{Address: 0, Name: "missing"}},
	}
	l := New()
	l.AddObject(obj)
	_, _, err := l.Link()
	require.Error(t, err)
}

func TestWordsizeMismatchIsFatal(t *testing.T) {
	l := New()
	l.AddObject(&object.File{Wordsize: 16, VMVersion: 1})
	l.AddObject(&object.File{Wordsize: 32, VMVersion: 1})
	_, _, err := l.Link()
	require.Error(t, err)
}

func TestNoneSentinelRelocatesAbsoluteAddress(t *testing.T) {
	obj := &object.File{
		Wordsize: 16, VMVersion: 1,
		Code:        []byte{0x00, 0x10}, // absolute value 0x0010 emitted verbatim
		Relocations: []object.RelEntry{{Address: 0, Name: object.NoneSymbol}},
	}
	l := New()
	l.AddObject(obj)
	_, payload, err := l.Link()
	require.NoError(t, err)
	got := uint16(payload[0])<<8 | uint16(payload[1])
	require.Equal(t, uint16(0x2600+0x0010), got)
}

func TestReservationOverflowIsFatal(t *testing.T) {
	obj := &object.File{
		Wordsize: 16, VMVersion: 1,
		Symbols: []object.SymEntry{
			{Name: "huge", Value: 0x0400, Class: object.Reserved}, // exceeds 0x03FF limit
		},
	}
	l := New()
	l.AddObject(obj)
	_, _, err := l.Link()
	require.Error(t, err)
}

func TestConstantSymbolAddressedAfterCode(t *testing.T) {
	obj := &object.File{
		Wordsize: 16, VMVersion: 1,
		Code: []byte{0x00, 0x00, 0x00, 0x00}, // references "greeting" at offset 0
		Symbols: []object.SymEntry{
			{Name: "greeting", Value: 0, Class: object.Constant},
		},
		Relocations: []object.RelEntry{{Address: 0, Name: "greeting"}},
		Data:        []object.DataEntry{{Name: "greeting", Bytes: []byte("hi")}},
	}
	l := New()
	l.AddObject(obj)
	_, payload, err := l.Link()
	require.NoError(t, err)
	got := uint16(payload[0])<<8 | uint16(payload[1])
	require.Equal(t, uint16(0x2600+len(obj.Code)), got)
}
