package object

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	f := &File{
		Wordsize:  16,
		VMVersion: 1,
		Entry:     0x2600,
		Code:      []byte{0x10, 0x00, 0x00, 0x2A},
		Symbols: []SymEntry{
			{Value: 0x0000, Class: Defined, Name: "start"},
			{Value: 0x0000, Class: Undefined, Name: "F"},
		},
		Relocations: []RelEntry{
			{Address: 2, Name: NoneSymbol},
			{Address: 6, Name: "F"},
		},
		Data: []DataEntry{
			{Name: "msg", Bytes: []byte("ab")},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, f.Wordsize, got.Wordsize)
	require.Equal(t, f.VMVersion, got.VMVersion)
	require.Equal(t, f.Entry, got.Entry)
	require.Equal(t, f.Code, got.Code)
	require.Equal(t, f.Symbols, got.Symbols)
	require.Equal(t, f.Relocations, got.Relocations)
	require.Equal(t, f.Data, got.Data)
}

func TestReadRejectsBadMagic(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("nope")))
	require.Error(t, err)
}

func TestReadRejectsWrongVersion(t *testing.T) {
	f := &File{Wordsize: 16, VMVersion: 1}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	raw := buf.Bytes()
	// fileVer is the byte right after magic(4)+wordsize(1)+endian(2).
	raw[7] = 99
	_, err := Read(bytes.NewReader(raw))
	require.Error(t, err)
}

func TestFlatBinaryRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	require.NoError(t, WriteFlat(&buf, 16, payload))

	wordsize, got, err := ReadFlat(&buf)
	require.NoError(t, err)
	require.Equal(t, uint8(16), wordsize)
	require.Equal(t, payload, got)
}
