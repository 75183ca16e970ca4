// Package object implements the version-2 relocatable object file and
// flat-binary formats from spec §6.
//
// The teacher's lang/yld/reader.go decodes its WOF format by hand with
// encoding/binary field-by-field and manual bounds checks; lang/yasm/output.go
// writes the mirror image. This package follows the same shape -- no
// generic serialization library appears anywhere in the pack for this
// kind of fixed wire layout, so encoding/binary by hand is the
// ecosystem way here, not a stdlib fallback.
//
// Unlike the teacher's WOF (little-endian, fixed 8-byte table rows),
// this format is the spec's: big-endian throughout, length-prefixed
// names instead of a separate string table, and a trailing data table
// alongside the symbol and relocation tables.
package object

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const Magic = "sinC"

const FileVersion = 2

// SymClass is the symbol-class code stored in the symbol table.
type SymClass byte

const (
	Undefined SymClass = 1
	Defined   SymClass = 2
	Constant  SymClass = 3
	Reserved  SymClass = 4
	Macro     SymClass = 5
)

func (c SymClass) String() string {
	switch c {
	case Undefined:
		return "undefined"
	case Defined:
		return "defined"
	case Constant:
		return "constant"
	case Reserved:
		return "reserved"
	case Macro:
		return "macro"
	default:
		return fmt.Sprintf("SymClass(%d)", byte(c))
	}
}

// NoneSymbol is the relocation-table sentinel name meaning "patch an
// absolute address already present in the code by adding the object's
// base address", per spec §4.5.
const NoneSymbol = "_NONE"

type SymEntry struct {
	Value uint16
	Class SymClass
	Name  string
}

type RelEntry struct {
	Address uint16
	Name    string
}

type DataEntry struct {
	Name  string
	Bytes []byte
}

// File is a relocatable object, spec §3's "Object file".
type File struct {
	Wordsize    uint8 // 16, 32, or 64
	VMVersion   uint8
	Entry       uint16
	Code        []byte
	Symbols     []SymEntry
	Relocations []RelEntry
	Data        []DataEntry
}

// wordsizeBytes returns the operand width in bytes for f.Wordsize.
func (f *File) wordsizeBytes() int { return int(f.Wordsize) / 8 }

// Write serializes f to w in the version-2 wire format.
func (f *File) Write(w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.WriteByte(f.Wordsize)
	buf.Write([]byte{0, 0}) // endian, reserved
	buf.WriteByte(FileVersion)
	buf.WriteByte(f.VMVersion)
	binary.Write(&buf, binary.BigEndian, f.Entry)
	binary.Write(&buf, binary.BigEndian, uint32(len(f.Code)))

	binary.Write(&buf, binary.BigEndian, uint32(len(f.Symbols)))
	for _, s := range f.Symbols {
		binary.Write(&buf, binary.BigEndian, s.Value)
		buf.WriteByte(byte(s.Class))
		writeString(&buf, s.Name)
	}

	binary.Write(&buf, binary.BigEndian, uint32(len(f.Relocations)))
	for _, r := range f.Relocations {
		binary.Write(&buf, binary.BigEndian, r.Address)
		writeString(&buf, r.Name)
	}

	buf.Write(f.Code)

	binary.Write(&buf, binary.BigEndian, uint32(len(f.Data)))
	for _, d := range f.Data {
		binary.Write(&buf, binary.BigEndian, uint16(len(d.Bytes)))
		writeString(&buf, d.Name)
		buf.Write(d.Bytes)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.BigEndian, uint16(len(s)))
	buf.WriteString(s)
}

// Read parses a version-2 object file from r.
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading object file: %w", err)
	}

	br := bytes.NewReader(data)
	magic := make([]byte, 4)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("object file too short for magic")
	}
	if string(magic) != Magic {
		return nil, fmt.Errorf("bad magic %q (expected %q)", magic, Magic)
	}

	f := &File{}
	var endianReserved [2]byte
	var fileVer byte
	if err := readFields(br, &f.Wordsize, &endianReserved, &fileVer, &f.VMVersion, &f.Entry); err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	if fileVer != FileVersion {
		return nil, fmt.Errorf("unsupported object file version %d (want %d)", fileVer, FileVersion)
	}

	var codeSize uint32
	if err := binary.Read(br, binary.BigEndian, &codeSize); err != nil {
		return nil, fmt.Errorf("reading codeSize: %w", err)
	}

	var symCount uint32
	if err := binary.Read(br, binary.BigEndian, &symCount); err != nil {
		return nil, fmt.Errorf("reading symTabLen: %w", err)
	}
	f.Symbols = make([]SymEntry, symCount)
	for i := range f.Symbols {
		var value uint16
		var class byte
		if err := binary.Read(br, binary.BigEndian, &value); err != nil {
			return nil, fmt.Errorf("reading symbol %d value: %w", i, err)
		}
		if err := binary.Read(br, binary.BigEndian, &class); err != nil {
			return nil, fmt.Errorf("reading symbol %d class: %w", i, err)
		}
		name, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("reading symbol %d name: %w", i, err)
		}
		f.Symbols[i] = SymEntry{Value: value, Class: SymClass(class), Name: name}
	}

	var relCount uint32
	if err := binary.Read(br, binary.BigEndian, &relCount); err != nil {
		return nil, fmt.Errorf("reading relTabLen: %w", err)
	}
	f.Relocations = make([]RelEntry, relCount)
	for i := range f.Relocations {
		var addr uint16
		if err := binary.Read(br, binary.BigEndian, &addr); err != nil {
			return nil, fmt.Errorf("reading relocation %d address: %w", i, err)
		}
		name, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("reading relocation %d name: %w", i, err)
		}
		f.Relocations[i] = RelEntry{Address: addr, Name: name}
	}

	f.Code = make([]byte, codeSize)
	if _, err := io.ReadFull(br, f.Code); err != nil {
		return nil, fmt.Errorf("reading %d code bytes: %w", codeSize, err)
	}

	var dataCount uint32
	if err := binary.Read(br, binary.BigEndian, &dataCount); err != nil {
		return nil, fmt.Errorf("reading dataLen: %w", err)
	}
	f.Data = make([]DataEntry, dataCount)
	for i := range f.Data {
		var byteCount uint16
		if err := binary.Read(br, binary.BigEndian, &byteCount); err != nil {
			return nil, fmt.Errorf("reading data %d byteCount: %w", i, err)
		}
		name, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("reading data %d name: %w", i, err)
		}
		bs := make([]byte, byteCount)
		if _, err := io.ReadFull(br, bs); err != nil {
			return nil, fmt.Errorf("reading data %d bytes: %w", i, err)
		}
		f.Data[i] = DataEntry{Name: name, Bytes: bs}
	}

	return f, nil
}

func readFields(r io.Reader, fields ...any) error {
	for _, f := range fields {
		if err := binary.Read(r, binary.BigEndian, f); err != nil {
			return err
		}
	}
	return nil
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	bs := make([]byte, n)
	if _, err := io.ReadFull(r, bs); err != nil {
		return "", err
	}
	return string(bs), nil
}

// WriteFlat writes the final executable format: wordsize (1 byte),
// total size (4-byte big-endian word), then the bytes themselves.
func WriteFlat(w io.Writer, wordsize uint8, payload []byte) error {
	var buf bytes.Buffer
	buf.WriteByte(wordsize)
	binary.Write(&buf, binary.BigEndian, uint32(len(payload)))
	buf.Write(payload)
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadFlat parses the final executable format back out, for tests and
// for dsm/emul-style tools that load it.
func ReadFlat(r io.Reader) (wordsize uint8, payload []byte, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, nil, err
	}
	if len(data) < 5 {
		return 0, nil, fmt.Errorf("flat binary too short for header")
	}
	wordsize = data[0]
	size := binary.BigEndian.Uint32(data[1:5])
	if int(size) > len(data)-5 {
		return 0, nil, fmt.Errorf("flat binary truncated: header says %d bytes, have %d", size, len(data)-5)
	}
	return wordsize, data[5 : 5+size], nil
}
