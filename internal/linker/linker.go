// Package linker implements the linker from spec §4.5: it merges a
// set of relocatable internal/object.File values, assigns final
// addresses, patches relocations, and emits a flat binary.
//
// The four-phase shape (resolve, layout, relocate, emit) and the
// linear per-object symbol scan are grounded on lang/yld/linker.go's
// Linker.link, adapted from that teacher's fixed little-endian
// LUI+ADI/JAL patch sequences to spec §4.5's simpler "write the
// resolved address big-endian at the relocation offset" rule, and
// from its single code+data address space to spec's two address
// spaces (a per-version program-region base for code+data, a
// separate per-version reserved-region base for @rs allocations).
package linker

import (
	"fmt"

	"github.com/gmofishsauce/sinc/internal/object"
)

// versionLayout describes the two base addresses and the reserved
// region's overflow limit for one VM version. Only version 1 is
// defined by spec §4.5; later versions would add entries here.
type versionLayout struct {
	ProgramBase   uint16
	ReservedBase  uint16
	ReservedLimit uint16
}

var layouts = map[uint8]versionLayout{
	1: {ProgramBase: 0x2600, ReservedBase: 0x0100, ReservedLimit: 0x03FF},
}

// Error is a linker diagnostic, matching spec §7's prefixed shape.
type Error struct{ Message string }

func (e *Error) Error() string { return fmt.Sprintf("** Linker Error: %s", e.Message) }

func errf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Linker merges object files in the order they're added.
type Linker struct {
	objects []*object.File
}

func New() *Linker { return &Linker{} }

func (l *Linker) AddObject(f *object.File) { l.objects = append(l.objects, f) }

type masterEntry struct {
	Value uint16
	Class object.SymClass
}

// Link runs all four phases and returns the flat binary payload
// (everything after the wordsize/totalSize header) along with the
// wordsize byte to use when writing it.
func (l *Linker) Link() (wordsize uint8, payload []byte, err error) {
	if len(l.objects) == 0 {
		return 0, nil, errf("no object files to link")
	}

	wordsize = l.objects[0].Wordsize
	vmVersion := l.objects[0].VMVersion
	for _, o := range l.objects[1:] {
		if o.Wordsize != wordsize {
			return 0, nil, errf("wordsize mismatch: %d vs %d", o.Wordsize, wordsize)
		}
		if o.VMVersion != vmVersion {
			return 0, nil, errf("VM version mismatch: %d vs %d", o.VMVersion, vmVersion)
		}
	}

	layout, ok := layouts[vmVersion]
	if !ok {
		return 0, nil, errf("unsupported VM version %d", vmVersion)
	}

	codeBase, err := l.layoutObjects(layout)
	if err != nil {
		return 0, nil, err
	}

	master, err := l.mergeSymbols(layout, codeBase)
	if err != nil {
		return 0, nil, err
	}

	if err := l.relocate(master, codeBase); err != nil {
		return 0, nil, err
	}

	return wordsize, l.emit(), nil
}

// layoutObjects assigns each object's code+data base address in the
// program region, in object order.
func (l *Linker) layoutObjects(layout versionLayout) ([]uint16, error) {
	bases := make([]uint16, len(l.objects))
	current := layout.ProgramBase
	for i, o := range l.objects {
		bases[i] = current
		current += uint16(len(o.Code)) + dataSize(o)
	}
	return bases, nil
}

func dataSize(o *object.File) uint16 {
	var n int
	for _, d := range o.Data {
		n += len(d.Bytes)
	}
	return uint16(n)
}

// mergeSymbols builds the master symbol table from every object's
// Defined, Reserved, Constant, and Macro entries (Undefined entries
// are placeholders for references, not definitions, and are skipped).
// Duplicate definitions are a fatal error: neither the first nor the
// last occurrence wins, the link fails at the second definition
// (matching lang/yld/linker.go's resolveSymbols, which rejects the
// second definition outright rather than silently preferring either).
func (l *Linker) mergeSymbols(layout versionLayout, codeBase []uint16) (map[string]masterEntry, error) {
	master := map[string]masterEntry{}
	reservedPtr := layout.ReservedBase

	for i, o := range l.objects {
		for _, sym := range o.Symbols {
			switch sym.Class {
			case object.Defined:
				if err := addMaster(master, sym.Name, codeBase[i]+sym.Value, object.Defined); err != nil {
					return nil, err
				}
			case object.Constant:
				addr := codeBase[i] + uint16(len(o.Code)) + sym.Value
				if err := addMaster(master, sym.Name, addr, object.Constant); err != nil {
					return nil, err
				}
			case object.Macro:
				if err := addMaster(master, sym.Name, sym.Value, object.Macro); err != nil {
					return nil, err
				}
			case object.Reserved:
				addr := reservedPtr
				reservedPtr += sym.Value
				if reservedPtr-1 > layout.ReservedLimit {
					return nil, errf("reservation overflow: %q exceeds reserved region limit 0x%04X", sym.Name, layout.ReservedLimit)
				}
				if err := addMaster(master, sym.Name, addr, object.Reserved); err != nil {
					return nil, err
				}
			}
		}
	}

	return master, nil
}

func addMaster(master map[string]masterEntry, name string, value uint16, class object.SymClass) error {
	if _, exists := master[name]; exists {
		return errf("duplicate definition of symbol %q", name)
	}
	master[name] = masterEntry{Value: value, Class: class}
	return nil
}

// relocate patches every object's code and data in place, per spec
// §4.5's resolution pass.
func (l *Linker) relocate(master map[string]masterEntry, codeBase []uint16) error {
	wordsizeBytes := int(l.objects[0].Wordsize) / 8

	for i, o := range l.objects {
		for _, r := range o.Relocations {
			if r.Name == object.NoneSymbol {
				if int(r.Address)+wordsizeBytes > len(o.Code) {
					return errf("relocation at 0x%04X out of bounds", r.Address)
				}
				existing := readBig(o.Code, int(r.Address), wordsizeBytes)
				writeBig(o.Code, int(r.Address), existing+uint64(codeBase[i]), wordsizeBytes)
				continue
			}
			entry, ok := master[r.Name]
			if !ok {
				return errf("unresolved symbol %q (referenced from object %d)", r.Name, i)
			}
			if int(r.Address)+wordsizeBytes > len(o.Code) {
				return errf("relocation at 0x%04X out of bounds", r.Address)
			}
			writeBig(o.Code, int(r.Address), uint64(entry.Value), wordsizeBytes)
		}
	}
	return nil
}

func readBig(buf []byte, offset, width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		v = v<<8 | uint64(buf[offset+i])
	}
	return v
}

func writeBig(buf []byte, offset int, v uint64, width int) {
	for i := width - 1; i >= 0; i-- {
		buf[offset+i] = byte(v)
		v >>= 8
	}
}

// emit concatenates every object's code-then-data sections in layout
// order into the final binary payload.
func (l *Linker) emit() []byte {
	var out []byte
	for _, o := range l.objects {
		out = append(out, o.Code...)
		for _, d := range o.Data {
			out = append(out, d.Bytes...)
		}
	}
	return out
}
