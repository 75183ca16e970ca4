// Package types implements the SIN-C type system: a primary type tag, an
// optional subtype (for pointers and arrays), an array length, and a set
// of qualities (const, static, dynamic, signed, unsigned).
//
// This mirrors original_source/EnumeratedTypes.h's Type enum and
// original_source/compile/Allocate.cpp's invariant checks, generalized
// from the C++ enum-plus-free-function style into a Go value type with
// constructors that enforce the invariants at construction time instead
// of leaving them to be checked ad hoc by the compiler.
package types

import "fmt"

// Tag is the primary (or sub-) type tag.
type Tag int

const (
	Invalid Tag = iota
	Int
	Float
	Bool
	String
	Void
	Ptr
	Raw
	Array
	Struct
)

func (t Tag) String() string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Void:
		return "void"
	case Ptr:
		return "ptr"
	case Raw:
		return "raw"
	case Array:
		return "array"
	case Struct:
		return "struct"
	default:
		return "<invalid>"
	}
}

// Quality is one bit of a QualitySet.
type Quality int

const (
	Const Quality = 1 << iota
	Static
	Dynamic
	Signed
	Unsigned
)

// QualitySet is a bitset of Quality flags. Adding the same quality twice
// is idempotent by construction (it's just a bitwise OR).
type QualitySet int

func NewQualitySet(quals ...Quality) QualitySet {
	var qs QualitySet
	for _, q := range quals {
		qs = qs.Add(q)
	}
	return qs
}

func (qs QualitySet) Add(q Quality) QualitySet { return qs | QualitySet(q) }
func (qs QualitySet) Has(q Quality) bool       { return qs&QualitySet(q) != 0 }

func (qs QualitySet) String() string {
	s := ""
	add := func(name string, q Quality) {
		if qs.Has(q) {
			if s != "" {
				s += " "
			}
			s += name
		}
	}
	add("const", Const)
	add("static", Static)
	add("dynamic", Dynamic)
	add("signed", Signed)
	add("unsigned", Unsigned)
	if s == "" {
		return "<no quality>"
	}
	return s
}

// Type is a complete type descriptor.
type Type struct {
	Primary  Tag
	Subtype  Tag // valid only when Primary is Ptr or Array
	ArrayLen int // nonzero only when Primary is Array
	Quals    QualitySet

	// StructName names the struct this type refers to, when Primary or
	// Subtype is Struct (e.g. a ptr<struct> subtype). Structs are looked
	// up via a StructRegistry, not embedded, so Type stays a small value.
	StructName string
}

// NewPrimitive builds a scalar/void/raw/string type with the given
// qualities. int without an explicit Signed/Unsigned quality defaults to
// signed, per spec: "a type with no explicit signedness defaults to
// signed for int". string is always dynamic, also per spec.
func NewPrimitive(primary Tag, quals ...Quality) (Type, error) {
	switch primary {
	case Int, Float, Bool, String, Void, Raw:
	default:
		return Type{}, fmt.Errorf("NewPrimitive: %s is not a primitive tag", primary)
	}
	qs := NewQualitySet(quals...)
	if primary != Int && (qs.Has(Signed) || qs.Has(Unsigned)) {
		return Type{}, fmt.Errorf("signed/unsigned only applies to int, not %s", primary)
	}
	if primary == Int && !qs.Has(Signed) && !qs.Has(Unsigned) {
		qs = qs.Add(Signed)
	}
	if primary == String {
		qs = qs.Add(Dynamic)
	}
	return Type{Primary: primary, Quals: qs}, nil
}

// NewPointer builds a pointer type. ptr requires a defined subtype.
func NewPointer(subtype Tag, structName string, quals ...Quality) (Type, error) {
	if subtype == Invalid {
		return Type{}, fmt.Errorf("ptr requires a defined subtype")
	}
	return Type{Primary: Ptr, Subtype: subtype, StructName: structName, Quals: NewQualitySet(quals...)}, nil
}

// NewArray builds an array type. array requires a defined subtype, and
// per spec may not have array or struct as its subtype -- only pointer
// subtypes permit indirection to aggregates.
func NewArray(subtype Tag, length int, quals ...Quality) (Type, error) {
	if subtype == Invalid {
		return Type{}, fmt.Errorf("array requires a defined subtype")
	}
	if subtype == Array || subtype == Struct {
		return Type{}, fmt.Errorf("arrays may not contain other arrays nor structs (only pointers to such members)")
	}
	if length <= 0 {
		return Type{}, fmt.Errorf("array length must be positive")
	}
	return Type{Primary: Array, Subtype: subtype, ArrayLen: length, Quals: NewQualitySet(quals...)}, nil
}

// NewStruct builds a named struct type.
func NewStruct(name string, quals ...Quality) Type {
	return Type{Primary: Struct, StructName: name, Quals: NewQualitySet(quals...)}
}

// Equal is structural equality.
func (t Type) Equal(o Type) bool {
	if t.Primary != o.Primary {
		return false
	}
	switch t.Primary {
	case Ptr:
		if t.Subtype != o.Subtype {
			return false
		}
		if t.Subtype == Struct {
			return t.StructName == o.StructName
		}
		return true
	case Array:
		return t.Subtype == o.Subtype && t.ArrayLen == o.ArrayLen
	case Struct:
		return t.StructName == o.StructName
	default:
		return true
	}
}

func (t Type) NotEqual(o Type) bool { return !t.Equal(o) }

// unwrapArray returns the element type of an array type, leaving any
// other type unchanged. Used by Compatible to "unwrap an outer array to
// its element type on one side", per spec.
func (t Type) unwrapArray() Type {
	if t.Primary == Array {
		return Type{Primary: t.Subtype, StructName: t.StructName}
	}
	return t
}

// Compatible implements spec's compatibility rule: raw is compatible with
// everything; pointer/array types are compatible if their element types
// are compatible; otherwise primaries must match after unwrapping an
// outer array to its element type on one side.
func Compatible(a, b Type) bool {
	if a.Primary == Raw || b.Primary == Raw {
		return true
	}
	if a.Primary == Ptr && b.Primary == Ptr {
		return compatibleElem(a.Subtype, a.StructName, b.Subtype, b.StructName)
	}
	if a.Primary == Array && b.Primary == Array {
		return compatibleElem(a.Subtype, a.StructName, b.Subtype, b.StructName)
	}
	au, bu := a.unwrapArray(), b.unwrapArray()
	if au.Primary != bu.Primary {
		return false
	}
	if au.Primary == Struct {
		return au.StructName == bu.StructName
	}
	return true
}

func compatibleElem(aSub Tag, aName string, bSub Tag, bName string) bool {
	if aSub == Raw || bSub == Raw {
		return true
	}
	if aSub != bSub {
		return false
	}
	if aSub == Struct {
		return aName == bName
	}
	return true
}

// StructDef describes a struct's layout, used for Size/Alignment lookups.
type StructDef struct {
	Name   string
	Fields []FieldDef
	Size   int
	Align  int
}

type FieldDef struct {
	Name     string
	Type     Type
	ArrayLen int
	Offset   int
}

// StructRegistry maps struct name to its layout, mirroring
// lang/yparse/symtab.go's SymbolTable.Structs map.
type StructRegistry map[string]*StructDef

// Size returns the size in bytes of t, or -1 if it cannot be determined
// (an unregistered struct name).
func (t Type) Size(structs StructRegistry) int {
	switch t.Primary {
	case Void:
		return 0
	case Bool:
		return 1
	case Int, Float:
		return 2
	case String, Ptr:
		return 2 // one word: a string's heap address, or a pointer's address
	case Array:
		elem := Type{Primary: t.Subtype, StructName: t.StructName}
		es := elem.Size(structs)
		if es < 0 {
			return -1
		}
		return es * t.ArrayLen
	case Struct:
		if structs == nil {
			return -1
		}
		if def, ok := structs[t.StructName]; ok {
			return def.Size
		}
		return -1
	case Raw:
		return 2
	default:
		return -1
	}
}

// Alignment returns the alignment requirement in bytes.
func (t Type) Alignment(structs StructRegistry) int {
	switch t.Primary {
	case Bool:
		return 1
	case Struct:
		if structs == nil {
			return 2
		}
		if def, ok := structs[t.StructName]; ok {
			return def.Align
		}
		return 2
	case Array:
		elem := Type{Primary: t.Subtype, StructName: t.StructName}
		return elem.Alignment(structs)
	default:
		return 2
	}
}

func (t Type) String() string {
	switch t.Primary {
	case Ptr:
		if t.Subtype == Struct {
			return "ptr<" + t.StructName + ">"
		}
		return "ptr<" + t.Subtype.String() + ">"
	case Array:
		return fmt.Sprintf("array<%s>[%d]", t.Subtype, t.ArrayLen)
	case Struct:
		return t.StructName
	default:
		return t.Primary.String()
	}
}

// IsIntegral reports whether t is int (signed or unsigned).
func (t Type) IsIntegral() bool { return t.Primary == Int }

// IsPointer reports whether t is a pointer type.
func (t Type) IsPointer() bool { return t.Primary == Ptr }

// IsSigned reports whether t is a signed int. Only meaningful for Int.
func (t Type) IsSigned() bool { return t.Primary == Int && t.Quals.Has(Signed) }
