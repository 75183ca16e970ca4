package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntDefaultsToSigned(t *testing.T) {
	ty, err := NewPrimitive(Int)
	require.NoError(t, err)
	require.True(t, ty.Quals.Has(Signed))
	require.False(t, ty.Quals.Has(Unsigned))
}

func TestStringAlwaysDynamic(t *testing.T) {
	ty, err := NewPrimitive(String)
	require.NoError(t, err)
	require.True(t, ty.Quals.Has(Dynamic))
}

func TestSignedUnsignedOnlyOnInt(t *testing.T) {
	_, err := NewPrimitive(Float, Signed)
	require.Error(t, err)
}

func TestQualitySetIdempotent(t *testing.T) {
	qs := NewQualitySet(Const, Const, Static)
	require.True(t, qs.Has(Const))
	require.True(t, qs.Has(Static))
	require.Equal(t, qs, qs.Add(Const))
}

func TestPointerRequiresSubtype(t *testing.T) {
	_, err := NewPointer(Invalid, "")
	require.Error(t, err)

	p, err := NewPointer(Int, "")
	require.NoError(t, err)
	require.Equal(t, Ptr, p.Primary)
	require.Equal(t, Int, p.Subtype)
}

func TestArrayRejectsArrayAndStructSubtype(t *testing.T) {
	_, err := NewArray(Array, 4)
	require.Error(t, err)

	_, err = NewArray(Struct, 4)
	require.Error(t, err)

	a, err := NewArray(Int, 4)
	require.NoError(t, err)
	require.Equal(t, 4, a.ArrayLen)
}

// TestCompatibilityReflexiveSymmetric checks testable property 2 from the
// spec: Compatible is reflexive and symmetric, and raw is compatible with
// everything.
func TestCompatibilityReflexiveSymmetric(t *testing.T) {
	intTy, _ := NewPrimitive(Int)
	floatTy, _ := NewPrimitive(Float)
	rawTy, _ := NewPrimitive(Raw)
	ptrInt, _ := NewPointer(Int, "")
	ptrFloat, _ := NewPointer(Float, "")

	cases := []Type{intTy, floatTy, rawTy, ptrInt, ptrFloat}
	for _, ty := range cases {
		require.True(t, Compatible(ty, ty), "reflexive: %v", ty)
	}

	pairs := [][2]Type{
		{intTy, floatTy},
		{intTy, rawTy},
		{ptrInt, ptrFloat},
		{ptrInt, rawTy},
	}
	for _, p := range pairs {
		require.Equal(t, Compatible(p[0], p[1]), Compatible(p[1], p[0]), "symmetric: %v <-> %v", p[0], p[1])
	}

	require.True(t, Compatible(rawTy, floatTy))
	require.True(t, Compatible(intTy, rawTy))
}

func TestCompatiblePointersRequireCompatibleElements(t *testing.T) {
	ptrInt, _ := NewPointer(Int, "")
	ptrFloat, _ := NewPointer(Float, "")
	require.False(t, Compatible(ptrInt, ptrFloat))

	ptrInt2, _ := NewPointer(Int, "")
	require.True(t, Compatible(ptrInt, ptrInt2))
}

func TestCompatibleArrayUnwrapsToElement(t *testing.T) {
	arrInt, _ := NewArray(Int, 3)
	intTy, _ := NewPrimitive(Int)
	require.True(t, Compatible(arrInt, intTy))
	require.True(t, Compatible(intTy, arrInt))
}

func TestStructSizeAndAlignment(t *testing.T) {
	structs := StructRegistry{
		"Point": {Name: "Point", Size: 4, Align: 2},
	}
	st := NewStruct("Point")
	require.Equal(t, 4, st.Size(structs))
	require.Equal(t, 2, st.Alignment(structs))

	missing := NewStruct("Nope")
	require.Equal(t, -1, missing.Size(structs))
}

func TestArraySize(t *testing.T) {
	arr, err := NewArray(Int, 5)
	require.NoError(t, err)
	require.Equal(t, 10, arr.Size(nil))
}
