package variant

import (
	"fmt"
	"net/url"
	"time"

	"github.com/c360/adapterkit/errors"
)

// Type identifies the kind of value a Variant carries. The tag is written
// to the wire verbatim and drives decoding of scalars and of every array
// element.
type Type string

// The closed set of variant types.
const (
	TypeNull            Type = "Null"
	TypeBoolean         Type = "Boolean"
	TypeByte            Type = "Byte"
	TypeSByte           Type = "SByte"
	TypeInt16           Type = "Int16"
	TypeInt32           Type = "Int32"
	TypeInt64           Type = "Int64"
	TypeUInt16          Type = "UInt16"
	TypeUInt32          Type = "UInt32"
	TypeUInt64          Type = "UInt64"
	TypeFloat           Type = "Float"
	TypeDouble          Type = "Double"
	TypeString          Type = "String"
	TypeDateTime        Type = "DateTime"
	TypeTimeSpan        Type = "TimeSpan"
	TypeURL             Type = "Url"
	TypeExtensionObject Type = "ExtensionObject"
	TypeObject          Type = "Object"
	TypeUnknown         Type = "Unknown"
)

// IsValid reports whether t is one of the declared variant types.
func (t Type) IsValid() bool {
	switch t {
	case TypeNull, TypeBoolean, TypeByte, TypeSByte,
		TypeInt16, TypeInt32, TypeInt64,
		TypeUInt16, TypeUInt32, TypeUInt64,
		TypeFloat, TypeDouble, TypeString,
		TypeDateTime, TypeTimeSpan, TypeURL,
		TypeExtensionObject, TypeObject, TypeUnknown:
		return true
	}
	return false
}

// Variant is a dynamically-typed scalar or N-dimensional array value.
//
// For scalars, Value holds the Go representation for Type (see the table in
// the package documentation) and ArrayDimensions is nil. For arrays, Value
// holds a flat []any in row-major order and ArrayDimensions holds the extent
// of each axis; the product of all dimensions equals len(Value.([]any)).
type Variant struct {
	Type            Type
	Value           any
	ArrayDimensions []int
}

// Null is the canonical null Variant. Decoding any envelope with
// Type "Null" yields this value regardless of the envelope's Value field.
var Null = Variant{Type: TypeNull}

// IsNull reports whether the variant is the null variant.
func (v Variant) IsNull() bool {
	return v.Type == TypeNull || v.Type == ""
}

// IsArray reports whether the variant carries an array value.
func (v Variant) IsArray() bool {
	return len(v.ArrayDimensions) > 0
}

// ElementCount returns the total number of elements for an array variant,
// or 1 for a scalar. The count is the product of all array dimensions.
func (v Variant) ElementCount() int {
	if !v.IsArray() {
		return 1
	}
	n := 1
	for _, d := range v.ArrayDimensions {
		n *= d
	}
	return n
}

// Validate checks the variant's internal consistency: a known type tag,
// dimensions present iff the value is an array, and a row-major element
// slice whose length equals the product of the dimensions.
func (v Variant) Validate() error {
	if !v.IsNull() && !v.Type.IsValid() {
		return errors.WrapInvalid(
			fmt.Errorf("unknown variant type %q", string(v.Type)),
			"Variant", "Validate", "type check")
	}
	if !v.IsArray() {
		return nil
	}
	elems, ok := v.Value.([]any)
	if !ok {
		return errors.WrapInvalid(
			fmt.Errorf("array variant value must be []any, got %T", v.Value),
			"Variant", "Validate", "array value check")
	}
	want := 1
	for _, d := range v.ArrayDimensions {
		if d < 0 {
			return errors.WrapInvalid(
				fmt.Errorf("negative array dimension %d", d),
				"Variant", "Validate", "dimension check")
		}
		want *= d
	}
	if len(elems) != want {
		return errors.WrapInvalid(
			fmt.Errorf("array has %d elements, dimensions require %d", len(elems), want),
			"Variant", "Validate", "element count check")
	}
	return nil
}

// Scalar constructors. Each returns a scalar variant with the matching tag.

// NewBoolean returns a Boolean variant.
func NewBoolean(value bool) Variant { return Variant{Type: TypeBoolean, Value: value} }

// NewByte returns a Byte variant.
func NewByte(value uint8) Variant { return Variant{Type: TypeByte, Value: value} }

// NewSByte returns an SByte variant.
func NewSByte(value int8) Variant { return Variant{Type: TypeSByte, Value: value} }

// NewInt16 returns an Int16 variant.
func NewInt16(value int16) Variant { return Variant{Type: TypeInt16, Value: value} }

// NewInt32 returns an Int32 variant.
func NewInt32(value int32) Variant { return Variant{Type: TypeInt32, Value: value} }

// NewInt64 returns an Int64 variant.
func NewInt64(value int64) Variant { return Variant{Type: TypeInt64, Value: value} }

// NewUInt16 returns a UInt16 variant.
func NewUInt16(value uint16) Variant { return Variant{Type: TypeUInt16, Value: value} }

// NewUInt32 returns a UInt32 variant.
func NewUInt32(value uint32) Variant { return Variant{Type: TypeUInt32, Value: value} }

// NewUInt64 returns a UInt64 variant.
func NewUInt64(value uint64) Variant { return Variant{Type: TypeUInt64, Value: value} }

// NewFloat returns a Float (32-bit) variant.
func NewFloat(value float32) Variant { return Variant{Type: TypeFloat, Value: value} }

// NewDouble returns a Double (64-bit) variant.
func NewDouble(value float64) Variant { return Variant{Type: TypeDouble, Value: value} }

// NewString returns a String variant.
func NewString(value string) Variant { return Variant{Type: TypeString, Value: value} }

// NewDateTime returns a DateTime variant. The timestamp is normalized to UTC
// so that round trips through the wire form compare equal.
func NewDateTime(value time.Time) Variant {
	return Variant{Type: TypeDateTime, Value: value.UTC()}
}

// NewTimeSpan returns a TimeSpan variant.
func NewTimeSpan(value time.Duration) Variant { return Variant{Type: TypeTimeSpan, Value: value} }

// NewURL returns a Url variant. The URL must be absolute; relative URLs fail
// validation at encode time.
func NewURL(value *url.URL) Variant { return Variant{Type: TypeURL, Value: value} }

// NewExtensionObject returns an ExtensionObject variant carrying an opaque
// encoded payload.
func NewExtensionObject(value *EncodedObject) Variant {
	return Variant{Type: TypeExtensionObject, Value: value}
}

// NewArray returns an array variant of the given element type. elements must
// be in row-major order and its length must equal the product of dims.
func NewArray(elementType Type, dims []int, elements []any) (Variant, error) {
	v := Variant{
		Type:            elementType,
		Value:           elements,
		ArrayDimensions: dims,
	}
	if err := v.Validate(); err != nil {
		return Null, err
	}
	return v, nil
}

// New infers a variant from a native Go value. Supported inputs are the
// scalar kinds, time.Time, time.Duration, *url.URL, *EncodedObject, and
// one-dimensional slices of those. Unrecognized values yield an error;
// callers that need rank-N arrays use NewArray.
func New(value any) (Variant, error) {
	switch val := value.(type) {
	case nil:
		return Null, nil
	case Variant:
		return val, nil
	case bool:
		return NewBoolean(val), nil
	case uint8:
		return NewByte(val), nil
	case int8:
		return NewSByte(val), nil
	case int16:
		return NewInt16(val), nil
	case int32:
		return NewInt32(val), nil
	case int:
		return NewInt64(int64(val)), nil
	case int64:
		return NewInt64(val), nil
	case uint16:
		return NewUInt16(val), nil
	case uint32:
		return NewUInt32(val), nil
	case uint64:
		return NewUInt64(val), nil
	case float32:
		return NewFloat(val), nil
	case float64:
		return NewDouble(val), nil
	case string:
		return NewString(val), nil
	case time.Time:
		return NewDateTime(val), nil
	case time.Duration:
		return NewTimeSpan(val), nil
	case *url.URL:
		return NewURL(val), nil
	case *EncodedObject:
		return NewExtensionObject(val), nil
	}

	if elemType, elems, ok := sliceElements(value); ok {
		return NewArray(elemType, []int{len(elems)}, elems)
	}

	return Null, errors.WrapInvalid(
		fmt.Errorf("cannot infer variant type for %T", value),
		"Variant", "New", "type inference")
}

// sliceElements converts a supported one-dimensional slice into its element
// type tag and a row-major []any.
func sliceElements(value any) (Type, []any, bool) {
	switch vals := value.(type) {
	case []bool:
		return TypeBoolean, toAny(vals), true
	case []int8:
		return TypeSByte, toAny(vals), true
	case []int16:
		return TypeInt16, toAny(vals), true
	case []int32:
		return TypeInt32, toAny(vals), true
	case []int64:
		return TypeInt64, toAny(vals), true
	case []uint16:
		return TypeUInt16, toAny(vals), true
	case []uint32:
		return TypeUInt32, toAny(vals), true
	case []uint64:
		return TypeUInt64, toAny(vals), true
	case []float32:
		return TypeFloat, toAny(vals), true
	case []float64:
		return TypeDouble, toAny(vals), true
	case []string:
		return TypeString, toAny(vals), true
	case []time.Duration:
		return TypeTimeSpan, toAny(vals), true
	case []time.Time:
		elems := make([]any, len(vals))
		for i, t := range vals {
			elems[i] = t.UTC()
		}
		return TypeDateTime, elems, true
	}
	return TypeUnknown, nil, false
}

func toAny[T any](vals []T) []any {
	elems := make([]any, len(vals))
	for i, v := range vals {
		elems[i] = v
	}
	return elems
}

// As extracts the scalar value of a variant as type T. It returns false when
// the variant is an array, null, or holds a different Go type.
func As[T any](v Variant) (T, bool) {
	var zero T
	if v.IsNull() || v.IsArray() {
		return zero, false
	}
	val, ok := v.Value.(T)
	return val, ok
}

// Elements extracts the row-major element slice of an array variant as []T.
// It returns false when the variant is not an array or any element has a
// different Go type.
func Elements[T any](v Variant) ([]T, bool) {
	if !v.IsArray() {
		return nil, false
	}
	raw, ok := v.Value.([]any)
	if !ok {
		return nil, false
	}
	out := make([]T, len(raw))
	for i, e := range raw {
		val, ok := e.(T)
		if !ok {
			return nil, false
		}
		out[i] = val
	}
	return out, true
}
