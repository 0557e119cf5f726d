package variant

import (
	"encoding/json"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kiterrors "github.com/c360/adapterkit/errors"
)

func roundTrip(t *testing.T, v Variant) Variant {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)

	var decoded Variant
	require.NoError(t, json.Unmarshal(data, &decoded))
	return decoded
}

func TestRoundTrip_Scalars(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	u, _ := url.Parse("https://example.com/features/ping/")

	tests := []struct {
		name string
		v    Variant
	}{
		{"boolean true", NewBoolean(true)},
		{"boolean false", NewBoolean(false)},
		{"byte zero", NewByte(0)},
		{"byte max", NewByte(math.MaxUint8)},
		{"sbyte min", NewSByte(math.MinInt8)},
		{"sbyte max", NewSByte(math.MaxInt8)},
		{"int16 min", NewInt16(math.MinInt16)},
		{"int16 max", NewInt16(math.MaxInt16)},
		{"int32 min", NewInt32(math.MinInt32)},
		{"int32 max", NewInt32(math.MaxInt32)},
		{"int64 min", NewInt64(math.MinInt64)},
		{"int64 max", NewInt64(math.MaxInt64)},
		{"int64 negative", NewInt64(-42)},
		{"uint16 max", NewUInt16(math.MaxUint16)},
		{"uint32 max", NewUInt32(math.MaxUint32)},
		{"uint64 max", NewUInt64(math.MaxUint64)},
		{"float", NewFloat(3.25)},
		{"float negative", NewFloat(-0.5)},
		{"double", NewDouble(2.718281828459045)},
		{"double zero", NewDouble(0)},
		{"string empty", NewString("")},
		{"string", NewString("hello, world")},
		{"datetime", NewDateTime(ts)},
		{"timespan", NewTimeSpan(90*time.Minute + 30*time.Second)},
		{"timespan negative", NewTimeSpan(-time.Second)},
		{"timespan zero", NewTimeSpan(0)},
		{"url", NewURL(u)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			decoded := roundTrip(t, test.v)
			assert.Equal(t, test.v, decoded)
		})
	}
}

func TestRoundTrip_Arrays(t *testing.T) {
	t.Run("1d int32", func(t *testing.T) {
		v, err := NewArray(TypeInt32, []int{4}, []any{int32(1), int32(-2), int32(3), int32(-4)})
		require.NoError(t, err)
		decoded := roundTrip(t, v)
		assert.Equal(t, v, decoded)
	})

	t.Run("2d double", func(t *testing.T) {
		v, err := NewArray(TypeDouble, []int{2, 3},
			[]any{1.0, 2.0, 3.0, 4.0, 5.0, 6.0})
		require.NoError(t, err)

		data, err := json.Marshal(v)
		require.NoError(t, err)
		assert.JSONEq(t,
			`{"Type":"Double","Value":[[1,2,3],[4,5,6]],"ArrayDimensions":[2,3]}`,
			string(data))

		decoded := roundTrip(t, v)
		assert.Equal(t, v, decoded)
	})

	t.Run("3d string", func(t *testing.T) {
		elems := make([]any, 8)
		for i := range elems {
			elems[i] = string(rune('a' + i))
		}
		v, err := NewArray(TypeString, []int{2, 2, 2}, elems)
		require.NoError(t, err)
		decoded := roundTrip(t, v)
		assert.Equal(t, v, decoded)
	})

	t.Run("empty 1d", func(t *testing.T) {
		v, err := NewArray(TypeString, []int{0}, []any{})
		require.NoError(t, err)
		decoded := roundTrip(t, v)
		assert.Equal(t, []int{0}, decoded.ArrayDimensions)
		assert.Equal(t, 0, decoded.ElementCount())
	})
}

func TestArrayShape(t *testing.T) {
	// Extent along each axis survives a round trip and the element count
	// is the product of all dimensions.
	dims := []int{3, 4, 2}
	elems := make([]any, 24)
	for i := range elems {
		elems[i] = int64(i)
	}
	v, err := NewArray(TypeInt64, dims, elems)
	require.NoError(t, err)

	decoded := roundTrip(t, v)
	assert.Equal(t, dims, decoded.ArrayDimensions)
	assert.Equal(t, 24, decoded.ElementCount())

	// Row-major order is preserved.
	got, ok := Elements[int64](decoded)
	require.True(t, ok)
	for i, e := range got {
		assert.Equal(t, int64(i), e)
	}
}

func TestNullInvariant(t *testing.T) {
	t.Run("encode null", func(t *testing.T) {
		data, err := json.Marshal(Null)
		require.NoError(t, err)
		assert.JSONEq(t, `{"Type":"Null","Value":null}`, string(data))
	})

	t.Run("decode null ignores value", func(t *testing.T) {
		inputs := []string{
			`{"Type":"Null","Value":null}`,
			`{"Type":"Null","Value":42}`,
			`{"Type":"Null","Value":"anything","ArrayDimensions":[2]}`,
			`{"Type":"Null"}`,
		}
		for _, input := range inputs {
			var v Variant
			require.NoError(t, json.Unmarshal([]byte(input), &v), input)
			assert.Equal(t, Null, v, input)
		}
	})

	t.Run("missing value yields null", func(t *testing.T) {
		var v Variant
		require.NoError(t, json.Unmarshal([]byte(`{"Type":"Double"}`), &v))
		assert.True(t, v.IsNull())
	})
}

func TestDecode_FieldOrderIndependent(t *testing.T) {
	var a, b Variant
	require.NoError(t, json.Unmarshal([]byte(`{"Type":"Int32","Value":7}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"Value":7,"Type":"Int32"}`), &b))
	assert.Equal(t, a, b)
}

func TestDecode_StructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"non-object root", `[1,2,3]`},
		{"missing type", `{"Value":42}`},
		{"type not a string", `{"Type":42,"Value":1}`},
		{"unknown type tag", `{"Type":"Quaternion","Value":1}`},
		{"scalar where array declared", `{"Type":"Int32","Value":5,"ArrayDimensions":[2]}`},
		{"inconsistent nesting", `{"Type":"Int32","Value":[1,2],"ArrayDimensions":[2,2]}`},
		{"short inner dimension", `{"Type":"Int32","Value":[[1,2],[3]],"ArrayDimensions":[2,2]}`},
		{"value type mismatch", `{"Type":"Boolean","Value":"yes"}`},
		{"bad datetime", `{"Type":"DateTime","Value":"not a date"}`},
		{"relative url", `{"Type":"Url","Value":"/relative/path"}`},
		{"byte overflow", `{"Type":"Byte","Value":300}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var v Variant
			err := json.Unmarshal([]byte(test.input), &v)
			require.Error(t, err)
			assert.ErrorIs(t, err, kiterrors.ErrInvalidStructure)
		})
	}
}

func TestDecode_StructuralErrorNamesTarget(t *testing.T) {
	var v Variant
	err := json.Unmarshal([]byte(`{"Type":"Int32","Value":"oops"}`), &v)
	require.Error(t, err)

	var se *StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Int32", se.Target)
}

func TestDecode_DateTimeCompatibility(t *testing.T) {
	ref := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
	}{
		{"epoch seconds", `{"Type":"DateTime","Value":1710505800}`},
		{"epoch millis", `{"Type":"DateTime","Value":1710505800000}`},
		{"epoch string", `{"Type":"DateTime","Value":"1710505800"}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var v Variant
			require.NoError(t, json.Unmarshal([]byte(test.input), &v))
			got, ok := v.Value.(time.Time)
			require.True(t, ok)
			assert.True(t, ref.Equal(got), "expected %s, got %s", ref, got)
		})
	}
}

func TestParseTimeSpan_Compatibility(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
	}{
		{"1h30m", 90 * time.Minute},
		{"00:00:30", 30 * time.Second},
		{"01:30:00", 90 * time.Minute},
		{"1.02:00:00", 26 * time.Hour},
		{"-00:00:01", -time.Second},
		{"00:00:00.5", 500 * time.Millisecond},
		{"00:00:01.2500000", time.Second + 250*time.Millisecond},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			d, err := parseTimeSpan(test.input)
			require.NoError(t, err)
			assert.Equal(t, test.expected, d)
		})
	}

	t.Run("rejects garbage", func(t *testing.T) {
		for _, bad := range []string{"", "abc", "1:2", "00:99:00"} {
			_, err := parseTimeSpan(bad)
			assert.Error(t, err, bad)
		}
	})
}

func TestRoundTrip_Object(t *testing.T) {
	raw := json.RawMessage(`{"a":1,"b":"two"}`)
	compacted, err := compact(raw)
	require.NoError(t, err)

	v := Variant{Type: TypeObject, Value: compacted}
	decoded := roundTrip(t, v)
	assert.Equal(t, v, decoded)
}

func TestRoundTrip_ExtensionObject(t *testing.T) {
	obj, err := NewJSONEncodedObject("https://example.com/types/ping/", map[string]any{
		"message": "hello",
	})
	require.NoError(t, err)

	v := NewExtensionObject(obj)
	decoded := roundTrip(t, v)

	got, ok := As[*EncodedObject](decoded)
	require.True(t, ok)
	assert.True(t, obj.Equal(got))
}
