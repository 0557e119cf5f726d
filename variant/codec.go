package variant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/pkg/timestamp"
)

// StructuralError reports a malformed wire structure encountered while
// decoding, naming the target type that was being decoded. It unwraps to
// errors.ErrInvalidStructure so callers can classify it without inspecting
// the message.
type StructuralError struct {
	Target string
	Reason string
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	return fmt.Sprintf("invalid structure decoding %s: %s", e.Target, e.Reason)
}

// Unwrap returns the sentinel structural-decode error.
func (e *StructuralError) Unwrap() error {
	return errors.ErrInvalidStructure
}

func structural(target, format string, args ...any) error {
	return &StructuralError{Target: target, Reason: fmt.Sprintf(format, args...)}
}

// isJSONNull reports whether raw is the JSON literal null.
func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// envelope is the JSON wire form of a Variant. Field order here fixes the
// output order: Type, then Value, then ArrayDimensions.
type envelope struct {
	Type            Type            `json:"Type"`
	Value           json.RawMessage `json:"Value"`
	ArrayDimensions []int           `json:"ArrayDimensions,omitempty"`
}

// MarshalJSON encodes the variant into its self-describing wire envelope.
// Arrays are written as nested JSON arrays, recursing dimension by
// dimension; ArrayDimensions is omitted for scalars.
func (v Variant) MarshalJSON() ([]byte, error) {
	if v.IsNull() {
		return []byte(`{"Type":"Null","Value":null}`), nil
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	env := envelope{Type: v.Type}

	if v.IsArray() {
		elems := v.Value.([]any)
		raw, err := encodeArray(v.Type, v.ArrayDimensions, elems, 0, 0)
		if err != nil {
			return nil, err
		}
		env.Value = raw
		env.ArrayDimensions = v.ArrayDimensions
	} else {
		raw, err := encodeScalar(v.Type, v.Value)
		if err != nil {
			return nil, err
		}
		env.Value = raw
	}

	return json.Marshal(env)
}

// UnmarshalJSON decodes a wire envelope into the variant. The Type and Value
// fields are read order-independently. Type "Null" always yields the
// canonical null variant regardless of the Value content.
func (v *Variant) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return structural("Variant", "root is not a JSON object")
	}

	rawType, ok := fields["Type"]
	if !ok {
		return structural("Variant", "missing required field Type")
	}
	var t Type
	if err := json.Unmarshal(rawType, &t); err != nil {
		return structural("Variant", "Type is not a string")
	}
	if t == TypeNull {
		*v = Null
		return nil
	}
	if !t.IsValid() {
		return structural("Variant", "unknown type tag %q", string(t))
	}

	rawValue, ok := fields["Value"]
	if !ok || isJSONNull(rawValue) {
		*v = Null
		return nil
	}

	var dims []int
	if rawDims, ok := fields["ArrayDimensions"]; ok && !isJSONNull(rawDims) {
		if err := json.Unmarshal(rawDims, &dims); err != nil {
			return structural("Variant", "ArrayDimensions is not an integer array")
		}
	}

	if len(dims) == 0 {
		value, err := decodeScalar(t, rawValue)
		if err != nil {
			return err
		}
		*v = Variant{Type: t, Value: value}
		return nil
	}

	total := 1
	for _, d := range dims {
		if d < 0 {
			return structural("Variant", "negative array dimension %d", d)
		}
		total *= d
	}
	flat := make([]any, total)
	index := make([]int, len(dims))
	if err := decodeArray(t, dims, rawValue, index, 0, flat); err != nil {
		return err
	}
	*v = Variant{Type: t, Value: flat, ArrayDimensions: dims}
	return nil
}

// encodeArray writes one nesting level of an array variant. flat is the
// row-major element slice; offset is the position of this level's first
// element within it.
func encodeArray(t Type, dims []int, flat []any, depth, offset int) (json.RawMessage, error) {
	stride := 1
	for _, d := range dims[depth+1:] {
		stride *= d
	}

	parts := make([]json.RawMessage, dims[depth])
	for i := 0; i < dims[depth]; i++ {
		var raw json.RawMessage
		var err error
		if depth == len(dims)-1 {
			raw, err = encodeScalar(t, flat[offset+i])
		} else {
			raw, err = encodeArray(t, dims, flat, depth+1, offset+i*stride)
		}
		if err != nil {
			return nil, err
		}
		parts[i] = raw
	}

	var sb strings.Builder
	sb.WriteByte('[')
	for i, p := range parts {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.Write(p)
	}
	sb.WriteByte(']')
	return json.RawMessage(sb.String()), nil
}

// decodeArray reads one nesting level of an array value, tracking the index
// vector and filling the row-major flat slice. The nesting depth of the JSON
// value must equal the number of declared dimensions.
func decodeArray(t Type, dims []int, raw json.RawMessage, index []int, depth int, flat []any) error {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return structural(string(t)+" array", "expected nested array at depth %d", depth)
	}
	if len(items) != dims[depth] {
		return structural(string(t)+" array",
			"dimension %d has %d elements, declared %d", depth, len(items), dims[depth])
	}

	for i, item := range items {
		index[depth] = i
		if depth == len(dims)-1 {
			value, err := decodeScalar(t, item)
			if err != nil {
				return err
			}
			flat[flatIndex(dims, index)] = value
		} else if err := decodeArray(t, dims, item, index, depth+1, flat); err != nil {
			return err
		}
	}
	return nil
}

// flatIndex converts an index vector into a row-major offset.
func flatIndex(dims, index []int) int {
	offset := 0
	for i, idx := range index {
		offset = offset*dims[i] + idx
	}
	return offset
}

// encodeScalar writes one scalar value for the given type tag.
func encodeScalar(t Type, value any) (json.RawMessage, error) {
	if value == nil {
		return json.RawMessage("null"), nil
	}

	fail := func() (json.RawMessage, error) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("value %T does not match variant type %s", value, t),
			"Variant", "MarshalJSON", "scalar encoding")
	}

	switch t {
	case TypeBoolean:
		if v, ok := value.(bool); ok {
			return json.Marshal(v)
		}
	case TypeByte:
		if v, ok := value.(uint8); ok {
			return json.Marshal(v)
		}
	case TypeSByte:
		if v, ok := value.(int8); ok {
			return json.Marshal(v)
		}
	case TypeInt16:
		if v, ok := value.(int16); ok {
			return json.Marshal(v)
		}
	case TypeInt32:
		if v, ok := value.(int32); ok {
			return json.Marshal(v)
		}
	case TypeInt64:
		if v, ok := value.(int64); ok {
			return json.Marshal(v)
		}
	case TypeUInt16:
		if v, ok := value.(uint16); ok {
			return json.Marshal(v)
		}
	case TypeUInt32:
		if v, ok := value.(uint32); ok {
			return json.Marshal(v)
		}
	case TypeUInt64:
		if v, ok := value.(uint64); ok {
			return json.Marshal(v)
		}
	case TypeFloat:
		if v, ok := value.(float32); ok {
			return json.Marshal(v)
		}
	case TypeDouble:
		if v, ok := value.(float64); ok {
			return json.Marshal(v)
		}
	case TypeString:
		if v, ok := value.(string); ok {
			return json.Marshal(v)
		}
	case TypeDateTime:
		if v, ok := value.(time.Time); ok {
			return json.Marshal(v.UTC().Format(time.RFC3339Nano))
		}
	case TypeTimeSpan:
		if v, ok := value.(time.Duration); ok {
			return json.Marshal(v.String())
		}
	case TypeURL:
		if v, ok := value.(*url.URL); ok {
			if !v.IsAbs() {
				return nil, errors.WrapInvalid(
					fmt.Errorf("url %q is not absolute", v.String()),
					"Variant", "MarshalJSON", "url encoding")
			}
			return json.Marshal(v.String())
		}
	case TypeExtensionObject:
		if v, ok := value.(*EncodedObject); ok {
			return json.Marshal(v)
		}
	case TypeObject, TypeUnknown:
		if v, ok := value.(json.RawMessage); ok {
			return compact(v)
		}
		return json.Marshal(value)
	}
	return fail()
}

// decodeScalar reads one scalar value for the given type tag. The type tag
// drives decoding; a value of the wrong JSON shape fails with a structural
// error naming the target type.
func decodeScalar(t Type, raw json.RawMessage) (any, error) {
	switch t {
	case TypeBoolean:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, structural("Boolean", "expected JSON boolean")
		}
		return v, nil
	case TypeByte:
		var v uint8
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, structural("Byte", "expected number in [0,255]")
		}
		return v, nil
	case TypeSByte:
		var v int8
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, structural("SByte", "expected number in [-128,127]")
		}
		return v, nil
	case TypeInt16:
		var v int16
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, structural("Int16", "expected 16-bit signed number")
		}
		return v, nil
	case TypeInt32:
		var v int32
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, structural("Int32", "expected 32-bit signed number")
		}
		return v, nil
	case TypeInt64:
		var v int64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, structural("Int64", "expected 64-bit signed number")
		}
		return v, nil
	case TypeUInt16:
		var v uint16
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, structural("UInt16", "expected 16-bit unsigned number")
		}
		return v, nil
	case TypeUInt32:
		var v uint32
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, structural("UInt32", "expected 32-bit unsigned number")
		}
		return v, nil
	case TypeUInt64:
		var v uint64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, structural("UInt64", "expected 64-bit unsigned number")
		}
		return v, nil
	case TypeFloat:
		var v float32
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, structural("Float", "expected 32-bit float")
		}
		return v, nil
	case TypeDouble:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, structural("Double", "expected 64-bit float")
		}
		return v, nil
	case TypeString:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, structural("String", "expected JSON string")
		}
		return v, nil
	case TypeDateTime:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, structural("DateTime", "expected RFC 3339 string or epoch number")
		}
		ts, err := timestamp.Parse(v)
		if err != nil {
			return nil, structural("DateTime", "cannot parse %s as timestamp", string(raw))
		}
		return ts, nil
	case TypeTimeSpan:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, structural("TimeSpan", "expected duration string")
		}
		d, err := parseTimeSpan(s)
		if err != nil {
			return nil, structural("TimeSpan", "cannot parse %q as duration", s)
		}
		return d, nil
	case TypeURL:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, structural("Url", "expected absolute URI string")
		}
		u, err := url.Parse(s)
		if err != nil || !u.IsAbs() {
			return nil, structural("Url", "%q is not an absolute URI", s)
		}
		return u, nil
	case TypeExtensionObject:
		var obj EncodedObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		return &obj, nil
	case TypeObject, TypeUnknown:
		return compact(json.RawMessage(raw))
	}
	return nil, structural("Variant", "unknown type tag %q", string(t))
}

// parseTimeSpan accepts Go duration strings and, for compatibility with
// older producers, the clock-style forms "hh:mm:ss[.fffffff]" and
// "d.hh:mm:ss[.fffffff]" with an optional leading sign.
func parseTimeSpan(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	rest := s
	negative := false
	if strings.HasPrefix(rest, "-") {
		negative = true
		rest = rest[1:]
	}

	var days int64
	if dot := strings.Index(rest, "."); dot > 0 && dot < strings.Index(rest, ":") {
		d, err := strconv.ParseInt(rest[:dot], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid day component in %q", s)
		}
		days = d
		rest = rest[dot+1:]
	}

	var fraction time.Duration
	if dot := strings.LastIndex(rest, "."); dot >= 0 {
		frac := rest[dot+1:]
		if frac == "" || len(frac) > 9 {
			return 0, fmt.Errorf("invalid fractional seconds in %q", s)
		}
		n, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid fractional seconds in %q", s)
		}
		for i := len(frac); i < 9; i++ {
			n *= 10
		}
		fraction = time.Duration(n) * time.Nanosecond
		rest = rest[:dot]
	}

	parts := strings.Split(rest, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time span %q", s)
	}
	h, err1 := strconv.ParseInt(parts[0], 10, 64)
	m, err2 := strconv.ParseInt(parts[1], 10, 64)
	sec, err3 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, fmt.Errorf("invalid time span %q", s)
	}
	if m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("time span components out of range in %q", s)
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second +
		fraction
	if negative {
		d = -d
	}
	return d, nil
}

// compact normalizes raw JSON so that byte-level comparison of round-tripped
// Object payloads is stable.
func compact(raw json.RawMessage) (json.RawMessage, error) {
	var sb strings.Builder
	if err := compactJSON(&sb, raw); err != nil {
		return nil, structural("Object", "invalid JSON payload")
	}
	return json.RawMessage(sb.String()), nil
}

func compactJSON(sb *strings.Builder, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sb.Write(out)
	return nil
}
