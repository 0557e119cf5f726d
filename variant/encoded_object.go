package variant

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/c360/adapterkit/errors"
)

// EncodingJSON is the media type for JSON-encoded extension payloads. It is
// the only encoding the generic codec declares support for; adapters that
// need others carry them opaquely.
const EncodingJSON = "application/json"

// EncodedObject carries a payload the generic codec cannot interpret. The
// TypeId names an out-of-band schema as an absolute URI, Encoding is the
// media type of the body, and EncodedBody holds the raw encoded bytes.
//
// Wire form:
//
//	{"TypeId":"https://example.com/types/ping/","Encoding":"application/json","EncodedBody":"<base64url, unpadded>"}
type EncodedObject struct {
	TypeID      string
	Encoding    string
	EncodedBody []byte
}

// NewJSONEncodedObject encodes value as JSON and wraps it with the given
// type identifier.
func NewJSONEncodedObject(typeID string, value any) (*EncodedObject, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return nil, errors.WrapInvalid(err, "EncodedObject", "NewJSONEncodedObject", "payload encoding")
	}
	obj := &EncodedObject{
		TypeID:      typeID,
		Encoding:    EncodingJSON,
		EncodedBody: body,
	}
	if err := obj.Validate(); err != nil {
		return nil, err
	}
	return obj, nil
}

// DecodeJSON decodes the body into target. The object's encoding must be
// EncodingJSON.
func (o *EncodedObject) DecodeJSON(target any) error {
	if o.Encoding != EncodingJSON {
		return errors.WrapInvalid(
			fmt.Errorf("cannot decode %q body as JSON", o.Encoding),
			"EncodedObject", "DecodeJSON", "encoding check")
	}
	if err := json.Unmarshal(o.EncodedBody, target); err != nil {
		return errors.WrapInvalid(err, "EncodedObject", "DecodeJSON", "payload decoding")
	}
	return nil
}

// Validate checks that the type identifier is an absolute URI and an
// encoding is declared.
func (o *EncodedObject) Validate() error {
	u, err := url.Parse(o.TypeID)
	if err != nil || !u.IsAbs() {
		return errors.WrapInvalid(
			fmt.Errorf("type id %q is not an absolute URI", o.TypeID),
			"EncodedObject", "Validate", "type id check")
	}
	if o.Encoding == "" {
		return errors.WrapInvalid(
			fmt.Errorf("encoding is required"),
			"EncodedObject", "Validate", "encoding check")
	}
	return nil
}

// Equal reports whether two encoded objects carry the same type id,
// encoding, and body bytes.
func (o *EncodedObject) Equal(other *EncodedObject) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.TypeID == other.TypeID &&
		o.Encoding == other.Encoding &&
		bytes.Equal(o.EncodedBody, other.EncodedBody)
}

// encodedObjectWire is the JSON envelope for EncodedObject. The body is
// base64url without padding.
type encodedObjectWire struct {
	TypeID      string `json:"TypeId"`
	Encoding    string `json:"Encoding"`
	EncodedBody string `json:"EncodedBody"`
}

// MarshalJSON implements json.Marshaler.
func (o *EncodedObject) MarshalJSON() ([]byte, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(encodedObjectWire{
		TypeID:      o.TypeID,
		Encoding:    o.Encoding,
		EncodedBody: base64.RawURLEncoding.EncodeToString(o.EncodedBody),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *EncodedObject) UnmarshalJSON(data []byte) error {
	var wire encodedObjectWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return structural("EncodedObject", "expected JSON object envelope")
	}
	body, err := base64.RawURLEncoding.DecodeString(wire.EncodedBody)
	if err != nil {
		// Tolerate padded input from producers that use standard base64url.
		body, err = base64.URLEncoding.DecodeString(wire.EncodedBody)
		if err != nil {
			return structural("EncodedObject", "body is not valid base64url")
		}
	}
	o.TypeID = wire.TypeID
	o.Encoding = wire.Encoding
	o.EncodedBody = body
	return o.Validate()
}
