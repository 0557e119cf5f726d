package variant

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodedObject_RoundTrip(t *testing.T) {
	obj, err := NewJSONEncodedObject("https://example.com/types/sample/", map[string]any{
		"tag":   "pump-1",
		"value": 17.5,
	})
	require.NoError(t, err)

	data, err := json.Marshal(obj)
	require.NoError(t, err)

	var decoded EncodedObject
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, obj.Equal(&decoded))

	var payload map[string]any
	require.NoError(t, decoded.DecodeJSON(&payload))
	assert.Equal(t, "pump-1", payload["tag"])
}

func TestEncodedObject_WireFormat(t *testing.T) {
	obj := &EncodedObject{
		TypeID:      "https://example.com/types/raw/",
		Encoding:    EncodingJSON,
		EncodedBody: []byte(`{"x":1}`),
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)

	var wire map[string]string
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "https://example.com/types/raw/", wire["TypeId"])
	assert.Equal(t, EncodingJSON, wire["Encoding"])

	// Body must be base64url without padding.
	assert.NotContains(t, wire["EncodedBody"], "=")
	body, err := base64.RawURLEncoding.DecodeString(wire["EncodedBody"])
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(body))
}

func TestEncodedObject_AcceptsPaddedBody(t *testing.T) {
	padded := base64.URLEncoding.EncodeToString([]byte(`{"x":1}`))
	require.True(t, strings.Contains(padded, "="), "test needs a padded body")

	input := `{"TypeId":"https://example.com/types/raw/","Encoding":"application/json","EncodedBody":"` + padded + `"}`
	var decoded EncodedObject
	require.NoError(t, json.Unmarshal([]byte(input), &decoded))
	assert.Equal(t, `{"x":1}`, string(decoded.EncodedBody))
}

func TestEncodedObject_Validate(t *testing.T) {
	tests := []struct {
		name string
		obj  EncodedObject
	}{
		{"relative type id", EncodedObject{TypeID: "/types/raw/", Encoding: EncodingJSON}},
		{"empty type id", EncodedObject{Encoding: EncodingJSON}},
		{"missing encoding", EncodedObject{TypeID: "https://example.com/types/raw/"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Error(t, test.obj.Validate())
		})
	}
}

func TestEncodedObject_DecodeJSON_WrongEncoding(t *testing.T) {
	obj := &EncodedObject{
		TypeID:      "https://example.com/types/raw/",
		Encoding:    "application/cbor",
		EncodedBody: []byte{0x01},
	}
	var target any
	assert.Error(t, obj.DecodeJSON(&target))
}
