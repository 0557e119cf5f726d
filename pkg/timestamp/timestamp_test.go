package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	ref := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    any
		expected time.Time
	}{
		{"rfc3339", "2024-03-15T12:30:00Z", ref},
		{"rfc3339 with offset", "2024-03-15T14:30:00+02:00", ref},
		{"rfc3339 nano", "2024-03-15T12:30:00.5Z", ref.Add(500 * time.Millisecond)},
		{"epoch seconds number", float64(ref.Unix()), ref},
		{"epoch millis number", float64(ref.UnixMilli()), ref},
		{"epoch seconds string", "1710505800", ref},
		{"epoch millis string", "1710505800000", ref},
		{"time value", ref.In(time.FixedZone("x", 3600)), ref},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Parse(test.input)
			require.NoError(t, err)
			assert.True(t, test.expected.Equal(got), "expected %s, got %s", test.expected, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	t.Run("rejects garbage", func(t *testing.T) {
		for _, input := range []any{"", "not a time", true, []string{"x"}} {
			_, err := Parse(input)
			assert.Error(t, err, "input %v", input)
		}
	})
}

func TestFromEpoch(t *testing.T) {
	ref := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	assert.True(t, ref.Equal(FromEpoch(float64(ref.Unix()))))
	assert.True(t, ref.Equal(FromEpoch(float64(ref.UnixMilli()))))

	// Fractional seconds survive.
	got := FromEpoch(float64(ref.Unix()) + 0.25)
	assert.Equal(t, ref.Add(250*time.Millisecond).UnixNano(), got.UnixNano())
}

func TestFormat(t *testing.T) {
	ref := time.Date(2024, 3, 15, 12, 30, 0, 0, time.FixedZone("x", 7200))
	assert.Equal(t, "2024-03-15T10:30:00Z", Format(ref))
}
