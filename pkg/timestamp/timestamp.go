// Package timestamp parses the timestamp shapes industrial producers
// actually send. RFC 3339 is the canonical wire form; epoch seconds and
// epoch milliseconds appear from older gateways and are accepted on
// decode only.
package timestamp

import (
	"fmt"
	"strconv"
	"time"
)

// epochMsThreshold separates epoch-second from epoch-millisecond values.
// Anything above it (~Sep 2001 in milliseconds) is taken as milliseconds.
const epochMsThreshold = 1e12

// Parse converts a decoded JSON value to a UTC time.Time. Strings are
// tried as RFC 3339 first, then as numeric epoch values; json.Number and
// float64 are treated as epoch values directly.
func Parse(input any) (time.Time, error) {
	switch v := input.(type) {
	case string:
		if v == "" {
			return time.Time{}, fmt.Errorf("empty timestamp")
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t.UTC(), nil
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return FromEpoch(n), nil
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as timestamp", v)

	case float64:
		return FromEpoch(v), nil

	case int64:
		return FromEpoch(float64(v)), nil

	case int:
		return FromEpoch(float64(v)), nil

	case time.Time:
		return v.UTC(), nil

	default:
		return time.Time{}, fmt.Errorf("cannot parse %T as timestamp", input)
	}
}

// FromEpoch converts an epoch value to a UTC time.Time, treating large
// magnitudes as milliseconds and the rest as seconds.
func FromEpoch(v float64) time.Time {
	if v > epochMsThreshold || v < -epochMsThreshold {
		return time.UnixMilli(int64(v)).UTC()
	}
	sec := int64(v)
	nsec := int64((v - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

// Format renders a time in the canonical RFC 3339 wire form.
func Format(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
