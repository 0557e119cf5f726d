package adapter

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/c360/adapterkit/errors"
)

// WriteStatus is the canonical outcome of one written value. Older
// producers emitted a numeric status code instead of the name; that form is
// accepted on decode purely as a migration concern and is never written.
type WriteStatus int

// Write statuses.
const (
	WriteStatusUnknown WriteStatus = iota
	WriteStatusPending
	WriteStatusSuccess
	WriteStatusFail
)

// String returns the string representation of WriteStatus.
func (ws WriteStatus) String() string {
	switch ws {
	case WriteStatusPending:
		return "pending"
	case WriteStatusSuccess:
		return "success"
	case WriteStatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalJSON writes the canonical string form.
func (ws WriteStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(ws.String())
}

// UnmarshalJSON accepts the canonical string form and, for compatibility,
// the legacy numeric code (0 unknown, 1 pending, 2 success, 3 fail).
func (ws *WriteStatus) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "unknown":
			*ws = WriteStatusUnknown
		case "pending":
			*ws = WriteStatusPending
		case "success":
			*ws = WriteStatusSuccess
		case "fail":
			*ws = WriteStatusFail
		default:
			return errors.WrapInvalid(
				fmt.Errorf("unknown write status %q", s),
				"WriteStatus", "UnmarshalJSON", "status parsing")
		}
		return nil
	}

	code, err := strconv.Atoi(string(data))
	if err != nil || code < int(WriteStatusUnknown) || code > int(WriteStatusFail) {
		return errors.WrapInvalid(
			fmt.Errorf("invalid write status %s", string(data)),
			"WriteStatus", "UnmarshalJSON", "status parsing")
	}
	*ws = WriteStatus(code)
	return nil
}

// WriteResult acknowledges one accepted write item.
type WriteResult struct {
	TagID  string      `json:"tag_id"`
	Status WriteStatus `json:"status"`
	Notes  string      `json:"notes,omitempty"`
}
