package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ID is a store-assigned record identifier. Documents mirrored through the
// cloud store may carry identifiers as JSON numbers or as strings (older
// clients stored stringified keys), so both forms decode to the same value.
type ID int64

// UnmarshalJSON accepts numeric and string-encoded identifiers. Unparseable
// values decode to zero instead of failing the whole document.
func (id *ID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` || s == "" {
		*id = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			*id = 0
			return nil
		}
		s = strings.TrimSpace(str)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			*id = 0
			return nil
		}
		n = int64(f)
	}
	*id = ID(n)
	return nil
}

// String returns the canonical string form used as the remote document key.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID converts a remote document key back to an ID. Returns false for
// keys that do not parse as integers.
func ParseID(s string) (ID, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return ID(n), true
}

// Number is a float64 that tolerates sloppy JSON encodings. Amounts written
// by other clients occasionally arrive as quoted numbers or empty strings;
// anything unparseable decodes to zero so a malformed field never rejects a
// record.
type Number float64

// UnmarshalJSON decodes numbers, quoted numbers and null. Everything else
// becomes zero.
func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` || s == "" {
		*n = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			*n = 0
			return nil
		}
		s = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}
