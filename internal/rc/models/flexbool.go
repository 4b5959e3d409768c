package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	dErrors "rctrack/pkg/domain-errors"
)

// FlexBool decodes the boolean-like values browser forms send for status flags:
// JSON booleans, the numbers 0 and 1, and the strings accepted by ParseFlexBool.
// Use *FlexBool in request structs so an absent or null value leaves the flag alone.
type FlexBool bool

// Bool returns the decoded value.
func (b FlexBool) Bool() bool { return bool(b) }

// Ptr converts an optional FlexBool into an optional bool.
func (b *FlexBool) Ptr() *bool {
	if b == nil {
		return nil
	}
	v := bool(*b)
	return &v
}

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	switch {
	case string(data) == "true":
		*b = true
		return nil
	case string(data) == "false":
		*b = false
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return malformedStatus()
		}
		v, err := ParseFlexBool(s)
		if err != nil {
			return err
		}
		*b = FlexBool(v)
		return nil
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return malformedStatus()
		}
		switch n {
		case 0:
			*b = false
		case 1:
			*b = true
		default:
			return malformedStatus()
		}
		return nil
	}
}

// ParseFlexBool coerces a textual flag value, case-insensitively.
func ParseFlexBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, malformedStatus()
	}
}

func malformedStatus() error {
	return dErrors.NewWithReason(dErrors.CodeValidation, ReasonMalformedStatus, "status flags must be true or false")
}
