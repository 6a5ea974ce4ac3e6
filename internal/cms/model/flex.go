package model

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/Laisky/errors/v2"
)

type flexKind uint8

const (
	flexText flexKind = iota
	flexNumber
	flexBool
)

// FlexString is a string that also accepts JSON numbers and booleans.
//
// Admin forms submit values like fees and duration either as "25000" or 25000.
// The original token kind is kept, so 25000 is written back as a number.
type FlexString struct {
	value string
	kind  flexKind
}

// NewFlexString returns a FlexString written back as a JSON string.
func NewFlexString(s string) FlexString {
	return FlexString{value: s}
}

// FlexNumber returns a FlexString written back as a JSON number.
func FlexNumber(n json.Number) FlexString {
	return FlexString{value: n.String(), kind: flexNumber}
}

// String returns the plain string value.
func (s FlexString) String() string {
	return s.value
}

// IsNumber reports whether the value was given as a JSON number.
func (s FlexString) IsNumber() bool {
	return s.kind == flexNumber
}

// IsZero lets omitzero drop empty values.
func (s FlexString) IsZero() bool {
	return s.value == ""
}

// MarshalJSON implements json.Marshaler.
func (s FlexString) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case flexNumber, flexBool:
		return []byte(s.value), nil
	default:
		data, err := json.Marshal(s.value)
		return data, errors.WithStack(err)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*s = FlexString{}
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return errors.WithStack(err)
		}
		*s = NewFlexString(v)
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*s = FlexString{value: string(data), kind: flexBool}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.Wrapf(err, "expect string or number, got %s", data)
		}
		*s = FlexNumber(n)
	}

	return nil
}

// Int parses the value as an integer.
func (s FlexString) Int() (int64, bool) {
	n, err := strconv.ParseInt(s.value, 10, 64)
	return n, err == nil
}
