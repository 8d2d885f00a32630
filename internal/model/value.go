package model

import (
	"encoding/json"
	"strconv"
)

// Value is a float64 that may be absent, e.g. a moving average that does
// not yet have enough history. The zero Value is absent.
type Value struct {
	V  float64
	OK bool
}

// Some returns a present Value.
func Some(v float64) Value {
	return Value{V: v, OK: true}
}

// Absent returns an empty Value.
func Absent() Value {
	return Value{}
}

// Get returns the value and whether it is present.
func (v Value) Get() (float64, bool) {
	return v.V, v.OK
}

// MarshalJSON encodes an absent Value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.OK {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.V, 'g', -1, 64), nil
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}
