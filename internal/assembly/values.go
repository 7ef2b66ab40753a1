package assembly

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var jsonNull = []byte("null")

// Text is a string leaf that may be absent or null in a report.
type Text struct {
	Value string
	Valid bool
}

// NewText returns a present Text.
func NewText(s string) Text { return Text{Value: s, Valid: true} }

func (t *Text) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), jsonNull) {
		*t = Text{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// scalars that are not strings are kept in their JSON spelling
		t.Value, t.Valid = string(bytes.TrimSpace(b)), true
		return nil
	}
	t.Value, t.Valid = s, true
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return jsonNull, nil
	}
	return json.Marshal(t.Value)
}

func (t Text) String() string {
	if !t.Valid {
		return ""
	}
	return t.Value
}

// Or returns t when it is present and non-empty, otherwise other.
func (t Text) Or(other Text) Text {
	if t.Valid && t.Value != "" {
		return t
	}
	return other
}

// Flag is a nullable boolean. Its text form is True/False to match the
// spreadsheet exports the tool replaces.
type Flag struct {
	Value bool
	Valid bool
}

// NewFlag returns a present Flag.
func NewFlag(v bool) Flag { return Flag{Value: v, Valid: true} }

// UnmarshalJSON accepts JSON booleans and their string spellings. Any other
// shape reads as null.
func (f *Flag) UnmarshalJSON(b []byte) error {
	*f = Flag{}
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = Flag{Value: v, Valid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			*f = Flag{Value: v, Valid: true}
		}
	}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return jsonNull, nil
	}
	return json.Marshal(f.Value)
}

func (f Flag) String() string {
	switch {
	case !f.Valid:
		return ""
	case f.Value:
		return "True"
	default:
		return "False"
	}
}

// Number is a numeric leaf. The Datasets API sends 64-bit counts as JSON
// strings and everything else as JSON numbers, so both spellings are accepted
// and the original text is kept for output. A leaf of any other shape is kept
// as its JSON text but takes no part in arithmetic.
type Number struct {
	raw     string
	quoted  bool
	present bool
	valid   bool
}

// NewNumber returns a present Number holding v.
func NewNumber(v float64) Number {
	return Number{raw: strconv.FormatFloat(v, 'f', -1, 64), present: true, valid: true}
}

// NewInt returns a present Number holding v.
func NewInt(v int64) Number {
	return Number{raw: strconv.FormatInt(v, 10), present: true, valid: true}
}

// UnmarshalJSON never fails on a well-formed JSON value.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*n = Number{}
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		return nil
	}
	if !json.Valid(b) {
		// not JSON at all; keep the text so it still marshals as a string
		*n = Number{raw: string(b), quoted: true, present: true, valid: finite(string(b))}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		*n = Number{raw: s, quoted: true, present: true, valid: finite(s)}
		return nil
	}
	if b[0] == '-' || (b[0] >= '0' && b[0] <= '9') {
		*n = Number{raw: string(b), present: true, valid: finite(string(b))}
		return nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, b); err != nil {
		return nil
	}
	*n = Number{raw: compact.String(), present: true}
	return nil
}

func finite(s string) bool {
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// MarshalJSON writes the value back in the spelling it was read in: quoted
// text stays a JSON string, numbers and other shapes are emitted as read.
func (n Number) MarshalJSON() ([]byte, error) {
	switch {
	case !n.present:
		return jsonNull, nil
	case n.quoted:
		return json.Marshal(n.raw)
	default:
		return []byte(n.raw), nil
	}
}

// Valid reports whether the leaf holds a finite number.
func (n Number) Valid() bool { return n.valid }

// Present reports whether the leaf was there at all, numeric or not.
func (n Number) Present() bool { return n.present }

func (n Number) String() string { return n.raw }

// Float returns the value, or 0 when absent or not numeric.
func (n Number) Float() float64 {
	if !n.valid {
		return 0
	}
	v, _ := strconv.ParseFloat(n.raw, 64)
	return v
}

// Int coerces the value to an integer. Integer text converts directly; a
// fractional JSON number is truncated; fractional text is an error.
func (n Number) Int() (int64, error) {
	if !n.present {
		return 0, nil
	}
	if !n.valid {
		return 0, fmt.Errorf("assembly: %s is not a number", n.raw)
	}
	if v, err := strconv.ParseInt(n.raw, 10, 64); err == nil {
		return v, nil
	}
	if n.quoted {
		return 0, fmt.Errorf("assembly: %q is not an integer", n.raw)
	}
	v, _ := strconv.ParseFloat(n.raw, 64)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("assembly: %q is not an integer", n.raw)
	}
	return int64(v), nil
}

// Notes holds free-form notes whose JSON shape varies between a string and a
// list of strings. Only its lower-cased text is ever inspected.
type Notes json.RawMessage

func (n *Notes) UnmarshalJSON(b []byte) error {
	*n = append((*n)[:0], b...)
	return nil
}

func (n Notes) MarshalJSON() ([]byte, error) {
	if len(n) == 0 {
		return jsonNull, nil
	}
	return []byte(n), nil
}

// Mentions reports whether word occurs in the notes, ignoring case.
func (n Notes) Mentions(word string) bool {
	if len(n) == 0 {
		return false
	}
	return strings.Contains(strings.ToLower(string(n)), strings.ToLower(word))
}

// Scale divides v by unit and rounds to two decimals.
func Scale(v, unit float64) float64 {
	return math.Round(v/unit*100) / 100
}
