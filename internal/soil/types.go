// Package soil defines the closed set of soil categories the classifier
// predicts and the static crop recommendation catalog keyed by them.
package soil

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// ErrUnknownType is returned when a name or index does not map to a soil type.
var ErrUnknownType = errors.New("unknown soil type")

// Type identifies a soil category. The numeric value is the index of the
// category in the classifier's probability vector.
type Type int

const (
	Alluvial Type = iota
	Black
	Desert
	Red
)

var typeNames = [...]string{
	Alluvial: "Alluvial",
	Black:    "Black",
	Desert:   "Desert",
	Red:      "Red",
}

// Types returns every soil type in model output order. The returned slice is a
// fresh copy and may be modified by the caller.
func Types() []Type {
	out := make([]Type, len(typeNames))
	for i := range typeNames {
		out[i] = Type(i)
	}
	return out
}

// Count is the number of soil types, i.e. the expected classifier output length.
func Count() int { return len(typeNames) }

// Names returns the display names of all soil types in model output order.
func Names() []string {
	out := make([]string, len(typeNames))
	copy(out, typeNames[:])
	return out
}

// FromIndex maps a probability vector index to its soil type.
func FromIndex(i int) (Type, error) {
	if i < 0 || i >= len(typeNames) {
		return 0, fmt.Errorf("%w: index %d", ErrUnknownType, i)
	}
	return Type(i), nil
}

// Valid reports whether t is one of the enumerated soil types.
func (t Type) Valid() bool { return t >= 0 && int(t) < len(typeNames) }

// Index returns the position of t in the probability vector.
func (t Type) Index() int { return int(t) }

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType resolves a soil type by name, ignoring case and surrounding space.
func ParseType(name string) (Type, error) {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(name))
	for i, n := range typeNames {
		if fold.String(n) == want {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// MarshalText implements encoding.TextMarshaler so types serialize by name.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
