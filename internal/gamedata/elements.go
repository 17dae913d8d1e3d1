package gamedata

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKey is returned when a table names an element, slot, ability type,
// effect kind or stacking policy the engine does not know.
var ErrUnknownKey = errors.New("unknown key")

// Element is one of the six essence categories. Elements govern the
// counter relationships used by the damage calculator and elemental_weakness.
type Element string

const (
	ElementInferno Element = "inferno"
	ElementVerdant Element = "verdant"
	ElementTempest Element = "tempest"
	ElementAbyssal Element = "abyssal"
	ElementUmbral  Element = "umbral"
	ElementRadiant Element = "radiant"
)

var allElements = []Element{
	ElementInferno,
	ElementVerdant,
	ElementTempest,
	ElementAbyssal,
	ElementUmbral,
	ElementRadiant,
}

// opposing pairs are symmetric.
var opposing = map[Element]Element{
	ElementInferno: ElementAbyssal,
	ElementAbyssal: ElementInferno,
	ElementVerdant: ElementTempest,
	ElementTempest: ElementVerdant,
	ElementUmbral:  ElementRadiant,
	ElementRadiant: ElementUmbral,
}

// beats is the advantage relation: the key deals advantaged damage to the value.
// inferno -> verdant -> tempest -> abyssal -> inferno, umbral <-> radiant.
var beats = map[Element]Element{
	ElementInferno: ElementVerdant,
	ElementVerdant: ElementTempest,
	ElementTempest: ElementAbyssal,
	ElementAbyssal: ElementInferno,
	ElementUmbral:  ElementRadiant,
	ElementRadiant: ElementUmbral,
}

var elementColors = map[Element]string{
	ElementInferno: "#EE4B2B",
	ElementVerdant: "#355E3B",
	ElementTempest: "#818589",
	ElementAbyssal: "#191970",
	ElementUmbral:  "#36454F",
	ElementRadiant: "#FFF8DC",
}

// Elements returns every element in a stable order.
func Elements() []Element {
	out := make([]Element, len(allElements))
	copy(out, allElements)
	return out
}

// ParseElement converts an external key into an Element (case-insensitive).
func ParseElement(s string) (Element, error) {
	e := Element(strings.ToLower(strings.TrimSpace(s)))
	if !e.Valid() {
		return "", fmt.Errorf("element %q: %w", s, ErrUnknownKey)
	}
	return e, nil
}

// Valid reports whether e is one of the six elements.
func (e Element) Valid() bool {
	_, ok := opposing[e]
	return ok
}

// Opposing returns the element on the other side of e's opposing pair.
func (e Element) Opposing() Element {
	return opposing[e]
}

// Beats reports whether e has the advantage over other.
func (e Element) Beats(other Element) bool {
	return e.Valid() && beats[e] == other
}

// Color returns the element's display color as a hex string.
func (e Element) Color() string {
	if c, ok := elementColors[e]; ok {
		return c
	}
	return "#FFFFFF"
}

// UnmarshalText rejects unknown element keys at load time.
func (e *Element) UnmarshalText(b []byte) error {
	parsed, err := ParseElement(string(b))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
