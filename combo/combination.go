package combo

import "strings"

// Combination is the set of keys that must be held together to engage.
// Control and Shift refer to the left-hand keys, matching what the
// low-level hooks report for the common modifier keys.
type Combination struct {
	Control bool
	Shift   bool
	Tab     bool
	Space   bool
	Key     Key // Extra key, KeyNone when unset
}

// IsEmpty reports whether the combination requires no keys at all.
// An empty combination never matches.
func (c Combination) IsEmpty() bool {
	return !c.Control && !c.Shift && !c.Tab && !c.Space && c.Key == KeyNone
}

// Normalize folds an extra key that duplicates one of the flag keys into
// the flag, so a combination is always expressed the same way
func (c Combination) Normalize() Combination {
	switch c.Key {
	case KeyLeftControl:
		c.Control = true
	case KeyLeftShift:
		c.Shift = true
	case KeyTab:
		c.Tab = true
	case KeySpace:
		c.Space = true
	default:
		return c
	}
	c.Key = KeyNone
	return c
}

// SatisfiedBy reports whether every required key is held in t
func (c Combination) SatisfiedBy(t *Tracker) bool {
	if c.IsEmpty() {
		return false
	}
	return (!c.Control || t.IsPressed(KeyLeftControl)) &&
		(!c.Shift || t.IsPressed(KeyLeftShift)) &&
		(!c.Tab || t.IsPressed(KeyTab)) &&
		(!c.Space || t.IsPressed(KeySpace)) &&
		(c.Key == KeyNone || t.IsPressed(c.Key))
}

// Keys lists the required keys in a stable order
func (c Combination) Keys() []Key {
	keys := make([]Key, 0, 5)
	if c.Control {
		keys = append(keys, KeyLeftControl)
	}
	if c.Shift {
		keys = append(keys, KeyLeftShift)
	}
	if c.Tab {
		keys = append(keys, KeyTab)
	}
	if c.Space {
		keys = append(keys, KeySpace)
	}
	if c.Key != KeyNone {
		keys = append(keys, c.Key)
	}
	return keys
}

// String renders the combination like "Ctrl+Shift+F1"
func (c Combination) String() string {
	if c.IsEmpty() {
		return "None"
	}
	var parts []string
	if c.Control {
		parts = append(parts, "Ctrl")
	}
	if c.Shift {
		parts = append(parts, "Shift")
	}
	if c.Tab {
		parts = append(parts, "Tab")
	}
	if c.Space {
		parts = append(parts, "Space")
	}
	if c.Key != KeyNone {
		parts = append(parts, c.Key.String())
	}
	return strings.Join(parts, "+")
}
