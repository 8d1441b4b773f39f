package combo

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies a physical or logical keyboard key across platforms
type Key uint32

// rawKeyBase marks keys that have no name and carry a platform code instead
const rawKeyBase Key = 0x10000

const (
	KeyNone Key = iota

	// Modifiers
	KeyLeftControl
	KeyRightControl
	KeyLeftShift
	KeyRightShift
	KeyLeftAlt
	KeyRightAlt
	KeyLeftWin
	KeyRightWin

	// Whitespace and editing
	KeyTab
	KeySpace
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyCapsLock
	KeyInsert
	KeyDelete
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown

	// Arrows
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight

	// Letters
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ

	// Digits
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9

	// Function keys
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyF13
	KeyF14
	KeyF15
	KeyF16
	KeyF17
	KeyF18
	KeyF19
	KeyF20
	KeyF21
	KeyF22
	KeyF23
	KeyF24

	keyCount
)

var keyNames = [keyCount]string{
	KeyNone:         "None",
	KeyLeftControl:  "LeftCtrl",
	KeyRightControl: "RightCtrl",
	KeyLeftShift:    "LeftShift",
	KeyRightShift:   "RightShift",
	KeyLeftAlt:      "LeftAlt",
	KeyRightAlt:     "RightAlt",
	KeyLeftWin:      "LWin",
	KeyRightWin:     "RWin",
	KeyTab:          "Tab",
	KeySpace:        "Space",
	KeyEnter:        "Enter",
	KeyEscape:       "Escape",
	KeyBackspace:    "Back",
	KeyCapsLock:     "CapsLock",
	KeyInsert:       "Insert",
	KeyDelete:       "Delete",
	KeyHome:         "Home",
	KeyEnd:          "End",
	KeyPageUp:       "PageUp",
	KeyPageDown:     "PageDown",
	KeyArrowUp:      "Up",
	KeyArrowDown:    "Down",
	KeyArrowLeft:    "Left",
	KeyArrowRight:   "Right",
}

// keyAliases are extra spellings accepted by ParseKey
var keyAliases = map[string]Key{
	"ctrl":        KeyLeftControl,
	"control":     KeyLeftControl,
	"leftcontrol": KeyLeftControl,
	"lctrl":       KeyLeftControl,
	"rctrl":       KeyRightControl,
	"shift":       KeyLeftShift,
	"lshift":      KeyLeftShift,
	"rshift":      KeyRightShift,
	"alt":         KeyLeftAlt,
	"win":         KeyLeftWin,
	"esc":         KeyEscape,
	"return":      KeyEnter,
	"backspace":   KeyBackspace,
	"capital":     KeyCapsLock,
	"del":         KeyDelete,
	"pgup":        KeyPageUp,
	"pgdn":        KeyPageDown,
	"next":        KeyPageDown,
	"prior":       KeyPageUp,
}

var keyByName map[string]Key

func init() {
	for k := KeyA; k <= KeyZ; k++ {
		keyNames[k] = string(rune('A' + int(k-KeyA)))
	}
	for k := Key0; k <= Key9; k++ {
		keyNames[k] = "D" + strconv.Itoa(int(k-Key0))
	}
	for k := KeyF1; k <= KeyF24; k++ {
		keyNames[k] = "F" + strconv.Itoa(int(k-KeyF1)+1)
	}

	keyByName = make(map[string]Key, len(keyNames)+len(keyAliases)+10)
	for k, name := range keyNames {
		keyByName[strings.ToLower(name)] = Key(k)
	}
	for alias, k := range keyAliases {
		keyByName[alias] = k
	}
	// Bare digits are accepted alongside the D0..D9 names
	for k := Key0; k <= Key9; k++ {
		keyByName[strconv.Itoa(int(k-Key0))] = k
	}
}

// RawKey returns the identifier for an unnamed platform key code
func RawKey(code uint16) Key {
	return rawKeyBase + Key(code)
}

// IsRaw reports whether k carries an unnamed platform code
func (k Key) IsRaw() bool {
	return k >= rawKeyBase
}

// String returns the key name understood by ParseKey
func (k Key) String() string {
	if k < keyCount {
		return keyNames[k]
	}
	if k.IsRaw() {
		return fmt.Sprintf("Raw%d", uint32(k-rawKeyBase))
	}
	return fmt.Sprintf("Key(%d)", uint32(k))
}

// ParseKey parses a key name like "F1", "Space" or "None" (case-insensitive)
func ParseKey(name string) (Key, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return KeyNone, nil
	}

	if k, ok := keyByName[name]; ok {
		return k, nil
	}

	if rest, ok := strings.CutPrefix(name, "raw"); ok {
		code, err := strconv.ParseUint(rest, 10, 16)
		if err == nil {
			return RawKey(uint16(code)), nil
		}
	}

	return KeyNone, fmt.Errorf("unknown key: %s", name)
}
