package platform

import "markestedt/sonarkey/combo"

// Windows virtual key codes
var virtualKeys = map[uint32]combo.Key{
	0x08: combo.KeyBackspace,
	0x09: combo.KeyTab,
	0x0D: combo.KeyEnter,
	0x10: combo.KeyLeftShift, // VK_SHIFT, only seen from synthetic input
	0x11: combo.KeyLeftControl,
	0x12: combo.KeyLeftAlt,
	0x14: combo.KeyCapsLock,
	0x1B: combo.KeyEscape,
	0x20: combo.KeySpace,
	0x21: combo.KeyPageUp,
	0x22: combo.KeyPageDown,
	0x23: combo.KeyEnd,
	0x24: combo.KeyHome,
	0x25: combo.KeyArrowLeft,
	0x26: combo.KeyArrowUp,
	0x27: combo.KeyArrowRight,
	0x28: combo.KeyArrowDown,
	0x2D: combo.KeyInsert,
	0x2E: combo.KeyDelete,
	0x5B: combo.KeyLeftWin,
	0x5C: combo.KeyRightWin,
	0xA0: combo.KeyLeftShift,
	0xA1: combo.KeyRightShift,
	0xA2: combo.KeyLeftControl,
	0xA3: combo.KeyRightControl,
	0xA4: combo.KeyLeftAlt,
	0xA5: combo.KeyRightAlt,
}

// Linux evdev key codes
var evdevKeys = map[uint16]combo.Key{
	1:   combo.KeyEscape,
	14:  combo.KeyBackspace,
	15:  combo.KeyTab,
	28:  combo.KeyEnter,
	29:  combo.KeyLeftControl,
	42:  combo.KeyLeftShift,
	54:  combo.KeyRightShift,
	56:  combo.KeyLeftAlt,
	57:  combo.KeySpace,
	58:  combo.KeyCapsLock,
	97:  combo.KeyRightControl,
	100: combo.KeyRightAlt,
	102: combo.KeyHome,
	103: combo.KeyArrowUp,
	104: combo.KeyPageUp,
	105: combo.KeyArrowLeft,
	106: combo.KeyArrowRight,
	107: combo.KeyEnd,
	108: combo.KeyArrowDown,
	109: combo.KeyPageDown,
	110: combo.KeyInsert,
	111: combo.KeyDelete,
	125: combo.KeyLeftWin,
	126: combo.KeyRightWin,
}

func init() {
	for k := combo.KeyA; k <= combo.KeyZ; k++ {
		virtualKeys[0x41+uint32(k-combo.KeyA)] = k
	}
	for k := combo.Key0; k <= combo.Key9; k++ {
		virtualKeys[0x30+uint32(k-combo.Key0)] = k
	}
	for k := combo.KeyF1; k <= combo.KeyF24; k++ {
		virtualKeys[0x70+uint32(k-combo.KeyF1)] = k
	}

	// evdev follows the physical QWERTY rows
	rows := []struct {
		first uint16
		keys  string
	}{
		{16, "QWERTYUIOP"},
		{30, "ASDFGHJKL"},
		{44, "ZXCVBNM"},
	}
	for _, row := range rows {
		for i, r := range row.keys {
			evdevKeys[row.first+uint16(i)] = combo.KeyA + combo.Key(r-'A')
		}
	}
	// KEY_1..KEY_9 are 2..10, KEY_0 is 11
	for i := 1; i <= 9; i++ {
		evdevKeys[uint16(i+1)] = combo.Key0 + combo.Key(i)
	}
	evdevKeys[11] = combo.Key0
	// KEY_F1..KEY_F10 are 59..68, F11/F12 are 87/88, F13..F24 are 183..194
	for i := 0; i < 10; i++ {
		evdevKeys[59+uint16(i)] = combo.KeyF1 + combo.Key(i)
	}
	evdevKeys[87] = combo.KeyF11
	evdevKeys[88] = combo.KeyF12
	for i := 0; i < 12; i++ {
		evdevKeys[183+uint16(i)] = combo.KeyF13 + combo.Key(i)
	}
}

// FromVirtualKey translates a Windows virtual key code
func FromVirtualKey(vk uint32) combo.Key {
	if k, ok := virtualKeys[vk]; ok {
		return k
	}
	return combo.RawKey(uint16(vk))
}

// FromEvdev translates a Linux evdev key code
func FromEvdev(code uint16) combo.Key {
	if k, ok := evdevKeys[code]; ok {
		return k
	}
	return combo.RawKey(code)
}
