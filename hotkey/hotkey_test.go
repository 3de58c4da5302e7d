package hotkey

import (
	"testing"
)

func TestKeyNameToRawcodes(t *testing.T) {
	tests := []struct {
		keyName  string
		expected []uint16
	}{
		// Modifier keys
		{"ctrl", []uint16{162, 163}},
		{"alt", []uint16{164, 165}},
		{"shift", []uint16{160, 161}},
		{"win", []uint16{91, 92}},
		{"cmd", []uint16{91, 92}},
		{"super", []uint16{91, 92}},

		// Letter keys
		{"a", []uint16{65}},
		{"r", []uint16{82}},
		{"z", []uint16{90}},

		// Number keys
		{"0", []uint16{48}},
		{"9", []uint16{57}},

		// Function keys
		{"f1", []uint16{112}},
		{"f12", []uint16{123}},
		{"f24", []uint16{135}},

		// Special keys
		{"space", []uint16{32}},
		{"enter", []uint16{13}},
		{"esc", []uint16{27}},

		// Unknown key
		{"unknown", nil},
		{"f25", nil},
	}

	for _, tt := range tests {
		t.Run(tt.keyName, func(t *testing.T) {
			result := keyNameToRawcodes(tt.keyName)
			if len(result) != len(tt.expected) {
				t.Errorf("keyNameToRawcodes(%q) returned %d rawcodes, expected %d",
					tt.keyName, len(result), len(tt.expected))
				return
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("keyNameToRawcodes(%q)[%d] = %d, expected %d",
						tt.keyName, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Ctrl+Alt+R", []string{"ctrl", "alt", "r"}},
		{"Ctrl+Shift+O", []string{"ctrl", "shift", "o"}},
		{"Alt+F4", []string{"alt", "f4"}},
		{"Ctrl+Win+E", []string{"ctrl", "cmd", "e"}},
		{"Super + Alt + T", []string{"cmd", "alt", "t"}},
		{"Ctrl++R", []string{"ctrl", "r"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseHotkey(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("parseHotkey(%q) returned %d keys, expected %d",
					tt.input, len(result), len(tt.expected))
				return
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("parseHotkey(%q)[%d] = %q, expected %q",
						tt.input, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseComboRejectsUnknownKeys(t *testing.T) {
	for _, v := range []string{"", "Ctrl+Hyper", "+"} {
		if _, err := ParseCombo(v); err == nil {
			t.Errorf("ParseCombo(%q) accepted", v)
		}
	}
	if err := Listen("Ctrl+Nope", nil); err == nil {
		t.Error("Listen accepted an unmappable hotkey")
	}
}

func TestComboFiresOncePerPress(t *testing.T) {
	c, err := ParseCombo("Ctrl+Alt+R")
	if err != nil {
		t.Fatal(err)
	}

	if c.Press(162) || c.Press(164) {
		t.Fatal("fired before all keys were down")
	}
	if !c.Press(82) {
		t.Fatal("did not fire with Ctrl+Alt+R down")
	}
	// auto-repeat of R while modifiers stay physically down does not refire
	if c.Press(82) {
		t.Error("fired again without pressing modifiers")
	}

	c.Release(82)
	c.Press(163) // right ctrl
	c.Press(165) // right alt
	if !c.Press(82) {
		t.Error("right-hand modifiers should satisfy the combination")
	}

	c.Press(162)
	c.Press(164)
	c.Release(164)
	if c.Press(82) {
		t.Error("fired after Alt was released")
	}
}
