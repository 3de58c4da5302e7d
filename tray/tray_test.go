package tray

import (
	"encoding/binary"
	"image/color"
	"testing"
)

func TestIcon(t *testing.T) {
	data := Icon(color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff})

	if binary.LittleEndian.Uint16(data[2:]) != 1 || binary.LittleEndian.Uint16(data[4:]) != 1 {
		t.Fatal("not a single-image ICO")
	}
	size := binary.LittleEndian.Uint32(data[14:])
	offset := binary.LittleEndian.Uint32(data[18:])
	if int(offset+size) != len(data) {
		t.Errorf("directory says %d+%d bytes, have %d", offset, size, len(data))
	}

	// first pixel row stored is the bottom edge: frame colored, BGRA
	px := data[offset+40:]
	if px[0] != 0x30 || px[1] != 0x20 || px[2] != 0x10 || px[3] != 0xff {
		t.Errorf("bottom-left pixel = % x", px[:4])
	}
	// centre pixel is transparent
	row, col := iconSize/2, iconSize/2
	i := (row*iconSize + col) * 4
	if px[i+3] != 0 {
		t.Error("interior should be transparent")
	}
}

func TestIconDefaultColor(t *testing.T) {
	if len(Icon(color.RGBA{})) != len(Icon(color.RGBA{A: 0xff})) {
		t.Error("icon size should not depend on color")
	}
}

func TestTooltip(t *testing.T) {
	tests := []struct {
		size      string
		recording bool
		want      string
	}{
		{"", false, "RegionToShare"},
		{"1280x1024", false, "RegionToShare - 1280x1024"},
		{"1280x1024", true, "RegionToShare - 1280x1024 (sharing)"},
	}
	for _, tt := range tests {
		if got := Tooltip("RegionToShare", tt.size, tt.recording); got != tt.want {
			t.Errorf("Tooltip(%q, %v) = %q, want %q", tt.size, tt.recording, got, tt.want)
		}
	}
}

func TestToggleLabel(t *testing.T) {
	if got := toggleLabel(true, "Ctrl+Alt+R"); got != "Stop sharing (Ctrl+Alt+R)" {
		t.Errorf("toggleLabel = %q", got)
	}
	if got := toggleLabel(false, ""); got != "Start sharing" {
		t.Errorf("toggleLabel = %q", got)
	}
}

func TestNewRequiresTitle(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without title")
	}
	tr, err := New(Config{Title: "RegionToShare"})
	if err != nil {
		t.Fatal(err)
	}
	// not running: updates are stored without touching systray
	tr.SetSize(640, 480)
	tr.SetRecording(true)
	if tr.aboutText() == "" {
		t.Error("empty about text")
	}
}
