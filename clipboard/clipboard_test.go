package clipboard

import (
	"testing"
)

func TestFormatSize(t *testing.T) {
	if got := FormatSize(1280, 720); got != "1280x720" {
		t.Errorf("FormatSize = %q", got)
	}
}

func TestWriteSize(t *testing.T) {
	// This test would require clipboard access, so we only check that the
	// call does not panic
	if err := WriteSize(800, 600); err != nil {
		t.Logf("Clipboard write failed (expected in headless environment): %v", err)
	}
}
