package config

import (
	"os"
	"path/filepath"
	"testing"

	"region-share/geometry"
)

func TestLoad(t *testing.T) {
	t.Setenv("ENABLE_FILE_LOGGING", "true")
	t.Setenv("ENABLE_NOTIFICATIONS", "TRUE")
	t.Setenv("HOTKEY", "Ctrl+Shift+T")
	t.Setenv("BORDER", "2,10,2,2")
	t.Setenv("DEBUG_OFFSET", "20,-5")
	t.Setenv("SETTINGS_DIR", "/tmp/region-share-test")
	t.Setenv("FRAME_RATE", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if !cfg.EnableFileLogging {
		t.Errorf("Expected EnableFileLogging to be true, got %v", cfg.EnableFileLogging)
	}
	if !cfg.EnableNotifications {
		t.Error("Expected EnableNotifications to be true")
	}
	if cfg.Hotkey != "Ctrl+Shift+T" {
		t.Errorf("Expected Hotkey to be 'Ctrl+Shift+T', got '%s'", cfg.Hotkey)
	}
	if cfg.Border != (geometry.Thickness{Left: 2, Top: 10, Right: 2, Bottom: 2}) {
		t.Errorf("Unexpected border %+v", cfg.Border)
	}
	if cfg.DebugOffset != (geometry.DevicePoint{X: 20, Y: -5}) {
		t.Errorf("Unexpected debug offset %+v", cfg.DebugOffset)
	}
	if cfg.SettingsDir != "/tmp/region-share-test" {
		t.Errorf("Unexpected settings dir %q", cfg.SettingsDir)
	}
	if cfg.FrameRate != 30 {
		t.Errorf("Expected FrameRate 30, got %d", cfg.FrameRate)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOTKEY", "")
	t.Setenv("BORDER", "not,a,border")
	t.Setenv("DEBUG_OFFSET", "")
	t.Setenv("FRAME_RATE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hotkey != DefaultHotkey {
		t.Errorf("Hotkey = %q, want %q", cfg.Hotkey, DefaultHotkey)
	}
	if cfg.Border != (geometry.Thickness{Left: 4, Top: 16, Right: 4, Bottom: 4}) {
		t.Errorf("invalid BORDER should fall back to default, got %+v", cfg.Border)
	}
	if cfg.DebugOffset != (geometry.DevicePoint{}) || cfg.FrameRate != 0 {
		t.Errorf("unexpected %+v", cfg)
	}
}

func TestLoadWithOptionsOverrides(t *testing.T) {
	t.Setenv("SETTINGS_DIR", "/from/env")
	t.Setenv("FRAME_RATE", "10")

	cfg, err := LoadWithOptions(LoadOptions{SettingsDirOverride: "/from/flag", FrameRateOverride: 60})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SettingsDir != "/from/flag" || cfg.FrameRate != 60 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestUnsupportedFrameRateIgnored(t *testing.T) {
	for _, v := range []string{"7", "0", "-15", "fast", "120"} {
		t.Setenv("FRAME_RATE", v)
		cfg, err := Load()
		if err != nil {
			t.Fatal(err)
		}
		if cfg.FrameRate != 0 {
			t.Errorf("FRAME_RATE=%q accepted as %d", v, cfg.FrameRate)
		}
	}
}

func TestEnvFileFromVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.env")
	if err := os.WriteFile(path, []byte("HOTKEY=Alt+F9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPathVar, path)
	// unset so the file value is not shadowed
	t.Setenv("HOTKEY", "")
	os.Unsetenv("HOTKEY")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hotkey != "Alt+F9" {
		t.Errorf("Hotkey = %q, want value from %s", cfg.Hotkey, EnvPathVar)
	}
}

func TestParseThickness(t *testing.T) {
	if th, err := ParseThickness("3"); err != nil || th != geometry.Uniform(3) {
		t.Errorf("ParseThickness(3) = %+v, %v", th, err)
	}
	for _, v := range []string{"", "1,2", "1,2,3,-4", "a"} {
		if _, err := ParseThickness(v); err == nil {
			t.Errorf("ParseThickness(%q) accepted", v)
		}
	}
}

func TestParseOffset(t *testing.T) {
	for _, v := range []string{"10", "a,b", "1,"} {
		if _, err := ParseOffset(v); err == nil {
			t.Errorf("ParseOffset(%q) accepted", v)
		}
	}
}
