package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"region-share/geometry"
	"region-share/settings"
)

const (
	EnvPathVar     = "REGION_SHARE_ENV"
	DefaultHotkey  = "Ctrl+Alt+R"
	DefaultBorder  = "4,16,4,4"
	appSettingsDir = "RegionToShare"
)

// LoadOptions carries command line overrides, which win over the
// environment.
type LoadOptions struct {
	SettingsDirOverride string
	FrameRateOverride   int
}

type Config struct {
	EnableFileLogging   bool
	// EnableNotifications shows a toast when sharing starts or stops.
	EnableNotifications bool
	SettingsDir         string
	Hotkey              string
	// Border is the frame chrome in logical units: left, top, right, bottom.
	Border              geometry.Thickness
	// DebugOffset shifts the separation layer so it can be seen.
	DebugOffset         geometry.DevicePoint
	// FrameRate overrides the persisted rate when non-zero.
	FrameRate           int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) .env in the executable directory
	// 2) the file named by REGION_SHARE_ENV
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	border, err := ParseThickness(getEnvWithDefault("BORDER", DefaultBorder))
	if err != nil {
		log.Printf("CONFIG: %v, using %s", err, DefaultBorder)
		border, _ = ParseThickness(DefaultBorder)
	}

	offset, err := ParseOffset(os.Getenv("DEBUG_OFFSET"))
	if err != nil {
		log.Printf("CONFIG: %v, ignoring debug offset", err)
	}

	frameRate := 0
	if v := os.Getenv("FRAME_RATE"); v != "" {
		n, err := settings.ParseFrameRate(v)
		if err != nil {
			log.Printf("CONFIG: FRAME_RATE %v, ignoring override", err)
		} else {
			frameRate = n
		}
	}
	if opts.FrameRateOverride > 0 {
		frameRate = opts.FrameRateOverride
	}

	settingsDir := resolveSettingsDir(opts)

	cfg := &Config{
		EnableFileLogging:   strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		EnableNotifications: strings.ToLower(os.Getenv("ENABLE_NOTIFICATIONS")) == "true",
		SettingsDir:         settingsDir,
		Hotkey:              getEnvWithDefault("HOTKEY", DefaultHotkey),
		Border:              border,
		DebugOffset:         offset,
		FrameRate:           frameRate,
	}

	return cfg, nil
}

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func resolveSettingsDir(opts LoadOptions) string {
	if dir := strings.TrimSpace(opts.SettingsDirOverride); dir != "" {
		return dir
	}
	if dir := strings.TrimSpace(os.Getenv("SETTINGS_DIR")); dir != "" {
		return dir
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, appSettingsDir)
	}
	return "."
}

// ParseThickness reads "l,t,r,b" or a single uniform value.
func ParseThickness(v string) (geometry.Thickness, error) {
	parts := strings.Split(v, ",")
	nums := make([]float64, 0, 4)
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || f < 0 {
			return geometry.Thickness{}, fmt.Errorf("invalid border %q", v)
		}
		nums = append(nums, f)
	}
	switch len(nums) {
	case 1:
		return geometry.Uniform(nums[0]), nil
	case 4:
		return geometry.Thickness{Left: nums[0], Top: nums[1], Right: nums[2], Bottom: nums[3]}, nil
	default:
		return geometry.Thickness{}, fmt.Errorf("invalid border %q: want 1 or 4 values", v)
	}
}

// ParseOffset reads "x,y". An empty string is the zero offset.
func ParseOffset(v string) (geometry.DevicePoint, error) {
	if strings.TrimSpace(v) == "" {
		return geometry.DevicePoint{}, nil
	}
	x, y, ok := strings.Cut(v, ",")
	if !ok {
		return geometry.DevicePoint{}, fmt.Errorf("invalid offset %q", v)
	}
	dx, errX := strconv.Atoi(strings.TrimSpace(x))
	dy, errY := strconv.Atoi(strings.TrimSpace(y))
	if errX != nil || errY != nil {
		return geometry.DevicePoint{}, fmt.Errorf("invalid offset %q", v)
	}
	return geometry.DevicePoint{X: dx, Y: dy}, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
