package settings

import (
	"errors"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/image/colornames"

	"region-share/capture"
	"region-share/geometry"
)

const (
	FileName            = "settings.env"
	ResolutionsFileName = "resolutions.txt"

	KeyPlacement      = "WINDOW_PLACEMENT"
	KeyFrameRate      = "FRAME_RATE"
	KeyThemeColor     = "THEME_COLOR"
	KeyStartActivated = "START_ACTIVATED"

	DefaultThemeColor = "steelblue"

	// MinWidth and MinHeight bound presets and stored placements.
	MinWidth  = 200
	MinHeight = 200
)

var (
	ErrInvalidSize       = errors.New("invalid size")
	ErrInvalidPlacement  = errors.New("invalid window placement")
	ErrInvalidFrameRate  = errors.New("unsupported frame rate")
	ErrInvalidThemeColor = errors.New("invalid theme color")
)

// DefaultResolutions are used when the presets file is absent, empty or
// holds no valid line.
var DefaultResolutions = []Size{{1024, 782}, {1280, 1024}, {1920, 1080}}

// Settings is the persisted user state.
type Settings struct {
	// Placement is the last normal-state frame rectangle, nil when none
	// was stored.
	Placement      *geometry.DeviceRect
	FrameRate      int
	ThemeColor     string
	Theme          color.RGBA
	StartActivated bool
	Resolutions    []Size

	// extra keeps keys this version does not know so Save does not drop
	// them.
	extra map[string]string
}

// Defaults returns settings with every field at its default.
func Defaults() *Settings {
	theme, _ := ParseThemeColor(DefaultThemeColor)
	return &Settings{
		FrameRate:   capture.DefaultFrameRate,
		ThemeColor:  DefaultThemeColor,
		Theme:       theme,
		Resolutions: append([]Size(nil), DefaultResolutions...),
		extra:       map[string]string{},
	}
}

// Load reads settings.env and resolutions.txt from dir. Malformed values
// are replaced by their defaults and never fail the load. The returned
// error only reports an unreadable settings file; the settings are usable
// either way.
func Load(dir string) (*Settings, error) {
	s := Defaults()
	s.Resolutions = LoadResolutions(filepath.Join(dir, ResolutionsFileName))

	values, err := godotenv.Read(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		log.Printf("SETTINGS: failed to read %s: %v", FileName, err)
		return s, fmt.Errorf("failed to read settings: %w", err)
	}

	for k, v := range values {
		switch k {
		case KeyPlacement:
			if r, err := ParsePlacement(v); err == nil {
				s.Placement = &r
			} else {
				log.Printf("SETTINGS: ignoring placement %q: %v", v, err)
			}
		case KeyFrameRate:
			if fps, err := ParseFrameRate(v); err == nil {
				s.FrameRate = fps
			} else {
				log.Printf("SETTINGS: %v, using %d", err, capture.DefaultFrameRate)
			}
		case KeyThemeColor:
			if c, err := ParseThemeColor(v); err == nil {
				s.ThemeColor, s.Theme = strings.TrimSpace(v), c
			} else {
				log.Printf("SETTINGS: %v, using %s", err, DefaultThemeColor)
			}
		case KeyStartActivated:
			s.StartActivated = parseBool(v)
		default:
			s.extra[k] = v
		}
	}
	return s, nil
}

// Save writes settings.env into dir, creating the directory if needed.
func (s *Settings) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}

	values := make(map[string]string, len(s.extra)+4)
	for k, v := range s.extra {
		values[k] = v
	}
	if s.Placement != nil {
		values[KeyPlacement] = FormatPlacement(*s.Placement)
	}
	values[KeyFrameRate] = strconv.Itoa(s.FrameRate)
	values[KeyThemeColor] = s.ThemeColor
	values[KeyStartActivated] = strconv.FormatBool(s.StartActivated)

	if err := godotenv.Write(values, filepath.Join(dir, FileName)); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// ParsePlacement reads four tab-separated integers left, top, right,
// bottom. The result is at least MinWidth x MinHeight.
func ParsePlacement(v string) (geometry.DeviceRect, error) {
	parts := strings.Split(strings.TrimSpace(v), "\t")
	if len(parts) != 4 {
		return geometry.DeviceRect{}, fmt.Errorf("%w: want 4 fields, got %d", ErrInvalidPlacement, len(parts))
	}
	var n [4]int
	for i, p := range parts {
		x, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return geometry.DeviceRect{}, fmt.Errorf("%w: %v", ErrInvalidPlacement, err)
		}
		n[i] = x
	}
	return geometry.DeviceRect{
		Left:   n[0],
		Top:    n[1],
		Right:  max(n[0]+MinWidth, n[2]),
		Bottom: max(n[1]+MinHeight, n[3]),
	}, nil
}

// FormatPlacement is the inverse of ParsePlacement.
func FormatPlacement(r geometry.DeviceRect) string {
	return fmt.Sprintf("%d\t%d\t%d\t%d", r.Left, r.Top, r.Right, r.Bottom)
}

// ParseFrameRate accepts one of capture.ValidFrameRates.
func ParseFrameRate(v string) (int, error) {
	fps, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrameRate, v)
	}
	for _, ok := range capture.ValidFrameRates {
		if fps == ok {
			return fps, nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidFrameRate, fps)
}

// ParseThemeColor accepts an SVG color name or #RRGGBB / #RGB.
func ParseThemeColor(v string) (color.RGBA, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if c, ok := colornames.Map[v]; ok {
		return c, nil
	}
	if !strings.HasPrefix(v, "#") {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidThemeColor, v)
	}
	hex := v[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidThemeColor, v)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidThemeColor, v)
	}
	return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}, nil
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
