package settings

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Size is a resolution preset in device pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// ParseSize parses "WxH". Both sides must reach the minimum size.
func ParseSize(v string) (Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(v)), "x")
	if !ok {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidSize, v)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidSize, v)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidSize, v)
	}
	if width < MinWidth || height < MinHeight {
		return Size{}, fmt.Errorf("%w: %q is below %dx%d", ErrInvalidSize, v, MinWidth, MinHeight)
	}
	return Size{Width: width, Height: height}, nil
}

// ParseResolutions returns the valid presets of a newline-separated list.
// Invalid lines are skipped.
func ParseResolutions(text string) []Size {
	var out []Size
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if sz, err := ParseSize(line); err == nil {
			out = append(out, sz)
		}
	}
	return out
}

// LoadResolutions reads the presets file. When the file is absent it is
// created with DefaultResolutions; when it holds no valid preset the
// defaults are returned.
func LoadResolutions(path string) []Size {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if werr := WriteResolutions(path, DefaultResolutions); werr != nil {
				log.Printf("SETTINGS: %v", werr)
			}
		} else {
			log.Printf("SETTINGS: failed to read %s: %v", path, err)
		}
		return append([]Size(nil), DefaultResolutions...)
	}

	sizes := ParseResolutions(string(data))
	if len(sizes) == 0 {
		log.Printf("SETTINGS: no valid preset in %s, using defaults", path)
		return append([]Size(nil), DefaultResolutions...)
	}
	return sizes
}

// WriteResolutions stores presets one per line.
func WriteResolutions(path string, sizes []Size) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create presets dir: %w", err)
	}
	lines := make([]string, len(sizes))
	for i, s := range sizes {
		lines[i] = s.String()
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\r\n")+"\r\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}
	return nil
}
