package tray

import (
	"fmt"
	"image/color"
	"log"
	"sync"

	"github.com/getlantern/systray"

	"region-share/settings"
)

// Config wires the tray menu to the application. Callbacks run on the
// tray goroutine; the application posts them to its UI thread.
type Config struct {
	Title   string
	Tooltip string
	Hotkey  string
	Color   color.RGBA
	Presets []settings.Size
	// FrameRates are offered in the frame rate submenu.
	FrameRates []int

	OnToggle    func()
	OnFront     func()
	OnPreset    func(settings.Size)
	OnFrameRate func(fps int)
	OnCopySize  func()
	OnExit      func()
}

type Tray struct {
	cfg Config

	mu        sync.Mutex
	ready     bool
	recording bool
	size      string
	mToggle   *systray.MenuItem
	mPresets  *systray.MenuItem
}

func New(cfg Config) (*Tray, error) {
	if cfg.Title == "" {
		return nil, fmt.Errorf("tray title is required")
	}
	if cfg.Tooltip == "" {
		cfg.Tooltip = cfg.Title
	}
	return &Tray{cfg: cfg}, nil
}

// Run blocks until the tray exits.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Destroy removes the icon.
func (t *Tray) Destroy() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetIcon(Icon(t.cfg.Color))
	systray.SetTitle(t.cfg.Title)
	systray.SetTooltip(t.cfg.Tooltip)

	mToggle := systray.AddMenuItem(toggleLabel(false, t.cfg.Hotkey), "Start or stop sharing the framed region")
	mFront := systray.AddMenuItem("Show frame", "Bring the frame to the front")
	mPresets := systray.AddMenuItem("Resolution", "Resize the capture area to a preset")
	presetItems := make([]*systray.MenuItem, len(t.cfg.Presets))
	for i, p := range t.cfg.Presets {
		presetItems[i] = mPresets.AddSubMenuItem(p.String(), "")
	}
	mRates := systray.AddMenuItem("Frame rate", "Capture rate for the next recording")
	rateItems := make([]*systray.MenuItem, len(t.cfg.FrameRates))
	for i, fps := range t.cfg.FrameRates {
		rateItems[i] = mRates.AddSubMenuItem(fmt.Sprintf("%d fps", fps), "")
	}
	mCopy := systray.AddMenuItem("Copy size", "Copy the capture size to the clipboard")
	systray.AddSeparator()
	mAbout := systray.AddMenuItem("About", "")
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	t.mu.Lock()
	t.ready = true
	t.mToggle = mToggle
	t.mPresets = mPresets
	t.applyLocked()
	t.mu.Unlock()

	for i, item := range presetItems {
		go func(p settings.Size, item *systray.MenuItem) {
			for range item.ClickedCh {
				if t.cfg.OnPreset != nil {
					t.cfg.OnPreset(p)
				}
			}
		}(t.cfg.Presets[i], item)
	}

	for i, item := range rateItems {
		go func(fps int, item *systray.MenuItem) {
			for range item.ClickedCh {
				if t.cfg.OnFrameRate != nil {
					t.cfg.OnFrameRate(fps)
				}
			}
		}(t.cfg.FrameRates[i], item)
	}

	go func() {
		for {
			select {
			case <-mToggle.ClickedCh:
				call(t.cfg.OnToggle)
			case <-mFront.ClickedCh:
				call(t.cfg.OnFront)
			case <-mCopy.ClickedCh:
				call(t.cfg.OnCopySize)
			case <-mAbout.ClickedCh:
				showAbout(t.cfg.Title, t.aboutText())
			case <-mQuit.ClickedCh:
				log.Printf("Exit requested from tray icon")
				call(t.cfg.OnExit)
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// SetRecording updates the toggle label and disables presets while
// recording.
func (t *Tray) SetRecording(recording bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = recording
	t.applyLocked()
}

// SetSize shows the current capture size in the tooltip.
func (t *Tray) SetSize(width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.size = fmt.Sprintf("%dx%d", width, height)
	t.applyLocked()
}

func (t *Tray) applyLocked() {
	if !t.ready {
		return
	}
	t.mToggle.SetTitle(toggleLabel(t.recording, t.cfg.Hotkey))
	if t.recording {
		t.mPresets.Disable()
	} else {
		t.mPresets.Enable()
	}
	systray.SetTooltip(Tooltip(t.cfg.Title, t.size, t.recording))
}

func (t *Tray) aboutText() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("%s\n\nHotkey: %s\nCapture size: %s", t.cfg.Title, t.cfg.Hotkey, t.size)
}

// Tooltip formats the tray tooltip.
func Tooltip(title, size string, recording bool) string {
	s := title
	if size != "" {
		s += " - " + size
	}
	if recording {
		s += " (sharing)"
	}
	return s
}

func toggleLabel(recording bool, hotkey string) string {
	label := "Start sharing"
	if recording {
		label = "Stop sharing"
	}
	if hotkey != "" {
		label += " (" + hotkey + ")"
	}
	return label
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
