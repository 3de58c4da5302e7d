package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"region-share/capture"
	"region-share/clipboard"
	"region-share/config"
	"region-share/eventloop"
	"region-share/geometry"
	"region-share/hotkey"
	"region-share/logutil"
	"region-share/notification"
	"region-share/region"
	"region-share/screenshot"
	"region-share/session"
	"region-share/settings"
	"region-share/singleinstance"
	"region-share/surface"
	"region-share/tray"
	"region-share/zorder"
)

const appTitle = "RegionToShare"

type cliOptions struct {
	settingsDir    string
	fps            int
	resetPlacement bool
	activate       bool
	verbose        bool
}

func main() {
	// The Win32 windows and their message pump must stay on one OS thread.
	runtime.LockOSThread()

	if err := runWithArgs(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"region-share"}
	}
	opts := &cliOptions{}
	cmd := newRootCmd(opts, runWithOptions)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions, run func(cliOptions) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "region-share",
		Short:         "Share a region of the desktop as a window",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			return run(*opts)
		},
	}

	cmd.Flags().StringVar(&opts.settingsDir, "settings-dir", "", "Directory holding settings.env and resolutions.txt")
	cmd.Flags().IntVar(&opts.fps, "fps", 0, "Capture frame rate (5, 10, 15, 20, 30 or 60)")
	cmd.Flags().BoolVar(&opts.resetPlacement, "reset-placement", false, "Ignore the stored frame position")
	cmd.Flags().BoolVar(&opts.activate, "activate", false, "Start sharing right away")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")
	return cmd
}

func (o cliOptions) validate() error {
	if o.fps != 0 && !slices.Contains(capture.ValidFrameRates, o.fps) {
		return fmt.Errorf("--fps %d: %w", o.fps, settings.ErrInvalidFrameRate)
	}
	return nil
}

func runWithOptions(opts cliOptions) error {
	enableDPIAwareness()

	cfg, err := config.LoadWithOptions(config.LoadOptions{
		SettingsDirOverride: opts.settingsDir,
		FrameRateOverride:   opts.fps,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logutil.Setup(cfg.SettingsDir, cfg.EnableFileLogging, opts.verbose)
	logMonitorConfiguration()

	forward := singleinstance.Front
	if opts.activate {
		forward = singleinstance.Toggle
	}
	if delegated, err := singleinstance.Send(context.Background(), forward); delegated {
		if err != nil {
			return fmt.Errorf("running instance rejected %s: %w", forward, err)
		}
		log.Printf("Forwarded %s to the running instance", forward)
		return nil
	}

	st, err := settings.Load(cfg.SettingsDir)
	if err != nil {
		log.Printf("SETTINGS: %v, using defaults", err)
	}
	if opts.resetPlacement {
		st.Placement = nil
	}
	frameRate := st.FrameRate
	if cfg.FrameRate > 0 {
		frameRate = cfg.FrameRate
	}

	if err := clipboard.Init(); err != nil {
		log.Printf("Clipboard unavailable: %v", err)
	}

	a, err := newApp(cfg, st, frameRate)
	if err != nil {
		return err
	}
	return a.run(opts.activate || st.StartActivated)
}

// app holds the wired components for one run.
type app struct {
	cfg     *config.Config
	st      *settings.Settings
	loop    *eventloop.Loop
	desk    *surface.Desktop
	sync    *region.Synchronizer
	sampler *capture.Loop
	sess    *session.Session
	tray    *tray.Tray
	notify  notification.Notifier

	ctx     context.Context
	cancel  context.CancelFunc
	capture geometry.DeviceRect
}

func newApp(cfg *config.Config, st *settings.Settings, frameRate int) (*app, error) {
	a := &app{cfg: cfg, st: st, loop: eventloop.New(), notify: notification.Disabled{}}
	if cfg.EnableNotifications {
		a.notify = notification.New(appTitle)
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	desk, err := surface.New(surface.Options{
		Title:     appTitle,
		Border:    cfg.Border,
		Theme:     st.Theme,
		Placement: st.Placement,
		Queue:     a.loop,
	})
	if err != nil {
		return nil, err
	}
	a.desk = desk

	a.sync = region.New(desk, region.Options{
		Border:         cfg.Border,
		DebugOffset:    cfg.DebugOffset,
		Dispatcher:     a.loop,
		OnFrameChanged: a.onFrameChanged,
	})
	a.sampler = capture.New(capture.Options{
		Rect:       a.sync,
		Grabber:    screenshot.Grabber{},
		Cursor:     screenshot.NewCursorSource(),
		Sink:       desk,
		Dispatcher: a.loop,
	})
	a.sess = session.New(a.sync, a.sampler, zorder.New(desk, a.sync), session.Options{
		FrameRate:     frameRate,
		OnModeChanged: a.onModeChanged,
	})
	desk.Bind(a.sync, a.sess)

	a.tray, err = tray.New(tray.Config{
		Title:       appTitle,
		Hotkey:      cfg.Hotkey,
		Color:       st.Theme,
		Presets:     st.Resolutions,
		FrameRates:  capture.ValidFrameRates,
		OnToggle:    func() { a.post(a.toggle) },
		OnFront:     func() { a.post(a.sess.OnFrameActivated) },
		OnPreset:    func(sz settings.Size) { a.post(func() { a.applyPreset(sz) }) },
		OnFrameRate: func(fps int) { a.post(func() { a.setFrameRate(fps) }) },
		OnCopySize:  func() { a.post(a.copySize) },
		OnExit:      a.cancel,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) run(activate bool) error {
	if err := a.desk.Open(); err != nil {
		return fmt.Errorf("failed to open frame: %w", err)
	}

	ctx, cancel := a.ctx, a.cancel
	defer cancel()

	if _, err := singleinstance.Listen(ctx, a.onForwarded); err != nil {
		log.Printf("SINGLEINSTANCE: %v", err)
	}

	go a.tray.Run()
	defer a.tray.Destroy()

	if err := hotkey.Listen(a.cfg.Hotkey, func() { a.post(a.toggle) }); err != nil {
		log.Printf("Hotkey %q disabled: %v", a.cfg.Hotkey, err)
	} else {
		defer hotkey.Stop()
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	if activate {
		a.post(a.toggle)
	}
	log.Printf("%s ready, hotkey %s, %d fps", appTitle, a.cfg.Hotkey, a.sess.FrameRate())

	err := a.desk.Run(ctx)
	a.sampler.Stop()
	a.loop.Close()
	a.save()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *app) post(fn func()) bool {
	if !a.loop.Post(fn) {
		log.Printf("Event loop closed, dropping request")
		return false
	}
	return true
}

// onForwarded runs on the resident's listener goroutine.
func (a *app) onForwarded(cmd singleinstance.Command) error {
	fn := a.toggle
	if cmd == singleinstance.Front {
		fn = a.sess.OnFrameActivated
	}
	if !a.post(fn) {
		return fmt.Errorf("shutting down")
	}
	return nil
}

func (a *app) toggle() {
	if err := a.sess.Toggle(); err != nil {
		log.Printf("Toggle failed: %v", err)
		notify(a.notify, "Sharing failed", err.Error())
	}
}

func (a *app) applyPreset(sz settings.Size) {
	if err := a.sess.ApplyPreset(sz); err != nil {
		log.Printf("Preset failed: %v", err)
	}
}

// setFrameRate applies to the next recording and is persisted on exit.
func (a *app) setFrameRate(fps int) {
	a.sess.SetFrameRate(fps)
	a.st.FrameRate = fps
	log.Printf("Frame rate set to %d fps", fps)
}

func (a *app) copySize() {
	if err := clipboard.WriteSize(a.capture.Width(), a.capture.Height()); err != nil {
		log.Printf("Failed to copy capture size: %v", err)
	}
}

// onFrameChanged tracks the capture area that the current frame encloses.
func (a *app) onFrameChanged(frame geometry.DeviceRect) {
	sf, ok := a.sync.Surface(region.RoleFrame)
	if !ok {
		return
	}
	a.capture = frame.Deflate(sf.Transforms.ThicknessToDevice(a.cfg.Border))
	if a.tray == nil {
		return
	}
	a.tray.SetSize(a.capture.Width(), a.capture.Height())
}

func (a *app) onModeChanged(m session.Mode) {
	recording := m == session.Recording
	title, message := notification.Sharing(recording, a.capture.Width(), a.capture.Height())
	notify(a.notify, title, message)
	if a.tray == nil {
		return
	}
	a.tray.SetRecording(recording)
}

func notify(n notification.Notifier, title, message string) {
	if err := n.Show(title, message); err != nil {
		log.Printf("NOTIFY: %q not shown: %v", title, err)
	}
}

func (a *app) save() {
	placement := a.desk.Placement()
	if !placement.Empty() {
		a.st.Placement = &placement
	}
	if err := a.st.Save(a.cfg.SettingsDir); err != nil {
		log.Printf("SETTINGS: save failed: %v", err)
		return
	}
	log.Printf("SETTINGS: saved to %s", a.cfg.SettingsDir)
}
