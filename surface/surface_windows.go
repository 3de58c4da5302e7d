//go:build windows

package surface

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/image/colornames"
	"golang.org/x/sys/windows"

	"region-share/capture"
	"region-share/geometry"
	"region-share/hittest"
	"region-share/region"
	"region-share/screenshot"
	"region-share/session"
	"region-share/zorder"
)

const (
	wmDrain      = win.WM_APP + 1
	wmDPIChanged = 0x02E0

	sizeRestored  = 0
	sizeMinimized = 1
	sizeMaximized = 2

	waInactive   = 0
	maNoActivate = 3
	gwHwndPrev   = 3
	lwaColorKey  = 0x1

	wdaExcludeFromCapture = 0x11
)

var (
	hwndTop    = win.HWND(0)
	hwndBottom = win.HWND(1)

	// color key of the capture surface: see-through and click-through
	keyColor = color.RGBA{0xff, 0x00, 0xfe, 0xff}
)

var (
	user32                         = windows.NewLazySystemDLL("user32.dll")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
	procSetWindowDisplayAffinity   = user32.NewProc("SetWindowDisplayAffinity")
	procGetDpiForWindow            = user32.NewProc("GetDpiForWindow")
	procGetWindow                  = user32.NewProc("GetWindow")
	procIsIconic                   = user32.NewProc("IsIconic")
	procFillRect                   = user32.NewProc("FillRect")

	gdi32                = windows.NewLazySystemDLL("gdi32.dll")
	procCreateSolidBrush = gdi32.NewProc("CreateSolidBrush")
)

type window struct {
	role      region.Role
	hwnd      win.HWND
	last      geometry.DeviceRect
	minimized bool
}

// dib is the frame's back buffer for published captures.
type dib struct {
	dc     win.HDC
	bmp    win.HBITMAP
	old    win.HGDIOBJ
	bits   []byte
	width  int
	height int
}

// Desktop owns the Win32 windows of all three surfaces. It implements
// region.Host, zorder.Platform and capture.Sink. Everything except Wake
// runs on the thread that called Open.
type Desktop struct {
	opts Options
	geom Geometry
	ctrl Controller

	className *uint16
	windows   map[win.HWND]*window
	frame     *window
	sep       *window

	placement geometry.DeviceRect
	buf       dib

	wakeHwnd atomic.Uintptr
}

var (
	_ region.Host     = (*Desktop)(nil)
	_ zorder.Platform = (*Desktop)(nil)
	_ capture.Sink    = (*Desktop)(nil)
)

func New(opts Options) (*Desktop, error) {
	if opts.Title == "" {
		opts.Title = "RegionToShare"
	}
	if opts.Queue == nil {
		return nil, fmt.Errorf("surface: a UI queue is required")
	}
	return &Desktop{opts: opts, windows: make(map[win.HWND]*window)}, nil
}

// Bind connects the desktop to the synchronizer and the session, which are
// built on top of it.
func (d *Desktop) Bind(g Geometry, c Controller) {
	d.geom = g
	d.ctrl = c
}

// Open creates the frame and the hidden separation layer and attaches both
// to the synchronizer.
func (d *Desktop) Open() error {
	if d.geom == nil || d.ctrl == nil {
		return fmt.Errorf("surface: Open called before Bind")
	}
	d.className = syscall.StringToUTF16Ptr("RegionShareSurface")
	wndClass := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		Style:         win.CS_HREDRAW | win.CS_VREDRAW,
		LpfnWndProc:   syscall.NewCallback(d.wndProc),
		HInstance:     win.GetModuleHandle(nil),
		HCursor:       win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_ARROW)),
		HbrBackground: 0,
		LpszClassName: d.className,
	}
	if atom := win.RegisterClassEx(&wndClass); atom == 0 {
		return fmt.Errorf("failed to register window class")
	}

	def := geometry.DeviceRectFromSize(0, 0, 808, 620)
	d.placement = InitialPlacement(d.opts.Placement, screenshot.Displays(), def)

	sep, err := d.create(region.RoleSeparation, d.placement,
		win.WS_EX_TOOLWINDOW|win.WS_EX_NOACTIVATE, win.WS_POPUP, "")
	if err != nil {
		return err
	}
	frame, err := d.create(region.RoleFrame, d.placement,
		win.WS_EX_APPWINDOW, win.WS_POPUP|win.WS_THICKFRAME|win.WS_MINIMIZEBOX|win.WS_SYSMENU, d.opts.Title)
	if err != nil {
		win.DestroyWindow(sep.hwnd)
		return err
	}
	d.sep, d.frame = sep, frame
	d.wakeHwnd.Store(uintptr(frame.hwnd))

	sepTr := transformsFor(sep.hwnd)
	frameTr := transformsFor(frame.hwnd)
	d.geom.Attach(region.RoleSeparation, region.Handle(sep.hwnd), sepTr.RectFromDevice(d.placement), sepTr)
	d.geom.Attach(region.RoleFrame, region.Handle(frame.hwnd), frameTr.RectFromDevice(d.placement), frameTr)

	d.opts.Queue.SetWake(d.Wake)
	win.ShowWindow(frame.hwnd, win.SW_SHOW)
	win.UpdateWindow(frame.hwnd)
	log.Printf("SURFACE: frame %v at %v (scale %.2f)", frame.hwnd, d.placement, frameTr.ScaleFactor())
	return nil
}

func (d *Desktop) create(role region.Role, r geometry.DeviceRect, exStyle, style uint32, title string) (*window, error) {
	hwnd := win.CreateWindowEx(
		exStyle,
		d.className,
		syscall.StringToUTF16Ptr(title),
		style,
		int32(r.Left), int32(r.Top), int32(r.Width()), int32(r.Height()),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		return nil, fmt.Errorf("failed to create %s window", role)
	}
	w := &window{role: role, hwnd: hwnd, last: r}
	d.windows[hwnd] = w
	return w, nil
}

// Wake asks the window thread to drain the UI queue. Safe from any
// goroutine.
func (d *Desktop) Wake() {
	if h := d.wakeHwnd.Load(); h != 0 {
		win.PostMessage(win.HWND(h), wmDrain, 0, 0)
	}
}

// Run pumps window messages until the frame is closed or ctx is done.
func (d *Desktop) Run(ctx context.Context) error {
	if d.frame == nil {
		return fmt.Errorf("surface: Run called before Open")
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			win.PostMessage(d.frame.hwnd, win.WM_CLOSE, 0, 0)
		case <-done:
		}
	}()

	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 {
			log.Printf("SURFACE: WM_QUIT received")
			break
		}
		if ret == -1 {
			return fmt.Errorf("GetMessage failed")
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
	d.wakeHwnd.Store(0)
	d.releaseBuffer()
	return ctx.Err()
}

// Placement is the last rectangle the frame had while it was neither
// minimized nor maximized.
func (d *Desktop) Placement() geometry.DeviceRect { return d.placement }

// Create implements region.Host. Only the capture surface is created on
// demand.
func (d *Desktop) Create(role region.Role, r geometry.DeviceRect) (region.Handle, error) {
	if role != region.RoleCapture {
		return 0, fmt.Errorf("cannot create a %s surface on demand", role)
	}
	w, err := d.create(role, r,
		win.WS_EX_LAYERED|win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW, win.WS_POPUP|win.WS_THICKFRAME, "")
	if err != nil {
		return 0, err
	}
	if ret, _, err := procSetLayeredWindowAttributes.Call(uintptr(w.hwnd), uintptr(colorRef(keyColor)), 0, lwaColorKey); ret == 0 {
		log.Printf("SURFACE: SetLayeredWindowAttributes failed: %v", err)
	}
	if ret, _, err := procSetWindowDisplayAffinity.Call(uintptr(w.hwnd), wdaExcludeFromCapture); ret == 0 {
		log.Printf("SURFACE: capture surface stays visible to capture: %v", err)
	}
	win.ShowWindow(w.hwnd, win.SW_SHOWNOACTIVATE)
	return region.Handle(w.hwnd), nil
}

func (d *Desktop) Destroy(h region.Handle) error {
	hwnd := win.HWND(h)
	delete(d.windows, hwnd)
	if !win.DestroyWindow(hwnd) {
		return fmt.Errorf("DestroyWindow %#x failed", uintptr(h))
	}
	if d.frame != nil {
		win.InvalidateRect(d.frame.hwnd, nil, false)
	}
	return nil
}

func (d *Desktop) SetBounds(h region.Handle, r geometry.DeviceRect) error {
	if !win.SetWindowPos(win.HWND(h), 0, int32(r.Left), int32(r.Top), int32(r.Width()), int32(r.Height()),
		win.SWP_NOZORDER|win.SWP_NOACTIVATE) {
		return fmt.Errorf("SetWindowPos %#x failed", uintptr(h))
	}
	return nil
}

func (d *Desktop) Bounds(h region.Handle) (geometry.DeviceRect, error) {
	var rc win.RECT
	if !win.GetWindowRect(win.HWND(h), &rc) {
		return geometry.DeviceRect{}, fmt.Errorf("GetWindowRect %#x failed", uintptr(h))
	}
	return fromRECT(rc), nil
}

// Apply implements zorder.Platform with a single SetWindowPos call.
func (d *Desktop) Apply(op zorder.Op) error {
	flags := uint32(win.SWP_NOMOVE | win.SWP_NOSIZE)
	if op.Show {
		flags |= win.SWP_SHOWWINDOW
	}
	if op.Hide {
		flags |= win.SWP_HIDEWINDOW
	}
	if op.NoActivate {
		flags |= win.SWP_NOACTIVATE
	}
	target := win.HWND(op.Target)

	var after win.HWND
	switch op.Anchor.Kind {
	case zorder.Keep:
		flags |= win.SWP_NOZORDER
	case zorder.Top:
		after = hwndTop
	case zorder.Bottom:
		after = hwndBottom
	case zorder.After:
		// insert below the window currently above the anchor
		above, _, _ := procGetWindow.Call(uintptr(op.Anchor.Handle), gwHwndPrev)
		switch win.HWND(above) {
		case target:
			flags |= win.SWP_NOZORDER
		case 0:
			after = hwndTop
		default:
			after = win.HWND(above)
		}
	}
	if !win.SetWindowPos(target, after, 0, 0, 0, 0, flags) {
		return fmt.Errorf("SetWindowPos failed")
	}
	return nil
}

// Publish implements capture.Sink: the frame shows the latest capture in
// its interior, which is what gets shared.
func (d *Desktop) Publish(f capture.Frame) {
	if d.frame == nil || f.Image == nil {
		return
	}
	if err := d.fillBuffer(f.Image); err != nil {
		log.Printf("SURFACE: %v", err)
		return
	}
	win.InvalidateRect(d.frame.hwnd, nil, false)
}

func (d *Desktop) wndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	w := d.windows[hwnd]
	if w == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case wmDrain:
		d.opts.Queue.Drain()
		return 0

	case win.WM_NCCALCSIZE:
		if wParam != 0 {
			// client area covers the whole window; chrome is hit-tested
			return 0
		}

	case win.WM_NCHITTEST:
		return d.hitTest(w, lParam)

	case win.WM_WINDOWPOSCHANGED:
		d.onMoved(w)

	case win.WM_SIZE:
		d.onSize(w, wParam)

	case wmDPIChanged:
		d.onDPIChanged(w, wParam, lParam)
		return 0

	case win.WM_ACTIVATE:
		if w.role == region.RoleFrame && win.LOWORD(uint32(wParam)) != waInactive {
			d.post(d.ctrl.OnFrameActivated)
		}

	case win.WM_MOUSEACTIVATE:
		if w.role == region.RoleSeparation || d.ctrl.Mode() == session.Recording {
			return maNoActivate
		}

	case win.WM_LBUTTONDOWN:
		d.onClick(w, lParam)
		return 0

	case win.WM_PAINT:
		d.paint(w)
		return 0

	case win.WM_CLOSE:
		switch w.role {
		case region.RoleFrame:
			win.DestroyWindow(hwnd)
		case region.RoleCapture:
			d.post(d.stop)
		}
		return 0

	case win.WM_DESTROY:
		if w.role == region.RoleFrame {
			win.PostQuitMessage(0)
		}
		return 0
	}

	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

// post defers a gesture until the current message is handled, so session
// transitions never run inside SetWindowPos callbacks.
func (d *Desktop) post(fn func()) {
	if !d.opts.Queue.Post(fn) {
		log.Printf("SURFACE: queue closed, dropping gesture")
	}
}

func (d *Desktop) start() {
	if err := d.ctrl.StartRecording(); err != nil {
		log.Printf("SURFACE: start recording: %v", err)
	}
}

func (d *Desktop) stop() {
	if err := d.ctrl.StopRecording(); err != nil {
		log.Printf("SURFACE: stop recording: %v", err)
	}
}

func (d *Desktop) hitTest(w *window, lParam uintptr) uintptr {
	var rc win.RECT
	if !win.GetWindowRect(w.hwnd, &rc) {
		return uintptr(win.HTCLIENT)
	}
	pt := pointFromLParam(lParam)
	sf, ok := d.geom.Surface(w.role)
	if !ok {
		return uintptr(win.HTCLIENT)
	}
	state := hittest.Normal
	if w.minimized {
		state = hittest.Minimized
	}

	var r hittest.Region
	switch w.role {
	case region.RoleFrame:
		r = hittest.Classify(fromRECT(rc), pt, d.opts.Border, sf.Transforms, hittest.Options{
			State:     state,
			Resizable: d.ctrl.Mode() == session.Editing,
		})
	case region.RoleCapture:
		width := sf.Transforms.RectFromDevice(fromRECT(rc)).Width
		r = hittest.Classify(fromRECT(rc), pt, Grip, sf.Transforms, hittest.Options{
			State:       state,
			Resizable:   true,
			OverControl: overClose(width),
		})
	default:
		r = hittest.Client
	}
	return uintptr(r.Code())
}

func (d *Desktop) onMoved(w *window) {
	if w.role == region.RoleSeparation || isIconic(w.hwnd) {
		return
	}
	var rc win.RECT
	if !win.GetWindowRect(w.hwnd, &rc) {
		return
	}
	r := fromRECT(rc)
	if r == w.last {
		return
	}
	w.last = r
	switch w.role {
	case region.RoleFrame:
		d.placement = r
		d.geom.RequestFrameGeometry(r)
	case region.RoleCapture:
		d.geom.RequestCaptureGeometry(r)
	}
}

func (d *Desktop) onSize(w *window, wParam uintptr) {
	switch wParam {
	case sizeMinimized:
		w.minimized = true
		d.geom.OnMinimized(w.role)
	case sizeMaximized:
		hwnd := w.hwnd
		d.post(func() { win.ShowWindow(hwnd, win.SW_RESTORE) })
	case sizeRestored:
		if w.minimized {
			w.minimized = false
			d.geom.OnRestored(w.role)
		}
	}
	win.InvalidateRect(w.hwnd, nil, false)
}

func (d *Desktop) onDPIChanged(w *window, wParam, lParam uintptr) {
	dpi := int(win.HIWORD(uint32(wParam)))
	suggested := (*win.RECT)(unsafe.Pointer(lParam))
	win.SetWindowPos(w.hwnd, 0, suggested.Left, suggested.Top,
		suggested.Right-suggested.Left, suggested.Bottom-suggested.Top,
		win.SWP_NOZORDER|win.SWP_NOACTIVATE)
	d.geom.OnScaleChanged(w.role, geometry.ForDPI(dpi))
}

func (d *Desktop) onClick(w *window, lParam uintptr) {
	switch w.role {
	case region.RoleFrame:
		if d.ctrl.Mode() == session.Editing {
			d.post(d.start)
		} else {
			d.post(d.ctrl.OnSeparationPointerDown)
		}
	case region.RoleSeparation:
		d.post(d.ctrl.OnSeparationPointerDown)
	case region.RoleCapture:
		sf, ok := d.geom.Surface(region.RoleCapture)
		if !ok {
			return
		}
		p := sf.Transforms.VectorFromDevice(pointFromLParam(lParam))
		if overClose(sf.Bounds.Width)(p) {
			d.post(d.stop)
		}
	}
}

func (d *Desktop) paint(w *window) {
	var ps win.PAINTSTRUCT
	hdc := win.BeginPaint(w.hwnd, &ps)
	defer win.EndPaint(w.hwnd, &ps)

	var rc win.RECT
	win.GetClientRect(w.hwnd, &rc)
	client := fromRECT(rc)

	switch w.role {
	case region.RoleSeparation:
		fill(hdc, client, d.opts.Theme)

	case region.RoleCapture:
		sf, _ := d.geom.Surface(region.RoleCapture)
		fill(hdc, client, keyColor)
		fillBand(hdc, client, sf.Transforms.ThicknessToDevice(Grip), d.opts.Theme)
		box := sf.Transforms.RectToDevice(CloseBox(sf.Transforms.RectFromDevice(client).Width))
		fill(hdc, box, colornames.Crimson)

	case region.RoleFrame:
		sf, _ := d.geom.Surface(region.RoleFrame)
		interior := client.Deflate(sf.Transforms.ThicknessToDevice(d.opts.Border))
		fillBand(hdc, client, sf.Transforms.ThicknessToDevice(d.opts.Border), d.opts.Theme)

		mode := d.ctrl.Mode()
		if mode == session.Recording && d.buf.bmp != 0 {
			win.BitBlt(hdc, int32(interior.Left), int32(interior.Top),
				int32(min(interior.Width(), d.buf.width)), int32(min(interior.Height(), d.buf.height)),
				d.buf.dc, 0, 0, win.SRCCOPY)
		} else {
			fill(hdc, interior, colornames.Dimgray)
			win.SetBkMode(hdc, win.TRANSPARENT)
			win.SetTextColor(hdc, win.COLORREF(0xFFFFFF))
			textOut(hdc, interior.Left+12, interior.Top+12, "Click to start sharing this area.")
			textOut(hdc, interior.Left+12, interior.Top+34, "Share this window in your meeting app.")
		}
		win.SetBkMode(hdc, win.TRANSPARENT)
		win.SetTextColor(hdc, win.COLORREF(0xFFFFFF))
		textOut(hdc, 4, 0, Caption(d.opts.Title, mode, interior))
	}
}

func (d *Desktop) fillBuffer(img *image.RGBA) error {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if d.buf.bmp == 0 || d.buf.width != w || d.buf.height != h {
		d.releaseBuffer()
		dc := win.CreateCompatibleDC(0)
		if dc == 0 {
			return fmt.Errorf("CreateCompatibleDC failed")
		}
		bi := win.BITMAPINFO{
			BmiHeader: win.BITMAPINFOHEADER{
				BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
				BiWidth:       int32(w),
				BiHeight:      -int32(h),
				BiPlanes:      1,
				BiBitCount:    32,
				BiCompression: win.BI_RGB,
			},
		}
		var bits unsafe.Pointer
		bmp := win.CreateDIBSection(dc, &bi.BmiHeader, win.DIB_RGB_COLORS, &bits, 0, 0)
		if bmp == 0 {
			win.DeleteDC(dc)
			return fmt.Errorf("CreateDIBSection %dx%d failed", w, h)
		}
		d.buf = dib{
			dc:     dc,
			bmp:    bmp,
			old:    win.SelectObject(dc, win.HGDIOBJ(bmp)),
			bits:   unsafe.Slice((*byte)(bits), w*h*4),
			width:  w,
			height: h,
		}
	}
	toBGRA(d.buf.bits, img)
	return nil
}

func (d *Desktop) releaseBuffer() {
	if d.buf.dc == 0 {
		return
	}
	win.SelectObject(d.buf.dc, d.buf.old)
	win.DeleteObject(win.HGDIOBJ(d.buf.bmp))
	win.DeleteDC(d.buf.dc)
	d.buf = dib{}
}

func transformsFor(hwnd win.HWND) geometry.Transformations {
	if err := procGetDpiForWindow.Find(); err != nil {
		return geometry.IdentityTransformations()
	}
	dpi, _, _ := procGetDpiForWindow.Call(uintptr(hwnd))
	if dpi == 0 {
		return geometry.IdentityTransformations()
	}
	return geometry.ForDPI(int(dpi))
}

func isIconic(hwnd win.HWND) bool {
	ret, _, _ := procIsIconic.Call(uintptr(hwnd))
	return ret != 0
}

func fill(hdc win.HDC, r geometry.DeviceRect, c color.RGBA) {
	if r.Empty() {
		return
	}
	brush, _, _ := procCreateSolidBrush.Call(uintptr(colorRef(c)))
	if brush == 0 {
		return
	}
	rc := win.RECT{Left: int32(r.Left), Top: int32(r.Top), Right: int32(r.Right), Bottom: int32(r.Bottom)}
	procFillRect.Call(uintptr(hdc), uintptr(unsafe.Pointer(&rc)), brush)
	win.DeleteObject(win.HGDIOBJ(brush))
}

// fillBand paints the band of thickness t along the inside edges of r.
func fillBand(hdc win.HDC, r geometry.DeviceRect, t geometry.Thickness, c color.RGBA) {
	in := r.Deflate(t)
	fill(hdc, geometry.DeviceRect{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: in.Top}, c)
	fill(hdc, geometry.DeviceRect{Left: r.Left, Top: in.Bottom, Right: r.Right, Bottom: r.Bottom}, c)
	fill(hdc, geometry.DeviceRect{Left: r.Left, Top: in.Top, Right: in.Left, Bottom: in.Bottom}, c)
	fill(hdc, geometry.DeviceRect{Left: in.Right, Top: in.Top, Right: r.Right, Bottom: in.Bottom}, c)
}

func textOut(hdc win.HDC, x, y int, s string) {
	u, err := syscall.UTF16FromString(s)
	if err != nil || len(u) < 2 {
		return
	}
	win.TextOut(hdc, int32(x), int32(y), &u[0], int32(len(u)-1))
}

func colorRef(c color.RGBA) uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16
}

func fromRECT(rc win.RECT) geometry.DeviceRect {
	return geometry.DeviceRect{Left: int(rc.Left), Top: int(rc.Top), Right: int(rc.Right), Bottom: int(rc.Bottom)}
}

// pointFromLParam unpacks signed coordinates; secondary monitors may sit at
// negative positions.
func pointFromLParam(lParam uintptr) geometry.DevicePoint {
	return geometry.DevicePoint{
		X: int(int16(win.LOWORD(uint32(lParam)))),
		Y: int(int16(win.HIWORD(uint32(lParam)))),
	}
}
