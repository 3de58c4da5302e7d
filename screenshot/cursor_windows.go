//go:build windows

package screenshot

import (
	"fmt"
	"image"
	"sync"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"region-share/capture"
	"region-share/geometry"
)

const (
	cursorShowing = 0x00000001
	diNormal      = 0x0003
	smCxCursor    = 13
	smCyCursor    = 14
)

var (
	user32            = windows.NewLazySystemDLL("user32.dll")
	procGetCursorInfo = user32.NewProc("GetCursorInfo")
	procDrawIconEx    = user32.NewProc("DrawIconEx")

	gdi32        = windows.NewLazySystemDLL("gdi32.dll")
	procGdiFlush = gdi32.NewProc("GdiFlush")
)

type cursorInfo struct {
	CbSize      uint32
	Flags       uint32
	HCursor     uintptr
	PtScreenPos win.POINT
}

// CursorSource samples the system pointer. The rendered icon is cached per
// cursor handle.
type CursorSource struct {
	mu     sync.Mutex
	handle uintptr
	icon   *image.RGBA
}

func NewCursorSource() *CursorSource { return &CursorSource{} }

func (c *CursorSource) Cursor() (capture.Cursor, error) {
	var ci cursorInfo
	ci.CbSize = uint32(unsafe.Sizeof(ci))
	if ret, _, err := procGetCursorInfo.Call(uintptr(unsafe.Pointer(&ci))); ret == 0 {
		return capture.Cursor{}, fmt.Errorf("GetCursorInfo: %w", err)
	}
	if ci.Flags&cursorShowing == 0 || ci.HCursor == 0 {
		return capture.Cursor{}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != ci.HCursor || c.icon == nil {
		icon, err := renderCursor(ci.HCursor)
		if err != nil {
			return capture.Cursor{}, err
		}
		c.handle, c.icon = ci.HCursor, icon
	}

	return capture.Cursor{
		Visible:  true,
		Position: geometry.DevicePoint{X: int(ci.PtScreenPos.X), Y: int(ci.PtScreenPos.Y)},
		Icon:     c.icon,
	}, nil
}

// renderCursor draws the cursor once on black and once on white. The
// difference yields the alpha channel and the black pass is already the
// premultiplied color.
func renderCursor(h uintptr) (*image.RGBA, error) {
	w := int(win.GetSystemMetrics(smCxCursor))
	ht := int(win.GetSystemMetrics(smCyCursor))
	if w <= 0 || ht <= 0 {
		w, ht = 32, 32
	}

	black, err := drawCursor(h, w, ht, 0x00)
	if err != nil {
		return nil, err
	}
	white, err := drawCursor(h, w, ht, 0xff)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, w, ht))
	for i := 0; i+3 < len(img.Pix); i += 4 {
		// DIB is BGRA
		b0, g0, r0 := black[i], black[i+1], black[i+2]
		a := 255 - int(white[i+1]) + int(g0)
		if a < 0 {
			a = 0
		} else if a > 255 {
			a = 255
		}
		img.Pix[i] = min(r0, uint8(a))
		img.Pix[i+1] = min(g0, uint8(a))
		img.Pix[i+2] = min(b0, uint8(a))
		img.Pix[i+3] = uint8(a)
	}
	return img, nil
}

func drawCursor(h uintptr, w, ht int, bg byte) ([]byte, error) {
	screenDC := win.GetDC(0)
	if screenDC == 0 {
		return nil, fmt.Errorf("GetDC failed")
	}
	defer win.ReleaseDC(0, screenDC)

	memDC := win.CreateCompatibleDC(screenDC)
	if memDC == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer win.DeleteDC(memDC)

	bi := win.BITMAPINFOHEADER{
		BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
		BiWidth:       int32(w),
		BiHeight:      -int32(ht),
		BiPlanes:      1,
		BiBitCount:    32,
		BiCompression: win.BI_RGB,
	}
	var bits unsafe.Pointer
	bmp := win.CreateDIBSection(memDC, &bi, win.DIB_RGB_COLORS, &bits, 0, 0)
	if bmp == 0 || bits == nil {
		return nil, fmt.Errorf("CreateDIBSection failed")
	}
	defer win.DeleteObject(win.HGDIOBJ(bmp))

	old := win.SelectObject(memDC, win.HGDIOBJ(bmp))
	defer win.SelectObject(memDC, old)

	buf := unsafe.Slice((*byte)(bits), w*ht*4)
	for i := range buf {
		buf[i] = bg
	}
	if ret, _, err := procDrawIconEx.Call(uintptr(memDC), 0, 0, h, uintptr(w), uintptr(ht), 0, 0, diNormal); ret == 0 {
		return nil, fmt.Errorf("DrawIconEx: %w", err)
	}
	_, _, _ = procGdiFlush.Call()

	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}
