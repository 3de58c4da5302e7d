package tray

import (
	"bytes"
	"encoding/binary"
	"image/color"
)

const iconSize = 16

// Icon renders a 16x16 32-bit ICO: a frame outline in c around a
// transparent interior, matching what the application puts on screen.
func Icon(c color.RGBA) []byte {
	if c.A == 0 {
		c = color.RGBA{0x46, 0x82, 0xb4, 0xff}
	}
	const (
		pixelBytes = iconSize * iconSize * 4
		maskBytes  = iconSize * 4 // 1bpp rows padded to 32 bits
		headerSize = 40
		dataSize   = headerSize + pixelBytes + maskBytes
	)

	var buf bytes.Buffer
	w := func(v any) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	// ICONDIR
	w(uint16(0))
	w(uint16(1))
	w(uint16(1))
	// ICONDIRENTRY
	buf.WriteByte(iconSize)
	buf.WriteByte(iconSize)
	buf.WriteByte(0)
	buf.WriteByte(0)
	w(uint16(1))
	w(uint16(32))
	w(uint32(dataSize))
	w(uint32(6 + 16))
	// BITMAPINFOHEADER, height doubled for XOR + AND mask
	w(uint32(headerSize))
	w(int32(iconSize))
	w(int32(iconSize * 2))
	w(uint16(1))
	w(uint16(32))
	w(uint32(0))
	w(uint32(pixelBytes + maskBytes))
	w(int32(0))
	w(int32(0))
	w(uint32(0))
	w(uint32(0))

	// BGRA rows, bottom-up
	for y := iconSize - 1; y >= 0; y-- {
		for x := 0; x < iconSize; x++ {
			if onFrame(x, y) {
				buf.Write([]byte{c.B, c.G, c.R, 0xff})
			} else {
				buf.Write([]byte{0, 0, 0, 0})
			}
		}
	}
	// AND mask unused with 32-bit alpha
	buf.Write(make([]byte, maskBytes))
	return buf.Bytes()
}

// onFrame draws a 2px border with a thicker top band, like the frame's
// caption.
func onFrame(x, y int) bool {
	return x <= 1 || x >= iconSize-2 || y <= 3 || y >= iconSize-2
}
