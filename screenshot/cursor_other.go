//go:build !windows

package screenshot

import "region-share/capture"

// CursorSource reports a hidden pointer on platforms without cursor
// sampling.
type CursorSource struct{}

func NewCursorSource() *CursorSource { return &CursorSource{} }

func (*CursorSource) Cursor() (capture.Cursor, error) { return capture.Cursor{}, nil }
