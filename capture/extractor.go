package capture

import (
	"time"

	"chimbori.dev/scrollshot/driver"
	"chimbori.dev/scrollshot/geometry"
)

// Extractor turns viewport-relative CSS rects into absolute device-pixel bounding boxes.
type Extractor struct {
	DPR          float64
	ChromeOffset int // Device pixels of native chrome above the content; zero outside hybrid runs.
	Platform     string
	Now          func() time.Time
}

// Absolute compensates a viewport-relative rect for the content already scrolled past.
func (e Extractor) Absolute(r driver.Rect, scrollOffset int) driver.Rect {
	r.Y += float64(scrollOffset)
	return r
}

// Box converts an absolute CSS rect to a device-pixel bounding box.
func (e Extractor) Box(abs driver.Rect, key string, chunkIndex int, purpose geometry.Purpose) geometry.BoundingBox {
	x, y, w, h := geometry.ToDevice(abs, e.DPR)
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return geometry.BoundingBox{
		SelectorKey: key,
		X:           x,
		Y:           y + e.ChromeOffset,
		Width:       w,
		Height:      h,
		ChunkIndex:  chunkIndex,
		Timestamp:   now(),
		Platform:    e.Platform,
		Purpose:     purpose,
	}
}
