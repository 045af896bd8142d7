// Package geometry holds bounding boxes in device pixels, their position-tolerant identity, and the
// viewport visibility test.
package geometry

import (
	"fmt"
	"math"
	"time"

	"chimbori.dev/scrollshot/driver"
)

// Purpose classifies a detected element for the downstream comparison.
type Purpose string

const (
	Ignore Purpose = "ignore" // Excluded from comparison.
	Select Purpose = "select" // Included / highlighted.
)

// ParsePurpose accepts “ignore” or “select”; anything else is an error.
func ParsePurpose(s string) (Purpose, error) {
	switch Purpose(s) {
	case Ignore, Select:
		return Purpose(s), nil
	case "":
		return Ignore, nil
	default:
		return "", fmt.Errorf("unknown purpose %q", s)
	}
}

// Tolerance is the per-axis distance, in device pixels, under which two boxes with the same selector
// key are considered the same element.
const Tolerance = 10

// BoundingBox is an element's absolute position on the full page, in device pixels.
type BoundingBox struct {
	SelectorKey string    `json:"selectorKey"`
	X           int       `json:"x"`
	Y           int       `json:"y"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	ChunkIndex  int       `json:"chunkIndex"`
	Timestamp   time.Time `json:"timestamp"`
	Platform    string    `json:"platform"`
	Purpose     Purpose   `json:"purpose"`
}

// Same reports whether two boxes identify the same logical element.
func (b BoundingBox) Same(other BoundingBox) bool {
	return b.SelectorKey == other.SelectorKey &&
		abs(b.X-other.X) < Tolerance &&
		abs(b.Y-other.Y) < Tolerance
}

// ToDevice converts a CSS-pixel rect to device pixels by flooring each coordinate multiplied by dpr.
// Negative results are clamped to zero.
func ToDevice(r driver.Rect, dpr float64) (x, y, width, height int) {
	return scale(r.X, dpr), scale(r.Y, dpr), scale(r.Width, dpr), scale(r.Height, dpr)
}

func scale(v, dpr float64) int {
	d := int(math.Floor(v * dpr))
	if d < 0 {
		return 0
	}
	return d
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
