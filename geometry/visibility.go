package geometry

import "chimbori.dev/scrollshot/driver"

// FullyVisible reports whether an absolute CSS-pixel rect lies entirely inside the viewport when the
// page is scrolled down by scrollOffset CSS pixels.
func FullyVisible(r driver.Rect, viewport driver.Size, scrollOffset int) bool {
	top := r.Y - float64(scrollOffset)
	return r.X >= 0 &&
		r.X+r.Width <= float64(viewport.Width) &&
		top >= 0 &&
		top+r.Height <= float64(viewport.Height)
}
