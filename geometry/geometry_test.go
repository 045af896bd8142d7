package geometry

import (
	"testing"

	"chimbori.dev/scrollshot/driver"
)

func TestToDevice(t *testing.T) {
	t.Run("identity at 1x", func(t *testing.T) {
		x, y, w, h := ToDevice(driver.Rect{X: 12, Y: 345, Width: 67, Height: 8}, 1.0)
		if x != 12 || y != 345 || w != 67 || h != 8 {
			t.Errorf("Expected identity, got %d,%d,%d,%d", x, y, w, h)
		}
	})

	t.Run("floors fractional results", func(t *testing.T) {
		x, y, w, h := ToDevice(driver.Rect{X: 10.5, Y: 3.3, Width: 100.9, Height: 0.2}, 2.625)
		if x != 27 || y != 8 || w != 264 || h != 0 {
			t.Errorf("Unexpected conversion: %d,%d,%d,%d", x, y, w, h)
		}
	})

	t.Run("clamps negatives", func(t *testing.T) {
		x, y, _, _ := ToDevice(driver.Rect{X: -4, Y: -0.1, Width: 10, Height: 10}, 3.0)
		if x != 0 || y != 0 {
			t.Errorf("Expected clamped coordinates, got %d,%d", x, y)
		}
	})
}

func TestBoundingBoxSame(t *testing.T) {
	base := BoundingBox{SelectorKey: "css:.ad", X: 100, Y: 200}
	tests := []struct {
		name  string
		other BoundingBox
		want  bool
	}{
		{"identical", BoundingBox{SelectorKey: "css:.ad", X: 100, Y: 200}, true},
		{"within tolerance", BoundingBox{SelectorKey: "css:.ad", X: 109, Y: 191}, true},
		{"x at tolerance", BoundingBox{SelectorKey: "css:.ad", X: 110, Y: 200}, false},
		{"y beyond tolerance", BoundingBox{SelectorKey: "css:.ad", X: 100, Y: 215}, false},
		{"different key", BoundingBox{SelectorKey: "css:.banner", X: 100, Y: 200}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Same(tt.other); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSet(t *testing.T) {
	s := NewSet()
	if !s.Add(BoundingBox{SelectorKey: "id:ok", X: 10, Y: 10}) {
		t.Fatal("Expected first box to be added")
	}
	if s.Add(BoundingBox{SelectorKey: "id:ok", X: 15, Y: 19, ChunkIndex: 1}) {
		t.Error("Expected nearby box with same key to be rejected")
	}
	if !s.Add(BoundingBox{SelectorKey: "id:ok", X: 10, Y: 500}) {
		t.Error("Expected distant box with same key to be added")
	}
	if !s.Add(BoundingBox{SelectorKey: "id:cancel", X: 10, Y: 10}) {
		t.Error("Expected box with another key to be added")
	}
	if s.Len() != 3 {
		t.Errorf("Expected 3 boxes, got %d", s.Len())
	}
	if !s.HasKey("id:ok") || s.HasKey("id:missing") {
		t.Error("HasKey returned unexpected result")
	}
	boxes := s.Boxes()
	boxes[0].X = 999
	if s.Boxes()[0].X != 10 {
		t.Error("Boxes must return a copy")
	}

	var zero Set
	if !zero.Add(BoundingBox{SelectorKey: "css:x"}) || zero.Len() != 1 {
		t.Error("Expected zero Set to be usable")
	}
}

func TestFullyVisible(t *testing.T) {
	viewport := driver.Size{Width: 400, Height: 800}
	tests := []struct {
		name   string
		rect   driver.Rect
		offset int
		want   bool
	}{
		{"inside", driver.Rect{X: 0, Y: 0, Width: 400, Height: 800}, 0, true},
		{"below fold", driver.Rect{X: 0, Y: 790, Width: 10, Height: 20}, 0, false},
		{"scrolled into view", driver.Rect{X: 0, Y: 790, Width: 10, Height: 20}, 640, true},
		{"scrolled past", driver.Rect{X: 0, Y: 100, Width: 10, Height: 20}, 640, false},
		{"overflows right", driver.Rect{X: 395, Y: 10, Width: 10, Height: 10}, 0, false},
		{"negative x", driver.Rect{X: -1, Y: 10, Width: 10, Height: 10}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FullyVisible(tt.rect, viewport, tt.offset); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParsePurpose(t *testing.T) {
	if p, err := ParsePurpose(""); err != nil || p != Ignore {
		t.Errorf("Expected default ignore, got %q (%v)", p, err)
	}
	if p, err := ParsePurpose("select"); err != nil || p != Select {
		t.Errorf("Expected select, got %q (%v)", p, err)
	}
	if _, err := ParsePurpose("highlight"); err == nil {
		t.Error("Expected error for unknown purpose")
	}
}
