package geometry

// Set is an insertion-ordered collection of boxes that rejects duplicates under [BoundingBox.Same].
// Two distinct elements sharing a selector key and lying within [Tolerance] of each other are merged.
type Set struct {
	boxes []BoundingBox
	keys  map[string]int
}

func NewSet() *Set {
	return &Set{keys: make(map[string]int)}
}

// Add inserts b unless an equivalent box is already present, and reports whether it was added.
func (s *Set) Add(b BoundingBox) bool {
	if s.keys == nil {
		s.keys = make(map[string]int)
	}
	for _, existing := range s.boxes {
		if existing.Same(b) {
			return false
		}
	}
	s.boxes = append(s.boxes, b)
	s.keys[b.SelectorKey]++
	return true
}

// HasKey reports whether any box has been recorded for the selector key.
func (s *Set) HasKey(key string) bool {
	return s != nil && s.keys[key] > 0
}

// Len returns the number of boxes.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.boxes)
}

// Boxes returns a copy of the boxes in insertion order.
func (s *Set) Boxes() []BoundingBox {
	if s == nil {
		return []BoundingBox{}
	}
	out := make([]BoundingBox, len(s.boxes))
	copy(out, s.boxes)
	return out
}
