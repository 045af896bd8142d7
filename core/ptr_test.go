package core

import (
	"testing"
	"time"
)

func TestPtr(t *testing.T) {
	t.Run("bool", func(t *testing.T) {
		ptr := Ptr(true)
		if ptr == nil || *ptr != true {
			t.Errorf("Expected pointer to true, got %v", ptr)
		}
	})

	t.Run("duration", func(t *testing.T) {
		ptr := Ptr(500 * time.Millisecond)
		if *ptr != 500*time.Millisecond {
			t.Errorf("Expected 500ms, got %v", *ptr)
		}
	})

	t.Run("independent pointers", func(t *testing.T) {
		value := 10
		ptr1, ptr2 := Ptr(value), Ptr(value)
		if ptr1 == ptr2 || ptr1 == &value {
			t.Error("Expected a fresh pointer on every call")
		}
		value = 20
		if *ptr1 != 10 {
			t.Errorf("Expected 10 after modifying source, got %d", *ptr1)
		}
	})
}
