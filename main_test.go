package main

import (
	"testing"

	"chimbori.dev/scrollshot/core"
	"chimbori.dev/scrollshot/db"
	"chimbori.dev/scrollshot/fullpage"
)

func TestPerformMaintenance_PrunesCache(t *testing.T) {
	previousCache, previousPool := fullpage.Cache, db.Pool
	t.Cleanup(func() { fullpage.Cache, db.Pool = previousCache, previousPool })

	db.Pool = nil
	fullpage.Cache = core.NewDiskCache(t.TempDir(), core.WithMaxSize(150))
	for _, key := range []string{"first", "second"} {
		if err := fullpage.Cache.Write(key, make([]byte, 100)); err != nil {
			t.Fatal(err)
		}
	}

	performMaintenance()

	remaining := 0
	for _, key := range []string{"first", "second"} {
		if found, _ := fullpage.Cache.Find(key); found != nil {
			remaining++
		}
	}
	if remaining != 1 {
		t.Errorf("Expected 1 cached result to survive, got %d", remaining)
	}
}

func TestPerformMaintenance_NothingConfigured(t *testing.T) {
	previousCache, previousPool := fullpage.Cache, db.Pool
	t.Cleanup(func() { fullpage.Cache, db.Pool = previousCache, previousPool })

	fullpage.Cache, db.Pool = nil, nil
	performMaintenance() // Must not panic.
}
