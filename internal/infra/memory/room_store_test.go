package memory

import (
	"testing"
	"time"
)

func TestRoomStoreLifecycle(t *testing.T) {
	store := NewRoomStore()

	room := store.GetOrCreate("room-1")
	if room == nil {
		t.Fatalf("expected room")
	}
	if again := store.GetOrCreate("room-1"); again != room {
		t.Fatalf("expected idempotent creation")
	}
	if _, ok := store.Get("room-1"); !ok {
		t.Fatalf("expected room present")
	}
	if _, ok := store.Get("room-2"); ok {
		t.Fatalf("unexpected room")
	}
}

func TestRoomStoreDeleteIdle(t *testing.T) {
	store := NewRoomStore()
	store.GetOrCreate("room-1")

	if n := store.DeleteIdle(time.Now().Add(-time.Hour)); n != 0 {
		t.Fatalf("active room evicted, n=%d", n)
	}
	if _, ok := store.Get("room-1"); !ok {
		t.Fatalf("expected active room kept")
	}

	// A cutoff after the room's last activity evicts it.
	if n := store.DeleteIdle(time.Now().Add(time.Minute)); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, ok := store.Get("room-1"); ok {
		t.Fatalf("expected idle room removed")
	}
}
