package audit

import "testing"

func TestRingBeforeWraparound(t *testing.T) {
	r := NewRing(4)
	for i := 0; i < 3; i++ {
		r.Add(Entry{SessionID: uint32(i)})
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot() len = %d, want 3", len(snap))
	}
	for i, e := range snap {
		if e.SessionID != uint32(i) {
			t.Fatalf("snap[%d].SessionID = %d, want %d", i, e.SessionID, i)
		}
	}
}

func TestRingWraparoundOverwritesOldest(t *testing.T) {
	r := NewRing(4)
	for i := 0; i < 6; i++ {
		r.Add(Entry{SessionID: uint32(i)})
	}
	if r.Len() != 4 {
		t.Fatalf("Len() = %d, want capacity 4 once full", r.Len())
	}
	snap := r.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("Snapshot() len = %d, want 4", len(snap))
	}
	// Entries 0 and 1 were overwritten; the ring should hold 2..5 in order.
	want := []uint32{2, 3, 4, 5}
	for i, e := range snap {
		if e.SessionID != want[i] {
			t.Fatalf("snap[%d].SessionID = %d, want %d", i, e.SessionID, want[i])
		}
	}
}

func TestNewRingFallsBackToDefaultCapacity(t *testing.T) {
	r := NewRing(0)
	if r.cap != DefaultCapacity {
		t.Fatalf("cap = %d, want %d", r.cap, DefaultCapacity)
	}
	r = NewRing(-5)
	if r.cap != DefaultCapacity {
		t.Fatalf("cap = %d, want %d", r.cap, DefaultCapacity)
	}
}

func TestLenNeverExceedsCapacity(t *testing.T) {
	r := NewRing(2)
	for i := 0; i < 100; i++ {
		r.Add(Entry{SessionID: uint32(i)})
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
}
