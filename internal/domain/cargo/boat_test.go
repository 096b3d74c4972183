package cargo

import (
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestSyncMirrorUpdatesMatchingEntry(t *testing.T) {
	b := &Boat{Loads: []MirrorEntry{
		{ID: 1, Item: ptr("fish"), Weight: ptr(10.0)},
		{ID: 2, Item: ptr("crabs"), Weight: ptr(20.0)},
	}}
	changed := b.SyncMirror(MirrorEntry{ID: 2, Item: ptr("crabs"), Weight: ptr(25.0)}, false)
	if !changed {
		t.Fatalf("expected change")
	}
	if got := *b.Loads[1].Weight; got != 25 {
		t.Fatalf("weight: want=25 got=%v", got)
	}
	if got := *b.Loads[0].Weight; got != 10 {
		t.Fatalf("unrelated entry touched: %v", got)
	}
	if b.SyncMirror(MirrorEntry{ID: 2, Item: ptr("crabs"), Weight: ptr(25.0)}, false) {
		t.Fatalf("identical sync should report no change")
	}
}

func TestSyncMirrorMissingEntry(t *testing.T) {
	b := &Boat{Loads: []MirrorEntry{{ID: 1}}}
	if b.SyncMirror(MirrorEntry{ID: 9}, false) {
		t.Fatalf("ignore policy must not change loads")
	}
	if len(b.Loads) != 1 {
		t.Fatalf("len: want=1 got=%d", len(b.Loads))
	}
	if !b.SyncMirror(MirrorEntry{ID: 9, Self: "http://x/loads/9"}, true) {
		t.Fatalf("insert should report change")
	}
	if len(b.Loads) != 2 || b.Loads[1].ID != 9 {
		t.Fatalf("unexpected loads: %+v", b.Loads)
	}
}

func TestSyncMirrorCollapsesDuplicates(t *testing.T) {
	b := &Boat{Loads: []MirrorEntry{{ID: 3}, {ID: 4}, {ID: 3}, {ID: 5}}}
	b.SyncMirror(MirrorEntry{ID: 3, Item: ptr("x")}, false)
	if len(b.Loads) != 3 {
		t.Fatalf("len: want=3 got=%d (%+v)", len(b.Loads), b.Loads)
	}
	want := []int64{3, 4, 5}
	for i, id := range want {
		if b.Loads[i].ID != id {
			t.Fatalf("loads[%d]: want=%d got=%d", i, id, b.Loads[i].ID)
		}
	}
}

func TestRemoveMirror(t *testing.T) {
	b := &Boat{Loads: []MirrorEntry{{ID: 1}, {ID: 2}, {ID: 3}}}
	if n := b.RemoveMirror(2); n != 1 {
		t.Fatalf("removed: want=1 got=%d", n)
	}
	if len(b.Loads) != 2 || b.Loads[0].ID != 1 || b.Loads[1].ID != 3 {
		t.Fatalf("unexpected loads: %+v", b.Loads)
	}
	if n := b.RemoveMirror(42); n != 0 {
		t.Fatalf("missing id removed %d entries", n)
	}
	if len(b.Loads) != 2 {
		t.Fatalf("missing id must leave loads untouched: %+v", b.Loads)
	}
}

func TestBoatRoundTripKeepsEmptyLoads(t *testing.T) {
	b := &Boat{Name: ptr("Bubba Gump")}
	data, err := b.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeBoat(&Entity{ID: 7, Kind: KindBoat, Version: 3, Data: data})
	if err != nil {
		t.Fatalf("DecodeBoat: %v", err)
	}
	if got.ID != 7 || got.Version != 3 {
		t.Fatalf("identity not taken from entity: %+v", got)
	}
	if got.Loads == nil || len(got.Loads) != 0 {
		t.Fatalf("loads should decode as empty slice, got %#v", got.Loads)
	}
	ref := got.CarrierRef()
	if ref.ID != 7 || ref.Name != "Bubba Gump" {
		t.Fatalf("carrier ref: %+v", ref)
	}
}
