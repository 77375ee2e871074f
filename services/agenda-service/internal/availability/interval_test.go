package availability

import (
	"testing"
	"time"
)

func TestOverlaps(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, 2, 3, h, m, 0, 0, time.UTC)
	}

	if !Overlaps(at(9, 0), at(10, 0), at(9, 30), at(10, 30)) {
		t.Fatal("partial intersection should overlap")
	}
	if !Overlaps(at(9, 0), at(12, 0), at(10, 0), at(11, 0)) {
		t.Fatal("containment should overlap")
	}
	if !Overlaps(at(9, 0), at(10, 0), at(9, 0), at(10, 0)) {
		t.Fatal("identical intervals should overlap")
	}
	if Overlaps(at(9, 0), at(10, 0), at(10, 0), at(11, 0)) {
		t.Fatal("touching endpoints must not overlap (half-open)")
	}
	if Overlaps(at(10, 0), at(11, 0), at(9, 0), at(10, 0)) {
		t.Fatal("touching endpoints must not overlap (half-open, reversed)")
	}
	if Overlaps(at(9, 0), at(10, 0), at(11, 0), at(12, 0)) {
		t.Fatal("disjoint intervals must not overlap")
	}
}

func TestOverlapsAny(t *testing.T) {
	at := func(h int) time.Time {
		return time.Date(2026, 2, 3, h, 0, 0, 0, time.UTC)
	}
	busy := []Interval{
		{Start: at(9), End: at(10)},
		{Start: at(14), End: at(15)},
	}
	if !overlapsAny(at(9), at(11), busy) {
		t.Fatal("expected overlap with first interval")
	}
	if overlapsAny(at(10), at(14), busy) {
		t.Fatal("gap between intervals should be free")
	}
	if overlapsAny(at(11), at(12), nil) {
		t.Fatal("empty busy list should never overlap")
	}
}
