// SPDX-License-Identifier: BSD-2-Clause
package revset

import "testing"

func rangesOf(rs *RevisionSet, branch string) []Range {
	return rs.Ranges(branch)
}

func assertRanges(t *testing.T, got []Range, want ...Range) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("ranges = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ranges = %v, want %v", got, want)
		}
	}
}

func TestAddSegmentCoalescesAbuttingNeighbors(t *testing.T) {
	rs := New()
	rs.AddSegment("trunk", 1, 3)
	rs.AddSegment("trunk", 5, 7)
	// 5-7 does not abut 1-3: 3 and 5 are 2 apart, so both ranges stay.
	assertRanges(t, rangesOf(rs, "trunk"), Range{1, 3, true}, Range{5, 7, true})

	rs.AddSegment("trunk", 4, 4)
	assertRanges(t, rangesOf(rs, "trunk"), Range{1, 7, true})
}

func TestAddSegmentOverlapping(t *testing.T) {
	rs := New()
	rs.AddSegment("trunk", 1, 5)
	rs.AddSegment("trunk", 3, 8)
	assertRanges(t, rangesOf(rs, "trunk"), Range{1, 8, true})
}

func TestAddSegmentIdempotent(t *testing.T) {
	rs := New()
	rs.AddSegment("trunk", 1, 5)
	rs.AddSegment("trunk", 1, 5)
	assertRanges(t, rangesOf(rs, "trunk"), Range{1, 5, true})
}

func TestAddSegmentAbsorbsMultipleRightNeighbors(t *testing.T) {
	rs := New()
	rs.AddSegment("trunk", 10, 10)
	rs.AddSegment("trunk", 20, 20)
	rs.AddSegment("trunk", 30, 30)
	rs.AddSegment("trunk", 1, 25)
	assertRanges(t, rangesOf(rs, "trunk"), Range{1, 25, true}, Range{30, 30, true})
}

func TestEqualIndependentOfInsertionOrder(t *testing.T) {
	a := New()
	a.AddSegment("trunk", 1, 3)
	a.AddSegment("trunk", 7, 9)

	b := New()
	b.AddSegment("trunk", 7, 9)
	b.AddSegment("trunk", 1, 3)

	if !a.Equal(b) {
		t.Error("expected equal RevisionSets regardless of insertion order")
	}
}

func TestEqualDiffersOnDistinctBranches(t *testing.T) {
	a := New()
	a.AddSegment("trunk", 1, 3)
	b := New()
	b.AddSegment("branch", 1, 3)
	if a.Equal(b) {
		t.Error("did not expect RevisionSets over different branches to be equal")
	}
}

func TestUpdateCopies(t *testing.T) {
	a := New()
	a.AddSegment("trunk", 1, 3)

	b := New()
	b.Update(a)
	a.AddSegment("trunk", 10, 10)

	assertRanges(t, rangesOf(b, "trunk"), Range{1, 3, true})
}

// fakeSegmentSource implements SegmentSource with a fixed table of
// (branch, rev) -> youngest->oldest segments, for testing Ancestors in
// isolation of a real log.
type fakeSegmentSource map[string][]LocationSegment

func (f fakeSegmentSource) LocationSegments(branch string, rev int) ([]LocationSegment, error) {
	return f[branch], nil
}

func TestAncestorsAddNaturalStopsOnKnownStart(t *testing.T) {
	source := fakeSegmentSource{
		"branch": {{Start: 5, End: 9, Path: "branch"}, {Start: 1, End: 4, Path: "trunk"}},
	}
	anc := NewAncestors(source)
	if err := anc.AddNatural("branch", 9); err != nil {
		t.Fatalf("AddNatural: %v", err)
	}
	assertRanges(t, anc.Ranges("/branch"), Range{5, 9, true})
	assertRanges(t, anc.Ranges("/trunk"), Range{1, 4, true})

	// Second call with a segment starting at the exact same point should
	// stop without re-walking further ancestors.
	anc2 := NewAncestors(source)
	anc2.AddSegment("/branch", 5, 9)
	if err := anc2.AddNatural("branch", 9); err != nil {
		t.Fatalf("AddNatural: %v", err)
	}
	if len(anc2.Ranges("/trunk")) != 0 {
		t.Errorf("expected the walk to stop before reaching /trunk, got %v", anc2.Ranges("/trunk"))
	}
}
