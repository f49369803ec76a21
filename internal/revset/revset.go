// Package revset implements component A of the exporter: RevisionSet
// and Ancestors (spec §3, §4.A). A RevisionSet maps a branch path to a
// sorted, non-overlapping, non-abutting list of closed integer ranges.
// Ported from original_source/svnex.py's RevisionSet/Ancestors classes;
// the Python bisect_left/bisect_right dance over a per-branch list is
// replaced here by github.com/emirpasic/gods/trees/redblacktree, keyed
// by each range's start revision, so Floor/Ceiling do the neighbor
// lookup in place of hand-rolled binary search.
//
// SPDX-License-Identifier: BSD-2-Clause
package revset

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// Range is a closed-closed integer revision range with an
// inheritability flag (spec GLOSSARY: "Inheritable range").
type Range struct {
	Start, End  int
	Inheritable bool
}

// RevisionSet maps branch path to its sorted range list.
type RevisionSet struct {
	branches map[string]*redblacktree.Tree
}

// New returns an empty RevisionSet.
func New() *RevisionSet {
	return &RevisionSet{branches: make(map[string]*redblacktree.Tree)}
}

func (rs *RevisionSet) tree(branch string) *redblacktree.Tree {
	t, ok := rs.branches[branch]
	if !ok {
		t = redblacktree.NewWithIntComparator()
		rs.branches[branch] = t
	}
	return t
}

// Ranges returns the sorted ranges recorded for branch.
func (rs *RevisionSet) Ranges(branch string) []Range {
	t, ok := rs.branches[branch]
	if !ok {
		return nil
	}
	out := make([]Range, 0, t.Size())
	it := t.Iterator()
	for it.Next() {
		r := it.Value().(Range)
		out = append(out, r)
	}
	return out
}

// AddSegment inserts [start,end] into branch's ranges, coalescing with
// a left neighbor whose end abuts or overlaps start, and a right
// neighbor whose start abuts or overlaps end. Idempotent: re-adding an
// already-covered range is a no-op on the stored structure.
func (rs *RevisionSet) AddSegment(branch string, start, end int) {
	t := rs.tree(branch)

	if node, found := t.Floor(start); found {
		left := node.Value.(Range)
		if left.End+1 >= start {
			start = left.Start
			if left.End > end {
				end = left.End
			}
			t.Remove(node.Key)
		}
	}

	// Absorb every range whose start falls within [start, end+1],
	// extending end to cover the widest absorbed range.
	for {
		node, found := t.Ceiling(start)
		if !found {
			break
		}
		right := node.Value.(Range)
		if right.Start > end+1 {
			break
		}
		if right.End > end {
			end = right.End
		}
		t.Remove(node.Key)
	}

	t.Put(start, Range{Start: start, End: end, Inheritable: true})
}

// Update replaces rs's contents with a shallow copy of other's ranges.
func (rs *RevisionSet) Update(other *RevisionSet) {
	rs.branches = make(map[string]*redblacktree.Tree, len(other.branches))
	for branch, t := range other.branches {
		clone := redblacktree.NewWithIntComparator()
		it := t.Iterator()
		for it.Next() {
			clone.Put(it.Key(), it.Value())
		}
		rs.branches[branch] = clone
	}
}

// Equal compares the full branch->ranges mapping structurally.
func (rs *RevisionSet) Equal(other *RevisionSet) bool {
	if len(rs.branches) != len(other.branches) {
		return false
	}
	for branch, t := range rs.branches {
		ot, ok := other.branches[branch]
		if !ok || t.Size() != ot.Size() {
			return false
		}
		it := t.Iterator()
		oit := ot.Iterator()
		for it.Next() {
			if !oit.Next() {
				return false
			}
			a := it.Value().(Range)
			b := oit.Value().(Range)
			if a != b {
				return false
			}
		}
	}
	return true
}

// LocationSegment is one (start, end, path) triple as produced
// youngest->oldest by the location-segments oracle (spec §6).
type LocationSegment struct {
	Start, End int
	Path       string
}

// SegmentSource supplies the location-history walk that Ancestors.AddNatural
// drives (spec §4.A: "calls the location-segment oracle (§6)").
type SegmentSource interface {
	LocationSegments(branch string, rev int) ([]LocationSegment, error)
}

// Ancestors is a RevisionSet built by walking location segments, used
// by the exporter's merge-parent discovery (spec §4.H).
type Ancestors struct {
	RevisionSet
	source SegmentSource
}

// NewAncestors returns an empty Ancestors bound to source.
func NewAncestors(source SegmentSource) *Ancestors {
	return &Ancestors{RevisionSet: *New(), source: source}
}

// AddNatural walks branch's location history backward from rev,
// inserting (start, end, true) per returned segment. Segments arrive
// youngest->oldest; insertion stops (the "stop" signal of spec §3/§9)
// as soon as a segment's start exactly matches an already-recorded
// range start, meaning that ancestor chain is already known.
func (a *Ancestors) AddNatural(branch string, rev int) error {
	segments, err := a.source.LocationSegments(branch, rev)
	if err != nil {
		return err
	}
	for _, seg := range segments {
		path := "/" + seg.Path
		if a.onSegment(path, seg.Start, seg.End) {
			return nil
		}
	}
	return nil
}

// onSegment reports whether the walk should stop.
func (a *Ancestors) onSegment(path string, start, end int) bool {
	t := a.tree(path)
	if node, found := t.Ceiling(start); found {
		r := node.Value.(Range)
		if r.Start == start {
			if end > r.End {
				t.Put(node.Key, Range{Start: r.Start, End: end, Inheritable: r.Inheritable})
			}
			return true
		}
	}
	t.Put(start, Range{Start: start, End: end, Inheritable: true})
	return false
}
