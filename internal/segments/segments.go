// Package segments implements component C, the Pending-Segment Planner
// (spec §4.C): given a branch path and a peg revision, walks the
// location-segments oracle once and trims the result against the
// Known-Branch Index so the exporter only has to replay the part of
// history not already exported. Ported field-for-field from
// original_source/svnex.py's PendingSegments.__init__.
//
// SPDX-License-Identifier: BSD-2-Clause
package segments

import (
	"github.com/svn-fex/svnfex/internal/branchindex"
	"github.com/svn-fex/svnfex/internal/revset"
)

// Segment is one (base, end] slice of a branch's history still to be
// replayed, rooted at Path (spec §4.C).
type Segment struct {
	Base, End int
	Path      string
}

// Plan is the ordered result of planning: Segments runs oldest->youngest
// (the reverse of the oracle's youngest->oldest delivery order). Base
// and GitBase record the resume anchor the exporter fast-forwards from
// when the walk met already-known history; Base is 0 and GitBase is
// empty when nothing was known and the branch must be built from
// scratch.
type Plan struct {
	Segments []Segment
	Base     int
	BasePath string
	GitBase  string
}

// Build walks branch's location history backward from rev via source,
// stopping as soon as a returned segment's path has a known run
// overlapping it. Matches original_source/svnex.py's
// PendingSegments.__init__: for the first oracle segment whose path has
// a known run reaching at least that segment's start, record the
// resume anchor (and, if that run doesn't already cover the segment's
// end, append the remaining (base, end] slice), then stop; every
// earlier (more-recent, since the oracle walks youngest->oldest)
// segment with no such run is appended in full as (start-1, end].
func Build(index *branchindex.BranchIndex, source revset.SegmentSource, branch string, rev int) (*Plan, error) {
	oracleSegments, err := source.LocationSegments(branch, rev)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	for _, seg := range oracleSegments {
		lastRev, gitref, ok := index.LastKnown(seg.Path, seg.End)
		if ok && lastRev >= seg.Start {
			if lastRev < seg.End {
				plan.Segments = append(plan.Segments, Segment{Base: lastRev, End: seg.End, Path: seg.Path})
			}
			plan.Base = lastRev
			plan.BasePath = seg.Path
			plan.GitBase = gitref
			reverse(plan.Segments)
			return plan, nil
		}
		plan.Segments = append(plan.Segments, Segment{Base: seg.Start - 1, End: seg.End, Path: seg.Path})
	}

	reverse(plan.Segments)
	return plan, nil
}

func reverse(s []Segment) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
