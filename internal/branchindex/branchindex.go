// Package branchindex implements component B, the Known-Branch Index
// (spec §3, §4.B): for each branch path, the sorted maximal runs of
// already-exported SVN revisions, each paired with the Git mark/sha
// that revision was exported as. Also loads the revision-map file
// (spec §6) that seeds it for incremental runs.
//
// Ported from original_source/svnex.py's Exporter.__init__ (rev_map
// parsing into known_branches) and the remember/lookup logic inlined
// in Exporter.export and PendingSegments.__init__. The per-branch
// bisect_left/bisect_right over a Python list becomes a
// github.com/emirpasic/gods/trees/redblacktree keyed by each run's
// first SVN revision, giving Floor (the "last run starting at or
// before rev" lookup PendingSegments needs) for free.
//
// SPDX-License-Identifier: BSD-2-Clause
package branchindex

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/trees/redblacktree"

	"github.com/svn-fex/svnfex/internal/svnerr"
)

// run is a maximal contiguous block of exported SVN revisions,
// starting at the tree key, each paired with its Git ref.
type run struct {
	refs []string
}

// BranchIndex is component B.
type BranchIndex struct {
	branches map[string]*redblacktree.Tree
}

// New returns an empty BranchIndex.
func New() *BranchIndex {
	return &BranchIndex{branches: make(map[string]*redblacktree.Tree)}
}

func (bi *BranchIndex) tree(branch string) *redblacktree.Tree {
	t, ok := bi.branches[branch]
	if !ok {
		t = redblacktree.NewWithIntComparator()
		bi.branches[branch] = t
	}
	return t
}

// Remember records that svnrev on branch was exported as gitref,
// extending the preceding run when it ends exactly at svnrev-1, else
// starting a new one-element run (spec §4.B).
func (bi *BranchIndex) Remember(branch string, svnrev int, gitref string) {
	t := bi.tree(branch)
	if node, found := t.Floor(svnrev); found {
		start := node.Key.(int)
		r := node.Value.(*run)
		if start+len(r.refs) == svnrev {
			r.refs = append(r.refs, gitref)
			return
		}
	}
	t.Put(svnrev, &run{refs: []string{gitref}})
}

// LastKnown returns, for the run covering or immediately preceding
// rev, its last exported revision and the Git ref for that revision.
// ok is false when nothing is known at or before rev on branch.
func (bi *BranchIndex) LastKnown(branch string, rev int) (lastRev int, gitref string, ok bool) {
	t, exists := bi.branches[branch]
	if !exists {
		return 0, "", false
	}
	node, found := t.Floor(rev)
	if !found {
		return 0, "", false
	}
	start := node.Key.(int)
	r := node.Value.(*run)
	last := start + len(r.refs) - 1
	return last, r.refs[len(r.refs)-1], true
}

// Lookup returns the Git ref exported for branch at exactly rev, if
// any run covers it.
func (bi *BranchIndex) Lookup(branch string, rev int) (gitref string, ok bool) {
	t, exists := bi.branches[branch]
	if !exists {
		return "", false
	}
	node, found := t.Floor(rev)
	if !found {
		return "", false
	}
	start := node.Key.(int)
	r := node.Value.(*run)
	last := start + len(r.refs) - 1
	if rev < start || rev > last {
		return "", false
	}
	return r.refs[rev-start], true
}

// Load parses a revision-map file: lines of "PATH@SVN-REV GIT-REV"
// (spec §6), one entry per line, and seeds a fresh BranchIndex,
// grouping by path and sorting by revision as it goes.
func Load(r io.Reader) (*BranchIndex, error) {
	type entry struct {
		rev int
		ref string
	}
	perBranch := make(map[string][]entry)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		sp := strings.LastIndexByte(line, ' ')
		if sp < 0 {
			return nil, svnerr.New(svnerr.IO, "rev-map line %d: missing GIT-REV field", lineNo)
		}
		left, gitrev := line[:sp], line[sp+1:]
		at := strings.LastIndexByte(left, '@')
		if at < 0 {
			return nil, svnerr.New(svnerr.IO, "rev-map line %d: missing @SVN-REV", lineNo)
		}
		branch, revStr := left[:at], left[at+1:]
		branch = strings.TrimPrefix(branch, "/")
		rev, err := strconv.Atoi(revStr)
		if err != nil {
			return nil, svnerr.Wrap(svnerr.IO, err, "rev-map line %d: bad revision %q", lineNo, revStr)
		}
		perBranch[branch] = append(perBranch[branch], entry{rev: rev, ref: gitrev})
	}
	if err := scanner.Err(); err != nil {
		return nil, svnerr.Wrap(svnerr.IO, err, "reading rev-map")
	}

	bi := New()
	for branch, entries := range perBranch {
		sort.Slice(entries, func(i, j int) bool { return entries[i].rev < entries[j].rev })
		for _, e := range entries {
			bi.Remember(branch, e.rev, e.ref)
		}
	}
	return bi, nil
}
