// Package editor implements component F, the per-revision editor
// state: accumulated D/M edit lines, and svn:executable/svn:mergeinfo
// property interpretation (spec §4.F). Ported from
// original_source/svnex.py's RootEditor.change_prop/FileEditor.change_prop,
// re-expressed per spec §9's redesign note as plain data plus one
// switch instead of the teacher's Editor/DirEditor/FileEditor/RootEditor
// dynamic-dispatch hierarchy.
//
// SPDX-License-Identifier: BSD-2-Clause
package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/svn-fex/svnfex/internal/revset"
	"github.com/svn-fex/svnfex/internal/svndump"
	"github.com/svn-fex/svnfex/internal/svnerr"
)

const (
	ModeExecutable = "755"
	ModeRegular    = "644"
)

// EditLine is one line of a commit's edit list: either "D <path>" or
// "M <mode> <mark> <path>" (spec §4.F).
type EditLine struct {
	Delete bool
	Mode   string
	Mark   string
	Path   string
}

func (e EditLine) String() string {
	if e.Delete {
		return "D " + e.Path
	}
	return fmt.Sprintf("M %s %s %s", e.Mode, e.Mark, e.Path)
}

// State accumulates one revision's file edits and svn:mergeinfo.
type State struct {
	Edits     []EditLine
	MergeInfo map[string][]revset.Range
}

// New returns an empty editor State.
func New() *State {
	return &State{MergeInfo: make(map[string][]revset.Range)}
}

// Delete records a deletion of a branch-relative path. Idempotent: a
// path already recorded as deleted this revision is not deleted twice,
// since the init_export bootstrap pass (spec §4.H) and the per-node
// dump scan can both name the same path when a revision both deletes
// something recursively and lists it individually in the log.
func (s *State) Delete(path string) {
	for _, e := range s.Edits {
		if e.Delete && e.Path == path {
			return
		}
	}
	s.Edits = append(s.Edits, EditLine{Delete: true, Path: path})
}

// FileEdit records an add/modify of a branch-relative path.
func (s *State) FileEdit(path, mode, mark string) {
	s.Edits = append(s.Edits, EditLine{Mode: mode, Mark: mark, Path: path})
}

// ModeForNode computes the mode a file should have after this
// revision's property changes, given its previous mode (ModeRegular
// for a brand new file). svn:executable present -> 755; explicitly
// removed -> 644; otherwise unchanged (spec §4.F).
func ModeForNode(prevMode string, props *svndump.Properties) string {
	if prevMode == "" {
		prevMode = ModeRegular
	}
	if props == nil {
		return prevMode
	}
	if props.Contains("svn:executable") {
		return ModeExecutable
	}
	for _, d := range props.Deleted {
		if d == "svn:executable" {
			return ModeRegular
		}
	}
	return prevMode
}

// ApplyMergeInfo parses the svn:mergeinfo property on the branch root
// and folds its inheritable ranges into s.MergeInfo, keyed by source
// branch path. A path whose ranges are all non-inheritable contributes
// nothing, matching original_source/svnex.py's RootEditor.change_prop.
func (s *State) ApplyMergeInfo(value string) error {
	parsed, err := ParseMergeInfo(value)
	if err != nil {
		return err
	}
	for path, ranges := range parsed {
		var inheritable []revset.Range
		for _, r := range ranges {
			if r.Inheritable {
				inheritable = append(inheritable, r)
			}
		}
		if len(inheritable) > 0 {
			s.MergeInfo[path] = inheritable
		}
	}
	return nil
}

// ParseMergeInfo parses an svn:mergeinfo property value: one
// "PATH:RANGE,RANGE,..." entry per line, each range an integer or
// "N-M" closed interval, optionally suffixed with "*" to mark it
// non-inheritable (spec GLOSSARY "Inheritable range").
func ParseMergeInfo(value string) (map[string][]revset.Range, error) {
	result := make(map[string][]revset.Range)
	for _, line := range strings.Split(strings.TrimRight(value, "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.LastIndexByte(line, ':')
		if idx < 0 {
			return nil, svnerr.New(svnerr.MalformedDump, "svn:mergeinfo: malformed line %q", line)
		}
		path := line[:idx]
		rangeList := line[idx+1:]
		var ranges []revset.Range
		for _, rng := range strings.Split(rangeList, ",") {
			rng = strings.TrimSpace(rng)
			if rng == "" {
				continue
			}
			inheritable := true
			if strings.HasSuffix(rng, "*") {
				inheritable = false
				rng = rng[:len(rng)-1]
			}
			var start, end int
			if dash := strings.IndexByte(rng, '-'); dash >= 0 {
				var err error
				start, err = strconv.Atoi(rng[:dash])
				if err != nil {
					return nil, svnerr.Wrap(svnerr.MalformedDump, err, "svn:mergeinfo: bad range %q", rng)
				}
				end, err = strconv.Atoi(rng[dash+1:])
				if err != nil {
					return nil, svnerr.Wrap(svnerr.MalformedDump, err, "svn:mergeinfo: bad range %q", rng)
				}
			} else {
				var err error
				start, err = strconv.Atoi(rng)
				if err != nil {
					return nil, svnerr.Wrap(svnerr.MalformedDump, err, "svn:mergeinfo: bad revision %q", rng)
				}
				end = start
			}
			ranges = append(ranges, revset.Range{Start: start, End: end, Inheritable: inheritable})
		}
		result[path] = ranges
	}
	return result, nil
}
