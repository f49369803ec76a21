// Package svnlog implements component D, the Revision Iterator (spec
// §4.D), plus concrete implementations of the two external
// collaborators spec §6 describes only by interface: the SVN log XML
// parser and the location-segments oracle. Grounded on
// original_source/svnlog.py's iter_svnlog (entry -> optional author ->
// date -> optional paths pull shape) and original_source/svnex.py's
// ExportRevs/iter_location_segments, which both walk the already
// fully-parsed log tree (svnex.py loads it upfront with
// ElementTree.parse, exactly like the xml.Decoder.Decode call below).
//
// SPDX-License-Identifier: BSD-2-Clause
package svnlog

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/svn-fex/svnfex/internal/revset"
	"github.com/svn-fex/svnfex/internal/svnerr"
	"github.com/svn-fex/svnfex/internal/svnpath"
)

// PathLog is one changed path within a LogEntry (spec §3).
type PathLog struct {
	Path         string // absolute, no trailing slash
	IsDelete     bool
	IsAdd        bool
	CopyfromRev  int // 0 means "no copy source"
	CopyfromPath string
}

// LogEntry is one revision's worth of log data (spec §3).
type LogEntry struct {
	Rev       int
	Author    string
	HasAuthor bool
	Date      string // raw ISO8601, e.g. "2020-01-02T03:04:05.000000Z"
	Paths     []PathLog
	HasPaths  bool
}

// rawLog mirrors the XML grammar of spec §6 directly for unmarshaling.
type rawLog struct {
	XMLName xml.Name   `xml:"log"`
	Entries []rawEntry `xml:"logentry"`
}

type rawEntry struct {
	Revision int        `xml:"revision,attr"`
	Author   *string    `xml:"author"`
	Date     string     `xml:"date"`
	Paths    *rawPaths  `xml:"paths"`
}

type rawPaths struct {
	Path []rawPath `xml:"path"`
}

type rawPath struct {
	Action       string  `xml:"action,attr"`
	CopyfromPath *string `xml:"copyfrom-path,attr"`
	CopyfromRev  *int    `xml:"copyfrom-rev,attr"`
	Text         string  `xml:",chardata"`
}

// Log is the fully-parsed SVN log, newest-first as SVN's `svn log
// --xml` emits it, i.e. Entries[0] is the highest revision.
type Log struct {
	Entries []LogEntry
}

// Parse reads an entire SVN log XML document (spec §6 grammar). A
// missing <paths> element is tolerated, matching "A missing <paths> is
// tolerated" in §6.
func Parse(r io.Reader) (*Log, error) {
	var raw rawLog
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, svnerr.Wrap(svnerr.MalformedLog, err, "decoding SVN log XML")
	}

	log := &Log{Entries: make([]LogEntry, 0, len(raw.Entries))}
	for _, e := range raw.Entries {
		entry := LogEntry{Rev: e.Revision, Date: strings.TrimSpace(e.Date)}
		if e.Author != nil {
			entry.Author = strings.TrimSpace(*e.Author)
			entry.HasAuthor = true
		}
		if e.Paths != nil {
			entry.HasPaths = true
			for _, p := range e.Paths.Path {
				pl := PathLog{
					Path: strings.TrimSpace(p.Text),
				}
				switch p.Action {
				case "A":
					pl.IsAdd = true
				case "R":
					pl.IsAdd = true
					pl.IsDelete = true
				case "D":
					pl.IsDelete = true
				case "M":
					// neither add nor delete
				default:
					return nil, svnerr.New(svnerr.MalformedLog, "r%d: unknown path action %q", e.Revision, p.Action)
				}
				if p.CopyfromRev != nil {
					pl.CopyfromRev = *p.CopyfromRev
					if p.CopyfromPath != nil {
						pl.CopyfromPath = *p.CopyfromPath
					}
				}
				entry.Paths = append(entry.Paths, pl)
			}
		}
		log.Entries = append(log.Entries, entry)
	}
	return log, nil
}

// AuthorOrDefault returns entry's author, defaulting to "(no author)" when
// absent (spec §4.D).
func (e LogEntry) AuthorOrDefault() string {
	if !e.HasAuthor {
		return "(no author)"
	}
	return e.Author
}

// Revisions streams (rev, date, author, log, paths) for one segment of
// branch over (base, end], restricted to entries that touch a path
// under prefix (spec §4.D). Revisions are delivered oldest-first.
func (l *Log) Revisions(path string, base, end int) []LogEntry {
	// A Path is a tuple of segments, not a string: appending "/" before
	// parsing would add a spurious empty trailing segment that breaks
	// HasPrefix against every deeper path, so the prefix tuple is just
	// path's own tuple - HasPrefix already treats "equal to path" as a
	// match, same as "descendant of path".
	prefix := svnpath.Parse(path)

	var matched []LogEntry
	for i := len(l.Entries) - 1; i >= 0; i-- {
		e := l.Entries[i]
		if e.Rev <= base || e.Rev > end {
			continue
		}
		if !e.HasPaths {
			continue
		}
		touches := false
		for _, p := range e.Paths {
			pp := svnpath.Parse(p.Path)
			if pp.HasPrefix(prefix) {
				touches = true
				break
			}
		}
		if touches {
			matched = append(matched, e)
		}
	}
	return matched
}

// LocationSegments implements revset.SegmentSource (spec §6
// "Location-segments oracle"): walking the log XML backward from rev,
// tracing branch copies via copyfrom-path/rev, yielding (start, end,
// path) triples youngest->oldest. Ported from
// original_source/svnex.py's iter_location_segments.
func (l *Log) LocationSegments(branch string, rev int) ([]revset.LocationSegment, error) {
	branch = strings.TrimPrefix(branch, "/")
	if rev <= 0 {
		if len(l.Entries) == 0 {
			return nil, svnerr.New(svnerr.MissingRevision, "empty log")
		}
		rev = l.Entries[0].Rev
	}

	var segments []revset.LocationSegment
	curPath := branch
	curEnd := rev

	for {
		var found *PathLog
		var foundRev int
		for _, e := range l.Entries {
			if e.Rev > curEnd {
				continue
			}
			if !e.HasPaths {
				continue
			}
			for i := range e.Paths {
				p := &e.Paths[i]
				if strings.TrimPrefix(p.Path, "/") == curPath && p.IsAdd {
					found = p
					foundRev = e.Rev
					break
				}
			}
			if found != nil {
				break
			}
		}

		var start int
		if found == nil {
			if curPath == "" {
				start = 0
			} else {
				return nil, svnerr.New(svnerr.MissingRevision, "location /%s not found", curPath)
			}
		} else {
			start = foundRev
		}

		segments = append(segments, revset.LocationSegment{Start: start, End: curEnd, Path: curPath})

		if found == nil || found.CopyfromRev == 0 {
			break
		}
		curPath = strings.TrimPrefix(found.CopyfromPath, "/")
		curEnd = found.CopyfromRev
	}

	return segments, nil
}
