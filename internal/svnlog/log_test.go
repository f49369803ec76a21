// SPDX-License-Identifier: BSD-2-Clause
package svnlog

import (
	"strings"
	"testing"
)

const sampleLog = `<log>
<logentry revision="3">
<author>alice</author>
<date>2020-01-03T00:00:00.000000Z</date>
<paths>
<path action="M">/trunk/file</path>
</paths>
</logentry>
<logentry revision="2">
<author>bob</author>
<date>2020-01-02T00:00:00.000000Z</date>
<paths>
<path action="A" copyfrom-path="/trunk" copyfrom-rev="1">/branches/b</path>
</paths>
</logentry>
<logentry revision="1">
<date>2020-01-01T00:00:00.000000Z</date>
<paths>
<path action="A">/trunk</path>
<path action="A">/trunk/file</path>
</paths>
</logentry>
</log>`

func TestParseBasics(t *testing.T) {
	log, err := Parse(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(log.Entries) != 3 {
		t.Fatalf("len(Entries) = %d, want 3", len(log.Entries))
	}
	// newest-first, matching svn log --xml order.
	if log.Entries[0].Rev != 3 || log.Entries[2].Rev != 1 {
		t.Fatalf("entries not in newest-first order: %+v", log.Entries)
	}
	if log.Entries[2].HasAuthor {
		t.Error("r1 has no <author>, HasAuthor should be false")
	}
	if log.Entries[2].AuthorOrDefault() != "(no author)" {
		t.Errorf("AuthorOrDefault() = %q, want \"(no author)\"", log.Entries[2].AuthorOrDefault())
	}
	if log.Entries[1].Paths[0].CopyfromPath != "/trunk" || log.Entries[1].Paths[0].CopyfromRev != 1 {
		t.Errorf("r2 copy-from not parsed: %+v", log.Entries[1].Paths[0])
	}
}

func TestParseMissingPathsTolerated(t *testing.T) {
	const noPaths = `<log><logentry revision="1"><date>2020-01-01T00:00:00.000000Z</date></logentry></log>`
	log, err := Parse(strings.NewReader(noPaths))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if log.Entries[0].HasPaths {
		t.Error("expected HasPaths false when <paths> is absent")
	}
}

func TestParseUnknownActionFails(t *testing.T) {
	const bad = `<log><logentry revision="1"><date>d</date><paths><path action="Z">/x</path></paths></logentry></log>`
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Error("expected an error for an unknown path action")
	}
}

func TestRevisionsFiltersByRangeAndPrefix(t *testing.T) {
	log, err := Parse(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	entries := log.Revisions("trunk", 0, 3)
	if len(entries) != 2 {
		t.Fatalf("Revisions(trunk, 0, 3) = %d entries, want 2 (r1, r3)", len(entries))
	}
	if entries[0].Rev != 1 || entries[1].Rev != 3 {
		t.Fatalf("Revisions not oldest-first: %+v", entries)
	}

	entries = log.Revisions("branches/b", 0, 3)
	if len(entries) != 1 || entries[0].Rev != 2 {
		t.Fatalf("Revisions(branches/b) = %+v, want just r2", entries)
	}

	entries = log.Revisions("trunk", 1, 1)
	if len(entries) != 0 {
		t.Fatalf("Revisions(trunk, 1, 1) = %+v, want none ((base,end] excludes base)", entries)
	}
}

func TestLocationSegmentsFollowsCopyHistory(t *testing.T) {
	log, err := Parse(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	segs, err := log.LocationSegments("branches/b", 2)
	if err != nil {
		t.Fatalf("LocationSegments: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("segments = %+v, want 2 (branch, then trunk ancestor)", segs)
	}
	if segs[0].Path != "branches/b" || segs[0].Start != 2 || segs[0].End != 2 {
		t.Errorf("segs[0] = %+v, want {Start:2 End:2 Path:branches/b}", segs[0])
	}
	if segs[1].Path != "trunk" || segs[1].Start != 1 || segs[1].End != 1 {
		t.Errorf("segs[1] = %+v, want {Start:1 End:1 Path:trunk}", segs[1])
	}
}

func TestLocationSegmentsUnknownLocationFails(t *testing.T) {
	log, err := Parse(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := log.LocationSegments("never/existed", 3); err == nil {
		t.Error("expected an error for a path with no add record")
	}
}
