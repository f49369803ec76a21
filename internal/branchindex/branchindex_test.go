// SPDX-License-Identifier: BSD-2-Clause
package branchindex

import (
	"strings"
	"testing"
)

func TestRememberExtendsContiguousRun(t *testing.T) {
	bi := New()
	bi.Remember("trunk", 1, ":1")
	bi.Remember("trunk", 2, ":2")
	bi.Remember("trunk", 3, ":3")

	last, ref, ok := bi.LastKnown("trunk", 3)
	if !ok || last != 3 || ref != ":3" {
		t.Fatalf("LastKnown(3) = (%d, %q, %v), want (3, \":3\", true)", last, ref, ok)
	}

	ref, ok = bi.Lookup("trunk", 2)
	if !ok || ref != ":2" {
		t.Fatalf("Lookup(2) = (%q, %v), want (\":2\", true)", ref, ok)
	}
}

func TestRememberStartsNewRunOnGap(t *testing.T) {
	bi := New()
	bi.Remember("trunk", 1, ":1")
	bi.Remember("trunk", 5, ":5")

	if _, ok := bi.Lookup("trunk", 2); ok {
		t.Error("did not expect revision 2 to be known, there's a gap before it")
	}
	last, ref, ok := bi.LastKnown("trunk", 5)
	if !ok || last != 5 || ref != ":5" {
		t.Fatalf("LastKnown(5) = (%d, %q, %v), want (5, \":5\", true)", last, ref, ok)
	}

	last, ref, ok = bi.LastKnown("trunk", 3)
	if !ok || last != 1 || ref != ":1" {
		t.Fatalf("LastKnown(3) = (%d, %q, %v), want (1, \":1\", true) (the preceding run)", last, ref, ok)
	}
}

func TestLookupMissesPastRunEnd(t *testing.T) {
	bi := New()
	bi.Remember("trunk", 1, ":1")
	bi.Remember("trunk", 2, ":2")
	if _, ok := bi.Lookup("trunk", 3); ok {
		t.Error("did not expect revision 3 to be known, past the run's end")
	}
}

func TestLastKnownUnknownBranch(t *testing.T) {
	bi := New()
	if _, _, ok := bi.LastKnown("nope", 1); ok {
		t.Error("expected no known history for an unseen branch")
	}
}

func TestLoadGroupsAndSortsByBranch(t *testing.T) {
	input := "trunk@2 :2\ntrunk@1 :1\nbranches/b@10 :10\n"
	bi, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	last, ref, ok := bi.LastKnown("trunk", 2)
	if !ok || last != 2 || ref != ":2" {
		t.Fatalf("LastKnown(trunk, 2) = (%d, %q, %v)", last, ref, ok)
	}
	last, ref, ok = bi.LastKnown("branches/b", 10)
	if !ok || last != 10 || ref != ":10" {
		t.Fatalf("LastKnown(branches/b, 10) = (%d, %q, %v)", last, ref, ok)
	}
}

func TestLoadRejectsMalformedLines(t *testing.T) {
	if _, err := Load(strings.NewReader("trunk@1\n")); err == nil {
		t.Error("expected an error for a line missing the GIT-REV field")
	}
	if _, err := Load(strings.NewReader("trunk :1\n")); err == nil {
		t.Error("expected an error for a line missing @SVN-REV")
	}
	if _, err := Load(strings.NewReader("trunk@x :1\n")); err == nil {
		t.Error("expected an error for a non-numeric revision")
	}
}

func TestLoadSkipsBlankLines(t *testing.T) {
	bi, err := Load(strings.NewReader("trunk@1 :1\n\ntrunk@2 :2\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if last, _, ok := bi.LastKnown("trunk", 2); !ok || last != 2 {
		t.Fatalf("LastKnown(trunk, 2) = (%d, _, %v)", last, ok)
	}
}
