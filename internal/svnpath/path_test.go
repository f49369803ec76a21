// SPDX-License-Identifier: BSD-2-Clause
package svnpath

import "testing"

func assertEqual(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseRoot(t *testing.T) {
	for _, in := range []string{"", "/"} {
		p := Parse(in)
		if len(p) != 0 {
			t.Errorf("Parse(%q) = %v, want empty tuple", in, p)
		}
	}
}

func TestParseSegments(t *testing.T) {
	p := Parse("/trunk/src/main.go")
	want := Path{"trunk", "src", "main.go"}
	if len(p) != len(want) {
		t.Fatalf("Parse = %v, want %v", p, want)
	}
	for i := range want {
		if p[i] != want[i] {
			t.Fatalf("Parse = %v, want %v", p, want)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	assertEqual(t, Parse("/").String(), "/")
	assertEqual(t, Parse("/trunk").String(), "/trunk")
	assertEqual(t, Parse("/trunk/src").String(), "/trunk/src")
}

func TestRelative(t *testing.T) {
	assertEqual(t, Parse("/trunk/src").Relative(), "trunk/src")
	assertEqual(t, Parse("/").Relative(), "")
}

func TestHasPrefixAndStrictlyBelow(t *testing.T) {
	trunk := Parse("/trunk")
	file := Parse("/trunk/src/main.go")
	branches := Parse("/branches")

	if !file.HasPrefix(trunk) {
		t.Error("expected /trunk/src/main.go to have prefix /trunk")
	}
	if !trunk.HasPrefix(trunk) {
		t.Error("a path is its own prefix")
	}
	if trunk.StrictlyBelow(trunk) {
		t.Error("a path is not strictly below itself")
	}
	if !file.StrictlyBelow(trunk) {
		t.Error("expected /trunk/src/main.go to be strictly below /trunk")
	}
	if file.HasPrefix(branches) {
		t.Error("did not expect /trunk/src/main.go to have prefix /branches")
	}
}

func TestTrimPrefix(t *testing.T) {
	trunk := Parse("/trunk")
	file := Parse("/trunk/src/main.go")
	rel := file.TrimPrefix(trunk)
	assertEqual(t, rel.Relative(), "src/main.go")
}

func TestTrimPrefixPanicsWhenNotAPrefix(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected TrimPrefix to panic when prefix does not match")
		}
	}()
	Parse("/trunk/file").TrimPrefix(Parse("/branches"))
}

func TestEqual(t *testing.T) {
	if !Parse("/trunk/src").Equal(Parse("/trunk/src")) {
		t.Error("expected equal paths to compare equal")
	}
	if Parse("/trunk/src").Equal(Parse("/trunk")) {
		t.Error("did not expect differing-length paths to compare equal")
	}
}

func TestJoin(t *testing.T) {
	assertEqual(t, Join("/trunk", "src/main.go"), "/trunk/src/main.go")
	assertEqual(t, Join("/trunk/", "/src/main.go"), "/trunk/src/main.go")
	assertEqual(t, Join("", "trunk"), "/trunk")
	assertEqual(t, Join("/trunk", ""), "/trunk")
}
