// SPDX-License-Identifier: BSD-2-Clause
package authors

import (
	"strings"
	"testing"
)

func TestLoadAndIdentity(t *testing.T) {
	m, err := Load(strings.NewReader("jrandom = J. Random <jrandom@example.com>\nalice = Alice <alice@example.com>\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	id, ok := m.Identity("jrandom")
	if !ok || id != "J. Random <jrandom@example.com>" {
		t.Fatalf("Identity(jrandom) = (%q, %v)", id, ok)
	}
	if _, ok := m.Identity("stranger"); ok {
		t.Error("did not expect an unmapped author to resolve")
	}
}

func TestLoadSkipsBlankLines(t *testing.T) {
	m, err := Load(strings.NewReader("\nalice = Alice <alice@example.com>\n\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := m.Identity("alice"); !ok {
		t.Error("expected alice to be mapped despite surrounding blank lines")
	}
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	if _, err := Load(strings.NewReader("not-a-mapping\n")); err == nil {
		t.Error("expected an error for a line without \" = \"")
	}
}
