// SPDX-License-Identifier: BSD-2-Clause
package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempFileSink(t *testing.T) (*FileSink, *os.File) {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "stream"))
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	return NewFileSink(f), f
}

func TestNewMarkIncrements(t *testing.T) {
	sk, f := tempFileSink(t)
	defer f.Close()
	if m := sk.NewMark(); m != ":1" {
		t.Errorf("first mark = %q, want \":1\"", m)
	}
	if m := sk.NewMark(); m != ":2" {
		t.Errorf("second mark = %q, want \":2\"", m)
	}
}

func TestFileSinkBlobAndCatBlob(t *testing.T) {
	sk, f := tempFileSink(t)
	defer f.Close()

	mark, err := sk.Blob("trunk/file", []byte("hello world"))
	if err != nil {
		t.Fatalf("Blob: %v", err)
	}
	if mark != ":1" {
		t.Errorf("mark = %q, want \":1\"", mark)
	}

	back, err := sk.CatBlob(mark)
	if err != nil {
		t.Fatalf("CatBlob: %v", err)
	}
	if string(back) != "hello world" {
		t.Errorf("CatBlob = %q, want %q", back, "hello world")
	}

	fs, ok := sk.FileState("trunk/file")
	if !ok || fs.Mark != mark || fs.Mode != "644" {
		t.Errorf("FileState = %+v, want mark %q mode 644", fs, mark)
	}
}

func TestFileSinkPreservesModeAcrossBlobs(t *testing.T) {
	sk, f := tempFileSink(t)
	defer f.Close()

	mark1, err := sk.Blob("bin/run", []byte("v1"))
	if err != nil {
		t.Fatalf("Blob: %v", err)
	}
	sk.SetMode("bin/run", "755")

	mark2, err := sk.Blob("bin/run", []byte("v2"))
	if err != nil {
		t.Fatalf("Blob: %v", err)
	}
	if mark1 == mark2 {
		t.Fatal("expected a new mark for the second blob")
	}
	fs, ok := sk.FileState("bin/run")
	if !ok || fs.Mode != "755" || fs.Mark != mark2 {
		t.Errorf("FileState after second blob = %+v", fs)
	}
}

func TestFileSinkCatBlobUnknownMark(t *testing.T) {
	sk, f := tempFileSink(t)
	defer f.Close()
	if _, err := sk.CatBlob(":99"); err == nil {
		t.Error("expected an error for an unrecorded mark")
	}
}

func TestPrintfAndStreamContents(t *testing.T) {
	sk, f := tempFileSink(t)
	defer f.Close()
	if err := sk.Printf("reset %s", "refs/heads/trunk"); err != nil {
		t.Fatalf("Printf: %v", err)
	}
	if err := sk.Printf("from %s", ":1"); err != nil {
		t.Fatalf("Printf: %v", err)
	}
	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "reset refs/heads/trunk\nfrom :1\n") {
		t.Errorf("stream contents = %q", data)
	}
}
