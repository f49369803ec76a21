// Package svnpath implements the repository-relative path tuples used
// throughout the exporter (spec §3, "Path").
//
// SPDX-License-Identifier: BSD-2-Clause
package svnpath

import "strings"

// Path is a tuple of UTF-8 segments. The root ("/") is the empty tuple.
type Path []string

// Parse splits an absolute SVN path ("/a/b/c" or "/") into a Path.
// The empty string is treated the same as "/".
func Parse(abs string) Path {
	if abs == "" || abs == "/" {
		return Path{}
	}
	trimmed := strings.TrimPrefix(abs, "/")
	return Path(strings.Split(trimmed, "/"))
}

// String renders the path back into absolute form.
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	return "/" + strings.Join(p, "/")
}

// Relative renders the path without a leading slash, the form used in
// fast-import "M"/"D" lines.
func (p Path) Relative() string {
	return strings.Join(p, "/")
}

// HasPrefix reports whether p is equal to or a descendant of prefix.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i, seg := range prefix {
		if p[i] != seg {
			return false
		}
	}
	return true
}

// StrictlyBelow reports whether p is a proper descendant of prefix.
func (p Path) StrictlyBelow(prefix Path) bool {
	return len(p) > len(prefix) && p.HasPrefix(prefix)
}

// TrimPrefix returns the path segments of p after removing prefix.
// Panics if prefix is not in fact a prefix of p - callers are expected
// to have checked HasPrefix first.
func (p Path) TrimPrefix(prefix Path) Path {
	if !p.HasPrefix(prefix) {
		panic("svnpath: TrimPrefix: not a prefix")
	}
	return p[len(prefix):]
}

// Equal reports whether two paths denote the same location.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Join appends rel (a "/"-separated relative path) to base.
func Join(base string, rel string) string {
	base = strings.TrimSuffix(base, "/")
	rel = strings.TrimPrefix(rel, "/")
	if base == "" {
		return "/" + rel
	}
	if rel == "" {
		return base
	}
	return base + "/" + rel
}
