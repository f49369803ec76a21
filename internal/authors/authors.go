// Package authors loads the authors-map file named in spec §6: lines
// of "SVN-NAME = GIT-IDENTITY". Grounded on original_source/svnex.py
// main()'s authors_file loop.
//
// SPDX-License-Identifier: BSD-2-Clause
package authors

import (
	"bufio"
	"io"
	"strings"

	"github.com/svn-fex/svnfex/internal/svnerr"
)

// Map is an SVN author name to Git committer identity mapping.
type Map map[string]string

// Load parses an authors file.
func Load(r io.Reader) (Map, error) {
	m := make(Map)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " = ", 2)
		if len(parts) != 2 {
			return nil, svnerr.New(svnerr.IO, "authors file line %d: expected \"SVN-NAME = GIT-IDENTITY\"", lineNo)
		}
		m[parts[0]] = parts[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, svnerr.Wrap(svnerr.IO, err, "reading authors file")
	}
	return m, nil
}

// Identity resolves author against the map, returning (identity, true)
// if the map is configured and the author is known. Spec §7:
// UnknownAuthor is an author present in the log but absent from a
// configured author map.
func (m Map) Identity(author string) (string, bool) {
	id, ok := m[author]
	return id, ok
}
