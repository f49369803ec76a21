// Command svnfex converts a Subversion dump file into a Git
// fast-import stream for one branch, following branch-copy ancestry
// and svn:mergeinfo (spec §1). CLI parsing itself is out of scope per
// §1; this stays a thin stdlib `flag` wrapper around
// internal/exporter, grounded on cutter/repocutter.go's own choice of
// `flag` over reposurgeon's `kommandant`/`cobra` shell.
//
// SPDX-License-Identifier: BSD-2-Clause
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/svn-fex/svnfex/internal/authors"
	"github.com/svn-fex/svnfex/internal/baton"
	"github.com/svn-fex/svnfex/internal/branchindex"
	"github.com/svn-fex/svnfex/internal/exporter"
	"github.com/svn-fex/svnfex/internal/sink"
	"github.com/svn-fex/svnfex/internal/svndump"
	"github.com/svn-fex/svnfex/internal/svnlog"
)

// stringList implements flag.Value to collect a repeatable flag
// (--ignore may be given more than once, spec §6).
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var (
		gitRef       string
		importer     string
		outFile      string
		revMapPath   string
		authorsPath  string
		root         string
		gitSvn       bool
		exportCopies bool
		quiet        bool
		ignore       stringList
	)

	flag.StringVar(&gitRef, "git-ref", "", "Git ref name to export to (e.g. refs/remotes/svn/trunk)")
	flag.StringVar(&importer, "importer", "", "command to pipe the fast-import stream to")
	flag.StringVar(&outFile, "file", "", "fast-import output file")
	flag.StringVar(&revMapPath, "rev-map", "", "file mapping Subversion paths/revisions to existing Git revisions")
	flag.StringVar(&authorsPath, "A", "", "file mapping Subversion user names to Git authors")
	flag.StringVar(&authorsPath, "authors-file", "", "file mapping Subversion user names to Git authors")
	flag.StringVar(&root, "rewrite-root", "", "Subversion URL to store in git-svn-id trailers")
	flag.BoolVar(&gitSvn, "git-svn", false, "include git-svn-id trailers")
	flag.BoolVar(&exportCopies, "export-copies", false, "export simple branch copies even when no files were modified")
	flag.BoolVar(&quiet, "q", false, "suppress progress messages")
	flag.BoolVar(&quiet, "quiet", false, "suppress progress messages")
	flag.Var(&ignore, "ignore", "add a branch-relative path to exclude from export (repeatable)")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: svnfex [flags] DUMP-FILE BRANCH[@REV]")
		os.Exit(2)
	}
	if gitRef == "" {
		fmt.Fprintln(os.Stderr, "svnfex: --git-ref is required")
		os.Exit(2)
	}
	if (importer == "") == (outFile == "") {
		fmt.Fprintln(os.Stderr, "svnfex: exactly one of --importer or --file is required")
		os.Exit(2)
	}

	dumpPath := flag.Arg(0)
	branch, pegRev, err := parseBranchArg(flag.Arg(1))
	if err != nil {
		fail(err)
	}

	b := baton.New(quiet, nil)

	dumpFile, err := os.Open(dumpPath)
	if err != nil {
		fail(err)
	}
	defer dumpFile.Close()

	b.StartProgress("loading log:")
	log, err := svnlog.Parse(os.Stdin)
	if err != nil {
		fail(err)
	}
	b.EndProgress()

	dump, err := svndump.NewReader(dumpFile)
	if err != nil {
		fail(err)
	}

	revMap := branchindex.New()
	if revMapPath != "" {
		f, err := os.Open(revMapPath)
		if err != nil {
			fail(err)
		}
		revMap, err = branchindex.Load(f)
		f.Close()
		if err != nil {
			fail(err)
		}
	}

	var authorMap authors.Map
	if authorsPath != "" {
		f, err := os.Open(authorsPath)
		if err != nil {
			fail(err)
		}
		authorMap, err = authors.Load(f)
		f.Close()
		if err != nil {
			fail(err)
		}
	}

	var sk sink.Sink
	if importer != "" {
		fields := strings.Fields(importer)
		if len(fields) == 0 {
			fail(fmt.Errorf("svnfex: empty --importer command"))
		}
		pipeSink, err := sink.NewPipeSink(fields)
		if err != nil {
			fail(err)
		}
		sk = pipeSink
	} else {
		f, err := os.Create(outFile)
		if err != nil {
			fail(err)
		}
		defer f.Close()
		sk = sink.NewFileSink(f)
	}

	cfg := exporter.Config{
		RevMap:       revMap,
		AuthorMap:    authorMap,
		Root:         root,
		Ignore:       ignore,
		ExportCopies: exportCopies,
		GitSvn:       gitSvn,
		Quiet:        quiet,
	}
	exp := exporter.New(dump, log, sk, cfg, b)

	_, exportErr := exp.Export(gitRef, branch, pegRev)
	closeErr := sk.Close()
	if exportErr != nil {
		fail(exportErr)
	}
	if closeErr != nil {
		fail(closeErr)
	}
}

// parseBranchArg splits "PATH[@REV]" per spec §4.H's export() signature:
// a bare path, or a path pegged to a specific revision. An empty or
// absent "@REV" means InvalidRevnum ("latest").
func parseBranchArg(raw string) (string, int, error) {
	at := strings.LastIndexByte(raw, '@')
	if at < 0 {
		return strings.TrimPrefix(raw, "/"), exporter.InvalidRevnum, nil
	}
	branch := strings.TrimPrefix(raw[:at], "/")
	revStr := raw[at+1:]
	if revStr == "" {
		return branch, exporter.InvalidRevnum, nil
	}
	rev, err := strconv.Atoi(revStr)
	if err != nil {
		return "", 0, fmt.Errorf("svnfex: bad peg revision %q: %w", revStr, err)
	}
	return branch, rev, nil
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "svnfex: %v\n", err)
	os.Exit(1)
}
