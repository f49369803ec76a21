// Package baton provides the progress spinner and leveled warnings
// used across the exporter. The spinner shape is taken from
// cutter/repocutter.go's Baton; the terminal-width probe is taken from
// surgeon/reposurgeon.go's screenwidth(). Warnings and informational
// messages go through logrus rather than bare fmt.Fprintf, per
// SPEC_FULL.md's "Logging" section; there is no fatal-message helper.
//
// SPDX-License-Identifier: BSD-2-Clause
package baton

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh/terminal"
)

// Baton reports progress on stderr and routes warnings through a
// logrus.Logger. The zero value is not usable; use New.
type Baton struct {
	Quiet  bool
	stream io.Writer
	log    *logrus.Logger
	count  int
	label  string
	time   time.Time
}

// New constructs a Baton writing its spinner to stderr and its
// structured messages through logger. A nil logger gets a default
// text-formatted logrus.Logger.
func New(quiet bool, logger *logrus.Logger) *Baton {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
	}
	return &Baton{Quiet: quiet, stream: os.Stderr, log: logger}
}

// screenWidth mirrors reposurgeon.go's screenwidth(): fall back to 80
// columns when stdin isn't a terminal or the ioctl fails.
func screenWidth() int {
	width := 80
	if terminal.IsTerminal(0) {
		if w, _, err := terminal.GetSize(0); err == nil {
			width = w
		}
	}
	return width
}

// StartProgress begins a labeled progress run; Twirl advances it. The
// label is truncated to the terminal width so it never wraps onto a
// second line and stomps on the spinner.
func (b *Baton) StartProgress(label string) {
	if w := screenWidth(); len(label) > w {
		label = label[:w]
	}
	b.label = label
	b.count = 0
	b.time = timeNow()
	if !b.Quiet {
		fmt.Fprint(b.stream, label)
	}
}

// Twirl advances the spinner by one tick, only when stderr is a
// terminal (mirrors repocutter.go's Baton.Twirl).
func (b *Baton) Twirl() {
	if b.Quiet || !terminal.IsTerminal(int(os.Stderr.Fd())) {
		b.count++
		return
	}
	fmt.Fprint(b.stream, "-/|\\"[b.count%4:b.count%4+1])
	fmt.Fprint(b.stream, "\b")
	b.count++
}

// EndProgress closes out a progress run begun with StartProgress.
func (b *Baton) EndProgress() {
	if b.Quiet {
		return
	}
	fmt.Fprintf(b.stream, "...(%s) done.\n", timeNow().Sub(b.time))
}

// Warn logs a non-fatal warning (spec §7): conflicting UUIDs across
// concatenated dumps, a UUID record in a dump declaring version < 2,
// and similar defects the header parser reports.
func (b *Baton) Warn(format string, args ...interface{}) {
	b.log.Warnf(format, args...)
}

// Log emits an informational progress message.
func (b *Baton) Log(format string, args ...interface{}) {
	if !b.Quiet {
		b.log.Infof(format, args...)
	}
}

func timeNow() time.Time { return time.Now() }
