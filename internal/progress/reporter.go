// Package progress reports per-file feedback while a directory of
// documents is being indexed.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives ingest progress: Start with the file count, Update
// once per file with the path being processed, Finish at the end.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// NewReporter picks the reporter for the current environment: plain
// line output under CI, an interactive bar otherwise.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{out: os.Stderr}
	}
	return &TerminalReporter{}
}

// TerminalReporter draws a progress bar that shows the file currently
// being ingested and clears itself when done.
type TerminalReporter struct {
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Indexing documents"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, message string) {
	if r.bar != nil {
		r.bar.Describe(message)
		_ = r.bar.Set(current)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter emits one line per file, which reads cleanly in CI logs
// where carriage-return bars turn into noise.
type CIReporter struct {
	out   io.Writer
	total int
}

func (r *CIReporter) writer() io.Writer {
	if r.out == nil {
		return os.Stderr
	}
	return r.out
}

func (r *CIReporter) Start(total int) {
	r.total = total
	fmt.Fprintf(r.writer(), "Indexing %d documents\n", total)
}

func (r *CIReporter) Update(current int, message string) {
	fmt.Fprintf(r.writer(), "[%d/%d] %s\n", current, r.total, message)
}

func (r *CIReporter) Finish() {
	fmt.Fprintln(r.writer(), "Indexing complete")
}
