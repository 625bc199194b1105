// Package cliui renders progress for long-running CLI operations, such as
// warming a package's documentation cache, as either an interactive
// bubbletea view or a plain line-oriented stream depending on the terminal.
package cliui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage identifies which phase of a cache warm a ProgressEvent belongs to.
type Stage int

const (
	// StageResolving looks up the package's latest or requested version.
	StageResolving Stage = iota
	// StageFetching downloads and parses each item's documentation.
	StageFetching
	// StageIndexing adds fetched docs to the full-text search index.
	StageIndexing
	// StageComplete indicates the warm finished.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageResolving:
		return "Resolving"
	case StageFetching:
		return "Fetching"
	case StageIndexing:
		return "Indexing"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage label for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageResolving:
		return "RESOLVE"
	case StageFetching:
		return "FETCH"
	case StageIndexing:
		return "INDEX"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent reports how far a warm operation has gotten.
type ProgressEvent struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentItem string
	Message     string
}

// ErrorEvent reports one item that failed to fetch, without aborting the
// rest of the warm.
type ErrorEvent struct {
	Item   string
	Err    error
	IsWarn bool
}

// CompletionStats summarizes a finished warm operation.
type CompletionStats struct {
	Package  string
	Version  string
	Items    int
	Errors   int
	Warnings int
	Duration time.Duration
}

// Renderer displays the progress of a cache warm operation.
type Renderer interface {
	Start(ctx context.Context) error
	UpdateProgress(event ProgressEvent)
	AddError(event ErrorEvent)
	Complete(stats CompletionStats)
	Stop() error
}

// Config configures a Renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Package    string
}

// NewRenderer picks a TUI renderer for interactive terminals and a plain
// renderer everywhere else (pipes, CI, --no-tui).
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor reports whether NO_COLOR is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI reports whether the process looks like it is running in CI.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
