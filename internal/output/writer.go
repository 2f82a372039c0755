// Package output owns the output directory: clearing it before a run and
// writing the files of a build plan.
package output

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/hurou927/ora-schema-gen/internal/build"
)

// ErrUnsafeDir is returned when the output directory is one that must never
// be removed.
var ErrUnsafeDir = errors.New("refusing to clear output directory")

// Writer writes plans below a single output directory.
type Writer struct {
	dir string
	log *slog.Logger
}

// NewWriter creates a writer for dir.
func NewWriter(dir string, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{dir: dir, log: log}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Clear removes the output directory and recreates it empty. It refuses the
// filesystem root, the working directory or any of its parents, and the
// home directory.
func (w *Writer) Clear() error {
	if strings.TrimSpace(w.dir) == "" {
		return fmt.Errorf("%w: empty path", ErrUnsafeDir)
	}
	abs, err := filepath.Abs(w.dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", w.dir, err)
	}
	if filepath.Dir(abs) == abs {
		return fmt.Errorf("%w: %s is a filesystem root", ErrUnsafeDir, abs)
	}
	if wd, err := os.Getwd(); err == nil && within(wd, abs) {
		return fmt.Errorf("%w: %s contains the working directory", ErrUnsafeDir, abs)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		if h, err := filepath.Abs(home); err == nil && h == abs {
			return fmt.Errorf("%w: %s is the home directory", ErrUnsafeDir, abs)
		}
	}

	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("removing %s: %w", abs, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", abs, err)
	}
	w.log.Debug("output directory cleared", "dir", abs)
	return nil
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// WritePlan writes every file of the plan.
func (w *Writer) WritePlan(p *build.Plan) error {
	for _, f := range p.Files {
		full := filepath.Join(w.dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(full, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", f.Path, err)
		}
		w.log.Debug("file written", "path", f.Path, "bytes", len(f.Content))
	}
	return nil
}

// WriteListing prints one line per planned file: path, size and digest.
func WriteListing(out io.Writer, p *build.Plan) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tBYTES\tXXH3")
	for _, f := range p.Files {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", f.Path, len(f.Content), f.Digest())
	}
	return tw.Flush()
}
