// SPDX-License-Identifier: MPL-2.0

package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/odbcprov/odbcprov/internal/fsutil"
	"github.com/odbcprov/odbcprov/internal/sequence"
)

type (
	// Writer encodes reports in one format.
	Writer struct {
		format Format
		text   TextOptions
	}

	// Option configures a Writer.
	Option func(*Writer)
)

// WithTextOptions sets how text reports are rendered.
func WithTextOptions(opts TextOptions) Option {
	return func(w *Writer) {
		w.text = opts
	}
}

// New returns a Writer for format.
func New(format Format, opts ...Option) (*Writer, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	w := &Writer{format: format}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Format returns the writer's format.
func (w *Writer) Format() Format {
	return w.format
}

// Write encodes r to out.
func (w *Writer) Write(out io.Writer, r *sequence.Report) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(out).Encode(r)
	default:
		return writeText(out, r, w.text)
	}
}

// WriteFile encodes r and replaces path with the result.
func (w *Writer) WriteFile(fs afero.Fs, path string, r *sequence.Report) error {
	var buf bytes.Buffer
	if err := w.Write(&buf, r); err != nil {
		return fmt.Errorf("encode %s report: %w", w.format, err)
	}
	if err := fsutil.WriteFileAtomic(fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// IsTerminal reports whether out is a terminal.
func IsTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ColorEnabled reports whether text written to out should be colored:
// out is a terminal and NO_COLOR is unset.
func ColorEnabled(out io.Writer) bool {
	return os.Getenv("NO_COLOR") == "" && IsTerminal(out)
}
