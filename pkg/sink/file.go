package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an on-disk snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// File writes each snapshot to <dir>/<contract>-<toBlock>.<format>.
type File struct {
	dir    string
	format Format
}

var _ Sink = (*File)(nil)

// NewFile creates dir if needed.
func NewFile(dir string, format Format) (*File, error) {
	if dir == "" {
		return nil, errors.New("invalid output directory: must not be empty")
	}
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &File{dir: dir, format: format}, nil
}

func (f *File) Name() string { return "file" }

// Path returns the file a snapshot is written to.
func (f *File) Path(snap Snapshot) string {
	name := fmt.Sprintf("%s-%d.%s", strings.ToLower(snap.Contract.Hex()), snap.ToBlock, f.format)
	return filepath.Join(f.dir, name)
}

// Write encodes the snapshot to a temporary file and renames it into place,
// so readers never observe a partial file.
func (f *File) Write(ctx context.Context, snap Snapshot) error {
	if err := snap.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encode(f.format, NewDocument(snap))
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path(snap)); err != nil {
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}
	return nil
}

func encode(format Format, doc Document) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(doc)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Writer encodes each snapshot to an io.Writer, typically stdout.
type Writer struct {
	w      io.Writer
	format Format
}

var _ Sink = (*Writer)(nil)

func NewWriter(w io.Writer, format Format) (*Writer, error) {
	if w == nil {
		return nil, errors.New("invalid writer: must not be nil")
	}
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &Writer{w: w, format: format}, nil
}

func (w *Writer) Name() string { return "stdout" }

func (w *Writer) Write(ctx context.Context, snap Snapshot) error {
	if err := snap.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(w.format, NewDocument(snap))
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = w.w.Write(data)
	return err
}
