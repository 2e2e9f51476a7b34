// Package source reads a batch from a CSV or JSON-records file.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stream-quality/internal/core/batch"
)

var ErrUnsupportedFormat = errors.New("unsupported batch format")

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat normalizes raw, falling back to the extension of path when raw is empty.
func ParseFormat(raw, path string) (Format, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		v = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch Format(v) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, v)
	}
}

// Source produces the batch for one orchestrator run.
type Source interface {
	Load(ctx context.Context) (*batch.Batch, error)
}

type File struct {
	Path   string
	Format Format
}

func (f File) Load(ctx context.Context) (*batch.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format, err := ParseFormat(string(f.Format), f.Path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var b *batch.Batch
	switch format {
	case FormatCSV:
		b, err = ReadCSV(file)
	case FormatJSON:
		b, err = ReadJSON(file)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	return b, nil
}
