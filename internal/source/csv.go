package source

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"stream-quality/internal/core/batch"
)

// ReadCSV reads a header row followed by records. Empty cells are null;
// other cells become int64, float64 or bool when they parse as one.
func ReadCSV(r io.Reader) (*batch.Batch, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return batch.New()
	}
	if err != nil {
		return nil, err
	}

	cols := make([]batch.Column, len(header))
	for i, name := range header {
		cols[i].Name = strings.TrimSpace(name)
	}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for i, cell := range record {
			cols[i].Values = append(cols[i].Values, parseCell(cell))
		}
	}
	return batch.New(cols...)
}

func parseCell(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
