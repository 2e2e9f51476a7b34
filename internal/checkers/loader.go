package checkers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"stream-quality/internal/checkers/anomaly"
	"stream-quality/internal/checkers/nulls"
	"stream-quality/internal/checkers/ranges"
	"stream-quality/internal/checkers/schema"
	"stream-quality/internal/checkers/unique"
	"stream-quality/internal/core/check"
	"stream-quality/internal/core/stats"
)

var ErrUnknownKind = errors.New("unknown check type")

// Descriptor is one entry of the declarative check document.
type Descriptor struct {
	Name           string            `yaml:"name" mapstructure:"name"`
	Type           string            `yaml:"type" mapstructure:"type"`
	Columns        []string          `yaml:"columns" mapstructure:"columns"`
	Threshold      *float64          `yaml:"threshold" mapstructure:"threshold"`
	ColumnRanges   []ColumnRange     `yaml:"column_ranges" mapstructure:"column_ranges"`
	ShouldBeUnique *bool             `yaml:"should_be_unique" mapstructure:"should_be_unique"`
	ExpectedSchema map[string]string `yaml:"expected_schema" mapstructure:"expected_schema"`
	Column         string            `yaml:"column" mapstructure:"column"`
	Method         string            `yaml:"method" mapstructure:"method"`
}

type ColumnRange struct {
	Column string   `yaml:"column" mapstructure:"column"`
	Min    *float64 `yaml:"min" mapstructure:"min"`
	Max    *float64 `yaml:"max" mapstructure:"max"`
}

type document struct {
	Checks []Descriptor `yaml:"checks"`
}

// Parse decodes a standalone check document with a top-level checks list.
func Parse(r io.Reader) ([]Descriptor, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode check document: %w", err)
	}
	return doc.Checks, nil
}

// Build turns descriptors into checks in document order. Any defect in a
// descriptor fails the whole load; nothing is silently dropped.
func Build(descs []Descriptor, policy stats.SeverityPolicy) ([]check.Check, error) {
	checks := make([]check.Check, 0, len(descs))
	seen := make(map[string]struct{}, len(descs))
	for i, d := range descs {
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("check at index %d: name is required", i)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("check at index %d: duplicate name %q", i, d.Name)
		}
		seen[d.Name] = struct{}{}

		c, err := buildOne(d, policy)
		if err != nil {
			return nil, fmt.Errorf("check at index %d (name=%q): %w", i, d.Name, err)
		}
		checks = append(checks, c)
	}
	return checks, nil
}

func buildOne(d Descriptor, policy stats.SeverityPolicy) (check.Check, error) {
	kind, ok := check.ParseKind(d.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, d.Type)
	}

	switch kind {
	case check.KindNull:
		if len(d.Columns) == 0 {
			return nil, errors.New("columns are required")
		}
		threshold := floatOr(d.Threshold, 0)
		if threshold < 0 || threshold > 1 {
			return nil, fmt.Errorf("threshold must be within [0,1], got %v", threshold)
		}
		return &nulls.Check{NameValue: d.Name, Columns: d.Columns, Threshold: threshold}, nil

	case check.KindValueRange:
		if len(d.ColumnRanges) == 0 {
			return nil, errors.New("column_ranges are required")
		}
		bounds := make([]ranges.Bound, 0, len(d.ColumnRanges))
		for j, cr := range d.ColumnRanges {
			if cr.Column == "" || cr.Min == nil || cr.Max == nil {
				return nil, fmt.Errorf("column_ranges[%d]: column, min and max are required", j)
			}
			if *cr.Min > *cr.Max {
				return nil, fmt.Errorf("column_ranges[%d] (%s): min %v is greater than max %v", j, cr.Column, *cr.Min, *cr.Max)
			}
			bounds = append(bounds, ranges.Bound{Column: cr.Column, Min: *cr.Min, Max: *cr.Max})
		}
		return &ranges.Check{NameValue: d.Name, Bounds: bounds}, nil

	case check.KindUniqueness:
		if len(d.Columns) == 0 {
			return nil, errors.New("columns are required")
		}
		shouldBeUnique := true
		if d.ShouldBeUnique != nil {
			shouldBeUnique = *d.ShouldBeUnique
		}
		return &unique.Check{NameValue: d.Name, Columns: d.Columns, ShouldBeUnique: shouldBeUnique}, nil

	case check.KindSchema:
		if len(d.ExpectedSchema) == 0 {
			return nil, errors.New("expected_schema is required")
		}
		return &schema.Check{NameValue: d.Name, Expected: d.ExpectedSchema}, nil

	case check.KindAnomaly:
		if d.Column == "" {
			return nil, errors.New("column is required")
		}
		method, err := anomaly.ParseMethod(d.Method)
		if err != nil {
			return nil, err
		}
		threshold := floatOr(d.Threshold, policy.High)
		if threshold <= 0 {
			return nil, fmt.Errorf("threshold must be positive, got %v", threshold)
		}
		return &anomaly.Check{NameValue: d.Name, Column: d.Column, Method: method, Threshold: threshold}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, d.Type)
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
