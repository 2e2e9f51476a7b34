package source

import (
	"encoding/json"
	"fmt"
	"io"

	"stream-quality/internal/core/batch"
)

// ReadJSON reads an array of flat objects. Columns appear in first-seen key
// order and a key absent from a record is null for that row.
func ReadJSON(r io.Reader) (*batch.Batch, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	var order []string
	index := map[string]int{}
	var values [][]any
	rows := 0
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("record %d: %w", rows, err)
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := tok.(string)
			if !ok {
				return nil, fmt.Errorf("record %d: expected key, got %v", rows, tok)
			}
			var raw any
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("record %d key %q: %w", rows, key, err)
			}
			i, seen := index[key]
			if !seen {
				i = len(order)
				index[key] = i
				order = append(order, key)
				values = append(values, make([]any, rows, rows+1))
			}
			if len(values[i]) > rows {
				values[i][rows] = normalize(raw)
				continue
			}
			values[i] = append(values[i], normalize(raw))
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		rows++
		for i := range values {
			if len(values[i]) < rows {
				values[i] = append(values[i], nil)
			}
		}
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}

	cols := make([]batch.Column, len(order))
	for i, name := range order {
		cols[i] = batch.Column{Name: name, Values: values[i]}
	}
	return batch.New(cols...)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func normalize(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
