package check

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSummaryCounts(t *testing.T) {
	at := time.Now()
	s := NewSummary("run-1", []Outcome{
		{Name: "a", Passed: true},
		{Name: "b", Passed: false},
		{Name: "c", Passed: true},
		{Name: "d", Passed: false},
	}, at)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, s.Total-s.Passed, s.Failed)
	assert.InDelta(t, 0.5, s.PassRate, 1e-9)
	assert.Equal(t, []string{"b", "d"}, names(s.Failures()))
}

func TestNewSummaryEmpty(t *testing.T) {
	s := NewSummary("", nil, time.Now())
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0.0, s.PassRate)
	assert.Empty(t, s.Failures())
}

func TestOutcomeText(t *testing.T) {
	plain := Outcome{Message: "ok"}
	assert.Equal(t, "ok", plain.Text())

	structured := Outcome{Detail: map[string][]string{"missing_columns": {"extra"}}}
	assert.JSONEq(t, `{"missing_columns":["extra"]}`, structured.Text())
	assert.Equal(t, StatusFail, structured.Status())
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("schema_check")
	assert.True(t, ok)
	assert.Equal(t, KindSchema, k)
	assert.Equal(t, "conformity", k.Category())

	_, ok = ParseKind("regex_check")
	assert.False(t, ok)
}

func names(in []Outcome) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		out = append(out, o.Name)
	}
	return out
}
