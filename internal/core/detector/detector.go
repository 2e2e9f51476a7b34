// Package detector classifies the latest point of hourly metric series by how
// far it lies from the preceding history.
package detector

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"stream-quality/internal/core/stats"
	"stream-quality/internal/metrics"
	"stream-quality/internal/utils/logger"
)

type Point struct {
	At    time.Time
	Value float64
}

// Series is ordered oldest first; the last point is the one under test.
type Series struct {
	Metric string
	Points []Point
}

type Record struct {
	MetricName          string         `json:"metric_name"`
	Timestamp           time.Time      `json:"timestamp"`
	Value               float64        `json:"value"`
	ExpectedValue       float64        `json:"expected_value"`
	DeviationPercentage float64        `json:"deviation_percentage"`
	ZScore              float64        `json:"z_score"`
	Severity            stats.Severity `json:"severity"`
}

// ZeroVariance decides what happens when the history has no spread.
type ZeroVariance string

const (
	ZeroVarianceSkip      ZeroVariance = "skip"
	ZeroVarianceZeroScore ZeroVariance = "zero"
)

func ParseZeroVariance(raw string) (ZeroVariance, error) {
	switch ZeroVariance(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ZeroVarianceSkip:
		return ZeroVarianceSkip, nil
	case ZeroVarianceZeroScore:
		return ZeroVarianceZeroScore, nil
	default:
		return "", fmt.Errorf("unknown zero_variance policy %q", raw)
	}
}

type Detector struct {
	policy       stats.SeverityPolicy
	zeroVariance ZeroVariance
	parallelism  int
	log          *logger.Logger
	rec          *metrics.Recorder
	now          func() time.Time
}

type Option func(*Detector)

func WithZeroVariance(z ZeroVariance) Option {
	return func(d *Detector) {
		d.zeroVariance = z
	}
}

func WithParallelism(n int) Option {
	return func(d *Detector) {
		d.parallelism = n
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(d *Detector) {
		d.log = l
	}
}

func WithRecorder(rec *metrics.Recorder) Option {
	return func(d *Detector) {
		d.rec = rec
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		d.now = now
	}
}

func New(policy stats.SeverityPolicy, opts ...Option) *Detector {
	d := &Detector{
		policy:       policy,
		zeroVariance: ZeroVarianceSkip,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.parallelism <= 0 {
		d.parallelism = runtime.NumCPU()
	}
	return d
}

// Evaluate scores one series. ok is false when there is no history to compare
// against, or when the history is flat and the policy is to skip.
func (d *Detector) Evaluate(s Series) (Record, bool) {
	if len(s.Points) < 2 {
		return Record{}, false
	}
	current := s.Points[len(s.Points)-1]
	history := make([]float64, 0, len(s.Points)-1)
	for _, p := range s.Points[:len(s.Points)-1] {
		history = append(history, p.Value)
	}

	mean := stats.Mean(history)
	std := stats.PopulationStd(history)
	z := 0.0
	if std == 0 {
		if d.zeroVariance == ZeroVarianceSkip {
			return Record{}, false
		}
	} else {
		z = (current.Value - mean) / std
	}

	at := current.At
	if at.IsZero() {
		at = d.now()
	}
	absZ := math.Abs(z)
	return Record{
		MetricName:          s.Metric,
		Timestamp:           at,
		Value:               current.Value,
		ExpectedValue:       mean,
		DeviationPercentage: absZ * 100,
		ZScore:              z,
		Severity:            d.policy.Classify(absZ),
	}, true
}

// Detect scores every series concurrently and returns the emitted records in
// input order. Skipped series produce no record.
func (d *Detector) Detect(ctx context.Context, series []Series) ([]Record, error) {
	type slot struct {
		rec Record
		ok  bool
	}
	slots := make([]slot, len(series))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallelism)
	for i, s := range series {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, ok := d.Evaluate(s)
			slots[i] = slot{rec: rec, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Record
	for i, sl := range slots {
		if !sl.ok {
			d.log.Debugf("metric %s skipped (%d points)", series[i].Metric, len(series[i].Points))
			continue
		}
		d.rec.ObserveAnomaly(sl.rec.MetricName, string(sl.rec.Severity))
		if sl.rec.Severity != stats.SeverityLow {
			d.log.Warnf("metric %s: value %.2f vs expected %.2f (z=%.2f, %s)",
				sl.rec.MetricName, sl.rec.Value, sl.rec.ExpectedValue, sl.rec.ZScore, sl.rec.Severity)
		}
		out = append(out, sl.rec)
	}
	return out, nil
}
