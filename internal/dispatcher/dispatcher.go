// Package dispatcher fans alerts out to the configured channels. Every channel
// is attempted independently under its own timeout and reports a plain bool.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stream-quality/internal/core/check"
	"stream-quality/internal/core/detector"
	"stream-quality/internal/core/notify"
	"stream-quality/internal/core/policy"
	"stream-quality/internal/core/stats"
	"stream-quality/internal/metrics"
	"stream-quality/internal/utils/logger"
)

const DefaultTimeout = 10 * time.Second

type Channel struct {
	Name        string
	Enabled     bool
	Threshold   float64
	MinSeverity stats.Severity
	Notifier    notify.Notifier
}

func (c Channel) rule() policy.Rule {
	return policy.Rule{
		Name:        c.Name,
		Enabled:     c.Enabled,
		Threshold:   c.Threshold,
		MinSeverity: c.MinSeverity,
	}
}

type Dispatcher struct {
	channels []Channel
	rules    []policy.Rule
	timeout  time.Duration
	cooldown *policy.Cooldown
	log      *logger.Logger
	rec      *metrics.Recorder
	now      func() time.Time
}

type Option func(*Dispatcher)

func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		disp.timeout = d
	}
}

// WithCooldown suppresses a second alert of the same kind on a channel
// within window.
func WithCooldown(window time.Duration) Option {
	return func(disp *Dispatcher) {
		disp.cooldown = policy.NewCooldown(window)
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(disp *Dispatcher) {
		disp.log = l
	}
}

func WithRecorder(rec *metrics.Recorder) Option {
	return func(disp *Dispatcher) {
		disp.rec = rec
	}
}

func WithClock(now func() time.Time) Option {
	return func(disp *Dispatcher) {
		disp.now = now
	}
}

func New(channels []Channel, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		channels: append([]Channel(nil), channels...),
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, c := range d.channels {
		d.rules = append(d.rules, c.rule())
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	return d
}

func (d *Dispatcher) Channels() []Channel {
	out := make([]Channel, len(d.channels))
	copy(out, d.channels)
	return out
}

// ShouldAlert is true when the pass rate is below the highest channel threshold.
func (d *Dispatcher) ShouldAlert(s check.Summary) bool {
	return policy.ShouldAlert(s.PassRate, d.rules)
}

// Dispatch sends a quality alert to every enabled channel whose own threshold
// is breached. The returned map has an entry for every channel.
func (d *Dispatcher) Dispatch(ctx context.Context, s check.Summary) map[string]bool {
	if !d.ShouldAlert(s) {
		d.log.Infof("pass rate %.4f is above every threshold, no alert needed", s.PassRate)
		return d.none()
	}
	alert := notify.QualityAlert(s, d.now())
	return d.fanOut(ctx, notify.KindQuality, func(c Channel) (notify.Alert, bool) {
		if !c.Enabled {
			d.log.Debugf("channel %s disabled", c.Name)
			return notify.Alert{}, false
		}
		if !c.rule().Fires(s.PassRate) {
			d.log.Infof("channel %s: pass rate %.4f is above threshold %.4f", c.Name, s.PassRate, c.Threshold)
			return notify.Alert{}, false
		}
		return alert, true
	})
}

// DispatchAnomalies sends each enabled channel the records at or above its
// minimum severity. Channels with nothing qualifying report false.
func (d *Dispatcher) DispatchAnomalies(ctx context.Context, records []detector.Record) map[string]bool {
	if len(records) == 0 {
		return d.none()
	}
	at := d.now()
	return d.fanOut(ctx, notify.KindAnomaly, func(c Channel) (notify.Alert, bool) {
		qualifying := c.rule().Qualifying(records)
		if len(qualifying) == 0 {
			return notify.Alert{}, false
		}
		return notify.AnomalyAlert(qualifying, at), true
	})
}

func (d *Dispatcher) none() map[string]bool {
	out := make(map[string]bool, len(d.channels))
	for _, c := range d.channels {
		out[c.Name] = false
	}
	return out
}

func (d *Dispatcher) fanOut(ctx context.Context, kind notify.Kind, build func(Channel) (notify.Alert, bool)) map[string]bool {
	sent := make([]bool, len(d.channels))
	var wg sync.WaitGroup
	for i, c := range d.channels {
		alert, ok := build(c)
		if !ok {
			continue
		}
		key := c.Name + "/" + string(kind)
		if !d.cooldown.Reserve(key) {
			d.log.Infof("channel %s: %s alert suppressed by cooldown", c.Name, kind)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.send(ctx, c, alert)
			if err != nil {
				d.cooldown.Release(key)
				d.log.Errorf("notify %s: %v", c.Name, err)
				d.rec.ObserveAlert(c.Name, false)
				return
			}
			d.log.Infof("notify %s: %s", c.Name, alert.Title())
			d.rec.ObserveAlert(c.Name, true)
			sent[i] = true
		}()
	}
	wg.Wait()

	out := make(map[string]bool, len(d.channels))
	for i, c := range d.channels {
		out[c.Name] = sent[i]
	}
	return out
}

// send returns once the notifier finishes or the channel timeout passes,
// whichever is first. A notifier that ignores its context is abandoned.
func (d *Dispatcher) send(ctx context.Context, c Channel, alert notify.Alert) error {
	if c.Notifier == nil {
		return fmt.Errorf("channel %s has no notifier", c.Name)
	}
	sctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- c.Notifier.Send(sctx, alert)
	}()

	select {
	case err := <-done:
		return err
	case <-sctx.Done():
		return fmt.Errorf("send: %w", sctx.Err())
	}
}
