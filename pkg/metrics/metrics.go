// Package metrics exports prometheus collectors for batch runs, permission
// changes and rule administration.
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/doodlesbykumbi/membersync/pkg/batch"
	"github.com/doodlesbykumbi/membersync/pkg/effect"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
	"github.com/doodlesbykumbi/membersync/pkg/rules"
)

const namespace = "membersync"

// Step outcomes.
const (
	OutcomeAdvanced = "advanced"
	OutcomeFinished = "finished"
	OutcomeStopped  = "stopped"
	OutcomeFailed   = "failed"
)

// Metrics holds the collectors. It is a batch recorder, an effect observer
// and a rule observer.
type Metrics struct {
	steps        *prometheus.CounterVec
	stepDuration prometheus.Histogram
	results      *prometheus.CounterVec
	changes      *prometheus.CounterVec
	rules        *prometheus.CounterVec
	offset       prometheus.Gauge
}

var (
	_ batch.Recorder     = (*Metrics)(nil)
	_ effect.Observer    = (*Metrics)(nil)
	_ rules.AfterSave    = (*Metrics)(nil)
	_ rules.BeforeDelete = (*Metrics)(nil)
)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "steps_total",
			Help:      "Batch steps processed, by outcome.",
		}, []string{"outcome", "dry_run"}),
		stepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "step_duration_seconds",
			Help:      "Time taken to process one batch step.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		results: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "results_total",
			Help:      "Per-membership results reported by batch steps.",
		}, []string{"result"}),
		changes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "effect",
			Name:      "changes_total",
			Help:      "Role and capability changes written to the directory.",
		}, []string{"op", "kind", "undo"}),
		rules: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "changes_total",
			Help:      "Association rules saved or deleted.",
		}, []string{"operation", "method"}),
		offset: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "offset",
			Help:      "Offset of the last processed chunk.",
		}),
	}
}

func (m *Metrics) Name() string { return "metrics" }

// RecordStep counts a batch step and its results.
func (m *Metrics) RecordStep(_ context.Context, s batch.Step) {
	outcome := OutcomeAdvanced
	switch {
	case s.Failed:
		outcome = OutcomeFailed
	case s.Stopped:
		outcome = OutcomeStopped
	case s.Finished:
		outcome = OutcomeFinished
	}
	m.steps.WithLabelValues(outcome, strconv.FormatBool(s.DryRun)).Inc()
	if s.Duration > 0 {
		m.stepDuration.Observe(s.Duration.Seconds())
	}
	if s.RunID != "" && !s.Stopped {
		m.offset.Set(float64(s.From))
	}
	for _, r := range s.Feedback {
		if r.Failed() {
			m.results.WithLabelValues("failed").Inc()
		} else {
			m.results.WithLabelValues(r.Flag.String()).Inc()
		}
	}
}

func (m *Metrics) OnApply(_ context.Context, ev effect.Event) error {
	m.changes.WithLabelValues(string(ev.Change.Op), string(ev.Change.Kind), "false").Inc()
	return nil
}

func (m *Metrics) OnUndo(_ context.Context, ev effect.Event) error {
	m.changes.WithLabelValues(string(ev.Change.Op), string(ev.Change.Kind), "true").Inc()
	return nil
}

func (m *Metrics) OnAfterSave(_ context.Context, r rule.Rule) error {
	m.rules.WithLabelValues("save", r.Method().String()).Inc()
	return nil
}

func (m *Metrics) OnBeforeDelete(_ context.Context, r rule.Rule) error {
	m.rules.WithLabelValues("delete", r.Method().String()).Inc()
	return nil
}
