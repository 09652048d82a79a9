// Package stats records the action counts of workflow runs as prometheus
// metrics.
package stats

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type Stats struct {
	registry     *prometheus.Registry
	imported     *prometheus.CounterVec
	surviving    *prometheus.GaugeVec
	exported     *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
}

// New returns Stats with its own registry.
func New() *Stats {
	s := &Stats{
		registry: prometheus.NewRegistry(),
		imported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "osmada_imported_actions_total",
				Help: "Number of actions read by import steps",
			},
			[]string{"workflow"},
		),
		surviving: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "osmada_filter_surviving_actions",
				Help: "Number of actions left after a filter step",
			},
			[]string{"workflow", "step"},
		),
		exported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "osmada_exported_actions_total",
				Help: "Number of actions written by export steps",
			},
			[]string{"workflow", "step"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "osmada_step_duration_seconds",
				Help:    "Duration of workflow steps in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"workflow", "kind"},
		),
	}
	s.registry.MustRegister(s.imported, s.surviving, s.exported, s.stepDuration)
	return s
}

func (s *Stats) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Stats) Imported(workflow string, n int) {
	s.imported.WithLabelValues(workflow).Add(float64(n))
}

func (s *Stats) Surviving(workflow, step string, n int) {
	s.surviving.WithLabelValues(workflow, step).Set(float64(n))
}

func (s *Stats) Exported(workflow, step string, n int) {
	s.exported.WithLabelValues(workflow, step).Add(float64(n))
}

func (s *Stats) StepDone(workflow, kind string, d time.Duration) {
	s.stepDuration.WithLabelValues(workflow, kind).Observe(d.Seconds())
}

// WriteFile writes all metrics in the text exposition format, e.g. for the
// node_exporter textfile collector.
func (s *Stats) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, s.registry); err != nil {
		return errors.Wrapf(err, "writing metrics to %s", path)
	}
	return nil
}
