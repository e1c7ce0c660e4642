// SPDX-License-Identifier: MPL-2.0

package report

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/odbcprov/odbcprov/internal/sequence"
)

const namespace = "odbcprov"

// Label names
const (
	LabelStep   = "step"
	LabelPhase  = "phase"
	LabelStatus = "status"
)

// Metrics holds the gauges describing one run.
type Metrics struct {
	StepDuration *prometheus.GaugeVec
	StepSuccess  *prometheus.GaugeVec
	RunSuccess   prometheus.Gauge
	RunTimestamp prometheus.Gauge
}

// NewMetrics creates the run gauges and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time of each provisioning step in the last run.",
		}, []string{LabelStep, LabelPhase, LabelStatus}),
		StepSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_success",
			Help:      "1 if the step succeeded in the last run, 0 otherwise.",
		}, []string{LabelStep}),
		RunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_success",
			Help:      "1 if the last run reached DONE, 0 otherwise.",
		}),
		RunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_finished_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	reg.MustRegister(m.StepDuration, m.StepSuccess, m.RunSuccess, m.RunTimestamp)
	return m
}

// Observe sets the gauges from r.
func (m *Metrics) Observe(r *sequence.Report) {
	for _, s := range r.Steps {
		m.StepDuration.WithLabelValues(s.Name, string(s.Phase), string(s.Status)).Set(s.DurationSeconds)
		m.StepSuccess.WithLabelValues(s.Name).Set(boolGauge(s.Status == sequence.StatusSucceeded))
	}
	m.RunSuccess.Set(boolGauge(r.Succeeded()))
	if !r.FinishedAt.IsZero() {
		m.RunTimestamp.Set(float64(r.FinishedAt.UnixNano()) / 1e9)
	}
}

// WriteMetrics writes r to path in the Prometheus text format. The file is
// replaced atomically, as the textfile collector requires.
func WriteMetrics(path string, r *sequence.Report) error {
	reg := prometheus.NewRegistry()
	NewMetrics(reg).Observe(r)
	return prometheus.WriteToTextfile(path, reg)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
