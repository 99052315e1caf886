package notify

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/capatazlib/go-daemoncheck/internal/probe"
	"github.com/capatazlib/go-daemoncheck/internal/severity"
)

// Metrics holds the gauges that describe the last evaluation
type Metrics struct {
	registry *prometheus.Registry

	processMatches *prometheus.GaugeVec
	statusAge      *prometheus.GaugeVec
	severity       *prometheus.GaugeVec
	anomaly        *prometheus.GaugeVec
	duration       *prometheus.GaugeVec
}

// NewMetrics registers the probe gauges on a dedicated registry. Series are
// labeled with the status log and process token of each evaluation.
func NewMetrics() *Metrics {
	labels := []string{"status_log", "process"}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		processMatches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "daemoncheck_process_matches",
			Help: "Number of process listing lines matching the process token.",
		}, labels),
		statusAge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "daemoncheck_status_age_seconds",
			Help: "Seconds since the newest status log entry.",
		}, labels),
		severity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "daemoncheck_severity",
			Help: "Severity of the last evaluation (0 ok, 1 warning, 2 critical, 3 unknown).",
		}, labels),
		anomaly: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "daemoncheck_census_anomaly",
			Help: "1 when the process listing command wrote to stderr or exited abnormally.",
		}, labels),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "daemoncheck_evaluation_duration_seconds",
			Help: "Wall time spent by the last evaluation.",
		}, labels),
	}
	m.registry.MustRegister(m.processMatches, m.statusAge, m.severity, m.anomaly, m.duration)
	return m
}

// Registry returns the registry holding the probe gauges
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Notifier returns an EventNotifier that updates the gauges
func (m *Metrics) Notifier() probe.EventNotifier {
	return func(ev probe.Event) {
		in := ev.GetInput()
		lvs := []string{in.StatusLogPath, in.ProcessMatchToken}
		switch ev.GetTag() {
		case probe.EvaluationStarted:
			m.anomaly.WithLabelValues(lvs...).Set(0)
		case probe.CensusCompleted:
			m.processMatches.WithLabelValues(lvs...).Set(float64(ev.GetMatchCount()))
		case probe.AnomalyDetected:
			m.anomaly.WithLabelValues(lvs...).Set(1)
		case probe.EvaluationConcluded:
			m.severity.WithLabelValues(lvs...).Set(float64(ev.GetSeverity().ExitCode()))
			m.duration.WithLabelValues(lvs...).Set(ev.GetDuration().Seconds())
			// the age is only computed once processes were located
			if sev := ev.GetSeverity(); sev == severity.OK || sev == severity.Warning {
				m.statusAge.WithLabelValues(lvs...).Set(float64(ev.GetAge()))
			}
		}
	}
}

// WriteTextfile writes the gauges in the node_exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
