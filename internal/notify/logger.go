// Package notify turns evaluation events into log entries and metrics.
package notify

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/capatazlib/go-daemoncheck/internal/probe"
)

// NewLogger builds the logger of the probe. Logs never go to stdout, which is
// reserved for the summary line.
func NewLogger(out io.Writer, level string, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.Out = out

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.Level = lvl

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	return log, nil
}

// Logrus returns an EventNotifier that logs every evaluation event. Conclusions
// are logged at info level, anomalies at warn level and everything else at
// debug level.
func Logrus(ll logrus.FieldLogger) probe.EventNotifier {
	return func(ev probe.Event) {
		entry := ll.WithFields(logrus.Fields{
			"run_id":     ev.GetRunID(),
			"event":      ev.GetTag().String(),
			"state":      ev.GetState().String(),
			"severity":   ev.GetSeverity().String(),
			"created_at": ev.GetCreated(),
		})
		if err := ev.Err(); err != nil {
			entry = entry.WithError(err).WithFields(logrus.Fields(probe.ErrorKVs(err)))
		}

		switch ev.GetTag() {
		case probe.CensusCompleted:
			entry.WithField("process_matches", ev.GetMatchCount()).Debug("process census completed")
		case probe.FreshnessRead:
			entry.WithField("status_log_latest", ev.GetLatest()).Debug("status log scanned")
		case probe.AnomalyDetected:
			entry.Warn("process census reported an anomaly")
		case probe.EvaluationConcluded:
			entry.WithFields(logrus.Fields{
				"process_matches": ev.GetMatchCount(),
				"status_log_age":  ev.GetAge(),
				"duration":        ev.GetDuration().String(),
			}).Info("evaluation concluded")
		default:
			entry.Debug(ev.GetTag().String())
		}
	}
}
