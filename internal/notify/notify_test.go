package notify_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capatazlib/go-daemoncheck/internal/notify"
	"github.com/capatazlib/go-daemoncheck/internal/probe"
	. "github.com/capatazlib/go-daemoncheck/internal/ptest"
)

const now = int64(1700000000)

func TestLogrusNotifier(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.Level = logrus.DebugLevel

	p := probe.New(
		probe.WithCensus(Shell(`echo daemon; echo oops >&2`)),
		probe.WithClock(FixedClock(now)),
		probe.WithNotifier(notify.Logrus(logger)),
	)
	res := p.Evaluate(context.Background(), probe.Input{
		StatusLogPath:     WriteStatusLog(t, StatusLine(now-3)),
		StaleThreshold:    60,
		ProcessMatchToken: "daemon",
	})

	entries := hook.AllEntries()
	require.Len(t, entries, 5)

	anomaly := entries[3]
	assert.Equal(t, logrus.WarnLevel, anomaly.Level)
	assert.Equal(t, "AnomalyDetected", anomaly.Data["event"])
	assert.Equal(t, "oops\n", anomaly.Data["census.stderr"])

	last := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, last.Level)
	assert.Equal(t, "evaluation concluded", last.Message)
	assert.Equal(t, "WARNING", last.Data["severity"])
	assert.Equal(t, res.RunID, last.Data["run_id"])
	assert.Equal(t, 1, last.Data["process_matches"])
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := notify.NewLogger(&buf, "warn", "json")
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = notify.NewLogger(&buf, "loud", "text")
	assert.Error(t, err)
}

func gaugeValue(t *testing.T, m *notify.Metrics, name string) float64 {
	t.Helper()
	mfs, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestMetricsNotifier(t *testing.T) {
	m := notify.NewMetrics()
	p := probe.New(
		probe.WithCensus(ProcessListing("daemon", "daemon", "bash")),
		probe.WithClock(FixedClock(now)),
		probe.WithNotifier(m.Notifier()),
	)
	p.Evaluate(context.Background(), probe.Input{
		StatusLogPath:     WriteStatusLog(t, StatusLine(now-4000)),
		StaleThreshold:    60,
		ProcessMatchToken: "daemon",
	})

	assert.Equal(t, float64(2), gaugeValue(t, m, "daemoncheck_process_matches"))
	assert.Equal(t, float64(4000), gaugeValue(t, m, "daemoncheck_status_age_seconds"))
	assert.Equal(t, float64(1), gaugeValue(t, m, "daemoncheck_severity"))
	assert.Equal(t, float64(0), gaugeValue(t, m, "daemoncheck_census_anomaly"))

	path := filepath.Join(t.TempDir(), "daemoncheck.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "daemoncheck_process_matches{"))
}
