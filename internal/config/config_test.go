package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capatazlib/go-daemoncheck/internal/census"
	"github.com/capatazlib/go-daemoncheck/internal/probe"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "daemoncheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, census.DefaultCommand, cfg.Census.Command)
	assert.Equal(t, "suffix", cfg.LineFormat)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
timeout: 3s
label: Nagios
line_format: bracketed
census:
  command: ["/bin/ps", "-eo", "args"]
log:
  level: debug
  format: json
metrics:
  textfile: /var/lib/node_exporter/daemoncheck.prom
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, "Nagios", cfg.Label)
	assert.Equal(t, "bracketed", cfg.LineFormat)
	assert.Equal(t, []string{"/bin/ps", "-eo", "args"}, cfg.Census.Command)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/var/lib/node_exporter/daemoncheck.prom", cfg.Metrics.Textfile)
	assert.Len(t, cfg.ProbeOpts(), 4)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "timeout: [not, a, duration]"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "timeout: 0s"))
	assert.EqualError(t, err, "timeout must be > 0")

	_, err = Load(writeConfig(t, "census:\n  command: []"))
	assert.EqualError(t, err, "census command cannot be empty")

	_, err = Load(writeConfig(t, "line_format: xml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "log:\n  format: xml"))
	assert.Error(t, err)
}

func TestLoadChecks(t *testing.T) {
	path := writeConfig(t, `
checks:
  - name: nagios
    status_log: /var/log/nagios/status.log
    expire_minutes: 5
    process: /usr/local/nagios/bin/nagios
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	inputs := cfg.CheckInputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, "/var/log/nagios/status.log", inputs["nagios"].StatusLogPath)
	assert.Equal(t, uint64(300), inputs["nagios"].StaleThreshold)
	assert.Equal(t, "/usr/local/nagios/bin/nagios", inputs["nagios"].ProcessMatchToken)
}

func TestLoadCheckErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "checks:\n  - status_log: /x\n    process: d"))
	assert.EqualError(t, err, "checks[0]: name cannot be empty")

	_, err = Load(writeConfig(t, `
checks:
  - {name: a, status_log: /x, process: d}
  - {name: a, status_log: /y, process: d}
`))
	assert.EqualError(t, err, `checks[1]: duplicate name "a"`)

	_, err = Load(writeConfig(t, "checks:\n  - {name: a, process: d}"))
	assert.EqualError(t, err, "checks[0] (a): You must provide the status_log")

	_, err = Load(writeConfig(t, "checks:\n  - {name: a, status_log: /x, process: d, expire_minutes: 307445734561825861}"))
	assert.ErrorIs(t, err, probe.ErrThresholdOverflow)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DAEMONCHECK_TIMEOUT":    "250ms",
		"DAEMONCHECK_PS_COMMAND": "/bin/ps -e -o args",
		"DAEMONCHECK_LABEL":      "Icinga",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, applyEnv(cfg, lookup))
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Equal(t, []string{"/bin/ps", "-e", "-o", "args"}, cfg.Census.Command)
	assert.Equal(t, "Icinga", cfg.Label)

	env["DAEMONCHECK_TIMEOUT"] = "soon"
	assert.Error(t, applyEnv(Default(), lookup))
}
