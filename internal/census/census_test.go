package census_test

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capatazlib/go-daemoncheck/internal/census"
)

func shell(script string) *census.Census {
	return census.New(census.WithCommand("/bin/sh", "-c", script))
}

func TestRunCountsMatchingLines(t *testing.T) {
	c := shell(`printf 'S 0 1 /usr/sbin/nagios -d\nS 0 2 /bin/bash\nS 0 3 /usr/sbin/nagios -d\n'`)
	res, err := c.Run(context.Background(), "/usr/sbin/nagios")
	require.NoError(t, err)
	assert.Equal(t, 2, res.MatchCount)
	assert.False(t, res.Anomaly)
	assert.NoError(t, res.ExitErr)
}

func TestRunSubstringIsLiteral(t *testing.T) {
	c := shell(`printf 'nagios\nNAGIOS\nnag.os\nxnagiosx\n'`)
	res, err := c.Run(context.Background(), "nagios")
	require.NoError(t, err)
	assert.Equal(t, 2, res.MatchCount)

	res, err = c.Run(context.Background(), "nag.os")
	require.NoError(t, err)
	assert.Equal(t, 1, res.MatchCount)
}

func TestRunLastLineWithoutNewline(t *testing.T) {
	res, err := shell(`printf 'a daemon\nb daemon'`).Run(context.Background(), "daemon")
	require.NoError(t, err)
	assert.Equal(t, 2, res.MatchCount)
}

func TestRunStderrIsAnomaly(t *testing.T) {
	c := shell(`echo daemon; echo 'ps: warning' >&2`)
	res, err := c.Run(context.Background(), "daemon")
	require.NoError(t, err)
	assert.Equal(t, 1, res.MatchCount)
	assert.True(t, res.Anomaly)
	assert.Equal(t, "ps: warning\n", res.Stderr)
}

func TestRunStderrCaptureIsBounded(t *testing.T) {
	c := census.New(
		census.WithCommand("/bin/sh", "-c", `printf '0123456789' >&2`),
		census.WithStderrCapture(4),
	)
	res, err := c.Run(context.Background(), "daemon")
	require.NoError(t, err)
	assert.True(t, res.Anomaly)
	assert.Equal(t, "0123", res.Stderr)
}

func TestRunAbnormalExitIsAnomaly(t *testing.T) {
	res, err := shell(`echo daemon; exit 3`).Run(context.Background(), "daemon")
	require.NoError(t, err)
	assert.Equal(t, 1, res.MatchCount)
	assert.True(t, res.Anomaly)

	var exitErr *exec.ExitError
	assert.True(t, errors.As(res.ExitErr, &exitErr))
}

// A child filling both pipes beyond their buffer size must not deadlock the
// census
func TestRunDrainsBothStreamsConcurrently(t *testing.T) {
	script := `i=0; while [ $i -lt 20000 ]; do echo "stderr filler line $i" >&2; echo "daemon $i"; i=$((i+1)); done`
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := shell(script).Run(ctx, "daemon")
	require.NoError(t, err)
	assert.Equal(t, 20000, res.MatchCount)
	assert.True(t, res.Anomaly)
}

func TestRunSpawnFailure(t *testing.T) {
	c := census.New(census.WithCommand("/nonexistent/ps", "aux"))
	_, err := c.Run(context.Background(), "daemon")

	var spawnErr *census.SpawnError
	require.True(t, errors.As(err, &spawnErr))
	assert.Equal(t, "/nonexistent/ps aux", spawnErr.Command())
	assert.Equal(t, "could not open pipe: /nonexistent/ps aux", err.Error())
}

func TestRunEmptyCommand(t *testing.T) {
	_, err := census.New(census.WithCommand()).Run(context.Background(), "daemon")
	var spawnErr *census.SpawnError
	assert.True(t, errors.As(err, &spawnErr))
}

func TestRunTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := shell(`echo daemon; exec sleep 30`).Run(ctx, "daemon")
	assert.Less(t, int64(time.Since(start)), int64(10*time.Second))

	var timeoutErr *census.TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.NoError(t, timeoutErr.DrainError())
	assert.NotContains(t, timeoutErr.KVs(), "census.drain.error")
}

func TestRunTimeoutJoinsDrainersHeldByGrandchild(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// the background sleep keeps both pipes open after the shell is killed
	c := census.New(
		census.WithCommand("/bin/sh", "-c", `sleep 30 & echo daemon; exec sleep 30`),
		census.WithDrainTimeout(2*time.Second),
	)
	start := time.Now()
	_, err := c.Run(ctx, "daemon")
	assert.Less(t, int64(time.Since(start)), int64(5*time.Second))

	var timeoutErr *census.TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.NoError(t, timeoutErr.DrainError())
}

func TestDefaultCommand(t *testing.T) {
	assert.Equal(t, strings.Join(census.DefaultCommand, " "), census.New().Command())
}

func TestMatchCount_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)

	properties.Property("match count equals lines containing token", prop.ForAll(
		func(lines []string) bool {
			want := 0
			var script strings.Builder
			script.WriteString("cat <<'EOF'\n")
			for _, l := range lines {
				if strings.Contains(l, "zz") {
					want++
				}
				script.WriteString(l)
				script.WriteString("\n")
			}
			script.WriteString("EOF\n")

			res, err := shell(script.String()).Run(context.Background(), "zz")
			if err != nil {
				t.Log(err)
				return false
			}
			return res.MatchCount == want && !res.Anomaly
		},
		gen.SliceOf(gen.RegexMatch(`[a-z]{0,3}(zz)?[a-z]{0,3}`)),
	))

	properties.TestingRun(t)
}
