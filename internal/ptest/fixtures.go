// Package ptest contains utilities to test evaluations: an event recorder,
// event predicates and fixtures for status logs and census commands.
package ptest

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/capatazlib/go-daemoncheck/internal/census"
	"github.com/capatazlib/go-daemoncheck/internal/probe"
)

// EventRecorder accumulates the events of evaluations
type EventRecorder struct {
	mu  sync.Mutex
	evs []probe.Event
}

// Notifier returns an EventNotifier that records into this recorder
func (r *EventRecorder) Notifier() probe.EventNotifier {
	return func(ev probe.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.evs = append(r.evs, ev)
	}
}

// Events returns a copy of the recorded events
func (r *EventRecorder) Events() []probe.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]probe.Event(nil), r.evs...)
}

// WriteStatusLog writes a status log with the given lines in a temporary
// directory and returns its path
func WriteStatusLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "status.log")
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("could not write status log: %v", err)
	}
	return path
}

// StatusLine renders a status log line carrying the given timestamp after
// the `]` delimiter
func StatusLine(ts int64) string {
	return "status]" + strconv.FormatInt(ts, 10)
}

// MissingPath returns a path that does not exist
func MissingPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent", "status.log")
}

// Shell returns a Census that runs the given /bin/sh script
func Shell(script string) *census.Census {
	return census.New(census.WithCommand("/bin/sh", "-c", script))
}

// ProcessListing returns a Census printing the given lines on stdout
func ProcessListing(lines ...string) *census.Census {
	var script strings.Builder
	script.WriteString("cat <<'LISTING'\n")
	for _, l := range lines {
		script.WriteString(l)
		script.WriteString("\n")
	}
	script.WriteString("LISTING\n")
	return Shell(script.String())
}

// FixedClock returns a clock frozen at the given unix time
func FixedClock(unix int64) func() time.Time {
	return func() time.Time {
		return time.Unix(unix, 0)
	}
}
