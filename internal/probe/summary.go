package probe

import (
	"fmt"
	"time"

	"github.com/capatazlib/go-daemoncheck/internal/severity"
)

const msgCannotOpenLog = "Error: Cannot open status log for reading!"

func plural(n int64, singular, pluralSuffix string) string {
	if n == 1 {
		return singular
	}
	return singular + pluralSuffix
}

func withLabel(label, text string) string {
	if label == "" {
		return text
	}
	return label + " " + text
}

// locatedSummary renders the summary of an evaluation that found processes,
// e.g. "ok: located 2 processes, status log updated 5 seconds ago"
func locatedSummary(label string, sev severity.Severity, matches int, age int64) string {
	word := "problem"
	if sev == severity.OK {
		word = "ok"
	}
	return withLabel(label, fmt.Sprintf(
		"%s: located %d %s, status log updated %d %s ago",
		word,
		matches,
		plural(int64(matches), "process", "es"),
		age,
		plural(age, "second", "s"),
	))
}

func noProcessSummary(label string) string {
	if label == "" {
		return "Could not locate a running process!"
	}
	return fmt.Sprintf("Could not locate a running %s process!", label)
}

func couldNotOpenPipeSummary(command string) string {
	return "Could not open pipe: " + command
}

func timedOutSummary(timeout time.Duration) string {
	if timeout%time.Second == 0 {
		secs := int64(timeout / time.Second)
		return fmt.Sprintf("Plugin timed out after %d %s", secs, plural(secs, "second", "s"))
	}
	return fmt.Sprintf("Plugin timed out after %s", timeout)
}
