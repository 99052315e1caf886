// Package probe evaluates the liveness of a monitoring daemon by correlating
// the freshness of its status log with a census of its running processes.
package probe

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/capatazlib/go-daemoncheck/internal/census"
	"github.com/capatazlib/go-daemoncheck/internal/freshness"
	"github.com/capatazlib/go-daemoncheck/internal/severity"
)

// Result is the outcome of one evaluation
type Result struct {
	RunID      string
	Severity   severity.Severity
	Summary    string
	MatchCount int
	Latest     uint64
	Age        int64
	Err        error
	Duration   time.Duration
}

// ExitCode returns the process exit code for this result
func (r Result) ExitCode() int {
	return r.Severity.ExitCode()
}

// Probe runs stateless evaluations. A Probe may be shared across goroutines;
// every call to Evaluate owns its own evaluation context.
type Probe struct {
	notifiers  EventNotifiers
	clock      func() time.Time
	timeout    time.Duration
	census     *census.Census
	lineFormat freshness.LineFormat
	label      string
	newRunID   func() string
}

// New creates a Probe with the given options
func New(opts ...Opt) *Probe {
	p := &Probe{
		clock:      time.Now,
		timeout:    DefaultTimeout,
		lineFormat: freshness.SuffixFormat,
		newRunID:   func() string { return uuid.New().String() },
	}
	for _, optFn := range opts {
		optFn(p)
	}
	if p.census == nil {
		p.census = census.New()
	}
	if len(p.notifiers) == 0 {
		p.notifiers = EventNotifiers{emptyNotifier}
	}
	return p
}

// Evaluate runs one evaluation of the given input. It never returns an error;
// failures are reported through the Severity and Summary of the result.
func (p *Probe) Evaluate(ctx context.Context, in Input) Result {
	ev := newEvaluation(p, in)
	return ev.run(ctx)
}
