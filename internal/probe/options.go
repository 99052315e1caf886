package probe

import (
	"time"

	"github.com/capatazlib/go-daemoncheck/internal/census"
	"github.com/capatazlib/go-daemoncheck/internal/freshness"
)

// DefaultTimeout is the deadline of an evaluation when none is configured
const DefaultTimeout = 10 * time.Second

// Opt is used to configure a Probe
type Opt func(*Probe)

// WithNotifier adds a function that receives every Event of an evaluation.
// Notifiers are called synchronously from the evaluating goroutine; they must
// not block.
func WithNotifier(en EventNotifier) Opt {
	return func(p *Probe) {
		p.notifiers = append(p.notifiers, en)
	}
}

// WithClock sets the wall-clock used to compute the status log age
func WithClock(clock func() time.Time) Opt {
	return func(p *Probe) {
		p.clock = clock
	}
}

// WithTimeout sets the deadline that wraps the whole evaluation
func WithTimeout(d time.Duration) Opt {
	return func(p *Probe) {
		p.timeout = d
	}
}

// WithCensus sets the process census used by the evaluation
func WithCensus(c *census.Census) Opt {
	return func(p *Probe) {
		p.census = c
	}
}

// WithLineFormat sets the layout of the status log timestamps
func WithLineFormat(f freshness.LineFormat) Opt {
	return func(p *Probe) {
		p.lineFormat = f
	}
}

// WithLabel sets the daemon name used in summaries (e.g. "Nagios")
func WithLabel(label string) Opt {
	return func(p *Probe) {
		p.label = label
	}
}

// WithRunIDGenerator sets the function that identifies each evaluation
func WithRunIDGenerator(gen func() string) Opt {
	return func(p *Probe) {
		p.newRunID = gen
	}
}
