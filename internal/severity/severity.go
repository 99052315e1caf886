package severity

// Severity is the outcome level of a health probe
type Severity uint32

const (
	// Unknown is used for infrastructure failures (unreadable inputs, pipe
	// failures, timeouts). It is also the starting floor of a reduction.
	Unknown Severity = iota
	// OK indicates the monitored daemon is running and fresh
	OK
	// Warning indicates a non-fatal problem (stale status, census anomalies)
	Warning
	// Critical indicates the monitored daemon is down or unobservable
	Critical
)

// String returns a string representation of the current Severity
func (s Severity) String() string {
	switch s {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	case Unknown:
		return "UNKNOWN"
	default:
		return "<Unknown>"
	}
}

// ExitCode returns the process exit code a supervisor expects for this
// Severity
func (s Severity) ExitCode() int {
	switch s {
	case OK:
		return 0
	case Warning:
		return 1
	case Critical:
		return 2
	default:
		return 3
	}
}

// rank positions a Severity in the max-so-far lattice. Unknown sits at the
// bottom so that any concrete signal replaces it.
func (s Severity) rank() int {
	switch s {
	case OK:
		return 1
	case Warning:
		return 2
	case Critical:
		return 3
	default:
		return 0
	}
}

// Max returns the most severe of both values. Critical beats Warning, Warning
// beats OK and OK beats Unknown.
func Max(a, b Severity) Severity {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// Floor accumulates severities for the duration of one evaluation. It only
// ever escalates.
type Floor struct {
	current Severity
}

// NewFloor returns a Floor that starts at the given Severity
func NewFloor(initial Severity) *Floor {
	return &Floor{current: initial}
}

// Raise escalates the floor to s if s is more severe than the current value
func (f *Floor) Raise(s Severity) Severity {
	f.current = Max(f.current, s)
	return f.current
}

// Get returns the current floor value
func (f *Floor) Get() Severity {
	return f.current
}
