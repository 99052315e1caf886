package probe

import (
	"fmt"
	"strings"
	"time"

	"github.com/capatazlib/go-daemoncheck/internal/severity"
)

// EventTag specifies the type of Event that gets notified from an evaluation
type EventTag uint32

const (
	// ignore zero value of iota
	_ EventTag = iota
	// EvaluationStarted indicates the input was accepted and I/O begins
	EvaluationStarted
	// FreshnessRead indicates the status log was scanned
	FreshnessRead
	// CensusCompleted indicates the process listing was consumed
	CensusCompleted
	// AnomalyDetected indicates the census command wrote to stderr or exited
	// abnormally
	AnomalyDetected
	// EvaluationConcluded indicates the evaluation reached its final severity
	EvaluationConcluded
)

// String returns a string representation of the current EventTag
func (tag EventTag) String() string {
	switch tag {
	case EvaluationStarted:
		return "EvaluationStarted"
	case FreshnessRead:
		return "FreshnessRead"
	case CensusCompleted:
		return "CensusCompleted"
	case AnomalyDetected:
		return "AnomalyDetected"
	case EvaluationConcluded:
		return "EvaluationConcluded"
	default:
		return "<Unknown>"
	}
}

// Event is a record emitted during an evaluation. Events are used for logging
// and metrics; they never influence the result.
type Event struct {
	tag        EventTag
	runID      string
	input      Input
	state      State
	severity   severity.Severity
	matchCount int
	latest     uint64
	age        int64
	err        error
	created    time.Time
	duration   time.Duration
}

// GetTag returns the EventTag from an Event
func (e Event) GetTag() EventTag {
	return e.tag
}

// GetRunID returns the identifier of the evaluation that emitted this event
func (e Event) GetRunID() string {
	return e.runID
}

// GetInput returns the input of the evaluation that emitted this event
func (e Event) GetInput() Input {
	return e.input
}

// GetState returns the state of the evaluation when the event was emitted
func (e Event) GetState() State {
	return e.state
}

// GetSeverity returns the severity floor (or final severity on
// EvaluationConcluded) at the time of the event
func (e Event) GetSeverity() severity.Severity {
	return e.severity
}

// GetMatchCount returns the number of matching processes, when known
func (e Event) GetMatchCount() int {
	return e.matchCount
}

// GetLatest returns the newest status log timestamp, when known
func (e Event) GetLatest() uint64 {
	return e.latest
}

// GetAge returns the status log age in seconds, when known
func (e Event) GetAge() int64 {
	return e.age
}

// Err returns the error attached to the event, if any
func (e Event) Err() error {
	return e.err
}

// GetCreated returns a timestamp of the creation of the event
func (e Event) GetCreated() time.Time {
	return e.created
}

// GetDuration returns the time elapsed since the evaluation started
func (e Event) GetDuration() time.Duration {
	return e.duration
}

// String returns an string representation for the Event
func (e Event) String() string {
	var buffer strings.Builder
	buffer.WriteString("Event{")
	buffer.WriteString(fmt.Sprintf("tag: %s", e.tag))
	buffer.WriteString(fmt.Sprintf(", run: %s", e.runID))
	buffer.WriteString(fmt.Sprintf(", state: %s", e.state))
	buffer.WriteString(fmt.Sprintf(", severity: %s", e.severity))
	if e.err != nil {
		buffer.WriteString(fmt.Sprintf(", err: %+v", e.err))
	}
	buffer.WriteString("}")
	return buffer.String()
}

// EventNotifier is a function that is used for reporting events of an
// evaluation.
//
// Check the documentation of WithNotifier for more details.
type EventNotifier func(Event)

// EventNotifiers is a collection of notifiers.
type EventNotifiers []EventNotifier

// Notify calls every notifier of the collection in order
func (ens EventNotifiers) Notify(ev Event) {
	for _, en := range ens {
		en(ev)
	}
}

func emptyNotifier(Event) {}
