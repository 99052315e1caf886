package ptest

import (
	"fmt"
	"strings"

	"github.com/capatazlib/go-daemoncheck/internal/probe"
	"github.com/capatazlib/go-daemoncheck/internal/severity"
)

// EventP represents a predicate function that allows us to assert properties
// of an Event emitted by an evaluation
type EventP interface {
	// Call will execute the logic of this event predicate
	Call(probe.Event) bool
	// Returns an string representation of this event predicate (for debugging
	// purposes)
	String() string
}

// EventTagP is a predicate that asserts the EventTag of a given Event
type EventTagP struct {
	tag probe.EventTag
}

// Call will execute predicate that checks tag name of event
func (p EventTagP) Call(ev probe.Event) bool {
	return ev.GetTag() == p.tag
}

func (p EventTagP) String() string {
	return fmt.Sprintf("tag == %s", p.tag)
}

// SeverityP is a predicate that asserts the severity carried by an Event
type SeverityP struct {
	sev severity.Severity
}

// Call will execute predicate that checks the event severity
func (p SeverityP) Call(ev probe.Event) bool {
	return ev.GetSeverity() == p.sev
}

func (p SeverityP) String() string {
	return fmt.Sprintf("severity == %s", p.sev)
}

// ErrorP is a predicate that asserts an Event carries an error
type ErrorP struct{}

// Call will execute predicate that checks the event has an error
func (ErrorP) Call(ev probe.Event) bool {
	return ev.Err() != nil
}

func (ErrorP) String() string {
	return "err != nil"
}

// AndP is a predicate that joins a collection of predicates with an and
// statement
type AndP struct {
	preds []EventP
}

// Call will execute an and on all the predicates
func (p AndP) Call(ev probe.Event) bool {
	for _, pred := range p.preds {
		if !pred.Call(ev) {
			return false
		}
	}
	return true
}

func (p AndP) String() string {
	acc := make([]string, 0, len(p.preds))
	for _, pred := range p.preds {
		acc = append(acc, pred.String())
	}
	return strings.Join(acc, " && ")
}

// EvaluationStarted is a predicate to assert an evaluation began its I/O
func EvaluationStarted() EventP {
	return EventTagP{tag: probe.EvaluationStarted}
}

// FreshnessRead is a predicate to assert the status log was scanned
func FreshnessRead() EventP {
	return EventTagP{tag: probe.FreshnessRead}
}

// CensusCompleted is a predicate to assert the process listing was consumed
func CensusCompleted() EventP {
	return EventTagP{tag: probe.CensusCompleted}
}

// AnomalyDetected is a predicate to assert a census anomaly raised the floor
func AnomalyDetected() EventP {
	return AndP{preds: []EventP{
		EventTagP{tag: probe.AnomalyDetected},
		SeverityP{sev: severity.Warning},
		ErrorP{},
	}}
}

// Concluded is a predicate to assert the evaluation finished with the given
// severity
func Concluded(sev severity.Severity) EventP {
	return AndP{preds: []EventP{
		EventTagP{tag: probe.EvaluationConcluded},
		SeverityP{sev: sev},
	}}
}
