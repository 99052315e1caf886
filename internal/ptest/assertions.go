package ptest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/capatazlib/go-daemoncheck/internal/probe"
)

func renderEvents(evs []probe.Event) string {
	var builder strings.Builder
	for i, ev := range evs {
		builder.WriteString(fmt.Sprintf("  %3d: %s\n", i, ev))
	}
	return builder.String()
}

// verifyExactMatch checks the input slice of EventP predicates match 1 to 1
// with a given list of evaluation events
func verifyExactMatch(preds []EventP, given []probe.Event) error {
	if len(preds) != len(given) {
		return fmt.Errorf(
			"Expecting exact match, but length is not the same:\nwant: %d\ngiven: %d\nevents:\n%s",
			len(preds),
			len(given),
			renderEvents(given),
		)
	}
	for i, pred := range preds {
		if !pred.Call(given[i]) {
			return fmt.Errorf(
				"Expecting exact match, but entry %d did not match:\ncriteria: %s\nevent: %s\nevents:\n%s",
				i,
				pred.String(),
				given[i].String(),
				renderEvents(given),
			)
		}
	}
	return nil
}

// AssertExactMatch is an assertion that checks the input slice of EventP
// predicates match 1 to 1 with a given list of evaluation events
func AssertExactMatch(t *testing.T, evs []probe.Event, preds []EventP) {
	t.Helper()
	if err := verifyExactMatch(preds, evs); err != nil {
		t.Error(err)
	}
}
