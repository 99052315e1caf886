package census

import (
	"fmt"
	"strings"
)

// SpawnError is reported when the census command cannot be started at all
// (missing executable, pipe creation failure)
type SpawnError struct {
	command []string
	err     error
}

// Error returns an error message
func (err *SpawnError) Error() string {
	return fmt.Sprintf("could not open pipe: %s", err.Command())
}

// Command returns the census command line
func (err *SpawnError) Command() string {
	return strings.Join(err.command, " ")
}

// Unwrap returns the error reported by the operating system
func (err *SpawnError) Unwrap() error {
	return err.err
}

// KVs returns a metadata map for structured logging
func (err *SpawnError) KVs() map[string]interface{} {
	return map[string]interface{}{
		"census.command":     err.Command(),
		"census.spawn.error": err.err.Error(),
	}
}

// TimeoutError is reported when the deadline of the census expires while its
// output is still being read
type TimeoutError struct {
	command []string
	err     error
	joinErr error
}

// Error returns an error message
func (err *TimeoutError) Error() string {
	return fmt.Sprintf("census command timed out: %s", strings.Join(err.command, " "))
}

// DrainError returns the failure to join an output drainer after the census
// was cancelled, if any. A drainer that outlives the drain timeout is left
// behind.
func (err *TimeoutError) DrainError() error {
	return err.joinErr
}

// Unwrap returns the context error that interrupted the census
func (err *TimeoutError) Unwrap() error {
	return err.err
}

// KVs returns a metadata map for structured logging
func (err *TimeoutError) KVs() map[string]interface{} {
	acc := map[string]interface{}{
		"census.command":       strings.Join(err.command, " "),
		"census.timeout.error": err.err.Error(),
	}
	if err.joinErr != nil {
		acc["census.drain.error"] = err.joinErr.Error()
	}
	return acc
}
