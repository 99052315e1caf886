package probe

import (
	"errors"
)

// ErrKVs is an utility interface used to get key-values out of errors
type ErrKVs interface {
	KVs() map[string]interface{}
}

// PreconditionError is reported when the evaluation input is incomplete. It is
// raised before any I/O happens.
type PreconditionError struct {
	field  string
	reason string
}

// Error returns an error message
func (err *PreconditionError) Error() string {
	return err.reason
}

// Field returns the name of the offending input field
func (err *PreconditionError) Field() string {
	return err.field
}

// KVs returns a metadata map for structured logging
func (err *PreconditionError) KVs() map[string]interface{} {
	return map[string]interface{}{
		"input.field": err.field,
	}
}

// ErrTimeout is reported when the evaluation deadline expires
var ErrTimeout = errors.New("evaluation timed out")

// ErrorKVs returns the metadata of every error in the chain of err that
// implements ErrKVs. Keys of outer errors win.
func ErrorKVs(err error) map[string]interface{} {
	acc := make(map[string]interface{})
	for err != nil {
		if kvErr, ok := err.(ErrKVs); ok {
			for k, v := range kvErr.KVs() {
				if _, exists := acc[k]; !exists {
					acc[k] = v
				}
			}
		}
		err = errors.Unwrap(err)
	}
	return acc
}
