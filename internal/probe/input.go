package probe

import (
	"errors"
	"math"
)

// ErrThresholdOverflow is reported when an expiration in minutes cannot be
// represented in seconds
var ErrThresholdOverflow = errors.New("expiration time overflows the stale threshold")

// StaleThresholdFromMinutes converts a status log expiration given in minutes
// into a stale threshold in seconds
func StaleThresholdFromMinutes(minutes uint64) (uint64, error) {
	if minutes > math.MaxUint64/60 {
		return 0, ErrThresholdOverflow
	}
	return minutes * 60, nil
}

// Input holds the already-parsed arguments of one evaluation
type Input struct {
	// StatusLogPath is the status log of the monitored daemon
	StatusLogPath string
	// StaleThreshold is the maximum accepted status log age, in seconds
	StaleThreshold uint64
	// ProcessMatchToken is searched as a literal substring in the process
	// listing
	ProcessMatchToken string
}

// Validate checks the input is complete
func (in Input) Validate() error {
	if in.StatusLogPath == "" {
		return &PreconditionError{
			field:  "status_log",
			reason: "You must provide the status_log",
		}
	}
	if in.ProcessMatchToken == "" {
		return &PreconditionError{
			field:  "process_string",
			reason: "You must provide a process string",
		}
	}
	return nil
}
