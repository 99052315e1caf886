package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// NodeSepToken is the separator used between the spawner name and the worker
// name in a runtime name
const NodeSepToken = "/"

// PanicError is reported when a worker goroutine panics
type PanicError struct {
	runtimeName string
	value       interface{}
	stacktrace  string
}

// Error returns an error message
func (err *PanicError) Error() string {
	return fmt.Sprintf("worker %s panicked: %v", err.runtimeName, err.value)
}

// Unwrap returns the panic value if it was an error
func (err *PanicError) Unwrap() error {
	if e, ok := err.value.(error); ok {
		return e
	}
	return nil
}

// KVs returns a metadata map for structured logging
func (err *PanicError) KVs() map[string]interface{} {
	return map[string]interface{}{
		"worker.name":       err.runtimeName,
		"worker.panic":      fmt.Sprintf("%v", err.value),
		"worker.stacktrace": err.stacktrace,
	}
}

// waitTimeout is the internal function used by Worker to wait for the
// execution of its goroutine to stop.
func waitTimeout(
	terminateCh <-chan Notification,
) func(Shutdown) (bool, error) {
	return func(shutdown Shutdown) (bool, error) {
		select {
		case notification, ok := <-terminateCh:
			if !ok {
				return false, nil
			}
			return true, notification.Unwrap()
		case <-time.After(shutdown.duration):
			return true, errors.New("worker shutdown timeout")
		}
	}
}

// sendNotification delivers the termination record either to the spawner's
// notify channel or to a caller blocked on Terminate, whichever reads first.
func sendNotification(
	err error,
	runtimeName string,
	notifyCh chan<- Notification,
	terminateCh chan<- Notification,
) {
	n := Notification{
		runtimeName: runtimeName,
		err:         err,
	}
	select {
	case notifyCh <- n:
	case terminateCh <- n:
	}
}

// DoStart spawns a new goroutine that executes the Start function of the Spec.
// It blocks until the goroutine notifies it has been initialized.
//
// The termination of the goroutine is reported on notifyCh, or on the
// Terminate method of the returned Worker when it is called before notifyCh
// is read.
func (spec Spec) DoStart(
	startCtx context.Context,
	parentName string,
	notifyCh chan<- Notification,
) (Worker, error) {
	runtimeName := strings.Join([]string{parentName, spec.GetName()}, NodeSepToken)

	workerCtx, cancelFn := context.WithCancel(startCtx)

	startCh := make(chan error, 1)
	terminateCh := make(chan Notification)

	go func() {
		// closing terminateCh makes later Terminate calls return immediately
		defer close(terminateCh)
		defer cancelFn()

		var started bool
		var startErr error
		notifyStart := func(err error) {
			if started {
				return
			}
			started = true
			startErr = err
			startCh <- err
		}

		defer func() {
			panicVal := recover()
			if panicVal == nil {
				return
			}
			panicErr := &PanicError{
				runtimeName: runtimeName,
				value:       panicVal,
				stacktrace:  string(debug.Stack()),
			}
			if !started {
				startCh <- panicErr
				return
			}
			if startErr != nil {
				return
			}
			sendNotification(panicErr, runtimeName, notifyCh, terminateCh)
		}()

		err := spec.Start(workerCtx, notifyStart)
		if !started {
			// the spawner is still blocked on startCh
			if err == nil {
				err = errors.New("worker returned before notifying its start")
			}
			started = true
			startCh <- err
			return
		}
		if startErr != nil {
			// the spawner already got the error and discarded this worker
			return
		}
		sendNotification(err, runtimeName, notifyCh, terminateCh)
	}()

	if err := <-startCh; err != nil {
		cancelFn()
		return Worker{}, err
	}

	return Worker{
		runtimeName: runtimeName,
		spec:        spec,
		cancel:      cancelFn,
		wait:        waitTimeout(terminateCh),
	}, nil
}
