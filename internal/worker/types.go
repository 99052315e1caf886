package worker

// Worker is the runtime representation of a Spec
type Worker struct {
	runtimeName string
	spec        Spec
	cancel      func()
	wait        func(Shutdown) (bool, error)
}

// GetRuntimeName returns the name of this worker (once started). It has the
// name of the spawner as a prefix
func (w Worker) GetRuntimeName() string {
	return w.runtimeName
}

// Terminate is a synchronous procedure that halts the execution of the worker.
// It returns an error if the worker fails to terminate. The first return value
// is false if the worker was already terminated.
func (w Worker) Terminate() (bool, error) {
	w.cancel()
	return w.wait(w.spec.Shutdown)
}

// Notification reports when a worker has terminated; if it terminated with an
// error, it is set in the err field, otherwise, err will be nil.
type Notification struct {
	runtimeName string
	err         error
}

// RuntimeName returns the runtime name of the worker that emitted this
// notification
func (n Notification) RuntimeName() string {
	return n.runtimeName
}

// Unwrap returns the error reported by the Notification, if any.
func (n Notification) Unwrap() error {
	return n.err
}
