package worker

import (
	"context"
	"time"
)

// Opt is used to configure a worker's specification
type Opt func(*Spec)

// Shutdown indicates how long the spawner waits for the worker goroutine to
// stop executing once it has been terminated.
type Shutdown struct {
	duration time.Duration
}

// Timeout specifies a duration of time the spawner will wait for the worker
// goroutine to stop executing.
//
// Go does not provide a hard kill mechanism for goroutines; if the timeout is
// reached and the goroutine ignores `ctx.Done()`, it stays in memory.
func Timeout(d time.Duration) Shutdown {
	return Shutdown{duration: d}
}

// NotifyStartFn is a function given to workers to notify the spawner that the
// worker has started. A worker that cannot start calls it with a non-nil
// error.
type NotifyStartFn = func(error)

// Spec is the template used to spawn a worker goroutine
type Spec struct {
	Name     string
	Shutdown Shutdown

	Start func(context.Context, NotifyStartFn) error
}

// GetName returns the specified name for a worker Spec
func (spec Spec) GetName() string {
	return spec.Name
}

// WithShutdown specifies how the shutdown of the worker is going to be handled.
func WithShutdown(s Shutdown) Opt {
	return func(spec *Spec) {
		spec.Shutdown = s
	}
}

// New creates a Spec that represents a worker goroutine. The `name` is used
// for runtime tracing and must not be empty; `startFn` holds the business
// logic and must honor `ctx.Done()`.
func New(name string, startFn func(context.Context) error, opts ...Opt) Spec {
	return NewWithNotifyStart(
		name,
		func(ctx context.Context, notifyStart NotifyStartFn) error {
			notifyStart(nil)
			return startFn(ctx)
		},
		opts...,
	)
}

// NewWithNotifyStart accomplishes the same goal as `New` with the addition of
// passing a `notifyStart` callback to the start function. The worker must call
// it as soon as it is initialized, otherwise DoStart blocks forever.
func NewWithNotifyStart(
	name string,
	startFn func(context.Context, NotifyStartFn) error,
	opts ...Opt,
) Spec {
	spec := Spec{
		Shutdown: Timeout(5 * time.Second),
	}

	if name == "" {
		panic("Worker cannot have empty name")
	}
	spec.Name = name

	if startFn == nil {
		panic("Worker cannot have empty start function")
	}

	for _, optFn := range opts {
		optFn(&spec)
	}
	spec.Start = startFn

	return spec
}
