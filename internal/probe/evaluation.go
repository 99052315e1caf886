package probe

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/capatazlib/go-daemoncheck/internal/census"
	"github.com/capatazlib/go-daemoncheck/internal/freshness"
	"github.com/capatazlib/go-daemoncheck/internal/severity"
	"github.com/capatazlib/go-daemoncheck/internal/worker"
)

// State is the stage an evaluation is in
type State uint32

const (
	// NotStarted is the state of an evaluation before its input is checked
	NotStarted State = iota
	// Evaluating is the state of an evaluation doing I/O
	Evaluating
	// Concluded is the terminal state; it carries exactly one Severity
	Concluded
)

// String returns a string representation of the current State
func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Evaluating:
		return "Evaluating"
	case Concluded:
		return "Concluded"
	default:
		return "<Unknown>"
	}
}

// evaluation is the context threaded through the steps of one Evaluate call
type evaluation struct {
	probe     *Probe
	input     Input
	runID     string
	state     State
	floor     *severity.Floor
	startedAt time.Time

	latest     uint64
	matchCount int
	age        int64
}

func newEvaluation(p *Probe, in Input) *evaluation {
	return &evaluation{
		probe: p,
		input: in,
		runID: p.newRunID(),
		state: NotStarted,
		floor: severity.NewFloor(severity.Unknown),
	}
}

func (ev *evaluation) notify(tag EventTag, err error) {
	ev.probe.notifiers.Notify(Event{
		tag:        tag,
		runID:      ev.runID,
		input:      ev.input,
		state:      ev.state,
		severity:   ev.floor.Get(),
		matchCount: ev.matchCount,
		latest:     ev.latest,
		age:        ev.age,
		err:        err,
		created:    time.Now(),
		duration:   time.Since(ev.startedAt),
	})
}

// conclude moves the evaluation to its terminal state. The given severity is
// final; callers decide whether it overrides the floor.
func (ev *evaluation) conclude(sev severity.Severity, summary string, err error) Result {
	ev.state = Concluded
	ev.floor = severity.NewFloor(sev)
	ev.notify(EvaluationConcluded, err)
	return Result{
		RunID:      ev.runID,
		Severity:   sev,
		Summary:    summary,
		MatchCount: ev.matchCount,
		Latest:     ev.latest,
		Age:        ev.age,
		Err:        err,
		Duration:   time.Since(ev.startedAt),
	}
}

func (ev *evaluation) run(parentCtx context.Context) Result {
	ev.startedAt = time.Now()
	p := ev.probe

	ctx, cancel := context.WithTimeout(parentCtx, p.timeout)
	defer cancel()

	// 1. preconditions, before any I/O
	if err := ev.input.Validate(); err != nil {
		return ev.conclude(severity.Unknown, err.Error(), err)
	}
	ev.state = Evaluating
	ev.notify(EvaluationStarted, nil)

	// 2. freshness; an unreadable log skips the census
	latest, err := ev.readFreshness(ctx)
	if err != nil {
		var openErr *freshness.OpenError
		if errors.As(err, &openErr) {
			return ev.conclude(severity.Critical, msgCannotOpenLog, err)
		}
		if errors.Is(err, ErrTimeout) {
			return ev.conclude(severity.Unknown, timedOutSummary(p.timeout), err)
		}
		// read errors after a successful open keep whatever was scanned
		ev.notify(FreshnessRead, err)
	} else {
		ev.notify(FreshnessRead, nil)
	}
	ev.latest = latest

	// 3. census under the same deadline
	res, err := ev.runCensus(ctx)
	if err != nil {
		var spawnErr *census.SpawnError
		if errors.As(err, &spawnErr) {
			return ev.conclude(severity.Unknown, couldNotOpenPipeSummary(spawnErr.Command()), err)
		}
		if errors.Is(err, ErrTimeout) {
			return ev.conclude(severity.Unknown, timedOutSummary(p.timeout), err)
		}
		return ev.conclude(severity.Unknown, err.Error(), err)
	}
	ev.matchCount = res.MatchCount
	ev.notify(CensusCompleted, nil)

	if res.Anomaly {
		ev.floor.Raise(severity.Warning)
		ev.notify(AnomalyDetected, anomalyError(res))
	}

	// 4. no process overrides every floor
	if res.MatchCount == 0 {
		return ev.conclude(severity.Critical, noProcessSummary(p.label), nil)
	}

	// 5. staleness
	ev.age = ageSeconds(p.clock(), ev.latest)
	ev.floor.Raise(severity.OK)
	if isStale(ev.age, ev.input.StaleThreshold) {
		ev.floor.Raise(severity.Warning)
	}

	sev := ev.floor.Get()
	return ev.conclude(sev, locatedSummary(p.label, sev, ev.matchCount, ev.age), nil)
}

// readFreshness scans the status log in a worker so that a read blocked on a
// slow filesystem still observes the deadline
func (ev *evaluation) readFreshness(ctx context.Context) (uint64, error) {
	var latest uint64
	notifyCh := make(chan worker.Notification, 1)
	spec := worker.New("freshness", func(context.Context) error {
		var err error
		latest, err = freshness.ReadFile(ev.input.StatusLogPath, ev.probe.lineFormat)
		return err
	})
	if _, err := spec.DoStart(ctx, ev.runID, notifyCh); err != nil {
		return 0, err
	}
	select {
	case n := <-notifyCh:
		return latest, n.Unwrap()
	case <-ctx.Done():
		return 0, ErrTimeout
	}
}

func (ev *evaluation) runCensus(ctx context.Context) (census.Result, error) {
	if ctx.Err() != nil {
		return census.Result{}, ErrTimeout
	}
	res, err := ev.probe.census.Run(ctx, ev.input.ProcessMatchToken)
	var timeoutErr *census.TimeoutError
	if errors.As(err, &timeoutErr) {
		return res, &timeoutWrap{err: err}
	}
	return res, err
}

// timeoutWrap makes census timeouts match ErrTimeout while keeping the census
// details in the chain
type timeoutWrap struct {
	err error
}

func (t *timeoutWrap) Error() string        { return t.err.Error() }
func (t *timeoutWrap) Unwrap() error        { return t.err }
func (t *timeoutWrap) Is(target error) bool { return target == ErrTimeout }

// AnomalyError describes why the census results are not trustworthy
type AnomalyError struct {
	stderr  string
	exitErr error
}

// Error returns an error message
func (err *AnomalyError) Error() string {
	if err.exitErr != nil {
		return "census command exited abnormally: " + err.exitErr.Error()
	}
	return "census command wrote to its error stream"
}

// Unwrap returns the abnormal exit of the census command, if any
func (err *AnomalyError) Unwrap() error {
	return err.exitErr
}

// KVs returns a metadata map for structured logging
func (err *AnomalyError) KVs() map[string]interface{} {
	acc := map[string]interface{}{}
	if err.stderr != "" {
		acc["census.stderr"] = err.stderr
	}
	if err.exitErr != nil {
		acc["census.exit.error"] = err.exitErr.Error()
	}
	return acc
}

func anomalyError(res census.Result) error {
	return &AnomalyError{stderr: res.Stderr, exitErr: res.ExitErr}
}

// ageSeconds returns now - latest in seconds. It is negative when the status
// log is ahead of the local clock.
func ageSeconds(now time.Time, latest uint64) int64 {
	n := now.Unix()
	if n < 0 {
		n = 0
	}
	if latest > math.MaxInt64 {
		latest = math.MaxInt64
	}
	return n - int64(latest)
}

// isStale compares the age against the threshold; a negative age (clock
// skew) counts as 0
func isStale(age int64, threshold uint64) bool {
	if age <= 0 {
		return false
	}
	return uint64(age) > threshold
}
