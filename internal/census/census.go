// Package census counts the entries of a live process listing that match a
// token.
package census

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/capatazlib/go-daemoncheck/internal/worker"
)

// DefaultCommand is the process listing used when no command is configured
var DefaultCommand = []string{"/bin/ps", "axwo", "stat uid pid ppid vsz rss pcpu etime comm args"}

const (
	// defaultStderrCapture is the number of stderr bytes kept for diagnostics
	defaultStderrCapture = 512
	// defaultDrainTimeout bounds the join of a drainer after the census is
	// cancelled
	defaultDrainTimeout = time.Second
)

// Result is the outcome of one census run
type Result struct {
	// MatchCount is the number of output lines containing the token
	MatchCount int
	// Anomaly is set when the command wrote to its error stream or exited
	// abnormally
	Anomaly bool
	// Stderr holds the first bytes written to the error stream
	Stderr string
	// ExitErr is the abnormal exit reported by the command, if any
	ExitErr error
}

// Opt is used to configure a Census
type Opt func(*Census)

// WithCommand sets the process listing command and its arguments
func WithCommand(argv ...string) Opt {
	return func(c *Census) {
		c.command = append([]string(nil), argv...)
	}
}

// WithStderrCapture sets how many bytes of the error stream are kept in
// Result.Stderr
func WithStderrCapture(n int) Opt {
	return func(c *Census) {
		c.stderrCapture = n
	}
}

// WithDrainTimeout sets how long a cancelled census waits for each output
// drainer to return after the pipes are closed
func WithDrainTimeout(d time.Duration) Opt {
	return func(c *Census) {
		c.drainTimeout = d
	}
}

// Census runs an external process listing and counts matching lines
type Census struct {
	command       []string
	stderrCapture int
	drainTimeout  time.Duration
}

// New creates a Census with the given options
func New(opts ...Opt) *Census {
	c := &Census{
		command:       DefaultCommand,
		stderrCapture: defaultStderrCapture,
		drainTimeout:  defaultDrainTimeout,
	}
	for _, optFn := range opts {
		optFn(c)
	}
	return c
}

// Command returns the command line of the census
func (c *Census) Command() string {
	return strings.Join(c.command, " ")
}

// Run spawns the census command and counts the stdout lines that contain
// token. Both output streams are drained concurrently. When ctx is done
// before the command output is consumed, the command is killed, its pipes are
// closed and a *TimeoutError is returned.
func (c *Census) Run(ctx context.Context, token string) (Result, error) {
	if len(c.command) == 0 {
		return Result{}, &SpawnError{command: c.command, err: errors.New("empty census command")}
	}

	cmd := exec.Command(c.command[0], c.command[1:]...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, &SpawnError{command: c.command, err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		return Result{}, &SpawnError{command: c.command, err: err}
	}
	if err := cmd.Start(); err != nil {
		return Result{}, &SpawnError{command: c.command, err: err}
	}

	// written by the stdout drainer, read after its notification arrives
	var matches int
	errCapture := &limitedBuffer{limit: c.stderrCapture}

	notifyCh := make(chan worker.Notification, 2)
	shutdown := worker.WithShutdown(worker.Timeout(c.drainTimeout))
	drainers := []worker.Spec{
		worker.New("stdout", func(context.Context) error {
			n, err := countMatches(stdout, token)
			matches = n
			return err
		}, shutdown),
		worker.New("stderr", func(context.Context) error {
			_, err := io.Copy(errCapture, stderr)
			return err
		}, shutdown),
	}
	running := make([]worker.Worker, 0, len(drainers))
	for _, spec := range drainers {
		w, err := spec.DoStart(ctx, "census", notifyCh)
		if err != nil {
			killAndClose(cmd, stdout, stderr)
			_ = joinDrainers(running)
			_ = cmd.Wait()
			return Result{}, fmt.Errorf("failed to start census drainer: %w", err)
		}
		running = append(running, w)
	}

	var drainErr error
	for pending := len(running); pending > 0; pending-- {
		select {
		case n := <-notifyCh:
			if err := n.Unwrap(); err != nil && drainErr == nil {
				drainErr = fmt.Errorf("%s: %w", n.RuntimeName(), err)
			}
		case <-ctx.Done():
			killAndClose(cmd, stdout, stderr)
			// drainers observe the closed pipes and return
			joinErr := joinDrainers(running)
			_ = cmd.Wait()
			return Result{}, &TimeoutError{command: c.command, err: ctx.Err(), joinErr: joinErr}
		}
	}

	result := Result{
		MatchCount: matches,
		Stderr:     errCapture.String(),
	}
	if errCapture.Len() > 0 || drainErr != nil {
		result.Anomaly = true
	}
	if err := cmd.Wait(); err != nil {
		result.Anomaly = true
		result.ExitErr = err
	}
	return result, nil
}

// countMatches returns the number of lines read from r that contain token
func countMatches(r io.Reader, token string) (int, error) {
	count := 0
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 && strings.Contains(line, token) {
			count++
		}
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}
	}
}

// joinDrainers terminates every drainer, waiting at most the drain timeout
// for each one, and returns the first join failure
func joinDrainers(running []worker.Worker) error {
	var joinErr error
	for _, w := range running {
		if _, err := w.Terminate(); err != nil && joinErr == nil {
			joinErr = fmt.Errorf("%s: %w", w.GetRuntimeName(), err)
		}
	}
	return joinErr
}

func killAndClose(cmd *exec.Cmd, pipes ...io.Closer) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	for _, p := range pipes {
		_ = p.Close()
	}
}

// limitedBuffer keeps the first `limit` bytes written to it while counting
// every byte
type limitedBuffer struct {
	limit int
	buf   strings.Builder
	total int64
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.total += int64(len(p))
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		b.buf.Write(p[:room])
	}
	return len(p), nil
}

// Len returns the total number of bytes written
func (b *limitedBuffer) Len() int64 {
	return b.total
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
