package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"quaver/internal/fileutil"
	"quaver/internal/format"
)

var commandContext = exec.CommandContext

// Spec describes one file's encoder invocation.
type Spec struct {
	Source  string
	Output  string
	Format  format.Definition
	Quality string

	// ProgressPath is the side-channel file the encoder appends progress
	// records to. Start generates a temp path when it is empty.
	ProgressPath string
}

// Client defines encoder behaviour. Tests substitute a fake.
type Client interface {
	Start(ctx context.Context, spec Spec) (*Job, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if strings.TrimSpace(binary) != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the ffmpeg command-line encoder.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Start spawns the encoder for spec and returns the running job handle.
func (c *CLI) Start(ctx context.Context, spec Spec) (*Job, error) {
	if strings.TrimSpace(spec.Source) == "" {
		return nil, errors.New("source path required")
	}
	if strings.TrimSpace(spec.Output) == "" {
		return nil, errors.New("output path required")
	}
	if spec.Format.Key == "" {
		return nil, errors.New("format required")
	}
	if spec.ProgressPath == "" {
		spec.ProgressPath = filepath.Join(os.TempDir(), fmt.Sprintf("quaver-progress-%s.txt", uuid.NewString()))
	}

	args := []string{"-y", "-i", spec.Source, "-progress", spec.ProgressPath, "-nostats", "-loglevel", "error"}
	args = append(args, CodecArgs(spec.Format, spec.Quality)...)
	args = append(args, spec.Output)

	cmd := commandContext(ctx, c.binary, args...)
	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	job := &Job{
		spec:   spec,
		cmd:    cmd,
		stderr: &stderr,
		state:  StatePending,
		done:   make(chan struct{}),
	}
	if err := cmd.Start(); err != nil {
		job.state = StateFailed
		close(job.done)
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	job.state = StateRunning
	go job.reap()
	return job, nil
}

var _ Client = (*CLI)(nil)

// State enumerates the encode job lifecycle.
type State int

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Job is a running encoder invocation for one file.
type Job struct {
	spec   Spec
	cmd    *exec.Cmd
	stderr *bytes.Buffer

	mu        sync.Mutex
	state     State
	cancelled bool
	failure   error

	done chan struct{}
}

// ProgressPath returns the side-channel file the encoder writes to.
func (j *Job) ProgressPath() string {
	return j.spec.ProgressPath
}

// Output returns the destination path the encoder writes.
func (j *Job) Output() string {
	return j.spec.Output
}

// State returns the job's current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Done is closed once the job reaches a terminal state and cleanup ran.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job reaches a terminal state and returns it. The
// returned error carries the encoder's stderr tail for failed jobs.
func (j *Job) Wait() (State, error) {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state, j.failure
}

// Cancel terminates the encoder and removes any partial output plus the
// progress side-channel file. It is safe to call in any state, including
// before the process produced output and after natural completion.
func (j *Job) Cancel() {
	j.mu.Lock()
	if j.state.Terminal() {
		j.mu.Unlock()
		return
	}
	j.cancelled = true
	proc := j.cmd.Process
	j.mu.Unlock()

	if proc != nil {
		_ = proc.Kill()
	}
	<-j.done
}

// reap waits for the encoder to exit, performs cleanup at the point of
// failure detection, and publishes the terminal state.
func (j *Job) reap() {
	err := j.cmd.Wait()

	j.mu.Lock()
	switch {
	case j.cancelled:
		j.state = StateCancelled
		j.failure = nil
		j.removePartialOutput()
		j.removeProgressFile()
	case err != nil:
		j.state = StateFailed
		j.failure = failureError(err, j.stderr)
		j.removePartialOutput()
		j.removeProgressFile()
	default:
		j.state = StateCompleted
		j.failure = nil
		j.removeProgressFile()
	}
	j.mu.Unlock()
	close(j.done)
}

func (j *Job) removePartialOutput() {
	_ = fileutil.RemoveIfPresent(j.spec.Output)
}

func (j *Job) removeProgressFile() {
	_ = fileutil.RemoveIfPresent(j.spec.ProgressPath)
}

func failureError(waitErr error, stderr *bytes.Buffer) error {
	detail := strings.TrimSpace(stderr.String())
	const maxDetail = 400
	if len(detail) > maxDetail {
		detail = detail[:maxDetail]
	}
	if detail == "" {
		return fmt.Errorf("ffmpeg: %w", waitErr)
	}
	return fmt.Errorf("ffmpeg: %w: %s", waitErr, detail)
}
