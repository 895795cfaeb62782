package progress

import (
	"context"
	"log/slog"
	"time"

	"quaver/internal/logging"
	"quaver/internal/services/ffmpeg"
)

// DefaultInterval is the poll period between side-channel reads.
const DefaultInterval = 500 * time.Millisecond

// Encoding is the slice of an encode job the monitor needs. *ffmpeg.Job
// satisfies it.
type Encoding interface {
	ProgressPath() string
	Done() <-chan struct{}
	Wait() (ffmpeg.State, error)
	Cancel()
}

// Report pushes a percentage and label to the external progress display.
// The returned bool mirrors the display's liveness: false means the user
// dismissed it, which the monitor treats as cancellation.
type Report func(percent int, label string) bool

// Monitor polls one encode job's side-channel file and drives a Report.
type Monitor struct {
	interval time.Duration
	logger   *slog.Logger
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithInterval overrides the poll interval, mainly for tests.
func WithInterval(interval time.Duration) MonitorOption {
	return func(m *Monitor) {
		if interval > 0 {
			m.interval = interval
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logging.NewComponentLogger(logger, "progress")
		}
	}
}

// NewMonitor constructs a monitor with the default 500 ms interval.
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{interval: DefaultInterval, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Watch polls job until it reaches a terminal state or the display reports
// cancellation. Percentages are monotonic non-decreasing within the job; a
// poll that finds no usable sample repeats the previous value. On natural
// completion one final report at 100% is pushed. When the display signals
// cancellation the job is cancelled and the terminal state returned is
// StateCancelled.
func (m *Monitor) Watch(ctx context.Context, job Encoding, totalSeconds float64, label string, report Report) (ffmpeg.State, error) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	last := 0
	for {
		select {
		case <-job.Done():
			state, err := job.Wait()
			if state == ffmpeg.StateCompleted && report != nil {
				report(100, label)
			}
			return state, err
		case <-ctx.Done():
			job.Cancel()
			state, _ := job.Wait()
			return state, ctx.Err()
		case <-ticker.C:
			if sample, ok := LastSample(job.ProgressPath()); ok {
				if pct := percentOf(sample, totalSeconds); pct > last {
					last = pct
				}
			}
			if report == nil {
				continue
			}
			if alive := report(last, label); !alive {
				m.logger.Info("progress display dismissed; cancelling encode", logging.String("job", label))
				job.Cancel()
				state, err := job.Wait()
				return state, err
			}
		}
	}
}

func percentOf(sample Sample, totalSeconds float64) int {
	if totalSeconds <= 0 {
		return 0
	}
	pct := int(float64(sample.ElapsedMicros) / 1e6 / totalSeconds * 100)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
