package convert

import "time"

// FileStatus is the terminal disposition of one source file.
type FileStatus int

const (
	StatusConverted FileStatus = iota
	StatusFailed
	StatusSkipped
	StatusCancelled
)

func (s FileStatus) String() string {
	switch s {
	case StatusConverted:
		return "converted"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// FileResult records how one source file fared.
type FileResult struct {
	Source string
	Output string
	Status FileStatus
	Err    error
}

// Outcome is the batch-level verdict.
type Outcome int

const (
	// OutcomeCompleted means every attempted file converted.
	OutcomeCompleted Outcome = iota
	// OutcomePartial means at least one file failed while others converted.
	OutcomePartial
	// OutcomeCancelled means the user aborted mid-batch; files after the
	// cancellation point carry no result at all.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomePartial:
		return "partial"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ExitCode maps the outcome to the process exit code contract: 0 for a clean
// batch, 2 when some files failed, 3 when the user cancelled.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeCompleted:
		return 0
	case OutcomePartial:
		return 2
	case OutcomeCancelled:
		return 3
	default:
		return 1
	}
}

// BatchResult is the full account of one conversion run.
type BatchResult struct {
	BatchID    string
	Format     string
	Quality    string
	Outcome    Outcome
	Files      []FileResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Counts tallies per-file dispositions.
func (r BatchResult) Counts() (converted, failed, skipped int) {
	for _, file := range r.Files {
		switch file.Status {
		case StatusConverted:
			converted++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return converted, failed, skipped
}
