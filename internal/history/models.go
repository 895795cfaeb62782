package history

import "time"

// Outcome is the terminal status of a whole batch.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomePartial   Outcome = "partial"
	OutcomeCancelled Outcome = "cancelled"
)

// Disposition is the terminal status of one file within a batch.
type Disposition string

const (
	DispositionConverted Disposition = "converted"
	DispositionFailed    Disposition = "failed"
	DispositionSkipped   Disposition = "skipped"
	DispositionCancelled Disposition = "cancelled"
)

// FileRecord captures how a single source file fared.
type FileRecord struct {
	SourcePath  string
	OutputPath  string
	Disposition Disposition
	Detail      string
}

// Batch is one recorded conversion run.
type Batch struct {
	BatchID    string
	Format     string
	Quality    string
	Outcome    Outcome
	Converted  int
	Failed     int
	Skipped    int
	TotalFiles int
	StartedAt  time.Time
	FinishedAt time.Time
	Files      []FileRecord
}
