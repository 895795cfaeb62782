package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"quaver/internal/classify"
	"quaver/internal/config"
	"quaver/internal/format"
	"quaver/internal/history"
	"quaver/internal/logging"
	"quaver/internal/media/ffprobe"
	"quaver/internal/notifications"
	"quaver/internal/progress"
	"quaver/internal/quality"
	"quaver/internal/services"
	"quaver/internal/services/ffmpeg"
	"quaver/internal/services/kdialog"
)

const dialogTitle = "Audio Converter"

// Recorder persists finished batches. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, batch history.Batch) error
}

// Inspector probes one source file and returns its duration in seconds and
// primary audio codec. Probe failures report zero duration and an empty
// codec; the batch still runs.
type Inspector func(ctx context.Context, path string) (float64, string)

// Orchestrator runs conversion batches.
type Orchestrator struct {
	cfg      *config.Config
	encoder  ffmpeg.Client
	dialogs  kdialog.Dialogs
	notifier notifications.Service
	monitor  *progress.Monitor
	quality  *quality.Store
	recorder Recorder
	inspect  Inspector
	lock     *flock.Flock
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option overrides one orchestrator dependency, mainly for tests.
type Option func(*Orchestrator)

// WithEncoder substitutes the encoder client.
func WithEncoder(client ffmpeg.Client) Option {
	return func(o *Orchestrator) {
		if client != nil {
			o.encoder = client
		}
	}
}

// WithDialogs substitutes the dialog surface.
func WithDialogs(dialogs kdialog.Dialogs) Option {
	return func(o *Orchestrator) {
		if dialogs != nil {
			o.dialogs = dialogs
		}
	}
}

// WithNotifier substitutes the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *Orchestrator) {
		if notifier != nil {
			o.notifier = notifier
		}
	}
}

// WithMonitor substitutes the progress monitor.
func WithMonitor(monitor *progress.Monitor) Option {
	return func(o *Orchestrator) {
		if monitor != nil {
			o.monitor = monitor
		}
	}
}

// WithRecorder attaches a history recorder.
func WithRecorder(recorder Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = recorder
	}
}

// WithInspector substitutes the source prober.
func WithInspector(inspect Inspector) Option {
	return func(o *Orchestrator) {
		if inspect != nil {
			o.inspect = inspect
		}
	}
}

// WithLock substitutes or, with nil, disables the single-instance lock.
func WithLock(lock *flock.Flock) Option {
	return func(o *Orchestrator) {
		o.lock = lock
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logging.NewComponentLogger(logger, "convert")
		}
	}
}

// WithClock substitutes the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator substitutes the batch ID source.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// New builds an orchestrator wired to the real external tools named in cfg.
func New(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("orchestrator requires config")
	}
	o := &Orchestrator{
		cfg:      cfg,
		encoder:  ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.Tools.FFmpeg)),
		dialogs:  kdialog.NewCLI(kdialog.WithBinary(cfg.Tools.Kdialog), kdialog.WithQdbusBinary(cfg.Tools.Qdbus)),
		notifier: notifications.NewService(cfg.Notifications.Enabled, cfg.Tools.NotifySend),
		monitor:  progress.NewMonitor(progress.WithInterval(cfg.PollInterval())),
		quality:  quality.NewStore(cfg.Paths.QualityFile),
		lock:     flock.New(cfg.Paths.LockFile),
		logger:   logging.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	o.inspect = func(ctx context.Context, path string) (float64, string) {
		probeCtx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout())
		defer cancel()
		result, err := ffprobe.Inspect(probeCtx, cfg.Tools.FFprobe, path)
		if err != nil {
			o.logger.Warn("probe failed", logging.String("path", path), logging.Error(err))
			return 0, ""
		}
		return result.DurationSeconds(), result.PrimaryAudioCodec()
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run converts sources to formatKey using the saved quality selection. The
// returned error covers setup problems only; per-file failures and user
// cancellation are reported through the BatchResult.
func (o *Orchestrator) Run(ctx context.Context, formatKey string, sources []string) (BatchResult, error) {
	def, ok := format.Lookup(formatKey)
	if !ok {
		o.dialogs.Error(ctx, fmt.Sprintf("Unknown format: %q\nSupported: %s", formatKey, strings.Join(format.Keys(), ", ")))
		return BatchResult{}, services.Wrap(services.ErrValidation, "convert", "run", "unknown format "+formatKey, nil)
	}
	if len(sources) == 0 {
		o.dialogs.Error(ctx, "No input files provided.")
		return BatchResult{}, services.Wrap(services.ErrValidation, "convert", "run", "no input files", nil)
	}
	if o.lock != nil {
		locked, err := o.lock.TryLock()
		if err != nil {
			return BatchResult{}, services.Wrap(services.ErrConfiguration, "convert", "lock", "acquire session lock", err)
		}
		if !locked {
			o.dialogs.Error(ctx, "Another conversion is already running.")
			return BatchResult{}, services.Wrap(services.ErrValidation, "convert", "lock", "another conversion is already running", nil)
		}
		defer func() { _ = o.lock.Unlock() }()
	}

	token := o.quality.Load().Resolve(def.Key)
	result := BatchResult{
		BatchID:   o.newID(),
		Format:    def.Key,
		Quality:   token,
		StartedAt: o.now(),
	}
	o.logger.Info("batch started",
		logging.String("batch", result.BatchID),
		logging.String("format", def.Key),
		logging.String("quality", token),
		logging.Int("files", len(sources)))

	plan := o.plan(ctx, def, sources)
	slices := weights(plan)
	total := len(plan)

	title := fmt.Sprintf("%s - %s%s", dialogTitle, strings.ToUpper(def.Key), format.QualitySuffix(token))
	handle, err := o.dialogs.OpenProgress(ctx, title, fmt.Sprintf("Starting… (0 of %d)", total))
	if err != nil {
		// The batch still runs without a visible bar; cancellation is then
		// only possible through the context.
		o.logger.Warn("progress dialog unavailable", logging.Error(err))
		handle = nil
	}

	base := 0.0
	cancelledAt := -1

	for idx, entry := range plan {
		label := fmt.Sprintf("[%d/%d] %s", idx+1, total, shortName(entry.Source))
		weight := slices[idx]

		if entry.Missing {
			result.Files = append(result.Files, FileResult{
				Source: entry.Source,
				Status: StatusFailed,
				Err:    fmt.Errorf("file not found: %s", entry.Source),
			})
			base += weight
			continue
		}

		if o.cfg.Conversion.LossyWarning && classify.ShouldWarn(entry.Class, def.Key) {
			if !o.dialogs.WarnContinueCancel(ctx, dialogTitle+" - Warning", lossyWarningText(entry.Codec, def)) {
				o.logger.Info("lossy warning declined", logging.String("path", entry.Source))
				result.Files = append(result.Files, FileResult{Source: entry.Source, Status: StatusSkipped})
				base += weight
				continue
			}
		}

		if alive := o.report(ctx, handle, percent(base), "Preparing: "+label); !alive {
			result.Files = append(result.Files, FileResult{Source: entry.Source, Status: StatusCancelled})
			cancelledAt = idx
			break
		}

		job, err := o.encoder.Start(ctx, ffmpeg.Spec{
			Source:  entry.Source,
			Output:  entry.Output,
			Format:  def,
			Quality: token,
		})
		if err != nil {
			result.Files = append(result.Files, FileResult{Source: entry.Source, Status: StatusFailed, Err: err})
			base += weight
			continue
		}

		sliceBase := base
		report := func(filePct int, text string) bool {
			overall := percent(sliceBase + float64(filePct)/100*weight)
			return o.report(ctx, handle, overall, text)
		}
		state, watchErr := o.monitor.Watch(ctx, job, entry.Duration, "Converting: "+label, report)

		switch state {
		case ffmpeg.StateCompleted:
			base += weight
			o.report(ctx, handle, percent(base), "Done: "+label)
			result.Files = append(result.Files, FileResult{Source: entry.Source, Output: entry.Output, Status: StatusConverted})
			o.logger.Info("file converted", logging.String("path", entry.Source), logging.String("output", entry.Output))
		case ffmpeg.StateCancelled:
			result.Files = append(result.Files, FileResult{Source: entry.Source, Status: StatusCancelled})
			cancelledAt = idx
		default:
			result.Files = append(result.Files, FileResult{Source: entry.Source, Status: StatusFailed, Err: watchErr})
			base += weight
			o.logger.Warn("file failed", logging.String("path", entry.Source), logging.Error(watchErr))
		}
		if cancelledAt >= 0 || (watchErr != nil && errors.Is(watchErr, context.Canceled)) {
			if cancelledAt < 0 {
				cancelledAt = idx
			}
			break
		}
	}

	if handle != nil {
		handle.Close(ctx)
	}
	result.FinishedAt = o.now()
	o.settle(ctx, &result, def, token, total, cancelledAt)
	o.record(ctx, result)
	return result, nil
}

// settle assigns the batch outcome and pushes the closing dialog and
// notification.
func (o *Orchestrator) settle(ctx context.Context, result *BatchResult, def format.Definition, token string, total, cancelledAt int) {
	converted, failed, _ := result.Counts()
	switch {
	case cancelledAt >= 0:
		result.Outcome = OutcomeCancelled
		o.logger.Info("batch cancelled", logging.String("batch", result.BatchID), logging.Int("file", cancelledAt+1))
		if err := o.notifier.NotifyBatchCancelled(ctx, cancelledAt+1, total); err != nil {
			o.logger.Warn("notification failed", logging.Error(err))
		}
	case failed > 0:
		result.Outcome = OutcomePartial
		o.showErrorSummary(ctx, converted, total, result.Files)
		if err := o.notifier.NotifyBatchPartial(ctx, converted, failed, total); err != nil {
			o.logger.Warn("notification failed", logging.Error(err))
		}
	default:
		result.Outcome = OutcomeCompleted
		if converted > 0 {
			if err := o.notifier.NotifyBatchCompleted(ctx, converted, def.Label, format.QualitySuffix(token)); err != nil {
				o.logger.Warn("notification failed", logging.Error(err))
			}
		}
	}
	o.logger.Info("batch finished",
		logging.String("batch", result.BatchID),
		logging.String("outcome", result.Outcome.String()),
		logging.Int("converted", converted),
		logging.Int("failed", failed))
}

func (o *Orchestrator) showErrorSummary(ctx context.Context, converted, total int, files []FileResult) {
	var details []string
	for _, file := range files {
		if file.Status != StatusFailed || file.Err == nil {
			continue
		}
		details = append(details, fmt.Sprintf("%s:\n%s", shortName(file.Source), file.Err.Error()))
	}
	preview := strings.Join(limitStrings(details, 3), "\n\n")
	if len(details) > 3 {
		preview += fmt.Sprintf("\n\n…and %d more", len(details)-3)
	}
	o.dialogs.Error(ctx, fmt.Sprintf("Converted %d of %d file(s).\n\nErrors:\n%s", converted, total, preview))
}

func (o *Orchestrator) report(ctx context.Context, handle kdialog.ProgressHandle, value int, label string) bool {
	if handle == nil {
		return true
	}
	return handle.Set(ctx, value, label)
}

func (o *Orchestrator) record(ctx context.Context, result BatchResult) {
	if o.recorder == nil || !o.cfg.History.Enabled {
		return
	}
	converted, failed, skipped := result.Counts()
	batch := history.Batch{
		BatchID:    result.BatchID,
		Format:     result.Format,
		Quality:    result.Quality,
		Outcome:    historyOutcome(result.Outcome),
		Converted:  converted,
		Failed:     failed,
		Skipped:    skipped,
		TotalFiles: len(result.Files),
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}
	for _, file := range result.Files {
		record := history.FileRecord{
			SourcePath:  file.Source,
			OutputPath:  file.Output,
			Disposition: historyDisposition(file.Status),
		}
		if file.Err != nil {
			record.Detail = file.Err.Error()
		}
		batch.Files = append(batch.Files, record)
	}
	if err := o.recorder.Record(ctx, batch); err != nil {
		o.logger.Warn("history write failed", logging.Error(err))
	}
}

func historyOutcome(outcome Outcome) history.Outcome {
	switch outcome {
	case OutcomePartial:
		return history.OutcomePartial
	case OutcomeCancelled:
		return history.OutcomeCancelled
	default:
		return history.OutcomeCompleted
	}
}

func historyDisposition(status FileStatus) history.Disposition {
	switch status {
	case StatusFailed:
		return history.DispositionFailed
	case StatusSkipped:
		return history.DispositionSkipped
	case StatusCancelled:
		return history.DispositionCancelled
	default:
		return history.DispositionConverted
	}
}

func percent(fraction float64) int {
	value := int(fraction*100 + 0.5)
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

func limitStrings(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
