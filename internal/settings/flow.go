package settings

import (
	"context"
	"fmt"
	"log/slog"

	"quaver/internal/config"
	"quaver/internal/format"
	"quaver/internal/logging"
	"quaver/internal/notifications"
	"quaver/internal/quality"
	"quaver/internal/servicemenu"
	"quaver/internal/services/kdialog"
)

// Patcher refreshes installed menu labels. *servicemenu.Patcher satisfies it.
type Patcher interface {
	Apply(cfg quality.Config) error
}

// Flow runs the configure dialogs.
type Flow struct {
	dialogs  kdialog.Dialogs
	store    *quality.Store
	patcher  Patcher
	notifier notifications.Service
	logger   *slog.Logger
}

// Option overrides one flow dependency.
type Option func(*Flow)

// WithDialogs substitutes the dialog surface.
func WithDialogs(dialogs kdialog.Dialogs) Option {
	return func(f *Flow) {
		if dialogs != nil {
			f.dialogs = dialogs
		}
	}
}

// WithNotifier substitutes the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(f *Flow) {
		if notifier != nil {
			f.notifier = notifier
		}
	}
}

// WithPatcher substitutes the service menu patcher.
func WithPatcher(patcher Patcher) Option {
	return func(f *Flow) {
		if patcher != nil {
			f.patcher = patcher
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logging.NewComponentLogger(logger, "settings")
		}
	}
}

// NewFlow builds a flow wired to the real desktop tools named in cfg.
func NewFlow(cfg *config.Config, opts ...Option) *Flow {
	f := &Flow{
		dialogs:  kdialog.NewCLI(kdialog.WithBinary(cfg.Tools.Kdialog), kdialog.WithQdbusBinary(cfg.Tools.Qdbus)),
		store:    quality.NewStore(cfg.Paths.QualityFile),
		patcher:  servicemenu.NewPatcher(cfg.Paths.DataDir),
		notifier: notifications.NewService(cfg.Notifications.Enabled, cfg.Tools.NotifySend),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run walks the user through picking a format and a quality, then saves the
// selection and refreshes the service menu. Dismissing either menu leaves
// everything untouched; changed reports whether a selection was stored.
func (f *Flow) Run(ctx context.Context) (changed bool, err error) {
	cfg := f.store.Load()

	formatEntries := make([]kdialog.MenuEntry, 0, len(format.Configurable()))
	for _, def := range format.Configurable() {
		formatEntries = append(formatEntries, kdialog.MenuEntry{
			Key:   def.Key,
			Label: fmt.Sprintf("%s   (currently: %s)", def.Label, cfg.Resolve(def.Key)),
		})
	}

	chosenKey, ok := f.dialogs.Menu(ctx, "Audio Converter - Configure", "Select a format to configure:", formatEntries)
	if !ok {
		return false, nil
	}
	def, ok := format.Lookup(chosenKey)
	if !ok || def.Lossless() {
		return false, nil
	}

	current := cfg.Resolve(def.Key)
	qualityEntries := make([]kdialog.MenuEntry, 0, len(def.Options))
	for _, opt := range def.Options {
		marker := ""
		if opt.Token == current {
			marker = "  ✔"
		}
		qualityEntries = append(qualityEntries, kdialog.MenuEntry{
			Key:   opt.Token,
			Label: fmt.Sprintf("%s - %s%s", opt.Token, opt.Description, marker),
		})
	}

	chosenToken, ok := f.dialogs.Menu(ctx, fmt.Sprintf("Configure %s", def.Label), fmt.Sprintf("Output quality for %s:", def.Label), qualityEntries)
	if !ok {
		return false, nil
	}
	if err := cfg.Set(def.Key, chosenToken); err != nil {
		return false, nil
	}

	if err := f.store.Save(cfg); err != nil {
		return false, fmt.Errorf("save quality selection: %w", err)
	}
	if err := f.patcher.Apply(cfg); err != nil {
		// The selection is saved; stale menu labels correct themselves on the
		// next successful patch.
		f.logger.Warn("service menu update failed", logging.Error(err))
	}
	if err := f.notifier.NotifySettingsSaved(ctx, def.Label, chosenToken); err != nil {
		f.logger.Warn("notification failed", logging.Error(err))
	}
	f.logger.Info("quality selection saved",
		logging.String("format", def.Key),
		logging.String("quality", chosenToken))
	return true, nil
}
