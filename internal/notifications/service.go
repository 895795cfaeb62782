package notifications

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

const appName = "Audio Converter"

// Service defines the notification surface exposed to the conversion and
// configuration flows.
type Service interface {
	NotifyBatchCompleted(ctx context.Context, converted int, formatLabel, qualitySuffix string) error
	NotifyBatchPartial(ctx context.Context, converted, failed, total int) error
	NotifyBatchCancelled(ctx context.Context, position, total int) error
	NotifySettingsSaved(ctx context.Context, formatLabel, token string) error
}

// NewService builds a notify-send backed service, or a noop one when
// notifications are disabled.
func NewService(enabled bool, binary string) Service {
	if !enabled {
		return noopService{}
	}
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "notify-send"
	}
	return &sendService{binary: binary}
}

type sendService struct {
	binary string
}

func (s *sendService) NotifyBatchCompleted(ctx context.Context, converted int, formatLabel, qualitySuffix string) error {
	plural := ""
	if converted != 1 {
		plural = "s"
	}
	message := fmt.Sprintf("%d file%s converted to %s%s", converted, plural, formatLabel, qualitySuffix)
	return s.send(ctx, "audio-x-generic", appName+" - Done", message)
}

func (s *sendService) NotifyBatchPartial(ctx context.Context, converted, failed, total int) error {
	message := fmt.Sprintf("%d/%d converted, %d failed", converted, total, failed)
	return s.send(ctx, "dialog-error", appName+" - Finished with errors", message)
}

func (s *sendService) NotifyBatchCancelled(ctx context.Context, position, total int) error {
	message := fmt.Sprintf("Cancelled on file %d of %d", position, total)
	return s.send(ctx, "dialog-cancel", appName+" - Cancelled", message)
}

func (s *sendService) NotifySettingsSaved(ctx context.Context, formatLabel, token string) error {
	message := fmt.Sprintf("%s quality set to %s", formatLabel, token)
	return s.send(ctx, "configure", appName+" - Settings saved", message)
}

func (s *sendService) send(ctx context.Context, icon, title, message string) error {
	cmd := commandContext(ctx, s.binary, "-i", icon, "-a", appName, title, message)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("notify-send: %w", err)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyBatchCompleted(context.Context, int, string, string) error { return nil }
func (noopService) NotifyBatchPartial(context.Context, int, int, int) error         { return nil }
func (noopService) NotifyBatchCancelled(context.Context, int, int) error            { return nil }
func (noopService) NotifySettingsSaved(context.Context, string, string) error       { return nil }
