package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateConversion(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTools() error {
	for name, value := range map[string]string{
		"tools.ffmpeg":      c.Tools.FFmpeg,
		"tools.ffprobe":     c.Tools.FFprobe,
		"tools.kdialog":     c.Tools.Kdialog,
		"tools.notify_send": c.Tools.NotifySend,
	} {
		if value == "" {
			return fmt.Errorf("%s must be set", name)
		}
	}
	return nil
}

func (c *Config) validateConversion() error {
	if c.Conversion.PollIntervalMS <= 0 {
		return errors.New("conversion.poll_interval_ms must be positive")
	}
	if c.Conversion.PollIntervalMS > 10000 {
		return errors.New("conversion.poll_interval_ms must be 10000 or less")
	}
	if c.Conversion.ProbeTimeoutSeconds <= 0 {
		return errors.New("conversion.probe_timeout_seconds must be positive")
	}
	return nil
}
