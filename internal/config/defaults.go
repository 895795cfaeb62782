package config

const (
	defaultQualityFile      = "~/.config/dolphin-audio-converter/quality.toml"
	defaultHistoryDB        = "~/.local/share/dolphin-audio-converter/history.db"
	defaultLogDir           = "~/.local/share/dolphin-audio-converter/logs"
	defaultLockFile         = "~/.local/share/dolphin-audio-converter/convert.lock"
	defaultDataDir          = "~/.local/share"
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"
	defaultKdialogBinary    = "kdialog"
	defaultNotifySendBinary = "notify-send"
	defaultPollIntervalMS   = 500
	defaultProbeTimeout     = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultHistoryRetention = 365
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			QualityFile: defaultQualityFile,
			HistoryDB:   defaultHistoryDB,
			LogDir:      defaultLogDir,
			LockFile:    defaultLockFile,
			DataDir:     defaultDataDir,
		},
		Tools: Tools{
			FFmpeg:     defaultFFmpegBinary,
			FFprobe:    defaultFFprobeBinary,
			Kdialog:    defaultKdialogBinary,
			NotifySend: defaultNotifySendBinary,
		},
		Conversion: Conversion{
			PollIntervalMS:      defaultPollIntervalMS,
			ProbeTimeoutSeconds: defaultProbeTimeout,
			LossyWarning:        true,
		},
		Notifications: Notifications{
			Enabled: true,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetention,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
