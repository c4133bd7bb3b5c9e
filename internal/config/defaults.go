package config

const (
	defaultLogDir              = "~/.local/share/subforge/logs"
	defaultHistoryDB           = "~/.local/share/subforge/history.db"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultFFmpeg              = "ffmpeg"
	defaultFFprobe             = "ffprobe"
	defaultMergeTimeoutSeconds = 600
	defaultFormat              = "ass"
	defaultFontMode            = "embed"
	defaultPlayResX            = 1920
	defaultPlayResY            = 1080
	defaultRenderHeight        = 1080
	defaultRenderFPS           = 23.976
	defaultSuccessMarker       = "Encoding successfully completed."
	defaultFontStoreBackend    = "auto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Tools: Tools{
			FFmpeg:              defaultFFmpeg,
			FFprobe:             defaultFFprobe,
			MergeTimeoutSeconds: defaultMergeTimeoutSeconds,
		},
		Extract: Extract{
			Format:      defaultFormat,
			FontMode:    defaultFontMode,
			CleanHeader: true,
			PlayResX:    defaultPlayResX,
			PlayResY:    defaultPlayResY,
		},
		Render: Render{
			DefaultHeight: defaultRenderHeight,
			DefaultFPS:    defaultRenderFPS,
			SuccessMarker: defaultSuccessMarker,
		},
		FontStore: FontStore{
			Backend: defaultFontStoreBackend,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
