package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeExtract()
	c.normalizeRender()
	c.normalizeLogging()
	c.FontStore.Backend = strings.ToLower(strings.TrimSpace(c.FontStore.Backend))
	if c.FontStore.Backend == "" {
		c.FontStore.Backend = defaultFontStoreBackend
	}
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"paths.output_dir", &c.Paths.OutputDir},
		{"paths.fonts_dir", &c.Paths.FontsDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.history_db", &c.Paths.HistoryDB},
		{"paths.tools_dir", &c.Paths.ToolsDir},
		{"font_store.lock_path", &c.FontStore.LockPath},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	if c.FontStore.LockPath == "" && c.Paths.LogDir != "" {
		c.FontStore.LockPath = filepath.Join(c.Paths.LogDir, "fontstore.lock")
	}
	return nil
}

func (c *Config) normalizeTools() error {
	envFallbacks := []struct {
		env   string
		value *string
	}{
		{"SUBFORGE_FFMPEG", &c.Tools.FFmpeg},
		{"SUBFORGE_FFPROBE", &c.Tools.FFprobe},
		{"SUBFORGE_RENDERER", &c.Tools.Renderer},
		{"SUBFORGE_FONTFORGE", &c.Tools.FontForge},
	}
	for _, fallback := range envFallbacks {
		if value, ok := os.LookupEnv(fallback.env); ok && strings.TrimSpace(value) != "" {
			*fallback.value = value
		}
		*fallback.value = strings.TrimSpace(*fallback.value)
		if strings.HasPrefix(*fallback.value, "~") {
			expanded, err := expandPath(*fallback.value)
			if err != nil {
				return fmt.Errorf("%s: %w", strings.ToLower(fallback.env), err)
			}
			*fallback.value = expanded
		}
	}
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
	if c.Tools.MergeTimeoutSeconds == 0 {
		c.Tools.MergeTimeoutSeconds = defaultMergeTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeExtract() {
	c.Extract.Format = strings.ToLower(strings.TrimSpace(c.Extract.Format))
	if c.Extract.Format == "" {
		c.Extract.Format = defaultFormat
	}
	mode := strings.ToLower(strings.TrimSpace(c.Extract.FontMode))
	mode = strings.ReplaceAll(mode, "_", "-")
	switch mode {
	case "":
		mode = defaultFontMode
	case "subset-merge":
		mode = "merge"
	case "name-restore":
		mode = "restore"
	}
	c.Extract.FontMode = mode
	if c.Extract.PlayResX == 0 {
		c.Extract.PlayResX = defaultPlayResX
	}
	if c.Extract.PlayResY == 0 {
		c.Extract.PlayResY = defaultPlayResY
	}
}

func (c *Config) normalizeRender() {
	if c.Render.DefaultHeight == 0 {
		c.Render.DefaultHeight = defaultRenderHeight
	}
	if c.Render.DefaultFPS == 0 {
		c.Render.DefaultFPS = defaultRenderFPS
	}
	c.Render.SuccessMarker = strings.TrimSpace(c.Render.SuccessMarker)
	if c.Render.SuccessMarker == "" {
		c.Render.SuccessMarker = defaultSuccessMarker
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
