package config

import (
	"errors"
	"fmt"
	"slices"
)

var (
	validFormats    = []string{"ass", "srt", "ssa", "sup", "original"}
	validFontModes  = []string{"embed", "merge", "restore", "none"}
	validBackends   = []string{"auto", "system", "memory"}
	validLogFormats = []string{"console", "json"}
	validLogLevels  = []string{"debug", "info", "warn", "warning", "error"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateExtract(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if !slices.Contains(validBackends, c.FontStore.Backend) {
		return fmt.Errorf("font_store.backend must be one of %v, got %q", validBackends, c.FontStore.Backend)
	}
	if c.History.Enabled && c.Paths.HistoryDB == "" {
		return errors.New("paths.history_db must be set when history.enabled is true")
	}
	return c.validateLogging()
}

func (c *Config) validateExtract() error {
	if !slices.Contains(validFormats, c.Extract.Format) {
		return fmt.Errorf("extract.format must be one of %v, got %q", validFormats, c.Extract.Format)
	}
	if !slices.Contains(validFontModes, c.Extract.FontMode) {
		return fmt.Errorf("extract.font_mode must be one of %v, got %q", validFontModes, c.Extract.FontMode)
	}
	if c.Extract.PlayResX < 0 || c.Extract.PlayResY < 0 {
		return errors.New("extract.play_res_x and extract.play_res_y must be positive")
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.MergeTimeoutSeconds < 0 {
		return errors.New("tools.merge_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.DefaultHeight < 0 {
		return errors.New("render.default_height must be positive")
	}
	if c.Render.DefaultFPS < 0 {
		return errors.New("render.default_fps must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !slices.Contains(validLogFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format must be one of %v, got %q", validLogFormats, c.Logging.Format)
	}
	if !slices.Contains(validLogLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of %v, got %q", validLogLevels, c.Logging.Level)
	}
	return nil
}
