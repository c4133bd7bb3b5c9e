package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"subforge/internal/deps"
	"subforge/internal/fontstore"
	"subforge/internal/logging"
	"subforge/internal/services"
)

const (
	// DefaultSuccessMarker is printed by Spp2Pgs after a complete encode.
	DefaultSuccessMarker = "Encoding successfully completed."
	DefaultHeight        = 1080
	DefaultFPS           = 23.976
)

// Request describes one render.
type Request struct {
	Subtitle string
	// FontsDir holds the fonts to register; empty skips registration.
	FontsDir string
	Height   int
	FPS      float64
	Output   string
}

// Config carries the renderer settings taken from configuration.
type Config struct {
	// Binary is the configured renderer path; empty searches the usual places.
	Binary        string
	Locator       deps.Locator
	SuccessMarker string
	DefaultHeight int
	DefaultFPS    float64
}

type fontRegistrar interface {
	Register(ctx context.Context, dir string) (*fontstore.Handle, error)
}

// Renderer invokes the bitmap subtitle renderer.
type Renderer struct {
	cfg       Config
	registrar fontRegistrar
	run       services.CommandRunner
	logger    *slog.Logger
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithCommandRunner injects a custom command runner (primarily for tests).
func WithCommandRunner(run services.CommandRunner) Option {
	return func(r *Renderer) {
		if run != nil {
			r.run = run
		}
	}
}

// New constructs a Renderer. registrar may be nil when fonts never need to be
// registered.
func New(cfg Config, registrar *fontstore.Registrar, logger *slog.Logger, opts ...Option) *Renderer {
	if strings.TrimSpace(cfg.SuccessMarker) == "" {
		cfg.SuccessMarker = DefaultSuccessMarker
	}
	if cfg.DefaultHeight <= 0 {
		cfg.DefaultHeight = DefaultHeight
	}
	if cfg.DefaultFPS <= 0 {
		cfg.DefaultFPS = DefaultFPS
	}
	r := &Renderer{
		cfg:    cfg,
		run:    services.ExecRunner,
		logger: logging.NewComponentLogger(logger, "render"),
	}
	if registrar != nil {
		r.registrar = registrar
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Locate resolves the renderer executable.
func (r *Renderer) Locate() (string, error) {
	return r.cfg.Locator.Locate(deps.Renderer, r.cfg.Binary)
}

// Render produces req.Output from req.Subtitle. Fonts in req.FontsDir are
// registered before the renderer runs and released before Render returns. A
// failed render leaves no output file behind.
func (r *Renderer) Render(ctx context.Context, req Request) (err error) {
	logger := logging.WithContext(ctx, r.logger)
	if _, statErr := os.Stat(req.Subtitle); statErr != nil {
		return services.Wrap(services.ErrFileSystem, "render", "open subtitle", req.Subtitle, statErr)
	}
	binary, err := r.Locate()
	if err != nil {
		return err
	}
	if req.Height <= 0 {
		req.Height = r.cfg.DefaultHeight
	}
	if req.FPS <= 0 {
		req.FPS = r.cfg.DefaultFPS
	}

	if req.FontsDir != "" {
		if r.registrar == nil {
			return services.Wrap(services.ErrValidation, "render", "register fonts", "no font store configured", nil)
		}
		handle, regErr := r.registrar.Register(ctx, req.FontsDir)
		if regErr != nil {
			return regErr
		}
		defer func() {
			if releaseErr := handle.Release(context.WithoutCancel(ctx)); releaseErr != nil && err == nil {
				err = releaseErr
			}
		}()
	}

	cmd := services.Command{
		Name: binary,
		Args: []string{
			"-i", req.Subtitle,
			"-s", strconv.Itoa(req.Height),
			"-r", strconv.FormatFloat(req.FPS, 'f', -1, 64),
			req.Output,
		},
	}
	logger.Debug("running renderer", logging.String("command", cmd.String()))
	output, runErr := r.run(ctx, cmd)
	if runErr == nil && strings.Contains(string(output), r.cfg.SuccessMarker) {
		logger.Info("bitmap subtitle rendered",
			logging.String("output", filepath.Base(req.Output)),
			logging.Int("height", req.Height),
			logging.Float64("fps", req.FPS),
		)
		return nil
	}

	if removeErr := os.Remove(req.Output); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		logger.Warn("failed to remove partial render output", logging.String("path", req.Output), logging.Error(removeErr))
	}
	detail := "success marker not found"
	if runErr != nil {
		detail = "renderer exited with error"
	}
	if tail := lastLine(output); tail != "" {
		detail = fmt.Sprintf("%s (%s)", detail, tail)
	}
	return services.Wrap(services.ErrExternalTool, "render", "spp2pgs", detail, runErr)
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
