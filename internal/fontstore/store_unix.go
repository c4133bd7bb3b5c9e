//go:build !windows

package fontstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"subforge/internal/fileutil"
	"subforge/internal/fontname"
	"subforge/internal/services"
)

// FontconfigStore registers fonts by copying them into the user font
// directory and refreshing the fontconfig cache. Keys are derived from the
// display names of the files already in that directory.
type FontconfigStore struct {
	dir    string
	runner services.CommandRunner
}

// NewSystemStore returns the platform font store.
func NewSystemStore(runner services.CommandRunner) (Store, error) {
	dir, err := userFontDir()
	if err != nil {
		return nil, err
	}
	return NewFontconfigStore(dir, runner), nil
}

// NewFontconfigStore returns a store rooted at dir.
func NewFontconfigStore(dir string, runner services.CommandRunner) *FontconfigStore {
	if runner == nil {
		runner = services.ExecRunner
	}
	return &FontconfigStore{dir: dir, runner: runner}
}

func userFontDir() (string, error) {
	if runtime.GOOS == "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", services.Wrap(services.ErrFileSystem, "fontstore", "locate font dir", "", err)
		}
		return filepath.Join(home, "Library", "Fonts"), nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "fonts"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", services.Wrap(services.ErrFileSystem, "fontstore", "locate font dir", "", err)
	}
	return filepath.Join(home, ".local", "share", "fonts"), nil
}

func (s *FontconfigStore) Installed(context.Context) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".ttf", ".otf", ".ttc":
			out[strings.ToLower(Key(fontname.DisplayName(path)))] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FontconfigStore) Install(_ context.Context, src, key string) (Entry, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Entry{}, err
	}
	dst, err := fileutil.UniquePath(s.dir, filepath.Base(src))
	if err != nil {
		return Entry{}, err
	}
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return Entry{}, err
	}
	return Entry{Key: key, Path: dst}, nil
}

func (s *FontconfigStore) Remove(_ context.Context, entry Entry) error {
	if err := os.Remove(entry.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Notify runs fc-cache on the font directory. A missing fc-cache is not an
// error; fontconfig rescans on its own schedule.
func (s *FontconfigStore) Notify(ctx context.Context) error {
	_, err := s.runner(ctx, services.Command{Name: "fc-cache", Args: []string{"-f", s.dir}})
	if err != nil && !errors.Is(err, exec.ErrNotFound) {
		return services.Wrap(services.ErrExternalTool, "fontstore", "fc-cache", "", err)
	}
	return nil
}
