package fontstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"subforge/internal/fontname"
	"subforge/internal/logging"
	"subforge/internal/services"
)

const lockRetryDelay = 250 * time.Millisecond

// Registrar installs fonts into a Store for the lifetime of a Handle.
type Registrar struct {
	store    Store
	lockPath string
	logger   *slog.Logger
}

// NewRegistrar constructs a registrar. An empty lockPath disables locking.
func NewRegistrar(store Store, lockPath string, logger *slog.Logger) *Registrar {
	return &Registrar{
		store:    store,
		lockPath: strings.TrimSpace(lockPath),
		logger:   logging.NewComponentLogger(logger, "fontstore"),
	}
}

// Handle lists the entries one Register call installed.
type Handle struct {
	store   Store
	lock    *flock.Flock
	logger  *slog.Logger
	entries []Entry

	once sync.Once
	err  error
}

// Entries returns the installed entries.
func (h *Handle) Entries() []Entry {
	if h == nil {
		return nil
	}
	return append([]Entry(nil), h.entries...)
}

// Register installs every font file in dir whose key the store does not
// already list, case-insensitively, and notifies once when anything was
// installed. When an install fails the entries installed so far are removed
// before the error is returned.
func (r *Registrar) Register(ctx context.Context, dir string) (*Handle, error) {
	logger := logging.WithContext(ctx, r.logger)
	files, err := fontFiles(dir)
	if err != nil {
		return nil, err
	}

	lock, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	handle := &Handle{store: r.store, lock: lock, logger: logger}

	installed, err := r.store.Installed(ctx)
	if err != nil {
		handle.unlock()
		return nil, services.Wrap(services.ErrFileSystem, "fontstore", "list installed", "", err)
	}

	skipped := 0
	for _, path := range files {
		key := Key(fontname.DisplayName(path))
		lower := strings.ToLower(key)
		if _, ok := installed[lower]; ok {
			skipped++
			continue
		}
		entry, err := r.store.Install(ctx, path, key)
		if err != nil {
			installErr := services.Wrap(services.ErrFileSystem, "fontstore", "install", filepath.Base(path), err)
			if releaseErr := handle.Release(ctx); releaseErr != nil {
				installErr = errors.Join(installErr, releaseErr)
			}
			return nil, installErr
		}
		installed[lower] = struct{}{}
		handle.entries = append(handle.entries, entry)
		logger.Debug("font registered", logging.String("key", entry.Key), logging.String("path", entry.Path))
	}

	if len(handle.entries) > 0 {
		if err := r.store.Notify(ctx); err != nil {
			logging.WarnWithContext(logger, "font change notification failed", "font_notify_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "renderer may not see the new fonts"),
			)
		}
	}
	logger.Info("fonts registered",
		logging.Int("installed", len(handle.entries)),
		logging.Int("already_present", skipped),
	)
	return handle, nil
}

// Release removes every installed entry, notifies the store and releases the
// lock. It is safe on a nil handle and only acts once.
func (h *Handle) Release(ctx context.Context) error {
	if h == nil {
		return nil
	}
	h.once.Do(func() {
		var errs []error
		for _, entry := range h.entries {
			if err := h.store.Remove(ctx, entry); err != nil {
				errs = append(errs, fmt.Errorf("remove %s: %w", entry.Key, err))
			}
		}
		if len(h.entries) > 0 {
			if err := h.store.Notify(ctx); err != nil {
				errs = append(errs, fmt.Errorf("notify: %w", err))
			}
		}
		h.unlock()
		if len(errs) > 0 {
			h.err = services.Wrap(services.ErrFileSystem, "fontstore", "release", "", errors.Join(errs...))
			logging.WarnWithContext(h.logger, "font store cleanup incomplete", "font_release_failed",
				logging.Error(h.err),
				logging.String(logging.FieldErrorHint, "remove the listed fonts from the user font store manually"),
			)
			return
		}
		h.logger.Debug("fonts released", logging.Int("count", len(h.entries)))
	})
	return h.err
}

func (h *Handle) unlock() {
	if h.lock == nil {
		return
	}
	if err := h.lock.Unlock(); err != nil && h.logger != nil {
		h.logger.Warn("failed to release font store lock", logging.Error(err))
	}
}

func (r *Registrar) acquire(ctx context.Context) (*flock.Flock, error) {
	if r.lockPath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(r.lockPath), 0o755); err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "fontstore", "lock", r.lockPath, err)
	}
	lock := flock.New(r.lockPath)
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "fontstore", "lock", r.lockPath, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrFileSystem, "fontstore", "lock", "font store is locked by another process", nil)
	}
	return lock, nil
}

func fontFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "fontstore", "read fonts", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".ttf", ".otf", ".ttc":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
