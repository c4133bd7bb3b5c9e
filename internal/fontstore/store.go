package fontstore

import (
	"context"
	"fmt"
	"strings"

	"subforge/internal/services"
)

// Entry is one font registered in a store: the registry value name and the
// file the store points at.
type Entry struct {
	Key  string
	Path string
}

// Store is a per-user font registry.
type Store interface {
	// Installed returns the keys currently registered, lower-cased.
	Installed(ctx context.Context) (map[string]struct{}, error)
	// Install copies src into the store's font directory and registers it
	// under key.
	Install(ctx context.Context, src, key string) (Entry, error)
	// Remove unregisters the entry and deletes its file.
	Remove(ctx context.Context, entry Entry) error
	// Notify tells running applications that the font table changed.
	Notify(ctx context.Context) error
}

// Backend names accepted by Open.
const (
	BackendAuto   = "auto"
	BackendSystem = "system"
	BackendMemory = "memory"
)

// Key returns the store key for a font display name.
func Key(displayName string) string {
	return displayName + " (TrueType)"
}

// Open returns the store for the configured backend. "auto" and "system"
// select the platform store.
func Open(backend string, runner services.CommandRunner) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendAuto, BackendSystem, "":
		return NewSystemStore(runner)
	default:
		return nil, services.Wrap(services.ErrValidation, "fontstore", "open", fmt.Sprintf("unknown backend %q", backend), nil)
	}
}
