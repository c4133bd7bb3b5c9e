//go:build !windows

package fontstore

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"subforge/internal/services"
	"subforge/internal/testsupport"
)

func TestFontconfigStoreLifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fonts")
	testsupport.WriteFont(t, dir, "existing.ttf", "Existing")

	var commands []services.Command
	store := NewFontconfigStore(dir, func(_ context.Context, cmd services.Command) ([]byte, error) {
		commands = append(commands, cmd)
		return nil, nil
	})

	installed, err := store.Installed(context.Background())
	if err != nil {
		t.Fatalf("Installed: %v", err)
	}
	if _, ok := installed["existing (truetype)"]; !ok {
		t.Fatalf("expected existing font listed, got %v", installed)
	}

	src := testsupport.WriteFont(t, t.TempDir(), "existing.ttf", "Fresh")
	entry, err := store.Install(context.Background(), src, Key("Fresh"))
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if entry.Path != filepath.Join(dir, "existing_1.ttf") {
		t.Fatalf("expected unique copy name, got %s", entry.Path)
	}
	if err := store.Notify(context.Background()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(commands) != 1 || commands[0].Name != "fc-cache" || commands[0].Args[1] != dir {
		t.Fatalf("unexpected commands %+v", commands)
	}

	if err := store.Remove(context.Background(), entry); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(entry.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected installed copy removed, stat err=%v", err)
	}
	if err := store.Remove(context.Background(), entry); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestFontconfigStoreMissingDirAndTool(t *testing.T) {
	store := NewFontconfigStore(filepath.Join(t.TempDir(), "absent"), func(context.Context, services.Command) ([]byte, error) {
		return nil, &exec.Error{Name: "fc-cache", Err: exec.ErrNotFound}
	})
	installed, err := store.Installed(context.Background())
	if err != nil || len(installed) != 0 {
		t.Fatalf("expected empty listing, got %v, %v", installed, err)
	}
	if err := store.Notify(context.Background()); err != nil {
		t.Fatalf("missing fc-cache should be ignored: %v", err)
	}
}

func TestUserFontDirHonoursXDG(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("XDG layout only")
	}
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	dir, err := userFontDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/tmp/xdg-data/fonts" {
		t.Fatalf("unexpected dir %s", dir)
	}
}
