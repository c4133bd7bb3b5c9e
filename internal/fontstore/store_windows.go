//go:build windows

package fontstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"subforge/internal/fileutil"
	"subforge/internal/services"
)

const fontsKeyPath = `Software\Microsoft\Windows NT\CurrentVersion\Fonts`

const (
	hwndBroadcast   = 0xFFFF
	wmFontChange    = 0x001D
	smtoAbortIfHung = 0x0002
	notifyTimeoutMs = 1000
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSendMessageTimeoutW = user32.NewProc("SendMessageTimeoutW")
)

// RegistryStore registers fonts under HKCU's Fonts key and copies them into
// the per-user font directory. Both HKLM and HKCU are consulted for fonts
// that are already installed.
type RegistryStore struct {
	dir string
}

// NewSystemStore returns the platform font store.
func NewSystemStore(services.CommandRunner) (Store, error) {
	local := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if local == "" {
		return nil, services.Wrap(services.ErrFileSystem, "fontstore", "locate font dir", "LOCALAPPDATA is not set", nil)
	}
	return &RegistryStore{dir: filepath.Join(local, "Microsoft", "Windows", "Fonts")}, nil
}

func (s *RegistryStore) Installed(context.Context) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, root := range []registry.Key{registry.LOCAL_MACHINE, registry.CURRENT_USER} {
		key, err := registry.OpenKey(root, fontsKeyPath, registry.QUERY_VALUE)
		if err != nil {
			if errors.Is(err, registry.ErrNotExist) {
				continue
			}
			return nil, err
		}
		names, err := key.ReadValueNames(0)
		key.Close()
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			out[strings.ToLower(name)] = struct{}{}
		}
	}
	return out, nil
}

func (s *RegistryStore) Install(_ context.Context, src, key string) (Entry, error) {
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
	regKey, _, err := registry.CreateKey(registry.CURRENT_USER, fontsKeyPath, registry.SET_VALUE)
	if err != nil {
		_ = os.Remove(dst)
		return Entry{}, err
	}
	defer regKey.Close()
	if err := regKey.SetStringValue(key, dst); err != nil {
		_ = os.Remove(dst)
		return Entry{}, err
	}
	return Entry{Key: key, Path: dst}, nil
}

func (s *RegistryStore) Remove(_ context.Context, entry Entry) error {
	var errs []error
	regKey, err := registry.OpenKey(registry.CURRENT_USER, fontsKeyPath, registry.SET_VALUE)
	switch {
	case err == nil:
		if err := regKey.DeleteValue(entry.Key); err != nil && !errors.Is(err, registry.ErrNotExist) {
			errs = append(errs, err)
		}
		regKey.Close()
	case !errors.Is(err, registry.ErrNotExist):
		errs = append(errs, err)
	}
	if err := os.Remove(entry.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Notify broadcasts WM_FONTCHANGE, giving hung windows one second.
func (s *RegistryStore) Notify(context.Context) error {
	var result uintptr
	ret, _, err := procSendMessageTimeoutW.Call(
		hwndBroadcast,
		wmFontChange,
		0,
		0,
		smtoAbortIfHung,
		notifyTimeoutMs,
		uintptr(unsafe.Pointer(&result)),
	)
	if ret == 0 {
		var errno syscall.Errno
		if errors.As(err, &errno) && errno != 0 {
			return services.Wrap(services.ErrExternalTool, "fontstore", "broadcast font change", "", err)
		}
	}
	return nil
}
