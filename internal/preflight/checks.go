package preflight

import (
	"fmt"
	"os"

	"subforge/internal/config"
	"subforge/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := checkAccess(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// EnsureDirectory creates the directory when missing, then checks access.
func EnsureDirectory(name, path string) Result {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", path, err)}
	}
	return CheckDirectoryAccess(name, path)
}

// CheckSystemDeps reports the external tools subforge drives. The renderer
// and fontforge are optional: only sup output and merge mode need them.
func CheckSystemDeps(cfg *config.Config, locator deps.Locator) []deps.Status {
	return deps.CheckBinaries(locator.Requirements(
		cfg.Tools.FFmpeg,
		cfg.Tools.FFprobe,
		cfg.Tools.Renderer,
		cfg.Tools.FontForge,
	))
}
