package deps

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"subforge/internal/services"
)

// Tool describes where an external program may live.
type Tool struct {
	Name string
	// Bundled lists paths relative to the tools directory, without the
	// platform executable suffix.
	Bundled []string
	// WorkDir lists paths relative to the working directory.
	WorkDir []string
	// Commands are resolved through PATH.
	Commands []string
	// WellKnown are absolute install locations checked last.
	WellKnown []string
}

var (
	FFmpeg = Tool{
		Name:     "ffmpeg",
		Bundled:  []string{"ffmpeg/ffmpeg", "ffmpeg"},
		Commands: []string{"ffmpeg"},
	}
	FFprobe = Tool{
		Name:     "ffprobe",
		Bundled:  []string{"ffmpeg/ffprobe", "ffprobe"},
		Commands: []string{"ffprobe"},
	}
	Renderer = Tool{
		Name:     "Spp2Pgs",
		Bundled:  []string{"spp2pgs/Spp2Pgs"},
		Commands: []string{"Spp2Pgs", "spp2pgs"},
	}
	FontForge = Tool{
		Name:     "fontforge",
		Bundled:  []string{"FontForge/bin/fontforge"},
		WorkDir:  []string{"FontForge/bin/fontforge"},
		Commands: []string{"fontforge"},
		WellKnown: []string{
			`C:\Program Files\FontForgeBuilds\bin\fontforge.exe`,
			`C:\Program Files (x86)\FontForgeBuilds\bin\fontforge.exe`,
			"/usr/bin/fontforge",
			"/usr/local/bin/fontforge",
			"/opt/homebrew/bin/fontforge",
			"/Applications/FontForge.app/Contents/Resources/opt/local/bin/fontforge",
		},
	}
)

// ErrNotFound reports that no candidate location held the tool.
var ErrNotFound = errors.New("tool not found")

// Locator resolves tools in order: configured path, bundled tools directory,
// working directory, PATH, well-known locations.
type Locator struct {
	ToolsDir string
	WorkDir  string
	lookPath func(string) (string, error)
}

// NewLocator builds a Locator. An empty toolsDir uses the directory of the
// running executable.
func NewLocator(toolsDir string) Locator {
	toolsDir = strings.TrimSpace(toolsDir)
	if toolsDir == "" {
		if exe, err := os.Executable(); err == nil {
			toolsDir = filepath.Dir(exe)
		}
	}
	wd, _ := os.Getwd()
	return Locator{ToolsDir: toolsDir, WorkDir: wd, lookPath: exec.LookPath}
}

// Locate returns the absolute path of tool. configured wins when non-empty and
// is itself resolved through PATH when it is a bare name.
func (l Locator) Locate(tool Tool, configured string) (string, error) {
	lookPath := l.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if configured = strings.TrimSpace(configured); configured != "" {
		if resolved, err := lookPath(configured); err == nil {
			return resolved, nil
		}
		if isExecutableFile(configured) {
			return configured, nil
		}
		return "", services.Wrap(services.ErrMissingDependency, "deps", "locate "+tool.Name, "configured path "+configured+" is not executable", ErrNotFound)
	}
	for _, candidate := range l.candidates(tool) {
		if isExecutableFile(candidate) {
			return candidate, nil
		}
	}
	for _, name := range tool.Commands {
		if resolved, err := lookPath(name); err == nil {
			return resolved, nil
		}
	}
	for _, candidate := range tool.WellKnown {
		if isExecutableFile(candidate) {
			return candidate, nil
		}
	}
	return "", services.Wrap(services.ErrMissingDependency, "deps", "locate "+tool.Name, "", ErrNotFound)
}

func (l Locator) candidates(tool Tool) []string {
	var out []string
	if l.ToolsDir != "" {
		for _, rel := range tool.Bundled {
			out = append(out, executableName(filepath.Join(l.ToolsDir, filepath.FromSlash(rel))))
		}
	}
	if l.WorkDir != "" {
		for _, rel := range tool.WorkDir {
			out = append(out, executableName(filepath.Join(l.WorkDir, filepath.FromSlash(rel))))
		}
	}
	return out
}

// Requirements lists the external tools subforge uses for `subforge deps`.
func (l Locator) Requirements(ffmpeg, ffprobe, renderer, fontforge string) []Requirement {
	resolve := func(tool Tool, configured string) string {
		if path, err := l.Locate(tool, configured); err == nil {
			return path
		}
		if configured != "" {
			return configured
		}
		return tool.Commands[0]
	}
	return []Requirement{
		{Name: "FFmpeg", Command: resolve(FFmpeg, ffmpeg), Description: "Subtitle extraction and font attachments"},
		{Name: "FFprobe", Command: resolve(FFprobe, ffprobe), Description: "Stream inspection"},
		{Name: "Spp2Pgs", Command: resolve(Renderer, renderer), Description: "Bitmap (sup) subtitle rendering", Optional: true},
		{Name: "FontForge", Command: resolve(FontForge, fontforge), Description: "Subset font merging", Optional: true},
	}
}

func executableName(path string) string {
	if runtime.GOOS == "windows" && !strings.EqualFold(filepath.Ext(path), ".exe") {
		return path + ".exe"
	}
	return path
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
