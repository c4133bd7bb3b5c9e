package ass

import (
	"bytes"
	"os"
	"strings"

	"github.com/google/renameio/v2/maybe"

	"subforge/internal/services"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFile returns the subtitle text without a leading UTF-8 BOM.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrFileSystem, "ass", "read", path, err)
	}
	return string(bytes.TrimPrefix(data, utf8BOM)), nil
}

// WriteFile atomically replaces path with text, keeping the file mode.
func WriteFile(path, text string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := maybe.WriteFile(path, []byte(text), mode); err != nil {
		return services.Wrap(services.ErrFileSystem, "ass", "write", path, err)
	}
	return nil
}

func rewriteFile(path string, fn func(string) string) error {
	text, err := ReadFile(path)
	if err != nil {
		return err
	}
	return WriteFile(path, fn(text))
}

func splitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}

func isSectionHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) >= 2 && strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")
}

func isScriptInfo(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "[Script Info]")
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
