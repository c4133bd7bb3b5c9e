package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subforge/internal/testsupport"
)

const probeFixture = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "r_frame_rate": "24000/1001"},
    {"index": 2, "codec_name": "subrip", "codec_type": "subtitle", "tags": {"language": "eng"}}
  ],
  "format": {"filename": "movie.mkv", "nb_streams": 2, "format_name": "matroska,webm"}
}`

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	historyDB  string
	videosDir  string
}

// setupCLITestEnv writes stub ffmpeg/ffprobe binaries and a config pointing
// every path into a temp directory. ffprobe fails for paths containing
// "broken"; ffmpeg writes a tiny SRT to its last argument.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))

	bin := filepath.Join(base, "bin")
	ffprobe := testsupport.WriteScript(t, filepath.Join(bin, "ffprobe"), `for arg; do last="$arg"; done
case "$last" in
  *broken*) echo "invalid data found" >&2; exit 1 ;;
esac
cat <<'JSON'
`+probeFixture+`
JSON
`)
	ffmpeg := testsupport.WriteScript(t, filepath.Join(bin, "ffmpeg"), `for arg; do last="$arg"; done
case "$*" in
  *-dump_attachment*) echo "At least one output file must be specified"; exit 1 ;;
esac
printf '1\n00:00:01,000 --> 00:00:02,000\nhello\n' > "$last"
`)

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		outputDir:  filepath.Join(base, "out"),
		historyDB:  filepath.Join(base, "history.db"),
		videosDir:  filepath.Join(base, "videos"),
	}
	content := fmt.Sprintf(`[paths]
output_dir = %q
log_dir = %q
history_db = %q
tools_dir = %q

[tools]
ffmpeg = %q
ffprobe = %q

[extract]
format = "srt"
font_mode = "none"

[font_store]
backend = "memory"

[logging]
level = "error"
`, env.outputDir, filepath.Join(base, "logs"), env.historyDB, filepath.Join(base, "tools"), ffmpeg, ffprobe)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e *cliTestEnv) video(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.videosDir, name)
	testsupport.WriteFile(t, path, 64)
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
