package main

import (
	"encoding/json"
	"testing"
)

func TestProbeTable(t *testing.T) {
	env := setupCLITestEnv(t)
	movie := env.video(t, "movie.mkv")

	out, _, err := runCLI(t, []string{"probe", movie}, env.configPath)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	requireContains(t, out, "1920x1080")
	requireContains(t, out, "subrip")
	requireContains(t, out, "movie.eng2.srt")
}

func TestProbeJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	movie := env.video(t, "movie.mkv")
	broken := env.video(t, "broken.mkv")

	out, _, err := runCLI(t, []string{"probe", "--json", movie, broken}, env.configPath)
	if err != nil {
		t.Fatalf("probe --json: %v", err)
	}
	var results []probeOutput
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	var probe struct {
		Streams []struct {
			CodecName string `json:"codec_name"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(results[0].Probe, &probe); err != nil {
		t.Fatalf("decode probe: %v", err)
	}
	if len(probe.Streams) != 2 || probe.Streams[1].CodecName != "subrip" {
		t.Fatalf("unexpected probe payload: %+v", probe)
	}
	if results[1].Error == "" {
		t.Fatal("expected error for broken video")
	}
}
