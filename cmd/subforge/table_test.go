package main

import (
	"strings"
	"testing"
)

func TestRenderTableKeepsTitleOnOneLine(t *testing.T) {
	title := "Batch 1a2b3c4d: 1 success, 0 partial, 0 failed"
	got := renderTable(title, []string{"#", "Video"}, [][]string{{"1"}}, []columnAlignment{alignRight})

	lines := strings.Split(got, "\n")
	if lines[0] != title {
		t.Fatalf("first line = %q, want %q", lines[0], title)
	}
	if strings.Count(got, "failed") != 1 {
		t.Fatalf("title repeated or split:\n%s", got)
	}
	if !strings.HasPrefix(lines[1], "╭") {
		t.Fatalf("expected table border after title, got %q", lines[1])
	}
}

func TestRenderTableWithoutTitle(t *testing.T) {
	got := renderTable("", []string{"Font"}, [][]string{{"Noto Sans"}}, nil)
	if !strings.HasPrefix(got, "╭") {
		t.Fatalf("expected table to start with its border:\n%s", got)
	}
	if !strings.Contains(got, "Noto Sans") {
		t.Fatalf("missing row:\n%s", got)
	}
	if renderTable("ignored", nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}
