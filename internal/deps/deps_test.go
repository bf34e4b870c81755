package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckBinariesProbesEachRequirement(t *testing.T) {
	bin := t.TempDir()
	fetcher := filepath.Join(bin, "yt-dlp")
	if err := os.WriteFile(fetcher, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub fetcher: %v", err)
	}

	statuses := CheckBinaries([]Requirement{
		{Name: "Fetcher", Command: fetcher, Description: "video search and download"},
		{Name: "FFmpeg", Command: "no-such-ffmpeg-anywhere"},
		{Name: "WhisperX", Command: "  ", Optional: true},
	})
	if len(statuses) != 3 {
		t.Fatalf("statuses = %d, want 3", len(statuses))
	}

	if !statuses[0].Available || statuses[0].Detail != "" {
		t.Fatalf("present binary reported %+v", statuses[0])
	}
	if statuses[1].Available || !strings.Contains(statuses[1].Detail, "not found") {
		t.Fatalf("missing binary reported %+v", statuses[1])
	}
	if statuses[2].Available || statuses[2].Detail != "command not configured" {
		t.Fatalf("blank command reported %+v", statuses[2])
	}
	if !statuses[2].Optional {
		t.Fatal("optional flag dropped")
	}
}
