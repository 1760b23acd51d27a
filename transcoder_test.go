package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestTranscodeArgs_recognitionProfile(t *testing.T) {
	args := transcodeArgs("in.mp4", "out.mp3", recognitionProfile)
	joined := strings.Join(args, " ")

	for _, want := range []string{"-ss 5", "-t 10", "-ar 22050", "-ac 1", "-acodec libmp3lame", "-b:a 64k", "-vn"} {
		if !strings.Contains(joined, want) {
			t.Errorf("recognition args missing %q: %s", want, joined)
		}
	}
	// Trim start must precede -i so ffmpeg seeks on the input.
	if slices.Index(args, "-ss") > slices.Index(args, "-i") {
		t.Errorf("-ss must come before -i: %s", joined)
	}
	if args[len(args)-1] != "out.mp3" {
		t.Errorf("output path must be last: %s", joined)
	}
}

func TestTranscodeArgs_extractionProfile(t *testing.T) {
	args := transcodeArgs("in.mp4", "out.mp3", extractionProfile)
	joined := strings.Join(args, " ")

	for _, want := range []string{"-ar 44100", "-ac 2", "-acodec libmp3lame"} {
		if !strings.Contains(joined, want) {
			t.Errorf("extraction args missing %q: %s", want, joined)
		}
	}
	// Full duration, no trim, no bitrate cap.
	for _, banned := range []string{"-ss", "-t", "-b:a"} {
		if slices.Contains(args, banned) {
			t.Errorf("extraction args must not contain %q: %s", banned, joined)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := formatSeconds(5 * time.Second); got != "5" {
		t.Errorf("formatSeconds(5s) = %q", got)
	}
	if got := formatSeconds(1500 * time.Millisecond); got != "1.5" {
		t.Errorf("formatSeconds(1.5s) = %q", got)
	}
}

func TestTranscoder_run(t *testing.T) {
	tr := &Transcoder{bin: writeScript(t, "ffmpeg", ffmpegStub), timeout: 5 * time.Second}
	out := filepath.Join(t.TempDir(), "out.mp3")
	if err := tr.Transcode(context.Background(), "input.mp4", out, recognitionProfile); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fake-audio" {
		t.Errorf("output = %q", data)
	}
}

func TestTranscoder_failure(t *testing.T) {
	tr := &Transcoder{bin: writeScript(t, "ffmpeg", `echo "Invalid data found" >&2; exit 1`), timeout: 5 * time.Second}
	err := tr.Transcode(context.Background(), "input.mp4", filepath.Join(t.TempDir(), "out.mp3"), extractionProfile)
	if err == nil {
		t.Fatal("expected failure")
	}
	if errorKind(err) != ErrTranscodeFailed {
		t.Fatalf("kind = %s, want %s", errorKind(err), ErrTranscodeFailed)
	}
	var pe *PipelineError
	if !errors.As(err, &pe) || !strings.Contains(pe.Detail, "Invalid data found") {
		t.Errorf("engine message not surfaced: %v", err)
	}
}
