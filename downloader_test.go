package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testDownloader(t *testing.T, script string, timeout time.Duration) *Downloader {
	t.Helper()
	return &Downloader{
		bin:           writeScript(t, "yt-dlp", script),
		timeout:       timeout,
		maxRemoteSize: "10M",
	}
}

func TestAudioFormatFor(t *testing.T) {
	if got := audioFormatFor(PlatformYouTube); got != "bestaudio[ext=m4a]" {
		t.Errorf("youtube format = %q", got)
	}
	for _, p := range []Platform{PlatformTikTok, PlatformInstagram, PlatformGeneric} {
		if got := audioFormatFor(p); got != "bestaudio/best" {
			t.Errorf("%s format = %q", p, got)
		}
	}
}

func TestDownloader_streamURL(t *testing.T) {
	d := testDownloader(t, `echo "https://cdn.example/audio.m4a"`, 5*time.Second)
	got, err := d.StreamURL(context.Background(), "https://www.tiktok.com/@u/video/7123456789012345678", PlatformTikTok)
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://cdn.example/audio.m4a" {
		t.Errorf("StreamURL = %q", got)
	}
}

func TestDownloader_downloadAudio(t *testing.T) {
	d := testDownloader(t, ytdlpStub, 5*time.Second)
	outPath := filepath.Join(t.TempDir(), "audio.mp3")
	if err := d.DownloadAudio(context.Background(), "https://youtu.be/abc12345678", PlatformYouTube, outPath); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fake-media" {
		t.Errorf("downloaded content = %q", data)
	}
}

func TestDownloader_version(t *testing.T) {
	d := testDownloader(t, ytdlpStub, 5*time.Second)
	v, err := d.Version(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != "2025.06.09" {
		t.Errorf("Version = %q", v)
	}
}

func TestDownloader_nonZeroExit(t *testing.T) {
	d := testDownloader(t, `echo "ERROR: unsupported URL" >&2; exit 3`, 5*time.Second)
	_, err := d.StreamURL(context.Background(), "https://example.com/x", PlatformGeneric)
	if err == nil {
		t.Fatal("expected failure")
	}
	if errorKind(err) != ErrDownloadFailed {
		t.Fatalf("kind = %s, want %s", errorKind(err), ErrDownloadFailed)
	}
	var pe *PipelineError
	if !errors.As(err, &pe) || !strings.Contains(pe.Detail, "unsupported URL") {
		t.Errorf("stderr not captured in detail: %v", err)
	}
}

func TestDownloader_timeoutKillsProcess(t *testing.T) {
	d := testDownloader(t, `sleep 30`, 150*time.Millisecond)
	start := time.Now()
	_, err := d.StreamURL(context.Background(), "https://example.com/x", PlatformGeneric)
	elapsed := time.Since(start)
	if err == nil {
		t.Fatal("expected timeout")
	}
	if errorKind(err) != ErrDownloadTimeout {
		t.Fatalf("kind = %s, want %s", errorKind(err), ErrDownloadTimeout)
	}
	// The call must return shortly after the deadline, not after the sleep.
	if elapsed > 5*time.Second {
		t.Errorf("call took %s, process was not killed", elapsed)
	}
}

func TestDownloader_emptyStreamURL(t *testing.T) {
	d := testDownloader(t, `exit 0`, 5*time.Second)
	_, err := d.StreamURL(context.Background(), "https://example.com/x", PlatformGeneric)
	if errorKind(err) != ErrDownloadFailed {
		t.Fatalf("kind = %s, want %s", errorKind(err), ErrDownloadFailed)
	}
}
