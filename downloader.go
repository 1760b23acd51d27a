package main

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Downloader wraps the yt-dlp binary. Every call runs under a hard
// wall-clock timeout; on expiry the process is killed and the call fails
// with ErrDownloadTimeout.
type Downloader struct {
	bin           string
	timeout       time.Duration
	maxRemoteSize string
}

func newDownloader(cfg *Config) *Downloader {
	return &Downloader{bin: cfg.YtdlpPath, timeout: cfg.DownloadTimeout, maxRemoteSize: cfg.MaxRemoteSize}
}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// robustnessFlags are passed on every download call: no playlist expansion,
// no TLS verification stalls, no cookie jar, and the android player client
// identity to dodge platform-side blocking.
var robustnessFlags = []string{
	"--no-playlist",
	"--no-check-certificates",
	"--no-cookies",
	"--extractor-args", "youtube:player_client=android",
}

// audioFormatFor picks the yt-dlp format selector per platform: YouTube
// prefers the m4a audio track, everything else takes the best available
// audio.
func audioFormatFor(platform Platform) string {
	if platform == PlatformYouTube {
		return "bestaudio[ext=m4a]"
	}
	return "bestaudio/best"
}

// StreamURL asks yt-dlp for the direct audio stream URL without downloading
// anything (-g).
func (d *Downloader) StreamURL(ctx context.Context, mediaURL string, platform Platform) (string, error) {
	args := []string{"-f", audioFormatFor(platform), "-g"}
	args = append(args, robustnessFlags...)
	args = append(args, "--user-agent", browserUserAgent, mediaURL)
	out, err := d.run(ctx, args)
	if err != nil {
		return "", err
	}
	streamURL := strings.TrimSpace(out)
	if streamURL == "" {
		return "", pipelineErrorf(ErrDownloadFailed, "yt-dlp returned no stream URL")
	}
	return streamURL, nil
}

// DownloadAudio downloads and extracts the audio track to outPath as an MP3
// already normalized for recognition (22050 Hz mono, capped remote size).
func (d *Downloader) DownloadAudio(ctx context.Context, mediaURL string, platform Platform, outPath string) error {
	args := []string{
		"-f", audioFormatFor(platform),
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "9",
		"--postprocessor-args", "-ar 22050 -ac 1",
		"-o", outPath,
	}
	args = append(args, robustnessFlags...)
	args = append(args, "--max-filesize", d.maxRemoteSize, mediaURL)
	_, err := d.run(ctx, args)
	return err
}

// Version reports the yt-dlp version string; used by the health endpoint.
func (d *Downloader) Version(ctx context.Context) (string, error) {
	out, err := d.run(ctx, []string{"--version"})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (d *Downloader) run(ctx context.Context, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", pipelineErrorf(ErrDownloadTimeout, "yt-dlp killed after %s", d.timeout)
	}
	if err != nil {
		return "", &PipelineError{Kind: ErrDownloadFailed, Detail: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.String(), nil
}
