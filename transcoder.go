package main

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// AudioProfile is a fixed normalization target. The two call sites use
// different profiles and must not be conflated: recognition wants a small
// mono upload, extraction wants full-quality playback audio.
type AudioProfile struct {
	SampleRate int
	Channels   int
	Codec      string
	Bitrate    string // empty = ffmpeg default
	TrimStart  time.Duration
	TrimLen    time.Duration // zero = full duration
}

var (
	// recognitionProfile skips the first 5 seconds (silence/intros) and keeps
	// 10 seconds, which bounds the upload sent to the recognition service.
	recognitionProfile = AudioProfile{
		SampleRate: 22050,
		Channels:   1,
		Codec:      "libmp3lame",
		Bitrate:    "64k",
		TrimStart:  5 * time.Second,
		TrimLen:    10 * time.Second,
	}

	// extractionProfile is full-duration stereo for user playback/download.
	extractionProfile = AudioProfile{
		SampleRate: 44100,
		Channels:   2,
		Codec:      "libmp3lame",
	}
)

// Transcoder wraps the ffmpeg binary.
type Transcoder struct {
	bin     string
	timeout time.Duration
}

func newTranscoder(cfg *Config) *Transcoder {
	return &Transcoder{bin: cfg.FfmpegPath, timeout: cfg.TranscodeTimeout}
}

func transcodeArgs(inputPath, outPath string, p AudioProfile) []string {
	args := []string{"-y", "-loglevel", "error", "-nostdin"}
	if p.TrimStart > 0 {
		args = append(args, "-ss", formatSeconds(p.TrimStart))
	}
	args = append(args, "-i", inputPath, "-vn")
	if p.TrimLen > 0 {
		args = append(args, "-t", formatSeconds(p.TrimLen))
	}
	args = append(args,
		"-acodec", p.Codec,
		"-ar", strconv.Itoa(p.SampleRate),
		"-ac", strconv.Itoa(p.Channels),
	)
	if p.Bitrate != "" {
		args = append(args, "-b:a", p.Bitrate)
	}
	return append(args, "-f", "mp3", outPath)
}

// Transcode normalizes inputPath into outPath per the profile. Transcoding
// failures are near-always deterministic for a given input, so there is no
// retry; the engine's message is surfaced verbatim in the error detail.
func (t *Transcoder) Transcode(ctx context.Context, inputPath, outPath string, p AudioProfile) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.bin, transcodeArgs(inputPath, outPath, p)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &PipelineError{Kind: ErrTranscodeFailed, Detail: strings.TrimSpace(stderr.String()), Err: err}
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
