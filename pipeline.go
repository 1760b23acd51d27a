package main

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
)

// pipeline composes the resolver, downloader, transcoder, cache and
// recognition client. One instance is built in main and shared by all
// requests; the only cross-request mutable state it touches is the cache.
type pipeline struct {
	cfg        *Config
	downloader *Downloader
	transcoder *Transcoder
	recognizer *RecognitionClient
	cache      *resultCache
}

func newPipeline(cfg *Config, d *Downloader, t *Transcoder, r *RecognitionClient, cache *resultCache) *pipeline {
	return &pipeline{cfg: cfg, downloader: d, transcoder: t, recognizer: r, cache: cache}
}

// validateMediaURL rejects anything that is not an http(s) URL before a
// process is spawned for it. file:// and friends would otherwise reach
// yt-dlp.
func validateMediaURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return pipelineErrorf(ErrInvalidInput, "not a valid http(s) URL")
	}
	return nil
}

// platformFor decides which platform a raw URL belongs to: the resolver's
// verdict wins, then an explicit client hint, then generic.
func (p *pipeline) platformFor(rawURL, hint string) (Platform, error) {
	hinted, err := parsePlatform(hint)
	if err != nil {
		return "", err
	}
	if ref := resolveMediaURL(rawURL); ref != nil {
		return ref.Platform, nil
	}
	if hinted != "" {
		return hinted, nil
	}
	return PlatformGeneric, nil
}

// recognizeFile runs the recognition chain for media already on disk:
// cache lookup on the raw bytes, then transcode to the recognition profile,
// then the upstream call, then cache store. The bool reports a cache hit.
func (p *pipeline) recognizeFile(ctx context.Context, tmp *tempSet, inputPath string) (*RecognitionResult, bool, error) {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, false, &PipelineError{Kind: ErrInternal, Detail: "reading media file", Err: err}
	}

	key := cacheKey(raw)
	if res := p.cache.Get(ctx, key); res != nil {
		return res, true, nil
	}

	processed := tmp.newPath("processed", ".mp3")
	if err := p.transcoder.Transcode(ctx, inputPath, processed, recognitionProfile); err != nil {
		return nil, false, err
	}
	audio, err := os.ReadFile(processed)
	if err != nil {
		return nil, false, &PipelineError{Kind: ErrInternal, Detail: "reading processed audio", Err: err}
	}

	res, err := p.recognizer.Recognize(ctx, audio)
	if err != nil {
		return nil, false, err
	}
	p.cache.Put(ctx, key, res)
	return res, false, nil
}

// recognizeURL downloads the media's audio first, then recognizes it.
func (p *pipeline) recognizeURL(ctx context.Context, tmp *tempSet, rawURL, platformHint string) (*RecognitionResult, bool, error) {
	if err := validateMediaURL(rawURL); err != nil {
		return nil, false, err
	}
	platform, err := p.platformFor(rawURL, platformHint)
	if err != nil {
		return nil, false, err
	}
	downloaded := tmp.newPath("download", ".mp3")
	if err := p.downloader.DownloadAudio(ctx, rawURL, platform, downloaded); err != nil {
		return nil, false, err
	}
	return p.recognizeFile(ctx, tmp, downloaded)
}

// extractAudio normalizes an uploaded media file to the extraction profile
// (stereo, 44100 Hz) and returns the output path, named after the upload.
func (p *pipeline) extractAudio(ctx context.Context, tmp *tempSet, media []byte, fileName string) (string, error) {
	ext := filepath.Ext(fileName)
	if ext == "" {
		ext = ".bin"
	}
	inputPath, err := tmp.writeFile("input", ext, media)
	if err != nil {
		return "", err
	}
	outPath := tmp.newPath("output", ".mp3")
	if err := p.transcoder.Transcode(ctx, inputPath, outPath, extractionProfile); err != nil {
		return "", err
	}
	return outPath, nil
}

// streamURL resolves a media URL to its direct audio stream URL without
// downloading.
func (p *pipeline) streamURL(ctx context.Context, rawURL, platformHint string) (string, error) {
	if err := validateMediaURL(rawURL); err != nil {
		return "", err
	}
	platform, err := p.platformFor(rawURL, platformHint)
	if err != nil {
		return "", err
	}
	return p.downloader.StreamURL(ctx, rawURL, platform)
}

// downloadAudio fetches the media's audio track to a temp file and returns
// its path.
func (p *pipeline) downloadAudio(ctx context.Context, tmp *tempSet, rawURL, platformHint string) (string, error) {
	if err := validateMediaURL(rawURL); err != nil {
		return "", err
	}
	platform, err := p.platformFor(rawURL, platformHint)
	if err != nil {
		return "", err
	}
	outPath := tmp.newPath("audio", ".mp3")
	if err := p.downloader.DownloadAudio(ctx, rawURL, platform, outPath); err != nil {
		return "", err
	}
	return outPath, nil
}
