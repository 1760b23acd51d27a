package main

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable, read from the environment once at process
// start. Nothing re-reads the environment after loadConfig returns.
type Config struct {
	Addr string

	// External binaries
	YtdlpPath  string
	FfmpegPath string

	// Recognition upstream (AudD)
	AudDAPIURL   string
	AudDAPIToken string

	// Per-stage timeouts
	DownloadTimeout  time.Duration
	TranscodeTimeout time.Duration
	RecognizeTimeout time.Duration
	// Overall per-request deadline; download + transcode + recognition must
	// all fit inside it.
	RequestTimeout time.Duration

	// Size bounds
	MaxUploadBytes int64
	MaxRemoteSize  string // passed through to yt-dlp --max-filesize

	CacheTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RequestsPerSecond float64
	BurstSize         int

	TempDir string
}

func loadConfig() *Config {
	c := &Config{
		Addr:              getEnv("VIZMUZE_ADDR", ":3000"),
		YtdlpPath:         getEnv("VIZMUZE_YTDLP_PATH", "yt-dlp"),
		FfmpegPath:        getEnv("VIZMUZE_FFMPEG_PATH", "ffmpeg"),
		AudDAPIURL:        getEnv("VIZMUZE_AUDD_URL", "https://api.audd.io/"),
		AudDAPIToken:      os.Getenv("AUDD_API_KEY"),
		DownloadTimeout:   getEnvDuration("VIZMUZE_DOWNLOAD_TIMEOUT", 30*time.Second),
		TranscodeTimeout:  getEnvDuration("VIZMUZE_TRANSCODE_TIMEOUT", 2*time.Minute),
		RecognizeTimeout:  getEnvDuration("VIZMUZE_RECOGNIZE_TIMEOUT", 10*time.Second),
		RequestTimeout:    getEnvDuration("VIZMUZE_REQUEST_TIMEOUT", 5*time.Minute),
		MaxUploadBytes:    getEnvInt64("VIZMUZE_MAX_UPLOAD_BYTES", 100<<20),
		MaxRemoteSize:     getEnv("VIZMUZE_MAX_REMOTE_SIZE", "10M"),
		CacheTTL:          getEnvDuration("VIZMUZE_CACHE_TTL", 24*time.Hour),
		RedisAddr:         getEnv("VIZMUZE_REDIS_ADDR", ""),
		RedisPassword:     os.Getenv("VIZMUZE_REDIS_PASSWORD"),
		RedisDB:           getEnvInt("VIZMUZE_REDIS_DB", 0),
		RequestsPerSecond: getEnvFloat("VIZMUZE_RATE_LIMIT", 100),
		BurstSize:         getEnvInt("VIZMUZE_RATE_BURST", 200),
		TempDir:           getEnv("VIZMUZE_TEMP_DIR", os.TempDir()),
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = 30 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Minute
	}
	if c.BurstSize <= 0 {
		c.BurstSize = 1
	}
	return c
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
