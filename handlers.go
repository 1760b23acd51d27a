package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

type server struct {
	cfg     *Config
	pipe    *pipeline
	limiter *rate.Limiter
	started time.Time

	// Counters for /api/stats
	recognitions int64
	cacheHits    int64
	noMatches    int64
	failures     int64
	extractions  int64
	downloads    int64
}

func newServer(cfg *Config, pipe *pipeline) *server {
	return &server{
		cfg:     cfg,
		pipe:    pipe,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		started: time.Now(),
	}
}

// requestContext applies the end-to-end deadline: download, transcode and
// recognition together cannot outlive it.
func (s *server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
}

func (s *server) handleRecognizeMusic(w http.ResponseWriter, r *http.Request) {
	enableCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	// A caller that already holds a result skips the pipeline entirely.
	if info := r.Header.Get("X-Music-Info"); info != "" {
		var res RecognitionResult
		if err := json.Unmarshal([]byte(info), &res); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid X-Music-Info header"})
			return
		}
		writeJSON(w, http.StatusOK, &res)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	tmp := newTempSet(s.cfg.TempDir)
	defer tmp.cleanup()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var (
		res *RecognitionResult
		hit bool
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		// An uploaded file takes precedence over any URL in the form.
		file, hdr, ferr := r.FormFile("file")
		if ferr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No audio file or URL provided"})
			return
		}
		defer file.Close()

		media, rerr := io.ReadAll(file)
		if rerr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to read uploaded file"})
			return
		}
		ext := filepath.Ext(hdr.Filename)
		if ext == "" {
			ext = ".bin"
		}
		inputPath, werr := tmp.writeFile("upload", ext, media)
		if werr != nil {
			s.failWith(w, werr, "Failed to recognize music")
			return
		}
		res, hit, err = s.pipe.recognizeFile(ctx, tmp, inputPath)
	} else {
		var req recognizeRequest
		if derr := json.NewDecoder(r.Body).Decode(&req); derr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
			return
		}
		if req.URL == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No audio file or URL provided"})
			return
		}
		res, hit, err = s.pipe.recognizeURL(ctx, tmp, req.URL, req.Platform)
	}

	if errors.Is(err, errNoMatch) {
		atomic.AddInt64(&s.noMatches, 1)
		writeJSON(w, http.StatusOK, map[string]string{"error": "No music found"})
		return
	}
	if err != nil {
		s.failWith(w, err, "Failed to recognize music")
		return
	}
	atomic.AddInt64(&s.recognitions, 1)
	if hit {
		atomic.AddInt64(&s.cacheHits, 1)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleExtractAudio(w http.ResponseWriter, r *http.Request) {
	enableCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	tmp := newTempSet(s.cfg.TempDir)
	defer tmp.cleanup()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var (
		media    []byte
		fileName string
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, hdr, ferr := r.FormFile("file")
		if ferr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No video file provided"})
			return
		}
		defer file.Close()
		body, rerr := io.ReadAll(file)
		if rerr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to read uploaded file"})
			return
		}
		media, fileName = body, hdr.Filename
	} else {
		body, rerr := io.ReadAll(r.Body)
		if rerr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to read request body"})
			return
		}
		media, fileName = body, r.Header.Get("X-File-Name")
	}
	if len(media) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No video file provided"})
		return
	}
	if fileName == "" {
		fileName = "unknown_file"
	}

	outPath, err := s.pipe.extractAudio(ctx, tmp, media, fileName)
	if err != nil {
		s.failWith(w, err, "Failed to extract audio")
		return
	}

	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+".mp3"))
	if err := serveFile(w, outPath); err != nil {
		// Headers are out; nothing left to do but log.
		fmt.Printf("❌ streaming extracted audio: %v\n", err)
		return
	}
	atomic.AddInt64(&s.extractions, 1)
}

func (s *server) handleAudioURL(w http.ResponseWriter, r *http.Request) {
	enableCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	q := r.URL.Query()
	mediaURL := q.Get("originalUrl")
	if mediaURL == "" {
		mediaURL = q.Get("url")
	}
	if mediaURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "URL is required"})
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	audioURL, err := s.pipe.streamURL(ctx, mediaURL, q.Get("platform"))
	if err != nil {
		s.failWith(w, err, "Failed to get audio URL")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"audioUrl": audioURL})
}

func (s *server) handleDownloadAudio(w http.ResponseWriter, r *http.Request) {
	enableCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	mediaURL := r.URL.Query().Get("url")
	if mediaURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "URL is required"})
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	tmp := newTempSet(s.cfg.TempDir)
	defer tmp.cleanup()

	outPath, err := s.pipe.downloadAudio(ctx, tmp, mediaURL, r.URL.Query().Get("platform"))
	if err != nil {
		s.failWith(w, err, "Failed to download audio")
		return
	}

	stat, err := os.Stat(outPath)
	if err != nil {
		s.failWith(w, &PipelineError{Kind: ErrInternal, Detail: "downloaded file missing", Err: err}, "Failed to download audio")
		return
	}
	w.Header().Set("Content-Length", strconv.FormatInt(stat.Size(), 10))
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("audio_%d.mp3", time.Now().UnixMilli())))
	if err := serveFile(w, outPath); err != nil {
		fmt.Printf("❌ streaming downloaded audio: %v\n", err)
		return
	}
	atomic.AddInt64(&s.downloads, 1)
}

// failWith counts the failure and writes the canonical error body. For
// client-input errors the detail is the message itself; for pipeline
// failures the summary leads and the stage detail rides along.
func (s *server) failWith(w http.ResponseWriter, err error, summary string) {
	atomic.AddInt64(&s.failures, 1)

	kind := errorKind(err)
	detail := err.Error()
	var pe *PipelineError
	if errors.As(err, &pe) && pe.Detail != "" {
		detail = pe.Detail
	}

	status := httpStatusFor(kind)
	if status == http.StatusBadRequest {
		writeJSON(w, status, map[string]string{"error": detail})
		return
	}
	writeJSON(w, status, map[string]string{"error": summary, "details": detail})
}

func serveFile(w http.ResponseWriter, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
