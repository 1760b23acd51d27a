package main

import (
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth probes the downloader binary; a server that cannot run
// yt-dlp --version cannot serve any pipeline request.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	enableCORS(w)

	ctx, cancel := s.requestContext(r)
	defer cancel()

	version, err := s.pipe.downloader.Version(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, HealthStatus{Status: "unhealthy", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthStatus{Status: "healthy", Ytdlp: version})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	enableCORS(w)

	stats := map[string]any{
		"recognitions":   atomic.LoadInt64(&s.recognitions),
		"cache_hits":     atomic.LoadInt64(&s.cacheHits),
		"no_matches":     atomic.LoadInt64(&s.noMatches),
		"failures":       atomic.LoadInt64(&s.failures),
		"extractions":    atomic.LoadInt64(&s.extractions),
		"downloads":      atomic.LoadInt64(&s.downloads),
		"cached_results": s.pipe.cache.len(),
		"rate_limit":     s.cfg.RequestsPerSecond,
		"uptime_seconds": time.Since(s.started).Seconds(),
	}
	writeJSON(w, http.StatusOK, stats)
}
