package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg := loadConfig()
	if cfg.AudDAPIToken == "" {
		log.Println("⚠️  AUDD_API_KEY not set; recognition calls will be rejected upstream")
	}

	rdb := initRedis(cfg)
	cache := newResultCache(cfg.CacheTTL, rdb)
	pipe := newPipeline(cfg, newDownloader(cfg), newTranscoder(cfg), newRecognitionClient(cfg), cache)
	srv := newServer(cfg, pipe)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/recognize-music", srv.rateLimited(srv.handleRecognizeMusic))
	mux.HandleFunc("/api/extract-audio", srv.rateLimited(srv.handleExtractAudio))
	mux.HandleFunc("/api/audio-url", srv.rateLimited(srv.handleAudioURL))
	mux.HandleFunc("/api/download-audio", srv.rateLimited(srv.handleDownloadAudio))
	mux.HandleFunc("/api/health", srv.handleHealth)
	mux.HandleFunc("/api/stats", srv.handleStats)

	httpSrv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		log.Println("🛑 Graceful shutdown initiated...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
		if rdb != nil {
			rdb.Close()
		}
	}()

	fmt.Printf("🚀 Server running on %s (rate limit: %.0f req/s, burst %d)\n", cfg.Addr, cfg.RequestsPerSecond, cfg.BurstSize)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("✅ Graceful shutdown completed")
}
