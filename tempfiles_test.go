package main

import (
	"os"
	"strings"
	"testing"
)

func TestTempSet_cleanupRemovesEverything(t *testing.T) {
	dir := t.TempDir()
	tmp := newTempSet(dir)

	if _, err := tmp.writeFile("input", ".mp4", []byte("video")); err != nil {
		t.Fatal(err)
	}
	if _, err := tmp.writeFile("processed", ".mp3", []byte("audio")); err != nil {
		t.Fatal(err)
	}
	// Registered but never created; cleanup must not trip over it.
	tmp.newPath("download", ".mp3")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 files before cleanup, got %d", len(entries))
	}

	tmp.cleanup()

	entries, err = os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir after cleanup, got %d entries", len(entries))
	}
}

func TestTempSet_uniquePaths(t *testing.T) {
	tmp := newTempSet(t.TempDir())
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		p := tmp.newPath("download", ".mp3")
		if seen[p] {
			t.Fatalf("duplicate temp path %q", p)
		}
		seen[p] = true
		if !strings.HasSuffix(p, ".mp3") {
			t.Errorf("path %q missing extension", p)
		}
	}
}

func TestTempSet_cleanupIdempotent(t *testing.T) {
	tmp := newTempSet(t.TempDir())
	if _, err := tmp.writeFile("input", ".bin", []byte("x")); err != nil {
		t.Fatal(err)
	}
	tmp.cleanup()
	tmp.cleanup() // second run is a no-op, not a failure
}
