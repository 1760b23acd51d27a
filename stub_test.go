package main

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"
)

// writeScript drops an executable /bin/sh script into a fresh temp dir and
// returns its path. Used to stand in for yt-dlp and ffmpeg in tests.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

// ytdlpStub behaves like the three yt-dlp invocations the adapter makes:
// --version prints a version, -g prints a stream URL, and a download run
// writes a fake file at the -o path.
const ytdlpStub = `mode=download
out=""
prev=""
for a in "$@"; do
  case "$a" in
    --version) mode=version ;;
    -g) mode=stream ;;
  esac
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
case "$mode" in
  version) echo "2025.06.09" ;;
  stream) echo "https://cdn.example/audio.m4a" ;;
  download) printf fake-media > "$out" ;;
esac`

// ffmpegStub writes fake output to its final argument, the output path.
const ffmpegStub = `out=""
for a in "$@"; do out="$a"; done
printf fake-audio > "$out"`

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &b, mw.FormDataContentType()
}
