package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// tempSet owns every on-disk artifact created while serving one request.
// Paths are registered as they are generated and removed together by
// cleanup(), whichever way the request ends. A tempSet is never shared
// across requests, so it needs no locking.
type tempSet struct {
	dir       string
	requestID string
	paths     []string
}

func newTempSet(dir string) *tempSet {
	return &tempSet{dir: dir, requestID: uuid.NewString()}
}

// newPath registers and returns a fresh path under the temp dir. The
// monotonic timestamp plus random suffix keeps concurrent requests from ever
// colliding on a filename.
func (t *tempSet) newPath(prefix, ext string) string {
	name := fmt.Sprintf("%s_%d_%s%s", prefix, time.Now().UnixNano(), uuid.NewString()[:8], ext)
	p := filepath.Join(t.dir, name)
	t.paths = append(t.paths, p)
	return p
}

// writeFile persists a byte buffer to a fresh registered temp file and
// returns its path. Used to hand in-memory uploads to the transcoder, which
// operates on paths.
func (t *tempSet) writeFile(prefix, ext string, data []byte) (string, error) {
	p := t.newPath(prefix, ext)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", &PipelineError{Kind: ErrInternal, Detail: "writing temp file", Err: err}
	}
	return p, nil
}

// cleanup removes every registered path. Best-effort: failures are logged
// and never returned, so cleanup can never mask the request's real outcome.
func (t *tempSet) cleanup() {
	for _, p := range t.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("⚠️  temp cleanup %s: %v", t.requestID, err)
		}
	}
	t.paths = nil
}
