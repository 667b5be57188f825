package utils

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// SetupTextStreamHeaders prepares an incremental plain-text response.
func SetupTextStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

// WriteTextChunk writes chunk and flushes it to the client.
func WriteTextChunk(w http.ResponseWriter, flusher http.Flusher, chunk string) error {
	if _, err := w.Write([]byte(chunk)); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// ParseID parses a positive numeric identifier.
func ParseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
