package utils

import (
	"net/http"

	"github.com/pkg/errors"
)

// SetupTextStreamHeaders prepares w for a chunked plain-text stream.
func SetupTextStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// WriteChunk writes one chunk and flushes it to the client.
func WriteChunk(w http.ResponseWriter, flusher http.Flusher, chunk string) error {
	if _, err := w.Write([]byte(chunk)); err != nil {
		return errors.Wrap(err, "write chunk")
	}
	flusher.Flush()
	return nil
}
