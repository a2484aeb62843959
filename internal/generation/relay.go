package generation

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sse"
)

// ErrStreamingUnsupported means the response writer cannot flush, so SSE
// cannot be served on it.
var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// Relay forwards model deltas to an HTTP client as server-sent events. Each
// delta becomes a data frame `{"content": ...}`, a successful stream ends
// with `{"done": true}` and a mid-stream failure emits `{"error": ...}`.
type Relay struct {
	w       http.ResponseWriter
	flusher http.Flusher
	chunks  int
}

// NewRelay prepares w for SSE and writes the stream headers.
func NewRelay(w http.ResponseWriter) (*Relay, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Relay{w: w, flusher: flusher}, nil
}

// Delta forwards one content chunk.
func (r *Relay) Delta(content string) error {
	if err := r.send(map[string]any{"content": content}); err != nil {
		return err
	}
	r.chunks++
	return nil
}

// Done emits the terminal frame.
func (r *Relay) Done() error {
	return r.send(map[string]any{"done": true})
}

// Error emits an error frame. The HTTP status is already written, so this is
// the only way to tell the client the stream failed.
func (r *Relay) Error(message string) error {
	return r.send(map[string]any{"error": message})
}

// Chunks reports how many content frames were forwarded.
func (r *Relay) Chunks() int {
	return r.chunks
}

func (r *Relay) send(payload any) error {
	if err := sse.Encode(r.w, sse.Event{Data: payload}); err != nil {
		return err
	}
	r.flusher.Flush()
	return nil
}
