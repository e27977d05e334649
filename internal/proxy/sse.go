package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// SSEWriter writes server-sent events and flushes after each one.
type SSEWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewSSEWriter writes the event stream headers. It fails when the
// underlying writer cannot flush.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := rc.Flush(); err != nil {
		if errors.Is(err, http.ErrNotSupported) {
			return nil, fmt.Errorf("streaming unsupported: %w", err)
		}
		return nil, err
	}

	return &SSEWriter{w: w, rc: rc}, nil
}

// WriteData encodes v as JSON into a data event.
func (s *SSEWriter) WriteData(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}
	return s.write("data: " + string(payload) + "\n\n")
}

// WriteEvent sets the event type of the next data event.
func (s *SSEWriter) WriteEvent(name string) error {
	return s.write("event: " + name + "\n")
}

// WriteRaw writes s verbatim as a data event.
func (s *SSEWriter) WriteRaw(data string) error {
	return s.write("data: " + data + "\n\n")
}

func (s *SSEWriter) write(frame string) error {
	if _, err := s.w.Write([]byte(frame)); err != nil {
		return err
	}
	return s.rc.Flush()
}
