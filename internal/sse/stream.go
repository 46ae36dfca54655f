package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Stream writes server-sent events to w until the request ends or events closes.
// snapshot is sent first as a "snapshot" event.
func Stream(w http.ResponseWriter, r *http.Request, snapshot interface{}, events <-chan Availability, heartbeat time.Duration) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "snapshot", snapshot); err != nil {
		return err
	}
	flusher.Flush()

	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case msg, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeEvent(w, "availability", msg); err != nil {
				return err
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	return err
}
