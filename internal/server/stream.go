package server

import (
	"fmt"
	"net/http"
	"time"
)

// frameInterval paces the MJPEG stream at roughly 15 FPS, which is
// plenty for a dashboard preview and keeps slow clients from forcing
// the pipeline rate down.
const frameInterval = 66 * time.Millisecond

// StreamHandler serves the pipeline's latest processed frame as an
// MJPEG stream. It never reads the camera itself; the pipeline is the
// only frame consumer.
type StreamHandler struct {
	pipeline Pipeline
}

// NewStreamHandler creates a new StreamHandler reading from the given pipeline.
func NewStreamHandler(p Pipeline) *StreamHandler {
	return &StreamHandler{pipeline: p}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		frame, ok := h.pipeline.LatestJPEG()
		if !ok {
			// No frame yet, e.g. the camera is still warming up.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
		if _, err := w.Write(frame); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(frameInterval)
	}
}
