package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// DefaultStreamInterval paces the preview at about 15 FPS.
const DefaultStreamInterval = 66 * time.Millisecond

// StreamHandler serves MJPEG frames from the camera.
type StreamHandler struct {
	frames FrameSource
	logger zerolog.Logger

	// Interval is the pause between frames.
	Interval time.Duration
}

// NewStreamHandler creates a new StreamHandler reading from frames.
func NewStreamHandler(frames FrameSource, logger zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		frames:   frames,
		logger:   logger.With().Str("component", "stream").Logger(),
		Interval: DefaultStreamInterval,
	}
}

// ServeHTTP streams MJPEG frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		if err := h.writeFrame(w); err != nil {
			h.logger.Debug().Err(err).Msg("preview frame skipped")
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *StreamHandler) writeFrame(w http.ResponseWriter) error {
	frame, err := h.frames.ReadFrame()
	if err != nil {
		return err
	}
	defer frame.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return err
	}
	defer buf.Close()

	fmt.Fprintf(w, "--frame\r\n")
	fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
	fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
	w.Write(buf.GetBytes())
	fmt.Fprintf(w, "\r\n")

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
