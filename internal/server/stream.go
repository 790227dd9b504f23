package server

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
)

// previewInterval paces the MJPEG preview at about 10 FPS.
const previewInterval = 100 * time.Millisecond

// FrameProvider hands out copies of the most recently sampled frame.
// *app.App implements it.
type FrameProvider interface {
	LatestFrame() (*capture.Frame, bool)
}

// StreamHandler serves MJPEG frames from the detector's latest sample. It
// never reads the camera itself, so the preview does not take frames from
// the detection loop.
type StreamHandler struct {
	frames FrameProvider
	log    *zap.Logger
}

// NewStreamHandler creates a new StreamHandler over frames.
func NewStreamHandler(frames FrameProvider) *StreamHandler {
	return &StreamHandler{frames: frames, log: zap.L().Named("stream")}
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

	ticker := time.NewTicker(previewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		data, err := h.encode()
		if err != nil {
			h.log.Debug("preview frame skipped", zap.Error(err))
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
		if _, err := w.Write(data); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func (h *StreamHandler) encode() ([]byte, error) {
	frame, ok := h.frames.LatestFrame()
	if !ok {
		return nil, capture.ErrSourceNotReady
	}

	mat, err := gocv.ImageToMatRGB(frame.Image())
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
