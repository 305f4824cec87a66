package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"gocv.io/x/gocv"
)

// FrameBuffer holds the latest output frame as JPEG for the preview stream.
type FrameBuffer struct {
	mu     sync.RWMutex
	jpeg   []byte
	seq    uint64
	update chan struct{}
}

// NewFrameBuffer creates an empty FrameBuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{update: make(chan struct{})}
}

// PublishFrame encodes frame as JPEG and makes it the latest frame.
func (b *FrameBuffer) PublishFrame(frame gocv.Mat) error {
	if frame.Empty() {
		return errors.New("empty frame")
	}

	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	b.SetJPEG(append([]byte(nil), buf.GetBytes()...))
	return nil
}

// SetJPEG makes data the latest frame and wakes waiting streams.
func (b *FrameBuffer) SetJPEG(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.jpeg = data
	b.seq++
	close(b.update)
	b.update = make(chan struct{})
}

// Latest returns the latest frame and its sequence number. The sequence
// is 0 until a frame has been published.
func (b *FrameBuffer) Latest() ([]byte, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.jpeg, b.seq
}

// next returns a channel closed on the next published frame.
func (b *FrameBuffer) next() <-chan struct{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.update
}

// StreamHandler serves the output frames as MJPEG.
type StreamHandler struct {
	frames *FrameBuffer
}

// NewStreamHandler creates a new StreamHandler reading from frames.
func NewStreamHandler(frames *FrameBuffer) *StreamHandler {
	return &StreamHandler{frames: frames}
}

// ServeHTTP streams every new frame to the client until it disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var sent uint64
	for {
		next := h.frames.next()

		data, seq := h.frames.Latest()
		if seq != sent && len(data) > 0 {
			if err := writePart(w, data); err != nil {
				return
			}
			sent = seq
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-next:
		}
	}
}

func writePart(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\r\n")
	return err
}
