package server

import (
	"bufio"
	"bytes"
	"context"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestFrameBuffer_PublishFrame(t *testing.T) {
	b := NewFrameBuffer()

	if data, seq := b.Latest(); data != nil || seq != 0 {
		t.Fatalf("new buffer should be empty, got %d bytes seq %d", len(data), seq)
	}

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 128, 255, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	if err := b.PublishFrame(frame); err != nil {
		t.Fatalf("PublishFrame() error = %v", err)
	}

	data, seq := b.Latest()
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("published frame is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("jpeg size = %v, want 64x48", img.Bounds().Size())
	}
}

func TestFrameBuffer_PublishEmpty(t *testing.T) {
	b := NewFrameBuffer()
	empty := gocv.NewMat()
	defer empty.Close()

	if err := b.PublishFrame(empty); err == nil {
		t.Error("PublishFrame() should reject an empty frame")
	}
	if _, seq := b.Latest(); seq != 0 {
		t.Error("rejected frame should not be published")
	}
}

func TestFrameBuffer_WakesWaiters(t *testing.T) {
	b := NewFrameBuffer()
	next := b.next()

	b.SetJPEG([]byte{1})

	select {
	case <-next:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by a new frame")
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(NewFrameBuffer())

	req := httptest.NewRequest(http.MethodPost, "/api/stream", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestStreamHandler_StreamsFrames(t *testing.T) {
	frames := NewFrameBuffer()
	frames.SetJPEG([]byte("first"))

	ts := httptest.NewServer(NewStreamHandler(frames))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)

	// Parts are read by Content-Length; a multipart.Reader would block
	// until the following boundary arrives.
	readPart := func() string {
		headers := map[string]string{}
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read header: %v", err)
			}
			line = strings.TrimRight(line, "\r\n")
			if line == "--frame" {
				continue
			}
			if line == "" {
				if len(headers) == 0 {
					continue
				}
				break
			}
			k, v, _ := strings.Cut(line, ": ")
			headers[k] = v
		}

		if ct := headers["Content-Type"]; ct != "image/jpeg" {
			t.Errorf("part Content-Type = %q, want image/jpeg", ct)
		}
		n, err := strconv.Atoi(headers["Content-Length"])
		if err != nil {
			t.Fatalf("bad Content-Length %q", headers["Content-Length"])
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(reader, body); err != nil {
			t.Fatalf("read part: %v", err)
		}
		return string(body)
	}

	if got := readPart(); got != "first" {
		t.Errorf("first part = %q, want first", got)
	}

	frames.SetJPEG([]byte("second"))
	if got := readPart(); got != "second" {
		t.Errorf("second part = %q, want second", got)
	}
}
