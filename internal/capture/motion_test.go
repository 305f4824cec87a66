package capture

import (
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func solid(v float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), 120, 160, gocv.MatTypeCV8UC3)
}

func TestNewMotionDetector(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"default threshold", 1.0, 1.0},
		{"high threshold", 5.0, 5.0},
		{"zero falls back", 0, 1.0},
		{"negative falls back", -2, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			defer md.Close()

			if got := md.Threshold(); got != tt.want {
				t.Errorf("Threshold() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestMotionDetector_NoMotion(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	frame1 := solid(0)
	defer frame1.Close()
	frame2 := solid(0)
	defer frame2.Close()

	detected, changePercent := md.Detect(&frame1)
	if detected || changePercent != 0 {
		t.Errorf("first frame: detected=%v changePercent=%f, want false, 0", detected, changePercent)
	}

	detected, changePercent = md.Detect(&frame2)
	if detected {
		t.Errorf("identical frames should not detect motion, changePercent = %f", changePercent)
	}
}

func TestMotionDetector_WithMotion(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	black := solid(0)
	defer black.Close()
	white := solid(255)
	defer white.Close()

	md.Detect(&black)
	detected, changePercent := md.Detect(&white)
	if !detected {
		t.Errorf("black to white should detect motion, changePercent = %f", changePercent)
	}
	if changePercent < 99 {
		t.Errorf("changePercent = %f, want ~100", changePercent)
	}
}

func TestMotionDetector_SizeChangeResetsBaseline(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	small := gocv.NewMatWithSize(60, 80, gocv.MatTypeCV8UC3)
	defer small.Close()
	white := solid(255)
	defer white.Close()

	md.Detect(&small)
	if detected, _ := md.Detect(&white); detected {
		t.Error("frame of a new size should only set the baseline")
	}
}

func TestMotionDetector_Reset(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	black := solid(0)
	defer black.Close()
	white := solid(255)
	defer white.Close()

	md.Detect(&black)
	md.Reset()

	if detected, _ := md.Detect(&white); detected {
		t.Error("first frame after Reset should not detect motion")
	}
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	md.SetThreshold(5.0)
	if got := md.Threshold(); got != 5.0 {
		t.Errorf("threshold = %f, want 5.0 after SetThreshold", got)
	}

	md.SetThreshold(-1.0)
	if got := md.Threshold(); got != 5.0 {
		t.Errorf("negative threshold should be ignored, got %f", got)
	}
}

func TestMotionDetector_Close_Multiple(t *testing.T) {
	md := NewMotionDetector(1.0)
	md.Close()
	md.Close()
}

func TestPacer(t *testing.T) {
	black := solid(0)
	defer black.Close()
	white := solid(255)
	defer white.Close()

	cam := NewMockCamera(nil, false)
	md := NewMotionDetector(1.0)
	defer md.Close()

	clock := time.Unix(0, 0)
	p := NewPacer(cam, md)
	p.now = func() time.Time { return clock }

	if p.Active() || cam.FPS() != IdleFPS || p.Interval() != time.Second/IdleFPS {
		t.Fatalf("pacer should start idle at %d fps", IdleFPS)
	}

	p.Observe(&black)
	if changed := p.Observe(&white); !changed || !p.Active() {
		t.Fatal("motion should switch to active")
	}
	if cam.FPS() != ActiveFPS || p.Interval() != time.Second/ActiveFPS {
		t.Errorf("active fps = %d, want %d", cam.FPS(), ActiveFPS)
	}

	clock = clock.Add(IdleTimeout / 2)
	if changed := p.Observe(&white); changed || !p.Active() {
		t.Error("still scene shorter than the timeout should stay active")
	}

	clock = clock.Add(IdleTimeout)
	if changed := p.Observe(&white); !changed || p.Active() {
		t.Error("still scene past the timeout should switch to idle")
	}
	if cam.FPS() != IdleFPS {
		t.Errorf("idle fps = %d, want %d", cam.FPS(), IdleFPS)
	}
}
