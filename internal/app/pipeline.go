package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/backdrop/internal/capture"
	"github.com/ayusman/backdrop/internal/composite"
	"github.com/ayusman/backdrop/internal/detector"
	"github.com/ayusman/backdrop/internal/gesture"
	"github.com/ayusman/backdrop/internal/render"
	"github.com/ayusman/backdrop/internal/selection"
	"github.com/ayusman/backdrop/internal/store"
)

// Run opens the camera and processes frames until ctx is cancelled, the
// display asks to quit, the camera closes, or MaxReadFailures consecutive
// reads fail. The display, if any, is created, shown and closed on the
// calling goroutine.
//
// Frame loop:
//  1. Read a frame; unreadable frames are skipped
//  2. Feed motion to the pacer, which picks idle or active capture rate
//  3. ProcessFrame: gestures, selection, compositing, overlay
//  4. Publish and show the output frame
func (a *App) Run(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := a.camera.Close(); err != nil {
			log.Printf("Error closing camera: %v", err)
		}
	}()

	if a.newDisplay != nil {
		// Window toolkits only accept calls from the thread that created
		// the window.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		a.display = a.newDisplay()
		defer func() {
			if err := a.display.Close(); err != nil {
				log.Printf("Error closing window: %v", err)
			}
			a.display = nil
		}()
	}

	log.Println("Frame loop started")
	defer log.Println("Frame loop stopped")

	a.publishState()

	failures := 0
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		started := time.Now()

		frame, err := a.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrCameraNotOpen) {
				return err
			}
			failures++
			if failures >= a.config.MaxReadFailures {
				return fmt.Errorf("%d consecutive frame reads failed: %w", failures, err)
			}
			timer.Reset(a.pacer.Interval())
			continue
		}
		failures = 0

		a.pacer.Observe(frame)
		out := a.ProcessFrame(frame)
		frame.Close()

		quit := a.emit(out)
		out.Close()
		if quit {
			log.Println("Quit requested from window")
			return nil
		}

		timer.Reset(max(0, a.pacer.Interval()-time.Since(started)))
	}
}

// ProcessFrame runs one frame through the pipeline and returns the output
// frame, which the caller owns. The input frame is not modified.
//
// Pipeline logic:
//  1. Detect hands and take the primary one
//  2. Swipe detection, then select detection, each applied to the selection
//  3. Changed selections are logged, journaled and published
//  4. With an active background, segment the person and composite
//  5. Draw the selection strip and the tracked hand
func (a *App) ProcessFrame(frame *gocv.Mat) gocv.Mat {
	var hand *detector.HandLandmarks

	if a.IsEnabled() {
		hand = a.detectHand(frame)
		sample := hand.Sample()
		width, height := frame.Cols(), frame.Rows()

		a.apply(a.recognizer.DetectSwipe(sample, width, height))
		a.apply(a.recognizer.DetectSelect(sample, width, height))
	} else {
		a.recognizer.Reset()
	}

	snap := a.machine.Snapshot()

	out := a.composite(frame, snap)
	a.overlay.Draw(&out, snap)
	render.DrawLandmarks(&out, hand)

	return out
}

// detectHand returns the primary hand in frame. Detector errors count as
// no hand.
func (a *App) detectHand(frame *gocv.Mat) *detector.HandLandmarks {
	hands, err := a.detector.Detect(frame)
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		return nil
	}
	return detector.PrimaryHand(hands)
}

// apply feeds one event to the selection machine and reports a change.
func (a *App) apply(e gesture.Event) {
	if e == gesture.None {
		return
	}

	t := a.machine.Apply(e)
	if !t.Changed() {
		return
	}

	log.Println(t.Message)

	a.mu.Lock()
	a.latest = t.After
	a.mu.Unlock()

	a.record(t)
	a.publishState()
}

func (a *App) record(t selection.Transition) {
	if a.events == nil {
		return
	}

	err := a.events.Create(&store.Event{
		Gesture: t.Event.String(),
		Focus:   t.After.Focus,
		Active:  t.After.Active,
		Message: t.Message,
	})
	if err != nil {
		log.Printf("Failed to journal %s: %v", t.Event, err)
	}
}

// composite returns frame over the active background, or a copy of frame
// when the live feed is selected or no mask is available.
func (a *App) composite(frame *gocv.Mat, snap selection.Snapshot) gocv.Mat {
	if snap.Live {
		return frame.Clone()
	}

	bg, err := a.catalog.At(snap.Active)
	if err != nil {
		log.Printf("Active background unavailable: %v", err)
		return frame.Clone()
	}

	mask, err := a.segmenter.Segment(frame)
	if err != nil {
		log.Printf("Error segmenting frame: %v", err)
		return frame.Clone()
	}
	if mask == nil {
		return frame.Clone()
	}
	defer mask.Close()

	out, err := composite.Blend(*frame, *mask, bg.Image)
	if err != nil {
		log.Printf("Error compositing frame: %v", err)
		return frame.Clone()
	}
	return out
}

// emit publishes and shows out. It reports whether the display asked to
// quit.
func (a *App) emit(out gocv.Mat) bool {
	if a.frames != nil {
		if err := a.frames.PublishFrame(out); err != nil {
			log.Printf("Error publishing frame: %v", err)
		}
	}
	if a.display != nil {
		return a.display.Show(out)
	}
	return false
}
