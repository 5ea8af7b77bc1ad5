package recognition

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/kozaktomas/roll-call/internal/vision"
)

type fakeSource struct {
	frames int // frames served before failing, < 0 means unlimited
	reads  int
	closed bool
}

func (s *fakeSource) Read() (*vision.Frame, error) {
	if s.frames >= 0 && s.reads >= s.frames {
		return nil, vision.ErrDeviceRead
	}
	s.reads++

	return &vision.Frame{
		Image: image.NewRGBA(image.Rect(0, 0, 320, 240)),
		Gray:  image.NewGray(image.Rect(0, 0, 320, 240)),
	}, nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type fakeDetector struct {
	regions []image.Rectangle
}

func (d *fakeDetector) Detect(*image.Gray) []image.Rectangle { return d.regions }
func (d *fakeDetector) Close() error                         { return nil }

type fakeClassifier struct {
	label    int
	distance float64
	loadErr  error
	loads    int
}

func (c *fakeClassifier) Train([]*image.Gray, []int) error { return nil }

func (c *fakeClassifier) Predict(*image.Gray) (int, float64, error) {
	return c.label, c.distance, nil
}

func (c *fakeClassifier) Save(string) error { return nil }

func (c *fakeClassifier) Load(string) error {
	c.loads++
	return c.loadErr
}

func oneFace() *fakeDetector {
	return &fakeDetector{regions: []image.Rectangle{image.Rect(10, 10, 110, 110)}}
}

func newTestLoop(source *fakeSource, detector *fakeDetector, classifier *fakeClassifier) *Loop {
	open := func() (vision.FrameSource, error) { return source, nil }
	return New(open, detector, classifier, "trainer.yml", 100)
}

func waitEvent(t *testing.T, loop *Loop) Event {
	t.Helper()

	select {
	case ev := <-loop.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestStartRequiresClass(t *testing.T) {
	loop := newTestLoop(&fakeSource{frames: -1}, oneFace(), &fakeClassifier{})

	if err := loop.Start(0); !errors.Is(err, ErrNoClassSelected) {
		t.Errorf("expected ErrNoClassSelected, got %v", err)
	}
	if running, _ := loop.Running(); running {
		t.Error("loop must stay stopped after a refused start")
	}
}

func TestRecognizedThenFrameReady(t *testing.T) {
	classifier := &fakeClassifier{label: 7, distance: 30}
	loop := newTestLoop(&fakeSource{frames: -1}, oneFace(), classifier)

	if err := loop.Start(1); err != nil {
		t.Fatalf("could not start loop: %v", err)
	}
	defer loop.Stop()

	ev := waitEvent(t, loop)
	if ev.Kind != Recognized {
		t.Fatalf("expected Recognized first, got kind %d", ev.Kind)
	}
	if ev.SubjectID != 7 || ev.ClassID != 1 {
		t.Errorf("unexpected recognition %+v", ev)
	}
	if ev.Confidence != 70 {
		t.Errorf("expected confidence 70 for distance 30, got %v", ev.Confidence)
	}

	ev = waitEvent(t, loop)
	if ev.Kind != FrameReady {
		t.Fatalf("expected FrameReady after Recognized, got kind %d", ev.Kind)
	}
	if ev.Frame == nil || ev.Faces != 1 {
		t.Errorf("frame event missing payload: %+v", ev)
	}
	if classifier.loads != 1 {
		t.Errorf("model must be loaded exactly once per start, got %d", classifier.loads)
	}
}

func TestNoOpinionEmitsOnlyFrames(t *testing.T) {
	loop := newTestLoop(&fakeSource{frames: -1}, oneFace(), &fakeClassifier{label: 7, distance: 120})

	if err := loop.Start(1); err != nil {
		t.Fatal(err)
	}
	defer loop.Stop()

	for i := 0; i < 3; i++ {
		if ev := waitEvent(t, loop); ev.Kind != FrameReady {
			t.Fatalf("expected only FrameReady events past the cutoff, got kind %d", ev.Kind)
		}
	}
}

func TestReadFailureStopsLoop(t *testing.T) {
	source := &fakeSource{frames: 2}
	loop := newTestLoop(source, &fakeDetector{}, &fakeClassifier{})

	if err := loop.Start(1); err != nil {
		t.Fatal(err)
	}

	var failed *Event
	for failed == nil {
		ev := waitEvent(t, loop)
		if ev.Kind == Failed {
			failed = &ev
		}
	}
	if !errors.Is(failed.Err, vision.ErrDeviceRead) {
		t.Errorf("expected device read error, got %v", failed.Err)
	}

	loop.Stop() // waits for the worker even though it stopped itself
	if running, _ := loop.Running(); running {
		t.Error("loop must be stopped after a read failure")
	}
	if !source.closed {
		t.Error("frame source must be closed when the worker exits")
	}
}

func TestStartWhileRunning(t *testing.T) {
	loop := newTestLoop(&fakeSource{frames: -1}, &fakeDetector{}, &fakeClassifier{})

	if err := loop.Start(1); err != nil {
		t.Fatal(err)
	}
	defer loop.Stop()

	if err := loop.Start(2); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}

	running, classID := loop.Running()
	if !running || classID != 1 {
		t.Errorf("expected loop running for class 1, got running=%v class=%d", running, classID)
	}
}

func TestStopAndRestart(t *testing.T) {
	source := &fakeSource{frames: -1}
	classifier := &fakeClassifier{}
	loop := newTestLoop(source, oneFace(), classifier)

	if err := loop.Start(1); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, loop)
	loop.Stop()

	if running, _ := loop.Running(); running {
		t.Fatal("loop must be stopped after Stop returns")
	}
	if !source.closed {
		t.Error("camera must be released on stop")
	}

	// a second Stop is a harmless no-op
	loop.Stop()

	source.closed = false
	if err := loop.Start(3); err != nil {
		t.Fatalf("could not restart loop: %v", err)
	}
	defer loop.Stop()

	if classifier.loads != 2 {
		t.Errorf("restart must reload the model, got %d loads", classifier.loads)
	}
	if _, classID := loop.Running(); classID != 3 {
		t.Errorf("expected class 3 after restart, got %d", classID)
	}
}

func TestStartLoadFailure(t *testing.T) {
	classifier := &fakeClassifier{loadErr: errors.New("model file missing")}
	loop := newTestLoop(&fakeSource{frames: -1}, &fakeDetector{}, classifier)

	if err := loop.Start(1); err == nil {
		t.Fatal("expected start to fail when the model cannot be loaded")
	}
	if running, _ := loop.Running(); running {
		t.Error("loop must stay stopped after a failed start")
	}
}

func TestConfidenceMapping(t *testing.T) {
	tests := []struct {
		distance float64
		expected float64
	}{
		{0, 100},
		{30, 70},
		{100, 0},
		{150, 0},
		{-10, 100},
	}

	for _, tc := range tests {
		if got := Confidence(tc.distance); got != tc.expected {
			t.Errorf("Confidence(%v) = %v, expected %v", tc.distance, got, tc.expected)
		}
	}
}
