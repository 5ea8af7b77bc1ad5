// Package recognition runs the continuous detect-and-classify loop over a
// live frame source. The loop only produces events; deciding whether a
// recognition counts as presence is the recorder's job.
package recognition

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/kozaktomas/roll-call/internal/vision"
)

var (
	ErrNoClassSelected = errors.New("no class selected")
	ErrAlreadyRunning  = errors.New("recognition loop already running")
)

type EventKind int

const (
	// FrameReady carries an annotated frame, emitted once per processed
	// frame regardless of recognition outcome.
	FrameReady EventKind = iota
	// Recognized carries one classification attempt the classifier had
	// an opinion about.
	Recognized
	// Failed reports the frame source giving up. The loop stops itself
	// after emitting it.
	Failed
)

type Event struct {
	Kind       EventKind
	ClassID    int64
	SubjectID  int64       // Recognized only
	Confidence float64     // Recognized only
	Frame      *image.RGBA // FrameReady only
	Faces      int         // FrameReady only
	Err        error       // Failed only
}

// OpenSource opens the frame source for one run. Called at every Start so
// the camera is held only while the loop runs.
type OpenSource func() (vision.FrameSource, error)

// Loop is the Stopped/Running state machine. One worker at a time; Stop is
// cooperative and observed once per frame.
type Loop struct {
	open         OpenSource
	detector     vision.Detector
	classifier   vision.Classifier
	artifactPath string
	cutoff       float64

	mu      sync.Mutex
	running bool
	classID int64
	stop    chan struct{}
	done    chan struct{}

	events chan Event
}

func New(open OpenSource, detector vision.Detector, classifier vision.Classifier, artifactPath string, cutoff float64) *Loop {
	return &Loop{
		open:         open,
		detector:     detector,
		classifier:   classifier,
		artifactPath: artifactPath,
		cutoff:       cutoff,
		events:       make(chan Event, 16),
	}
}

// Events returns the loop's event stream. The channel stays open across
// restarts.
func (l *Loop) Events() <-chan Event {
	return l.events
}

// Running reports the current state and, while running, the target class.
func (l *Loop) Running() (bool, int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return false, 0
	}
	return true, l.classID
}

// Start loads the classifier artifact, opens the frame source and launches
// the worker. The artifact is read once here and never hot-reloaded; rerun
// Start after retraining to pick up a new model.
func (l *Loop) Start(classID int64) error {
	if classID <= 0 {
		return ErrNoClassSelected
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return ErrAlreadyRunning
	}

	if err := l.classifier.Load(l.artifactPath); err != nil {
		return fmt.Errorf("could not load classifier model: %w", err)
	}

	source, err := l.open()
	if err != nil {
		return err
	}

	l.running = true
	l.classID = classID
	l.stop = make(chan struct{})
	l.done = make(chan struct{})

	go l.run(source, classID, l.stop, l.done)
	return nil
}

// Stop requests the worker to exit and waits until it has. Safe to call in
// any state and from any goroutine.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
	done := l.done
	l.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (l *Loop) run(source vision.FrameSource, classID int64, stop, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := source.Close(); err != nil {
			log.Printf("could not close frame source: %v", err)
		}
	}()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}

		frame, err := source.Read()
		if err != nil {
			l.emit(Event{Kind: Failed, ClassID: classID, Err: err}, stop)
			return
		}

		regions := l.detector.Detect(frame.Gray)
		for _, region := range regions {
			label, distance, err := l.classifier.Predict(frame.Crop(region))
			if err != nil {
				log.Printf("prediction failed: %v", err)
				continue
			}

			color := vision.ColorUnknown
			if distance < l.cutoff {
				color = vision.ColorMatch
				l.emit(Event{
					Kind:       Recognized,
					ClassID:    classID,
					SubjectID:  int64(label),
					Confidence: Confidence(distance),
				}, stop)
			}
			vision.DrawRegion(frame.Image, region, color)
		}

		l.emit(Event{
			Kind:    FrameReady,
			ClassID: classID,
			Frame:   frame.Image,
			Faces:   len(regions),
		}, stop)
	}
}

// emit delivers in frame order. A blocked consumer throttles the loop; a
// stop request aborts the pending send so Stop never deadlocks.
func (l *Loop) emit(ev Event, stop chan struct{}) {
	select {
	case l.events <- ev:
	case <-stop:
	}
}

// Confidence maps a classifier distance to a 0-100 score, 100 meaning a
// perfect match.
func Confidence(distance float64) float64 {
	c := 100 - distance
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
