// Package capture collects labeled face samples for one subject from a live
// frame source until a configured quota is met.
package capture

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
	"github.com/kozaktomas/roll-call/internal/samples"
	"github.com/kozaktomas/roll-call/internal/vision"
)

// Trainer rebuilds the classifier artifact after a capture run.
type Trainer interface {
	Run(ctx context.Context) error
}

// Result describes one capture run. Training is triggered on every run,
// including failed ones, so its outcome is carried here instead of in the
// run error.
type Result struct {
	SubjectID   int64
	Captured    int
	Quota       int
	TrainingErr error
}

// Progress is called after every persisted sample.
type Progress func(captured, quota int)

type Pipeline struct {
	source   vision.FrameSource
	detector vision.Detector
	dataset  *samples.Store
	faces    database.FaceDataStore
	trainer  Trainer
	quota    int
	progress Progress
}

func New(
	source vision.FrameSource,
	detector vision.Detector,
	dataset *samples.Store,
	faces database.FaceDataStore,
	trainer Trainer,
	quota int,
) *Pipeline {
	return &Pipeline{
		source:   source,
		detector: detector,
		dataset:  dataset,
		faces:    faces,
		trainer:  trainer,
		quota:    quota,
	}
}

// OnProgress registers a callback invoked after each persisted sample.
func (p *Pipeline) OnProgress(fn Progress) {
	p.progress = fn
}

// Run reads frames until the quota of face crops for the subject has been
// persisted. Already written samples survive a mid-run failure, a later run
// continues the sequence. Training runs on the way out no matter how the
// capture ended so the artifact reflects the latest enrollment attempt.
func (p *Pipeline) Run(ctx context.Context, subjectID int64) (res Result, err error) {
	res = Result{SubjectID: subjectID, Quota: p.quota}

	defer func() {
		res.TrainingErr = p.trainer.Run(context.WithoutCancel(ctx))
	}()

	seq, err := p.dataset.NextSequence(subjectID)
	if err != nil {
		return res, fmt.Errorf("could not determine sample sequence: %w", err)
	}

	for res.Captured < p.quota {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		frame, err := p.source.Read()
		if err != nil {
			return res, fmt.Errorf("capture stopped after %d of %d samples: %w", res.Captured, p.quota, err)
		}

		for _, region := range p.detector.Detect(frame.Gray) {
			if res.Captured >= p.quota {
				break
			}

			face := frame.Crop(region)
			path, err := p.dataset.Save(subjectID, seq, face)
			if err != nil {
				log.Printf("skipping sample %d for subject %d: %v", seq, subjectID, err)
				continue
			}

			fp := fingerprint.FromImage(face)
			if _, err := p.faces.SaveFaceSample(ctx, subjectID, fp.Vector, path); err != nil {
				// a crop without its face_data row must not linger on disk
				if rmErr := os.Remove(path); rmErr != nil {
					log.Printf("could not remove orphaned sample %q: %v", path, rmErr)
				}
				log.Printf("skipping sample %d for subject %d: store write failed: %v", seq, subjectID, err)
				continue
			}

			seq++
			res.Captured++
			if p.progress != nil {
				p.progress(res.Captured, p.quota)
			}
		}
	}

	return res, nil
}
