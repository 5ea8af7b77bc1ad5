// Package training rebuilds the face classifier artifact from the whole
// sample dataset.
package training

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/kozaktomas/roll-call/internal/samples"
	"github.com/kozaktomas/roll-call/internal/vision"
)

// ErrNoTrainingData means the dataset holds no usable samples. The existing
// artifact is left untouched.
var ErrNoTrainingData = errors.New("no face samples to train on")

// Progress is called after every loaded sample.
type Progress func(done, total int)

type Pipeline struct {
	dataset      *samples.Store
	classifier   vision.Classifier
	artifactPath string
	progress     Progress
}

func New(dataset *samples.Store, classifier vision.Classifier, artifactPath string) *Pipeline {
	return &Pipeline{
		dataset:      dataset,
		classifier:   classifier,
		artifactPath: artifactPath,
	}
}

// OnProgress registers a callback invoked while samples are loaded.
func (p *Pipeline) OnProgress(fn Progress) {
	p.progress = fn
}

// Run scans the dataset, trains the classifier on every readable sample and
// rewrites the artifact. Corrupt samples are skipped with a warning. The
// artifact is replaced through a temp file so a failed run never leaves a
// half-written model behind.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	files, err := p.dataset.Scan()
	if err != nil {
		return fmt.Errorf("could not scan dataset: %w", err)
	}

	var (
		images []*image.Gray
		labels []int
	)
	for i, sample := range files {
		img, err := p.dataset.Load(sample.Path)
		if err != nil {
			log.Printf("skipping unreadable sample %q: %v", sample.Path, err)
			continue
		}

		images = append(images, img)
		labels = append(labels, int(sample.UserID))
		if p.progress != nil {
			p.progress(i+1, len(files))
		}
	}

	if len(images) == 0 {
		return ErrNoTrainingData
	}

	if err := p.classifier.Train(images, labels); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	return p.writeArtifact()
}

func (p *Pipeline) writeArtifact() error {
	if err := os.MkdirAll(filepath.Dir(p.artifactPath), 0o755); err != nil {
		return fmt.Errorf("could not create trainer directory: %w", err)
	}

	tmp := p.artifactPath + ".tmp"
	if err := p.classifier.Save(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("could not save model: %w", err)
	}

	if err := os.Rename(tmp, p.artifactPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("could not replace model artifact: %w", err)
	}

	return nil
}
