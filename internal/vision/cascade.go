package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/kozaktomas/roll-call/internal/config"
)

// CascadeDetector finds faces with a Haar cascade classifier.
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	cfg        config.DetectorConfig
}

// NewCascadeDetector loads the cascade description from cascadePath.
func NewCascadeDetector(cascadePath string, cfg config.DetectorConfig) (*CascadeDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		_ = classifier.Close()
		return nil, fmt.Errorf("could not load cascade file %q", cascadePath)
	}

	return &CascadeDetector{
		classifier: classifier,
		cfg:        cfg,
	}, nil
}

func (d *CascadeDetector) Detect(gray *image.Gray) []image.Rectangle {
	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil
	}
	defer mat.Close()

	return d.classifier.DetectMultiScaleWithParams(
		mat,
		d.cfg.ScaleFactor,
		d.cfg.MinNeighbors,
		0, // flags, unused by the modern cascade implementation
		image.Pt(d.cfg.MinSize, d.cfg.MinSize),
		image.Pt(0, 0),
	)
}

func (d *CascadeDetector) Close() error {
	return d.classifier.Close()
}
