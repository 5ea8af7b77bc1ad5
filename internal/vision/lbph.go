package vision

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

// LBPH is a Classifier backed by the local binary patterns histograms
// face recognizer. Labels are subject ids; Predict distances grow with
// dissimilarity, zero meaning a perfect match.
type LBPH struct {
	rec *contrib.LBPHFaceRecognizer
}

func NewLBPH() *LBPH {
	return &LBPH{rec: contrib.NewLBPHFaceRecognizer()}
}

func (l *LBPH) Train(images []*image.Gray, labels []int) error {
	if len(images) == 0 {
		return fmt.Errorf("no training images")
	}
	if len(images) != len(labels) {
		return fmt.Errorf("got %d images but %d labels", len(images), len(labels))
	}

	mats := make([]gocv.Mat, 0, len(images))
	defer func() {
		for _, m := range mats {
			_ = m.Close()
		}
	}()

	for i, img := range images {
		mat, err := gocv.ImageGrayToMatGray(img)
		if err != nil {
			return fmt.Errorf("convert training image %d: %w", i, err)
		}
		mats = append(mats, mat)
	}

	labelMat := gocv.NewMatWithSize(len(labels), 1, gocv.MatTypeCV32SC1)
	defer labelMat.Close()
	for i, label := range labels {
		labelMat.SetIntAt(i, 0, int32(label))
	}

	l.rec.Train(mats, labelMat)
	return nil
}

func (l *LBPH) Predict(face *image.Gray) (int, float64, error) {
	mat, err := gocv.ImageGrayToMatGray(face)
	if err != nil {
		return 0, 0, fmt.Errorf("convert face crop: %w", err)
	}
	defer mat.Close()

	resp := l.rec.PredictExtendedResponse(mat)
	return int(resp.Label), float64(resp.Confidence), nil
}

func (l *LBPH) Save(path string) error {
	l.rec.SaveFile(path)
	return nil
}

func (l *LBPH) Load(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("model file %q: %w", path, err)
	}

	l.rec.LoadFile(path)
	return nil
}
