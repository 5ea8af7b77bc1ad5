// Package vision wraps the OpenCV-backed camera, face detector and face
// classifier behind small interfaces so the pipelines can be tested with
// fakes and the gocv dependency stays contained in one package.
package vision

import (
	"errors"
	"image"
)

// Camera/device errors. Both end the affected pipeline run but never the
// process; state already persisted stays intact.
var (
	ErrDeviceUnavailable = errors.New("camera device unavailable")
	ErrDeviceRead        = errors.New("camera stopped yielding frames")
)

// Frame is one captured camera frame in both display and detector form.
type Frame struct {
	Image *image.RGBA // color frame for display and annotation
	Gray  *image.Gray // grayscale frame for detection and classification
}

// Crop returns the grayscale face crop for a detected region. The crop is a
// fresh origin-anchored image with tightly packed rows; gocv converts images
// to Mats from the raw Pix slice and a SubImage view keeps the parent stride,
// which would hand the classifier skewed pixel rows.
func (f *Frame) Crop(region image.Rectangle) *image.Gray {
	region = region.Intersect(f.Gray.Bounds())
	crop := image.NewGray(image.Rect(0, 0, region.Dx(), region.Dy()))
	for y := 0; y < region.Dy(); y++ {
		src := f.Gray.PixOffset(region.Min.X, region.Min.Y+y)
		copy(crop.Pix[y*crop.Stride:y*crop.Stride+region.Dx()], f.Gray.Pix[src:src+region.Dx()])
	}
	return crop
}

// FrameSource yields frames from a camera or a recording.
type FrameSource interface {
	// Read blocks until the next frame is available. Returns an error
	// wrapping ErrDeviceRead when the device stops yielding frames.
	Read() (*Frame, error)
	Close() error
}

// Detector finds face regions in a grayscale frame.
type Detector interface {
	Detect(gray *image.Gray) []image.Rectangle
	Close() error
}

// Classifier is the stateful face model: train on labeled crops, predict a
// (label, distance) pair for a crop, persist and restore its state.
type Classifier interface {
	Train(images []*image.Gray, labels []int) error
	// Predict returns the best-matching label and its distance. Lower
	// distance means higher similarity; the caller decides what to trust.
	Predict(face *image.Gray) (label int, distance float64, err error)
	Save(path string) error
	Load(path string) error
}
