package vision

import (
	"image"
	"testing"
)

func TestDrawRegion(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	DrawRegion(img, image.Rect(10, 10, 50, 50), ColorMatch)

	if got := img.RGBAAt(30, 10); got != ColorMatch {
		t.Errorf("expected border pixel at top edge, got %v", got)
	}
	if got := img.RGBAAt(30, 11); got != ColorMatch {
		t.Errorf("expected second border row, got %v", got)
	}
	if got := img.RGBAAt(30, 30); got == ColorMatch {
		t.Error("interior pixel should not be painted")
	}
}

func TestDrawRegionClipped(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))

	// region partially outside the image must not panic
	DrawRegion(img, image.Rect(-10, -10, 10, 10), ColorUnknown)
	if got := img.RGBAAt(5, 9); got != ColorUnknown {
		t.Errorf("expected clipped border pixel, got %v", got)
	}

	// fully outside region is a no-op
	DrawRegion(img, image.Rect(100, 100, 200, 200), ColorUnknown)
}
