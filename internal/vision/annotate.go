package vision

import (
	"image"
	"image/color"
)

// annotation colors
var (
	ColorMatch   = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	ColorUnknown = color.RGBA{R: 220, G: 40, B: 40, A: 255}
)

// DrawRegion paints a two pixel border around a face region, clipped to the
// image bounds.
func DrawRegion(img *image.RGBA, region image.Rectangle, c color.RGBA) {
	r := region.Intersect(img.Bounds())
	if r.Empty() {
		return
	}

	const thickness = 2
	for t := 0; t < thickness; t++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			setClipped(img, x, r.Min.Y+t, c)
			setClipped(img, x, r.Max.Y-1-t, c)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			setClipped(img, r.Min.X+t, y, c)
			setClipped(img, r.Max.X-1-t, y, c)
		}
	}
}

func setClipped(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}
