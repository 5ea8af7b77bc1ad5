// Package fingerprint computes compact raw-byte fingerprints of face crops.
// A fingerprint is an 8x8 mean-intensity vector used for look-alike queries
// plus a 64-bit difference hash used for near-duplicate detection.
package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Dim is the fingerprint vector dimension (8x8 intensity grid).
const Dim = 64

// Result holds the computed fingerprint of one face crop.
type Result struct {
	Vector []float32 // Dim values, L2-normalized
	DHash  uint64
}

// Compute decodes an encoded image and computes its fingerprint.
func Compute(imageData []byte) (*Result, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return FromImage(img), nil
}

// FromImage computes the fingerprint of an already-decoded image.
func FromImage(img image.Image) *Result {
	return &Result{
		Vector: computeVector(img),
		DHash:  computeDHash(img),
	}
}

// HammingDistance computes the Hamming distance between two 64-bit hashes.
func HammingDistance(hash1, hash2 uint64) int {
	xor := hash1 ^ hash2
	distance := 0
	for xor != 0 {
		distance++
		xor &= xor - 1 // Clear lowest set bit
	}
	return distance
}

// Similar returns true if two hashes are within the given threshold.
// A threshold of 10 is typically used for near-duplicate detection.
func Similar(hash1, hash2 uint64, threshold int) bool {
	return HammingDistance(hash1, hash2) <= threshold
}

// computeVector downsamples the image to an 8x8 intensity grid and
// L2-normalizes it, so cosine distance compares lighting-independent shape.
func computeVector(img image.Image) []float32 {
	resized := resizeImage(img, 8, 8)
	gray := toGrayscale(resized)

	vec := make([]float32, 0, Dim)
	var norm float64
	for y := range 8 {
		for x := range 8 {
			v := gray[x][y]
			vec = append(vec, float32(v))
			norm += v * v
		}
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

// computeDHash computes a 64-bit difference hash.
func computeDHash(img image.Image) uint64 {
	// 9 columns give 8 horizontal differences per row.
	resized := resizeImage(img, 9, 8)
	gray := toGrayscale(resized)

	var hash uint64
	bit := 63
	for y := range 8 {
		for x := range 8 {
			if gray[x][y] > gray[x+1][y] {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

// resizeImage scales an image to the specified dimensions.
func resizeImage(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// toGrayscale converts an image to a 2D array of grayscale values (0-255).
func toGrayscale(img *image.RGBA) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, width)
	for x := range width {
		gray[x] = make([]float64, height)
		for y := range height {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray[x][y] = luma
		}
	}
	return gray
}
