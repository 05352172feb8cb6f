package extractor

import (
	"context"
	"image"

	"profilematch/internal/domain"
)

// MockExtractor derives a deterministic embedding from image content by
// averaging RGB over a grid of cells. Sensitive to horizontal mirroring,
// which makes it usable for offline runs and tests without a model server.
type MockExtractor struct {
	dimension int
	inputSize int
}

func NewMockExtractor(dimension, inputSize int) *MockExtractor {
	return &MockExtractor{dimension: dimension, inputSize: inputSize}
}

func (e *MockExtractor) Embed(_ context.Context, img image.Image) (domain.Vector, error) {
	// 3 channels per grid cell; cells laid out row-major so a horizontal
	// flip permutes the vector.
	cells := e.dimension / 3
	if cells < 1 {
		cells = 1
	}
	grid := 1
	for (grid+1)*(grid+1) <= cells {
		grid++
	}

	b := img.Bounds()
	vec := make(domain.Vector, e.dimension)
	cw := b.Dx() / grid
	ch := b.Dy() / grid
	if cw < 1 {
		cw = 1
	}
	if ch < 1 {
		ch = 1
	}

	for gy := 0; gy < grid; gy++ {
		for gx := 0; gx < grid; gx++ {
			var r, g, bl, n uint64
			for y := b.Min.Y + gy*ch; y < b.Min.Y+(gy+1)*ch && y < b.Max.Y; y++ {
				for x := b.Min.X + gx*cw; x < b.Min.X+(gx+1)*cw && x < b.Max.X; x++ {
					pr, pg, pb, _ := img.At(x, y).RGBA()
					r += uint64(pr >> 8)
					g += uint64(pg >> 8)
					bl += uint64(pb >> 8)
					n++
				}
			}
			if n == 0 {
				continue
			}
			base := (gy*grid + gx) * 3
			if base+2 < len(vec) {
				vec[base] = float32(r) / float32(n) / 255
				vec[base+1] = float32(g) / float32(n) / 255
				vec[base+2] = float32(bl) / float32(n) / 255
			}
		}
	}

	return vec, nil
}

func (e *MockExtractor) Dimension() int { return e.dimension }

func (e *MockExtractor) InputSize() int { return e.inputSize }

func (e *MockExtractor) ModelName() string { return "mock" }
