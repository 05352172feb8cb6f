package extractor

import (
	"context"
	"image"
	"image/color"
	"testing"

	"profilematch/internal/adapter/imaging"
	"profilematch/internal/domain"
)

// halfAndHalf is red on the left, blue on the right.
func halfAndHalf(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x < size/2 {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	return img
}

func TestMockExtractorDeterministic(t *testing.T) {
	e := NewMockExtractor(12, 8)
	img := halfAndHalf(8)

	a, err := e.Embed(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != 12 {
		t.Fatalf("expected dimension 12, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestMockExtractorFlipSensitive(t *testing.T) {
	e := NewMockExtractor(12, 8)
	img := halfAndHalf(8)

	orig, err := e.Embed(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}
	flipped, err := e.Embed(context.Background(), imaging.FlipHorizontal(img))
	if err != nil {
		t.Fatal(err)
	}

	if domain.CosineSimilarity(orig, flipped) > 0.999 {
		t.Error("flipped embedding must differ from the original")
	}
	// A flip permutes grid cells; a second flip restores the vector.
	back, err := e.Embed(context.Background(), imaging.FlipHorizontal(imaging.FlipHorizontal(img)))
	if err != nil {
		t.Fatal(err)
	}
	for i := range orig {
		if orig[i] != back[i] {
			t.Fatalf("double flip must restore the embedding at %d", i)
		}
	}
}

func TestMockExtractorDistinguishesContent(t *testing.T) {
	e := NewMockExtractor(12, 8)

	red := image.NewRGBA(image.Rect(0, 0, 8, 8))
	green := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			red.Set(x, y, color.RGBA{R: 255, A: 255})
			green.Set(x, y, color.RGBA{G: 255, A: 255})
		}
	}

	a, _ := e.Embed(context.Background(), red)
	b, _ := e.Embed(context.Background(), green)
	if domain.CosineSimilarity(a, b) > 0.5 {
		t.Error("distinct solid colors must embed apart")
	}
}
