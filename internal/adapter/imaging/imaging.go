// Package imaging prepares catalog photos and camera frames for the feature
// extractor: decoding, scaling to the extractor geometry, horizontal
// mirroring and the live-view central crop.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"

	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Supported extensions for catalog images. The file base name (sans
// extension) is the catalog code.
var supportedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// IsSupported reports whether the path has a supported image extension.
func IsSupported(path string) bool {
	return supportedExts[strings.ToLower(filepath.Ext(path))]
}

// Decode opens and decodes an image file.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Fit scales an image to an exact size x size raster, ignoring aspect ratio.
// Matches the catalog pipeline's fill-fit so query and corpus embeddings see
// the same geometry.
func Fit(img image.Image, size int) image.Image {
	b := img.Bounds()
	if b.Dx() == size && b.Dy() == size {
		return img
	}
	return resize.Resize(uint(size), uint(size), img, resize.Bilinear)
}

// FlipHorizontal returns a left-right mirrored copy. Profile bars can be
// photographed from either face, which mirrors the canonical catalog photo.
func FlipHorizontal(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(b.Dx()-1-x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

// CenterSquare crops the central square covering fraction of the shorter
// dimension. The live comparison viewfinder uses fraction 0.5.
func CenterSquare(img image.Image, fraction float64) image.Image {
	if fraction <= 0 || fraction > 1 {
		fraction = 1
	}
	b := img.Bounds()
	minDim := b.Dx()
	if b.Dy() < minDim {
		minDim = b.Dy()
	}
	size := int(float64(minDim) * fraction)
	if size < 1 {
		size = 1
	}
	x0 := b.Min.X + (b.Dx()-size)/2
	y0 := b.Min.Y + (b.Dy()-size)/2

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(out, out.Bounds(), img, image.Pt(x0, y0), draw.Src)
	return out
}

// EncodeJPEG encodes an image as JPEG, dropping any alpha channel.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
