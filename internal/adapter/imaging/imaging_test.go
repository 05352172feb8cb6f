package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestIsSupported(t *testing.T) {
	supported := []string{"a.jpg", "a.JPG", "a.jpeg", "dir/b.png", "c.webp"}
	for _, p := range supported {
		if !IsSupported(p) {
			t.Errorf("expected %s supported", p)
		}
	}
	unsupported := []string{"a.gif", "a.bmp", "a.txt", "a", "a.jpg.bak"}
	for _, p := range unsupported {
		if IsSupported(p) {
			t.Errorf("expected %s unsupported", p)
		}
	}
}

func TestDecode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "10008.png")

	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	img, err := Decode(path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}

	if _, err := Decode(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.jpg")
	if err := os.WriteFile(bad, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(bad); err == nil {
		t.Error("expected error for undecodable file")
	}
}

func TestFit(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 40))
	out := Fit(src, 32)
	if out.Bounds().Dx() != 32 || out.Bounds().Dy() != 32 {
		t.Errorf("expected 32x32 fill-fit, got %v", out.Bounds())
	}

	// Already at target size: returned unchanged.
	exact := image.NewRGBA(image.Rect(0, 0, 32, 32))
	if Fit(exact, 32) != image.Image(exact) {
		t.Error("expected image at target size returned as-is")
	}
}

func TestFlipHorizontal(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	left := color.RGBA{R: 255, A: 255}
	right := color.RGBA{B: 255, A: 255}
	src.Set(0, 0, left)
	src.Set(2, 0, right)

	out := FlipHorizontal(src)
	if out.Bounds().Dx() != 3 || out.Bounds().Dy() != 2 {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
	if got := out.At(2, 0); got != left {
		t.Errorf("expected left pixel mirrored to the right edge, got %v", got)
	}
	if got := out.At(0, 0); got != right {
		t.Errorf("expected right pixel mirrored to the left edge, got %v", got)
	}

	// Mirroring twice restores the original.
	back := FlipHorizontal(out)
	if got := back.At(0, 0); got != left {
		t.Errorf("double flip must restore, got %v", got)
	}
}

func TestCenterSquare(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 60))
	center := color.RGBA{G: 255, A: 255}
	src.Set(50, 30, center)

	out := CenterSquare(src, 0.5)
	if out.Bounds().Dx() != 30 || out.Bounds().Dy() != 30 {
		t.Fatalf("expected 30x30 crop of the shorter dimension, got %v", out.Bounds())
	}
	if got := out.At(15, 15); got != center {
		t.Errorf("expected crop centered on the frame, got %v", got)
	}

	// Out-of-range fractions fall back to the full short-side square.
	full := CenterSquare(src, 0)
	if full.Bounds().Dx() != 60 {
		t.Errorf("expected full short-side square, got %v", full.Bounds())
	}
	over := CenterSquare(src, 1.5)
	if over.Bounds().Dx() != 60 {
		t.Errorf("expected full short-side square, got %v", over.Bounds())
	}
}

func TestEncodeJPEGDropsAlpha(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 128})
		}
	}

	data, err := EncodeJPEG(src, 90)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected JPEG bytes")
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("round-trip decode: %v", err)
	}
	if decoded.Bounds() != src.Bounds() {
		t.Errorf("unexpected bounds %v", decoded.Bounds())
	}
	_, _, _, a := decoded.At(4, 4).RGBA()
	if a != 0xffff {
		t.Errorf("JPEG output must be opaque, alpha %v", a)
	}
}
