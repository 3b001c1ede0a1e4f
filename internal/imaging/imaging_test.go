package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func createTestJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestProcessJPEG(t *testing.T) {
	result, err := Process(bytes.NewReader(createTestJPEG(100, 100)))
	if err != nil {
		t.Fatalf("Process JPEG: %v", err)
	}
	if result.MIME != "image/png" {
		t.Errorf("expected image/png (always outputs PNG), got %s", result.MIME)
	}
	if len(result.Data) == 0 {
		t.Error("expected non-empty data")
	}
}

func TestProcessDownscale(t *testing.T) {
	result, err := Process(bytes.NewReader(createTestPNG(2048, 1024)))
	if err != nil {
		t.Fatalf("Process large image: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != MaxDimension || bounds.Dy() != MaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, bounds.Dx(), bounds.Dy())
	}
}

func TestProcessSmallImageNotUpscaled(t *testing.T) {
	result, err := Process(bytes.NewReader(createTestJPEG(50, 50)))
	if err != nil {
		t.Fatalf("Process small image: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 50 {
		t.Errorf("small image should not be resized: got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestProcessInvalidFormat(t *testing.T) {
	if _, err := Process(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected error for invalid format")
	}
	if _, err := Process(bytes.NewReader([]byte("GIF89a..."))); err == nil {
		t.Error("expected error for GIF")
	}
}

func TestLoadLogo(t *testing.T) {
	path := writeFile(t, "logo.png", createTestPNG(200, 100))

	logo, err := LoadLogo(path, 60)
	if err != nil {
		t.Fatalf("LoadLogo: %v", err)
	}
	if logo.Bounds().Dx() != 60 || logo.Bounds().Dy() != 60 {
		t.Errorf("expected 60x60 logo, got %dx%d", logo.Bounds().Dx(), logo.Bounds().Dy())
	}
}

func TestLoadLogoMissing(t *testing.T) {
	_, err := LoadLogo(filepath.Join(t.TempDir(), "nope.png"), 80)

	var assetErr *AssetError
	if !errors.As(err, &assetErr) {
		t.Fatalf("expected *AssetError, got %v", err)
	}
	if assetErr.Kind != AssetMissing {
		t.Errorf("expected AssetMissing, got %s", assetErr.Kind)
	}
}

func TestLoadLogoCorrupt(t *testing.T) {
	path := writeFile(t, "logo.png", []byte("\x89PNG this is not really a png"))

	_, err := LoadLogo(path, 80)

	var assetErr *AssetError
	if !errors.As(err, &assetErr) {
		t.Fatalf("expected *AssetError, got %v", err)
	}
	if assetErr.Kind != AssetDecodeFailure {
		t.Errorf("expected AssetDecodeFailure, got %s", assetErr.Kind)
	}
	if !IsAssetError(err) {
		t.Error("IsAssetError should report true")
	}
}

func TestSaveLogo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "static", "logo.png")

	if err := SaveLogo(path, bytes.NewReader(createTestJPEG(40, 40))); err != nil {
		t.Fatalf("SaveLogo: %v", err)
	}

	logo, err := LoadLogo(path, 80)
	if err != nil {
		t.Fatalf("LoadLogo after save: %v", err)
	}
	if logo.Bounds().Dx() != 80 {
		t.Errorf("expected 80px logo, got %d", logo.Bounds().Dx())
	}

	if err := SaveLogo(path, bytes.NewReader([]byte("junk"))); err == nil {
		t.Error("expected error for invalid upload")
	}
	if _, err := LoadLogo(path, 80); err != nil {
		t.Errorf("failed upload must keep the previous logo: %v", err)
	}
}
