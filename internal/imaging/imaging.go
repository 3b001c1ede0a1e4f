package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	disimg "github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// MaxDimension is the maximum width or height of a stored logo.
const MaxDimension = 512

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// AssetKind classifies why a logo asset could not be used.
type AssetKind int

const (
	AssetMissing AssetKind = iota + 1
	AssetDecodeFailure
)

func (k AssetKind) String() string {
	switch k {
	case AssetMissing:
		return "missing"
	case AssetDecodeFailure:
		return "decode failure"
	}
	return "unknown"
}

// AssetError reports an unusable logo file. Callers treat it as recoverable.
type AssetError struct {
	Kind AssetKind
	Path string
	Err  error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("logo %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// IsAssetError reports whether err is, or wraps, an *AssetError.
func IsAssetError(err error) bool {
	var assetErr *AssetError
	return errors.As(err, &assetErr)
}

// LoadLogo opens the image at path and scales it to size x size.
// Every failure is returned as an *AssetError.
func LoadLogo(path string, size int) (image.Image, error) {
	if path == "" {
		return nil, &AssetError{Kind: AssetMissing, Path: path, Err: fs.ErrNotExist}
	}

	src, err := disimg.Open(path, disimg.AutoOrientation(true))
	if err != nil {
		kind := AssetDecodeFailure
		if errors.Is(err, fs.ErrNotExist) {
			kind = AssetMissing
		}
		return nil, &AssetError{Kind: kind, Path: path, Err: err}
	}

	return resize(src, size, size), nil
}

// ProcessResult contains the processed image data.
type ProcessResult struct {
	Data []byte
	MIME string
}

// Process reads image data, validates the format by sniffing bytes,
// downscales if larger than MaxDimension and re-encodes as PNG so the
// result keeps any transparency the logo has.
func Process(r io.Reader) (*ProcessResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	// Sniff actual MIME type from bytes (not trusting client headers).
	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("unsupported image format: %s (only JPEG and PNG accepted)", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return &ProcessResult{
		Data: buf.Bytes(),
		MIME: "image/png",
	}, nil
}

// SaveLogo processes an uploaded logo and atomically replaces the file at path.
func SaveLogo(path string, r io.Reader) error {
	result, err := Process(r)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logo directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".logo-*.png")
	if err != nil {
		return fmt.Errorf("creating temp logo: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(result.Data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing logo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing logo: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing logo: %w", err)
	}
	return nil
}

// downscale resizes the image so neither dimension exceeds maxDim,
// preserving aspect ratio. Images already within bounds are returned as is.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	return resize(img, max(newW, 1), max(newH, 1))
}

// resize scales img to exactly w x h with Catmull-Rom interpolation.
func resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
