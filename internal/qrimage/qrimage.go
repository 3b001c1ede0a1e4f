// Package qrimage builds QR code images with an optional centred logo.
package qrimage

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"strings"

	disimg "github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"

	"github.com/erazemk/qrstock/internal/imaging"
)

// Defaults for item codes.
const (
	DefaultBoxSize = 10
	DefaultBorder  = 4
)

// Logo sizes in pixels.
const (
	GeneratorLogoSize = 80
	ItemLogoSize      = 60
	MaxLogoSize       = 100
)

// maxLogoFraction bounds the logo side relative to the code side, keeping
// the covered area near a tenth of the code.
const maxLogoFraction = 3

// Encode renders payload as a black-on-white QR code at the highest error
// correction level. Each module is boxSize pixels and the quiet zone is
// border modules wide.
func Encode(payload string, boxSize, border int) (*image.RGBA, error) {
	if boxSize < 1 || border < 0 {
		return nil, fmt.Errorf("invalid QR geometry: box %d, border %d", boxSize, border)
	}

	q, err := qrcode.New(payload, qrcode.Highest)
	if err != nil {
		return nil, fmt.Errorf("encoding QR code: %w", err)
	}
	q.DisableBorder = true
	bitmap := q.Bitmap()

	side := (len(bitmap) + 2*border) * boxSize
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	black := color.RGBA{A: 0xff}
	for y, row := range bitmap {
		for x, dark := range row {
			if !dark {
				continue
			}
			x0 := (x + border) * boxSize
			y0 := (y + border) * boxSize
			for py := y0; py < y0+boxSize; py++ {
				for px := x0; px < x0+boxSize; px++ {
					img.SetRGBA(px, py, black)
				}
			}
		}
	}

	return img, nil
}

// Overlay draws logo centred on code, covering the modules beneath it.
// The result has the same bounds as code.
func Overlay(code, logo image.Image) image.Image {
	return disimg.OverlayCenter(code, logo, 1.0)
}

// Composer encodes payloads and decorates them with the configured logo.
// When BoxSize is zero both BoxSize and Border take their defaults, so a
// zero quiet zone needs an explicit BoxSize.
type Composer struct {
	BoxSize  int
	Border   int
	LogoPath string
	LogoSize int
	Logger   *slog.Logger
}

// Compose encodes payload and overlays the logo when it can be loaded.
// An unusable logo is logged and the plain code is returned; any other
// failure is returned to the caller.
func (c Composer) Compose(payload string) (image.Image, error) {
	box, border := c.BoxSize, c.Border
	if box == 0 {
		box, border = DefaultBoxSize, DefaultBorder
	}

	code, err := Encode(payload, box, border)
	if err != nil {
		return nil, err
	}
	if c.LogoPath == "" {
		return code, nil
	}

	size := c.LogoSize
	if size == 0 {
		size = ItemLogoSize
	}
	size = min(size, MaxLogoSize, code.Bounds().Dx()/maxLogoFraction)
	if size < 1 {
		return code, nil
	}
	logo, err := imaging.LoadLogo(c.LogoPath, size)
	if imaging.IsAssetError(err) {
		c.logger().Warn("skipping logo", "path", c.LogoPath, "error", err)
		return code, nil
	}
	if err != nil {
		return nil, err
	}

	return Overlay(code, logo), nil
}

func (c Composer) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// TextPayload is the self-describing payload used by the standalone generator.
func TextPayload(id int64, code string) string {
	return fmt.Sprintf("Item ID: %d\nItem Code: %s", id, code)
}

// URLPayload links a code to its item detail page.
func URLPayload(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/item/" + code
}
