// Package render turns composed QR images into downloadable PNG and PDF files.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/erazemk/qrstock/internal/layout"
)

const (
	labelFont     = "Helvetica"
	labelFontSize = 10
)

// Label is one QR code on a sheet with the text printed beneath it.
type Label struct {
	Text string
	PNG  []byte
}

// PNG encodes img as PNG.
func PNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI embeds PNG data in a data: URI for inline display.
func DataURI(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

// PDFFilename names a label sheet generated at t.
func PDFFilename(t time.Time) string {
	return "QR_Codes_" + t.Format("20060102_150405") + ".pdf"
}

// PNGFilename names the QR image download for an item code.
func PNGFilename(code string) string {
	return "qr_" + code + ".png"
}

// PDF writes labels as a grid of numColumns rows per column. Columns that do
// not fit across the page continue on a new page at the same rows.
func PDF(w io.Writer, labels []Label, numColumns int, g layout.Geometry) error {
	cells, err := layout.Grid(len(labels), numColumns)
	if err != nil {
		return err
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCreator("qrstock", true)
	pdf.SetTitle("QR Codes", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont(labelFont, "", labelFontSize)
	pdf.AddPage()

	perPage := g.ColumnsPerPage()
	page := 0
	opts := fpdf.ImageOptions{ImageType: "PNG"}

	for _, cell := range cells {
		if p := cell.Column / perPage; p != page {
			pdf.AddPage()
			page = p
		}

		label := labels[cell.Index]
		name := fmt.Sprintf("qr-%d", cell.Index)
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(label.PNG))

		p := place(g, cell, perPage, pdf.GetStringWidth(label.Text))
		pdf.ImageOptions(name, p.ImageX, p.ImageY, g.CellSize, g.CellSize, false, opts, 0, "")
		pdf.Text(p.TextX, p.TextY, label.Text)

		if err := pdf.Error(); err != nil {
			return fmt.Errorf("drawing label %d: %w", cell.ItemID, err)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing PDF: %w", err)
	}
	return nil
}

// placement is where a cell's image and label go, in points from the
// top-left of its page.
type placement struct {
	ImageX, ImageY float64
	TextX, TextY   float64
}

// place positions cell on its page. The label of width textWidth is
// centred under the image.
func place(g layout.Geometry, cell layout.Cell, perPage int, textWidth float64) placement {
	x, y := g.Origin(cell.Column%perPage, cell.Row)
	return placement{
		ImageX: x,
		ImageY: y,
		TextX:  x + (g.CellSize-textWidth)/2,
		TextY:  g.LabelBaseline(cell.Row),
	}
}
