package api

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/qrstock/internal/codegen"
	"github.com/erazemk/qrstock/internal/layout"
	"github.com/erazemk/qrstock/internal/qrimage"
	"github.com/erazemk/qrstock/internal/render"
)

// Limits for the standalone generator.
const (
	DefaultBatchSize = 32
	DefaultColumns   = 8
	MaxBatchSize     = 500
)

// GeneratorHandler serves the standalone code generator. Codes it produces
// are not stored.
type GeneratorHandler struct {
	Composer qrimage.Composer
	Now      func() time.Time
}

type generateQRRequest struct {
	ItemID     *int64 `json:"item_id"`
	CustomCode string `json:"custom_code"`
}

type generatedCode struct {
	ItemID   int64  `json:"item_id"`
	ItemCode string `json:"item_code"`
	QRImage  string `json:"qr_image"`
}

type batchRequest struct {
	NumItems   *int `json:"num_items"`
	NumColumns *int `json:"num_columns"`
}

// QR handles POST /api/generate/qr.
func (h *GeneratorHandler) QR(w http.ResponseWriter, r *http.Request) {
	var req generateQRRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	itemID := int64(1)
	if req.ItemID != nil {
		itemID = *req.ItemID
	}

	code := codegen.Normalize(req.CustomCode)
	if code != "" {
		if err := codegen.Validate(code); err != nil {
			jsonError(w, http.StatusBadRequest, "item code must be 1-20 letters or digits")
			return
		}
	} else {
		var err error
		code, err = codegen.Generate(r.Context(), noneTaken)
		if err != nil {
			slog.Error("failed to generate code", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to generate code")
			return
		}
	}

	generated, err := h.generate(itemID, code)
	if err != nil {
		slog.Error("failed to generate QR code", "code", code, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate QR code")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"success":   true,
		"item_id":   generated.ItemID,
		"item_code": generated.ItemCode,
		"qr_image":  generated.QRImage,
	})
}

// Batch handles POST /api/generate/batch.
func (h *GeneratorHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, problem := intOrDefault(req.NumItems, DefaultBatchSize, 1, MaxBatchSize, "num_items")
	if problem != "" {
		jsonError(w, http.StatusBadRequest, problem)
		return
	}

	codes, err := batchCodes(r.Context(), n)
	if err != nil {
		slog.Error("failed to generate codes", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate codes")
		return
	}

	out := make([]generatedCode, 0, n)
	for i, code := range codes {
		generated, err := h.generate(int64(i+1), code)
		if err != nil {
			slog.Error("failed to generate QR code", "code", code, "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to generate QR codes")
			return
		}
		out = append(out, generated)
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"success":  true,
		"qr_codes": out,
	})
}

// PDF handles POST /api/generate/pdf.
func (h *GeneratorHandler) PDF(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, problem := intOrDefault(req.NumItems, DefaultBatchSize, 1, MaxBatchSize, "num_items")
	if problem == "" {
		var cols int
		cols, problem = intOrDefault(req.NumColumns, DefaultColumns, 1, MaxBatchSize, "num_columns")
		req.NumColumns = &cols
	}
	if problem != "" {
		jsonError(w, http.StatusBadRequest, problem)
		return
	}

	codes, err := batchCodes(r.Context(), n)
	if err != nil {
		slog.Error("failed to generate codes", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate codes")
		return
	}

	labels := make([]render.Label, 0, n)
	for i, code := range codes {
		img, err := h.Composer.Compose(qrimage.TextPayload(int64(i+1), code))
		if err != nil {
			slog.Error("failed to generate QR code", "code", code, "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to generate QR codes")
			return
		}
		data, err := render.PNG(img)
		if err != nil {
			slog.Error("failed to encode QR code", "code", code, "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to generate QR codes")
			return
		}
		labels = append(labels, render.Label{Text: code, PNG: data})
	}

	var buf bytes.Buffer
	if err := render.PDF(&buf, labels, *req.NumColumns, layout.A4); err != nil {
		slog.Error("failed to render PDF", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to render PDF")
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+render.PDFFilename(now())+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed to write PDF response", "error", err)
	}
}

func (h *GeneratorHandler) generate(itemID int64, code string) (generatedCode, error) {
	img, err := h.Composer.Compose(qrimage.TextPayload(itemID, code))
	if err != nil {
		return generatedCode{}, err
	}
	data, err := render.PNG(img)
	if err != nil {
		return generatedCode{}, err
	}
	return generatedCode{ItemID: itemID, ItemCode: code, QRImage: render.DataURI(data)}, nil
}

// batchCodes draws n codes that are distinct within the batch.
func batchCodes(ctx context.Context, n int) ([]string, error) {
	seen := make(map[string]bool, n)
	taken := func(_ context.Context, code string) (bool, error) {
		return seen[code], nil
	}

	codes := make([]string, 0, n)
	for range n {
		code, err := codegen.Generate(ctx, taken)
		if err != nil {
			return nil, err
		}
		seen[code] = true
		codes = append(codes, code)
	}
	return codes, nil
}

func noneTaken(context.Context, string) (bool, error) { return false, nil }

func intOrDefault(v *int, def, lo, hi int, name string) (int, string) {
	if v == nil {
		return def, ""
	}
	if *v < lo || *v > hi {
		return 0, name + " out of range"
	}
	return *v, ""
}
