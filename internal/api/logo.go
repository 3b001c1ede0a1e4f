package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/qrstock/internal/imaging"
)

// MaxLogoUpload caps the size of an uploaded logo.
const MaxLogoUpload = 5 << 20

// LogoHandler replaces the logo drawn into QR codes.
type LogoHandler struct {
	Path string
}

// Upload handles PUT /api/logo.
func (h *LogoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxLogoUpload)

	if err := r.ParseMultipartForm(MaxLogoUpload); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("logo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "logo file required")
		return
	}
	defer file.Close()

	// The MIME type is sniffed from the bytes, not taken from the client.
	if err := imaging.SaveLogo(h.Path, file); err != nil {
		slog.Warn("rejected logo upload", "error", err)
		jsonError(w, http.StatusBadRequest, "logo must be a JPEG or PNG image")
		return
	}

	slog.Info("logo replaced", "path", h.Path)
	jsonResponse(w, http.StatusOK, map[string]any{"success": true, "message": "logo uploaded"})
}
