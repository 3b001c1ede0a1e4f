package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/qrstock/internal/auth"
	"github.com/erazemk/qrstock/internal/config"
	"github.com/erazemk/qrstock/internal/db"
	"github.com/erazemk/qrstock/internal/store"
)

const testJWTSecret = "test-secret"

func testConfig(t *testing.T, authMode string) *config.Config {
	t.Helper()
	loc, _ := time.LoadLocation("Asia/Bangkok")
	return &config.Config{
		AuthMode:          authMode,
		QRPayload:         config.PayloadURL,
		LogoPath:          filepath.Join(t.TempDir(), "logo.png"),
		LogoSize:          60,
		GeneratorLogoSize: 80,
		Location:          loc,
	}
}

func setupTestServer(t *testing.T, authMode string) (*httptest.Server, *db.DB, *config.Config) {
	t.Helper()
	database := db.NewTestDB(t)
	cfg := testConfig(t, authMode)
	server := httptest.NewServer(NewRouter(database, cfg, testJWTSecret))
	t.Cleanup(server.Close)
	return server, database, cfg
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func do(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestItemsAPIFlow(t *testing.T) {
	server, _, _ := setupTestServer(t, config.AuthNone)

	// Create with a generated code.
	resp, created := do(t, "POST", server.URL+"/api/items", "", map[string]any{
		"name":        "Laptop",
		"description": "Dell XPS",
		"category":    "IT",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	code, _ := created["code"].(string)
	if !regexp.MustCompile(`^[A-Z0-9]{6}$`).MatchString(code) {
		t.Fatalf("unexpected generated code %q", code)
	}
	if created["quantity"] != float64(1) || created["status"] != "available" {
		t.Errorf("expected defaults, got %v", created)
	}
	if v, ok := created["created_by"]; !ok || v != nil {
		t.Errorf("expected created_by null, got %v", v)
	}

	// Get, case-insensitive.
	resp, got := do(t, "GET", server.URL+"/api/item/"+strings.ToLower(code), "", nil)
	if resp.StatusCode != http.StatusOK || got["name"] != "Laptop" {
		t.Fatalf("expected item, got %d %v", resp.StatusCode, got)
	}

	// Update sends the whole record.
	resp, updated := do(t, "PUT", server.URL+"/api/item/"+code, "", map[string]any{
		"name":        "Laptop",
		"description": "Dell XPS",
		"category":    "IT",
		"quantity":    2,
		"status":      "in_use",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d", resp.StatusCode)
	}
	if updated["status"] != "in_use" || updated["quantity"] != float64(2) {
		t.Errorf("update not applied: %v", updated)
	}

	// List with filters.
	req, _ := authRequest("GET", server.URL+"/api/items?category=IT&search=xps", "", nil)
	listResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var items []itemView
	json.NewDecoder(listResp.Body).Decode(&items)
	listResp.Body.Close()
	if len(items) != 1 || items[0].Code != code {
		t.Errorf("expected the laptop in filtered list, got %+v", items)
	}

	// Fields left out of an update are reset, not kept.
	resp, replaced := do(t, "PUT", server.URL+"/api/item/"+code, "", map[string]any{
		"name":     "Laptop",
		"quantity": 3,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d", resp.StatusCode)
	}
	if replaced["category"] != "" || replaced["description"] != "" || replaced["status"] != "available" {
		t.Errorf("expected omitted fields to be reset, got %v", replaced)
	}
	if replaced["code"] != code || replaced["quantity"] != float64(3) {
		t.Errorf("unexpected replaced item: %v", replaced)
	}

	// Delete, then it is gone.
	resp, _ = do(t, "DELETE", server.URL+"/api/item/"+code, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", resp.StatusCode)
	}
	resp, _ = do(t, "GET", server.URL+"/api/item/"+code, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp, _ = do(t, "DELETE", server.URL+"/api/item/"+code, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestCreateItemValidation(t *testing.T) {
	server, _, _ := setupTestServer(t, config.AuthNone)

	resp, created := do(t, "POST", server.URL+"/api/items", "", map[string]any{"code": "ab12cd", "name": "Drill"})
	if resp.StatusCode != http.StatusCreated || created["code"] != "AB12CD" {
		t.Fatalf("expected normalized code, got %d %v", resp.StatusCode, created)
	}

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"duplicate code", map[string]any{"code": "AB12CD", "name": "Other"}, http.StatusConflict},
		{"invalid code", map[string]any{"code": "AB-12", "name": "Other"}, http.StatusBadRequest},
		{"missing name", map[string]any{"name": "  "}, http.StatusBadRequest},
		{"negative quantity", map[string]any{"name": "x", "quantity": -1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, _ := do(t, "POST", server.URL+"/api/items", "", tt.body)
		if resp.StatusCode != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.status, resp.StatusCode)
		}
	}
}

func TestItemTimesUseConfiguredZone(t *testing.T) {
	server, database, _ := setupTestServer(t, config.AuthNone)

	_, err := database.ExecContext(context.Background(),
		`INSERT INTO items (code, name, created_at, updated_at) VALUES ('TZ0001', 'Clock', '2024-01-01 00:00:00', '2024-01-01 00:00:00')`)
	if err != nil {
		t.Fatalf("seeding item: %v", err)
	}

	_, got := do(t, "GET", server.URL+"/api/item/TZ0001", "", nil)
	if got["created_at"] != "2024-01-01 07:00:00 +07" {
		t.Errorf("expected Bangkok time, got %v", got["created_at"])
	}
}

func TestWriteRequiresAuth(t *testing.T) {
	server, database, _ := setupTestServer(t, config.AuthGitHub)
	ctx := context.Background()

	// Reads stay public.
	resp, _ := do(t, "GET", server.URL+"/api/items", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for anonymous read, got %d", resp.StatusCode)
	}

	resp, _ = do(t, "POST", server.URL+"/api/items", "", map[string]any{"name": "Test"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous create, got %d", resp.StatusCode)
	}

	user, err := store.UpsertUser(ctx, database, "42", "octocat", "octo@example.com", "")
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	token, _ := auth.GenerateToken(testJWTSecret, user)

	resp, created := do(t, "POST", server.URL+"/api/items", token, map[string]any{"name": "Test"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for signed-in create, got %d", resp.StatusCode)
	}
	if created["created_by"] != "octocat" {
		t.Errorf("expected created_by octocat, got %v", created["created_by"])
	}

	resp, me := do(t, "GET", server.URL+"/api/auth/me", token, nil)
	if resp.StatusCode != http.StatusOK || me["username"] != "octocat" {
		t.Errorf("expected me to report octocat, got %d %v", resp.StatusCode, me)
	}

	// After logout the same token no longer works.
	resp, _ = do(t, "POST", server.URL+"/api/auth/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on logout, got %d", resp.StatusCode)
	}
	resp, _ = do(t, "POST", server.URL+"/api/items", token, map[string]any{"name": "Again"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with revoked token, got %d", resp.StatusCode)
	}
}

func decodeDataURI(t *testing.T, uri string) image.Image {
	t.Helper()
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("unexpected data URI prefix: %.40s", uri)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	if err != nil {
		t.Fatalf("decoding base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding PNG: %v", err)
	}
	return img
}

func TestGenerateQR(t *testing.T) {
	server, _, _ := setupTestServer(t, config.AuthGitHub)

	// The generator is open even when auth is enabled.
	resp, out := do(t, "POST", server.URL+"/api/generate/qr", "", map[string]any{"item_id": 7, "custom_code": " ab12cd "})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if out["success"] != true || out["item_code"] != "AB12CD" || out["item_id"] != float64(7) {
		t.Errorf("unexpected response: %v", out)
	}
	img := decodeDataURI(t, out["qr_image"].(string))
	if img.Bounds().Dx() == 0 {
		t.Error("expected a non-empty image")
	}

	resp, out = do(t, "POST", server.URL+"/api/generate/qr", "", map[string]any{})
	if resp.StatusCode != http.StatusOK || out["item_id"] != float64(1) {
		t.Errorf("expected default item id 1, got %d %v", resp.StatusCode, out)
	}

	resp, _ = do(t, "POST", server.URL+"/api/generate/qr", "", map[string]any{"custom_code": "no spaces!"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid custom code, got %d", resp.StatusCode)
	}
}

func TestGenerateBatch(t *testing.T) {
	server, _, _ := setupTestServer(t, config.AuthNone)

	resp, out := do(t, "POST", server.URL+"/api/generate/batch", "", map[string]any{"num_items": 5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	codes, _ := out["qr_codes"].([]any)
	if len(codes) != 5 {
		t.Fatalf("expected 5 codes, got %d", len(codes))
	}
	seen := map[string]bool{}
	for i, c := range codes {
		entry := c.(map[string]any)
		if entry["item_id"] != float64(i+1) {
			t.Errorf("expected item_id %d, got %v", i+1, entry["item_id"])
		}
		code := entry["item_code"].(string)
		if seen[code] {
			t.Errorf("duplicate code %s in batch", code)
		}
		seen[code] = true
	}

	resp, _ = do(t, "POST", server.URL+"/api/generate/batch", "", map[string]any{"num_items": MaxBatchSize + 1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for oversized batch, got %d", resp.StatusCode)
	}
}

func TestGeneratePDF(t *testing.T) {
	server, _, _ := setupTestServer(t, config.AuthNone)

	req, _ := authRequest("POST", server.URL+"/api/generate/pdf", "", map[string]any{"num_items": 10, "num_columns": 4})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("generate pdf: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", ct)
	}
	disposition := resp.Header.Get("Content-Disposition")
	if !regexp.MustCompile(`attachment; filename="QR_Codes_\d{8}_\d{6}\.pdf"`).MatchString(disposition) {
		t.Errorf("unexpected disposition %q", disposition)
	}

	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	if !bytes.HasPrefix(body.Bytes(), []byte("%PDF-")) {
		t.Error("expected a PDF document")
	}

	r2, _ := do(t, "POST", server.URL+"/api/generate/pdf", "", map[string]any{"num_columns": 0})
	if r2.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for zero columns, got %d", r2.StatusCode)
	}
}

func logoUpload(t *testing.T, url string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("logo", "logo.png")
	part.Write(data)
	mw.Close()

	req, _ := http.NewRequest("PUT", url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	resp.Body.Close()
	return resp
}

func TestLogoUpload(t *testing.T) {
	server, _, cfg := setupTestServer(t, config.AuthNone)

	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{0, 128, 0, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)

	if resp := logoUpload(t, server.URL+"/api/logo", buf.Bytes()); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if _, err := os.Stat(cfg.LogoPath); err != nil {
		t.Fatalf("expected logo on disk: %v", err)
	}

	if resp := logoUpload(t, server.URL+"/api/logo", []byte("GIF89a")); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for GIF, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	server, _, _ := setupTestServer(t, config.AuthNone)

	resp, out := do(t, "GET", server.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK || out["status"] != "ok" {
		t.Errorf("expected healthy, got %d %v", resp.StatusCode, out)
	}
}
