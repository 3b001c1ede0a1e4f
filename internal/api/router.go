package api

import (
	"net/http"

	"github.com/erazemk/qrstock/internal/config"
	"github.com/erazemk/qrstock/internal/db"
	"github.com/erazemk/qrstock/internal/qrimage"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(database *db.DB, cfg *config.Config, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: database, AuthEnabled: cfg.AuthEnabled()}
	itemsHandler := &ItemsHandler{DB: database, Config: cfg}
	generatorHandler := &GeneratorHandler{
		Composer: qrimage.Composer{LogoPath: cfg.LogoPath, LogoSize: cfg.GeneratorLogoSize},
	}
	logoHandler := &LogoHandler{Path: cfg.LogoPath}

	authMW := AuthMiddleware(jwtSecret, database)
	write := RequireAuth(cfg.AuthEnabled())

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Session.
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)

	// Items: read (everyone), write (signed in when auth is enabled).
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.Handle("POST /api/items", write(http.HandlerFunc(itemsHandler.Create)))
	mux.HandleFunc("GET /api/item/{code}", itemsHandler.Get)
	mux.Handle("PUT /api/item/{code}", write(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/item/{code}", write(http.HandlerFunc(itemsHandler.Delete)))

	// Standalone generator. Nothing is stored.
	mux.HandleFunc("POST /api/generate/qr", generatorHandler.QR)
	mux.HandleFunc("POST /api/generate/batch", generatorHandler.Batch)
	mux.HandleFunc("POST /api/generate/pdf", generatorHandler.PDF)

	mux.Handle("PUT /api/logo", write(http.HandlerFunc(logoHandler.Upload)))

	return authMW(mux)
}
