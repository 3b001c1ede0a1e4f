package web

import (
	"net/http"

	"github.com/erazemk/qrstock/internal/config"
	"github.com/erazemk/qrstock/internal/db"
	"github.com/erazemk/qrstock/internal/oauth"
	"github.com/erazemk/qrstock/internal/qrimage"
	webembed "github.com/erazemk/qrstock/web"
)

// Server holds all dependencies for page handlers.
type Server struct {
	DB        *db.DB
	Templates *Templates
	Config    *config.Config
	JWTSecret string
	Provider  oauth.Provider
	Composer  qrimage.Composer
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(database *db.DB, cfg *config.Config, jwtSecret string, provider oauth.Provider) (http.Handler, error) {
	templates, err := LoadTemplates(cfg.Location)
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:        database,
		Templates: templates,
		Config:    cfg,
		JWTSecret: jwtSecret,
		Provider:  provider,
		Composer:  qrimage.Composer{LogoPath: cfg.LogoPath, LogoSize: cfg.LogoSize},
	}

	mux := http.NewServeMux()
	write := RequireLogin(cfg.AuthEnabled())

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Sign-in.
	mux.HandleFunc("GET /login", s.Login)
	mux.HandleFunc("GET /authorize", s.Authorize)
	mux.HandleFunc("POST /logout", s.Logout)

	// Public pages.
	mux.HandleFunc("GET /{$}", s.IndexPage)
	mux.HandleFunc("GET /item/{code}", s.ItemDetailPage)
	mux.HandleFunc("GET /qr/{code}", s.ItemQRDownload)
	mux.HandleFunc("GET /generator", s.GeneratorPage)

	// Writes.
	mux.Handle("GET /add", write(http.HandlerFunc(s.AddItemPage)))
	mux.Handle("POST /add", write(http.HandlerFunc(s.AddItemSubmit)))
	mux.Handle("GET /edit/{code}", write(http.HandlerFunc(s.EditItemPage)))
	mux.Handle("POST /edit/{code}", write(http.HandlerFunc(s.EditItemSubmit)))
	mux.Handle("POST /delete/{code}", write(http.HandlerFunc(s.DeleteItemSubmit)))

	return SessionMiddleware(jwtSecret, database)(mux), nil
}

// page builds the common template data for a request.
func (s *Server) page(w http.ResponseWriter, r *http.Request, title string) PageData {
	return PageData{
		Title:       title,
		User:        GetWebClaims(r.Context()),
		AuthEnabled: s.Config.AuthEnabled(),
		Flash:       popFlash(w, r),
	}
}

// GeneratorPage handles GET /generator.
func (s *Server) GeneratorPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "generator.html", &struct {
		PageData
		DefaultItems   int
		DefaultColumns int
	}{
		PageData:       s.page(w, r, "QR Code Generator"),
		DefaultItems:   32,
		DefaultColumns: 8,
	})
}
