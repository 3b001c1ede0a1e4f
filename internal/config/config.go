// Package config loads runtime settings from an optional .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/erazemk/qrstock/internal/qrimage"
)

// Authorization modes.
const (
	AuthNone   = "none"
	AuthGitHub = "github"
)

// QR payload strategies for item codes.
const (
	PayloadURL  = "url"
	PayloadText = "text"
)

// Config represents the full application configuration surface.
type Config struct {
	Addr        string
	DatabaseURL string
	LogPath     string

	// BaseURL prefixes item links in QR codes. Empty means the request host.
	BaseURL   string
	SecretKey string

	AuthMode           string
	GitHubClientID     string
	GitHubClientSecret string

	QRPayload         string
	LogoPath          string
	LogoSize          int
	GeneratorLogoSize int

	Timezone string
	Location *time.Location
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance. A missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Addr:               listenAddr(),
		DatabaseURL:        getenvWithDefault("DATABASE_URL", "qrstock.sqlite3"),
		BaseURL:            os.Getenv("BASE_URL"),
		SecretKey:          os.Getenv("SECRET_KEY"),
		AuthMode:           getenvWithDefault("AUTH_MODE", AuthNone),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		QRPayload:          getenvWithDefault("QR_PAYLOAD", PayloadURL),
		LogoPath:           getenvWithDefault("LOGO_PATH", "static/logo.png"),
		Timezone:           getenvWithDefault("TIMEZONE", "Asia/Bangkok"),
	}

	var err error
	if cfg.LogoSize, err = getenvInt("LOGO_SIZE", 60); err != nil {
		return nil, err
	}
	if cfg.GeneratorLogoSize, err = getenvInt("GENERATOR_LOGO_SIZE", 80); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings and resolves the time zone.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Addr == "" {
		return errors.New("listen address must not be empty")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL must not be empty")
	}

	switch c.AuthMode {
	case AuthNone:
	case AuthGitHub:
		if c.GitHubClientID == "" || c.GitHubClientSecret == "" {
			return errors.New("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be provided when AUTH_MODE=github")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthNone, AuthGitHub, c.AuthMode)
	}

	if c.QRPayload != PayloadURL && c.QRPayload != PayloadText {
		return fmt.Errorf("QR_PAYLOAD must be %q or %q, got %q", PayloadURL, PayloadText, c.QRPayload)
	}

	if c.LogoSize < 1 || c.LogoSize > qrimage.MaxLogoSize {
		return fmt.Errorf("LOGO_SIZE must be between 1 and %d, got %d", qrimage.MaxLogoSize, c.LogoSize)
	}
	if c.GeneratorLogoSize < 1 || c.GeneratorLogoSize > qrimage.MaxLogoSize {
		return fmt.Errorf("GENERATOR_LOGO_SIZE must be between 1 and %d, got %d", qrimage.MaxLogoSize, c.GeneratorLogoSize)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc

	return nil
}

// AuthEnabled reports whether write access requires sign-in.
func (c *Config) AuthEnabled() bool {
	return c.AuthMode == AuthGitHub
}

// PublicURL returns BaseURL, or the scheme and host the request arrived on.
func (c *Config) PublicURL(r *http.Request) string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// ItemPayload is what an item's QR code encodes under the configured strategy.
func (c *Config) ItemPayload(r *http.Request, id int64, code string) string {
	if c.QRPayload == PayloadText {
		return qrimage.TextPayload(id, code)
	}
	return qrimage.URLPayload(c.PublicURL(r), code)
}

func listenAddr() string {
	if addr := os.Getenv("ADDR"); addr != "" {
		return addr
	}
	return ":" + getenvWithDefault("PORT", "8080")
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
