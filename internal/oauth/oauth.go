// Package oauth signs users in through an external identity provider.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// ErrNotConfigured is returned when client credentials are missing.
var ErrNotConfigured = errors.New("oauth provider is not configured")

// Identity is the signed-in user as reported by the provider.
type Identity struct {
	ExternalID string
	Username   string
	Email      string
	AvatarURL  string
}

// Provider runs the authorization-code flow.
type Provider interface {
	Configured() bool
	AuthCodeURL(state, redirectURL string) string
	Exchange(ctx context.Context, code, redirectURL string) (*Identity, error)
}

// GitHub signs users in with a GitHub OAuth app.
type GitHub struct {
	conf oauth2.Config
	api  *resty.Client
}

// GitHubAPI is the REST endpoint queried for the user profile.
const GitHubAPI = "https://api.github.com"

// NewGitHub returns a GitHub provider using the public GitHub endpoints.
func NewGitHub(clientID, clientSecret string) *GitHub {
	return NewGitHubWithEndpoints(clientID, clientSecret, github.Endpoint, GitHubAPI)
}

// NewGitHubWithEndpoints returns a GitHub provider talking to custom
// endpoints, e.g. GitHub Enterprise.
func NewGitHubWithEndpoints(clientID, clientSecret string, endpoint oauth2.Endpoint, apiURL string) *GitHub {
	return &GitHub{
		conf: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{"user:email"},
		},
		api: resty.New().
			SetBaseURL(apiURL).
			SetHeader("Accept", "application/vnd.github+json").
			SetTimeout(10 * time.Second),
	}
}

func (g *GitHub) Configured() bool {
	return g.conf.ClientID != "" && g.conf.ClientSecret != ""
}

func (g *GitHub) AuthCodeURL(state, redirectURL string) string {
	conf := g.conf
	conf.RedirectURL = redirectURL
	return conf.AuthCodeURL(state)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Exchange trades the authorization code for a token and fetches the profile.
func (g *GitHub) Exchange(ctx context.Context, code, redirectURL string) (*Identity, error) {
	if !g.Configured() {
		return nil, ErrNotConfigured
	}

	conf := g.conf
	conf.RedirectURL = redirectURL
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	var user githubUser
	resp, err := g.api.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(&user).
		Get("/user")
	if err != nil {
		return nil, fmt.Errorf("fetching github user: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching github user: status %d", resp.StatusCode())
	}
	if user.ID == 0 || user.Login == "" {
		return nil, errors.New("fetching github user: incomplete profile")
	}

	identity := &Identity{
		ExternalID: strconv.FormatInt(user.ID, 10),
		Username:   user.Login,
		Email:      user.Email,
		AvatarURL:  user.AvatarURL,
	}

	// The profile email is empty when the user keeps it private.
	if identity.Email == "" {
		identity.Email, err = g.primaryEmail(ctx, token.AccessToken)
		if err != nil {
			return nil, err
		}
	}

	return identity, nil
}

func (g *GitHub) primaryEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []githubEmail
	resp, err := g.api.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&emails).
		Get("/user/emails")
	if err != nil {
		return "", fmt.Errorf("fetching github emails: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetching github emails: status %d", resp.StatusCode())
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}
