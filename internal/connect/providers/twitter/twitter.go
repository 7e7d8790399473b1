// Package twitter implementa la variante authorization-code con PKCE (S256).
package twitter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/socialvault/internal/connect"
)

const ProviderName = "twitter"

const (
	defaultAuthURL    = "https://x.com/i/oauth2/authorize"
	defaultTokenURL   = "https://api.x.com/2/oauth2/token"
	defaultProfileURL = "https://api.x.com/2/users/me"
)

type Provider struct {
	cfg  connect.Config
	http *http.Client
}

func Factory(cfg connect.Config) (connect.Provider, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("twitter: client_id requerido")
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = defaultProfileURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access"}
	}
	return &Provider{cfg: cfg, http: connect.NewProviderHTTPClient()}, nil
}

func (p *Provider) Name() string             { return ProviderName }
func (p *Provider) Variant() connect.Variant { return connect.VariantAuthorizationCodePKCE }
func (p *Provider) ProfileRequired() bool    { return false }

func (p *Provider) AuthorizeURL(state, challenge string) string {
	extra := url.Values{}
	extra.Set("code_challenge", challenge)
	extra.Set("code_challenge_method", "S256")
	return connect.BuildAuthURL(p.cfg.AuthURL, p.cfg.ClientID, p.cfg.RedirectURI, p.cfg.Scopes, state, extra)
}

func (p *Provider) Exchange(ctx context.Context, code, verifier string) (*connect.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("redirect_uri", p.cfg.RedirectURI)
	form.Set("code_verifier", verifier)
	return connect.PostTokenFormBasicAuth(ctx, p.http, p.cfg.TokenURL, form, p.cfg.ClientID, p.cfg.ClientSecret)
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*connect.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", p.cfg.ClientID)
	return connect.PostTokenFormBasicAuth(ctx, p.http, p.cfg.TokenURL, form, p.cfg.ClientID, p.cfg.ClientSecret)
}

func (p *Provider) Profile(ctx context.Context, accessToken string) (*connect.Account, error) {
	var out struct {
		Data struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := connect.GetJSONBearer(ctx, p.http, p.cfg.ProfileURL, accessToken, &out); err != nil {
		return nil, err
	}
	return &connect.Account{
		ID:       out.Data.ID,
		Username: out.Data.Username,
		Kind:     "personal",
	}, nil
}
