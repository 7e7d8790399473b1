// Package youtube implementa authorization-code plano contra Google.
// access_type=offline + prompt=consent fuerzan la emisión de refresh token.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/socialvault/internal/connect"
)

const ProviderName = "youtube"

const (
	defaultAuthURL    = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL   = "https://oauth2.googleapis.com/token"
	defaultProfileURL = "https://www.googleapis.com/youtube/v3/channels?part=snippet&mine=true"
)

type Provider struct {
	cfg  connect.Config
	http *http.Client
}

func Factory(cfg connect.Config) (connect.Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("youtube: client_id y client_secret requeridos")
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
		cfg.Scopes = []string{"https://www.googleapis.com/auth/youtube.upload", "https://www.googleapis.com/auth/youtube.readonly"}
	}
	return &Provider{cfg: cfg, http: connect.NewProviderHTTPClient()}, nil
}

func (p *Provider) Name() string             { return ProviderName }
func (p *Provider) Variant() connect.Variant { return connect.VariantAuthorizationCode }
func (p *Provider) ProfileRequired() bool    { return false }

func (p *Provider) AuthorizeURL(state, _ string) string {
	extra := url.Values{}
	extra.Set("access_type", "offline")
	extra.Set("prompt", "consent")
	return connect.BuildAuthURL(p.cfg.AuthURL, p.cfg.ClientID, p.cfg.RedirectURI, p.cfg.Scopes, state, extra)
}

func (p *Provider) Exchange(ctx context.Context, code, _ string) (*connect.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("redirect_uri", p.cfg.RedirectURI)
	return connect.PostTokenForm(ctx, p.http, p.cfg.TokenURL, form)
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*connect.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	return connect.PostTokenForm(ctx, p.http, p.cfg.TokenURL, form)
}

func (p *Provider) Profile(ctx context.Context, accessToken string) (*connect.Account, error) {
	var out struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title string `json:"title"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := connect.GetJSONBearer(ctx, p.http, p.cfg.ProfileURL, accessToken, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("%w: la cuenta no tiene canal", connect.ErrProfileFetch)
	}
	return &connect.Account{
		ID:       out.Items[0].ID,
		Username: out.Items[0].Snippet.Title,
		Kind:     "channel",
	}, nil
}
