// Package instagram implementa authorization-code plano sobre el Graph API.
package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/socialvault/internal/connect"
)

const ProviderName = "instagram"

const (
	defaultAuthURL    = "https://www.instagram.com/oauth/authorize"
	defaultTokenURL   = "https://api.instagram.com/oauth/access_token"
	defaultProfileURL = "https://graph.instagram.com/me?fields=id,username,account_type"
)

type Provider struct {
	cfg  connect.Config
	http *http.Client
}

func Factory(cfg connect.Config) (connect.Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("instagram: client_id y client_secret requeridos")
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
		cfg.Scopes = []string{"instagram_business_basic", "instagram_business_content_publish"}
	}
	return &Provider{cfg: cfg, http: connect.NewProviderHTTPClient()}, nil
}

func (p *Provider) Name() string             { return ProviderName }
func (p *Provider) Variant() connect.Variant { return connect.VariantAuthorizationCode }

// ProfileRequired: el id de la cuenta business es imprescindible para operar.
func (p *Provider) ProfileRequired() bool { return true }

func (p *Provider) AuthorizeURL(state, _ string) string {
	return connect.BuildAuthURL(p.cfg.AuthURL, p.cfg.ClientID, p.cfg.RedirectURI, p.cfg.Scopes, state, nil)
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
		ID          string `json:"id"`
		Username    string `json:"username"`
		AccountType string `json:"account_type"`
	}
	if err := connect.GetJSONBearer(ctx, p.http, p.cfg.ProfileURL, accessToken, &out); err != nil {
		return nil, err
	}
	return &connect.Account{
		ID:       out.ID,
		Username: out.Username,
		Kind:     out.AccountType,
	}, nil
}
