// Package linkedin implementa authorization-code plano. El listado de
// organizaciones es best-effort: si falla, la conexión queda con metadata
// degradada.
package linkedin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/socialvault/internal/connect"
)

const ProviderName = "linkedin"

const (
	defaultAuthURL    = "https://www.linkedin.com/oauth/v2/authorization"
	defaultTokenURL   = "https://www.linkedin.com/oauth/v2/accessToken"
	defaultProfileURL = "https://api.linkedin.com/v2/userinfo"
)

type Provider struct {
	cfg    connect.Config
	orgURL string
	http   *http.Client
}

func Factory(cfg connect.Config) (connect.Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("linkedin: client_id y client_secret requeridos")
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
		cfg.Scopes = []string{"openid", "profile", "w_member_social"}
	}
	return &Provider{
		cfg:    cfg,
		orgURL: "https://api.linkedin.com/v2/organizationAcls?q=roleAssignee&role=ADMINISTRATOR",
		http:   connect.NewProviderHTTPClient(),
	}, nil
}

func (p *Provider) Name() string             { return ProviderName }
func (p *Provider) Variant() connect.Variant { return connect.VariantAuthorizationCode }
func (p *Provider) ProfileRequired() bool    { return false }

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
	var info struct {
		Sub  string `json:"sub"`
		Name string `json:"name"`
	}
	if err := connect.GetJSONBearer(ctx, p.http, p.cfg.ProfileURL, accessToken, &info); err != nil {
		return nil, err
	}

	acc := &connect.Account{
		ID:       info.Sub,
		Username: info.Name,
		Kind:     "member",
	}

	// organizaciones administradas: opcional, un fallo acá no voltea el perfil
	var orgs struct {
		Elements []struct {
			Organization string `json:"organization"`
		} `json:"elements"`
	}
	if err := connect.GetJSONBearer(ctx, p.http, p.orgURL, accessToken, &orgs); err == nil {
		for _, el := range orgs.Elements {
			acc.Organizations = append(acc.Organizations, el.Organization)
		}
	}
	return acc, nil
}
