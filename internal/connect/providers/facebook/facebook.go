// Package facebook implementa authorization-code plano con canje secundario:
// el token endpoint devuelve tokens de corta vida, así que antes de persistir
// se canjea por el de larga vida (fb_exchange_token).
package facebook

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/socialvault/internal/connect"
)

const ProviderName = "facebook"

const (
	defaultAuthURL    = "https://www.facebook.com/v19.0/dialog/oauth"
	defaultTokenURL   = "https://graph.facebook.com/v19.0/oauth/access_token"
	defaultProfileURL = "https://graph.facebook.com/v19.0/me/accounts"
)

type Provider struct {
	cfg  connect.Config
	http *http.Client
}

func Factory(cfg connect.Config) (connect.Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("facebook: client_id y client_secret requeridos")
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
		cfg.Scopes = []string{"pages_show_list", "pages_manage_posts", "pages_read_engagement"}
	}
	return &Provider{cfg: cfg, http: connect.NewProviderHTTPClient()}, nil
}

func (p *Provider) Name() string             { return ProviderName }
func (p *Provider) Variant() connect.Variant { return connect.VariantAuthorizationCode }

// ProfileRequired: sin page id no hay contra qué publicar después.
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

	short, err := connect.PostTokenForm(ctx, p.http, p.cfg.TokenURL, form)
	if err != nil {
		return nil, err
	}

	// canje secundario: short-lived -> long-lived (~60 días)
	long := url.Values{}
	long.Set("grant_type", "fb_exchange_token")
	long.Set("client_id", p.cfg.ClientID)
	long.Set("client_secret", p.cfg.ClientSecret)
	long.Set("fb_exchange_token", short.AccessToken)

	ts, err := connect.PostTokenForm(ctx, p.http, p.cfg.TokenURL, long)
	if err != nil {
		return nil, err
	}
	return ts, nil
}

// Refresh: facebook no emite refresh token; la renovación es reconectar.
func (p *Provider) Refresh(ctx context.Context, _ string) (*connect.TokenSet, error) {
	return nil, fmt.Errorf("facebook: refresh-token grant no soportado")
}

func (p *Provider) Profile(ctx context.Context, accessToken string) (*connect.Account, error) {
	var out struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := connect.GetJSONBearer(ctx, p.http, p.cfg.ProfileURL, accessToken, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("%w: la cuenta no administra páginas", connect.ErrProfileFetch)
	}
	page := out.Data[0]
	return &connect.Account{
		ID:       page.ID,
		Username: page.Name,
		Kind:     "page",
		PageID:   page.ID,
	}, nil
}
