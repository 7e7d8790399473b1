package connect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Helpers de wire OAuth2 compartidos por todos los providers.

// BuildAuthURL arma la URL del authorization endpoint con los parámetros
// estándar más los extra del provider.
func BuildAuthURL(endpoint, clientID, redirectURI string, scopes []string, state string, extra url.Values) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	if len(scopes) > 0 {
		q.Set("scope", strings.Join(scopes, " "))
	}
	q.Set("state", state)
	for k, vs := range extra {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// tokenResponse es la respuesta JSON del token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// PostTokenForm hace el POST form-encoded al token endpoint y parsea la
// respuesta. Sobre non-2xx devuelve ErrExchange con el detalle del provider.
func PostTokenForm(ctx context.Context, client *http.Client, tokenURL string, form url.Values) (*TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	defer resp.Body.Close()
	return decodeTokenResponse(resp)
}

func decodeTokenResponse(resp *http.Response) (*TokenSet, error) {
	if resp.StatusCode/100 != 2 {
		var b struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		return nil, fmt.Errorf("%w: http %d: %s %s", ErrExchange, resp.StatusCode, b.Error, b.ErrorDescription)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: respuesta ilegible: %v", ErrExchange, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: respuesta sin access_token", ErrExchange)
	}
	return &TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
		TokenType:    tr.TokenType,
		Scope:        tr.Scope,
	}, nil
}

// PostTokenFormBasicAuth es PostTokenForm con client credentials en el
// header Authorization (clientes confidenciales, caso twitter).
func PostTokenFormBasicAuth(ctx context.Context, client *http.Client, tokenURL string, form url.Values, clientID, clientSecret string) (*TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(clientID, clientSecret)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	defer resp.Body.Close()
	return decodeTokenResponse(resp)
}

// GetJSONBearer hace un GET con bearer token y decodea JSON en out.
func GetJSONBearer(ctx context.Context, client *http.Client, rawURL, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: http %d", ErrProfileFetch, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: respuesta ilegible: %v", ErrProfileFetch, err)
	}
	return nil
}
