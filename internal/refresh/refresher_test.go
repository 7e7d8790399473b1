package refresh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/socialvault/internal/connect"
	"github.com/dropDatabas3/socialvault/internal/store"
	"github.com/dropDatabas3/socialvault/internal/store/memory"
)

type fakeProvider struct {
	refreshCalls int
	fail         bool
	rotated      string // si no vacío, el grant devuelve refresh token nuevo
}

func (f *fakeProvider) Name() string                                { return "fake" }
func (f *fakeProvider) Variant() connect.Variant                    { return connect.VariantAuthorizationCode }
func (f *fakeProvider) AuthorizeURL(state, challenge string) string { return "" }
func (f *fakeProvider) ProfileRequired() bool                       { return false }

func (f *fakeProvider) Exchange(ctx context.Context, code, verifier string) (*connect.TokenSet, error) {
	return nil, connect.ErrExchange
}

func (f *fakeProvider) Profile(ctx context.Context, accessToken string) (*connect.Account, error) {
	return &connect.Account{ID: "acc-1"}, nil
}

func (f *fakeProvider) Refresh(ctx context.Context, refreshToken string) (*connect.TokenSet, error) {
	f.refreshCalls++
	if f.fail {
		return nil, connect.ErrExchange
	}
	return &connect.TokenSet{AccessToken: "at-renovado", RefreshToken: f.rotated, ExpiresIn: 3600}, nil
}

func newTestRefresher(t *testing.T, p *fakeProvider) (*Refresher, *memory.Store) {
	t.Helper()
	reg := connect.NewRegistry()
	reg.RegisterFactory("fake", func(cfg connect.Config) (connect.Provider, error) { return p, nil })
	require.NoError(t, reg.Configure("fake", connect.Config{ClientID: "a", ClientSecret: "b", RedirectURI: "c"}))

	mem := memory.New()
	return New(reg, mem, zap.NewNop()), mem
}

func seed(t *testing.T, mem *memory.Store, expiresIn time.Duration, refreshToken string) {
	t.Helper()
	require.NoError(t, mem.Upsert(context.Background(), &store.ProviderCredential{
		UserID:       "user-1",
		Provider:     "fake",
		Connected:    true,
		AccessToken:  "at-viejo",
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().UTC().Add(expiresIn),
	}))
}

func TestGetValidAccessToken_NotConnected(t *testing.T) {
	r, _ := newTestRefresher(t, &fakeProvider{})

	tok, err := r.GetValidAccessToken(context.Background(), "user-1", "fake")
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestGetValidAccessToken_FreshToken_NoNetwork(t *testing.T) {
	p := &fakeProvider{}
	r, mem := newTestRefresher(t, p)
	seed(t, mem, time.Hour, "rt")

	tok, err := r.GetValidAccessToken(context.Background(), "user-1", "fake")
	require.NoError(t, err)
	assert.Equal(t, "at-viejo", tok)
	assert.Equal(t, 0, p.refreshCalls)
}

func TestGetValidAccessToken_InsideBuffer_Refreshes(t *testing.T) {
	p := &fakeProvider{}
	r, mem := newTestRefresher(t, p)
	// vence en 2 minutos: dentro del buffer de 5
	seed(t, mem, 2*time.Minute, "rt")

	tok, err := r.GetValidAccessToken(context.Background(), "user-1", "fake")
	require.NoError(t, err)
	assert.Equal(t, "at-renovado", tok)
	assert.Equal(t, 1, p.refreshCalls)

	// el resultado quedó persistido
	cred, err := mem.Get(context.Background(), "user-1", "fake")
	require.NoError(t, err)
	assert.Equal(t, "at-renovado", cred.AccessToken)
	assert.Equal(t, "rt", cred.RefreshToken, "sin rotación el refresh token se conserva")
	assert.True(t, cred.ExpiresAt.After(time.Now().UTC().Add(30*time.Minute)))
}

func TestGetValidAccessToken_RotatedRefreshTokenPersisted(t *testing.T) {
	p := &fakeProvider{rotated: "rt-rotado"}
	r, mem := newTestRefresher(t, p)
	seed(t, mem, -time.Minute, "rt")

	_, err := r.GetValidAccessToken(context.Background(), "user-1", "fake")
	require.NoError(t, err)

	cred, err := mem.Get(context.Background(), "user-1", "fake")
	require.NoError(t, err)
	assert.Equal(t, "rt-rotado", cred.RefreshToken)
}

func TestGetValidAccessToken_NoRefreshToken_ReconnectRequired(t *testing.T) {
	p := &fakeProvider{}
	r, mem := newTestRefresher(t, p)
	seed(t, mem, -time.Minute, "")

	tok, err := r.GetValidAccessToken(context.Background(), "user-1", "fake")
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.Equal(t, 0, p.refreshCalls)
}

func TestGetValidAccessToken_NoRefreshToken_FreshStillServed(t *testing.T) {
	p := &fakeProvider{}
	r, mem := newTestRefresher(t, p)
	seed(t, mem, time.Hour, "")

	tok, err := r.GetValidAccessToken(context.Background(), "user-1", "fake")
	require.NoError(t, err)
	assert.Equal(t, "at-viejo", tok)
}

func TestGetValidAccessToken_ProviderFailure_RowUntouched(t *testing.T) {
	p := &fakeProvider{fail: true}
	r, mem := newTestRefresher(t, p)
	seed(t, mem, -time.Minute, "rt")

	tok, err := r.GetValidAccessToken(context.Background(), "user-1", "fake")
	require.NoError(t, err)
	assert.Empty(t, tok, "falla del provider degrada a cadena vacía, no a error")

	// la fila sigue intacta: el próximo intento puede reintentar
	cred, err := mem.Get(context.Background(), "user-1", "fake")
	require.NoError(t, err)
	assert.Equal(t, "at-viejo", cred.AccessToken)
	assert.Equal(t, "rt", cred.RefreshToken)
}
