package connect

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/socialvault/internal/store"
	"github.com/dropDatabas3/socialvault/internal/store/memory"
)

// stubProvider cuenta llamadas y permite forzar fallas por fase.
type stubProvider struct {
	name            string
	variant         Variant
	exchangeCalls   int
	refreshCalls    int
	lastVerifier    string
	failExchange    bool
	failProfile     bool
	profileRequired bool
}

func (s *stubProvider) Name() string     { return s.name }
func (s *stubProvider) Variant() Variant { return s.variant }

func (s *stubProvider) AuthorizeURL(state, challenge string) string {
	u := "https://provider.test/authorize?state=" + url.QueryEscape(state)
	if challenge != "" {
		u += "&code_challenge=" + challenge + "&code_challenge_method=S256"
	}
	return u
}

func (s *stubProvider) Exchange(ctx context.Context, code, verifier string) (*TokenSet, error) {
	s.exchangeCalls++
	s.lastVerifier = verifier
	if s.failExchange {
		return nil, ErrExchange
	}
	return &TokenSet{AccessToken: "at-nuevo", RefreshToken: "rt-nuevo", ExpiresIn: 3600}, nil
}

func (s *stubProvider) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	s.refreshCalls++
	return &TokenSet{AccessToken: "at-renovado", ExpiresIn: 3600}, nil
}

func (s *stubProvider) Profile(ctx context.Context, accessToken string) (*Account, error) {
	if s.failProfile {
		return nil, errors.New("profile endpoint caído")
	}
	return &Account{ID: "acc-1", Username: "cuenta-test", Kind: "personal"}, nil
}

func (s *stubProvider) ProfileRequired() bool { return s.profileRequired }

func newTestService(t *testing.T, p *stubProvider) (*Service, *memory.Store) {
	t.Helper()
	reg := NewRegistry()
	reg.RegisterFactory(p.name, func(cfg Config) (Provider, error) { return p, nil })
	require.NoError(t, reg.Configure(p.name, Config{ClientID: "id", ClientSecret: "secret", RedirectURI: "https://vault.test/cb"}))

	codec, err := NewStateCodec(testStateSecret)
	require.NoError(t, err)

	mem := memory.New()
	svc := NewService(reg, mem, codec, NewMemoryNonceStore(), zap.NewNop())
	return svc, mem
}

func TestService_FullPKCEFlow(t *testing.T) {
	p := &stubProvider{name: "twitter", variant: VariantAuthorizationCodePKCE}
	svc, mem := newTestService(t, p)
	ctx := context.Background()
	userID := uuid.NewString()

	authURL, err := svc.Start(ctx, userID, "twitter")
	require.NoError(t, err)
	assert.Contains(t, authURL, "code_challenge_method=S256")

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	res, err := svc.Callback(ctx, "twitter", "el-code", state, "", "")
	require.NoError(t, err)
	assert.True(t, res.Connected)
	assert.Equal(t, userID, res.UserID)
	assert.Equal(t, "cuenta-test", res.Username)
	assert.False(t, res.Degraded)

	// el verifier del state viajó al canje y mide exactamente 43
	assert.Equal(t, 1, p.exchangeCalls)
	assert.Len(t, p.lastVerifier, 43)

	cred, err := mem.Get(ctx, userID, "twitter")
	require.NoError(t, err)
	assert.True(t, cred.Connected)
	assert.Equal(t, "at-nuevo", cred.AccessToken)
	assert.Equal(t, "rt-nuevo", cred.RefreshToken)
	assert.Equal(t, "acc-1", cred.AccountID)
	assert.Equal(t, "cuenta-test", cred.Metadata.Username)
}

func TestService_SlugSubjectFullFlow(t *testing.T) {
	// el subject no tiene por qué ser un uuid: un id opaco tipo "user-1"
	// recorre el flujo entero igual
	p := &stubProvider{name: "twitter", variant: VariantAuthorizationCodePKCE}
	svc, mem := newTestService(t, p)
	ctx := context.Background()

	authURL, err := svc.Start(ctx, "user-1", "twitter")
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)

	res, err := svc.Callback(ctx, "twitter", "el-code", u.Query().Get("state"), "", "")
	require.NoError(t, err)
	assert.True(t, res.Connected)
	assert.Equal(t, "user-1", res.UserID)

	cred, err := mem.Get(ctx, "user-1", "twitter")
	require.NoError(t, err)
	assert.True(t, cred.Connected)
	assert.Equal(t, "at-nuevo", cred.AccessToken)
}

func TestService_ProviderReportedError_NoExchange(t *testing.T) {
	p := &stubProvider{name: "facebook", variant: VariantAuthorizationCode}
	svc, _ := newTestService(t, p)

	_, err := svc.Callback(context.Background(), "facebook", "", "state-cualquiera", "access_denied", "el usuario canceló")

	var pre *ProviderReportedError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "access_denied", pre.Code)
	// ni el token endpoint ni el state se tocaron
	assert.Equal(t, 0, p.exchangeCalls)
}

func TestService_ReplayedState_Rejected(t *testing.T) {
	p := &stubProvider{name: "youtube", variant: VariantAuthorizationCode}
	svc, _ := newTestService(t, p)
	ctx := context.Background()

	authURL, err := svc.Start(ctx, uuid.NewString(), "youtube")
	require.NoError(t, err)
	u, _ := url.Parse(authURL)
	state := u.Query().Get("state")

	_, err = svc.Callback(ctx, "youtube", "code-1", state, "", "")
	require.NoError(t, err)

	// el mismo state otra vez es un replay
	_, err = svc.Callback(ctx, "youtube", "code-2", state, "", "")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 1, p.exchangeCalls)
}

func TestService_PKCEVerifierWrongLength_RejectedBeforeNetwork(t *testing.T) {
	p := &stubProvider{name: "twitter", variant: VariantAuthorizationCodePKCE}
	svc, _ := newTestService(t, p)

	codec, err := NewStateCodec(testStateSecret)
	require.NoError(t, err)
	raw, err := codec.Sign(StateClaims{
		UserID:   uuid.NewString(),
		Provider: "twitter",
		Nonce:    NewNonce(),
		Verifier: "demasiado-corto",
	})
	require.NoError(t, err)

	_, err = svc.Callback(context.Background(), "twitter", "el-code", raw, "", "")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, p.exchangeCalls)
}

func TestService_StateProviderMismatch_Rejected(t *testing.T) {
	p := &stubProvider{name: "linkedin", variant: VariantAuthorizationCode}
	svc, _ := newTestService(t, p)
	ctx := context.Background()

	authURL, err := svc.Start(ctx, uuid.NewString(), "linkedin")
	require.NoError(t, err)
	u, _ := url.Parse(authURL)
	state := u.Query().Get("state")

	// el state era para linkedin pero el callback llega por otro provider
	reg := NewRegistry()
	otro := &stubProvider{name: "otro", variant: VariantAuthorizationCode}
	reg.RegisterFactory("otro", func(cfg Config) (Provider, error) { return otro, nil })
	require.NoError(t, reg.Configure("otro", Config{ClientID: "x", ClientSecret: "y", RedirectURI: "z"}))

	codec, _ := NewStateCodec(testStateSecret)
	svc2 := NewService(reg, memory.New(), codec, NewMemoryNonceStore(), zap.NewNop())
	_, err = svc2.Callback(ctx, "otro", "code", state, "", "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestService_MissingCode_Rejected(t *testing.T) {
	p := &stubProvider{name: "facebook", variant: VariantAuthorizationCode}
	svc, _ := newTestService(t, p)
	ctx := context.Background()

	authURL, err := svc.Start(ctx, uuid.NewString(), "facebook")
	require.NoError(t, err)
	u, _ := url.Parse(authURL)

	_, err = svc.Callback(ctx, "facebook", "", u.Query().Get("state"), "", "")
	assert.ErrorIs(t, err, ErrExchange)
	assert.Equal(t, 0, p.exchangeCalls)
}

func TestService_ProfileFailure_DegradedWhenOptional(t *testing.T) {
	p := &stubProvider{name: "linkedin", variant: VariantAuthorizationCode, failProfile: true}
	svc, mem := newTestService(t, p)
	ctx := context.Background()
	userID := uuid.NewString()

	authURL, err := svc.Start(ctx, userID, "linkedin")
	require.NoError(t, err)
	u, _ := url.Parse(authURL)

	res, err := svc.Callback(ctx, "linkedin", "code", u.Query().Get("state"), "", "")
	require.NoError(t, err)
	assert.True(t, res.Degraded)

	// el token quedó persistido con metadata degradada
	cred, err := mem.Get(ctx, userID, "linkedin")
	require.NoError(t, err)
	assert.True(t, cred.Connected)
	assert.True(t, cred.Metadata.Degraded)
	assert.Empty(t, cred.AccountID)
}

func TestService_ProfileFailure_FatalWhenRequired(t *testing.T) {
	p := &stubProvider{name: "instagram", variant: VariantAuthorizationCode, failProfile: true, profileRequired: true}
	svc, mem := newTestService(t, p)
	ctx := context.Background()
	userID := uuid.NewString()

	authURL, err := svc.Start(ctx, userID, "instagram")
	require.NoError(t, err)
	u, _ := url.Parse(authURL)

	_, err = svc.Callback(ctx, "instagram", "code", u.Query().Get("state"), "", "")
	assert.ErrorIs(t, err, ErrProfileFetch)

	// nada se persistió
	_, err = mem.Get(ctx, userID, "instagram")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_PlainVariant_NoChallengeInURL(t *testing.T) {
	p := &stubProvider{name: "facebook", variant: VariantAuthorizationCode}
	svc, _ := newTestService(t, p)

	authURL, err := svc.Start(context.Background(), uuid.NewString(), "facebook")
	require.NoError(t, err)
	assert.False(t, strings.Contains(authURL, "code_challenge"))
}
