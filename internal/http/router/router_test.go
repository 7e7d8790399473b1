package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/socialvault/internal/audit"
	"github.com/dropDatabas3/socialvault/internal/identity"
	"github.com/dropDatabas3/socialvault/internal/rate"
)

const testSecret = "secreto-identidad-para-tests"

func bearer(t *testing.T, sub string) string {
	t.Helper()
	now := time.Now().UTC()
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	})
	raw, err := tk.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + raw
}

func ok() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
}

func newTestRouter() http.Handler {
	deps := Deps{
		Verifier:       identity.NewJWTVerifier(testSecret, ""),
		Limiter:        rate.NewMemoryLimiter(),
		AuditSink:      audit.NewLogSink(zap.NewNop()),
		AllowedOrigins: []string{"https://app.example.com"},
		Log:            zap.NewNop(),
	}
	hs := Handlers{
		ConnectStart:    ok(),
		ConnectCallback: ok(),
		SaveKey:         ok(),
		ValidateKey:     ok(),
		DeleteKey:       ok(),
		RefreshCred:     ok(),
		ListCreds:       ok(),
		Disconnect:      ok(),
		Readyz:          ok(),
	}
	limits := Limits{
		ConnectStart: GateConfig{RateLimitKey: "connect.start", RateLimitMax: 20, AuditAction: "connect.start"},
		KeysSave:     GateConfig{RateLimitKey: "keys.save", RateLimitMax: 20, AuditAction: "keys.save"},
		KeysValidate: GateConfig{RateLimitKey: "keys.validate", RateLimitMax: 10},
		Refresh:      GateConfig{RateLimitKey: "credentials.refresh", RateLimitMax: 30},
	}
	return New(deps, hs, limits)
}

func TestRouter_GatedRouteRequiresBearer(t *testing.T) {
	h := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/credentials", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/credentials", nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_GatedRouteRejectsForeignOrigin(t *testing.T) {
	h := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/connect/twitter", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Authorization", bearer(t, "user-1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_CallbackSkipsOriginAndBearer(t *testing.T) {
	h := newTestRouter()

	// navegación top-level desde el provider: sin Origin propio ni bearer
	req := httptest.NewRequest(http.MethodGet, "/v1/connect/twitter/callback?code=x&state=y", nil)
	req.Header.Set("Referer", "https://accounts.provider.test/authorize")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ValidateBudgetExhausted(t *testing.T) {
	h := newTestRouter()

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/keys/validate", nil)
		req.Header.Set("Authorization", bearer(t, "user-1"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, do().Code, "intento %d dentro del cupo", i+1)
	}

	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "resetIn")
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRouter_ReadyzAndMetricsUngated(t *testing.T) {
	h := newTestRouter()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
