package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/weatherdash/internal/common"
	"github.com/dmitrijs2005/weatherdash/internal/logging"
	"github.com/dmitrijs2005/weatherdash/internal/server/auth"
	"github.com/dmitrijs2005/weatherdash/internal/server/models"
	"github.com/dmitrijs2005/weatherdash/internal/server/observability"
	"github.com/dmitrijs2005/weatherdash/internal/server/services"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("0123456789abcdef-rest")

var ada = &models.Profile{ID: "u-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}

type fakeAccounts struct {
	registerErr error
	authErr     error
	profileErr  error
	gotRegister services.RegisterInput
	calls       int
}

func (f *fakeAccounts) Register(_ context.Context, in services.RegisterInput) (*services.AuthResult, error) {
	f.gotRegister = in
	f.calls++
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &services.AuthResult{Token: "tok", User: ada}, nil
}

func (f *fakeAccounts) Authenticate(_ context.Context, email, password string) (*services.AuthResult, error) {
	f.calls++
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &services.AuthResult{Token: "tok", User: ada}, nil
}

func (f *fakeAccounts) Profile(_ context.Context, userID string) (*models.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	p := *ada
	p.ID = userID
	return &p, nil
}

type testServer struct {
	router  *gin.Engine
	issuer  *auth.Issuer
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, accounts Accounts, ready observability.ReadinessChecker) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	iss, err := auth.NewIssuer(secret, time.Hour)
	require.NoError(t, err)

	reg, metrics := observability.NewRegistry()
	r := NewRouter(RouterDeps{
		Accounts: accounts,
		Gate:     auth.NewGate(auth.NewVerifier(secret)),
		Logger:   logging.Nop{},
		Metrics:  metrics,
		Registry: reg,
		Ready:    ready,
	})
	return &testServer{router: r, issuer: iss, metrics: metrics}
}

func (s *testServer) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

const registerBody = `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","password":"analytical"}`

func TestRegister_Envelope(t *testing.T) {
	accounts := &fakeAccounts{}
	s := newTestServer(t, accounts, nil)

	rec := s.do(http.MethodPost, "/api/users", registerBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, common.MessageSignupSuccessful, body["message"])
	assert.Equal(t, "tok", body["token"])
	assert.Equal(t, map[string]any{
		"id": "u-1", "firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com",
	}, body["user"])
	assert.NotContains(t, rec.Body.String(), "password")

	assert.Equal(t, services.RegisterInput{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "analytical",
	}, accounts.gotRegister)
}

func TestRegister_Failures(t *testing.T) {
	verrs := validation.Errors{"email": errors.New("must be a valid email address")}

	tests := []struct {
		name    string
		body    string
		err     error
		status  int
		message string
	}{
		{"duplicate", registerBody, common.ErrAccountExists, http.StatusConflict, common.MessageAccountExists},
		{"validation", registerBody, fmt.Errorf("%w: %w", common.ErrValidation, verrs), http.StatusBadRequest, "email: must be a valid email address."},
		{"server fault", registerBody, common.ErrorInternal, http.StatusInternalServerError, common.MessageServerError},
		{"unexpected error", registerBody, errors.New("boom"), http.StatusInternalServerError, common.MessageServerError},
		{"malformed json", `{"firstName":`, nil, http.StatusBadRequest, messageBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeAccounts{registerErr: tt.err}, nil)

			rec := s.do(http.MethodPost, "/api/users", tt.body, nil)
			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decode(t, rec)["message"])
		})
	}
}

func TestRegister_ValidationFieldMap(t *testing.T) {
	verrs := validation.Errors{"password": errors.New("the length must be between 6 and 128")}
	s := newTestServer(t, &fakeAccounts{registerErr: fmt.Errorf("%w: %w", common.ErrValidation, verrs)}, nil)

	rec := s.do(http.MethodPost, "/api/users", registerBody, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"password": "the length must be between 6 and 128"}, decode(t, rec)["errors"])
}

func TestAuthenticate_Envelope(t *testing.T) {
	s := newTestServer(t, &fakeAccounts{}, nil)

	rec := s.do(http.MethodPost, "/api/auth", `{"email":"ada@example.com","password":"analytical"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "tok", body["token"])
	assert.NotContains(t, body, "message")
	assert.Equal(t, "u-1", body["user"].(map[string]any)["id"])
}

func TestAuthenticate_Failures(t *testing.T) {
	s := newTestServer(t, &fakeAccounts{authErr: common.ErrInvalidCredentials}, nil)
	rec := s.do(http.MethodPost, "/api/auth", `{"email":"ada@example.com","password":"nope"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, common.MessageInvalidCredentials, decode(t, rec)["message"])

	s = newTestServer(t, &fakeAccounts{authErr: common.ErrorInternal}, nil)
	rec = s.do(http.MethodPost, "/api/auth", `{"email":"ada@example.com","password":"nope"}`, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, common.MessageServerError, decode(t, rec)["message"])
}

func TestOversizedBody(t *testing.T) {
	accounts := &fakeAccounts{}
	s := newTestServer(t, accounts, nil)
	huge := strings.Repeat("a", MaxBodyBytes+1)

	for _, path := range []string{"/api/auth", "/api/users"} {
		rec := s.do(http.MethodPost, path, `{"email":"ada@example.com","password":"`+huge+`"}`, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, messageBadRequest, decode(t, rec)["message"])
	}
	assert.Zero(t, accounts.calls)

	rec := s.do(http.MethodPost, "/api/auth", `{"email":"ada@example.com","password":"analytical"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMe_RequiresToken(t *testing.T) {
	s := newTestServer(t, &fakeAccounts{}, nil)

	tok, err := s.issuer.Issue("u-77")
	require.NoError(t, err)

	expiredIss, err := auth.NewIssuer(secret, time.Minute, auth.WithClock(func() time.Time {
		return time.Now().Add(-time.Hour)
	}))
	require.NoError(t, err)
	expired, err := expiredIss.Issue("u-77")
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/users/me", "", http.Header{"Authorization": {"Bearer " + tok}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u-77", decode(t, rec)["user"].(map[string]any)["id"])
	})

	rejects := map[string]http.Header{
		"no header":     nil,
		"wrong scheme":  {"Authorization": {"Token " + tok}},
		"garbage token": {"Authorization": {"Bearer xyz"}},
		"expired":       {"Authorization": {"Bearer " + expired}},
	}
	bodies := map[string]bool{}
	for name, h := range rejects {
		t.Run(name, func(t *testing.T) {
			rec := s.do(http.MethodGet, "/api/users/me", "", h)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, common.MessageUnauthenticated, decode(t, rec)["message"])
			bodies[rec.Body.String()] = true
		})
	}
	// every rejection looks the same to the client
	assert.Len(t, bodies, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.GateRejections.WithLabelValues(string(auth.ReasonExpired))))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.GateRejections.WithLabelValues(string(auth.ReasonNoToken))))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.GateRejections.WithLabelValues(string(auth.ReasonMalformed))))
}

func TestMe_MissingAccount(t *testing.T) {
	s := newTestServer(t, &fakeAccounts{profileErr: common.ErrUnauthenticated}, nil)
	tok, err := s.issuer.Issue("gone")
	require.NoError(t, err)

	rec := s.do(http.MethodGet, "/api/users/me", "", http.Header{"Authorization": {"Bearer " + tok}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, common.MessageUnauthenticated, decode(t, rec)["message"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, &fakeAccounts{}, func(context.Context) error { return nil })

	rec := s.do(http.MethodGet, "/healthz/liveness", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/healthz/readiness", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))

	down := newTestServer(t, &fakeAccounts{}, func(context.Context) error { return errors.New("db down") })
	rec = down.do(http.MethodGet, "/healthz/readiness", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	s := newTestServer(t, &fakeAccounts{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSConfig_Origins(t *testing.T) {
	cfg := corsConfig([]string{"https://weather.example.com"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"https://weather.example.com"}, cfg.AllowOrigins)

	assert.True(t, corsConfig(nil).AllowAllOrigins)
	assert.True(t, corsConfig([]string{"*"}).AllowAllOrigins)
}
