package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/eduhub/internal/crypto"
	"github.com/iudanet/eduhub/internal/models"
	"github.com/iudanet/eduhub/internal/server/auth"
	"github.com/iudanet/eduhub/internal/server/handlers"
	"github.com/iudanet/eduhub/internal/server/jwt"
	"github.com/iudanet/eduhub/internal/server/metrics"
	"github.com/iudanet/eduhub/internal/server/storage"
	"github.com/iudanet/eduhub/internal/server/storage/boltdb"
	"github.com/iudanet/eduhub/internal/server/storage/sqlite"
	"github.com/iudanet/eduhub/pkg/api"
)

type envelope[T any] struct {
	Data       T      `json:"data"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
}

type pingableStore interface {
	storage.UserStorage
	handlers.Pinger
}

type storeFactory func(t *testing.T) pingableStore

var stores = map[string]storeFactory{
	"sqlite": func(t *testing.T) pingableStore {
		s, err := sqlite.New(context.Background(), ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	},
	"bolt": func(t *testing.T) pingableStore {
		s, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "users.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	},
}

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, factory storeFactory) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := factory(t)

	issuer, err := jwt.NewIssuer(jwt.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	require.NoError(t, err)

	m := metrics.New()
	svc := auth.NewService(logger, store, crypto.NewPasswordHasher(bcrypt.MinCost), issuer, auth.Options{}, m)

	srv := httptest.NewServer(NewRouter(Deps{
		Logger:  logger,
		Service: svc,
		Store:   store,
		Metrics: m,
		Version: "test",
		// httptest serves plain http, where a cookie jar drops Secure cookies
		Cookies: handlers.CookieConfig{Secure: false},
	}))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv}
}

// client has its own cookie jar, like a browser
func (s *testServer) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func do(t *testing.T, c *http.Client, method, target string, body any, header http.Header) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, target, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func decode[T any](t *testing.T, data []byte) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(data, &env), string(data))
	return env
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestAliceScenario(t *testing.T) {
	for name, factory := range stores {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t, factory)
			// The body channel only: no cookies involved.
			c := &http.Client{}

			resp, data := do(t, c, http.MethodPost, ts.URL+"/api/v1/users/register", api.RegisterRequest{
				Username: "alice",
				Email:    "alice@x.com",
				FullName: "Alice",
				Password: "secret123",
			}, nil)
			require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
			alice := decode[models.PublicUser](t, data).Data

			resp, data = do(t, c, http.MethodPost, ts.URL+"/api/v1/users/login", api.LoginRequest{
				Email:    "alice@x.com",
				Password: "secret123",
			}, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
			t1 := decode[api.LoginResponse](t, data).Data
			assert.Equal(t, alice.ID, t1.User.ID)

			resp, data = do(t, c, http.MethodGet, ts.URL+"/api/v1/users/me", nil, bearer(t1.AccessToken))
			require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
			assert.Equal(t, alice.ID, decode[models.PublicUser](t, data).Data.ID)

			resp, data = do(t, c, http.MethodPost, ts.URL+"/api/v1/users/refresh-token", api.RefreshRequest{
				RefreshToken: t1.RefreshToken,
			}, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
			t2 := decode[api.TokenResponse](t, data).Data
			assert.NotEqual(t, t1.RefreshToken, t2.RefreshToken)

			resp, data = do(t, c, http.MethodPost, ts.URL+"/api/v1/users/refresh-token", api.RefreshRequest{
				RefreshToken: t1.RefreshToken,
			}, nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, string(data))

			resp, _ = do(t, c, http.MethodPost, ts.URL+"/api/v1/users/refresh-token", api.RefreshRequest{
				RefreshToken: t1.RefreshToken,
			}, nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			// T2 is still the live session.
			resp, data = do(t, c, http.MethodPost, ts.URL+"/api/v1/users/refresh-token", api.RefreshRequest{
				RefreshToken: t2.RefreshToken,
			}, nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode, string(data))
		})
	}
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t, stores["sqlite"])
	c := &http.Client{}

	resp, _ := do(t, c, http.MethodPost, ts.URL+"/api/v1/users/register", api.RegisterRequest{
		Username: "alice", Email: "alice@x.com", FullName: "Alice", Password: "secret123",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, data := do(t, c, http.MethodPost, ts.URL+"/api/v1/users/login", api.LoginRequest{
		Email: "bob@x.com", Password: "secret123",
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp api.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &errResp))
	assert.False(t, errResp.Success)
	assert.Equal(t, http.StatusNotFound, errResp.StatusCode)
	assert.NotNil(t, errResp.Errors)

	resp, _ = do(t, c, http.MethodPost, ts.URL+"/api/v1/users/login", api.LoginRequest{
		Email: "alice@x.com", Password: "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCookieSession(t *testing.T) {
	ts := newTestServer(t, stores["sqlite"])
	c := ts.client(t)

	resp, _ := do(t, c, http.MethodPost, ts.URL+"/api/v1/users/register", api.RegisterRequest{
		Username: "alice", Email: "alice@x.com", FullName: "Alice", Password: "secret123",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, c, http.MethodPost, ts.URL+"/api/v1/users/login", api.LoginRequest{
		Email: "alice@x.com", Password: "secret123",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	require.Len(t, c.Jar.Cookies(u), 2)

	// Everything below rides on cookies only.
	resp, data := do(t, c, http.MethodGet, ts.URL+"/api/v1/users/me", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = do(t, c, http.MethodPost, ts.URL+"/api/v1/users/refresh-token", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = do(t, c, http.MethodPatch, ts.URL+"/api/v1/users/change-password", api.ChangePasswordRequest{
		OldPassword: "secret123", NewPassword: "newsecret456",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = do(t, c, http.MethodPost, ts.URL+"/api/v1/users/logout", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Empty(t, c.Jar.Cookies(u), "logout clears both cookies")

	resp, _ = do(t, c, http.MethodGet, ts.URL+"/api/v1/users/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, c, http.MethodPost, ts.URL+"/api/v1/users/refresh-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, stores["sqlite"])
	c := &http.Client{}

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/users/logout"},
		{http.MethodPatch, "/api/v1/users/change-password"},
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodPatch, "/api/v1/users/update-account"},
		{http.MethodPost, "/api/v1/users/lookup"},
		{http.MethodGet, "/api/v1/users/some-id"},
		{http.MethodDelete, "/api/v1/users/some-id"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			resp, _ := do(t, c, rt.method, ts.URL+rt.path, nil, nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, stores["sqlite"])
	c := &http.Client{}

	resp, data := do(t, c, http.MethodGet, ts.URL+"/api/v1/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[handlers.HealthResponse](t, data).Data.Status)

	resp, _ = do(t, c, http.MethodPost, ts.URL+"/api/v1/users/login", api.LoginRequest{
		Email: "nobody@x.com", Password: "secret123",
	}, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, data = do(t, c, http.MethodGet, ts.URL+"/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := string(data)
	assert.Contains(t, body, `eduhub_auth_operations_total{operation="login",outcome="not_found"} 1`)
	assert.Contains(t, body, `eduhub_http_requests_total{method="POST",route="POST /api/v1/users/login",status="404"} 1`)
}

func TestRun_GracefulShutdown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(ln.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, logger, srv, ln, time.Second) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
