package devserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-session/devserver"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "devserver-test-key"

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func testConfig() devserver.Config {
	return devserver.Config{
		DSN:        fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		SigningKey: testSigningKey,
		TokenTTL:   15 * time.Minute,
		RefreshTTL: time.Hour,
		BcryptCost: 4,
	}
}

func newTestServer(t *testing.T, cfg devserver.Config, opts ...devserver.Option) *devserver.Server {
	t.Helper()
	srv, err := devserver.New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func postJSON(t *testing.T, srv *devserver.Server, path string, payload any, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	defer resp.Body.Close()
	out := map[string]string{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func refreshCookie(resp *http.Response) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "refresh_token" {
			return cookie
		}
	}
	return nil
}

func parseToken(t *testing.T, raw string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(testSigningKey), nil
	}, jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	return claims
}

func register(t *testing.T, srv *devserver.Server, username, password string) {
	t.Helper()
	resp := postJSON(t, srv, "/api/auth/register", map[string]string{
		"username": username,
		"password": password,
		"email":    username + "@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestNewRequiresSigningKey(t *testing.T) {
	cfg := testConfig()
	cfg.SigningKey = ""

	_, err := devserver.New(context.Background(), cfg)
	require.Error(t, err)

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, devserver.TextCodeInvalidConfig, richErr.TextCode)
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t, testConfig())

	register(t, srv, "alice", "secret-password")

	resp := postJSON(t, srv, "/api/auth/login", map[string]string{
		"username": "alice",
		"password": "secret-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := refreshCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/api/auth", cookie.Path)

	body := decodeBody(t, resp)
	require.NotEmpty(t, body["token"])

	claims := parseToken(t, body["token"])
	assert.Equal(t, "alice", claims["unique_name"])
	assert.Equal(t, devserver.RoleUser, claims["role"])
	assert.NotEmpty(t, claims["sub"])
	assert.NotEmpty(t, claims["jti"])
	assert.Contains(t, claims, "exp")
	assert.Contains(t, claims, "iat")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	srv := newTestServer(t, testConfig())
	register(t, srv, "alice", "secret-password")

	resp := postJSON(t, srv, "/api/auth/register", map[string]string{
		"username": "alice",
		"password": "another-password",
		"email":    "other@example.com",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, devserver.MessageAccountExists, decodeBody(t, resp)["message"])
}

func TestRegisterValidatesPayload(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp := postJSON(t, srv, "/api/auth/register", map[string]string{
		"username": "al",
		"password": "pw",
		"email":    "not-an-email",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, decodeBody(t, resp)["message"])
}

func TestLoginFailures(t *testing.T) {
	srv := newTestServer(t, testConfig())
	register(t, srv, "bob", "right-password")

	tests := map[string]map[string]string{
		"wrong password":   {"username": "bob", "password": "wrong"},
		"unknown user":     {"username": "nobody", "password": "whatever"},
		"missing password": {"username": "bob"},
	}

	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			resp := postJSON(t, srv, "/api/auth/login", payload)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Nil(t, refreshCookie(resp))
			assert.Equal(t, "Invalid credentials.", decodeBody(t, resp)["message"])
		})
	}
}

func TestRefreshRotatesCookie(t *testing.T) {
	srv := newTestServer(t, testConfig())
	register(t, srv, "alice", "secret-password")

	resp := postJSON(t, srv, "/api/auth/login", map[string]string{
		"username": "alice",
		"password": "secret-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := refreshCookie(resp)
	require.NotNil(t, first)
	resp.Body.Close()

	resp = postJSON(t, srv, "/api/auth/refresh", nil, first)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := refreshCookie(resp)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)
	assert.Equal(t, "alice", parseToken(t, decodeBody(t, resp)["token"])["unique_name"])

	resp = postJSON(t, srv, "/api/auth/refresh", nil, first)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "refresh credentials are single use")
	assert.Equal(t, devserver.MessageRefreshExpired, decodeBody(t, resp)["message"])
}

func TestRefreshWithoutCookie(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp := postJSON(t, srv, "/api/auth/refresh", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv, "/api/auth/refresh", nil, &http.Cookie{Name: "refresh_token", Value: uuid.NewString()})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRefreshExpired(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
	srv := newTestServer(t, testConfig(), devserver.WithClock(clock.Now))
	register(t, srv, "alice", "secret-password")

	resp := postJSON(t, srv, "/api/auth/login", map[string]string{
		"username": "alice",
		"password": "secret-password",
	})
	cookie := refreshCookie(resp)
	require.NotNil(t, cookie)
	resp.Body.Close()

	clock.now = clock.now.Add(2 * time.Hour)

	resp = postJSON(t, srv, "/api/auth/refresh", nil, &http.Cookie{Name: cookie.Name, Value: cookie.Value})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestLogoutRevokesRefresh(t *testing.T) {
	srv := newTestServer(t, testConfig())
	register(t, srv, "alice", "secret-password")

	resp := postJSON(t, srv, "/api/auth/login", map[string]string{
		"username": "alice",
		"password": "secret-password",
	})
	cookie := refreshCookie(resp)
	require.NotNil(t, cookie)
	resp.Body.Close()

	resp = postJSON(t, srv, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := refreshCookie(resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	resp.Body.Close()

	resp = postJSON(t, srv, "/api/auth/refresh", nil, cookie)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestSeedAdmin(t *testing.T) {
	cfg := testConfig()
	cfg.SeedAdminUsername = "root"
	cfg.SeedAdminPassword = "root-password"

	srv := newTestServer(t, cfg)

	account, err := srv.Repository().AccountByUsername(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, devserver.RoleAdministrator, account.Role)
	assert.Equal(t, "root@localhost", account.Email)

	resp := postJSON(t, srv, "/api/auth/login", map[string]string{
		"username": "root",
		"password": "root-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, devserver.RoleAdministrator, parseToken(t, decodeBody(t, resp)["token"])["role"])
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("AUTHD_SIGNING_KEY", "from-env")
	t.Setenv("AUTHD_TOKEN_TTL", "5m")

	cfg, err := devserver.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.SigningKey)
	assert.Equal(t, 5*time.Minute, cfg.TokenTTL)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "refresh_token", cfg.CookieName)
}

func TestMeRequiresValidBearer(t *testing.T) {
	srv := newTestServer(t, testConfig())
	register(t, srv, "alice", "secret-password")

	resp := postJSON(t, srv, "/api/auth/login", map[string]string{
		"username": "alice",
		"password": "secret-password",
	})
	token := decodeBody(t, resp)["token"]
	require.NotEmpty(t, token)

	tests := map[string]struct {
		header string
		status int
	}{
		"missing":       {header: "", status: http.StatusUnauthorized},
		"wrong scheme":  {header: "Basic " + token, status: http.StatusUnauthorized},
		"garbage":       {header: "Bearer not-a-token", status: http.StatusUnauthorized},
		"valid bearer":  {header: "Bearer " + token, status: http.StatusOK},
		"lower scheme":  {header: "bearer " + token, status: http.StatusOK},
		"empty bearer":  {header: "Bearer ", status: http.StatusUnauthorized},
		"tampered sign": {header: "Bearer " + token + "x", status: http.StatusUnauthorized},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := srv.App().Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, tt.status, resp.StatusCode)

			body := decodeBody(t, resp)
			if tt.status == http.StatusOK {
				assert.Equal(t, "alice", body["username"])
				assert.Equal(t, devserver.RoleUser, body["role"])
			} else {
				assert.Equal(t, devserver.MessageUnauthorized, body["message"])
			}
		})
	}
}
