package devserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	session "github.com/goliatone/go-session"
	"github.com/goliatone/go-session/client"
	"github.com/goliatone/go-session/devserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appTransport routes client requests into the fiber app without a listener.
type appTransport struct {
	app *fiber.App
}

func (t appTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.app.Test(req, -1)
}

func newSessionStack(t *testing.T, srv *devserver.Server) (*client.Client, *session.Runtime) {
	t.Helper()
	c, err := client.New(
		client.DefaultConfig("http://storefront.test"),
		client.WithTransport(appTransport{app: srv.App()}),
	)
	require.NoError(t, err)

	rt, err := session.NewRuntime(c)
	require.NoError(t, err)
	return c, rt
}

func fetchProfile(t *testing.T, c *client.Client, rt *session.Runtime) (int, devserver.ProfileResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.Resolve("/api/auth/me"), nil)
	require.NoError(t, err)

	resp, err := c.AuthorizedHTTPClient(rt).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	profile := devserver.ProfileResponse{}
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	}
	return resp.StatusCode, profile
}

func TestSessionLifecycleAgainstDevServer(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, testConfig())
	c, rt := newSessionStack(t, srv)

	p, err := rt.Mount(ctx)
	require.NoError(t, err)
	defer p.Unmount()
	require.Equal(t, session.StatusAnonymous, p.Status())

	status, _ := fetchProfile(t, c, rt)
	assert.Equal(t, http.StatusUnauthorized, status)

	res := p.Register(ctx, "alice", "secret-password", "alice@example.com")
	require.True(t, res.Success, res.Message)
	require.Nil(t, p.Session())

	res = p.Login(ctx, "alice", "wrong-password")
	require.False(t, res.Success)
	assert.Equal(t, "Invalid credentials.", res.Message)
	assert.Nil(t, p.Session())

	res = p.Login(ctx, "alice", "secret-password")
	require.True(t, res.Success, res.Message)
	require.Equal(t, session.StatusAuthenticated, p.Status())

	state := p.Session()
	require.NotNil(t, state)
	assert.Equal(t, "alice", state.UserName)
	assert.Equal(t, devserver.RoleUser, state.Role)
	assert.True(t, rt.Store().IsAuthorized())
	assert.True(t, rt.Refresher().IsTokenValid())

	status, profile := fetchProfile(t, c, rt)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, state.UserID, profile.ID)

	// force the next request through a refresh
	rt.Refresher().UpdateExpireDate(time.Now().Add(session.SafetyBuffer))
	previousToken, _ := rt.Store().Token()

	status, _ = fetchProfile(t, c, rt)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, rt.Refresher().IsTokenValid())
	newToken, ok := rt.Store().Token()
	require.True(t, ok)
	assert.NotEqual(t, previousToken, newToken)

	res = p.Logout(ctx)
	require.True(t, res.Success, res.Message)
	assert.Nil(t, p.Session())
	assert.True(t, rt.Refresher().ExpiresAt().IsZero())

	_, ok = rt.Refresher().Refresh(ctx)
	assert.False(t, ok, "refresh cookie is revoked on logout")
}

func TestBootRestoresSessionFromCookie(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, testConfig())
	c, rt := newSessionStack(t, srv)

	register(t, srv, "bob", "secret-password")
	require.True(t, c.Login(ctx, "bob", "secret-password").Success)

	p, err := rt.Mount(ctx)
	require.NoError(t, err)
	defer p.Unmount()

	assert.Equal(t, session.StatusAuthenticated, p.Status())
	name, ok := rt.Store().UserName()
	require.True(t, ok)
	assert.Equal(t, "bob", name)
}

func TestCancelledRequestKeepsSession(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, testConfig())
	c, rt := newSessionStack(t, srv)

	register(t, srv, "carol", "secret-password")

	p, err := rt.Mount(ctx)
	require.NoError(t, err)
	defer p.Unmount()
	require.True(t, p.Login(ctx, "carol", "secret-password").Success)

	// inside the safety buffer, the next request would refresh first
	rt.Refresher().UpdateExpireDate(time.Now().Add(session.SafetyBuffer / 2))

	reqCtx, cancel := context.WithCancel(ctx)
	cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.Resolve("/api/auth/me"), nil)
	require.NoError(t, err)

	// the in-process transport may still answer; only the session matters here
	if resp, err := c.AuthorizedHTTPClient(rt).Do(req); err == nil {
		resp.Body.Close()
	}

	assert.Equal(t, session.StatusAuthenticated, p.Status())
	require.NotNil(t, p.Session())

	status, profile := fetchProfile(t, c, rt)
	require.Equal(t, http.StatusOK, status, "the session still refreshes for a live request")
	assert.Equal(t, "carol", profile.Username)
}
