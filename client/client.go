package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	session "github.com/goliatone/go-session"
	"golang.org/x/net/publicsuffix"
)

const maxResponseBody = 1 << 20

// Client calls the storefront auth endpoints and implements session.Actions.
// The refresh credential travels as a cookie kept in the client's jar.
type Client struct {
	cfg       Config
	base      *url.URL
	jar       http.CookieJar
	transport http.RoundTripper
	http      *http.Client
	logger    session.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.transport = rt
		}
	}
}

// WithCookieJar replaces the cookie jar, for example to share it with other
// clients talking to the same storefront.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		if jar != nil {
			c.jar = jar
		}
	}
}

// WithLogger sets the logger used for transport and decode failures.
func WithLogger(logger session.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

type authResponse struct {
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

var _ session.Actions = (*Client)(nil)

// New returns a client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, withMetadata(ErrInvalidConfig, err, map[string]any{
			"base_url": cfg.BaseURL,
		})
	}

	defaults := DefaultConfig(cfg.BaseURL)
	if cfg.LoginPath == "" {
		cfg.LoginPath = defaults.LoginPath
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = defaults.RefreshPath
	}
	if cfg.RegisterPath == "" {
		cfg.RegisterPath = defaults.RegisterPath
	}
	if cfg.LogoutPath == "" {
		cfg.LogoutPath = defaults.LogoutPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	c := &Client{
		cfg:    cfg,
		base:   base,
		logger: nopLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, withMetadata(ErrInvalidConfig, err, nil)
		}
		c.jar = jar
	}

	if c.transport == nil {
		c.transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.AllowInsecure,
			},
		}
	}

	c.http = &http.Client{
		Transport: c.transport,
		Jar:       c.jar,
		Timeout:   cfg.Timeout,
	}

	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// HTTPClient returns the client used for the auth calls.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// AuthorizedHTTPClient returns an http.Client that validates the session and
// attaches the bearer token before every request.
func (c *Client) AuthorizedHTTPClient(rt *session.Runtime) *http.Client {
	return &http.Client{
		Transport: &BearerTransport{
			Base:      c.transport,
			Validator: rt.Refresher(),
			Source:    rt.Store(),
		},
		Jar:     c.jar,
		Timeout: c.cfg.Timeout,
	}
}

// Resolve joins path onto the base URL.
func (c *Client) Resolve(path string) string {
	return c.base.JoinPath(path).String()
}

// Refresh exchanges the refresh cookie for a new token.
func (c *Client) Refresh(ctx context.Context) (*session.Claims, error) {
	status, body, err := c.post(ctx, c.cfg.RefreshPath, nil)
	if err != nil {
		return nil, err
	}

	if !isSuccess(status) {
		return nil, withMetadata(ErrRefreshRejected, nil, map[string]any{
			"status":  status,
			"message": decodeMessage(body),
		})
	}

	return c.decodeToken(body)
}

// Login posts the credentials. Failures become results carrying the server
// message or session.DefaultFailureMessage.
func (c *Client) Login(ctx context.Context, username, password string) session.LoginResult {
	status, body, err := c.post(ctx, c.cfg.LoginPath, credentials{
		Username: username,
		Password: password,
	})
	if err != nil {
		c.logger.Debug("login request failed", "error", err)
		return session.LoginResult{Result: session.Failed("")}
	}

	if !isSuccess(status) {
		return session.LoginResult{Result: session.Failed(decodeMessage(body))}
	}

	claims, err := c.decodeToken(body)
	if err != nil {
		c.logger.Debug("login response could not be decoded", "error", err)
		return session.LoginResult{Result: session.Failed("")}
	}

	return session.LoginResult{
		Result: session.Succeeded(decodeMessage(body)),
		Claims: claims,
	}
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, username, password, email string) session.Result {
	status, body, err := c.post(ctx, c.cfg.RegisterPath, credentials{
		Username: username,
		Password: password,
		Email:    email,
	})
	if err != nil {
		c.logger.Debug("register request failed", "error", err)
		return session.Failed("")
	}

	if !isSuccess(status) {
		return session.Failed(decodeMessage(body))
	}
	return session.Succeeded(decodeMessage(body))
}

// Logout revokes the refresh cookie on the server.
func (c *Client) Logout(ctx context.Context) session.Result {
	status, body, err := c.post(ctx, c.cfg.LogoutPath, nil)
	if err != nil {
		c.logger.Debug("logout request failed", "error", err)
		return session.Failed("")
	}

	if !isSuccess(status) {
		return session.Failed(decodeMessage(body))
	}
	return session.Succeeded(decodeMessage(body))
}

func (c *Client) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(WithoutBearer(ctx), http.MethodPost, c.Resolve(path), reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, body, nil
}

func (c *Client) decodeToken(body []byte) (*session.Claims, error) {
	res := authResponse{}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, withMetadata(ErrUnexpectedResponse, err, nil)
	}
	if res.Token == "" {
		return nil, withMetadata(ErrUnexpectedResponse, fmt.Errorf("response has no token"), nil)
	}
	return session.DecodeClaims(res.Token)
}

func decodeMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	res := authResponse{}
	if err := json.Unmarshal(body, &res); err != nil {
		return ""
	}
	return res.Message
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
