package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key")

// MockActions implements session.Actions
type MockActions struct {
	mock.Mock
}

func (m *MockActions) Refresh(ctx context.Context) (*session.Claims, error) {
	args := m.Called(ctx)
	claims, _ := args.Get(0).(*session.Claims)
	return claims, args.Error(1)
}

func (m *MockActions) Login(ctx context.Context, username, password string) session.LoginResult {
	args := m.Called(ctx, username, password)
	return args.Get(0).(session.LoginResult)
}

func (m *MockActions) Register(ctx context.Context, username, password, email string) session.Result {
	args := m.Called(ctx, username, password, email)
	return args.Get(0).(session.Result)
}

func (m *MockActions) Logout(ctx context.Context) session.Result {
	args := m.Called(ctx)
	return args.Get(0).(session.Result)
}

// testClock is a settable clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testSigningKey)
	require.NoError(t, err)
	return signed
}

func newClaims(t *testing.T, sub, name, role string, exp time.Time) *session.Claims {
	t.Helper()
	claims, err := session.DecodeClaims(signToken(t, jwt.MapClaims{
		"sub":         sub,
		"unique_name": name,
		"role":        role,
		"exp":         exp.Unix(),
		"iat":         exp.Add(-time.Hour).Unix(),
	}))
	require.NoError(t, err)
	return claims
}

// activityRecorder collects activity events
type activityRecorder struct {
	mu     sync.Mutex
	events []session.ActivityEvent
}

func (r *activityRecorder) Record(_ context.Context, event session.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *activityRecorder) types() []session.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type logCall struct {
	level   string
	message string
	args    []any
}

// captureLogger records log lines
type captureLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (l *captureLogger) record(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, message: msg, args: args})
}

func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }

func (l *captureLogger) entries() []logCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]logCall(nil), l.calls...)
}

func (l *captureLogger) levels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.calls))
	for _, c := range l.calls {
		out = append(out, c.level)
	}
	return out
}
