package session

import (
	"context"
	"fmt"
	"time"
)

// Logger is the logging contract used across the package. It matches the
// leveled methods of glog loggers so those can be injected directly: args are
// key/value pairs, not format arguments.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DefaultFailureMessage is surfaced when a network action fails without a
// server provided message.
const DefaultFailureMessage = "Something went wrong. Please try again later."

// Result is the structured outcome of a network action. Failures carry a user
// facing message instead of an error.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Failed builds a failure result, falling back to DefaultFailureMessage.
func Failed(message string) Result {
	if message == "" {
		message = DefaultFailureMessage
	}
	return Result{Success: false, Message: message}
}

// Succeeded builds a success result.
func Succeeded(message string) Result {
	return Result{Success: true, Message: message}
}

// LoginResult is the outcome of a login call. Claims is set on success.
type LoginResult struct {
	Result
	Claims *Claims `json:"claims,omitempty"`
}

// Actions are the network calls the session core depends on. Implementations
// convert transport and decode failures into failure results, or a nil claims
// value for Refresh.
type Actions interface {
	// Refresh exchanges the ambient credential (for example a cookie) for a
	// fresh token. A nil claims value means no session could be obtained.
	Refresh(ctx context.Context) (*Claims, error)
	Login(ctx context.Context, username, password string) LoginResult
	Register(ctx context.Context, username, password, email string) Result
	Logout(ctx context.Context) Result
}

// Clock returns the current time. Tests inject fixed clocks.
type Clock func() time.Time

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println(append([]any{"[DBG] SESSION " + msg}, args...)...)
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println(append([]any{"[INF] SESSION " + msg}, args...)...)
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println(append([]any{"[WRN] SESSION " + msg}, args...)...)
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println(append([]any{"[ERR] SESSION " + msg}, args...)...)
}
