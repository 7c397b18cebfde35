package session

import "github.com/goliatone/go-session/eventbus"

var (
	// TopicTokenRefreshed carries the claims of a background refresh, or nil
	// when the refresh failed.
	TopicTokenRefreshed = eventbus.Topic[*Claims]("session.token.refreshed")
	// TopicTokenInvalid follows a nil TopicTokenRefreshed when no token could
	// be obtained.
	TopicTokenInvalid = eventbus.Topic[struct{}]("session.token.invalid")
	// TopicSessionChanged carries every replacement of the store state.
	TopicSessionChanged = eventbus.Topic[*State]("session.changed")
	// TopicStatusChanged carries provider status transitions.
	TopicStatusChanged = eventbus.Topic[StatusChange]("session.status.changed")
)

// StatusChange describes a provider status transition.
type StatusChange struct {
	From Status
	To   Status
}
