// Package session keeps a storefront client's authentication state in one
// place and in sync with the auth server.
//
// Composition:
//   - Runtime is built once at application start. It owns the event bus, the
//     Store and the Refresher and passes the same instances to every consumer,
//     including code that never subscribes to anything (HTTP transports,
//     background jobs).
//   - Runtime.Mount creates the Provider, the only writer of session state. The
//     provider boots with a silent refresh, performs login, registration and
//     logout through Actions, and follows refreshes performed elsewhere.
//
// Reading state:
//   - Store exposes synchronous getters (UserID, UserName, UserRole, Token,
//     IsAuthorized, IsModerator, IsAdmin) and Subscribe for reactive consumers.
//     A nil *State means logged out; a guest role is still a session.
//   - Store.IsAuthorized compares against the raw token expiry. Code about to
//     issue a request should call Refresher.ValidateToken instead, which keeps a
//     one minute safety buffer and refreshes when needed.
//
// Roles:
//   - RoleMask maps User, Operator and Administrator to 1, 2 and 4. IsModerator
//     compares ordinally (mask >= Operator) while IsAdmin tests the
//     administrator bit.
//
// Events:
//   - TopicTokenRefreshed, TopicTokenInvalid, TopicSessionChanged and
//     TopicStatusChanged are published on the runtime bus (package eventbus).
package session
