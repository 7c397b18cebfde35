package main

import (
	"testing"
	"time"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
)

func TestValidateOutputFormat(t *testing.T) {
	assert.NoError(t, validateOutputFormat("table"))
	assert.NoError(t, validateOutputFormat("JSON"))
	assert.Error(t, validateOutputFormat("yaml"))
}

func TestViewOf(t *testing.T) {
	view := viewOf(session.StatusAnonymous, nil)
	assert.Equal(t, session.StatusAnonymous, view.Status)
	assert.Equal(t, "Guest", view.RoleMask)
	assert.Empty(t, view.UserName)

	expires := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	view = viewOf(session.StatusAuthenticated, &session.State{
		UserID:    "42",
		UserName:  "alice",
		Role:      session.RoleNameAdministrator,
		RoleMask:  session.RoleAdministrator,
		ExpiresAt: expires,
	})
	assert.Equal(t, "alice", view.UserName)
	assert.Equal(t, "42", view.UserID)
	assert.Equal(t, session.RoleNameAdministrator, view.RoleMask)
	assert.Equal(t, expires.Local().Format(time.RFC3339), view.ExpiresAt)
}
