package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	session "github.com/goliatone/go-session"
	"github.com/goliatone/go-session/activitymap"
	"github.com/goliatone/go-session/client"
	"github.com/gosuri/uitable"
	"github.com/urfave/cli/v2"
)

func newLogger(c *cli.Context) *glog.BaseLogger {
	if c.Bool(flagDebug) {
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName("storefront"),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	}
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("storefront"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}

func getConfig(c *cli.Context) (client.Config, error) {
	var cfg client.Config
	if server := c.String(flagServer); server != "" {
		cfg = client.DefaultConfig(server)
	} else {
		loaded, err := client.LoadConfig("")
		if err != nil {
			return cfg, errors.Wrap(err, errors.CategoryValidation, "no storefront server configured, use --server")
		}
		cfg = loaded
	}
	if c.Bool(flagInsecure) {
		cfg.AllowInsecure = true
	}
	return cfg, nil
}

// commander holds what the command actions share.
type commander struct {
	clientOpts []client.Option
}

// newRuntime wires a client and a session runtime that share one logger. The
// returned release func closes the audit log, if any.
func (cmd *commander) newRuntime(c *cli.Context) (*client.Client, *session.Runtime, func(), error) {
	release := func() {}

	cfg, err := getConfig(c)
	if err != nil {
		return nil, nil, release, err
	}

	lgr := newLogger(c)

	opts := append([]client.Option{client.WithLogger(lgr.GetLogger("client"))}, cmd.clientOpts...)
	api, err := client.New(cfg, opts...)
	if err != nil {
		return nil, nil, release, err
	}

	sessionLogger := lgr.GetLogger("session")
	sinks := []session.ActivitySink{
		activitymap.Sink(func(_ context.Context, record activitymap.Record) error {
			sessionLogger.Debug("activity",
				"verb", record.Verb,
				"actor_id", record.ActorID,
				"metadata", record.Metadata,
			)
			return nil
		}, activitymap.WithChannel("cli")),
	}

	if path := c.String(flagAudit); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, release, errors.Wrap(err, errors.CategoryOperation, "failed to open audit log")
		}
		release = func() { f.Close() }
		enc := json.NewEncoder(f)
		sinks = append(sinks, activitymap.Sink(func(_ context.Context, record activitymap.Record) error {
			return enc.Encode(record)
		}, activitymap.WithChannel("cli")))
	}

	rt, err := session.NewRuntime(api,
		session.WithLogger(sessionLogger),
		session.WithActivitySink(session.ActivitySinks(sinks...)),
	)
	if err != nil {
		release()
		return nil, nil, func() {}, err
	}

	return api, rt, release, nil
}

func readPassword(c *cli.Context) (string, error) {
	password := c.String(flagPassword)
	for password == "" {
		prompt := &survey.Password{
			Message: "Password",
		}
		if err := survey.AskOne(prompt, &password); err != nil {
			return "", err
		}
	}
	return password, nil
}

func validateOutputFormat(output string) error {
	switch strings.ToLower(output) {
	case "table", "json":
		return nil
	default:
		return errors.New(fmt.Sprintf("unknown output format %q", output), errors.CategoryValidation)
	}
}

type sessionView struct {
	Status    session.Status `json:"status"`
	UserID    string         `json:"user_id,omitempty"`
	UserName  string         `json:"user_name,omitempty"`
	Role      string         `json:"role,omitempty"`
	RoleMask  string         `json:"role_mask"`
	ExpiresAt string         `json:"expires_at,omitempty"`
}

func viewOf(status session.Status, state *session.State) sessionView {
	view := sessionView{
		Status:   status,
		RoleMask: session.RoleGuest.String(),
	}
	if state == nil {
		return view
	}
	view.UserID = state.UserID
	view.UserName = state.UserName
	view.Role = state.Role
	view.RoleMask = state.RoleMask.String()
	view.ExpiresAt = state.ExpiresAt.Local().Format(time.RFC3339)
	return view
}

func printSession(w io.Writer, output string, status session.Status, state *session.State) error {
	view := viewOf(status, state)

	switch strings.ToLower(output) {
	case "json":
		fmt.Fprintln(w, print.MaybeHighlightJSON(view))
	default:
		table := uitable.New()
		table.AddRow("STATUS", "USER ID", "USER NAME", "ROLE", "EXPIRES AT")
		table.AddRow(view.Status, view.UserID, view.UserName, view.RoleMask, view.ExpiresAt)
		fmt.Fprintln(w, table)
	}
	return nil
}
