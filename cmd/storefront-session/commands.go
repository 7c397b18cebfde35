package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	session "github.com/goliatone/go-session"
	"github.com/goliatone/go-session/client"
	"github.com/urfave/cli/v2"
)

func (cmd *commander) login(c *cli.Context) error {
	output := c.String(flagOutput)
	if err := validateOutputFormat(output); err != nil {
		return err
	}

	password, err := readPassword(c)
	if err != nil {
		return err
	}

	api, rt, release, err := cmd.newRuntime(c)
	if err != nil {
		return err
	}
	defer release()

	p, err := rt.Mount(c.Context)
	if err != nil {
		return err
	}
	defer p.Unmount()

	res := p.Login(c.Context, c.String(flagUsername), password)
	if !res.Success {
		return errors.New(res.Message, errors.CategoryAuth).WithTextCode("LOGIN_FAILED")
	}

	if err := printSession(c.App.Writer, output, p.Status(), p.Session()); err != nil {
		return err
	}

	if path := c.String(flagFetch); path != "" {
		if err := fetch(c.Context, c.App.Writer, api, rt, path); err != nil {
			return err
		}
	}

	if c.Bool(flagWatch) {
		watch(c.Context, c.App.Writer, rt, p, output, c.Duration(flagInterval))
	}

	// the signal context may already be done
	logoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if res := p.Logout(logoutCtx); !res.Success {
		fmt.Fprintf(c.App.Writer, "logout failed: %s\n", res.Message)
	}
	return nil
}

func (cmd *commander) register(c *cli.Context) error {
	password, err := readPassword(c)
	if err != nil {
		return err
	}

	_, rt, release, err := cmd.newRuntime(c)
	if err != nil {
		return err
	}
	defer release()

	p, err := rt.Mount(c.Context)
	if err != nil {
		return err
	}
	defer p.Unmount()

	res := p.Register(c.Context, c.String(flagUsername), password, c.String(flagEmail))
	if !res.Success {
		return errors.New(res.Message, errors.CategoryValidation).WithTextCode("REGISTER_FAILED")
	}

	message := res.Message
	if message == "" {
		message = "Account registered."
	}
	fmt.Fprintln(c.App.Writer, message)
	return nil
}

func (cmd *commander) status(c *cli.Context) error {
	output := c.String(flagOutput)
	if err := validateOutputFormat(output); err != nil {
		return err
	}

	_, rt, release, err := cmd.newRuntime(c)
	if err != nil {
		return err
	}
	defer release()

	p, err := rt.Mount(c.Context)
	if err != nil {
		return err
	}
	defer p.Unmount()

	return printSession(c.App.Writer, output, p.Status(), p.Session())
}

func fetch(ctx context.Context, w io.Writer, api *client.Client, rt *session.Runtime, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.Resolve(path), nil)
	if err != nil {
		return err
	}

	resp, err := api.AuthorizedHTTPClient(rt).Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "fetch failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %s\n%s\n", resp.Status, path, body)
	return nil
}

func watch(ctx context.Context, w io.Writer, rt *session.Runtime, p *session.Provider, output string, interval time.Duration) {
	unsubscribe := p.OnStatusChange(func(change session.StatusChange) {
		fmt.Fprintf(w, "status %s -> %s\n", change.From, change.To)
	})
	defer unsubscribe()

	unsubscribeState := p.Subscribe(func(state *session.State) {
		_ = printSession(w, output, p.Status(), state)
	})
	defer unsubscribeState()

	if err := rt.Refresher().KeepAlive(ctx, interval); err != nil && ctx.Err() == nil {
		fmt.Fprintf(w, "keep alive stopped: %s\n", err)
	}
}
