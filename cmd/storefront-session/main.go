package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-session/client"
	"github.com/urfave/cli/v2"
)

func main() {
	app := newApp()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Printf("\n%s\n\n", err)
		stop()
		os.Exit(1)
	}
}

// newApp builds the CLI. clientOpts are applied to every storefront client
// the commands create.
func newApp(clientOpts ...client.Option) *cli.App {
	cmd := &commander{clientOpts: clientOpts}

	app := cli.NewApp()
	app.Name = "storefront-session"
	app.Usage = "Drive a storefront session from the command line"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    flagServer,
			Aliases: []string{"s"},
			Usage:   "Base URL of the storefront API (defaults to STOREFRONT_BASE_URL)",
			EnvVars: []string{"STOREFRONT_BASE_URL"},
		},
		&cli.BoolFlag{
			Name:    flagInsecure,
			Aliases: []string{"k"},
			Usage:   "Allow insecure API server connections when using TLS",
		},
		&cli.StringFlag{
			Name:  flagAudit,
			Usage: "Append session activity records as JSON lines to this file",
		},
		&cli.BoolFlag{
			Name:  flagDebug,
			Usage: "Log session events and transitions",
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:  "login",
			Usage: "Log in and print the resulting session",
			Description: "Mounts a session, logs in and prints the decoded claims. " +
				"With --watch the session is kept alive until interrupted.",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     flagUsername,
					Aliases:  []string{"u"},
					Usage:    "The account username",
					Required: true,
				},
				&cli.StringFlag{
					Name:    flagPassword,
					Aliases: []string{"p"},
					Usage:   "Specify the password non-interactively",
				},
				&cli.StringFlag{
					Name:  flagFetch,
					Usage: "After login, GET this path with the session bearer token",
				},
				&cli.BoolFlag{
					Name:    flagWatch,
					Aliases: []string{"w"},
					Usage:   "Keep the session alive and print changes until interrupted",
				},
				&cli.DurationFlag{
					Name:  flagInterval,
					Usage: "How often the token is validated while watching",
					Value: defaultWatchInterval,
				},
				cliFlagOutput,
			},
			Action: cmd.login,
		},
		{
			Name:  "register",
			Usage: "Register a new account",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     flagUsername,
					Aliases:  []string{"u"},
					Usage:    "The account username",
					Required: true,
				},
				&cli.StringFlag{
					Name:     flagEmail,
					Aliases:  []string{"e"},
					Usage:    "The account email",
					Required: true,
				},
				&cli.StringFlag{
					Name:    flagPassword,
					Aliases: []string{"p"},
					Usage:   "Specify the password non-interactively",
				},
			},
			Action: cmd.register,
		},
		{
			Name:   "status",
			Usage:  "Boot a session from the ambient refresh credential",
			Flags:  []cli.Flag{cliFlagOutput},
			Action: cmd.status,
		},
	}
	return app
}
