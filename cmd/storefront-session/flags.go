package main

import (
	"time"

	"github.com/urfave/cli/v2"
)

const (
	flagAudit    = "audit"
	flagDebug    = "debug"
	flagEmail    = "email"
	flagFetch    = "fetch"
	flagInsecure = "insecure"
	flagInterval = "interval"
	flagOutput   = "output"
	flagPassword = "password"
	flagServer   = "server"
	flagUsername = "username"
	flagWatch    = "watch"

	defaultWatchInterval = 30 * time.Second
)

var cliFlagOutput = &cli.StringFlag{
	Name:    flagOutput,
	Aliases: []string{"o"},
	Usage:   "Return output in another format. Supported formats: table, json",
	Value:   "table",
}
