package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-session/devserver"
)

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("authd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
	logger := lgr.GetLogger("server")

	cfg, err := devserver.LoadConfig("")
	if err != nil {
		fmt.Printf("\n%s\n\n", err)
		os.Exit(1)
	}

	redacted := cfg
	redacted.SigningKey = "<redacted>"
	redacted.SeedAdminPassword = ""
	fmt.Println("============")
	fmt.Println(print.MaybeHighlightJSON(redacted))
	fmt.Println("============")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := devserver.New(ctx, cfg, devserver.WithLogger(logger))
	if err != nil {
		logger.Error("failed to start auth server", "error", err)
		os.Exit(1)
	}
	defer srv.Close()

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("auth server stopped", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("auth server shut down")
}
