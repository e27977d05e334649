// Command jimeng-proxy serves OpenAI-compatible image and video generation
// backed by Jimeng accounts.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jimengproxy/jimeng-proxy/cmd/jimeng-proxy/commands"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// Cancelling ctx stops the server and any in-flight polling.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx, os.Args, version, commit); err != nil {
		slog.ErrorContext(ctx, "jimeng-proxy failed", "error", err)
		os.Exit(1)
	}
}
