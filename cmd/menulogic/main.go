package main

import (
	"log/slog"
	"os"
)

var (
	// Set at build time via -ldflags "-X main.version=..."
	version = "v0.0.0"
	commit  = "none"
	date    = "unknown"
)

const name = "menulogic"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
