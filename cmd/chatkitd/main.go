// Package main implements the entry point for the chatkitd daemon.
// chatkitd maintains sharded gateway connections to a chat platform,
// serves a rate-limited REST path for control operations, and optionally
// bridges dispatch events onto a NATS broker for downstream consumers.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
)

// Build information, overridable at link time:
//
//	go build -ldflags="-X main.Version=1.0.0 -X main.BuildTime=2026-08-25"
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "chatkitd"

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := Execute(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}
