// Package main is the entry point for fairbio-ga4gh-registry, the GA4GH Service Registry client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fairbio/fairbio-cli/internal/cli"
)

// Build information injected via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	build := cli.BuildInfo{Version: version, Commit: commit, Date: date}
	err := cli.NewRegistry(build, os.Stdout, os.Stderr).Execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
