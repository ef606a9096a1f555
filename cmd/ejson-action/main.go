package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Version will be set at build time via -ldflags
var Version = "v0.0.1"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
