// Command splitter runs work order split and set life-cycle operations
// against the laboratory services.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(buildApp).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
