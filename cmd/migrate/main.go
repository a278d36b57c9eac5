// Command migrate applies the labflow schema migrations.
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

	if err := newRootCmd(openMigrator).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
