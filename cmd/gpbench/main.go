// Command gpbench times Gaussian Process parameter updates for a catalog of
// kernel compositions and writes the fastest sample of each to a CSV file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		newLogger(os.Stderr, false).Error("benchmark failed", "err", err)
		stop()
		os.Exit(1)
	}

	stop()
}
