package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// stopSignals restores default signal handling, so a second Ctrl+C
// terminates the process instead of waiting for the batch to drain.
var stopSignals = func() {}

func main() {
	// The first SIGINT/SIGTERM cancels the context; commands drain cooperatively.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	stopSignals = cancel

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
