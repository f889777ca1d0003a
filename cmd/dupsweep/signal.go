package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// setupSignalContext returns a context that is cancelled when a shutdown
// signal arrives. Scans stop at the next file boundary and deletions stop
// dispatching new targets.
func setupSignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	// SIGINT (Ctrl+C), SIGTERM (termination), and SIGPIPE (broken pipe)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGPIPE)

	go func() {
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			fmt.Fprintf(os.Stderr, "\nReceived signal: %v\n", sig)
			if sig != syscall.SIGPIPE {
				fmt.Fprintf(os.Stderr, "Initiating graceful shutdown...\n")
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
