// File: cmd/gridpager/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rowanlabs/gridpager/cmd"
	"github.com/rowanlabs/gridpager/internal/observability"
)

func main() {
	// Interrupt signals cancel the context so in-flight reflow work stops
	// at the next step boundary instead of mid-transaction.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
