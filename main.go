package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/ardnew/stmpl/cli"
	"github.com/ardnew/stmpl/log"
)

func main() {
	// Interrupt cancels the context so render --watch exits cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.Run(ctx, os.Exit, os.Args[1:]...)
	if err != nil {
		stop()
		log.Error(
			"run failed",
			slog.Any("error", err),
		) // slog automatically uses LogValue()
		os.Exit(1)
	}
}
