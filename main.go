// entry point of the application
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"mediadl/internal/cli"
	"mediadl/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	err = cli.New(cfg).Execute(ctx, nil)
	if err != nil {
		stop()
		os.Exit(1)
	}
}
