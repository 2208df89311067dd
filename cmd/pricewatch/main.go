package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NasaVasa/pricewatch/internal/app"
	"github.com/NasaVasa/pricewatch/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pricewatch: failed to load config:", err)
		os.Exit(1)
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pricewatch: failed to initialize:", err)
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	application.Shutdown()
	if runErr != nil {
		fmt.Fprintln(os.Stderr, "pricewatch:", runErr)
		os.Exit(1)
	}
}
