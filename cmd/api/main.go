package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"actinvoting/adapters/api"
	"actinvoting/internal/config"
	"actinvoting/internal/container"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Server failed:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	defer c.Shutdown(context.Background())

	if err := c.InitStore(ctx); err != nil {
		return err
	}

	server := api.NewServer(api.Config{
		Runner:  c.Runner,
		Options: c.SessionOptions(),
		Seed:    cfg.Batch.Seed,
		Logger:  c.Logger.Named("api"),
	})
	return server.ListenAndServe(ctx, ":"+cfg.Server.Port)
}
