package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fileboard/internal/config"
	"fileboard/internal/httpserver"
	"fileboard/internal/logger"
)

func main() {
	path := config.DefaultPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fileboard: %v\n", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fileboard: %v\n", err)
		os.Exit(1)
	}
	opts := []logger.Option{logger.WithLevel(level)}
	if cfg.Server.LogFormat != "" {
		opts = append(opts, logger.WithFormat(logger.Format(cfg.Server.LogFormat)))
	}
	log := logger.New(opts...)

	srv, err := httpserver.New(httpserver.Options{Config: cfg, Logger: log})
	if err != nil {
		log.Error("server init", logger.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, cfg.Server.Addr()); err != nil {
		log.Error("server stopped", logger.Error(err))
		os.Exit(1)
	}
}
