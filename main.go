package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"nic-dns/internal/cli"
	"nic-dns/internal/common/logging"
	"nic-dns/internal/config"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg := config.Load()

	if err := logging.InitGlobalLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "nic-dns: failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.MustSync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], cfg, os.Stdout, os.Stderr, nil)
	stop()

	logging.MustSync()
	os.Exit(code)
}
