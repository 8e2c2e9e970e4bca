package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/finboard/walletcore/internal/config"
	"github.com/finboard/walletcore/internal/container"
)

func main() {
	var (
		configPath string
		configName string
		envFile    string
	)
	flag.StringVar(&configPath, "config-path", "./configs", "path to the config directory")
	flag.StringVar(&configName, "config-name", "config", "config file name without extension")
	flag.StringVar(&envFile, "env-file", ".env", "path to the .env file")
	flag.Parse()

	// A missing .env file is fine; production passes real env vars.
	_ = godotenv.Load(envFile)

	cfg, err := config.Load(configPath, configName)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := container.New(cfg)
	if err := c.Initialize(ctx); err != nil {
		log.Fatalf("failed to initialize container: %v", err)
	}

	if err := c.Run(ctx); err != nil {
		c.Logger().Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Server.Run returns after graceful HTTP shutdown; release the rest.
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
	defer shutdownCancel()
	if err := c.Shutdown(shutdownCtx); err != nil {
		c.Logger().Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
