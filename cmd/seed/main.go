// Command seed bootstraps an administrator account and a sample catalog.
// It reads the same environment as the server plus the SEED_* variables.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Opkumar/Book-Review-System/internal/app"
	"github.com/Opkumar/Book-Review-System/internal/config"
	"github.com/Opkumar/Book-Review-System/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	seedCfg, err := config.LoadSeed()
	if err != nil {
		slog.Error("failed to load seed config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(app.ServiceName+"-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Seed(ctx, cfg, seedCfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
