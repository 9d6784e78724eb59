package main

import (
	"fmt"
	"log"
	"log/slog"

	"cardlens/internal/bedrock"
	"cardlens/internal/config"
	"cardlens/internal/handler"
	"cardlens/internal/logging"
	"cardlens/internal/normalizer"
	"cardlens/internal/router"
	"cardlens/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.SetDefault(logging.New(cfg.Log))

	invoker, err := bedrock.NewClient(&cfg.Bedrock)
	if err != nil {
		return fmt.Errorf("failed to initialize bedrock client: %w", err)
	}

	norm := normalizer.New(&cfg.Upload)
	if err := norm.Ready(); err != nil {
		slog.Warn("pdf rasterizer unavailable, pdf uploads will fail", "error", err)
	}

	cardSvc := service.NewCardService(norm, invoker, &cfg.Pipeline)

	cardH := handler.NewCardHandler(cardSvc, &cfg.Upload)
	healthH := handler.NewHealthHandler(norm)

	r := router.Setup(cardH, healthH, cfg.CORS.AllowedOrigins)

	slog.Info("server starting", "port", cfg.Server.Port, "model", cfg.Bedrock.ModelID)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
