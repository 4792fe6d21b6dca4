package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"contactform/internal/adapters/apigateway"
	"contactform/internal/app"
	"contactform/internal/config"
	"contactform/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg.LogLevel, cfg.LogFormat))
	if err := cfg.Validate(); err != nil {
		slog.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	// Built once per cold start and reused across invocations.
	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		slog.Error("startup_failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	lambda.Start(apigateway.NewHandler(a.Deps).Handle)
}
