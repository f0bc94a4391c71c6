package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/exam-session/internal/app"
	"github.com/gokatarajesh/exam-session/internal/config"
)

func main() {
	// Bootstrap logger until the configured one exists.
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("cmd", "api").Logger()

	if os.Getenv("APP_ENV") != "production" {
		envFile := os.Getenv("ENV_FILE")
		if envFile == "" {
			envFile = "configs/.env"
		}
		if err := godotenv.Load(envFile); err != nil {
			log.Warn().Err(err).Str("file", envFile).Msg("could not load .env file")
		}
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	cfg, err := config.Load(loadCtx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	instance, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build app")
	}

	if err := instance.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("runtime error")
	}
}
