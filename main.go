package main

import (
	"context"
	"errors"
	"os"

	"KasutamaizaBot/bot"
	"KasutamaizaBot/config"
	"KasutamaizaBot/logging"

	_ "KasutamaizaBot/commands/general"
	_ "KasutamaizaBot/commands/moderation"
	_ "KasutamaizaBot/commands/profile"
	_ "KasutamaizaBot/commands/utility"
	_ "KasutamaizaBot/commands/yugioh"

	"github.com/rs/zerolog"
)

func main() {
	os.Exit(run())
}

func run() int {
	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	config.LoadDotenv(boot)

	env := config.NewValidator(boot)
	logger, closer, err := logging.New(logging.Options{
		Level:      env.Fetch("LOG_LEVEL", config.String, "info").(string),
		Format:     env.Fetch("LOG_FORMAT", config.String, "console").(string),
		File:       env.Fetch("LOG_FILE", config.String, "").(string),
		MaxSizeMB:  env.Fetch("LOG_MAX_SIZE_MB", config.Int, 10).(int),
		MaxBackups: env.Fetch("LOG_MAX_BACKUPS", config.Int, 5).(int),
		MaxAgeDays: env.Fetch("LOG_MAX_AGE_DAYS", config.Int, 30).(int),
	})
	if err != nil {
		boot.Error().Err(err).Msg("Failed to set up logging")
		return 1
	}
	defer closer.Close()

	ctx := context.Background()
	b, summary, err := bot.Bootstrap(ctx, bot.Deps{
		Logger:    logger,
		Validator: config.NewValidator(logger),
	})
	if err != nil {
		var startErr *bot.StartupError
		if errors.As(err, &startErr) {
			logger.Error().Err(startErr.Err).Str("stage", startErr.Stage).Msg("Startup aborted")
		} else {
			logger.Error().Err(err).Msg("Startup aborted")
		}
		return 1
	}
	if len(summary.Loaded) == 0 {
		logger.Warn().Msg("No command modules loaded, the bot will not respond to commands")
	}

	if err := b.Run(ctx); err != nil {
		var startErr *bot.StartupError
		if errors.As(err, &startErr) {
			logger.Error().Err(startErr.Err).Str("stage", startErr.Stage).Msg("Failed to connect")
			return 1
		}
		logger.Warn().Err(err).Msg("Shutdown finished with errors")
	}
	logger.Info().Msg("Bot stopped")
	return 0
}
