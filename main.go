// main.go
package main

import (
	"context"
	"log"
	"time"

	"media-review/cmd"
	"media-review/internal/data/repository"
	"media-review/internal/usecase"
	"media-review/internal/wire"
	"media-review/pkg/database"
	"media-review/pkg/mailer"
	"media-review/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.Name, config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Apply schema migrations
	if config.Database.MigrateOnStart {
		if err := database.Migrate(config.Database.URL(), config.Database.MigrationsPath, logger); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	// Connect to database
	db, err := database.InitDB(config.Database, config.App.Debug, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Credentials and email
	tokens, codes, err := usecase.NewSecurity(config)
	if err != nil {
		logger.Fatal("Failed to derive keys", zap.Error(err))
	}

	deps := usecase.Deps{
		Tokens: tokens,
		Codes:  codes,
		Mailer: mailer.New(config.Email, logger),
		Now:    time.Now,
	}

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Wire all dependencies
	app := wire.Wiring(repos, deps, db, logger)

	// Bootstrap admin
	if config.Admin.Username != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := app.Service.User.EnsureAdmin(ctx, config.Admin.Username, config.Admin.Email)
		cancel()
		if err != nil {
			logger.Fatal("Failed to ensure admin user", zap.Error(err))
		}
	}

	// Start server
	if err := cmd.APIServer(app.Router, config.App.Port, logger); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
