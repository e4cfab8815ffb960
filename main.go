package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/digital-mix-backend/api"
	"github.com/rpupo63/digital-mix-backend/auth"
	"github.com/rpupo63/digital-mix-backend/cache"
	"github.com/rpupo63/digital-mix-backend/config"
	"github.com/rpupo63/digital-mix-backend/database"
	"github.com/rpupo63/digital-mix-backend/models"
	"github.com/rpupo63/digital-mix-backend/services"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Info().Msg("Initializing app...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded")
	}

	ctx := context.Background()
	c := config.New()
	if path := config.GetString(c, "SSM_PARAMETER_PATH", ""); path != "" {
		var err error
		if c, err = config.LoadSSM(ctx, c, path); err != nil {
			log.Fatal().Err(err).Msg("Error loading parameters from SSM")
		}
	}

	if config.GetBool(c, "DEBUG", false) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := database.Open(database.Options{
		DSN:        databaseDSN(c),
		ReplicaDSN: config.GetString(c, "DATABASE_REPLICA_URL", ""),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	currentDB := database.New(db)

	if err := currentDB.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error testing database connection")
	}

	// If generating models, run generation and exit
	if config.GetBool(c, "GENERATE_MODELS", false) {
		log.Info().Msg("Generating models and query helpers...")
		if err := models.GenerateModels(db, config.GetString(c, "GENERATE_MODELS_PATH", "./generated")); err != nil {
			log.Fatal().Err(err).Msg("Error generating models")
		}
		return
	}

	// If generating column mismatch report, run report and exit
	if config.GetBool(c, "GENERATE_COLUMN_REPORT", false) {
		log.Info().Msg("Generating column mismatch report...")
		if err := models.PrintColumnMismatchReport(db); err != nil {
			log.Fatal().Err(err).Msg("Error generating column report")
		}
		return
	}

	if config.GetBool(c, "AUTO_MIGRATE", false) {
		if err := currentDB.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Error migrating database")
		}
		log.Info().Msg("Database migrated")
	}

	// Seed the first admin of a project and exit
	if config.GetBool(c, "SEED_ADMIN", false) {
		project, user, err := services.SeedAdmin(ctx, currentDB, services.SeedInput{
			ProjectSlug: config.GetString(c, "SEED_ADMIN_PROJECT_SLUG", config.GetString(c, "DEFAULT_PROJECT_SLUG", "")),
			ProjectName: config.GetString(c, "SEED_ADMIN_PROJECT_NAME", ""),
			Email:       config.GetString(c, "SEED_ADMIN_EMAIL", ""),
			Password:    config.GetString(c, "SEED_ADMIN_PASSWORD", ""),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Error seeding admin")
		}
		log.Info().Str("project", project.Slug).Str("user", user.Email).Msg("Admin seeded")
		return
	}

	gateway, imageFiles, err := newImageGateway(ctx, c)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing storage")
	}

	sessions, err := newSessionProvider(c, currentDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing authentication")
	}

	store := cache.NewStore(time.Duration(config.GetInt(c, "CACHE_MAX_AGE_SECONDS", 300)) * time.Second)
	invalidators := cache.Multi{store}
	if revalidateURL := config.GetString(c, "REVALIDATE_URL", ""); revalidateURL != "" {
		invalidators = append(invalidators, cache.NewWebhook(revalidateURL, config.GetString(c, "REVALIDATE_SECRET", "")))
	}

	errChannel := make(chan error)
	defer close(errChannel)

	server, err := api.NewServer(c, api.Dependencies{
		Database:   currentDB,
		Blog:       services.NewBlogService(currentDB.BlogPostRepo(), gateway, invalidators),
		Images:     gateway,
		ImageFiles: imageFiles,
		Guard:      auth.NewGuard(sessions, currentDB.ProjectRepo(), currentDB.ProjectAdminRepo()),
		Cache:      store,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(30 * time.Second)
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
