package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/rpupo63/digital-mix-backend/models"
)

type Database struct {
	db               *gorm.DB
	projectRepo      *ProjectRepo
	projectAdminRepo *ProjectAdminRepo
	userRepo         *UserRepo
	blogPostRepo     *BlogPostRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		db:               db,
		projectRepo:      NewProjectRepo(db),
		projectAdminRepo: NewProjectAdminRepo(db),
		userRepo:         NewUserRepo(db),
		blogPostRepo:     NewBlogPostRepo(db),
	}
}

// Accessor methods for each repository

func (d Database) ProjectRepo() *ProjectRepo {
	return d.projectRepo
}

func (d Database) ProjectAdminRepo() *ProjectAdminRepo {
	return d.projectAdminRepo
}

func (d Database) UserRepo() *UserRepo {
	return d.userRepo
}

func (d Database) BlogPostRepo() *BlogPostRepo {
	return d.blogPostRepo
}

// Migrate creates or updates the tables of every model
func (d Database) Migrate() error {
	return models.Migrate(d.db)
}

// Ping checks that the primary database answers
func (d Database) Ping(ctx context.Context) error {
	var result int
	return d.db.WithContext(ctx).Clauses(dbresolver.Write).Raw("SELECT 1").Scan(&result).Error
}

// Options for Open
type Options struct {
	DSN string
	// ReplicaDSN, when set, serves the public read queries
	ReplicaDSN    string
	SlowThreshold time.Duration
	LogLevel      logger.LogLevel
}

// Open connects to Postgres. Reads go to the replica when one is configured; admin reads pin
// themselves to the primary with dbresolver.Write.
func Open(opts Options) (*gorm.DB, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	if opts.SlowThreshold == 0 {
		opts.SlowThreshold = 10 * time.Second
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}

	gormLogger := logger.New(
		&log.Logger,
		logger.Config{
			SlowThreshold:             opts.SlowThreshold,
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  opts.DSN,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt:    false,
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if opts.ReplicaDSN != "" {
		err = db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{postgres.New(postgres.Config{
				DSN:                  opts.ReplicaDSN,
				PreferSimpleProtocol: true,
			})},
			Policy:            dbresolver.RandomPolicy{},
			TraceResolverMode: opts.LogLevel == logger.Info,
		}))
		if err != nil {
			return nil, fmt.Errorf("register read replica: %w", err)
		}
		log.Info().Msg("read replica registered")
	}

	return db, nil
}

// PostgresDSN builds a key/value connection string from its parts
func PostgresDSN(host, user, password, name, port, sslMode string) string {
	if port == "" {
		port = "5432"
	}
	if sslMode == "" {
		sslMode = "require"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host, user, password, name, port, sslMode)
}

// primary pins a query to the write connection
func primary(db *gorm.DB, ctx context.Context) *gorm.DB {
	return db.WithContext(ctx).Clauses(dbresolver.Write)
}
