package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rpupo63/digital-mix-backend/auth"
	"github.com/rpupo63/digital-mix-backend/config"
	"github.com/rpupo63/digital-mix-backend/database"
	"github.com/rpupo63/digital-mix-backend/storage"
	"github.com/rpupo63/digital-mix-backend/storage/memory"
	"github.com/rpupo63/digital-mix-backend/storage/s3"
)

// databaseDSN prefers DATABASE_URL and otherwise builds a DSN from the SUPABASE_DB_* parts
func databaseDSN(c map[string]string) string {
	if dsn := config.GetString(c, "DATABASE_URL", ""); dsn != "" {
		return dsn
	}
	host := config.GetString(c, "SUPABASE_DB_HOST", "")
	if host == "" {
		return ""
	}
	return database.PostgresDSN(
		host,
		config.GetString(c, "SUPABASE_DB_USER", ""),
		config.GetString(c, "SUPABASE_DB_PASSWORD", ""),
		config.GetString(c, "SUPABASE_DB_NAME", ""),
		config.GetString(c, "SUPABASE_DB_PORT", "5432"),
		config.GetString(c, "SUPABASE_DB_SSLMODE", "require"),
	)
}

// newImageGateway uses S3 when a bucket endpoint or credentials are configured and keeps images
// in memory otherwise. In memory mode the returned handler serves the stored images and public URLs
// point at this server unless STORAGE_PUBLIC_URL says otherwise.
func newImageGateway(ctx context.Context, c map[string]string) (*storage.Gateway, http.Handler, error) {
	bucket := config.GetString(c, "STORAGE_BUCKET", storage.DefaultBucket)

	endpoint := config.GetString(c, "STORAGE_ENDPOINT", "")
	accessKey := config.GetString(c, "STORAGE_ACCESS_KEY_ID", "")
	if endpoint == "" && accessKey == "" {
		publicURL := config.GetString(c, "STORAGE_PUBLIC_URL", "http://localhost:"+config.GetString(c, "PORT", "8080"))
		log.Warn().Str("publicURL", publicURL).Msg("no object storage configured, images are kept in memory")
		backend := memory.New()
		return storage.NewGateway(backend, bucket, publicURL), backend, nil
	}

	publicURL := config.GetString(c, "STORAGE_PUBLIC_URL", "")
	if publicURL == "" {
		return nil, nil, errors.New("STORAGE_PUBLIC_URL is required when object storage is configured")
	}

	backend, err := s3.New(ctx, s3.Config{
		Region:                 config.GetString(c, "STORAGE_REGION", "us-east-1"),
		Bucket:                 bucket,
		AccessKeyID:            accessKey,
		SecretAccessKey:        config.GetString(c, "STORAGE_SECRET_ACCESS_KEY", ""),
		Endpoint:               endpoint,
		UsePathStyle:           config.GetBool(c, "STORAGE_USE_PATH_STYLE", endpoint != ""),
		CreateBucketIfNotExist: config.GetBool(c, "STORAGE_CREATE_BUCKET", false),
	})
	if err != nil {
		return nil, nil, err
	}
	return storage.NewGateway(backend, bucket, publicURL), nil, nil
}

// newSessionProvider picks the identity provider named by AUTH_PROVIDER
func newSessionProvider(c map[string]string, db database.Database) (auth.SessionProvider, error) {
	switch provider := config.GetString(c, "AUTH_PROVIDER", "local"); provider {
	case "descope":
		return auth.NewDescopeProvider(config.GetString(c, "DESCOPE_PROJECT_ID", ""))
	case "local":
		return auth.NewLocalProvider(
			db.UserRepo(),
			config.GetString(c, "SESSION_SECRET", ""),
			time.Duration(config.GetInt(c, "SESSION_TTL_HOURS", 24))*time.Hour,
			config.GetBool(c, "SESSION_SECURE_COOKIE", true),
		)
	default:
		return nil, fmt.Errorf("unknown AUTH_PROVIDER %q", provider)
	}
}
