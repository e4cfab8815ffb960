// Package storage keeps processed post images in an object store and maps them to public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/imaging"
)

const (
	DefaultBucket = "blog-images"
	MaxUploadSize = 10 << 20 // 10MB, checked before processing
	MaxListed     = 100

	// putAttempts bounds retries with a fresh key when a generated key is already taken
	putAttempts = 3
)

// AllowedContentTypes are the upload content types accepted by Upload
var AllowedContentTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}

// Object describes a stored blob
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Backend is an object store. Put must fail with errs.ErrObjectExists instead of overwriting, and
// Delete of a missing key is not an error.
type Backend interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Object, error)
}

type Gateway struct {
	backend       Backend
	bucket        string
	publicBaseURL string
	logger        zerolog.Logger
	now           func() time.Time
}

// NewGateway serves objects of bucket at <publicBaseURL>/<bucket>/<key>.
func NewGateway(backend Backend, bucket, publicBaseURL string) *Gateway {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Gateway{
		backend:       backend,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        log.With().Str("component", "storageGateway").Str("bucket", bucket).Logger(),
		now:           time.Now,
	}
}

// Upload validates and processes an uploaded image and stores it under the project's prefix,
// returning its public URL.
func (g *Gateway) Upload(ctx context.Context, data []byte, filename, contentType string, projectID uuid.UUID) (string, error) {
	if !IsAllowedContentType(contentType) {
		return "", errs.NewInvalidFileTypeError(contentType, AllowedContentTypes)
	}
	if len(data) > MaxUploadSize {
		return "", errs.NewFileTooLargeError(int64(len(data)), MaxUploadSize)
	}

	processed, err := imaging.Process(data, filename)
	if err != nil {
		return "", errs.NewImageProcessingError(err)
	}

	var key string
	for attempt := 1; ; attempt++ {
		key = g.objectKey(projectID, processed.Format.Ext())
		err = g.backend.Put(ctx, key, processed.Data, processed.Format.ContentType())
		if err == nil {
			break
		}
		if !IsObjectExists(err) || attempt == putAttempts {
			return "", errs.NewStorageWriteError(key, err)
		}
		g.logger.Warn().Str("key", key).Int("attempt", attempt).Msg("object key taken, retrying with a new key")
	}

	g.logger.Info().
		Str("key", key).
		Int("bytes", len(processed.Data)).
		Int("width", processed.Width).
		Int("height", processed.Height).
		Msg("image uploaded")

	return g.PublicURL(key), nil
}

// Delete removes the object behind a public URL issued by this gateway.
func (g *Gateway) Delete(ctx context.Context, url string) error {
	key, ok := g.KeyFromURL(url)
	if !ok {
		return errs.NewInvalidURLError(url)
	}
	if err := g.backend.Delete(ctx, key); err != nil {
		return errs.NewStorageDeleteError(key, err)
	}
	g.logger.Info().Str("key", key).Msg("image deleted")
	return nil
}

// List returns the public URLs of the project's most recent objects, newest first.
func (g *Gateway) List(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	prefix := projectID.String() + "/"
	objects, err := g.backend.List(ctx, prefix)
	if err != nil {
		return nil, errs.NewStorageListError(prefix, err)
	}

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
	if len(objects) > MaxListed {
		objects = objects[:MaxListed]
	}

	urls := make([]string, 0, len(objects))
	for _, obj := range objects {
		urls = append(urls, g.PublicURL(obj.Key))
	}
	return urls, nil
}

func (g *Gateway) PublicURL(key string) string {
	return g.urlPrefix() + key
}

// KeyFromURL extracts the object key from a URL issued by PublicURL. Keys with empty, "." or ".."
// segments are refused.
func (g *Gateway) KeyFromURL(url string) (string, bool) {
	marker := "/" + g.bucket + "/"
	idx := strings.Index(url, marker)
	if idx < 0 {
		return "", false
	}
	key := url[idx+len(marker):]
	if !ValidKey(key) {
		return "", false
	}
	return key, true
}

// ValidKey reports whether key is a non-empty relative object path without empty, "." or ".."
// segments.
func ValidKey(key string) bool {
	if key == "" {
		return false
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return false
		}
	}
	return true
}

// Bucket returns the bucket name that prefixes every key in public URLs.
func (g *Gateway) Bucket() string {
	return g.bucket
}

// Owns reports whether url points into this gateway's bucket.
func (g *Gateway) Owns(url string) bool {
	return strings.HasPrefix(url, g.urlPrefix())
}

func (g *Gateway) urlPrefix() string {
	return fmt.Sprintf("%s/%s/", g.publicBaseURL, g.bucket)
}

// objectKey builds <projectID>/<epoch-ms>-<6 random chars>.<ext>
func (g *Gateway) objectKey(projectID uuid.UUID, ext string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s/%d-%s.%s", projectID, g.now().UnixMilli(), random, ext)
}

// IsAllowedContentType reports whether contentType, ignoring parameters, is an accepted image type.
func IsAllowedContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, allowed := range AllowedContentTypes {
		if strings.EqualFold(mediaType, allowed) {
			return true
		}
	}
	return false
}

// IsObjectExists reports whether a backend refused to overwrite an object.
func IsObjectExists(err error) bool {
	return errors.Is(err, errs.ErrObjectExists)
}
