package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rpupo63/digital-mix-backend/cache"
	"github.com/rpupo63/digital-mix-backend/database"
	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/models"
	"github.com/rpupo63/digital-mix-backend/storage"
	"github.com/rpupo63/digital-mix-backend/storage/memory"
)

const publicBase = "https://cdn.example.com/storage/v1/object/public"

type recordingInvalidator struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recordingInvalidator) reset() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := r.paths
	r.paths = nil
	return paths
}

type failingImages struct {
	calls int
}

func (f *failingImages) Owns(url string) bool { return true }

func (f *failingImages) Delete(ctx context.Context, url string) error {
	f.calls++
	return errors.New("storage unavailable")
}

func setupDB(t *testing.T) database.Database {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	d := database.New(db)
	require.NoError(t, d.Migrate())
	return d
}

type fixture struct {
	db      database.Database
	service *BlogService
	inv     *recordingInvalidator
	backend *memory.Backend
	gateway *storage.Gateway
	project *models.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := setupDB(t)
	project := &models.Project{Name: "Digital Mix", Slug: "digital-mix"}
	require.NoError(t, d.ProjectRepo().Add(context.Background(), project))

	backend := memory.New()
	gateway := storage.NewGateway(backend, "blog-images", publicBase)
	inv := &recordingInvalidator{}

	return &fixture{
		db:      d,
		service: NewBlogService(d.BlogPostRepo(), gateway, inv),
		inv:     inv,
		backend: backend,
		gateway: gateway,
		project: project,
	}
}

func ptr[T any](v T) *T {
	return &v
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestBlogService_CreateInvalidatesListing(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), f.project.ID, models.PostInput{Title: ptr("Draft")})
	require.NoError(t, err)
	assert.Equal(t, []string{cache.BlogListPath, cache.AdminPostsPath}, f.inv.reset())

	_, err = f.service.Create(context.Background(), f.project.ID, models.PostInput{Title: ptr("Live"), IsPublished: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, []string{cache.BlogListPath, cache.AdminPostsPath, cache.SitemapPath}, f.inv.reset())
}

func TestBlogService_FailedCreateDoesNotInvalidate(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), f.project.ID, models.PostInput{Title: ptr("  ")})
	assert.True(t, errs.IsValidation(err))
	assert.Empty(t, f.inv.reset())
}

func TestBlogService_UpdateInvalidatesOldAndNewSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.service.Create(ctx, f.project.ID, models.PostInput{Title: ptr("Old title")})
	require.NoError(t, err)
	f.inv.reset()

	updated, err := f.service.Update(ctx, post.ID, models.PostInput{Title: ptr("New title")})
	require.NoError(t, err)
	assert.Equal(t, "new-title", updated.Slug)

	assert.Equal(t, []string{
		cache.BlogListPath,
		"/blogs/new-title",
		cache.AdminPostsPath,
		cache.SitemapPath,
		"/blogs/old-title",
	}, f.inv.reset())
}

func TestBlogService_TogglePublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.service.Create(ctx, f.project.ID, models.PostInput{Title: ptr("Toggle")})
	require.NoError(t, err)
	f.inv.reset()

	toggled, err := f.service.TogglePublish(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsPublished)
	assert.Contains(t, f.inv.reset(), "/blogs/toggle")

	posts, err := f.service.ListPublished(ctx, "digital-mix")
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	back, err := f.service.TogglePublish(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, back.IsPublished)

	posts, err = f.service.ListPublished(ctx, "digital-mix")
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.NotNil(t, posts)
}

func TestBlogService_DeleteRemovesOwnedImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	url, err := f.gateway.Upload(ctx, tinyPNG(t), "cover.png", "image/png", f.project.ID)
	require.NoError(t, err)
	post, err := f.service.Create(ctx, f.project.ID, models.PostInput{Title: ptr("With image"), PictureURL: ptr(url)})
	require.NoError(t, err)
	f.inv.reset()

	require.NoError(t, f.service.Delete(ctx, post.ID))

	key, ok := f.gateway.KeyFromURL(url)
	require.True(t, ok)
	_, _, exists := f.backend.Get(key)
	assert.False(t, exists)

	assert.Equal(t, []string{cache.BlogListPath, "/blogs/with-image", cache.AdminPostsPath, cache.SitemapPath}, f.inv.reset())

	_, err = f.service.Get(ctx, post.ID)
	assert.True(t, errs.IsNotFound(err))
}

func TestBlogService_DeleteKeepsSharedAndForeignImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	url, err := f.gateway.Upload(ctx, tinyPNG(t), "shared.png", "image/png", f.project.ID)
	require.NoError(t, err)
	first, err := f.service.Create(ctx, f.project.ID, models.PostInput{Title: ptr("First"), PictureURL: ptr(url)})
	require.NoError(t, err)
	_, err = f.service.Create(ctx, f.project.ID, models.PostInput{Title: ptr("Second"), PictureURL: ptr(url)})
	require.NoError(t, err)
	foreign, err := f.service.Create(ctx, f.project.ID, models.PostInput{
		Title:      ptr("Foreign"),
		PictureURL: ptr("https://images.unsplash.com/photo.jpg"),
	})
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, first.ID))
	require.NoError(t, f.service.Delete(ctx, foreign.ID))

	key, _ := f.gateway.KeyFromURL(url)
	_, _, exists := f.backend.Get(key)
	assert.True(t, exists)
}

func TestBlogService_ImageFailureDoesNotFailDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	images := &failingImages{}
	service := NewBlogService(f.db.BlogPostRepo(), images, nil)

	post, err := service.Create(ctx, f.project.ID, models.PostInput{Title: ptr("Doomed"), PictureURL: ptr(publicBase + "/blog-images/x.jpg")})
	require.NoError(t, err)

	assert.NoError(t, service.Delete(ctx, post.ID))
	assert.Equal(t, 1, images.calls)

	_, err = service.Get(ctx, post.ID)
	assert.True(t, errs.IsNotFound(err))
}

func TestBlogService_DeleteMissingPost(t *testing.T) {
	f := newFixture(t)

	err := f.service.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errs.ErrPostNotFound)
	assert.Empty(t, f.inv.reset())
}

func TestBlogService_GetPublishedWithRelated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, title := range []string{"Alpha", "Beta", "Gamma"} {
		_, err := f.service.Create(ctx, f.project.ID, models.PostInput{Title: ptr(title), IsPublished: ptr(true)})
		require.NoError(t, err)
	}

	detail, err := f.service.GetPublished(ctx, "digital-mix", "beta")
	require.NoError(t, err)
	assert.Equal(t, "Beta", detail.Post.Title)
	require.Len(t, detail.Related, 2)
	for _, p := range detail.Related {
		assert.NotEqual(t, "beta", p.Slug)
	}

	_, err = f.service.GetPublished(ctx, "digital-mix", "missing")
	assert.ErrorIs(t, err, errs.ErrPostNotFound)
}

func TestBlogService_Dashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, published := range []bool{true, false, false} {
		_, err := f.service.Create(ctx, f.project.ID, models.PostInput{
			Title:       ptr(string(rune('a' + i))),
			IsPublished: ptr(published),
		})
		require.NoError(t, err)
	}

	stats, err := f.service.Dashboard(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStats{Total: 3, Published: 1, Drafts: 2}, stats)

	page, err := f.service.ListAll(ctx, f.project.ID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 2, page.TotalPages)
}

func TestSeedAdmin(t *testing.T) {
	d := setupDB(t)
	ctx := context.Background()
	in := SeedInput{ProjectSlug: "digital-mix", ProjectName: "Digital Mix", Email: "owner@example.com", Password: "s3cret-pass"}

	project, user, err := SeedAdmin(ctx, d, in)
	require.NoError(t, err)
	assert.Equal(t, "Digital Mix", project.Name)

	ok, err := d.ProjectAdminRepo().IsAdmin(ctx, project.ID, user.ID.String())
	require.NoError(t, err)
	assert.True(t, ok)

	again, sameUser, err := SeedAdmin(ctx, d, in)
	require.NoError(t, err)
	assert.Equal(t, project.ID, again.ID)
	assert.Equal(t, user.ID, sameUser.ID)

	_, _, err = SeedAdmin(ctx, d, SeedInput{Email: "x@example.com"})
	assert.True(t, errs.IsValidation(err))
}
