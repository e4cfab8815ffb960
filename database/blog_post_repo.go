package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/models"
	"github.com/rpupo63/digital-mix-backend/slug"
)

type BlogPostRepo struct {
	db       *gorm.DB
	projects *ProjectRepo
	now      func() time.Time
}

func NewBlogPostRepo(db *gorm.DB) *BlogPostRepo {
	return &BlogPostRepo{db: db, projects: NewProjectRepo(db), now: time.Now}
}

// ListPublished returns the published posts of the project with the given slug, newest first
func (r *BlogPostRepo) ListPublished(ctx context.Context, projectSlug string) ([]models.BlogPost, error) {
	project, err := r.projects.FindBySlug(ctx, projectSlug)
	if err != nil {
		return nil, err
	}

	var posts []models.BlogPost
	err = r.db.WithContext(ctx).
		Where("project_id = ? AND is_published = ?", project.ID, true).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, errs.NewDatabaseError("find", "posts", err)
	}
	return posts, nil
}

// GetPublishedBySlug returns a published post. Drafts are reported as not found.
func (r *BlogPostRepo) GetPublishedBySlug(ctx context.Context, projectSlug, postSlug string) (*models.BlogPost, error) {
	project, err := r.projects.FindBySlug(ctx, projectSlug)
	if err != nil {
		return nil, err
	}

	var post models.BlogPost
	err = r.db.WithContext(ctx).
		Where("project_id = ? AND slug = ? AND is_published = ?", project.ID, postSlug, true).
		First(&post).Error
	if err != nil {
		return nil, postError("find", err)
	}
	return &post, nil
}

// ListRelated returns up to limit other published posts of the project, newest first
func (r *BlogPostRepo) ListRelated(ctx context.Context, projectID uuid.UUID, excludeSlug string, limit int) ([]models.BlogPost, error) {
	var posts []models.BlogPost
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND is_published = ? AND slug <> ?", projectID, true, excludeSlug).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, errs.NewDatabaseError("find", "posts", err)
	}
	return posts, nil
}

// ListAll returns one page of every post of a project, most recently updated first
func (r *BlogPostRepo) ListAll(ctx context.Context, projectID uuid.UUID, page, limit int) (models.PaginatedResult[models.BlogPost], error) {
	if page < 1 {
		return models.PaginatedResult[models.BlogPost]{}, errs.NewValidationError("page", "page must be at least 1")
	}
	if limit < 1 {
		return models.PaginatedResult[models.BlogPost]{}, errs.NewValidationError("limit", "limit must be at least 1")
	}

	var (
		total int64
		posts []models.BlogPost
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return primary(r.db, gctx).Model(&models.BlogPost{}).
			Where("project_id = ?", projectID).
			Count(&total).Error
	})
	g.Go(func() error {
		return primary(r.db, gctx).
			Where("project_id = ?", projectID).
			Order("updated_at DESC").
			Order("id").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&posts).Error
	})
	if err := g.Wait(); err != nil {
		return models.PaginatedResult[models.BlogPost]{}, errs.NewDatabaseError("find", "posts", err)
	}

	return models.NewPaginatedResult(posts, total, page, limit), nil
}

// FindByID returns a post, published or not
func (r *BlogPostRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	var post models.BlogPost
	err := primary(r.db, ctx).First(&post, "id = ?", id).Error
	if err != nil {
		return nil, postError("find", err)
	}
	return &post, nil
}

// Create inserts a post into a project. The slug comes from the title; when the project already
// has that slug the insert is retried once with a millisecond timestamp suffix.
func (r *BlogPostRepo) Create(ctx context.Context, projectID uuid.UUID, input models.PostInput) (*models.BlogPost, error) {
	title, err := requiredTitle(input.Title)
	if err != nil {
		return nil, err
	}
	readTime, err := readTimeOrDefault(input.ReadTime)
	if err != nil {
		return nil, err
	}

	post := &models.BlogPost{
		ProjectID:  projectID,
		Title:      title,
		Slug:       slug.ForTitle(title),
		Excerpt:    nullable(input.Excerpt),
		Content:    nullable(input.Content),
		PictureURL: nullable(input.PictureURL),
		Category:   nullable(input.Category),
		ReadTime:   readTime,
	}
	if input.IsPublished != nil {
		post.IsPublished = *input.IsPublished
	}

	err = r.db.WithContext(ctx).Create(post).Error
	if errs.IsDuplicateKey(err) {
		post.Slug = slug.WithTimestamp(post.Slug, r.now())
		err = r.db.WithContext(ctx).Create(post).Error
	}
	if err != nil {
		return nil, errs.NewDatabaseError("create", "post", err)
	}
	return post, nil
}

// Update applies the supplied fields of input and leaves the rest unchanged. A new title also
// moves the post to a new slug, with the same collision handling as Create.
func (r *BlogPostRepo) Update(ctx context.Context, id uuid.UUID, input models.PostInput) (*models.BlogPost, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title, err := requiredTitle(input.Title)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
		if s := slug.ForTitle(title); title != current.Title && !slug.HasBase(current.Slug, s) {
			updates["slug"] = s
		}
	}
	if input.Excerpt != nil {
		updates["excerpt"] = nullable(input.Excerpt)
	}
	if input.Content != nil {
		updates["content"] = nullable(input.Content)
	}
	if input.PictureURL != nil {
		updates["picture_url"] = nullable(input.PictureURL)
	}
	if input.Category != nil {
		updates["category"] = nullable(input.Category)
	}
	if input.ReadTime != nil {
		readTime, err := readTimeOrDefault(input.ReadTime)
		if err != nil {
			return nil, err
		}
		updates["read_time"] = readTime
	}
	if input.IsPublished != nil {
		updates["is_published"] = *input.IsPublished
	}
	if len(updates) == 0 {
		return current, nil
	}

	err = r.apply(ctx, id, updates)
	if s, ok := updates["slug"].(string); ok && errs.IsDuplicateKey(err) {
		updates["slug"] = slug.WithTimestamp(s, r.now())
		err = r.apply(ctx, id, updates)
	}
	if err != nil {
		return nil, errs.NewDatabaseError("update", "post", err)
	}

	return r.FindByID(ctx, id)
}

func (r *BlogPostRepo) apply(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.BlogPost{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NewPostNotFound()
	}
	return nil
}

// Delete removes a post and returns the row as it was, so callers can clean up after it
func (r *BlogPostRepo) Delete(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	post, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.BlogPost{})
	if res.Error != nil {
		return nil, errs.NewDatabaseError("delete", "post", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.NewPostNotFound()
	}
	return post, nil
}

// TogglePublish flips the publish flag in a single statement, so concurrent toggles never
// overwrite each other
func (r *BlogPostRepo) TogglePublish(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	res := r.db.WithContext(ctx).Model(&models.BlogPost{}).
		Where("id = ?", id).
		Update("is_published", gorm.Expr("NOT is_published"))
	if res.Error != nil {
		return nil, errs.NewDatabaseError("update", "post", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.NewPostNotFound()
	}
	return r.FindByID(ctx, id)
}

// PictureInUse reports whether any post still references the image at url
func (r *BlogPostRepo) PictureInUse(ctx context.Context, url string) (bool, error) {
	var count int64
	err := primary(r.db, ctx).Model(&models.BlogPost{}).Where("picture_url = ?", url).Count(&count).Error
	if err != nil {
		return false, errs.NewDatabaseError("count", "posts", err)
	}
	return count > 0, nil
}

// Stats counts the posts of a project by publish state
func (r *BlogPostRepo) Stats(ctx context.Context, projectID uuid.UUID) (models.PostStats, error) {
	var total, published int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return primary(r.db, gctx).Model(&models.BlogPost{}).
			Where("project_id = ?", projectID).
			Count(&total).Error
	})
	g.Go(func() error {
		return primary(r.db, gctx).Model(&models.BlogPost{}).
			Where("project_id = ? AND is_published = ?", projectID, true).
			Count(&published).Error
	})
	if err := g.Wait(); err != nil {
		return models.PostStats{}, errs.NewDatabaseError("count", "posts", err)
	}

	return models.PostStats{Total: total, Published: published, Drafts: total - published}, nil
}

func requiredTitle(title *string) (string, error) {
	if title == nil || strings.TrimSpace(*title) == "" {
		return "", errs.NewValidationError("title", "title is required")
	}
	return strings.TrimSpace(*title), nil
}

// readTimeOrDefault treats a missing or zero read time as the default
func readTimeOrDefault(readTime *int) (int, error) {
	switch {
	case readTime == nil || *readTime == 0:
		return models.DefaultReadTime, nil
	case *readTime < 0:
		return 0, errs.NewValidationError("read_time", "read time cannot be negative")
	}
	return *readTime, nil
}

// nullable maps a blank string to NULL
func nullable(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}

func postError(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NewPostNotFound()
	}
	return errs.NewDatabaseError(op, "post", err)
}
