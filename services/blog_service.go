package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/digital-mix-backend/cache"
	"github.com/rpupo63/digital-mix-backend/models"
)

// RelatedLimit is how many other posts a post detail suggests
const RelatedLimit = 2

type PostRepository interface {
	ListPublished(ctx context.Context, projectSlug string) ([]models.BlogPost, error)
	GetPublishedBySlug(ctx context.Context, projectSlug, postSlug string) (*models.BlogPost, error)
	ListRelated(ctx context.Context, projectID uuid.UUID, excludeSlug string, limit int) ([]models.BlogPost, error)
	ListAll(ctx context.Context, projectID uuid.UUID, page, limit int) (models.PaginatedResult[models.BlogPost], error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
	Create(ctx context.Context, projectID uuid.UUID, input models.PostInput) (*models.BlogPost, error)
	Update(ctx context.Context, id uuid.UUID, input models.PostInput) (*models.BlogPost, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
	TogglePublish(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
	PictureInUse(ctx context.Context, url string) (bool, error)
	Stats(ctx context.Context, projectID uuid.UUID) (models.PostStats, error)
}

// ImageStore is the part of the storage gateway needed to clean up after deleted posts
type ImageStore interface {
	Owns(url string) bool
	Delete(ctx context.Context, url string) error
}

// PostDetail is a published post with a few others to read next
type PostDetail struct {
	Post    *models.BlogPost  `json:"post"`
	Related []models.BlogPost `json:"related"`
}

// BlogService runs the post operations and their side effects: cache invalidation after every
// write, and removal of the stored image of a deleted post.
type BlogService struct {
	posts       PostRepository
	images      ImageStore
	invalidator cache.Invalidator
	logger      zerolog.Logger
}

func NewBlogService(posts PostRepository, images ImageStore, invalidator cache.Invalidator) *BlogService {
	if invalidator == nil {
		invalidator = cache.Nop{}
	}
	return &BlogService{
		posts:       posts,
		images:      images,
		invalidator: invalidator,
		logger:      log.With().Str("component", "blogService").Logger(),
	}
}

func (s *BlogService) ListPublished(ctx context.Context, projectSlug string) ([]models.BlogPost, error) {
	posts, err := s.posts.ListPublished(ctx, projectSlug)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.BlogPost{}
	}
	return posts, nil
}

// GetPublished returns a published post with up to RelatedLimit other published posts. A failure
// to load the related posts only leaves them out.
func (s *BlogService) GetPublished(ctx context.Context, projectSlug, postSlug string) (*PostDetail, error) {
	post, err := s.posts.GetPublishedBySlug(ctx, projectSlug, postSlug)
	if err != nil {
		return nil, err
	}

	related, err := s.posts.ListRelated(ctx, post.ProjectID, post.Slug, RelatedLimit)
	if err != nil {
		s.logger.Warn().Err(err).Str("slug", post.Slug).Msg("failed to load related posts")
	}
	if related == nil {
		related = []models.BlogPost{}
	}

	return &PostDetail{Post: post, Related: related}, nil
}

func (s *BlogService) ListAll(ctx context.Context, projectID uuid.UUID, page, limit int) (models.PaginatedResult[models.BlogPost], error) {
	return s.posts.ListAll(ctx, projectID, page, limit)
}

func (s *BlogService) Get(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	return s.posts.FindByID(ctx, id)
}

func (s *BlogService) Create(ctx context.Context, projectID uuid.UUID, input models.PostInput) (*models.BlogPost, error) {
	post, err := s.posts.Create(ctx, projectID, input)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.BlogListPath, cache.AdminPostsPath)
	if post.IsPublished {
		s.invalidate(ctx, cache.SitemapPath)
	}
	return post, nil
}

func (s *BlogService) Update(ctx context.Context, id uuid.UUID, input models.PostInput) (*models.BlogPost, error) {
	before, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.BlogListPath, cache.BlogPostPath(post.Slug), cache.AdminPostsPath, cache.SitemapPath)
	if before.Slug != post.Slug {
		s.invalidate(ctx, cache.BlogPostPath(before.Slug))
	}
	return post, nil
}

// Delete removes a post, then its stored image. The image is kept when it is not ours or another
// post still shows it; a failure to remove it is logged and does not fail the delete.
func (s *BlogService) Delete(ctx context.Context, id uuid.UUID) error {
	post, err := s.posts.Delete(ctx, id)
	if err != nil {
		return err
	}

	s.invalidate(ctx, cache.BlogListPath, cache.BlogPostPath(post.Slug), cache.AdminPostsPath, cache.SitemapPath)
	s.deleteImage(ctx, post)
	return nil
}

func (s *BlogService) deleteImage(ctx context.Context, post *models.BlogPost) {
	if s.images == nil || post.PictureURL == nil || !s.images.Owns(*post.PictureURL) {
		return
	}
	url := *post.PictureURL
	logger := s.logger.With().Str("postID", post.ID.String()).Str("url", url).Logger()

	inUse, err := s.posts.PictureInUse(ctx, url)
	if err != nil {
		logger.Warn().Err(err).Msg("could not check image usage; keeping image")
		return
	}
	if inUse {
		logger.Debug().Msg("image still used by another post")
		return
	}

	if err := s.images.Delete(ctx, url); err != nil {
		logger.Error().Err(err).Msg("failed to delete image of deleted post")
	}
}

func (s *BlogService) TogglePublish(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	post, err := s.posts.TogglePublish(ctx, id)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.BlogListPath, cache.BlogPostPath(post.Slug), cache.AdminPostsPath, cache.SitemapPath)
	return post, nil
}

// Dashboard summarises a project's posts
func (s *BlogService) Dashboard(ctx context.Context, projectID uuid.UUID) (models.PostStats, error) {
	return s.posts.Stats(ctx, projectID)
}

func (s *BlogService) invalidate(ctx context.Context, paths ...string) {
	for _, path := range paths {
		s.invalidator.Invalidate(ctx, path)
	}
}
