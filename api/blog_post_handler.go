package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/models"
	"github.com/rpupo63/digital-mix-backend/services"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

type blogPostHandler struct {
	responder Responder
	logger    zerolog.Logger
	blog      *services.BlogService
	auth      authMiddleware
}

func newBlogPostHandler(blog *services.BlogService, auth authMiddleware) blogPostHandler {
	logger := log.With().Str("handlerName", "blogPostHandler").Logger()

	return blogPostHandler{
		responder: NewResponder(logger),
		logger:    logger,
		blog:      blog,
		auth:      auth,
	}
}

// pagination reads page and limit from the query string. limit is capped at maxLimit.
func pagination(r *http.Request) (page, limit int, err error) {
	page, err = intQuery(r, "page", defaultPage)
	if err != nil {
		return 0, 0, err
	}
	limit, err = intQuery(r, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, nil
}

func intQuery(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.NewValidationError(name, name+" must be an integer")
	}
	return v, nil
}

// loadPost fetches the post named by the {postID} URL parameter and checks that the signed-in user
// administers its project. It answers the request itself when either step fails.
func (h blogPostHandler) loadPost(w http.ResponseWriter, r *http.Request) (*models.BlogPost, bool) {
	postID, err := uuidParam(r, "postID")
	if err != nil {
		h.responder.WriteError(w, err)
		return nil, false
	}

	post, err := h.blog.Get(r.Context(), postID)
	if err != nil {
		h.responder.WriteError(w, err)
		return nil, false
	}

	if !h.auth.authorizeProject(w, r, post.ProjectID) {
		return nil, false
	}
	return post, true
}

// listPosts returns one page of a project's posts, drafts included
// @Summary List project posts
// @Description Returns a page of the project's posts, most recently updated first
// @Tags Blog Posts
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Param page query int false "Page number, from 1" default(1)
// @Param limit query int false "Page size, at most 100" default(20)
// @Success 200 {object} Envelope{data=models.PaginatedResult[models.BlogPost]} "Page of posts"
// @Failure 400 {object} Envelope "Bad Request - Invalid page or limit"
// @Failure 403 {object} Envelope "Forbidden - Not an admin of the project"
// @Router /admin/projects/{projectID}/posts [get]
func (h blogPostHandler) listPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Project admin check handled by middleware
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		page, limit, err := pagination(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		result, err := h.blog.ListAll(r.Context(), projectID, page, limit)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, result)
	}
}

// createPost creates a post in a project
// @Summary Create post
// @Description Creates a post. The slug is derived from the title.
// @Tags Blog Posts
// @Accept json
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Param post body models.PostInput true "Post fields, title required"
// @Success 201 {object} Envelope{data=models.BlogPost} "Created post"
// @Failure 400 {object} Envelope "Bad Request - Invalid post data"
// @Failure 403 {object} Envelope "Forbidden - Not an admin of the project"
// @Router /admin/projects/{projectID}/posts [post]
func (h blogPostHandler) createPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Project admin check handled by middleware
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var input models.PostInput
		if err := decodeJSON(w, r, &input); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		post, err := h.blog.Create(r.Context(), projectID, input)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Str("postID", post.ID.String()).Str("slug", post.Slug).Msg("post created")
		h.responder.WriteJSONStatus(w, http.StatusCreated, post)
	}
}

// getPost returns a post, published or not
// @Summary Get post
// @Tags Blog Posts
// @Produce json
// @Param postID path string true "Post ID" format(uuid)
// @Success 200 {object} Envelope{data=models.BlogPost} "Post"
// @Failure 403 {object} Envelope "Forbidden - Not an admin of the post's project"
// @Failure 404 {object} Envelope "Not Found - Post not found"
// @Router /admin/posts/{postID} [get]
func (h blogPostHandler) getPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, ok := h.loadPost(w, r)
		if !ok {
			return
		}
		h.responder.WriteJSON(w, post)
	}
}

// updatePost changes the supplied fields of a post
// @Summary Update post
// @Description Applies the supplied fields. Omitted or null fields stay unchanged, an empty string clears a text field.
// @Tags Blog Posts
// @Accept json
// @Produce json
// @Param postID path string true "Post ID" format(uuid)
// @Param post body models.PostInput true "Fields to change"
// @Success 200 {object} Envelope{data=models.BlogPost} "Updated post"
// @Failure 400 {object} Envelope "Bad Request - Invalid post data"
// @Failure 403 {object} Envelope "Forbidden - Not an admin of the post's project"
// @Failure 404 {object} Envelope "Not Found - Post not found"
// @Router /admin/posts/{postID} [put]
func (h blogPostHandler) updatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, ok := h.loadPost(w, r)
		if !ok {
			return
		}

		var input models.PostInput
		if err := decodeJSON(w, r, &input); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		updated, err := h.blog.Update(r.Context(), post.ID, input)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, updated)
	}
}

// deletePost deletes a post and its stored image
// @Summary Delete post
// @Tags Blog Posts
// @Produce json
// @Param postID path string true "Post ID" format(uuid)
// @Success 200 {object} Envelope{data=DeletedResponse} "Deleted"
// @Failure 403 {object} Envelope "Forbidden - Not an admin of the post's project"
// @Failure 404 {object} Envelope "Not Found - Post not found"
// @Router /admin/posts/{postID} [delete]
func (h blogPostHandler) deletePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, ok := h.loadPost(w, r)
		if !ok {
			return
		}

		if err := h.blog.Delete(r.Context(), post.ID); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Str("postID", post.ID.String()).Msg("post deleted")
		h.responder.WriteJSON(w, DeletedResponse{ID: post.ID.String(), Message: "post deleted"})
	}
}

// togglePublish flips a post between draft and published
// @Summary Toggle publish
// @Tags Blog Posts
// @Produce json
// @Param postID path string true "Post ID" format(uuid)
// @Success 200 {object} Envelope{data=models.BlogPost} "Post with its new state"
// @Failure 403 {object} Envelope "Forbidden - Not an admin of the post's project"
// @Failure 404 {object} Envelope "Not Found - Post not found"
// @Router /admin/posts/{postID}/publish [post]
func (h blogPostHandler) togglePublish() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, ok := h.loadPost(w, r)
		if !ok {
			return
		}

		toggled, err := h.blog.TogglePublish(r.Context(), post.ID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, toggled)
	}
}
