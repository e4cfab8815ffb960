package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/digital-mix-backend/database"
	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/services"
)

const healthTimeout = 2 * time.Second

type publicHandler struct {
	responder      Responder
	logger         zerolog.Logger
	blog           *services.BlogService
	database       database.Database
	defaultProject string
	siteURL        string
	startupTime    time.Time
}

func newPublicHandler(blog *services.BlogService, db database.Database, settings handlerSettings) publicHandler {
	logger := log.With().Str("handlerName", "publicHandler").Logger()

	return publicHandler{
		responder:      NewResponder(logger),
		logger:         logger,
		blog:           blog,
		database:       db,
		defaultProject: settings.defaultProject,
		siteURL:        settings.siteURL,
		startupTime:    settings.startupTime,
	}
}

// projectSlug picks the project of a public request, falling back to the site's own project
func (h publicHandler) projectSlug(r *http.Request) (string, error) {
	slug := strings.TrimSpace(r.URL.Query().Get("project"))
	if slug == "" {
		slug = h.defaultProject
	}
	if slug == "" {
		return "", errs.NewValidationError("project", "project is required")
	}
	return slug, nil
}

// listPosts returns the published posts of a project
// @Summary List published posts
// @Description Returns the published posts of a project, newest first
// @Tags Blog
// @Produce json
// @Param project query string false "Project slug, defaults to the site's project"
// @Success 200 {object} Envelope{data=[]models.BlogPost} "Published posts"
// @Failure 404 {object} Envelope "Not Found - Unknown project"
// @Failure 500 {object} Envelope "Internal Server Error"
// @Router /blogs [get]
func (h publicHandler) listPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectSlug, err := h.projectSlug(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		posts, err := h.blog.ListPublished(r.Context(), projectSlug)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, posts)
	}
}

// getPost returns one published post and a few others to read next
// @Summary Get published post
// @Description Returns a published post by slug together with related posts
// @Tags Blog
// @Produce json
// @Param slug path string true "Post slug"
// @Param project query string false "Project slug, defaults to the site's project"
// @Success 200 {object} Envelope{data=services.PostDetail} "Post with related posts"
// @Failure 404 {object} Envelope "Not Found - Post is missing or not published"
// @Failure 500 {object} Envelope "Internal Server Error"
// @Router /blogs/{slug} [get]
func (h publicHandler) getPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectSlug, err := h.projectSlug(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		detail, err := h.blog.GetPublished(r.Context(), projectSlug, chi.URLParam(r, "slug"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, detail)
	}
}

// sitemap renders the sitemap of the site's own project
// @Summary Sitemap
// @Tags Blog
// @Produce xml
// @Success 200 {string} string "sitemap.xml"
// @Failure 500 {object} Envelope "Internal Server Error"
// @Router /sitemap.xml [get]
func (h publicHandler) sitemap() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := h.blog.ListPublished(r.Context(), h.defaultProject)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		body, err := services.Sitemap(h.siteURL, posts, time.Now())
		if err != nil {
			h.responder.WriteError(w, errs.NewInternalErrorWithCause("failed to render sitemap", err))
			return
		}

		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(body); err != nil {
			h.logger.Error().Err(err).Msg("error writing sitemap")
		}
	}
}

// healthz reports whether the service and its database are up
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} Envelope{data=HealthResponse} "Service is healthy"
// @Failure 503 {object} Envelope{data=HealthResponse} "Database unreachable"
// @Router /healthz [get]
func (h publicHandler) healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		health := HealthResponse{
			Status:   "ok",
			Database: "ok",
			Started:  h.startupTime,
			Uptime:   time.Since(h.startupTime).Round(time.Second).String(),
		}

		if err := h.database.Ping(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("database ping failed")
			health.Status = "degraded"
			health.Database = "unreachable"
			h.responder.writeEnvelope(w, http.StatusServiceUnavailable, Envelope{Data: health, Error: "database unreachable"})
			return
		}

		h.responder.WriteJSON(w, health)
	}
}
