package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rpupo63/digital-mix-backend/errs"
)

// handlerSettings are the configuration values the handlers read
type handlerSettings struct {
	defaultProject   string
	siteURL          string
	startupTime      time.Time
	loginMaxAttempts int
	loginWindow      time.Duration
}

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(deps Dependencies, settings handlerSettings, auth authMiddleware) *routeHandlers {
	return &routeHandlers{
		publicHandler:   newPublicHandler(deps.Blog, deps.Database, settings),
		sessionHandler:  newSessionHandler(deps.Guard, newLoginLimiter(settings.loginMaxAttempts, settings.loginWindow)),
		projectHandler:  newProjectHandler(deps.Database.ProjectRepo(), deps.Blog),
		blogPostHandler: newBlogPostHandler(deps.Blog, auth),
		imageHandler:    newImageHandler(deps.Images),
	}
}

// uuidParam parses the named chi URL parameter as a UUID
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, errs.NewBadRequestError("missing " + name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.NewBadRequestError("invalid " + name)
	}
	return id, nil
}
