package api

import (
	"net/http"
	"time"

	"github.com/rpupo63/digital-mix-backend/auth"
	"github.com/rpupo63/digital-mix-backend/cache"
	"github.com/rpupo63/digital-mix-backend/database"
	"github.com/rpupo63/digital-mix-backend/services"
	"github.com/rpupo63/digital-mix-backend/storage"
)

// Dependencies are the collaborators the router hands to its handlers
type Dependencies struct {
	Database   database.Database
	Blog       *services.BlogService
	Images     *storage.Gateway
	ImageFiles http.Handler // serves image keys under /<bucket>/ when the store has no public endpoint
	Guard      *auth.Guard
	Cache      *cache.Store // nil disables response caching
}

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	publicHandler   publicHandler
	sessionHandler  sessionHandler
	projectHandler  projectHandler
	blogPostHandler blogPostHandler
	imageHandler    imageHandler
}

// HealthResponse reports the state of the service
// @Description Health check result
type HealthResponse struct {
	Status   string    `json:"status" example:"ok"`
	Database string    `json:"database" example:"ok"`
	Started  time.Time `json:"started"`
	Uptime   string    `json:"uptime" example:"3h2m1s"`
}

// DeletedResponse confirms the removal of a resource
// @Description Delete confirmation
type DeletedResponse struct {
	ID      string `json:"id,omitempty" example:"6f1c9a7e-0d5b-4a57-9f8e-2b1f3c4d5e6f"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message" example:"post deleted"`
}

// UploadResponse carries the public URL of an uploaded image
// @Description Uploaded image
type UploadResponse struct {
	URL string `json:"url"`
}
