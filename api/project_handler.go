package api

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/digital-mix-backend/database"
	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/services"
)

type projectHandler struct {
	responder   Responder
	logger      zerolog.Logger
	projectRepo *database.ProjectRepo
	blog        *services.BlogService
}

func newProjectHandler(projectRepo *database.ProjectRepo, blog *services.BlogService) projectHandler {
	logger := log.With().Str("handlerName", "projectHandler").Logger()

	return projectHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		projectRepo: projectRepo,
		blog:        blog,
	}
}

// getMyProjects lists the projects the signed-in user administers
// @Summary List my projects
// @Description Returns the projects administered by the signed-in user, ordered by name
// @Tags Projects
// @Produce json
// @Success 200 {object} Envelope{data=[]models.Project} "Projects of the current user"
// @Failure 401 {object} Envelope "Unauthorized - Not signed in"
// @Failure 500 {object} Envelope "Internal Server Error - Error fetching projects"
// @Router /admin/projects [get]
func (h projectHandler) getMyProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Authentication handled by middleware
		user, ok := ctxGetUser(r.Context())
		if !ok {
			h.responder.WriteError(w, errs.NewUnauthenticatedError())
			return
		}

		projects, err := h.projectRepo.FindForUser(r.Context(), user.ID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, projects)
	}
}

// getDashboard summarises the posts of a project
// @Summary Project dashboard
// @Description Returns the total, published and draft post counts of a project
// @Tags Projects
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {object} Envelope{data=models.PostStats} "Post counts"
// @Failure 403 {object} Envelope "Forbidden - Not an admin of the project"
// @Failure 404 {object} Envelope "Not Found - Unknown project"
// @Router /admin/projects/{projectID}/dashboard [get]
func (h projectHandler) getDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Project admin check handled by middleware
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		stats, err := h.blog.Dashboard(r.Context(), projectID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, stats)
	}
}
