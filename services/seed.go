package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/rpupo63/digital-mix-backend/auth"
	"github.com/rpupo63/digital-mix-backend/database"
	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/models"
)

// SeedInput describes the first admin of a project
type SeedInput struct {
	ProjectSlug string
	ProjectName string
	Email       string
	Password    string
}

// SeedAdmin makes sure the project, the local user and the admin grant exist. Existing rows are
// reused, so running it twice is harmless; an existing user's password is left as it is.
func SeedAdmin(ctx context.Context, db database.Database, in SeedInput) (*models.Project, *models.User, error) {
	if in.ProjectSlug == "" {
		return nil, nil, errs.NewValidationError("project_slug", "project slug is required")
	}
	if in.Email == "" {
		return nil, nil, errs.NewValidationError("email", "email is required")
	}

	project, err := db.ProjectRepo().FindBySlug(ctx, in.ProjectSlug)
	if errs.IsNotFound(err) {
		name := in.ProjectName
		if name == "" {
			name = in.ProjectSlug
		}
		project = &models.Project{Name: name, Slug: in.ProjectSlug}
		err = db.ProjectRepo().Add(ctx, project)
		if err == nil {
			log.Info().Str("slug", project.Slug).Msg("project created")
		}
	}
	if err != nil {
		return nil, nil, err
	}

	user, err := db.UserRepo().FindByEmail(ctx, in.Email)
	if errs.IsNotFound(err) {
		var hash string
		hash, err = auth.HashPassword(in.Password)
		if err != nil {
			return nil, nil, err
		}
		user = &models.User{Email: in.Email, PasswordHash: hash}
		err = db.UserRepo().Add(ctx, user)
		if err == nil {
			log.Info().Str("email", user.Email).Msg("user created")
		}
	}
	if err != nil {
		return nil, nil, err
	}

	isAdmin, err := db.ProjectAdminRepo().IsAdmin(ctx, project.ID, user.ID.String())
	if err != nil {
		return nil, nil, err
	}
	if !isAdmin {
		grant := &models.ProjectAdmin{ProjectID: project.ID, UserID: user.ID.String()}
		if err := db.ProjectAdminRepo().Add(ctx, grant); err != nil {
			return nil, nil, err
		}
		log.Info().Str("project", project.Slug).Str("email", user.Email).Msg("admin granted")
	}

	return project, user, nil
}
