package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/models"
)

type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db}
}

// FindBySlug resolves the tenant of a public request
func (r *ProjectRepo) FindBySlug(ctx context.Context, slug string) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&project).Error
	if err != nil {
		return nil, projectError("find", err)
	}
	return &project, nil
}

// FindByID returns a project by its ID
func (r *ProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := primary(r.db, ctx).First(&project, "id = ?", id).Error
	if err != nil {
		return nil, projectError("find", err)
	}
	return &project, nil
}

// FindForUser returns the projects userID administers, by name
func (r *ProjectRepo) FindForUser(ctx context.Context, userID string) ([]models.Project, error) {
	projects := []models.Project{}
	err := primary(r.db, ctx).
		Joins("JOIN project_admins ON project_admins.project_id = projects.id").
		Where("project_admins.user_id = ?", userID).
		Order("projects.name ASC").
		Find(&projects).Error
	if err != nil {
		return nil, errs.NewDatabaseError("find", "projects", err)
	}
	return projects, nil
}

// Add inserts a new project into the database
func (r *ProjectRepo) Add(ctx context.Context, project *models.Project) error {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return errs.NewDatabaseError("create", "project", err)
	}
	return nil
}

func projectError(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NewProjectNotFound()
	}
	return errs.NewDatabaseError(op, "project", err)
}
