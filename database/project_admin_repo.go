package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/models"
)

type ProjectAdminRepo struct {
	db *gorm.DB
}

func NewProjectAdminRepo(db *gorm.DB) *ProjectAdminRepo {
	return &ProjectAdminRepo{db}
}

// IsAdmin reports whether userID administers projectID
func (r *ProjectAdminRepo) IsAdmin(ctx context.Context, projectID uuid.UUID, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	var count int64
	err := primary(r.db, ctx).Model(&models.ProjectAdmin{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	if err != nil {
		return false, errs.NewDatabaseError("check", "project admin", err)
	}
	return count > 0, nil
}

// Add grants userID admin rights over a project. Granting twice fails with ErrAlreadyExists.
func (r *ProjectAdminRepo) Add(ctx context.Context, admin *models.ProjectAdmin) error {
	if err := r.db.WithContext(ctx).Create(admin).Error; err != nil {
		return errs.NewDatabaseError("create", "project admin", err)
	}
	return nil
}

// Delete revokes admin rights. Revoking a grant that doesn't exist is not an error.
func (r *ProjectAdminRepo) Delete(ctx context.Context, projectID uuid.UUID, userID string) error {
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectAdmin{}).Error
	if err != nil {
		return errs.NewDatabaseError("delete", "project admin", err)
	}
	return nil
}
