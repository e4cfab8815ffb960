package database

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/models"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db}
}

// FindByEmail looks a user up by email, case-insensitively
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := primary(r.db, ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, userError(err)
	}
	return &user, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := primary(r.db, ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, userError(err)
	}
	return &user, nil
}

// Add inserts a user. The email is stored lower-cased.
func (r *UserRepo) Add(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return errs.NewDatabaseError("create", "user", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NewUserNotFound()
	}
	return errs.NewDatabaseError("find", "user", err)
}
