package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultReadTime is the read-time estimate, in minutes, given to posts that don't set one
const DefaultReadTime = 5

// BlogPost represents a blog post owned by a project
type BlogPost struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey;not null"`
	ProjectID   uuid.UUID `json:"project_id" db:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_blog_posts_project_slug;index:idx_blog_posts_project_id"`
	Slug        string    `json:"slug" db:"slug" gorm:"type:text;not null;uniqueIndex:idx_blog_posts_project_slug"`
	Title       string    `json:"title" db:"title" gorm:"type:text;not null"`
	Excerpt     *string   `json:"excerpt" db:"excerpt" gorm:"type:text"`
	PictureURL  *string   `json:"picture_url" db:"picture_url" gorm:"type:text"`
	Content     *string   `json:"content" db:"content" gorm:"type:text"`
	ReadTime    int       `json:"read_time" db:"read_time" gorm:"type:integer;not null;default:5"`
	Category    *string   `json:"category" db:"category" gorm:"type:text"`
	IsPublished bool      `json:"is_published" db:"is_published" gorm:"not null;default:false;index:idx_blog_posts_published"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at" gorm:"not null;autoUpdateTime"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
}

func (p *BlogPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PostInput carries the editable fields of a post. A nil field was not supplied; an empty string
// clears a nullable text field.
type PostInput struct {
	Title       *string `json:"title"`
	Excerpt     *string `json:"excerpt"`
	Content     *string `json:"content"`
	PictureURL  *string `json:"picture_url"`
	ReadTime    *int    `json:"read_time"`
	Category    *string `json:"category"`
	IsPublished *bool   `json:"is_published"`
}

// PostStats summarises a project's posts for the admin dashboard
type PostStats struct {
	Total     int64 `json:"total"`
	Published int64 `json:"published"`
	Drafts    int64 `json:"drafts"`
}
