package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestNewPaginatedResult(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		limit      int
		totalPages int
	}{
		{"empty", 0, 10, 0},
		{"exact", 20, 10, 2},
		{"partial last page", 15, 10, 2},
		{"single", 1, 20, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewPaginatedResult[int](nil, tt.total, 1, tt.limit)
			assert.Equal(t, tt.totalPages, res.TotalPages)
			assert.NotNil(t, res.Data)
		})
	}
}

func TestColumnMismatches(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, Migrate(db))

	report, err := ColumnMismatches(db)
	require.NoError(t, err)
	assert.Empty(t, report["blog_posts"])
	assert.Empty(t, report["projects"])

	require.NoError(t, db.Exec("ALTER TABLE blog_posts ADD COLUMN legacy_views integer").Error)

	report, err = ColumnMismatches(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy_views"}, report["blog_posts"])
}

func TestColumnMismatches_SkipsMissingTables(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.AutoMigrate(&Project{}))

	report, err := ColumnMismatches(db)
	require.NoError(t, err)
	assert.Contains(t, report, "projects")
	assert.NotContains(t, report, "blog_posts")
}
