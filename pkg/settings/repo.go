package settings

import (
	"context"

	"gorm.io/gorm"

	"github.com/heykudos/kudos-backend/pkg/db/models"
)

// Repository is the table-backed settings provider.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the provider to the settings table.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get implements Provider.
func (r *Repository) Get(ctx context.Context, key string) (string, bool, error) {
	var row models.Setting
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

// Set upserts a setting value. Used by admin tooling and test fixtures.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	row := models.Setting{Key: key, Value: value}
	return r.db.WithContext(ctx).Save(&row).Error
}
