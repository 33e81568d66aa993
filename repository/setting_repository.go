package repository

import (
	"context"
	"errors"

	"ordernudge/models"

	"gorm.io/gorm"
)

// SettingRepository resolves store-scoped configuration values from the
// store_settings table.
type SettingRepository struct {
	DB *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{DB: db}
}

func (r *SettingRepository) Setting(ctx context.Context, storeID uint, path string) (string, bool, error) {
	var setting models.StoreSetting
	err := r.DB.WithContext(ctx).
		First(&setting, "store_id = ? AND path = ?", storeID, path).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return setting.Value, true, nil
}
