package models

import "gorm.io/gorm"

// Initialize default customer groups in your database migration
func CreateDefaultGroups(db *gorm.DB) error {
	defaultGroups := []CustomerGroup{
		{
			Code: "general",
			Name: "General",
		},
		{
			Code: "never_ordered",
			Name: "Never Ordered",
		},
	}
	for _, group := range defaultGroups {
		if err := db.FirstOrCreate(&group, "code = ?", group.Code).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateDefaultStore seeds a single storefront so the service is usable
// before any store provisioning has happened.
func CreateDefaultStore(db *gorm.DB) error {
	store := Store{
		Code: "default",
		Name: "Default Store",
	}
	return db.FirstOrCreate(&store, "code = ?", store.Code).Error
}
