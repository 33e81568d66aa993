package models

import "gorm.io/gorm"

// StoreSetting is a store-scoped configuration value, addressed by a
// slash-separated path (e.g. "order_reminder/interval_days"). Values are
// stored as strings and parsed by the consumer.
type StoreSetting struct {
	gorm.Model
	StoreID uint   `gorm:"not null;uniqueIndex:idx_store_setting_path" json:"store_id"`
	Path    string `gorm:"not null;uniqueIndex:idx_store_setting_path" json:"path"`
	Value   string `json:"value"`
}
