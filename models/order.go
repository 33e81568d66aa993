package models

import "gorm.io/gorm"

// Order is a placed order. The reminder job only ever counts orders per
// customer; any order at all, whatever its status, makes the customer
// ineligible for reminders.
type Order struct {
	gorm.Model
	CustomerID uint `gorm:"not null;index" json:"customer_id"`
	StoreID    uint `gorm:"not null;index" json:"store_id"`

	IncrementID string  `gorm:"uniqueIndex" json:"increment_id"`
	Status      string  `gorm:"default:'pending'" json:"status"`
	GrandTotal  float64 `json:"grand_total"`
	Currency    string  `gorm:"default:'USD'" json:"currency"`
}
