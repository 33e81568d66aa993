package models

import (
	"strings"

	"gorm.io/gorm"
)

// Store represents a storefront. All reminder settings, senders and
// timezones are scoped to a store.
type Store struct {
	gorm.Model
	Code string `gorm:"not null;uniqueIndex" json:"code"`
	Name string `gorm:"not null" json:"name"`
}

// CustomerGroup is a named segment customers can be assigned to
// (e.g. "General", "Inactive"). The terminal reminder action can move
// a customer into one of these by code.
type CustomerGroup struct {
	gorm.Model
	Code string `gorm:"not null;uniqueIndex" json:"code"`
	Name string `gorm:"not null" json:"name"`
}

// Customer is a registered account in the store registry. CreatedAt from
// gorm.Model is the registration timestamp the reminder windows match
// against.
type Customer struct {
	gorm.Model
	StoreID uint `gorm:"not null;index" json:"store_id"`
	GroupID uint `gorm:"index" json:"group_id"`

	Email     string `gorm:"not null;index" json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// Relations
	Orders []Order `gorm:"foreignKey:CustomerID" json:"orders,omitempty"`
}

// Name returns the customer's display name, falling back to the email
// address when no name is on file.
func (c *Customer) Name() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return c.Email
	}
	return name
}
