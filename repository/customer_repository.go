package repository

import (
	"context"
	"errors"
	"time"

	"ordernudge/models"

	"gorm.io/gorm"
)

// CustomerRepository backs the reminder service's registry queries with
// Postgres via gorm.
type CustomerRepository struct {
	DB *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{DB: db}
}

func (r *CustomerRepository) Stores(ctx context.Context) ([]models.Store, error) {
	var stores []models.Store
	if err := r.DB.WithContext(ctx).Order("id").Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

// CustomersCreatedBetween returns customers of a store whose account was
// created inside the window, bounds inclusive.
func (r *CustomerRepository) CustomersCreatedBetween(ctx context.Context, storeID uint, start, end time.Time) ([]models.Customer, error) {
	var customers []models.Customer
	err := r.DB.WithContext(ctx).
		Where("store_id = ? AND created_at >= ? AND created_at <= ?", storeID, start, end).
		Order("id").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *CustomerRepository) OrderCount(ctx context.Context, customerID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Where("customer_id = ?", customerID).
		Count(&count).Error
	return count, err
}

func (r *CustomerRepository) GroupIDByCode(ctx context.Context, code string) (uint, bool, error) {
	var group models.CustomerGroup
	err := r.DB.WithContext(ctx).First(&group, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return group.ID, true, nil
}

func (r *CustomerRepository) SetCustomerGroup(ctx context.Context, customerID, groupID uint) error {
	return r.DB.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", customerID).
		Update("group_id", groupID).Error
}

// DeleteCustomer removes the account permanently. Unscoped so the row is
// gone, not soft-deleted.
func (r *CustomerRepository) DeleteCustomer(ctx context.Context, customerID uint) error {
	return r.DB.WithContext(ctx).
		Unscoped().
		Delete(&models.Customer{}, customerID).Error
}
