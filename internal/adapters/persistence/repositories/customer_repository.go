package repositories

import (
	"context"
	"errors"

	"credit-approval/internal/adapters/persistence/models"
	"credit-approval/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// customerRepository implements CustomerRepository interface
type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

// Create creates a new customer and fills in the generated ID
func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	row := models.CustomerFromDomain(customer)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	*customer = *row.ToDomain()
	return nil
}

// GetByID gets a customer by ID
func (r *customerRepository) GetByID(ctx context.Context, id uint) (*domain.Customer, error) {
	var row models.Customer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// getForUpdate loads a customer row holding a write lock until the
// surrounding transaction ends
func (r *customerRepository) getForUpdate(ctx context.Context, id uint) (*domain.Customer, error) {
	var row models.Customer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// Upsert inserts the customer with its given ID or overwrites the existing row
func (r *customerRepository) Upsert(ctx context.Context, customer *domain.Customer) (bool, error) {
	var existing models.Customer
	err := r.db.WithContext(ctx).Select("id").Where("id = ?", customer.ID).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	row := models.CustomerFromDomain(customer)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, r.db.WithContext(ctx).Create(row).Error
	}

	return false, r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", customer.ID).
		Updates(map[string]interface{}{
			"first_name":     row.FirstName,
			"last_name":      row.LastName,
			"age":            row.Age,
			"phone_number":   row.PhoneNumber,
			"monthly_salary": row.MonthlySalary,
			"approved_limit": row.ApprovedLimit,
			"current_debt":   row.CurrentDebt,
		}).Error
}

// UpdateCurrentDebt overwrites the stored current debt
func (r *customerRepository) UpdateCurrentDebt(ctx context.Context, id uint, debt decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", id).
		Update("current_debt", debt).Error
}

// Exists checks if a customer exists
func (r *customerRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Count returns the number of customers
func (r *customerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Count(&count).Error
	return count, err
}
