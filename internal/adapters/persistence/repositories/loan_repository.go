package repositories

import (
	"context"
	"errors"
	"time"

	"credit-approval/internal/adapters/persistence/models"
	"credit-approval/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// loanRepository implements LoanRepository interface
type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

// Create creates a new loan and fills in the generated ID
func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	row := models.LoanFromDomain(loan)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	*loan = *row.ToDomain()
	return nil
}

// GetByID gets a loan by ID
func (r *loanRepository) GetByID(ctx context.Context, id uint) (*domain.Loan, error) {
	var row models.Loan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// ListByCustomer lists a customer's loans with pagination
func (r *loanRepository) ListByCustomer(ctx context.Context, customerID uint, offset, limit int) ([]*domain.Loan, int64, error) {
	var rows []models.Loan
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Loan{}).Where("customer_id = ?", customerID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	loans := make([]*domain.Loan, 0, len(rows))
	for i := range rows {
		loans = append(loans, rows[i].ToDomain())
	}
	return loans, total, nil
}

// History returns every loan of a customer in scoring shape
func (r *loanRepository) History(ctx context.Context, customerID uint) ([]domain.LoanHistoryRecord, error) {
	var rows []models.Loan
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("start_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	history := make([]domain.LoanHistoryRecord, 0, len(rows))
	for i := range rows {
		history = append(history, rows[i].ToDomain().HistoryRecord())
	}
	return history, nil
}

// ActiveTotals sums principal and EMI over a customer's active loans.
// Amounts are summed as decimals rather than in SQL to keep exact cents.
func (r *loanRepository) ActiveTotals(ctx context.Context, customerID uint) (ActiveTotals, error) {
	var rows []models.Loan
	err := r.db.WithContext(ctx).
		Select("id", "loan_amount", "monthly_repayment").
		Where("customer_id = ? AND is_active = ?", customerID, true).
		Find(&rows).Error
	if err != nil {
		return ActiveTotals{}, err
	}

	totals := ActiveTotals{Principal: decimal.Zero, EMI: decimal.Zero}
	for _, row := range rows {
		totals.Principal = totals.Principal.Add(row.LoanAmount)
		totals.EMI = totals.EMI.Add(row.MonthlyRepayment)
		totals.Count++
	}
	return totals, nil
}

// Upsert inserts the loan with its given ID or overwrites the existing row
func (r *loanRepository) Upsert(ctx context.Context, loan *domain.Loan) (bool, error) {
	var existing models.Loan
	err := r.db.WithContext(ctx).Select("id").Where("id = ?", loan.ID).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	row := models.LoanFromDomain(loan)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, r.db.WithContext(ctx).Create(row).Error
	}

	return false, r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ?", loan.ID).
		Updates(map[string]interface{}{
			"customer_id":       row.CustomerID,
			"loan_amount":       row.LoanAmount,
			"interest_rate":     row.InterestRate,
			"tenure":            row.Tenure,
			"monthly_repayment": row.MonthlyRepayment,
			"emis_paid_on_time": row.EMIsPaidOnTime,
			"start_date":        row.StartDate,
			"end_date":          row.EndDate,
			"is_active":         row.IsActive,
		}).Error
}

// CustomersWithMaturedLoans lists customers holding active loans whose end
// date is before asOf
func (r *loanRepository) CustomersWithMaturedLoans(ctx context.Context, asOf time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Distinct().
		Where("is_active = ? AND end_date < ?", true, asOf).
		Order("customer_id ASC").
		Pluck("customer_id", &ids).Error
	return ids, err
}

// CloseMatured marks a customer's matured loans inactive
func (r *loanRepository) CloseMatured(ctx context.Context, customerID uint, asOf time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("customer_id = ? AND is_active = ? AND end_date < ?", customerID, true, asOf).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}
