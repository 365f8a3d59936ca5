package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"credit-approval/internal/core/domain"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// MySQL lock wait timeout and deadlock
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// PostgreSQL lock_not_available and deadlock_detected
const (
	pgLockNotAvailable = "55P03"
	pgDeadlockDetected = "40P01"
)

// unitOfWork implements UnitOfWork on top of gorm transactions
type unitOfWork struct {
	db          *gorm.DB
	locks       *customerLocks
	lockTimeout time.Duration
}

// NewUnitOfWork creates a unit of work. lockTimeout bounds both the wait for
// the in-process customer lock and the database row lock.
func NewUnitOfWork(db *gorm.DB, lockTimeout time.Duration) UnitOfWork {
	return &unitOfWork{
		db:          db,
		locks:       newCustomerLocks(),
		lockTimeout: lockTimeout,
	}
}

// WithinCustomerLock serialises work on one customer. It takes the in-process
// lock, opens a transaction, locks the customer row and hands fn repositories
// bound to that transaction. fn's error rolls the transaction back.
func (u *unitOfWork) WithinCustomerLock(ctx context.Context, customerID uint, fn func(ctx context.Context, customer *domain.Customer, repos TxRepositories) error) error {
	release, err := u.locks.acquire(ctx, customerID, u.lockTimeout)
	if err != nil {
		if errors.Is(err, errLockTimeout) {
			return fmt.Errorf("customer %d: %w", customerID, domain.ErrResourceBusy)
		}
		return err
	}
	defer release()

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := setLockTimeout(tx, u.lockTimeout); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}

		customers := &customerRepository{db: tx}
		customer, err := customers.getForUpdate(ctx, customerID)
		if err != nil {
			return err
		}

		return fn(ctx, customer, TxRepositories{
			Customers: customers,
			Loans:     &loanRepository{db: tx},
		})
	})
	if isLockConflict(err) {
		return fmt.Errorf("customer %d: %w", customerID, domain.ErrResourceBusy)
	}
	return err
}

// setLockTimeout bounds row lock waits for the current transaction
func setLockTimeout(tx *gorm.DB, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	switch tx.Dialector.Name() {
	case "mysql":
		seconds := int(timeout / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		return tx.Exec(fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", seconds)).Error
	case "postgres":
		return tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())).Error
	}
	// sqlite waits through the busy_timeout pragma of the connection
	return nil
}

// isLockConflict reports whether err is a lock wait timeout or deadlock
func isLockConflict(err error) bool {
	if err == nil {
		return false
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlLockWaitTimeout || myErr.Number == mysqlDeadlock
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgLockNotAvailable || pgErr.Code == pgDeadlockDetected
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}

	return false
}
