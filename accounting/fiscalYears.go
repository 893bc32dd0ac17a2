package accounting

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/textile_ledger/models"
	"gorm.io/gorm"
)

// FiscalYearProvider is the read-only view of fiscal years the journal engine needs.
// tx is the caller's transaction and may be nil.
type FiscalYearProvider interface {
	ActiveFiscalYear(ctx context.Context, tx *gorm.DB) (*models.FiscalYear, error)
	FiscalYearByID(ctx context.Context, tx *gorm.DB, id int) (*models.FiscalYear, error)
	FiscalYearForDate(ctx context.Context, tx *gorm.DB, date time.Time) (*models.FiscalYear, error)
}

// FiscalYearStore reads the fiscal_years table owned by the settings module.
type FiscalYearStore struct {
	db *gorm.DB
}

func NewFiscalYearStore(db *gorm.DB) *FiscalYearStore {
	return &FiscalYearStore{db: db}
}

// ActiveFiscalYear returns the most recently created active year, or nil when none is active.
func (s *FiscalYearStore) ActiveFiscalYear(ctx context.Context, tx *gorm.DB) (*models.FiscalYear, error) {
	var fy models.FiscalYear
	err := s.conn(tx).WithContext(ctx).
		Where("is_active = ?", true).
		Order("id DESC").
		Take(&fy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fy, nil
}

func (s *FiscalYearStore) FiscalYearByID(ctx context.Context, tx *gorm.DB, id int) (*models.FiscalYear, error) {
	var fy models.FiscalYear
	err := s.conn(tx).WithContext(ctx).First(&fy, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("fiscal year %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &fy, nil
}

// FiscalYearForDate returns the dated year whose range covers date, or nil when none does.
// Overlapping years resolve to a locked one first.
func (s *FiscalYearStore) FiscalYearForDate(ctx context.Context, tx *gorm.DB, date time.Time) (*models.FiscalYear, error) {
	var fy models.FiscalYear
	err := s.conn(tx).WithContext(ctx).
		Where("start_date <= ? AND end_date >= ?", date, date).
		Order("is_locked DESC, id DESC").
		Take(&fy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fy, nil
}

func (s *FiscalYearStore) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
