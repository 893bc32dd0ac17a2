package accounting

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmdatafocus/textile_ledger/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoucherSequencer hands out per-voucher-type numbers such as SA-00001.
type VoucherSequencer struct {
	db *gorm.DB
}

func NewVoucherSequencer(db *gorm.DB) *VoucherSequencer {
	return &VoucherSequencer{db: db}
}

func FormatVoucherNumber(prefix string, value int64) string {
	return fmt.Sprintf("%s-%05d", prefix, value)
}

// Next issues the next number for voucherType inside tx. The increment is a
// single UPDATE, so the row stays locked until tx commits or rolls back and a
// rolled-back caller gives its number back. With a nil tx the number is issued
// in a transaction of its own.
func (s *VoucherSequencer) Next(ctx context.Context, tx *gorm.DB, voucherType models.VoucherType) (string, error) {
	if tx == nil {
		var number string
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			number, err = s.next(tx, voucherType)
			return err
		})
		return number, err
	}
	return s.next(tx.WithContext(ctx), voucherType)
}

func (s *VoucherSequencer) next(tx *gorm.DB, voucherType models.VoucherType) (string, error) {
	seed := models.VoucherSequence{
		VoucherType: voucherType,
		Prefix:      voucherType.Prefix(),
		NextValue:   1,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return "", fmt.Errorf("seed voucher sequence %s: %w", voucherType, err)
	}

	res := tx.Model(&models.VoucherSequence{}).
		Where("voucher_type = ?", voucherType).
		UpdateColumn("next_value", gorm.Expr("next_value + ?", 1))
	if res.Error != nil {
		return "", fmt.Errorf("increment voucher sequence %s: %w", voucherType, res.Error)
	}
	if res.RowsAffected != 1 {
		return "", fmt.Errorf("increment voucher sequence %s: %d rows affected", voucherType, res.RowsAffected)
	}

	var seq models.VoucherSequence
	if err := tx.Where("voucher_type = ?", voucherType).Take(&seq).Error; err != nil {
		return "", fmt.Errorf("read voucher sequence %s: %w", voucherType, err)
	}
	return FormatVoucherNumber(seq.Prefix, seq.NextValue-1), nil
}

// NextUnused calls Next until it issues a number no entry carries yet.
// Numbers taken by explicit postings are skipped and stay consumed.
func (s *VoucherSequencer) NextUnused(ctx context.Context, tx *gorm.DB, voucherType models.VoucherType) (string, error) {
	if tx == nil {
		var number string
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			number, err = s.NextUnused(ctx, tx, voucherType)
			return err
		})
		return number, err
	}
	for {
		number, err := s.Next(ctx, tx, voucherType)
		if err != nil {
			return "", err
		}
		err = s.ValidateUnused(ctx, tx, number)
		if err == nil {
			return number, nil
		}
		if !errors.Is(err, models.ErrConflict) {
			return "", err
		}
	}
}

// Peek returns the number the next call to Next would issue, without consuming it.
func (s *VoucherSequencer) Peek(ctx context.Context, voucherType models.VoucherType) (string, error) {
	var seq models.VoucherSequence
	err := s.db.WithContext(ctx).Where("voucher_type = ?", voucherType).Take(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return FormatVoucherNumber(voucherType.Prefix(), 1), nil
	}
	if err != nil {
		return "", err
	}
	return FormatVoucherNumber(seq.Prefix, seq.NextValue), nil
}

// ValidateUnused rejects a caller-supplied number that an entry already carries.
func (s *VoucherSequencer) ValidateUnused(ctx context.Context, tx *gorm.DB, number string) error {
	if tx == nil {
		tx = s.db
	}
	var count int64
	err := tx.WithContext(ctx).Model(&models.JournalEntry{}).Where("number = ?", number).Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return models.NewConflictError("voucher number %s already exists", number)
	}
	return nil
}
