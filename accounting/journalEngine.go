package accounting

import (
	"context"
	"errors"

	"github.com/mmdatafocus/textile_ledger/models"
	"github.com/mmdatafocus/textile_ledger/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JournalEngine posts balanced vouchers. Entries are never updated or deleted;
// a mistake is corrected with a reversing entry.
type JournalEngine struct {
	db          *gorm.DB
	accounts    *AccountRegistry
	sequencer   *VoucherSequencer
	fiscalYears FiscalYearProvider
}

func NewJournalEngine(db *gorm.DB, accounts *AccountRegistry, sequencer *VoucherSequencer, fiscalYears FiscalYearProvider) *JournalEngine {
	if fiscalYears == nil {
		fiscalYears = NewFiscalYearStore(db)
	}
	return &JournalEngine{
		db:          db,
		accounts:    accounts,
		sequencer:   sequencer,
		fiscalYears: fiscalYears,
	}
}

// CreateEntry validates and posts input. Everything, including the voucher
// number increment and the outbox event, commits together or not at all.
func (e *JournalEngine) CreateEntry(ctx context.Context, input *models.NewJournalEntry) (*models.JournalEntry, error) {
	if input == nil {
		return nil, models.NewValidationError("journal entry input is required")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	tx := e.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	entry, err := e.createEntry(ctx, tx, input)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, models.NewConflictError("voucher number %s already exists", entry.Number)
		}
		return nil, err
	}
	return entry, nil
}

func (e *JournalEngine) createEntry(ctx context.Context, tx *gorm.DB, input *models.NewJournalEntry) (*models.JournalEntry, error) {
	if _, err := e.accounts.PostableAccounts(ctx, tx, input.AccountIDs()); err != nil {
		return nil, err
	}

	fiscalYear, err := e.resolveFiscalYear(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	number := input.Number
	if number != "" {
		if err := e.sequencer.ValidateUnused(ctx, tx, number); err != nil {
			return nil, err
		}
	} else {
		number, err = e.sequencer.NextUnused(ctx, tx, input.Type)
		if err != nil {
			return nil, err
		}
	}

	debit, _ := input.Totals()
	entry := &models.JournalEntry{
		Number:      number,
		Date:        input.Date,
		Type:        input.Type,
		Reference:   input.Reference,
		Narration:   input.Narration,
		TotalAmount: debit,
	}
	if fiscalYear != nil {
		entry.FiscalYearID = &fiscalYear.ID
	}
	if err := tx.Omit(clause.Associations).Create(entry).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, models.NewConflictError("voucher number %s already exists", number)
		}
		return nil, err
	}

	lines := make([]models.JournalLine, 0, len(input.Lines))
	for _, l := range input.Lines {
		lines = append(lines, models.JournalLine{
			EntryID:   entry.ID,
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
			Narration: l.Narration,
		})
	}
	if err := tx.Create(&lines).Error; err != nil {
		return nil, err
	}
	entry.Lines = lines

	correlationID, _ := utils.GetCorrelationIdFromContext(ctx)
	record, err := models.NewJournalEntryCreatedRecord(entry, correlationID)
	if err != nil {
		return nil, err
	}
	if err := tx.Create(record).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// resolveFiscalYear returns the requested year, else the active year when it covers the date,
// else whichever year covers the date, else nil.
func (e *JournalEngine) resolveFiscalYear(ctx context.Context, tx *gorm.DB, input *models.NewJournalEntry) (*models.FiscalYear, error) {
	if input.FiscalYearID != nil {
		fy, err := e.fiscalYears.FiscalYearByID(ctx, tx, *input.FiscalYearID)
		if err != nil {
			return nil, err
		}
		if fy.IsLocked {
			return nil, models.NewValidationError("fiscal year %s is locked", fy.Name)
		}
		if !fy.Contains(input.Date) {
			return nil, models.NewValidationError("entry date %s is outside fiscal year %s", input.Date.Format(utils.DateLayout), fy.Name)
		}
		return fy, nil
	}

	fy, err := e.fiscalYears.ActiveFiscalYear(ctx, tx)
	if err != nil {
		return nil, err
	}
	if fy == nil || !fy.Contains(input.Date) {
		fy, err = e.fiscalYears.FiscalYearForDate(ctx, tx, input.Date)
		if err != nil {
			return nil, err
		}
	}
	if fy == nil {
		return nil, nil
	}
	if fy.IsLocked {
		return nil, models.NewValidationError("fiscal year %s is locked", fy.Name)
	}
	return fy, nil
}

func (e *JournalEngine) GetEntry(ctx context.Context, id int) (*models.JournalEntry, error) {
	var entry models.JournalEntry
	err := e.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("journal entry %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetEntries lists entries newest first, lines in posting order.
func (e *JournalEngine) GetEntries(ctx context.Context, filter models.JournalEntryFilter) ([]*models.JournalEntry, error) {
	q := e.db.WithContext(ctx).Model(&models.JournalEntry{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.FromDate != nil {
		q = q.Where("date >= ?", filter.FromDate.UTC())
	}
	if filter.ToDate != nil {
		q = q.Where("date <= ?", filter.ToDate.UTC())
	}
	if filter.FiscalYearID != nil {
		q = q.Where("fiscal_year_id = ?", *filter.FiscalYearID)
	}
	if filter.AccountID != nil {
		q = q.Where("id IN (?)", e.db.Model(&models.JournalLine{}).Select("entry_id").Where("account_id = ?", *filter.AccountID))
	}

	entries := []*models.JournalEntry{}
	err := q.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Order("date DESC").Order("id DESC").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
