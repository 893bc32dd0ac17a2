package models

import (
	"strings"
	"time"

	"github.com/mmdatafocus/textile_ledger/utils"
	"github.com/shopspring/decimal"
)

type JournalEntry struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Number       string          `gorm:"size:30;not null;uniqueIndex" json:"number"`
	Date         time.Time       `gorm:"not null;index" json:"date"`
	Type         VoucherType     `gorm:"size:20;not null;index" json:"type"`
	Reference    string          `gorm:"size:255" json:"reference"`
	Narration    string          `gorm:"type:text" json:"narration"`
	FiscalYearID *int            `gorm:"index" json:"fiscal_year_id"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Lines        []JournalLine   `gorm:"foreignKey:EntryID" json:"lines"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type JournalLine struct {
	ID        int             `gorm:"primary_key" json:"id"`
	EntryID   int             `gorm:"index;not null" json:"entry_id"`
	AccountID int             `gorm:"index;not null" json:"account_id"`
	Debit     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit"`
	Narration string          `gorm:"size:255" json:"narration"`
}

type NewJournalEntry struct {
	Date         time.Time        `json:"date" validate:"required"`
	Type         VoucherType      `json:"type" validate:"required"`
	Reference    string           `json:"reference" validate:"max=255"`
	Narration    string           `json:"narration"`
	FiscalYearID *int             `json:"fiscal_year_id" validate:"omitempty,gt=0"`
	Number       string           `json:"number" validate:"max=30"`
	Lines        []NewJournalLine `json:"lines" validate:"dive"`
}

type NewJournalLine struct {
	AccountID int             `json:"account_id" validate:"required,gt=0"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narration string          `json:"narration" validate:"max=255"`
}

// JournalEntryFilter narrows GetEntries. Zero values mean "no filter".
type JournalEntryFilter struct {
	Type         VoucherType
	FromDate     *time.Time
	ToDate       *time.Time
	FiscalYearID *int
	AccountID    *int
}

// Validate checks the shape of the entry: line count, per-line amounts and balance.
// Account and fiscal year checks need the store and happen in the journal engine.
func (input *NewJournalEntry) Validate() error {
	if len(input.Lines) < 2 {
		return NewValidationError("too few lines")
	}
	input.Number = strings.TrimSpace(input.Number)
	if err := utils.ValidateStruct(input); err != nil {
		return NewValidationError("invalid journal entry: %s", err.Error())
	}
	if !input.Type.IsValid() {
		return NewValidationError("invalid voucher type %q", input.Type)
	}
	input.Date = input.Date.UTC()

	for i := range input.Lines {
		line := &input.Lines[i]
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return NewValidationError("line %d: debit and credit must not be negative", i+1)
		}
		line.Debit = utils.RoundMoney(line.Debit)
		line.Credit = utils.RoundMoney(line.Credit)
		if line.Debit.IsZero() == line.Credit.IsZero() {
			return NewValidationError("line %d: exactly one of debit or credit must have value", i+1)
		}
	}

	debit, credit := input.Totals()
	if !debit.Equal(credit) {
		return NewValidationError("unbalanced entry: debit %s != credit %s", debit.StringFixed(2), credit.StringFixed(2))
	}
	return nil
}

func (input *NewJournalEntry) Totals() (debit, credit decimal.Decimal) {
	for _, line := range input.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

func (input *NewJournalEntry) AccountIDs() []int {
	ids := make([]int, 0, len(input.Lines))
	for _, line := range input.Lines {
		ids = append(ids, line.AccountID)
	}
	return utils.UniqueSlice(ids)
}
