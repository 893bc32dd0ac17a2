package accounting

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/textile_ledger/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerProjector replays an account's journal lines into a running balance.
// Nothing is cached; every call reads the committed log.
type LedgerProjector struct {
	db *gorm.DB
}

func NewLedgerProjector(db *gorm.DB) *LedgerProjector {
	return &LedgerProjector{db: db}
}

type ledgerRow struct {
	LineID         int
	EntryID        int
	Date           time.Time
	Number         string
	Type           models.VoucherType
	LineNarration  string
	EntryNarration string
	Debit          decimal.Decimal
	Credit         decimal.Decimal
}

// movement is the effect of one line on a balance of accountType.
func movement(accountType models.AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	if accountType.IsDebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

func (p *LedgerProjector) ComputeLedger(ctx context.Context, accountID int) (*models.LedgerStatement, error) {
	return p.ComputeLedgerRange(ctx, accountID, models.LedgerRange{})
}

// ComputeLedgerRange limits the statement to [From, To]. Lines dated before
// From are folded into the opening balance; lines after To are ignored.
func (p *LedgerProjector) ComputeLedgerRange(ctx context.Context, accountID int, rng models.LedgerRange) (*models.LedgerStatement, error) {
	db := p.db.WithContext(ctx)

	var account models.Account
	err := db.First(&account, accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("account %d not found", accountID)
	}
	if err != nil {
		return nil, err
	}

	q := db.Table("journal_lines").
		Select(`journal_lines.id AS line_id, journal_lines.entry_id, journal_entries.date, journal_entries.number,
			journal_entries.type, journal_lines.narration AS line_narration, journal_entries.narration AS entry_narration,
			journal_lines.debit, journal_lines.credit`).
		Joins("JOIN journal_entries ON journal_entries.id = journal_lines.entry_id").
		Where("journal_lines.account_id = ?", accountID)
	if rng.To != nil {
		q = q.Where("journal_entries.date <= ?", rng.To.UTC())
	}
	var rows []ledgerRow
	err = q.Order("journal_entries.date ASC").
		Order("journal_entries.id ASC").
		Order("journal_lines.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	statement := &models.LedgerStatement{
		Account: &account,
		From:    rng.From,
		To:      rng.To,
		Lines:   []models.LedgerLine{},
	}
	balance := account.SignedOpeningBalance()
	for _, row := range rows {
		delta := movement(account.Type, row.Debit, row.Credit)
		if rng.From != nil && row.Date.Before(*rng.From) {
			balance = balance.Add(delta)
			continue
		}
		if len(statement.Lines) == 0 {
			statement.OpeningBalance = balance
		}
		balance = balance.Add(delta)

		narration := row.LineNarration
		if narration == "" {
			narration = row.EntryNarration
		}
		statement.Lines = append(statement.Lines, models.LedgerLine{
			Date:           row.Date,
			EntryID:        row.EntryID,
			VoucherNumber:  row.Number,
			VoucherType:    row.Type,
			Narration:      narration,
			Debit:          row.Debit,
			Credit:         row.Credit,
			RunningBalance: balance,
		})
		statement.TotalDebit = statement.TotalDebit.Add(row.Debit)
		statement.TotalCredit = statement.TotalCredit.Add(row.Credit)
	}
	if len(statement.Lines) == 0 {
		statement.OpeningBalance = balance
	}
	statement.ClosingBalance = balance
	return statement, nil
}

// TrialBalance reports every posting account's closing balance. Debit and
// Credit split the net position with debits positive.
func (p *LedgerProjector) TrialBalance(ctx context.Context) ([]models.TrialBalanceRow, error) {
	db := p.db.WithContext(ctx)

	var accounts []*models.Account
	if err := db.Where("is_posting = ?", true).Find(&accounts).Error; err != nil {
		return nil, err
	}
	sortByCode(accounts)

	type lineTotals struct {
		AccountID int
		Debit     decimal.Decimal
		Credit    decimal.Decimal
	}
	var lines []lineTotals
	if err := db.Model(&models.JournalLine{}).Select("account_id, debit, credit").Scan(&lines).Error; err != nil {
		return nil, err
	}
	debits := make(map[int]decimal.Decimal)
	credits := make(map[int]decimal.Decimal)
	for _, l := range lines {
		debits[l.AccountID] = debits[l.AccountID].Add(l.Debit)
		credits[l.AccountID] = credits[l.AccountID].Add(l.Credit)
	}

	rows := make([]models.TrialBalanceRow, 0, len(accounts))
	for _, a := range accounts {
		d, c := debits[a.ID], credits[a.ID]
		row := models.TrialBalanceRow{
			AccountID:      a.ID,
			Code:           a.Code,
			Name:           a.Name,
			Type:           a.Type,
			ClosingBalance: a.SignedOpeningBalance().Add(movement(a.Type, d, c)),
		}
		net := a.SignedOpeningBalance().Add(d).Sub(c)
		if net.IsPositive() {
			row.Debit = net
		} else {
			row.Credit = net.Neg()
		}
		rows = append(rows, row)
	}
	return rows, nil
}
