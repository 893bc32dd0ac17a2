package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LedgerLine struct {
	Date           time.Time       `json:"date"`
	EntryID        int             `json:"entry_id"`
	VoucherNumber  string          `json:"voucher_number"`
	VoucherType    VoucherType     `json:"voucher_type"`
	Narration      string          `json:"narration"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// LedgerStatement is an account's replayed history. The opening balance is
// signed DR positive, CR negative; movements are added on the account type's
// normal side (debit for ASSET and EXPENSE, credit otherwise).
type LedgerStatement struct {
	Account        *Account        `json:"account"`
	From           *time.Time      `json:"from,omitempty"`
	To             *time.Time      `json:"to,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Lines          []LedgerLine    `json:"lines"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

type LedgerRange struct {
	From *time.Time
	To   *time.Time
}

type TrialBalanceRow struct {
	AccountID      int             `json:"account_id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
}
