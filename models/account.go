package models

import (
	"strings"
	"time"

	"github.com/mmdatafocus/textile_ledger/utils"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	Code               string          `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Name               string          `gorm:"size:100;not null" json:"name"`
	Type               AccountType     `gorm:"size:20;not null;index" json:"type"`
	ParentID           *int            `gorm:"index" json:"parent_id"`
	Level              int             `gorm:"not null" json:"level"`
	IsPosting          bool            `gorm:"not null" json:"is_posting"`
	OpeningBalance     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_balance"`
	OpeningBalanceType BalanceType     `gorm:"size:2;not null" json:"opening_balance_type"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAccount struct {
	Name               string          `json:"name" validate:"required,max=100"`
	Type               AccountType     `json:"type" validate:"required"`
	ParentID           *int            `json:"parent_id" validate:"omitempty,gt=0"`
	IsPosting          bool            `json:"is_posting"`
	OpeningBalance     decimal.Decimal `json:"opening_balance"`
	OpeningBalanceType BalanceType     `json:"opening_balance_type"`
}

// AccountNode is one account with its children, built on demand from parent ids.
type AccountNode struct {
	*Account
	Children []*AccountNode `json:"children"`
}

// Validate normalises the input and rejects malformed values.
func (input *NewAccount) Validate() error {
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return NewValidationError("invalid account: %s", err.Error())
	}
	if !input.Type.IsValid() {
		return NewValidationError("invalid account type %q", input.Type)
	}
	if input.OpeningBalanceType == "" {
		input.OpeningBalanceType = BalanceTypeDebit
	}
	if !input.OpeningBalanceType.IsValid() {
		return NewValidationError("invalid opening balance type %q", input.OpeningBalanceType)
	}
	if input.OpeningBalance.IsNegative() {
		return NewValidationError("opening balance must not be negative")
	}
	input.OpeningBalance = utils.RoundMoney(input.OpeningBalance)
	return nil
}

// SignedOpeningBalance is the opening balance with DR positive and CR negative.
func (a *Account) SignedOpeningBalance() decimal.Decimal {
	if a.OpeningBalanceType == BalanceTypeCredit {
		return a.OpeningBalance.Neg()
	}
	return a.OpeningBalance
}
