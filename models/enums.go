package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

var AllAccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeIncome,
	AccountTypeExpense,
}

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// IsDebitNormal reports whether debits increase the balance of this account type.
func (t AccountType) IsDebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid account type %q", s)
	}
	return t, nil
}

func (t *AccountType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("account type must be string")
	}
	parsed, err := ParseAccountType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type BalanceType string

const (
	BalanceTypeDebit  BalanceType = "DR"
	BalanceTypeCredit BalanceType = "CR"
)

func (t BalanceType) IsValid() bool {
	return t == BalanceTypeDebit || t == BalanceTypeCredit
}

func ParseBalanceType(s string) (BalanceType, error) {
	t := BalanceType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid balance type %q", s)
	}
	return t, nil
}

func (t *BalanceType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("balance type must be string")
	}
	parsed, err := ParseBalanceType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type VoucherType string

const (
	VoucherTypeJournal        VoucherType = "JOURNAL"
	VoucherTypePayment        VoucherType = "PAYMENT"
	VoucherTypeReceipt        VoucherType = "RECEIPT"
	VoucherTypePurchase       VoucherType = "PURCHASE"
	VoucherTypeSales          VoucherType = "SALES"
	VoucherTypeContra         VoucherType = "CONTRA"
	VoucherTypePurchaseReturn VoucherType = "PURCHASE_RETURN"
	VoucherTypeSalesReturn    VoucherType = "SALES_RETURN"
	VoucherTypeOpening        VoucherType = "OPENING"
	VoucherTypeClosing        VoucherType = "CLOSING"
)

var voucherPrefixes = map[VoucherType]string{
	VoucherTypeJournal:        "JV",
	VoucherTypePayment:        "PV",
	VoucherTypeReceipt:        "RV",
	VoucherTypePurchase:       "PU",
	VoucherTypeSales:          "SA",
	VoucherTypeContra:         "CV",
	VoucherTypePurchaseReturn: "PR",
	VoucherTypeSalesReturn:    "SR",
	VoucherTypeOpening:        "OB",
	VoucherTypeClosing:        "CB",
}

// DefaultVoucherPrefix is used for any voucher type without a registered prefix.
const DefaultVoucherPrefix = "VO"

func (t VoucherType) IsValid() bool {
	_, ok := voucherPrefixes[t]
	return ok
}

func (t VoucherType) Prefix() string {
	if p, ok := voucherPrefixes[t]; ok {
		return p
	}
	return DefaultVoucherPrefix
}

func ParseVoucherType(s string) (VoucherType, error) {
	t := VoucherType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid voucher type %q", s)
	}
	return t, nil
}

func (t *VoucherType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("voucher type must be string")
	}
	parsed, err := ParseVoucherType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
