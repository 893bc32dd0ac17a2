package accounting

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/mmdatafocus/textile_ledger/models"
	"gorm.io/gorm"
)

var rootCodes = map[models.AccountType]int64{
	models.AccountTypeAsset:     1000,
	models.AccountTypeLiability: 2000,
	models.AccountTypeEquity:    3000,
	models.AccountTypeIncome:    4000,
	models.AccountTypeExpense:   5000,
}

const rootCodeStep = 1000

// childCodeStep is chosen by the parent's level, not the new account's.
func childCodeStep(parentLevel int) int64 {
	switch parentLevel {
	case 0:
		return 100
	case 1:
		return 10
	default:
		return 1
	}
}

func nextRootCode(tx *gorm.DB, accountType models.AccountType) (string, error) {
	base, ok := rootCodes[accountType]
	if !ok {
		return "", models.NewValidationError("invalid account type %q", accountType)
	}
	var codes []string
	err := tx.Model(&models.Account{}).
		Where("parent_id IS NULL AND type = ?", accountType).
		Pluck("code", &codes).Error
	if err != nil {
		return "", err
	}
	if len(codes) == 0 {
		return formatCode(base), nil
	}
	highest, err := maxCode(codes)
	if err != nil {
		return "", err
	}
	return formatCode(highest + rootCodeStep), nil
}

func nextChildCode(tx *gorm.DB, parent *models.Account) (string, error) {
	step := childCodeStep(parent.Level)
	var codes []string
	err := tx.Model(&models.Account{}).
		Where("parent_id = ?", parent.ID).
		Pluck("code", &codes).Error
	if err != nil {
		return "", err
	}
	if len(codes) == 0 {
		base, err := parseCode(parent.Code)
		if err != nil {
			return "", err
		}
		return formatCode(base + step), nil
	}
	highest, err := maxCode(codes)
	if err != nil {
		return "", err
	}
	return formatCode(highest + step), nil
}

func maxCode(codes []string) (int64, error) {
	var highest int64
	for i, c := range codes {
		n, err := parseCode(c)
		if err != nil {
			return 0, err
		}
		if i == 0 || n > highest {
			highest = n
		}
	}
	return highest, nil
}

func parseCode(code string) (int64, error) {
	n, err := strconv.ParseInt(code, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("account code %q is not numeric: %w", code, err)
	}
	return n, nil
}

func formatCode(n int64) string {
	return strconv.FormatInt(n, 10)
}

// sortByCode orders numerically so "10000" sorts after "9000".
func sortByCode(accounts []*models.Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		a, b := accounts[i].Code, accounts[j].Code
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}
