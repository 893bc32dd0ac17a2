package accounting

import (
	"context"

	"github.com/mmdatafocus/textile_ledger/models"
)

type chartNode struct {
	Name     string
	Posting  bool
	Children []chartNode
}

type chartRoot struct {
	Type models.AccountType
	chartNode
}

// defaultChart is the standard chart for a textile manufacturer.
var defaultChart = []chartRoot{
	{models.AccountTypeAsset, chartNode{Name: "ASSETS", Children: []chartNode{
		{Name: "Current Assets", Children: []chartNode{
			{Name: "Cash in Hand", Posting: true},
			{Name: "Bank Accounts", Posting: true},
			{Name: "Accounts Receivable", Posting: true},
			{Name: "Raw Material Inventory", Posting: true},
			{Name: "Finished Goods Inventory", Posting: true},
		}},
		{Name: "Fixed Assets", Children: []chartNode{
			{Name: "Plant & Machinery", Posting: true},
			{Name: "Furniture & Fixtures", Posting: true},
		}},
	}}},
	{models.AccountTypeLiability, chartNode{Name: "LIABILITIES", Children: []chartNode{
		{Name: "Current Liabilities", Children: []chartNode{
			{Name: "Accounts Payable", Posting: true},
			{Name: "Accrued Expenses", Posting: true},
			{Name: "Sales Tax Payable", Posting: true},
		}},
		{Name: "Long-term Liabilities", Children: []chartNode{
			{Name: "Bank Loans", Posting: true},
		}},
	}}},
	{models.AccountTypeEquity, chartNode{Name: "EQUITY", Children: []chartNode{
		{Name: "Share Capital", Posting: true},
		{Name: "Retained Earnings", Posting: true},
	}}},
	{models.AccountTypeIncome, chartNode{Name: "INCOME", Children: []chartNode{
		{Name: "Sales Revenue", Posting: true},
		{Name: "Other Income", Posting: true},
	}}},
	{models.AccountTypeExpense, chartNode{Name: "EXPENSES", Children: []chartNode{
		{Name: "Cost of Goods Sold", Children: []chartNode{
			{Name: "Raw Material Consumed", Posting: true},
			{Name: "Dyeing & Processing", Posting: true},
		}},
		{Name: "Operating Expenses", Children: []chartNode{
			{Name: "Salaries & Wages", Posting: true},
			{Name: "Utilities", Posting: true},
			{Name: "Rent", Posting: true},
		}},
	}}},
}

// SetupDefaultCOA creates the standard chart in one transaction. It refuses to
// run when any account already exists.
func (r *AccountRegistry) SetupDefaultCOA(ctx context.Context) ([]*models.Account, error) {
	release, err := r.obtain(ctx, "account-code:chart")
	if err != nil {
		return nil, err
	}
	defer release()

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var count int64
	if err := tx.Model(&models.Account{}).Count(&count).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if count > 0 {
		tx.Rollback()
		return nil, models.NewValidationError("chart of accounts already exists")
	}

	var created []*models.Account
	var create func(accountType models.AccountType, parentID *int, node chartNode) error
	create = func(accountType models.AccountType, parentID *int, node chartNode) error {
		account, err := createAccount(tx, &models.NewAccount{
			Name:               node.Name,
			Type:               accountType,
			ParentID:           parentID,
			IsPosting:          node.Posting,
			OpeningBalanceType: models.BalanceTypeDebit,
		})
		if err != nil {
			return err
		}
		created = append(created, account)
		for _, child := range node.Children {
			if err := create(accountType, &account.ID, child); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range defaultChart {
		if err := create(root.Type, nil, root.chartNode); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return created, nil
}
