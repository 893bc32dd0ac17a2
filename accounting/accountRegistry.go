// Package accounting is the double-entry core: the chart of accounts, voucher
// numbering, journal posting and ledger replay. It does no logging; callers
// decide how to report the typed errors from the models package.
package accounting

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmdatafocus/textile_ledger/models"
	"github.com/mmdatafocus/textile_ledger/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRegistry struct {
	db     *gorm.DB
	locker Locker
}

// NewAccountRegistry returns a registry over db. locker may be nil.
func NewAccountRegistry(db *gorm.DB, locker Locker) *AccountRegistry {
	if locker == nil {
		locker = noopLocker{}
	}
	return &AccountRegistry{db: db, locker: locker}
}

func (r *AccountRegistry) CreateAccount(ctx context.Context, input *models.NewAccount) (*models.Account, error) {
	if input == nil {
		return nil, models.NewValidationError("account input is required")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	release, err := r.obtain(ctx, codeLockKey(input.ParentID, input.Type))
	if err != nil {
		return nil, err
	}
	defer release()

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	account, err := createAccount(tx, input)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, models.NewConflictError("account code %s already exists", account.Code)
		}
		return nil, err
	}
	return account, nil
}

// createAccount runs inside tx. The parent row stays locked until tx ends so
// siblings created concurrently under the same parent are serialised.
func createAccount(tx *gorm.DB, input *models.NewAccount) (*models.Account, error) {
	account := &models.Account{
		Name:               input.Name,
		Type:               input.Type,
		IsPosting:          input.IsPosting,
		OpeningBalance:     input.OpeningBalance,
		OpeningBalanceType: input.OpeningBalanceType,
	}

	var code string
	if input.ParentID != nil {
		var parent models.Account
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&parent, *input.ParentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("parent account %d not found", *input.ParentID)
		}
		if err != nil {
			return nil, err
		}
		if parent.IsPosting {
			return nil, models.NewValidationError("account %s is a posting account and cannot have child accounts", parent.Code)
		}
		if parent.Type != input.Type {
			return nil, models.NewValidationError("account type %s does not match parent type %s", input.Type, parent.Type)
		}
		account.ParentID = &parent.ID
		account.Level = parent.Level + 1

		code, err = nextChildCode(tx, &parent)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		code, err = nextRootCode(tx, input.Type)
		if err != nil {
			return nil, err
		}
	}
	account.Code = code

	if err := tx.Create(account).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, models.NewConflictError("account code %s already exists", code)
		}
		return nil, err
	}
	return account, nil
}

func (r *AccountRegistry) GetAccount(ctx context.Context, id int) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("account %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ListAccounts returns every account in code order.
func (r *AccountRegistry) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	sortByCode(accounts)
	return accounts, nil
}

// GetHierarchy loads all accounts once and links them through a parent id index.
// Accounts whose parent is missing are returned as roots.
func (r *AccountRegistry) GetHierarchy(ctx context.Context) ([]*models.AccountNode, error) {
	accounts, err := r.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return buildHierarchy(accounts), nil
}

func buildHierarchy(accounts []*models.Account) []*models.AccountNode {
	nodes := make(map[int]*models.AccountNode, len(accounts))
	for _, a := range accounts {
		nodes[a.ID] = &models.AccountNode{Account: a, Children: []*models.AccountNode{}}
	}

	roots := []*models.AccountNode{}
	for _, a := range accounts {
		node := nodes[a.ID]
		if a.ParentID != nil {
			if parent, ok := nodes[*a.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

func (r *AccountRegistry) DeleteAccount(ctx context.Context, id int) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var account models.Account
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return models.NewNotFoundError("account %d not found", id)
	}
	if err != nil {
		tx.Rollback()
		return err
	}

	var count int64
	if err := tx.Model(&models.Account{}).Where("parent_id = ?", id).Count(&count).Error; err != nil {
		tx.Rollback()
		return err
	}
	if count > 0 {
		tx.Rollback()
		return models.NewIntegrityError("this account has child account(s)")
	}

	if err := tx.Model(&models.JournalLine{}).Where("account_id = ?", id).Count(&count).Error; err != nil {
		tx.Rollback()
		return err
	}
	if count > 0 {
		tx.Rollback()
		return models.NewIntegrityError("this account has transactions")
	}

	if err := tx.Delete(&account).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// PostableAccounts resolves ids to posting accounts inside the caller's
// transaction and holds a shared lock on them until it ends.
func (r *AccountRegistry) PostableAccounts(ctx context.Context, tx *gorm.DB, ids []int) (map[int]*models.Account, error) {
	if tx == nil {
		tx = r.db
	}
	ids = utils.UniqueSlice(ids)

	var accounts []*models.Account
	if len(ids) > 0 {
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "SHARE"}).
			Where("id IN ?", ids).
			Find(&accounts).Error
		if err != nil {
			return nil, err
		}
	}

	byID := make(map[int]*models.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			return nil, models.NewNotFoundError("account %d not found", id)
		}
		if !a.IsPosting {
			return nil, models.NewValidationError("account %s (%s) is not a posting account", a.Code, a.Name)
		}
	}
	return byID, nil
}

func (r *AccountRegistry) obtain(ctx context.Context, key string) (func(), error) {
	release, err := r.locker.Obtain(ctx, key)
	if errors.Is(err, utils.ErrLockNotObtained) {
		return nil, models.NewConflictError("account code generation is busy, try again")
	}
	if err != nil {
		// the parent row lock and unique code index still protect us
		return func() {}, nil
	}
	return release, nil
}

func codeLockKey(parentID *int, accountType models.AccountType) string {
	if parentID != nil {
		return fmt.Sprintf("account-code:parent:%d", *parentID)
	}
	return fmt.Sprintf("account-code:root:%s", accountType)
}
