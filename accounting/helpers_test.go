package accounting

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/textile_ledger/config"
	"github.com/mmdatafocus/textile_ledger/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testLedger struct {
	db        *gorm.DB
	registry  *AccountRegistry
	sequencer *VoucherSequencer
	engine    *JournalEngine
	projector *LedgerProjector
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := config.OpenSQLite(dsn)
	require.NoError(t, err)
	require.NoError(t, models.MigrateTables(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	db := newTestDB(t)
	registry := NewAccountRegistry(db, nil)
	sequencer := NewVoucherSequencer(db)
	return &testLedger{
		db:        db,
		registry:  registry,
		sequencer: sequencer,
		engine:    NewJournalEngine(db, registry, sequencer, NewFiscalYearStore(db)),
		projector: NewLedgerProjector(db),
	}
}

func (l *testLedger) account(t *testing.T, name string, accountType models.AccountType, parent *models.Account, posting bool) *models.Account {
	t.Helper()
	input := &models.NewAccount{Name: name, Type: accountType, IsPosting: posting}
	if parent != nil {
		input.ParentID = &parent.ID
	}
	a, err := l.registry.CreateAccount(context.Background(), input)
	require.NoError(t, err)
	return a
}

func (l *testLedger) post(t *testing.T, voucherType models.VoucherType, date time.Time, lines ...models.NewJournalLine) *models.JournalEntry {
	t.Helper()
	entry, err := l.engine.CreateEntry(context.Background(), &models.NewJournalEntry{
		Date:  date,
		Type:  voucherType,
		Lines: lines,
	})
	require.NoError(t, err)
	return entry
}

func debit(accountID int, amount string) models.NewJournalLine {
	return models.NewJournalLine{AccountID: accountID, Debit: decimal.RequireFromString(amount)}
}

func credit(accountID int, amount string) models.NewJournalLine {
	return models.NewJournalLine{AccountID: accountID, Credit: decimal.RequireFromString(amount)}
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
