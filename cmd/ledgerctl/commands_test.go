package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/textile_ledger/accounting"
	"github.com/mmdatafocus/textile_ledger/config"
	"github.com/mmdatafocus/textile_ledger/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func newTestEnv(t *testing.T) (*environment, *gorm.DB, *bytes.Buffer) {
	t.Helper()
	db, err := config.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	var out bytes.Buffer
	env := &environment{
		out: &out,
		connect: func(context.Context) (*gorm.DB, *config.Settings, error) {
			return db, &config.Settings{DBDriver: config.DriverSQLite}, nil
		},
	}
	return env, db, &out
}

func run(env *environment, args ...string) error {
	cmd := newRootCommand(env)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func TestMigrateAndSetupCOA(t *testing.T) {
	env, db, out := newTestEnv(t)

	require.NoError(t, run(env, "migrate"))
	assert.Contains(t, out.String(), "migrations applied")
	assert.True(t, db.Migrator().HasTable(&models.JournalEntry{}))

	out.Reset()
	require.NoError(t, run(env, "setup-coa"))
	assert.Contains(t, out.String(), "1110")
	assert.Contains(t, out.String(), "Cash in Hand")

	err := run(env, "setup-coa")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestLedgerAndTrialBalance(t *testing.T) {
	env, db, out := newTestEnv(t)
	require.NoError(t, run(env, "migrate"))
	require.NoError(t, run(env, "setup-coa"))

	var cash, sales models.Account
	require.NoError(t, db.Where("name = ?", "Cash in Hand").Take(&cash).Error)
	require.NoError(t, db.Where("name = ?", "Sales Revenue").Take(&sales).Error)

	services := accounting.NewServices(db, nil)
	_, err := services.Journal.CreateEntry(context.Background(), &models.NewJournalEntry{
		Date: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Type: models.VoucherTypeReceipt,
		Lines: []models.NewJournalLine{
			{AccountID: cash.ID, Debit: decimal.RequireFromString("420.75")},
			{AccountID: sales.ID, Credit: decimal.RequireFromString("420.75")},
		},
	})
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, run(env, "ledger", "--account", fmt.Sprint(cash.ID)))
	assert.Contains(t, out.String(), "1110 Cash in Hand (ASSET)")
	assert.Contains(t, out.String(), "RV-00001")
	assert.Contains(t, out.String(), "420.75")

	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	require.NoError(t, run(env, "ledger", "--account", fmt.Sprint(cash.ID), "--xlsx", path))
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	title, err := f.GetCellValue(f.GetSheetName(0), "A1")
	require.NoError(t, err)
	assert.Equal(t, "1110 Cash in Hand", title)

	assert.Error(t, run(env, "ledger"))
	assert.Error(t, run(env, "ledger", "--account", fmt.Sprint(cash.ID), "--from", "someday"))
	assert.True(t, errors.Is(run(env, "ledger", "--account", "9999"), models.ErrNotFound))

	out.Reset()
	require.NoError(t, run(env, "trial-balance"))
	assert.Contains(t, out.String(), "Sales Revenue")

	tbPath := filepath.Join(t.TempDir(), "tb.xlsx")
	require.NoError(t, run(env, "trial-balance", "--xlsx", tbPath))
	_, err = os.Stat(tbPath)
	assert.NoError(t, err)
}

func TestRequeueOutbox(t *testing.T) {
	env, db, out := newTestEnv(t)
	require.NoError(t, run(env, "migrate"))

	rec := models.OutboxRecord{
		EventType:     models.EventJournalEntryCreated,
		Payload:       []byte("{}"),
		PublishStatus: models.OutboxPublishStatusDead,
	}
	require.NoError(t, db.Create(&rec).Error)

	require.NoError(t, run(env, "requeue-outbox", fmt.Sprint(rec.ID)))
	assert.Contains(t, out.String(), "requeued")

	var reloaded models.OutboxRecord
	require.NoError(t, db.First(&reloaded, rec.ID).Error)
	assert.Equal(t, models.OutboxPublishStatusPending, reloaded.PublishStatus)

	assert.True(t, errors.Is(run(env, "requeue-outbox", fmt.Sprint(rec.ID)), models.ErrNotFound))
	assert.Error(t, run(env, "requeue-outbox", "abc"))
}
