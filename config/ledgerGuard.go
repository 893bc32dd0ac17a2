package config

import (
	"context"
	"errors"

	"github.com/mmdatafocus/textile_ledger/appctx"
	"gorm.io/gorm"
)

var ErrLedgerImmutable = errors.New("posted journal entries cannot be modified or deleted")

// ContextKeyLedgerMaintenance lets internal tooling bypass the guard.
var ContextKeyLedgerMaintenance = appctx.ContextKey("LedgerMaintenance")

var immutableTables = map[string]bool{
	"journal_entries": true,
	"journal_lines":   true,
}

// LedgerGuardPlugin rejects gorm updates and deletes against the posted
// journal tables so the transaction log stays append-only.
//
// NOTE: raw SQL is not intercepted.
type LedgerGuardPlugin struct{}

func NewLedgerGuardPlugin() *LedgerGuardPlugin { return &LedgerGuardPlugin{} }

func (p *LedgerGuardPlugin) Name() string { return "ledger_guard" }

func (p *LedgerGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Update().Before("gorm:update").Register("ledger_guard:update", ledgerGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("ledger_guard:delete", ledgerGuardCallback); err != nil {
		return err
	}
	return nil
}

func ledgerGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	if shouldBypassLedgerGuard(db.Statement.Context) {
		return
	}
	table := db.Statement.Table
	if table == "" && db.Statement.Schema != nil {
		table = db.Statement.Schema.Table
	}
	if immutableTables[table] {
		_ = db.AddError(ErrLedgerImmutable)
	}
}

func shouldBypassLedgerGuard(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, ok := ctx.Value(ContextKeyLedgerMaintenance).(bool)
	return ok && v
}
