// ledgerctl runs ledger maintenance jobs against the configured database.
//
// Usage (from repository root, same DB_* env as the server):
//
//	go run ./cmd/ledgerctl migrate
//	go run ./cmd/ledgerctl setup-coa
//	go run ./cmd/ledgerctl ledger --account 12 --from 2024-04-01 --xlsx ledger.xlsx
//	go run ./cmd/ledgerctl dispatch-outbox --once
package main

import (
	"context"
	"os"

	"github.com/mmdatafocus/textile_ledger/config"
	"gorm.io/gorm"
)

func main() {
	env := &environment{
		out:     os.Stdout,
		connect: connectFromSettings,
	}
	if err := newRootCommand(env).Execute(); err != nil {
		os.Exit(1)
	}
}

func connectFromSettings(ctx context.Context) (*gorm.DB, *config.Settings, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, nil, err
	}
	db, err := config.ConnectDatabaseWithRetry(ctx, settings)
	if err != nil {
		return nil, nil, err
	}
	return db, settings, nil
}
