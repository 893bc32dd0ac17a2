package models

import "gorm.io/gorm"

func MigrateTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&Account{},
		&FiscalYear{},
		&JournalEntry{}, &JournalLine{},
		&VoucherSequence{},
		&OutboxRecord{},
	)
}
