package accounting

import "gorm.io/gorm"

// Services wires the four ledger components over one database.
type Services struct {
	Accounts  *AccountRegistry
	Sequencer *VoucherSequencer
	Journal   *JournalEngine
	Ledger    *LedgerProjector
}

func NewServices(db *gorm.DB, locker Locker) *Services {
	accounts := NewAccountRegistry(db, locker)
	sequencer := NewVoucherSequencer(db)
	return &Services{
		Accounts:  accounts,
		Sequencer: sequencer,
		Journal:   NewJournalEngine(db, accounts, sequencer, NewFiscalYearStore(db)),
		Ledger:    NewLedgerProjector(db),
	}
}
