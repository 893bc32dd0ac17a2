package models

import "time"

// FiscalYear is maintained by the settings module; the ledger only reads it.
type FiscalYear struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `gorm:"not null;index" json:"is_active"`
	IsLocked  bool      `gorm:"not null" json:"is_locked"`
}

// Contains reports whether date falls inside the year. Years without dates contain everything.
func (fy *FiscalYear) Contains(date time.Time) bool {
	if fy.StartDate.IsZero() || fy.EndDate.IsZero() {
		return true
	}
	return !date.Before(fy.StartDate) && !date.After(fy.EndDate)
}
