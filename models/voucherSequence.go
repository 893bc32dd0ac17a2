package models

// VoucherSequence is the per-voucher-type counter. NextValue is the value the
// next caller receives; it is only ever incremented.
type VoucherSequence struct {
	VoucherType VoucherType `gorm:"primaryKey;size:20" json:"voucher_type"`
	Prefix      string      `gorm:"size:10;not null" json:"prefix"`
	NextValue   int64       `gorm:"not null" json:"next_value"`
}
