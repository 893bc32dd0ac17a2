package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Outbox publish statuses for OutboxRecord.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

const EventJournalEntryCreated = "journal_entry.created"

// OutboxRecord is written in the same transaction as the change it describes
// and published after commit by the outbox dispatcher.
type OutboxRecord struct {
	ID               int        `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	EventType        string     `gorm:"size:64;not null;index" json:"event_type"`
	ReferenceID      int        `gorm:"index" json:"reference_id"`
	Payload          []byte     `json:"payload"`
	PublishStatus    string     `gorm:"size:20;not null;index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	MessageID        *string    `gorm:"size:255" json:"message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationID    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// JournalEntryCreatedEvent is the payload of a journal_entry.created outbox record.
type JournalEntryCreatedEvent struct {
	EntryID      int              `json:"entry_id"`
	Number       string           `json:"number"`
	Type         VoucherType      `json:"type"`
	Date         time.Time        `json:"date"`
	FiscalYearID *int             `json:"fiscal_year_id,omitempty"`
	TotalAmount  decimal.Decimal  `json:"total_amount"`
	Lines        []JournalLineRef `json:"lines"`
}

type JournalLineRef struct {
	AccountID int             `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

func NewJournalEntryCreatedRecord(entry *JournalEntry, correlationID string) (*OutboxRecord, error) {
	event := JournalEntryCreatedEvent{
		EntryID:      entry.ID,
		Number:       entry.Number,
		Type:         entry.Type,
		Date:         entry.Date,
		FiscalYearID: entry.FiscalYearID,
		TotalAmount:  entry.TotalAmount,
	}
	for _, line := range entry.Lines {
		event.Lines = append(event.Lines, JournalLineRef{
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
		})
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &OutboxRecord{
		EventType:     EventJournalEntryCreated,
		ReferenceID:   entry.ID,
		Payload:       payload,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationID: correlationID,
	}, nil
}

// RequeueOutboxRecord moves a FAILED or DEAD record back to PENDING with a fresh attempt budget.
func RequeueOutboxRecord(ctx context.Context, db *gorm.DB, id int) error {
	res := db.WithContext(ctx).
		Model(&OutboxRecord{}).
		Where("id = ? AND publish_status IN ?", id, []string{OutboxPublishStatusFailed, OutboxPublishStatusDead}).
		Updates(map[string]interface{}{
			"publish_status":   OutboxPublishStatusPending,
			"publish_attempts": 0,
			"next_attempt_at":  nil,
			"locked_at":        nil,
			"locked_by":        nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return NewNotFoundError("no failed outbox record with id %d", id)
	}
	return nil
}
