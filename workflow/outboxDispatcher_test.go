package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/textile_ledger/config"
	"github.com/mmdatafocus/textile_ledger/models"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePublisher struct {
	mu       sync.Mutex
	fail     error
	payloads [][]byte
	attrs    []map[string]string
}

func (p *fakePublisher) Publish(_ context.Context, data []byte, attributes map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return "", p.fail
	}
	p.payloads = append(p.payloads, data)
	p.attrs = append(p.attrs, attributes)
	return fmt.Sprintf("msg-%d", len(p.payloads)), nil
}

func newDispatcherTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, models.MigrateTables(db))
	return db
}

func newTestDispatcher(db *gorm.DB, pub Publisher, clock *time.Time) *OutboxDispatcher {
	d := NewOutboxDispatcher(db, pub, config.NewLogger("panic"))
	d.now = func() time.Time { return *clock }
	return d
}

func seedRecord(t *testing.T, db *gorm.DB, ref int) models.OutboxRecord {
	rec := models.OutboxRecord{
		EventType:     models.EventJournalEntryCreated,
		ReferenceID:   ref,
		Payload:       []byte(fmt.Sprintf(`{"entry_id":%d}`, ref)),
		PublishStatus: models.OutboxPublishStatusPending,
		CorrelationID: "corr",
	}
	require.NoError(t, db.Create(&rec).Error)
	return rec
}

func reload(t *testing.T, db *gorm.DB, id int) models.OutboxRecord {
	var rec models.OutboxRecord
	require.NoError(t, db.First(&rec, id).Error)
	return rec
}

func TestDispatchOnce_PublishesPendingRecords(t *testing.T) {
	ctx := context.Background()
	db := newDispatcherTestDB(t)
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pub := &fakePublisher{}
	d := newTestDispatcher(db, pub, &clock)

	first := seedRecord(t, db, 1)
	second := seedRecord(t, db, 2)

	sent, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, pub.payloads, 2)
	assert.JSONEq(t, `{"entry_id":1}`, string(pub.payloads[0]))
	assert.Equal(t, models.EventJournalEntryCreated, pub.attrs[0]["event_type"])
	assert.Equal(t, "1", pub.attrs[0]["reference_id"])

	rec := reload(t, db, first.ID)
	assert.Equal(t, models.OutboxPublishStatusSent, rec.PublishStatus)
	assert.Equal(t, 1, rec.PublishAttempts)
	require.NotNil(t, rec.MessageID)
	assert.Equal(t, "msg-1", *rec.MessageID)
	assert.Nil(t, rec.LockedBy)
	assert.Equal(t, models.OutboxPublishStatusSent, reload(t, db, second.ID).PublishStatus)

	// nothing left to send
	sent, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Len(t, pub.payloads, 2)
}

func TestDispatchOnce_FailureBacksOffThenRetries(t *testing.T) {
	ctx := context.Background()
	db := newDispatcherTestDB(t)
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pub := &fakePublisher{fail: errors.New("broker unavailable")}
	d := newTestDispatcher(db, pub, &clock)

	rec := seedRecord(t, db, 7)

	sent, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	failed := reload(t, db, rec.ID)
	assert.Equal(t, models.OutboxPublishStatusFailed, failed.PublishStatus)
	assert.Equal(t, 1, failed.PublishAttempts)
	require.NotNil(t, failed.LastPublishError)
	assert.Equal(t, "broker unavailable", *failed.LastPublishError)
	require.NotNil(t, failed.NextAttemptAt)
	assert.True(t, failed.NextAttemptAt.Equal(clock.Add(d.InitialBackoff)))

	// not eligible before the backoff expires
	pub.fail = nil
	sent, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	clock = clock.Add(d.InitialBackoff + time.Second)
	sent, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	done := reload(t, db, rec.ID)
	assert.Equal(t, models.OutboxPublishStatusSent, done.PublishStatus)
	assert.Equal(t, 2, done.PublishAttempts)
}

func TestDispatchOnce_DeadAfterMaxAttemptsAndRequeue(t *testing.T) {
	ctx := context.Background()
	db := newDispatcherTestDB(t)
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pub := &fakePublisher{fail: errors.New("permission denied")}
	d := newTestDispatcher(db, pub, &clock)
	d.MaxAttempts = 2

	rec := seedRecord(t, db, 9)

	_, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxPublishStatusFailed, reload(t, db, rec.ID).PublishStatus)

	clock = clock.Add(time.Hour)
	_, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	dead := reload(t, db, rec.ID)
	assert.Equal(t, models.OutboxPublishStatusDead, dead.PublishStatus)
	assert.Equal(t, 2, dead.PublishAttempts)

	clock = clock.Add(time.Hour)
	pub.fail = nil
	sent, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	require.NoError(t, models.RequeueOutboxRecord(ctx, db, rec.ID))
	sent, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	err = models.RequeueOutboxRecord(ctx, db, rec.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDispatchOnce_ReclaimsStaleProcessingRecords(t *testing.T) {
	ctx := context.Background()
	db := newDispatcherTestDB(t)
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pub := &fakePublisher{}
	d := newTestDispatcher(db, pub, &clock)

	rec := seedRecord(t, db, 3)
	lockedAt := clock.Add(-time.Minute)
	other := "crashed-dispatcher"
	require.NoError(t, db.Model(&models.OutboxRecord{}).Where("id = ?", rec.ID).Updates(map[string]interface{}{
		"publish_status": models.OutboxPublishStatusProcessing,
		"locked_at":      &lockedAt,
		"locked_by":      &other,
	}).Error)

	sent, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestBackoffFor(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{4, 40 * time.Second},
		{7, 320 * time.Second},
		{8, 10 * time.Minute},
		{30, 10 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backoffFor(5*time.Second, tt.attempt), "attempt %d", tt.attempt)
	}
}

// failingStatusPublisher rejects the publish and breaks every later update on db.
type failingStatusPublisher struct {
	db *gorm.DB
}

func (p *failingStatusPublisher) Publish(context.Context, []byte, map[string]string) (string, error) {
	err := p.db.Callback().Update().Before("gorm:update").Register("test:fail_status_write", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("database is read-only"))
	})
	if err != nil {
		return "", err
	}
	return "", errors.New("broker unavailable")
}

func TestDispatchOnce_LogsFailedStatusWrite(t *testing.T) {
	ctx := context.Background()
	db := newDispatcherTestDB(t)
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	logger, hook := logtest.NewNullLogger()
	d := NewOutboxDispatcher(db, &failingStatusPublisher{db: db}, logger)
	d.now = func() time.Time { return clock }

	rec := seedRecord(t, db, 11)

	sent, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	var logged *logrus.Entry
	for _, entry := range hook.AllEntries() {
		if strings.HasPrefix(entry.Message, "outbox status FAILED write failed") {
			logged = entry
		}
	}
	require.NotNil(t, logged, "status write error was not logged")
	assert.Equal(t, logrus.ErrorLevel, logged.Level)
	assert.Contains(t, logged.Message, "database is read-only")
	assert.Equal(t, rec.ID, logged.Data["record_id"])
	assert.Equal(t, models.OutboxPublishStatusFailed, logged.Data["status"])
}
