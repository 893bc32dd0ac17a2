package accounting

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/mmdatafocus/textile_ledger/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestVoucherSequencer_Prefixes(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	tests := []struct {
		voucherType models.VoucherType
		want        string
	}{
		{models.VoucherTypeSales, "SA-00001"},
		{models.VoucherTypePurchase, "PU-00001"},
		{models.VoucherTypeJournal, "JV-00001"},
		{models.VoucherTypePayment, "PV-00001"},
		{models.VoucherTypeReceipt, "RV-00001"},
		{models.VoucherTypeContra, "CV-00001"},
		{models.VoucherTypePurchaseReturn, "PR-00001"},
		{models.VoucherTypeSalesReturn, "SR-00001"},
		{models.VoucherTypeOpening, "OB-00001"},
		{models.VoucherTypeClosing, "CB-00001"},
		{models.VoucherType("DEBIT_NOTE"), "VO-00001"},
	}
	for _, tt := range tests {
		t.Run(string(tt.voucherType), func(t *testing.T) {
			got, err := l.sequencer.Next(ctx, nil, tt.voucherType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVoucherSequencer_Increments(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	for _, want := range []string{"JV-00001", "JV-00002", "JV-00003"} {
		got, err := l.sequencer.Next(ctx, nil, models.VoucherTypeJournal)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	peek, err := l.sequencer.Peek(ctx, models.VoucherTypeJournal)
	require.NoError(t, err)
	assert.Equal(t, "JV-00004", peek)

	// other types are independent
	got, err := l.sequencer.Next(ctx, nil, models.VoucherTypeSales)
	require.NoError(t, err)
	assert.Equal(t, "SA-00001", got)
}

func TestVoucherSequencer_RollbackReturnsNumber(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	errBoom := errors.New("boom")
	err := l.db.Transaction(func(tx *gorm.DB) error {
		n, err := l.sequencer.Next(ctx, tx, models.VoucherTypePayment)
		require.NoError(t, err)
		assert.Equal(t, "PV-00001", n)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	got, err := l.sequencer.Next(ctx, nil, models.VoucherTypePayment)
	require.NoError(t, err)
	assert.Equal(t, "PV-00001", got)
}

func TestVoucherSequencer_ConcurrentCallersGetDistinctNumbers(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	const n = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := l.sequencer.Next(ctx, nil, models.VoucherTypeReceipt)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers = append(numbers, got)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, numbers, n)
	sort.Strings(numbers)
	for i, got := range numbers {
		assert.Equal(t, FormatVoucherNumber("RV", int64(i+1)), got)
	}
}

func TestVoucherSequencer_ValidateUnused(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	assets := l.account(t, "Assets", models.AccountTypeAsset, nil, false)
	cash := l.account(t, "Cash", models.AccountTypeAsset, assets, true)
	bank := l.account(t, "Bank", models.AccountTypeAsset, assets, true)
	l.post(t, models.VoucherTypeContra, day("2024-01-10"), debit(bank.ID, "50"), credit(cash.ID, "50"))

	require.NoError(t, l.sequencer.ValidateUnused(ctx, nil, "CV-00002"))

	err := l.sequencer.ValidateUnused(ctx, nil, "CV-00001")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConflict))
}
