package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueSlice(t *testing.T) {
	assert.Equal(t, []int{3, 1, 2}, UniqueSlice([]int{3, 1, 3, 2, 1}))
	assert.Nil(t, UniqueSlice([]string{}))
}

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"10.005", "10.01"},
		{"10.004", "10"},
		{"-2.555", "-2.56"},
		{"7", "7"},
	}
	for _, tt := range tests {
		got := RoundMoney(decimal.RequireFromString(tt.in))
		assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "%s -> %s", tt.in, got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-04-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-04-01T10:30:00+06:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 1, 4, 0, 0, 0, time.UTC), d)
	assert.Equal(t, time.UTC, d.Location())

	_, err = ParseDate("")
	assert.Error(t, err)
	_, err = ParseDate("01/04/2024")
	assert.EqualError(t, err, `invalid date "01/04/2024"`)
}

func TestParseOptional(t *testing.T) {
	d, err := ParseOptionalDate("  ")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = ParseOptionalDate("2024-12-31")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 31, d.Day())

	n, err := ParseOptionalInt("")
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = ParseOptionalInt(" 42 ")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 42, *n)

	_, err = ParseOptionalInt("4x")
	assert.Error(t, err)
}
