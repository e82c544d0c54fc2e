package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customError "github.com/segyhp/rental-billing/pkg/errors"
)

var ledgerNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func assertLedgerInvariant(t *testing.T, l *AggregatedPenalty) {
	t.Helper()
	assert.True(t, l.OutstandingAmount.Equal(l.TotalAmount.Sub(l.PaidAmount)),
		"outstanding %s != total %s - paid %s", l.OutstandingAmount, l.TotalAmount, l.PaidAmount)
	assert.False(t, l.PaidAmount.IsNegative(), "paid amount is negative")
	assert.True(t, l.PaidAmount.LessThanOrEqual(l.TotalAmount), "paid %s exceeds total %s", l.PaidAmount, l.TotalAmount)
}

func TestAggregatedPenalty_PostCharge(t *testing.T) {
	l := NewAggregatedPenalty()

	entry := l.PostCharge("2025-02", decimal.NewFromInt(40), "Daily penalty for 2025-02 - 8 days overdue", ledgerNow)

	assert.Equal(t, "2025-02", entry.PaymentMonth)
	assert.True(t, l.TotalAmount.Equal(decimal.NewFromInt(40)))
	assert.True(t, l.OutstandingAmount.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, ledgerNow, l.LastCalculated)
	require.Len(t, l.CalculationHistory, 1)
	assert.True(t, l.HasCharge("2025-02"))
	assert.False(t, l.HasCharge("2025-03"))
	assertLedgerInvariant(t, l)
}

func TestAggregatedPenalty_ApplyPaymentClamps(t *testing.T) {
	l := NewAggregatedPenalty()
	l.PostCharge("2025-01", decimal.NewFromInt(100), "charge", ledgerNow)
	_, err := l.ApplyPayment(decimal.NewFromInt(80), ledgerNow)
	require.NoError(t, err)

	applied, err := l.ApplyPayment(decimal.NewFromInt(50), ledgerNow.Add(time.Hour))

	require.NoError(t, err)
	assert.True(t, applied.Equal(decimal.NewFromInt(20)))
	assert.True(t, l.PaidAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, l.OutstandingAmount.IsZero())
	assert.Len(t, l.CalculationHistory, 1, "payments must not be written to history")
	assertLedgerInvariant(t, l)
}

func TestAggregatedPenalty_ApplyPaymentRejectsNonPositive(t *testing.T) {
	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		l := NewAggregatedPenalty()
		l.PostCharge("2025-01", decimal.NewFromInt(100), "charge", ledgerNow)
		before := *l

		_, err := l.ApplyPayment(amount, ledgerNow.Add(time.Hour))

		assert.True(t, errors.Is(err, customError.ErrInvalidAmount))
		assert.True(t, l.PaidAmount.Equal(before.PaidAmount))
		assert.Equal(t, before.LastCalculated, l.LastCalculated)
	}
}

func TestAggregatedPenalty_InvariantOverSequence(t *testing.T) {
	l := NewAggregatedPenalty()
	steps := []struct {
		charge  int64
		payment int64
	}{
		{charge: 30},
		{payment: 10},
		{payment: 50},
		{charge: 15},
		{charge: 5},
		{payment: 1},
		{payment: 100},
	}

	for i, step := range steps {
		at := ledgerNow.AddDate(0, 0, i)
		if step.charge > 0 {
			l.PostCharge("2025-0"+string(rune('1'+i)), decimal.NewFromInt(step.charge), "charge", at)
		} else {
			_, err := l.ApplyPayment(decimal.NewFromInt(step.payment), at)
			require.NoError(t, err)
		}
		assertLedgerInvariant(t, l)
	}

	assert.True(t, l.TotalAmount.Equal(decimal.NewFromInt(50)))
	assert.True(t, l.PaidAmount.Equal(decimal.NewFromInt(50)))
}

func TestAggregatedPenalty_IndexRebuiltAfterDecode(t *testing.T) {
	l := NewAggregatedPenalty()
	l.PostCharge("2025-01", decimal.NewFromInt(10), "charge", ledgerNow)

	data, err := json.Marshal(l)
	require.NoError(t, err)

	var decoded AggregatedPenalty
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.True(t, decoded.HasCharge("2025-01"))
	assert.False(t, decoded.HasCharge("2025-02"))
	assert.Len(t, decoded.ChargesFor("2025-01"), 1)
}

func TestAggregatedPenalty_NilSafeReads(t *testing.T) {
	var l *AggregatedPenalty

	assert.False(t, l.HasCharge("2025-01"))
	assert.Nil(t, l.ChargesFor("2025-01"))
	assert.Nil(t, l.Clone())
}
