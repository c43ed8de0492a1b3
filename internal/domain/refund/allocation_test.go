package refund

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settledhq/settled/internal/domain/order"
	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

func newTestOrder(amount, taxAmount int64) *order.Order {
	return &order.Order{
		ID:          "order_test",
		OrderNumber: "ORD-TEST",
		Amount:      amount,
		TaxAmount:   taxAmount,
		Currency:    "eur",
		OrderStatus: types.OrderStatusPaid,
		CustomerID:  "cus_test",
	}
}

func TestCalculateTax(t *testing.T) {
	t.Run("proportional allocation rounds half away from zero", func(t *testing.T) {
		o := newTestOrder(9990, 2498)

		// 1110 * 2498 / 9990 = 277.5
		tax, err := CalculateTax(o, 1110)
		require.NoError(t, err)
		assert.Equal(t, int64(278), tax)
	})

	t.Run("proportional allocation rounds down below half", func(t *testing.T) {
		o := newTestOrder(9990, 2498)
		o.RefundedAmount = 1110
		o.RefundedTaxAmount = 278

		// 993 * 2498 / 9990 = 248.2997
		tax, err := CalculateTax(o, 993)
		require.NoError(t, err)
		assert.Equal(t, int64(248), tax)
	})

	t.Run("proportional allocation rounds up above half", func(t *testing.T) {
		o := newTestOrder(9990, 2498)
		o.RefundedAmount = 2103
		o.RefundedTaxAmount = 526

		// 5887 * 2498 / 9990 = 1472.04...
		tax, err := CalculateTax(o, 5887)
		require.NoError(t, err)
		assert.Equal(t, int64(1472), tax)
	})

	t.Run("rejects amount over refundable", func(t *testing.T) {
		o := newTestOrder(9990, 2498)
		o.RefundedAmount = 7990
		o.RefundedTaxAmount = 1998

		_, err := CalculateTax(o, 2001)
		require.Error(t, err)
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		o := newTestOrder(9990, 2498)

		_, err := CalculateTax(o, 0)
		require.Error(t, err)
		assert.True(t, ierr.IsValidation(err))

		_, err = CalculateTax(o, -100)
		require.Error(t, err)
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("full remaining principal takes exact remaining tax", func(t *testing.T) {
		o := newTestOrder(9990, 2498)
		o.RefundedAmount = 7990
		o.RefundedTaxAmount = 1998

		tax, err := CalculateTax(o, 2000)
		require.NoError(t, err)
		// Exact remainder, not round(2000*2498/9990) = 500
		assert.Equal(t, int64(500), tax)
		assert.Equal(t, o.TaxAmount, o.RefundedTaxAmount+tax)
	})

	t.Run("sequence of partial refunds drains tax to exactly zero", func(t *testing.T) {
		o := newTestOrder(9990, 2498)

		for _, amount := range []int64{1110, 993, 5887, 2000} {
			tax, err := CalculateTax(o, amount)
			require.NoError(t, err)
			require.NoError(t, o.IncrementRefunds(amount, tax))
		}

		assert.Equal(t, int64(0), o.RefundableAmount())
		assert.Equal(t, int64(0), o.RefundableTaxAmount())
		assert.Equal(t, types.OrderStatusRefunded, o.OrderStatus)
	})
}

func TestCalculateProcessorAmounts(t *testing.T) {
	t.Run("splits a tax-inclusive total proportionally", func(t *testing.T) {
		o := newTestOrder(9990, 2498)

		// 2498 * 1388 / 12488 = 277.6...
		amount, tax, err := CalculateProcessorAmounts(o, 1388)
		require.NoError(t, err)
		assert.Equal(t, int64(278), tax)
		assert.Equal(t, int64(1110), amount)
	})

	t.Run("exact remaining balance takes the remainder shortcut", func(t *testing.T) {
		o := newTestOrder(9990, 2498)
		o.RefundedAmount = 7990
		o.RefundedTaxAmount = 1998

		amount, tax, err := CalculateProcessorAmounts(o, o.RemainingBalance())
		require.NoError(t, err)
		assert.Equal(t, int64(2000), amount)
		assert.Equal(t, int64(500), tax)
	})

	t.Run("rejects totals over the remaining balance", func(t *testing.T) {
		o := newTestOrder(9990, 2498)
		o.RefundedAmount = 9990
		o.RefundedTaxAmount = 2498

		_, _, err := CalculateProcessorAmounts(o, 1)
		require.Error(t, err)
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("zero tax order allocates no tax", func(t *testing.T) {
		o := newTestOrder(5000, 0)

		amount, tax, err := CalculateProcessorAmounts(o, 1234)
		require.NoError(t, err)
		assert.Equal(t, int64(0), tax)
		assert.Equal(t, int64(1234), amount)
	})
}
