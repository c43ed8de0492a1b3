package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/settledhq/settled/internal/errors"
	"github.com/settledhq/settled/internal/types"
)

func newPaidOrder() *Order {
	return &Order{
		ID:            "order_test",
		OrderNumber:   "ORD-TEST",
		Amount:        9990,
		TaxAmount:     2498,
		Currency:      "eur",
		OrderStatus:   types.OrderStatusPaid,
		BillingReason: types.OrderBillingReasonSubscriptionCycle,
		CustomerID:    "cus_test",
	}
}

func TestOrderDerivedAmounts(t *testing.T) {
	o := newPaidOrder()

	assert.Equal(t, int64(12488), o.Total())
	assert.Equal(t, int64(9990), o.RefundableAmount())
	assert.Equal(t, int64(2498), o.RefundableTaxAmount())
	assert.Equal(t, int64(12488), o.RemainingBalance())
	assert.False(t, o.Refunded())

	o.RefundedAmount = 1110
	o.RefundedTaxAmount = 278

	assert.Equal(t, int64(8880), o.RefundableAmount())
	assert.Equal(t, int64(2220), o.RefundableTaxAmount())
	assert.Equal(t, int64(11100), o.RemainingBalance())
}

func TestOrderIncrementRefunds(t *testing.T) {
	t.Run("partial refund moves the order to partially_refunded", func(t *testing.T) {
		o := newPaidOrder()

		require.NoError(t, o.IncrementRefunds(1110, 278))
		assert.Equal(t, int64(1110), o.RefundedAmount)
		assert.Equal(t, int64(278), o.RefundedTaxAmount)
		assert.Equal(t, types.OrderStatusPartiallyRefunded, o.OrderStatus)
	})

	t.Run("refunding the full principal moves the order to refunded", func(t *testing.T) {
		o := newPaidOrder()

		require.NoError(t, o.IncrementRefunds(9990, 2498))
		assert.Equal(t, types.OrderStatusRefunded, o.OrderStatus)
		assert.True(t, o.Refunded())
		assert.Equal(t, int64(0), o.RemainingBalance())
	})

	t.Run("status follows the principal, not the tax", func(t *testing.T) {
		o := newPaidOrder()

		// All tax refunded but principal outstanding is still partial
		require.NoError(t, o.IncrementRefunds(9000, 2498))
		assert.Equal(t, types.OrderStatusPartiallyRefunded, o.OrderStatus)
	})

	t.Run("over-allocation is an invariant violation, never clamped", func(t *testing.T) {
		o := newPaidOrder()
		require.NoError(t, o.IncrementRefunds(9000, 2000))

		err := o.IncrementRefunds(991, 0)
		require.Error(t, err)
		assert.True(t, ierr.IsInvariantViolation(err))

		// Nothing changed
		assert.Equal(t, int64(9000), o.RefundedAmount)
		assert.Equal(t, int64(2000), o.RefundedTaxAmount)
		assert.Equal(t, types.OrderStatusPartiallyRefunded, o.OrderStatus)
	})

	t.Run("tax over-allocation is an invariant violation", func(t *testing.T) {
		o := newPaidOrder()

		err := o.IncrementRefunds(100, 2499)
		require.Error(t, err)
		assert.True(t, ierr.IsInvariantViolation(err))
	})

	t.Run("negative increments are rejected", func(t *testing.T) {
		o := newPaidOrder()

		err := o.IncrementRefunds(-1, 0)
		require.Error(t, err)
		assert.True(t, ierr.IsInvariantViolation(err))
	})

	t.Run("sequence of increments keeps the running balance consistent", func(t *testing.T) {
		o := newPaidOrder()

		steps := []struct{ amount, tax int64 }{
			{1110, 278},
			{993, 248},
			{5887, 1472},
			{2000, 500},
		}
		for _, step := range steps {
			require.NoError(t, o.IncrementRefunds(step.amount, step.tax))
			assert.Equal(t, o.Amount-o.RefundedAmount, o.RefundableAmount())
			assert.Equal(t, o.TaxAmount-o.RefundedTaxAmount, o.RefundableTaxAmount())
		}

		assert.Equal(t, types.OrderStatusRefunded, o.OrderStatus)
		assert.Equal(t, int64(0), o.RemainingBalance())
	})
}

func TestOrderValidate(t *testing.T) {
	o := newPaidOrder()
	require.NoError(t, o.Validate())

	o.Amount = 0
	require.Error(t, o.Validate())

	o = newPaidOrder()
	o.CustomerID = ""
	require.Error(t, o.Validate())

	o = newPaidOrder()
	o.TaxAmount = -1
	require.Error(t, o.Validate())
}
