package refund

import (
	"github.com/shopspring/decimal"

	"github.com/settledhq/settled/internal/domain/order"
	ierr "github.com/settledhq/settled/internal/errors"
)

// CalculateTax computes the tax to refund alongside a requested
// principal so refunds carry tax in the same ratio as the original
// order: tax = round(refundAmount * taxAmount / amount), half away
// from zero.
//
// Refunding the entire remaining principal allocates the entire
// remaining tax instead of the proportional figure. Per-refund rounding
// drifts by a cent here and there; the shortcut guarantees the final
// refund lands the order on exactly zero.
func CalculateTax(o *order.Order, refundAmount int64) (int64, error) {
	if refundAmount <= 0 {
		return 0, ierr.NewError("refund amount must be greater than 0").
			WithHint("Refund amount must be a positive integer in minor units").
			Mark(ierr.ErrValidation)
	}

	refundable := o.RefundableAmount()
	if refundAmount > refundable {
		return 0, ierr.NewError("refund amount exceeds refundable amount").
			WithHintf("Only %d is left to refund on this order", refundable).
			WithReportableDetails(map[string]any{
				"order_id":          o.ID,
				"refund_amount":     refundAmount,
				"refundable_amount": refundable,
			}).
			Mark(ierr.ErrValidation)
	}

	if refundAmount == refundable {
		return o.RefundableTaxAmount(), nil
	}

	tax := decimal.NewFromInt(refundAmount).
		Mul(decimal.NewFromInt(o.TaxAmount)).
		Div(decimal.NewFromInt(o.Amount)).
		Round(0)

	return tax.IntPart(), nil
}

// CalculateProcessorAmounts splits a tax-inclusive total reported by
// the payment processor into principal and tax. This is the inverse of
// CalculateTax, used when the processor reports cumulative refunded
// figures on a charge rather than a discrete refund with our own
// allocation attached.
func CalculateProcessorAmounts(o *order.Order, total int64) (amount int64, taxAmount int64, err error) {
	if total <= 0 {
		return 0, 0, ierr.NewError("refund total must be greater than 0").
			WithHint("Refund total must be a positive integer in minor units").
			Mark(ierr.ErrValidation)
	}

	remaining := o.RemainingBalance()
	if total > remaining {
		return 0, 0, ierr.NewError("refund total exceeds remaining balance").
			WithHintf("Only %d is left to refund on this order", remaining).
			WithReportableDetails(map[string]any{
				"order_id":          o.ID,
				"refund_total":      total,
				"remaining_balance": remaining,
			}).
			Mark(ierr.ErrValidation)
	}

	if total == remaining {
		return o.RefundableAmount(), o.RefundableTaxAmount(), nil
	}

	tax := decimal.NewFromInt(o.TaxAmount).
		Mul(decimal.NewFromInt(total)).
		Div(decimal.NewFromInt(o.Total())).
		Round(0).
		Abs()

	taxAmount = tax.IntPart()
	amount = total - taxAmount
	return amount, taxAmount, nil
}
