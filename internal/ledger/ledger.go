// Package ledger holds the pure arithmetic behind the credit ledger: cart
// totals, payment clamping, change computation, and the per-line credit
// records created by an utang sale. Nothing here touches storage or time
// zones; callers supply clocks and ID generators.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"sarisari/backend/internal/domain"
)

var ErrInvalidAmount = errors.New("invalid payment amount")

// PaymentOutcome is the result of applying a requested payment against an
// outstanding balance using the clamp-and-return-change policy: the payment
// never exceeds the balance, and any excess is handed back as change.
type PaymentOutcome struct {
	ActualCents     int64
	ChangeCents     int64
	NewBalanceCents int64
}

// ApplyPayment clamps requestedCents against balanceCents.
// Invariants: ActualCents = min(requested, balance), ChangeCents =
// max(0, requested-balance), NewBalanceCents >= 0.
func ApplyPayment(balanceCents int64, requestedCents int64) PaymentOutcome {
	actual := requestedCents
	if actual > balanceCents {
		actual = balanceCents
	}
	change := requestedCents - balanceCents
	if change < 0 {
		change = 0
	}
	return PaymentOutcome{
		ActualCents:     actual,
		ChangeCents:     change,
		NewBalanceCents: balanceCents - actual,
	}
}

// ParseAmount converts a raw amount string as typed by the cashier ("300",
// "40.50") into centavos. Amounts must be finite and strictly positive;
// fractions beyond two decimal places are rounded to the nearest centavo.
func ParseAmount(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrInvalidAmount
	}
	if value <= 0 {
		return 0, ErrInvalidAmount
	}
	cents := int64(math.Round(value * 100))
	if cents < 1 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// NormalizeCart merges duplicate product lines, recomputes line totals from
// quantity and the snapshotted unit price, and rejects empty or malformed
// carts. Order of first appearance is preserved.
func NormalizeCart(items []domain.SaleItem) ([]domain.SaleItem, error) {
	if len(items) == 0 {
		return nil, errors.New("cart is empty")
	}

	merged := make([]domain.SaleItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		if item.ProductID == "" || item.Quantity < 1 || item.UnitPriceCents < 1 {
			return nil, fmt.Errorf("invalid cart line for product %q", item.ProductID)
		}
		if at, seen := index[item.ProductID]; seen {
			merged[at].Quantity += item.Quantity
			merged[at].TotalCents = int64(merged[at].Quantity) * merged[at].UnitPriceCents
			continue
		}
		item.TotalCents = int64(item.Quantity) * item.UnitPriceCents
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

// CartSubtotal sums the line totals of an already-normalized cart.
func CartSubtotal(items []domain.SaleItem) int64 {
	subtotal := int64(0)
	for _, item := range items {
		subtotal += item.TotalCents
	}
	return subtotal
}

// CreditStatus derives a credit transaction's status from its balances.
func CreditStatus(amountPaidCents int64, remainingCents int64) string {
	if remainingCents <= 0 {
		return domain.CreditStatusFullyPaid
	}
	if amountPaidCents > 0 {
		return domain.CreditStatusPartiallyPaid
	}
	return domain.CreditStatusUnpaid
}

// BuildCreditLines creates one unpaid CreditTransaction per sale line.
// The sale must already carry a customer; callers enforce that.
func BuildCreditLines(sale domain.Sale, now time.Time, newID func() string) []domain.CreditTransaction {
	lines := make([]domain.CreditTransaction, 0, len(sale.Items))
	for _, item := range sale.Items {
		lines = append(lines, domain.CreditTransaction{
			ID:                    newID(),
			CustomerID:            sale.CustomerID,
			SaleID:                sale.ID,
			ProductID:             item.ProductID,
			ProductName:           item.ProductName,
			Quantity:              item.Quantity,
			UnitPriceCents:        item.UnitPriceCents,
			TotalAmountCents:      item.TotalCents,
			AmountPaidCents:       0,
			RemainingBalanceCents: item.TotalCents,
			Status:                domain.CreditStatusUnpaid,
			CreatedAt:             now,
			UpdatedAt:             now,
		})
	}
	return lines
}

// SpreadPayment distributes an actual (already clamped) payment across a
// customer's open credit transactions oldest-first, so the per-line balances
// stay in lock-step with the customer aggregate. It returns updated copies
// of only the transactions it touched.
func SpreadPayment(open []domain.CreditTransaction, amountCents int64, now time.Time) []domain.CreditTransaction {
	updated := make([]domain.CreditTransaction, 0, len(open))
	remaining := amountCents
	for _, tx := range open {
		if remaining <= 0 {
			break
		}
		if tx.RemainingBalanceCents <= 0 {
			continue
		}
		applied := remaining
		if applied > tx.RemainingBalanceCents {
			applied = tx.RemainingBalanceCents
		}
		tx.AmountPaidCents += applied
		tx.RemainingBalanceCents -= applied
		tx.Status = CreditStatus(tx.AmountPaidCents, tx.RemainingBalanceCents)
		tx.UpdatedAt = now
		remaining -= applied
		updated = append(updated, tx)
	}
	return updated
}

// FormatPesos renders centavos as a peso amount with two fraction digits,
// e.g. 5050 -> "₱50.50". Used only in human-facing descriptions.
func FormatPesos(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s₱%d.%02d", sign, cents/100, cents%100)
}
