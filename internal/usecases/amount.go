package usecases

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"paywatch.backend/internal/domain/entities"
)

// ToSmallestUnit converts a human decimal amount to the asset's integer base
// unit. The conversion is exact: amounts with more fractional digits than the
// asset supports are rejected rather than rounded.
func ToSmallestUnit(amount string, decimals int) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %q", amount)
	}

	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", amount, decimals)
	}
	return shifted.BigInt(), nil
}

// FromSmallestUnit converts an integer base-unit amount back to a human
// decimal string. Round-trips ToSmallestUnit without precision loss.
func FromSmallestUnit(raw *big.Int, decimals int) string {
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// Reconcile judges a single already-matched candidate amount against the
// expected amount, both in smallest units. toleranceBps widens the completed
// band around the expected amount; zero preserves the exact-match policy.
func Reconcile(expected, received *big.Int, toleranceBps int64) entities.PaymentRequestStatus {
	if toleranceBps > 0 {
		diff := new(big.Int).Sub(received, expected)
		band := new(big.Int).Mul(expected, big.NewInt(toleranceBps))
		band.Quo(band, big.NewInt(10000))
		if new(big.Int).Abs(diff).Cmp(band) <= 0 {
			return entities.PaymentRequestStatusCompleted
		}
	}

	switch received.Cmp(expected) {
	case 0:
		return entities.PaymentRequestStatusCompleted
	case -1:
		return entities.PaymentRequestStatusUnderpaid
	default:
		return entities.PaymentRequestStatusOverpaid
	}
}
