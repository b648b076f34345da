package entities

import (
	"math/big"
	"time"
)

// Transfer is a candidate on-chain transfer normalized at the adapter
// boundary. Downstream code never sees provider-specific field names.
type Transfer struct {
	TxHash      string
	To          string   // Network-native address format
	RawAmount   *big.Int // Smallest unit (sun, wei, token base units)
	BlockNumber int64
	Timestamp   time.Time

	// Confirmations is the depth below the chain head, or -1 when the
	// provider does not report it.
	Confirmations int64

	// Finalized is set when the provider asserts finality explicitly
	// instead of exposing a confirmation count.
	Finalized bool
}

// ConfirmedAt reports whether the transfer satisfies the confirmation
// depth rule for the given requirement.
func (t *Transfer) ConfirmedAt(required int64) bool {
	if t.Finalized {
		return true
	}
	return t.Confirmations >= 0 && t.Confirmations >= required
}

// TransferQuery is the logical "find transfers to address X in window T for
// asset A" query handed to a chain adapter.
type TransferQuery struct {
	Recipient   string
	Asset       Asset
	WindowStart time.Time
	WindowEnd   time.Time
}
