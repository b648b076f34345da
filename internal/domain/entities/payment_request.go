package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// PaymentRequestStatus represents the status of a payment request
type PaymentRequestStatus string

const (
	PaymentRequestStatusPending   PaymentRequestStatus = "pending"
	PaymentRequestStatusCompleted PaymentRequestStatus = "completed"
	PaymentRequestStatusUnderpaid PaymentRequestStatus = "underpaid"
	PaymentRequestStatusOverpaid  PaymentRequestStatus = "overpaid"
	PaymentRequestStatusExpired   PaymentRequestStatus = "expired"
	PaymentRequestStatusError     PaymentRequestStatus = "error"
)

// IsTerminal reports whether no further automated transition may leave the
// status. Pending is the sole non-terminal status.
func (s PaymentRequestStatus) IsTerminal() bool {
	return s != PaymentRequestStatusPending
}

// PaymentRequest represents an ephemeral receive request monitored on-chain.
// TxHash, ReceivedAmount and ConfirmedBlock are set together with the first
// confirmed matching transfer and are immutable afterwards.
type PaymentRequest struct {
	ID               uuid.UUID            `json:"id"`
	Network          Network              `json:"network"`
	Asset            string               `json:"asset"`
	Amount           string               `json:"amount"` // Human decimal, as entered
	RecipientAddress string               `json:"recipientAddress"`
	Description      string               `json:"description,omitempty"`
	Status           PaymentRequestStatus `json:"status"`
	TxHash           null.String          `json:"transactionHash,omitempty"`
	ReceivedAmount   null.String          `json:"receivedAmount,omitempty"` // Human decimal string
	ConfirmedBlock   null.Int64           `json:"confirmedBlock,omitempty"`
	ExpiresAt        time.Time            `json:"expiresAt"`
	LastCheckedAt    null.Time            `json:"lastCheckedAt,omitempty"`
	CreatedAt        time.Time            `json:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt"`
}

// MonitorWindowEnd returns the upper bound of the on-chain search window.
// Transfers landing shortly after expiry still count, since a payer may
// broadcast seconds before the request expires.
func (p *PaymentRequest) MonitorWindowEnd(grace time.Duration) time.Time {
	return p.ExpiresAt.Add(grace)
}

// InMonitorWindow reports whether ts falls inside [createdAt, expiresAt+grace].
func (p *PaymentRequest) InMonitorWindow(ts time.Time, grace time.Duration) bool {
	return !ts.Before(p.CreatedAt) && !ts.After(p.MonitorWindowEnd(grace))
}
