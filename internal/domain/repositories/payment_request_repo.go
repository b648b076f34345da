package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"paywatch.backend/internal/domain/entities"
)

// PaymentRequestRepository is the monitor's only mutable collaborator. All
// status writes are guarded on the pending status so a finalized payment can
// never be overwritten.
type PaymentRequestRepository interface {
	Create(ctx context.Context, request *entities.PaymentRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentRequest, error)

	// ListPending returns the bounded working set for a scan cycle, oldest
	// first so long-waiting requests are not starved.
	ListPending(ctx context.Context, limit int) ([]*entities.PaymentRequest, error)

	// Touch stamps lastCheckedAt without any status change.
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error

	// FinalizeWithTransfer atomically writes the terminal status together
	// with the fulfilling transfer details. Returns ErrRecordConflict when
	// the payment already left the pending state.
	FinalizeWithTransfer(ctx context.Context, id uuid.UUID, status entities.PaymentRequestStatus, txHash, receivedAmount string, confirmedBlock int64, at time.Time) error

	// MarkError transitions pending → error for an unrecoverable per-payment
	// fault. Returns ErrRecordConflict when the payment is no longer pending.
	MarkError(ctx context.Context, id uuid.UUID, at time.Time) error

	// BulkExpire transitions all pending requests with expiresAt < now to
	// expired and returns the number of rows changed.
	BulkExpire(ctx context.Context, now time.Time) (int64, error)
}
