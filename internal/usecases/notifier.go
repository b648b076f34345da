package usecases

import (
	"context"

	"go.uber.org/zap"

	"paywatch.backend/internal/domain/entities"
	"paywatch.backend/pkg/logger"
)

// Notifier is invoked once a payment reaches a terminal status. Delivery is
// best-effort: failures are logged by the caller and never block or reverse
// the state transition.
type Notifier interface {
	Notify(ctx context.Context, payment *entities.PaymentRequest, status entities.PaymentRequestStatus) error
}

// LogNotifier is the default hook; real channels (email, webhooks) live
// behind the same interface in external services.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Notify(ctx context.Context, payment *entities.PaymentRequest, status entities.PaymentRequestStatus) error {
	logger.Info(ctx, "payment notification",
		zap.String("payment_id", payment.ID.String()),
		zap.String("network", string(payment.Network)),
		zap.String("status", string(status)),
		zap.String("tx_hash", payment.TxHash.String),
	)
	return nil
}
