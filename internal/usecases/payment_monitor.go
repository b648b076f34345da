package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	domainRepos "paywatch.backend/internal/domain/repositories"
	"paywatch.backend/pkg/logger"
	"paywatch.backend/pkg/metrics"
)

// TransferSource finds candidate transfers for one network. Implementations
// live in infrastructure/blockchain; errors are ProviderErrors, an empty
// result is not an error.
type TransferSource interface {
	Network() entities.Network
	RequiredConfirmations() int64
	FindTransfers(ctx context.Context, q entities.TransferQuery) ([]entities.Transfer, error)
}

// TransferSources selects the adapter for a payment's network.
type TransferSources interface {
	Source(network entities.Network) (TransferSource, bool)
}

// PaymentMonitorUsecase owns the per-payment lifecycle decision: it queries
// the network adapter, filters candidates, applies the confirmation rule and
// persists the terminal transition through the single atomic update path.
type PaymentMonitorUsecase struct {
	repo         domainRepos.PaymentRequestRepository
	sources      TransferSources
	assets       *AssetRegistry
	notifier     Notifier
	grace        time.Duration
	toleranceBps int64
	now          func() time.Time
}

func NewPaymentMonitorUsecase(
	repo domainRepos.PaymentRequestRepository,
	sources TransferSources,
	assets *AssetRegistry,
	notifier Notifier,
	grace time.Duration,
	toleranceBps int64,
) *PaymentMonitorUsecase {
	return &PaymentMonitorUsecase{
		repo:         repo,
		sources:      sources,
		assets:       assets,
		notifier:     notifier,
		grace:        grace,
		toleranceBps: toleranceBps,
		now:          time.Now,
	}
}

// Advance evaluates a single pending payment for one cycle. It never returns
// an error for expected conditions (no transfer yet, transient provider
// failure, concurrent finalization); only persistence faults propagate so the
// scheduler can log them.
func (uc *PaymentMonitorUsecase) Advance(ctx context.Context, payment *entities.PaymentRequest) error {
	// Idempotent finalization: a terminal payment is never re-derived.
	if payment.Status.IsTerminal() {
		return nil
	}

	asset, err := uc.assets.Lookup(payment.Network, payment.Asset)
	if err != nil {
		return uc.failPermanently(ctx, payment, err)
	}

	expectedRaw, err := ToSmallestUnit(payment.Amount, asset.Decimals)
	if err != nil {
		// The configured amount cannot be expressed in this asset's base
		// units; retrying cannot change that.
		return uc.failPermanently(ctx, payment,
			domainerrors.NewAssetConfigError(payment.Network, payment.Asset, err.Error()))
	}

	source, ok := uc.sources.Source(payment.Network)
	if !ok {
		return uc.failPermanently(ctx, payment,
			domainerrors.NewAssetConfigError(payment.Network, payment.Asset, "no transfer source for network"))
	}

	transfers, err := source.FindTransfers(ctx, entities.TransferQuery{
		Recipient:   payment.RecipientAddress,
		Asset:       asset,
		WindowStart: payment.CreatedAt,
		WindowEnd:   payment.MonitorWindowEnd(uc.grace),
	})
	if err != nil {
		// Transient: the payment stays pending and is retried next cycle.
		metrics.ProviderErrors.WithLabelValues(string(payment.Network)).Inc()
		logger.Warn(ctx, "provider query failed, will retry next cycle",
			zap.String("payment_id", payment.ID.String()),
			zap.String("network", string(payment.Network)),
			zap.Error(err))
		return uc.repo.Touch(ctx, payment.ID, uc.now())
	}

	candidate := uc.selectCandidate(payment, transfers, source.RequiredConfirmations())
	if candidate == nil {
		return uc.repo.Touch(ctx, payment.ID, uc.now())
	}

	status := Reconcile(expectedRaw, candidate.RawAmount, uc.toleranceBps)
	received := FromSmallestUnit(candidate.RawAmount, asset.Decimals)

	err = uc.repo.FinalizeWithTransfer(ctx, payment.ID, status, candidate.TxHash, received, candidate.BlockNumber, uc.now())
	if err != nil {
		if errors.Is(err, domainerrors.ErrRecordConflict) {
			// Another path already finalized it; trust the existing state.
			logger.Debug(ctx, "payment already finalized, skipping",
				zap.String("payment_id", payment.ID.String()))
			return nil
		}
		return err
	}

	logger.Info(ctx, "payment finalized",
		zap.String("payment_id", payment.ID.String()),
		zap.String("network", string(payment.Network)),
		zap.String("status", string(status)),
		zap.String("tx_hash", candidate.TxHash),
		zap.String("received_amount", received),
		zap.Int64("confirmed_block", candidate.BlockNumber))
	metrics.PaymentsFinalized.WithLabelValues(string(status)).Inc()

	uc.notify(ctx, payment, status)
	return nil
}

// selectCandidate filters the provider's candidates down to confirmed
// transfers addressed to this payment inside its monitored window, then picks
// deterministically: lowest block number, ties broken by smallest tx hash.
func (uc *PaymentMonitorUsecase) selectCandidate(payment *entities.PaymentRequest, transfers []entities.Transfer, required int64) *entities.Transfer {
	var best *entities.Transfer
	for i := range transfers {
		t := &transfers[i]
		if !addressesEqual(payment.Network, t.To, payment.RecipientAddress) {
			continue
		}
		if !payment.InMonitorWindow(t.Timestamp, uc.grace) {
			continue
		}
		if t.RawAmount == nil || t.RawAmount.Sign() <= 0 {
			continue
		}
		// Unconfirmed candidates are not an error, just "not yet".
		if !t.ConfirmedAt(required) {
			continue
		}
		if best == nil || lessTransfer(t, best) {
			best = t
		}
	}
	return best
}

func lessTransfer(a, b *entities.Transfer) bool {
	if a.BlockNumber != b.BlockNumber {
		return a.BlockNumber < b.BlockNumber
	}
	return strings.Compare(a.TxHash, b.TxHash) < 0
}

// addressesEqual compares addresses in the network's native convention:
// hex addresses compare case-insensitively, base58 is case-sensitive.
func addressesEqual(network entities.Network, a, b string) bool {
	if network == entities.NetworkBSC {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func (uc *PaymentMonitorUsecase) failPermanently(ctx context.Context, payment *entities.PaymentRequest, cause error) error {
	logger.Error(ctx, "unrecoverable payment fault",
		zap.String("payment_id", payment.ID.String()),
		zap.String("network", string(payment.Network)),
		zap.String("asset", payment.Asset),
		zap.Error(cause))

	err := uc.repo.MarkError(ctx, payment.ID, uc.now())
	if errors.Is(err, domainerrors.ErrRecordConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	metrics.PaymentsFinalized.WithLabelValues(string(entities.PaymentRequestStatusError)).Inc()
	uc.notify(ctx, payment, entities.PaymentRequestStatusError)
	return nil
}

// notify is fire-and-forget: a failing hook never blocks or reverses the
// state transition.
func (uc *PaymentMonitorUsecase) notify(ctx context.Context, payment *entities.PaymentRequest, status entities.PaymentRequestStatus) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.Notify(ctx, payment, status); err != nil {
		logger.Warn(ctx, "notification failed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}
