package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/internal/infrastructure/models"
)

// PaymentRequestRepositoryImpl implements PaymentRequestRepository
type PaymentRequestRepositoryImpl struct {
	db *gorm.DB
}

func NewPaymentRequestRepository(db *gorm.DB) *PaymentRequestRepositoryImpl {
	return &PaymentRequestRepositoryImpl{db: db}
}

func (r *PaymentRequestRepositoryImpl) Create(ctx context.Context, req *entities.PaymentRequest) error {
	now := time.Now()
	m := &models.PaymentRequest{
		ID:               req.ID,
		Network:          string(req.Network),
		Asset:            req.Asset,
		Amount:           req.Amount,
		RecipientAddress: req.RecipientAddress,
		Description:      req.Description,
		Status:           string(req.Status),
		ExpiresAt:        req.ExpiresAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if !req.CreatedAt.IsZero() {
		m.CreatedAt = req.CreatedAt
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *PaymentRequestRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentRequest, error) {
	var m models.PaymentRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *PaymentRequestRepositoryImpl) ListPending(ctx context.Context, limit int) ([]*entities.PaymentRequest, error) {
	var ms []models.PaymentRequest
	if err := r.db.WithContext(ctx).
		Where("status = ?", entities.PaymentRequestStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}

	var requests []*entities.PaymentRequest
	for _, m := range ms {
		model := m
		requests = append(requests, r.toEntity(&model))
	}
	return requests, nil
}

func (r *PaymentRequestRepositoryImpl) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.PaymentRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_checked_at": at,
			"updated_at":      at,
		}).Error
}

// FinalizeWithTransfer performs the single atomic write path for terminal
// transitions. The status guard makes re-finalization a no-op reported as
// ErrRecordConflict.
func (r *PaymentRequestRepositoryImpl) FinalizeWithTransfer(ctx context.Context, id uuid.UUID, status entities.PaymentRequestStatus, txHash, receivedAmount string, confirmedBlock int64, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.PaymentRequest{}).
		Where("id = ? AND status = ?", id, entities.PaymentRequestStatusPending).
		Updates(map[string]interface{}{
			"status":          status,
			"tx_hash":         txHash,
			"received_amount": receivedAmount,
			"confirmed_block": confirmedBlock,
			"last_checked_at": at,
			"updated_at":      at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerrors.ErrRecordConflict
	}
	return nil
}

func (r *PaymentRequestRepositoryImpl) MarkError(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.PaymentRequest{}).
		Where("id = ? AND status = ?", id, entities.PaymentRequestStatusPending).
		Updates(map[string]interface{}{
			"status":          entities.PaymentRequestStatusError,
			"last_checked_at": at,
			"updated_at":      at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerrors.ErrRecordConflict
	}
	return nil
}

func (r *PaymentRequestRepositoryImpl) BulkExpire(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentRequest{}).
		Where("status = ? AND expires_at < ?", entities.PaymentRequestStatusPending, now).
		Updates(map[string]interface{}{
			"status":          entities.PaymentRequestStatusExpired,
			"last_checked_at": now,
			"updated_at":      now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *PaymentRequestRepositoryImpl) toEntity(m *models.PaymentRequest) *entities.PaymentRequest {
	e := &entities.PaymentRequest{
		ID:               m.ID,
		Network:          entities.Network(m.Network),
		Asset:            m.Asset,
		Amount:           m.Amount,
		RecipientAddress: m.RecipientAddress,
		Description:      m.Description,
		Status:           entities.PaymentRequestStatus(m.Status),
		ExpiresAt:        m.ExpiresAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	e.TxHash = null.StringFromPtr(m.TxHash)
	e.ReceivedAmount = null.StringFromPtr(m.ReceivedAmount)
	e.ConfirmedBlock = null.Int64FromPtr(m.ConfirmedBlock)
	e.LastCheckedAt = null.TimeFromPtr(m.LastCheckedAt)
	return e
}
