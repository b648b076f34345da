package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentRequest struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Network          string     `gorm:"type:varchar(20);not null;index"`
	Asset            string     `gorm:"type:varchar(20);not null"`
	Amount           string     `gorm:"type:decimal(36,18);not null"`
	RecipientAddress string     `gorm:"type:varchar(255);not null"`
	Description      string     `gorm:"type:text"`
	Status           string     `gorm:"type:varchar(20);not null;index:idx_payment_requests_status_expires"`
	TxHash           *string    `gorm:"type:varchar(255)"`
	ReceivedAmount   *string    `gorm:"type:decimal(36,18)"`
	ConfirmedBlock   *int64     ``
	ExpiresAt        time.Time  `gorm:"not null;index:idx_payment_requests_status_expires"`
	LastCheckedAt    *time.Time ``
	CreatedAt        time.Time  ``
	UpdatedAt        time.Time  ``
}
