package usecases

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	tronaddress "github.com/fbsobreira/gotron-sdk/pkg/address"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	domainRepos "paywatch.backend/internal/domain/repositories"
	"paywatch.backend/pkg/logger"
	"paywatch.backend/pkg/redis"
)

const (
	qrCodeSize      = 256
	statusCacheTTL  = 3 * time.Second
	statusCachePref = "paywatch:payment:"
)

// PaymentRequestUsecase covers the payer-facing flow: create an ephemeral
// receive request with a QR payload and serve the payment-page lookup the
// frontend polls while the monitor works.
type PaymentRequestUsecase struct {
	repo        domainRepos.PaymentRequestRepository
	assets      *AssetRegistry
	ttl         time.Duration
	frontendURL string
}

func NewPaymentRequestUsecase(
	repo domainRepos.PaymentRequestRepository,
	assets *AssetRegistry,
	ttl time.Duration,
	frontendURL string,
) *PaymentRequestUsecase {
	return &PaymentRequestUsecase{
		repo:        repo,
		assets:      assets,
		ttl:         ttl,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

type CreatePaymentRequestInput struct {
	Network          string
	Asset            string
	Amount           string
	RecipientAddress string // Optional; defaults to the network's configured receiving address
	Description      string
}

type CreatePaymentRequestOutput struct {
	Request    *entities.PaymentRequest `json:"request"`
	PaymentURL string                   `json:"paymentUrl"`
	QRCode     string                   `json:"qrCode"` // PNG data URI
}

func (uc *PaymentRequestUsecase) CreatePaymentRequest(ctx context.Context, input CreatePaymentRequestInput) (*CreatePaymentRequestOutput, error) {
	network := entities.Network(input.Network)
	if !network.Valid() {
		return nil, domainerrors.BadRequest("unsupported network: " + input.Network)
	}

	asset, err := uc.assets.Lookup(network, input.Asset)
	if err != nil {
		return nil, domainerrors.BadRequest("unsupported asset " + input.Asset + " on " + input.Network)
	}

	// Validation only; the human decimal string is what gets stored.
	if _, err := ToSmallestUnit(input.Amount, asset.Decimals); err != nil {
		return nil, domainerrors.BadRequest(err.Error())
	}

	recipient := input.RecipientAddress
	if recipient == "" {
		recipient, err = uc.assets.ReceiveAddress(network)
		if err != nil {
			return nil, domainerrors.BadRequest("no receiving address available for " + input.Network)
		}
	}
	if err := validateAddress(network, recipient); err != nil {
		return nil, domainerrors.BadRequest(err.Error())
	}

	now := time.Now()
	request := &entities.PaymentRequest{
		ID:               uuid.New(),
		Network:          network,
		Asset:            input.Asset,
		Amount:           input.Amount,
		RecipientAddress: recipient,
		Description:      input.Description,
		Status:           entities.PaymentRequestStatusPending,
		ExpiresAt:        now.Add(uc.ttl),
		CreatedAt:        now,
	}

	qr, err := buildQRCode(request)
	if err != nil {
		return nil, domainerrors.InternalError(err)
	}

	if err := uc.repo.Create(ctx, request); err != nil {
		return nil, domainerrors.InternalError(err)
	}

	return &CreatePaymentRequestOutput{
		Request:    request,
		PaymentURL: uc.frontendURL + "/payment/" + request.ID.String(),
		QRCode:     qr,
	}, nil
}

// GetPaymentRequest serves the payment page. A short-lived cache absorbs the
// page's status polling; the monitor itself never reads through it.
func (uc *PaymentRequestUsecase) GetPaymentRequest(ctx context.Context, id uuid.UUID) (*entities.PaymentRequest, error) {
	key := statusCachePref + id.String()

	if redis.GetClient() != nil {
		if cached, err := redis.Get(ctx, key); err == nil {
			var request entities.PaymentRequest
			if err := json.Unmarshal([]byte(cached), &request); err == nil {
				return &request, nil
			}
		}
	}

	request, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if redis.GetClient() != nil {
		if payload, err := json.Marshal(request); err == nil {
			if err := redis.Set(ctx, key, payload, statusCacheTTL); err != nil {
				logger.Debug(ctx, "payment status cache write failed", zap.Error(err))
			}
		}
	}
	return request, nil
}

// buildQRCode renders the wallet-scannable payload as a PNG data URI, the
// same shape the payment page embeds directly in an img tag.
func buildQRCode(request *entities.PaymentRequest) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"network": string(request.Network),
		"asset":   request.Asset,
		"amount":  request.Amount,
		"address": request.RecipientAddress,
	})
	if err != nil {
		return "", err
	}

	png, err := qrcode.Encode(string(payload), qrcode.Medium, qrCodeSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// validateAddress checks the network-native encoding: base58check for Tron,
// 0x-prefixed hex for BSC.
func validateAddress(network entities.Network, addr string) error {
	switch network {
	case entities.NetworkTron:
		if _, err := tronaddress.Base58ToAddress(addr); err != nil {
			return domainerrors.NewAppError(400, "invalid Tron address", err)
		}
	case entities.NetworkBSC:
		if !ethcommon.IsHexAddress(addr) {
			return domainerrors.BadRequest("invalid BSC address")
		}
	default:
		return domainerrors.ErrUnsupportedNetwork
	}
	return nil
}
