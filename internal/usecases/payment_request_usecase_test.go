package usecases

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/pkg/redis"
)

func TestCreatePaymentRequest_Defaults(t *testing.T) {
	repo := &stubPaymentRepo{}
	uc := NewPaymentRequestUsecase(repo, NewAssetRegistry(testNetworks()), 15*time.Minute, "https://pay.example.com/")

	out, err := uc.CreatePaymentRequest(context.Background(), CreatePaymentRequestInput{
		Network: "Tron",
		Asset:   "USDT",
		Amount:  "25.5",
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)

	request := out.Request
	require.Equal(t, entities.PaymentRequestStatusPending, request.Status)
	require.Equal(t, "25.5", request.Amount)
	// Falls back to the network's configured receiving address.
	require.Equal(t, "TTfNfANq9q68hm6xuAjSfafitBo9Did8SY", request.RecipientAddress)
	require.Equal(t, 15*time.Minute, request.ExpiresAt.Sub(request.CreatedAt))

	require.Equal(t, "https://pay.example.com/payment/"+request.ID.String(), out.PaymentURL)
	require.True(t, strings.HasPrefix(out.QRCode, "data:image/png;base64,"))
}

func TestCreatePaymentRequest_Rejections(t *testing.T) {
	uc := NewPaymentRequestUsecase(&stubPaymentRepo{}, NewAssetRegistry(testNetworks()), 15*time.Minute, "https://pay.example.com")

	cases := []struct {
		name  string
		input CreatePaymentRequestInput
	}{
		{"unknown network", CreatePaymentRequestInput{Network: "Solana", Asset: "SOL", Amount: "1"}},
		{"unknown asset", CreatePaymentRequestInput{Network: "BSC", Asset: "DOGE", Amount: "1"}},
		{"non-positive amount", CreatePaymentRequestInput{Network: "Tron", Asset: "USDT", Amount: "0"}},
		{"excess precision", CreatePaymentRequestInput{Network: "Tron", Asset: "USDT", Amount: "1.0000001"}},
		{"bad tron address", CreatePaymentRequestInput{Network: "Tron", Asset: "USDT", Amount: "1", RecipientAddress: "not-base58"}},
		{"bad bsc address", CreatePaymentRequestInput{Network: "BSC", Asset: "BNB", Amount: "1", RecipientAddress: "0x123"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.CreatePaymentRequest(context.Background(), tc.input)
			require.Error(t, err)

			appErr, ok := err.(*domainerrors.AppError)
			require.True(t, ok)
			require.Equal(t, http.StatusBadRequest, appErr.Code)
		})
	}
}

func TestCreatePaymentRequest_ExplicitBSCRecipient(t *testing.T) {
	repo := &stubPaymentRepo{}
	uc := NewPaymentRequestUsecase(repo, NewAssetRegistry(testNetworks()), 15*time.Minute, "https://pay.example.com")

	out, err := uc.CreatePaymentRequest(context.Background(), CreatePaymentRequestInput{
		Network:          "BSC",
		Asset:            "BNB",
		Amount:           "0.25",
		RecipientAddress: "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
	})
	require.NoError(t, err)
	require.Equal(t, "0x71C7656EC7ab88b098defB751B7401B5f6d8976F", out.Request.RecipientAddress)
}

func TestGetPaymentRequest(t *testing.T) {
	stored := tronUSDTPayment(time.Now().UTC())
	repo := &stubPaymentRepo{stored: stored}
	uc := NewPaymentRequestUsecase(repo, NewAssetRegistry(testNetworks()), 15*time.Minute, "https://pay.example.com")

	got, err := uc.GetPaymentRequest(context.Background(), stored.ID)
	require.NoError(t, err)
	require.Equal(t, stored.ID, got.ID)

	_, err = uc.GetPaymentRequest(context.Background(), uuid.New())
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestGetPaymentRequest_ServesFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	redis.SetClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { redis.SetClient(nil) })

	stored := tronUSDTPayment(time.Now().UTC())
	repo := &stubPaymentRepo{stored: stored}
	uc := NewPaymentRequestUsecase(repo, NewAssetRegistry(testNetworks()), 15*time.Minute, "https://pay.example.com")

	got, err := uc.GetPaymentRequest(context.Background(), stored.ID)
	require.NoError(t, err)
	require.Equal(t, stored.ID, got.ID)

	// The cached copy answers within the TTL even when the store cannot.
	repo.stored = nil
	cached, err := uc.GetPaymentRequest(context.Background(), stored.ID)
	require.NoError(t, err)
	require.Equal(t, stored.ID, cached.ID)

	// Once the cache entry lapses the lookup hits the store again.
	mr.FastForward(5 * time.Second)
	_, err = uc.GetPaymentRequest(context.Background(), stored.ID)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}
