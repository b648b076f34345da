package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fbsobreira/gotron-sdk/pkg/address"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"paywatch.backend/internal/config"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/pkg/logger"
)

// tronMaxPages bounds pagination through TronGrid result pages per query.
const tronMaxPages = 5

// TronClient queries TronGrid for transfers to an account. Native TRX and
// TRC20 tokens use different endpoints with different record shapes; both
// are normalized into entities.Transfer here.
type TronClient struct {
	baseURL    string
	apiKey     string
	required   int64
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewTronClient(cfg config.NetworkConfig) *TronClient {
	return &TronClient{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		apiKey:     cfg.APIKey,
		required:   cfg.RequiredConfirmations,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		breaker:    newProviderBreaker(entities.NetworkTron),
	}
}

func (c *TronClient) Network() entities.Network { return entities.NetworkTron }

func (c *TronClient) RequiredConfirmations() int64 { return c.required }

func (c *TronClient) FindTransfers(ctx context.Context, q entities.TransferQuery) ([]entities.Transfer, error) {
	if q.Asset.IsNative {
		return c.findNative(ctx, q)
	}
	return c.findTRC20(ctx, q)
}

// tronEnvelope is the common TronGrid response wrapper.
type tronEnvelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Meta    struct {
		Links struct {
			Next string `json:"next"`
		} `json:"links"`
	} `json:"meta"`
}

type tronNativeTx struct {
	TxID           string `json:"txID"`
	BlockNumber    int64  `json:"blockNumber"`
	BlockTimestamp int64  `json:"block_timestamp"`
	Ret            []struct {
		ContractRet string `json:"contractRet"`
	} `json:"ret"`
	RawData struct {
		Contract []struct {
			Type      string `json:"type"`
			Parameter struct {
				Value struct {
					Amount    json.Number `json:"amount"`
					ToAddress string      `json:"to_address"`
				} `json:"value"`
			} `json:"parameter"`
		} `json:"contract"`
	} `json:"raw_data"`
}

func (c *TronClient) findNative(ctx context.Context, q entities.TransferQuery) ([]entities.Transfer, error) {
	params := url.Values{}
	params.Set("only_to", "true")
	params.Set("limit", "50")
	params.Set("min_block_timestamp", strconv.FormatInt(q.WindowStart.UnixMilli(), 10))
	params.Set("max_block_timestamp", strconv.FormatInt(q.WindowEnd.UnixMilli(), 10))

	endpoint := fmt.Sprintf("%s/v1/accounts/%s/transactions?%s", c.baseURL, q.Recipient, params.Encode())

	var transfers []entities.Transfer
	for page := 0; endpoint != "" && page < tronMaxPages; page++ {
		env, err := c.fetch(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		var txs []tronNativeTx
		if err := json.Unmarshal(env.Data, &txs); err != nil {
			return nil, domainerrors.NewProviderError(entities.NetworkTron, "decode native transactions", err)
		}

		for i := range txs {
			t, err := c.normalizeNative(&txs[i])
			if err != nil {
				logger.Warn(ctx, "skipping malformed tron record",
					zap.String("tx_id", txs[i].TxID),
					zap.Error(err))
				continue
			}
			if t != nil {
				transfers = append(transfers, *t)
			}
		}

		endpoint = env.Meta.Links.Next
	}
	return transfers, nil
}

// normalizeNative maps a raw TronGrid transaction to a Transfer. A nil, nil
// return means the record is well-formed but not a plain TRX transfer.
func (c *TronClient) normalizeNative(tx *tronNativeTx) (*entities.Transfer, error) {
	if len(tx.RawData.Contract) == 0 {
		return nil, fmt.Errorf("%w: no contract entries", domainerrors.ErrMalformedRecord)
	}
	contract := tx.RawData.Contract[0]
	if contract.Type != "TransferContract" {
		return nil, nil
	}
	if tx.TxID == "" {
		return nil, fmt.Errorf("%w: missing txID", domainerrors.ErrMalformedRecord)
	}

	toHex := contract.Parameter.Value.ToAddress
	if !strings.HasPrefix(toHex, "41") {
		return nil, fmt.Errorf("%w: unexpected to_address encoding %q", domainerrors.ErrMalformedRecord, toHex)
	}
	// HexToAddress returns nil for undecodable hex instead of an error.
	to := address.HexToAddress(toHex)
	if len(to) == 0 {
		return nil, fmt.Errorf("%w: undecodable to_address %q", domainerrors.ErrMalformedRecord, toHex)
	}

	amount, ok := new(big.Int).SetString(contract.Parameter.Value.Amount.String(), 10)
	if !ok {
		return nil, fmt.Errorf("%w: non-numeric amount %q", domainerrors.ErrMalformedRecord, contract.Parameter.Value.Amount)
	}

	// TronGrid exposes no confirmation count on this endpoint; a successful
	// execution result in a mined block is its finality signal.
	finalized := len(tx.Ret) > 0 && tx.Ret[0].ContractRet == "SUCCESS" && tx.BlockNumber > 0

	return &entities.Transfer{
		TxHash:        tx.TxID,
		To:            to.String(),
		RawAmount:     amount,
		BlockNumber:   tx.BlockNumber,
		Timestamp:     time.UnixMilli(tx.BlockTimestamp),
		Confirmations: -1,
		Finalized:     finalized,
	}, nil
}

type tronTRC20Tx struct {
	TransactionID  string `json:"transaction_id"`
	BlockTimestamp int64  `json:"block_timestamp"`
	Type           string `json:"type"`
	To             string `json:"to"`
	Value          string `json:"value"`
	TokenInfo      struct {
		Address string `json:"address"`
	} `json:"token_info"`
}

func (c *TronClient) findTRC20(ctx context.Context, q entities.TransferQuery) ([]entities.Transfer, error) {
	params := url.Values{}
	params.Set("only_to", "true")
	params.Set("limit", "50")
	params.Set("contract_address", q.Asset.ContractAddress)
	params.Set("min_timestamp", strconv.FormatInt(q.WindowStart.UnixMilli(), 10))
	params.Set("max_timestamp", strconv.FormatInt(q.WindowEnd.UnixMilli(), 10))

	endpoint := fmt.Sprintf("%s/v1/accounts/%s/transactions/trc20?%s", c.baseURL, q.Recipient, params.Encode())

	var transfers []entities.Transfer
	for page := 0; endpoint != "" && page < tronMaxPages; page++ {
		env, err := c.fetch(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		var txs []tronTRC20Tx
		if err := json.Unmarshal(env.Data, &txs); err != nil {
			return nil, domainerrors.NewProviderError(entities.NetworkTron, "decode trc20 transactions", err)
		}

		for i := range txs {
			tx := &txs[i]
			if tx.Type != "Transfer" {
				continue
			}
			if tx.TokenInfo.Address != q.Asset.ContractAddress {
				continue
			}
			if tx.TransactionID == "" || tx.Value == "" {
				logger.Warn(ctx, "skipping malformed trc20 record", zap.String("tx_id", tx.TransactionID))
				continue
			}
			amount, ok := new(big.Int).SetString(tx.Value, 10)
			if !ok {
				logger.Warn(ctx, "skipping trc20 record with non-numeric value",
					zap.String("tx_id", tx.TransactionID),
					zap.String("value", tx.Value))
				continue
			}

			transfers = append(transfers, entities.Transfer{
				TxHash:    tx.TransactionID,
				To:        tx.To,
				RawAmount: amount,
				// The TRC20 endpoint reports no block number; the block
				// timestamp stands in as the confirmed-block identifier.
				BlockNumber:   tx.BlockTimestamp,
				Timestamp:     time.UnixMilli(tx.BlockTimestamp),
				Confirmations: -1,
				// Records on this endpoint are only returned once solidified.
				Finalized: true,
			})
		}

		endpoint = env.Meta.Links.Next
	}
	return transfers, nil
}

func (c *TronClient) fetch(ctx context.Context, endpoint string) (*tronEnvelope, error) {
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["TRON-PRO-API-KEY"] = c.apiKey
	}

	body, err := doGet(ctx, c.httpClient, c.breaker, endpoint, headers)
	if err != nil {
		return nil, domainerrors.NewProviderError(entities.NetworkTron, "query trongrid", err)
	}

	var env tronEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, domainerrors.NewProviderError(entities.NetworkTron, "decode envelope", err)
	}
	if !env.Success {
		return nil, domainerrors.NewProviderError(entities.NetworkTron, "query trongrid",
			fmt.Errorf("provider reported failure: %s", env.Error))
	}
	return &env, nil
}
