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

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"paywatch.backend/internal/config"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/pkg/logger"
)

var dialBSCNode = func(rpcURL string) (*ethclient.Client, error) {
	return ethclient.Dial(rpcURL)
}

// BscClient queries a BscScan-style explorer API for transfers to an
// address. When a node RPC is configured it also resolves the chain head so
// confirmation depth can be computed for records that lack the field.
type BscClient struct {
	apiURL     string
	apiKey     string
	required   int64
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker

	// headFn returns the latest block number; injectable for tests.
	headFn func(ctx context.Context) (uint64, error)
}

func NewBscClient(cfg config.NetworkConfig) *BscClient {
	c := &BscClient{
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		required:   cfg.RequiredConfirmations,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		breaker:    newProviderBreaker(entities.NetworkBSC),
	}

	if cfg.RPCURL != "" {
		if node, err := dialBSCNode(cfg.RPCURL); err != nil {
			logger.Warn(context.Background(), "bsc node dial failed, relying on explorer confirmations",
				zap.String("rpc_url", cfg.RPCURL),
				zap.Error(err))
		} else {
			c.headFn = node.BlockNumber
		}
	}
	return c
}

func (c *BscClient) Network() entities.Network { return entities.NetworkBSC }

func (c *BscClient) RequiredConfirmations() int64 { return c.required }

// bscEnvelope is the etherscan-family response wrapper. result is a list on
// success but a bare string on some errors, hence the RawMessage.
type bscEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type bscTx struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	To              string `json:"to"`
	Value           string `json:"value"`
	Confirmations   string `json:"confirmations"`
	ContractAddress string `json:"contractAddress"`
	IsError         string `json:"isError"`
}

func (c *BscClient) FindTransfers(ctx context.Context, q entities.TransferQuery) ([]entities.Transfer, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("address", q.Recipient)
	params.Set("starttimestamp", strconv.FormatInt(q.WindowStart.Unix(), 10))
	params.Set("endtimestamp", strconv.FormatInt(q.WindowEnd.Unix(), 10))
	params.Set("sort", "asc")
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	if q.Asset.IsNative {
		params.Set("action", "txlist")
	} else {
		params.Set("action", "tokentx")
		params.Set("contractaddress", q.Asset.ContractAddress)
	}

	body, err := doGet(ctx, c.httpClient, c.breaker, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, domainerrors.NewProviderError(entities.NetworkBSC, "query explorer", err)
	}

	var env bscEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, domainerrors.NewProviderError(entities.NetworkBSC, "decode envelope", err)
	}

	if env.Status != "1" {
		// The explorer reports an empty result set as an error status.
		if strings.Contains(env.Message, "No transactions found") {
			return []entities.Transfer{}, nil
		}
		return nil, domainerrors.NewProviderError(entities.NetworkBSC, "query explorer",
			fmt.Errorf("provider reported failure: %s", env.Message))
	}

	var txs []bscTx
	if err := json.Unmarshal(env.Result, &txs); err != nil {
		return nil, domainerrors.NewProviderError(entities.NetworkBSC, "decode result", err)
	}

	var head uint64
	transfers := make([]entities.Transfer, 0, len(txs))
	for i := range txs {
		t, err := c.normalize(ctx, &txs[i], q.Asset, &head)
		if err != nil {
			logger.Warn(ctx, "skipping malformed bsc record",
				zap.String("hash", txs[i].Hash),
				zap.Error(err))
			continue
		}
		if t != nil {
			transfers = append(transfers, *t)
		}
	}
	return transfers, nil
}

// normalize maps one explorer record to a Transfer. A nil, nil return means
// the record is valid but irrelevant (failed execution, other contract).
func (c *BscClient) normalize(ctx context.Context, tx *bscTx, asset entities.Asset, head *uint64) (*entities.Transfer, error) {
	if tx.Hash == "" || tx.To == "" {
		return nil, fmt.Errorf("%w: missing hash or recipient", domainerrors.ErrMalformedRecord)
	}
	if !common.IsHexAddress(tx.To) {
		return nil, fmt.Errorf("%w: unexpected address encoding %q", domainerrors.ErrMalformedRecord, tx.To)
	}
	if tx.IsError == "1" {
		return nil, nil
	}
	if !asset.IsNative && !strings.EqualFold(tx.ContractAddress, asset.ContractAddress) {
		return nil, nil
	}

	amount, ok := new(big.Int).SetString(tx.Value, 10)
	if !ok {
		return nil, fmt.Errorf("%w: non-numeric value %q", domainerrors.ErrMalformedRecord, tx.Value)
	}

	ts, err := strconv.ParseInt(tx.TimeStamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp %q", domainerrors.ErrMalformedRecord, tx.TimeStamp)
	}

	blockNumber, err := strconv.ParseInt(tx.BlockNumber, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad block number %q", domainerrors.ErrMalformedRecord, tx.BlockNumber)
	}

	confirmations := int64(-1)
	if tx.Confirmations != "" {
		confirmations, err = strconv.ParseInt(tx.Confirmations, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad confirmations %q", domainerrors.ErrMalformedRecord, tx.Confirmations)
		}
	} else if c.headFn != nil {
		// Fall back to chain head minus block height when the explorer
		// omits the confirmation count.
		if *head == 0 {
			h, err := c.headFn(ctx)
			if err != nil {
				logger.Warn(ctx, "bsc chain head lookup failed", zap.Error(err))
			} else {
				*head = h
			}
		}
		if *head > 0 && int64(*head) >= blockNumber {
			confirmations = int64(*head) - blockNumber
		}
	}

	return &entities.Transfer{
		TxHash:        tx.Hash,
		To:            tx.To,
		RawAmount:     amount,
		BlockNumber:   blockNumber,
		Timestamp:     time.Unix(ts, 0),
		Confirmations: confirmations,
	}, nil
}
