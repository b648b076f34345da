package blockchain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"paywatch.backend/internal/config"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
)

func newBscTestClient(t *testing.T, handler http.HandlerFunc) *BscClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewBscClient(config.NetworkConfig{
		APIURL:                server.URL,
		APIKey:                "test-key",
		RequiredConfirmations: 15,
	})
}

func bscWindowQuery() entities.TransferQuery {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return entities.TransferQuery{
		Recipient:   "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
		Asset:       entities.Asset{Symbol: "BNB", IsNative: true, Decimals: 18},
		WindowStart: start,
		WindowEnd:   start.Add(20 * time.Minute),
	}
}

func TestBscClient_NativeTransfers(t *testing.T) {
	var gotQuery map[string]string
	client := newBscTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"module":         q.Get("module"),
			"action":         q.Get("action"),
			"address":        q.Get("address"),
			"starttimestamp": q.Get("starttimestamp"),
			"endtimestamp":   q.Get("endtimestamp"),
			"apikey":         q.Get("apikey"),
		}
		w.Write([]byte(`{
			"status": "1",
			"message": "OK",
			"result": [
				{
					"blockNumber": "39000010",
					"timeStamp": "1772366460",
					"hash": "0xaaa1",
					"to": "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
					"value": "500000000000000000",
					"confirmations": "22",
					"isError": "0"
				},
				{
					"blockNumber": "39000011",
					"timeStamp": "1772366470",
					"hash": "0xaaa2",
					"to": "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
					"value": "not-a-number",
					"confirmations": "21",
					"isError": "0"
				},
				{
					"blockNumber": "39000012",
					"timeStamp": "1772366480",
					"hash": "0xaaa3",
					"to": "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
					"value": "100",
					"confirmations": "20",
					"isError": "1"
				}
			]
		}`))
	})

	q := bscWindowQuery()
	transfers, err := client.FindTransfers(context.Background(), q)
	require.NoError(t, err)

	require.Equal(t, "account", gotQuery["module"])
	require.Equal(t, "txlist", gotQuery["action"])
	require.Equal(t, q.Recipient, gotQuery["address"])
	require.Equal(t, "1772366400", gotQuery["starttimestamp"])
	require.Equal(t, "1772367600", gotQuery["endtimestamp"])
	require.Equal(t, "test-key", gotQuery["apikey"])

	// The malformed record and the failed execution are dropped, never fatal.
	require.Len(t, transfers, 1)
	got := transfers[0]
	require.Equal(t, "0xaaa1", got.TxHash)
	require.Equal(t, "500000000000000000", got.RawAmount.String())
	require.Equal(t, int64(39000010), got.BlockNumber)
	require.Equal(t, int64(22), got.Confirmations)
	require.True(t, got.ConfirmedAt(15))
}

func TestBscClient_TokenTransfersFilterContract(t *testing.T) {
	contract := "0x55d398326f99059fF775485246999027B3197955"
	client := newBscTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "tokentx", r.URL.Query().Get("action"))
		require.Equal(t, contract, r.URL.Query().Get("contractaddress"))
		w.Write([]byte(`{
			"status": "1",
			"message": "OK",
			"result": [
				{
					"blockNumber": "39000020",
					"timeStamp": "1772366500",
					"hash": "0xbbb1",
					"to": "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
					"value": "25500000000000000000",
					"confirmations": "30",
					"contractAddress": "0x55d398326f99059ff775485246999027b3197955"
				},
				{
					"blockNumber": "39000021",
					"timeStamp": "1772366510",
					"hash": "0xbbb2",
					"to": "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
					"value": "999",
					"confirmations": "29",
					"contractAddress": "0x0000000000000000000000000000000000000001"
				}
			]
		}`))
	})

	q := bscWindowQuery()
	q.Asset = entities.Asset{Symbol: "USDT", ContractAddress: contract, Decimals: 18}
	transfers, err := client.FindTransfers(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	require.Equal(t, "0xbbb1", transfers[0].TxHash)
}

func TestBscClient_NoTransactionsFoundIsEmpty(t *testing.T) {
	client := newBscTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"0","message":"No transactions found","result":[]}`))
	})

	transfers, err := client.FindTransfers(context.Background(), bscWindowQuery())
	require.NoError(t, err)
	require.Empty(t, transfers)
}

func TestBscClient_ErrorStatusIsProviderError(t *testing.T) {
	client := newBscTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"0","message":"Max rate limit reached","result":""}`))
	})

	_, err := client.FindTransfers(context.Background(), bscWindowQuery())
	require.True(t, domainerrors.IsProviderError(err))
}

func TestBscClient_HTTPFailureIsProviderError(t *testing.T) {
	client := newBscTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := client.FindTransfers(context.Background(), bscWindowQuery())
	require.True(t, domainerrors.IsProviderError(err))
}

func TestBscClient_HeadFallbackForMissingConfirmations(t *testing.T) {
	client := newBscTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "1",
			"message": "OK",
			"result": [
				{
					"blockNumber": "39000000",
					"timeStamp": "1772366460",
					"hash": "0xccc1",
					"to": "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
					"value": "100",
					"isError": "0"
				}
			]
		}`))
	})
	headCalls := 0
	client.headFn = func(ctx context.Context) (uint64, error) {
		headCalls++
		return 39000018, nil
	}

	transfers, err := client.FindTransfers(context.Background(), bscWindowQuery())
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	require.Equal(t, int64(18), transfers[0].Confirmations)
	require.Equal(t, 1, headCalls)
	require.True(t, transfers[0].ConfirmedAt(15))
	require.False(t, transfers[0].ConfirmedAt(19))
}
