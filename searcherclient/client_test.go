package searcherclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/flashbots/go-utils/jsonrpc"
	"github.com/stretchr/testify/require"
	uberatomic "go.uber.org/atomic"

	"github.com/sigp/ethereum-apis/internal/testfixtures"
	"github.com/sigp/ethereum-apis/types/bundles"
)

const signedTx = "0x02f8b20181948449bdee618501dcd6500083016b93942dabcea55a12d73191aece59f508b191fb68adac80b844095ea7b300000000000000000000000054e44dbb92dba848ace27f44c0cb4268981ef1cc00000000000000000000000000000000000000000000000052616e065f6915ebc080a0c497b6e53d7cb78e68c37f6186c8bb9e1b8a55c3e22462163495979b25c2caafa052769811779f438b73159c4cc6a05a889da8c1a16e432c2e37e3415c9a0b9887"

var bundleHash = gethcommon.HexToHash("0x2228f5d8954ce31dc1601a8ba264dbd401bf1428388ce88238932815c5d6f23f")

type rpcHandler func(req *jsonrpc.JSONRPCRequest) *jsonrpc.JSONRPCResponse

func newTestServer(t *testing.T, handler rpcHandler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := new(jsonrpc.JSONRPCRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(handler(req))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func hashResult(t *testing.T, req *jsonrpc.JSONRPCRequest) *jsonrpc.JSONRPCResponse {
	result, err := json.Marshal(bundles.EthBundleHash{BundleHash: bundleHash})
	require.NoError(t, err)
	return &jsonrpc.JSONRPCResponse{ID: req.ID, Result: result, Version: "2.0"}
}

func newTestClient(t *testing.T, url string, maxConcurrent int) *Client {
	t.Helper()
	client, err := NewClient(ClientOpts{Log: testfixtures.TestLog, URL: url, MaxConcurrent: maxConcurrent})
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(ClientOpts{URL: "http://localhost:8545"})
	require.ErrorIs(t, err, ErrMissingLogOpt)
	_, err = NewClient(ClientOpts{Log: testfixtures.TestLog})
	require.ErrorIs(t, err, ErrMissingURLOpt)

	client := newTestClient(t, "http://localhost:8545", 0)
	require.Equal(t, maxConcurrentBundles, client.maxConcurrent)
}

func TestSendBundle(t *testing.T) {
	bundle, err := bundles.BundleFromRLPHex([]string{signedTx}, 100)
	require.NoError(t, err)

	cases := []struct {
		description string
		bundle      bundles.Request
		expectedKey string
	}{
		{
			description: "flashbots",
			bundle:      &bundles.FlashbotsBundle{EthSendBundle: bundle, ReplacementUUID: "a"},
			expectedKey: "replacementUuid",
		},
		{
			description: "beaverbuild",
			bundle:      &bundles.BeaverBundle{EthSendBundle: bundle, UUID: "b"},
			expectedKey: "uuid",
		},
		{
			description: "titan",
			bundle:      &bundles.TitanBundle{Txs: bundle.Txs, BlockNumber: bundle.BlockNumber, ReplacementUUID: "c"},
			expectedKey: "replacementUuid",
		},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			var params []map[string]any
			srv := newTestServer(t, func(req *jsonrpc.JSONRPCRequest) *jsonrpc.JSONRPCResponse {
				require.Equal(t, methodSendBundle, req.Method)
				raw, err := json.Marshal(req.Params)
				require.NoError(t, err)
				require.NoError(t, json.Unmarshal(raw, &params))
				return hashResult(t, req)
			})

			client := newTestClient(t, srv.URL, 2)
			hash, err := client.SendBundle(context.Background(), c.bundle)
			require.NoError(t, err)
			require.Equal(t, bundleHash, hash)

			require.Len(t, params, 1)
			require.Equal(t, "0x64", params[0]["blockNumber"])
			require.Contains(t, params[0], c.expectedKey)
			require.Equal(t, []any{signedTx}, params[0]["txs"])
		})
	}
}

func TestSendBundleErrors(t *testing.T) {
	t.Run("invalid transaction", func(t *testing.T) {
		client := newTestClient(t, "http://localhost:1", 1)
		_, err := client.SendBundle(context.Background(), &bundles.EthSendBundle{Txs: []hexutil.Bytes{{0x01, 0x02}}})
		require.ErrorIs(t, err, bundles.ErrInvalidTransaction)
	})

	t.Run("empty bundle", func(t *testing.T) {
		client := newTestClient(t, "http://localhost:1", 1)
		_, err := client.SendBundle(context.Background(), &bundles.EthSendBundle{})
		require.ErrorIs(t, err, ErrEmptyBundle)
	})

	bundle, err := bundles.BundleFromRLPHex([]string{signedTx}, 0)
	require.NoError(t, err)

	t.Run("rpc error", func(t *testing.T) {
		srv := newTestServer(t, func(req *jsonrpc.JSONRPCRequest) *jsonrpc.JSONRPCResponse {
			return &jsonrpc.JSONRPCResponse{ID: req.ID, Error: &jsonrpc.JSONRPCError{Code: -32000, Message: "bundle too late"}, Version: "2.0"}
		})
		client := newTestClient(t, srv.URL, 1)
		_, err := client.SendBundle(context.Background(), &bundle)
		var rpcErr *RPCError
		require.True(t, errors.As(err, &rpcErr))
		require.Equal(t, -32000, rpcErr.Code)
		require.Equal(t, "bundle too late", rpcErr.Message)
	})

	t.Run("closed context", func(t *testing.T) {
		client := newTestClient(t, "http://localhost:1", 1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.SendBundle(ctx, &bundle)
		require.ErrorIs(t, err, ErrRequestClosed)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestSendBundleConcurrencyLimit(t *testing.T) {
	const maxConcurrent = 2

	var (
		current uberatomic.Int64
		peak    uberatomic.Int64
	)
	srv := newTestServer(t, func(req *jsonrpc.JSONRPCRequest) *jsonrpc.JSONRPCResponse {
		n := current.Inc()
		defer current.Dec()
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return hashResult(t, req)
	})

	bundle, err := bundles.BundleFromRLPHex([]string{signedTx}, 0)
	require.NoError(t, err)
	client := newTestClient(t, srv.URL, maxConcurrent)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.SendBundle(context.Background(), &bundle)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, peak.Load(), int64(maxConcurrent))
	require.Equal(t, 0, client.InFlight())
}
