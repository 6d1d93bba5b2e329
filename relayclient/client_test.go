package relayclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sigp/ethereum-apis/common"
	"github.com/sigp/ethereum-apis/internal/testfixtures"
	"github.com/sigp/ethereum-apis/services/relayapi"
	"github.com/sigp/ethereum-apis/types"
)

func newTestClient(t *testing.T) (*Client, *relayapi.MockRelay) {
	t.Helper()
	mock := relayapi.NewMockRelay()
	api, err := relayapi.NewRelayAPI(relayapi.RelayAPIOpts{
		Log:           testfixtures.TestLog,
		Builder:       mock,
		Data:          mock,
		OptimisticV2:  mock,
		Cancellations: mock,
		TopBids:       mock,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	client, err := NewClient(testfixtures.TestLog, srv.URL, srv.Client())
	require.NoError(t, err)
	return client, mock
}

func TestURL(t *testing.T) {
	client, err := NewClient(testfixtures.TestLog, "https://relay.example", nil)
	require.NoError(t, err)

	u, err := client.url(types.GetDeliveredPayloadsQueryParams{Slot: 5, OrderBy: types.OrderByNegativeValue}, "data", "bidtraces", "proposer_payload_delivered")
	require.NoError(t, err)
	require.Equal(t, "https://relay.example/relay/v1/data/bidtraces/proposer_payload_delivered?order_by=-value&slot=5", u.String())

	u, err = client.url(types.SubmitBlockQueryParams{}, "builder", "blocks")
	require.NoError(t, err)
	require.Equal(t, "https://relay.example/relay/v1/builder/blocks", u.String())
}

func TestSubmitBlock(t *testing.T) {
	cases := []struct {
		description string
		fork        common.ForkName
		opts        SubmitOpts
	}{
		{
			description: "capella json",
			fork:        common.ForkCapella,
			opts:        SubmitOpts{ContentType: common.ContentTypeJSON},
		},
		{
			description: "deneb ssz gzip",
			fork:        common.ForkDeneb,
			opts:        SubmitOpts{ContentType: common.ContentTypeSSZ, ContentEncoding: common.ContentEncodingGzip},
		},
		{
			description: "electra ssz",
			fork:        common.ForkElectra,
			opts:        SubmitOpts{ContentType: common.ContentTypeSSZ},
		},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			client, mock := newTestClient(t)
			block := testfixtures.SubmitBlockRequest(c.fork, 9)

			params := types.SubmitBlockQueryParams{Cancellations: true}
			require.NoError(t, client.SubmitBlock(context.Background(), params, block, c.opts))
			require.Equal(t, c.fork, mock.Block.Version)
			require.True(t, mock.Params.Cancellations)

			expected, err := block.MarshalSSZ()
			require.NoError(t, err)
			received, err := mock.Block.MarshalSSZ()
			require.NoError(t, err)
			require.Equal(t, expected, received)
		})
	}
}

func TestSubmitOptimisticV2(t *testing.T) {
	client, mock := newTestClient(t)
	opts := SubmitOpts{ContentType: common.ContentTypeSSZ}

	header := testfixtures.SignedHeaderSubmission(common.ForkDeneb, 3)
	require.NoError(t, client.SubmitHeader(context.Background(), types.SubmitBlockQueryParams{}, header, opts))
	require.Equal(t, common.ForkDeneb, mock.Header.Version)
	require.False(t, mock.Params.Cancellations)

	block := testfixtures.SubmitBlockRequest(common.ForkDeneb, 3)
	require.NoError(t, client.SubmitBlockOptimisticV2(context.Background(), types.SubmitBlockQueryParams{}, block, opts))
	require.Equal(t, common.ForkDeneb, mock.Block.Version)
}

func TestSubmitError(t *testing.T) {
	client, mock := newTestClient(t)
	mock.Err = common.NewErrorResponse(http.StatusBadRequest, "bid too low")

	err := client.SubmitBlock(context.Background(), types.SubmitBlockQueryParams{}, testfixtures.SubmitBlockRequest(common.ForkCapella, 1), SubmitOpts{})
	var serverErr *common.ServerError
	require.True(t, errors.As(err, &serverErr))
	require.Equal(t, "bid too low", serverErr.Response.Message)
}

func TestSubmitCancellation(t *testing.T) {
	cancellation := &types.SignedCancellation{
		Message:   &types.Cancellation{Slot: 8, ParentHash: testfixtures.ParentHash},
		Signature: testfixtures.Signature,
	}
	for _, contentType := range []common.ContentType{common.ContentTypeJSON, common.ContentTypeSSZ} {
		client, mock := newTestClient(t)
		require.NoError(t, client.SubmitCancellation(context.Background(), cancellation, contentType))
		require.Equal(t, cancellation, mock.Cancellation)
	}
}

func TestDataAPI(t *testing.T) {
	client, mock := newTestClient(t)
	ctx := context.Background()

	mock.Delivered = []types.BidTraceV2{{BidTrace: types.BidTrace{Slot: 4, BlockHash: testfixtures.BlockHash}, BlockNumber: 10}}
	payloads, err := client.GetDeliveredPayloads(ctx, types.GetDeliveredPayloadsQueryParams{Slot: 4, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, mock.Delivered, payloads)
	require.Equal(t, uint64(10), mock.DeliveredParams.Limit)

	bids, err := client.GetReceivedBids(ctx, types.GetReceivedBidsQueryParams{BlockHash: hexutil.Encode(testfixtures.BlockHash[:])})
	require.NoError(t, err)
	require.Empty(t, bids)

	_, err = client.GetReceivedBids(ctx, types.GetReceivedBidsQueryParams{})
	var serverErr *common.ServerError
	require.True(t, errors.As(err, &serverErr))
	require.Equal(t, http.StatusBadRequest, serverErr.StatusCode)

	mock.Registration = testfixtures.Registrations(1)[0]
	registration, err := client.GetValidatorRegistration(ctx, mock.Registration.Message.Pubkey)
	require.NoError(t, err)
	require.Equal(t, mock.Registration.Message.Pubkey, registration.Message.Pubkey)

	mock.Validators = []types.ValidatorsResponse{{Slot: 1, ValidatorIndex: 2, Entry: mock.Registration}}
	validators, err := client.GetValidators(ctx)
	require.NoError(t, err)
	require.Len(t, validators, 1)
	require.Equal(t, uint64(2), validators[0].ValidatorIndex)
}

func TestSubscribeTopBids(t *testing.T) {
	client, mock := newTestClient(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results, err := client.SubscribeTopBids(ctx)
	require.NoError(t, err)

	for slot := uint64(1); slot <= 3; slot++ {
		mock.TopBidUpdates <- types.TopBidUpdate{Slot: slot, BlockHash: testfixtures.BlockHash}
		select {
		case result := <-results:
			require.NoError(t, result.Err)
			require.Equal(t, slot, result.Update.Slot)
		case <-time.After(5 * time.Second):
			t.Fatal("no top bid received")
		}
	}

	cancel()
	for range results {
	}
}

func TestSubscribeTopBidsServerFailure(t *testing.T) {
	client, mock := newTestClient(t)
	mock.SubscribeErr = errors.New("stream unavailable")

	results, err := client.SubscribeTopBids(context.Background())
	require.NoError(t, err)

	select {
	case result := <-results:
		var transportErr *common.TransportError
		require.True(t, errors.As(result.Err, &transportErr))
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not fail")
	}
	_, ok := <-results
	require.False(t, ok)
}

func TestSubscribeTopBidsNotServed(t *testing.T) {
	api, err := relayapi.NewRelayAPI(relayapi.RelayAPIOpts{Log: testfixtures.TestLog, Data: relayapi.NewMockRelay()})
	require.NoError(t, err)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	client, err := NewClient(testfixtures.TestLog, srv.URL, nil)
	require.NoError(t, err)

	_, err = client.SubscribeTopBids(context.Background())
	var statusErr *common.StatusCodeError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
