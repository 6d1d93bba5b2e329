package relayapi

import (
	"context"
	"sync"

	eth2ApiV1 "github.com/attestantio/go-eth2-client/api/v1"

	"github.com/sigp/ethereum-apis/types"
)

// MockRelay implements every relay backend interface. It records the last
// request of each kind and answers with the configured values.
type MockRelay struct {
	Validators   []types.ValidatorsResponse
	Delivered    []types.BidTraceV2
	Received     []types.BidTraceV2WithTimestamp
	Registration *eth2ApiV1.SignedValidatorRegistration
	Err          error

	// TopBidUpdates is handed to every subscriber. SubscribeErr fails the
	// subscription instead.
	TopBidUpdates chan types.TopBidUpdate
	SubscribeErr  error

	mu              sync.Mutex
	Params          types.SubmitBlockQueryParams
	Block           *types.SubmitBlockRequest
	Header          *types.SignedHeaderSubmission
	Cancellation    *types.SignedCancellation
	DeliveredParams types.GetDeliveredPayloadsQueryParams
	ReceivedParams  types.GetReceivedBidsQueryParams
}

func NewMockRelay() *MockRelay {
	return &MockRelay{TopBidUpdates: make(chan types.TopBidUpdate)}
}

func (m *MockRelay) GetValidators(ctx context.Context) ([]types.ValidatorsResponse, error) {
	return m.Validators, m.Err
}

func (m *MockRelay) SubmitBlock(ctx context.Context, params types.SubmitBlockQueryParams, req *types.SubmitBlockRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Params, m.Block = params, req
	return m.Err
}

func (m *MockRelay) SubmitBlockOptimisticV2(ctx context.Context, params types.SubmitBlockQueryParams, req *types.SubmitBlockRequest) error {
	return m.SubmitBlock(ctx, params, req)
}

func (m *MockRelay) SubmitHeader(ctx context.Context, params types.SubmitBlockQueryParams, sub *types.SignedHeaderSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Params, m.Header = params, sub
	return m.Err
}

func (m *MockRelay) SubmitCancellation(ctx context.Context, cancellation *types.SignedCancellation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancellation = cancellation
	return m.Err
}

func (m *MockRelay) GetDeliveredPayloads(ctx context.Context, params types.GetDeliveredPayloadsQueryParams) ([]types.BidTraceV2, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeliveredParams = params
	return m.Delivered, m.Err
}

func (m *MockRelay) GetReceivedBids(ctx context.Context, params types.GetReceivedBidsQueryParams) ([]types.BidTraceV2WithTimestamp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReceivedParams = params
	return m.Received, m.Err
}

func (m *MockRelay) GetValidatorRegistration(ctx context.Context, params types.GetValidatorRegistrationQueryParams) (*eth2ApiV1.SignedValidatorRegistration, error) {
	return m.Registration, m.Err
}

func (m *MockRelay) SubscribeTopBids(ctx context.Context) (<-chan types.TopBidUpdate, error) {
	if m.SubscribeErr != nil {
		return nil, m.SubscribeErr
	}
	return m.TopBidUpdates, nil
}
