package builderapi

import (
	"context"
	"sync"

	"github.com/attestantio/go-eth2-client/spec/phase0"

	"github.com/sigp/ethereum-apis/common"
	"github.com/sigp/ethereum-apis/types"
)

// MockBuilder records calls and answers with the configured values.
type MockBuilder struct {
	common.ForkSchedule

	Bid      *types.SignedBuilderBid
	Contents *types.PayloadContents
	Err      error

	mu            sync.Mutex
	Registrations types.SignedValidatorRegistrations
	BlindedBlock  *types.SignedBlindedBeaconBlock
}

func NewMockBuilder(schedule common.ForkSchedule) *MockBuilder {
	return &MockBuilder{ForkSchedule: schedule}
}

func (m *MockBuilder) RegisterValidators(ctx context.Context, registrations types.SignedValidatorRegistrations) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Registrations = registrations
	return m.Err
}

func (m *MockBuilder) SubmitBlindedBlock(ctx context.Context, block *types.SignedBlindedBeaconBlock) (*types.PayloadContents, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BlindedBlock = block
	return m.Contents, m.Err
}

func (m *MockBuilder) GetHeader(ctx context.Context, slot uint64, parentHash phase0.Hash32, pubkey phase0.BLSPubKey) (*types.SignedBuilderBid, error) {
	return m.Bid, m.Err
}
