package common

import "math"

// ForkSchedule resolves the fork active at a slot. Implementations must be
// safe for concurrent reads.
type ForkSchedule interface {
	ForkNameAtSlot(slot uint64) ForkName
}

// FarFutureEpoch marks a fork that is not scheduled.
const FarFutureEpoch = math.MaxUint64

type ChainSpec struct {
	SlotsPerEpoch    uint64
	CapellaForkEpoch uint64
	DenebForkEpoch   uint64
	ElectraForkEpoch uint64
}

func MainnetChainSpec() *ChainSpec {
	return &ChainSpec{
		SlotsPerEpoch:    32,
		CapellaForkEpoch: 194048,
		DenebForkEpoch:   269568,
		ElectraForkEpoch: 364032,
	}
}

// NewChainSpecFromEnv starts from mainnet and applies SLOTS_PER_EPOCH and the
// *_FORK_EPOCH overrides.
func NewChainSpecFromEnv() *ChainSpec {
	mainnet := MainnetChainSpec()
	return &ChainSpec{
		SlotsPerEpoch:    GetEnvUint64("SLOTS_PER_EPOCH", mainnet.SlotsPerEpoch),
		CapellaForkEpoch: GetEnvUint64("CAPELLA_FORK_EPOCH", mainnet.CapellaForkEpoch),
		DenebForkEpoch:   GetEnvUint64("DENEB_FORK_EPOCH", mainnet.DenebForkEpoch),
		ElectraForkEpoch: GetEnvUint64("ELECTRA_FORK_EPOCH", mainnet.ElectraForkEpoch),
	}
}

func (c *ChainSpec) hasReachedFork(slot, forkEpoch uint64) bool {
	if c.SlotsPerEpoch == 0 || forkEpoch == FarFutureEpoch {
		return false
	}
	return slot/c.SlotsPerEpoch >= forkEpoch
}

func (c *ChainSpec) ForkNameAtSlot(slot uint64) ForkName {
	switch {
	case c.hasReachedFork(slot, c.ElectraForkEpoch):
		return ForkElectra
	case c.hasReachedFork(slot, c.DenebForkEpoch):
		return ForkDeneb
	case c.hasReachedFork(slot, c.CapellaForkEpoch):
		return ForkCapella
	default:
		return ForkBellatrix
	}
}
