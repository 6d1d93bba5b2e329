package common

import (
	"encoding/json"
	"testing"

	consensusspec "github.com/attestantio/go-eth2-client/spec"
	"github.com/stretchr/testify/require"
)

func TestDataVersion(t *testing.T) {
	require.Equal(t, consensusspec.DataVersionBellatrix, ForkBellatrix.DataVersion())
	require.Equal(t, consensusspec.DataVersionCapella, ForkCapella.DataVersion())
	require.Equal(t, consensusspec.DataVersionDeneb, ForkDeneb.DataVersion())
	require.Equal(t, consensusspec.DataVersionElectra, ForkElectra.DataVersion())

	for _, fork := range ForksNewestFirst() {
		require.Equal(t, fork.DataVersion().String(), fork.String())
	}
}

func TestParseForkName(t *testing.T) {
	fork, err := ParseForkName("Deneb")
	require.NoError(t, err)
	require.Equal(t, ForkDeneb, fork)

	fork, err = ParseForkName("electra")
	require.NoError(t, err)
	require.Equal(t, ForkElectra, fork)

	_, err = ParseForkName("phase0")
	require.ErrorIs(t, err, ErrUnknownFork)
}

func TestForksNewestFirst(t *testing.T) {
	require.Equal(t, []ForkName{ForkElectra, ForkDeneb, ForkCapella, ForkBellatrix}, ForksNewestFirst())

	forks := ForksNewestFirst()
	forks[0] = ForkBellatrix
	require.Equal(t, ForkElectra, ForksNewestFirst()[0])
}

func TestForkNameJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		Version ForkName `json:"version"`
	}{ForkCapella})
	require.NoError(t, err)
	require.JSONEq(t, `{"version":"capella"}`, string(out))

	var decoded struct {
		Version ForkName `json:"version"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"version":"bellatrix"}`), &decoded))
	require.Equal(t, ForkBellatrix, decoded.Version)

	_, err = json.Marshal(ForkName(17))
	require.Error(t, err)
}

func TestChainSpecForkNameAtSlot(t *testing.T) {
	mainnet := MainnetChainSpec()
	cases := []struct {
		description string
		spec        *ChainSpec
		slot        uint64
		expected    ForkName
	}{
		{description: "genesis", spec: mainnet, slot: 0, expected: ForkBellatrix},
		{description: "last bellatrix slot", spec: mainnet, slot: 194048*32 - 1, expected: ForkBellatrix},
		{description: "first capella slot", spec: mainnet, slot: 194048 * 32, expected: ForkCapella},
		{description: "first deneb slot", spec: mainnet, slot: 269568 * 32, expected: ForkDeneb},
		{description: "first electra slot", spec: mainnet, slot: 364032 * 32, expected: ForkElectra},
		{
			description: "unscheduled electra",
			spec:        &ChainSpec{SlotsPerEpoch: 32, DenebForkEpoch: 1, ElectraForkEpoch: FarFutureEpoch},
			slot:        1 << 40,
			expected:    ForkDeneb,
		},
		{
			description: "all forks at genesis",
			spec:        &ChainSpec{SlotsPerEpoch: 8},
			slot:        42,
			expected:    ForkElectra,
		},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			require.Equal(t, c.expected, c.spec.ForkNameAtSlot(c.slot))
		})
	}
}

func TestNewChainSpecFromEnv(t *testing.T) {
	t.Setenv("SLOTS_PER_EPOCH", "8")
	t.Setenv("ELECTRA_FORK_EPOCH", "10")

	chainSpec := NewChainSpecFromEnv()
	require.Equal(t, uint64(8), chainSpec.SlotsPerEpoch)
	require.Equal(t, uint64(10), chainSpec.ElectraForkEpoch)
	require.Equal(t, MainnetChainSpec().DenebForkEpoch, chainSpec.DenebForkEpoch)
}
