// Package testfixtures builds minimal but codec-valid payloads for every fork.
package testfixtures

import (
	"time"

	builderBellatrix "github.com/attestantio/go-builder-client/api/bellatrix"
	builderCapella "github.com/attestantio/go-builder-client/api/capella"
	builderDeneb "github.com/attestantio/go-builder-client/api/deneb"
	builderElectra "github.com/attestantio/go-builder-client/api/electra"
	builderApiV1 "github.com/attestantio/go-builder-client/api/v1"
	eth2ApiV1 "github.com/attestantio/go-eth2-client/api/v1"
	eth2ApiV1Deneb "github.com/attestantio/go-eth2-client/api/v1/deneb"
	"github.com/attestantio/go-eth2-client/spec/altair"
	"github.com/attestantio/go-eth2-client/spec/bellatrix"
	"github.com/attestantio/go-eth2-client/spec/capella"
	"github.com/attestantio/go-eth2-client/spec/deneb"
	"github.com/attestantio/go-eth2-client/spec/electra"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/sigp/ethereum-apis/common"
	"github.com/sigp/ethereum-apis/types"
)

// TestLog is used in tests of every package.
var TestLog = logrus.NewEntry(logrus.New())

var (
	ParentHash = phase0.Hash32{0x01, 0x02}
	BlockHash  = phase0.Hash32{0x0a, 0x0b}
	Pubkey     = phase0.BLSPubKey{0x0c}
	Signature  = phase0.BLSSignature{0x0d}
)

func BidTrace(slot uint64) *builderApiV1.BidTrace {
	return &builderApiV1.BidTrace{
		Slot:                 slot,
		ParentHash:           ParentHash,
		BlockHash:            BlockHash,
		BuilderPubkey:        Pubkey,
		ProposerPubkey:       phase0.BLSPubKey{0x0e},
		ProposerFeeRecipient: bellatrix.ExecutionAddress{0x0f},
		GasLimit:             30_000_000,
		GasUsed:              21_000,
		Value:                uint256.NewInt(1_000_000),
	}
}

func withdrawals() []*capella.Withdrawal {
	return []*capella.Withdrawal{{Index: 1, ValidatorIndex: 2, Address: bellatrix.ExecutionAddress{0x03}, Amount: 4}}
}

func BellatrixPayload() *bellatrix.ExecutionPayload {
	return &bellatrix.ExecutionPayload{
		ParentHash:   ParentHash,
		BlockHash:    BlockHash,
		BlockNumber:  100,
		GasLimit:     30_000_000,
		ExtraData:    []byte{0x01},
		Transactions: []bellatrix.Transaction{{0x02, 0x03}},
	}
}

func CapellaPayload() *capella.ExecutionPayload {
	return &capella.ExecutionPayload{
		ParentHash:   ParentHash,
		BlockHash:    BlockHash,
		BlockNumber:  100,
		GasLimit:     30_000_000,
		ExtraData:    []byte{0x01},
		Transactions: []bellatrix.Transaction{{0x02, 0x03}},
		Withdrawals:  withdrawals(),
	}
}

func DenebPayload() *deneb.ExecutionPayload {
	return &deneb.ExecutionPayload{
		ParentHash:    ParentHash,
		BlockHash:     BlockHash,
		BlockNumber:   100,
		GasLimit:      30_000_000,
		ExtraData:     []byte{0x01},
		BaseFeePerGas: uint256.NewInt(7),
		Transactions:  []bellatrix.Transaction{{0x02, 0x03}},
		Withdrawals:   withdrawals(),
		BlobGasUsed:   131072,
	}
}

func BlobsBundle() *builderDeneb.BlobsBundle {
	return &builderDeneb.BlobsBundle{
		Commitments: []deneb.KZGCommitment{{0x01}},
		Proofs:      []deneb.KZGProof{{0x02}},
		Blobs:       []deneb.Blob{},
	}
}

func ExecutionRequests() *electra.ExecutionRequests {
	return &electra.ExecutionRequests{
		Deposits:       []*electra.DepositRequest{},
		Withdrawals:    []*electra.WithdrawalRequest{},
		Consolidations: []*electra.ConsolidationRequest{},
	}
}

func BellatrixHeader() *bellatrix.ExecutionPayloadHeader {
	return &bellatrix.ExecutionPayloadHeader{
		ParentHash:       ParentHash,
		BlockHash:        BlockHash,
		BlockNumber:      100,
		ExtraData:        []byte{0x01},
		TransactionsRoot: phase0.Root{0x04},
	}
}

func CapellaHeader() *capella.ExecutionPayloadHeader {
	return &capella.ExecutionPayloadHeader{
		ParentHash:       ParentHash,
		BlockHash:        BlockHash,
		BlockNumber:      100,
		ExtraData:        []byte{0x01},
		TransactionsRoot: phase0.Root{0x04},
		WithdrawalsRoot:  phase0.Root{0x05},
	}
}

func DenebHeader() *deneb.ExecutionPayloadHeader {
	return &deneb.ExecutionPayloadHeader{
		ParentHash:       ParentHash,
		BlockHash:        BlockHash,
		BlockNumber:      100,
		ExtraData:        []byte{0x01},
		BaseFeePerGas:    uint256.NewInt(7),
		TransactionsRoot: phase0.Root{0x04},
		WithdrawalsRoot:  phase0.Root{0x05},
		BlobGasUsed:      131072,
	}
}

// SubmitBlockRequest returns a block submission for fork.
func SubmitBlockRequest(fork common.ForkName, slot uint64) *types.SubmitBlockRequest {
	req := &types.SubmitBlockRequest{Version: fork}
	switch fork {
	case common.ForkBellatrix:
		req.Bellatrix = &builderBellatrix.SubmitBlockRequest{Message: BidTrace(slot), ExecutionPayload: BellatrixPayload(), Signature: Signature}
	case common.ForkCapella:
		req.Capella = &builderCapella.SubmitBlockRequest{Message: BidTrace(slot), ExecutionPayload: CapellaPayload(), Signature: Signature}
	case common.ForkDeneb:
		req.Deneb = &builderDeneb.SubmitBlockRequest{Message: BidTrace(slot), ExecutionPayload: DenebPayload(), BlobsBundle: BlobsBundle(), Signature: Signature}
	case common.ForkElectra:
		req.Electra = &builderElectra.SubmitBlockRequest{
			Message:           BidTrace(slot),
			ExecutionPayload:  DenebPayload(),
			BlobsBundle:       BlobsBundle(),
			ExecutionRequests: ExecutionRequests(),
			Signature:         Signature,
		}
	}
	return req
}

// SignedHeaderSubmission returns an optimistic v2 header submission for fork.
func SignedHeaderSubmission(fork common.ForkName, slot uint64) *types.SignedHeaderSubmission {
	sub := &types.SignedHeaderSubmission{Version: fork}
	switch fork {
	case common.ForkBellatrix:
		sub.Bellatrix = &types.SignedHeaderSubmissionBellatrix{
			Message:   &types.HeaderSubmissionBellatrix{BidTrace: BidTrace(slot), ExecutionPayloadHeader: BellatrixHeader()},
			Signature: Signature,
		}
	case common.ForkCapella:
		sub.Capella = &types.SignedHeaderSubmissionCapella{
			Message:   &types.HeaderSubmissionCapella{BidTrace: BidTrace(slot), ExecutionPayloadHeader: CapellaHeader()},
			Signature: Signature,
		}
	case common.ForkDeneb:
		sub.Deneb = &types.SignedHeaderSubmissionDeneb{
			Message:   &types.HeaderSubmissionDeneb{BidTrace: BidTrace(slot), ExecutionPayloadHeader: DenebHeader(), BlobsBundle: BlobsBundle()},
			Signature: Signature,
		}
	case common.ForkElectra:
		sub.Electra = &types.SignedHeaderSubmissionElectra{
			Message:   &types.HeaderSubmissionElectra{BidTrace: BidTrace(slot), ExecutionPayloadHeader: DenebHeader()},
			Signature: Signature,
		}
	}
	return sub
}

// SignedBuilderBid returns a bid worth value wei for fork.
func SignedBuilderBid(fork common.ForkName, value uint64) *types.SignedBuilderBid {
	bid := &types.SignedBuilderBid{Version: fork}
	switch fork {
	case common.ForkBellatrix:
		bid.Bellatrix = &builderBellatrix.SignedBuilderBid{
			Message:   &builderBellatrix.BuilderBid{Header: BellatrixHeader(), Value: uint256.NewInt(value), Pubkey: Pubkey},
			Signature: Signature,
		}
	case common.ForkCapella:
		bid.Capella = &builderCapella.SignedBuilderBid{
			Message:   &builderCapella.BuilderBid{Header: CapellaHeader(), Value: uint256.NewInt(value), Pubkey: Pubkey},
			Signature: Signature,
		}
	case common.ForkDeneb:
		bid.Deneb = &builderDeneb.SignedBuilderBid{
			Message: &builderDeneb.BuilderBid{
				Header:             DenebHeader(),
				BlobKZGCommitments: []deneb.KZGCommitment{{0x01}},
				Value:              uint256.NewInt(value),
				Pubkey:             Pubkey,
			},
			Signature: Signature,
		}
	case common.ForkElectra:
		bid.Electra = &builderElectra.SignedBuilderBid{
			Message: &builderElectra.BuilderBid{
				Header:             DenebHeader(),
				BlobKZGCommitments: []deneb.KZGCommitment{{0x01}},
				ExecutionRequests:  ExecutionRequests(),
				Value:              uint256.NewInt(value),
				Pubkey:             Pubkey,
			},
			Signature: Signature,
		}
	}
	return bid
}

// DenebBlindedBlock returns a signed blinded Deneb block at slot.
func DenebBlindedBlock(slot uint64) *types.SignedBlindedBeaconBlock {
	return &types.SignedBlindedBeaconBlock{
		Version: common.ForkDeneb,
		Deneb: &eth2ApiV1Deneb.SignedBlindedBeaconBlock{
			Message: &eth2ApiV1Deneb.BlindedBeaconBlock{
				Slot:          phase0.Slot(slot),
				ProposerIndex: 7,
				ParentRoot:    phase0.Root{0x01},
				StateRoot:     phase0.Root{0x02},
				Body: &eth2ApiV1Deneb.BlindedBeaconBlockBody{
					RANDAOReveal: phase0.BLSSignature{0x03},
					ETH1Data: &phase0.ETH1Data{
						DepositRoot: phase0.Root{0x04},
						BlockHash:   make([]byte, 32),
					},
					ProposerSlashings:      []*phase0.ProposerSlashing{},
					AttesterSlashings:      []*phase0.AttesterSlashing{},
					Attestations:           []*phase0.Attestation{},
					Deposits:               []*phase0.Deposit{},
					VoluntaryExits:         []*phase0.SignedVoluntaryExit{},
					SyncAggregate:          &altair.SyncAggregate{SyncCommitteeBits: make([]byte, 64)},
					ExecutionPayloadHeader: DenebHeader(),
					BLSToExecutionChanges:  []*capella.SignedBLSToExecutionChange{},
					BlobKZGCommitments:     []deneb.KZGCommitment{{0x01}},
				},
			},
			Signature: Signature,
		},
	}
}

// DenebPayloadContents returns the unblinded contents of DenebBlindedBlock.
func DenebPayloadContents() *types.PayloadContents {
	return &types.PayloadContents{
		Version: common.ForkDeneb,
		Deneb: &builderDeneb.ExecutionPayloadAndBlobsBundle{
			ExecutionPayload: DenebPayload(),
			BlobsBundle:      BlobsBundle(),
		},
	}
}

// Registrations returns n distinct signed validator registrations.
func Registrations(n int) types.SignedValidatorRegistrations {
	regs := make(types.SignedValidatorRegistrations, n)
	for i := range regs {
		regs[i] = &eth2ApiV1.SignedValidatorRegistration{
			Message: &eth2ApiV1.ValidatorRegistration{
				FeeRecipient: bellatrix.ExecutionAddress{byte(i)},
				GasLimit:     30_000_000,
				Timestamp:    time.Unix(1_700_000_000+int64(i), 0),
				Pubkey:       phase0.BLSPubKey{byte(i), byte(i >> 8)},
			},
			Signature: Signature,
		}
	}
	return regs
}
