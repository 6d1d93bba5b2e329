package types

import (
	"errors"
	"fmt"
	"strings"

	eth2ApiV1 "github.com/attestantio/go-eth2-client/api/v1"
	"github.com/attestantio/go-eth2-client/spec/bellatrix"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	ssz "github.com/ferranbt/fastssz"
	boostTypes "github.com/flashbots/go-boost-utils/types"
)

var (
	ErrInvalidOrderBy   = errors.New("order_by must be value or -value")
	ErrInvalidFiltering = errors.New("filtering must be regional or global")
)

// BidTrace is the data API view of a bid. Integers are quoted decimals.
type BidTrace struct {
	Slot                 uint64                     `json:"slot,string"`
	ParentHash           phase0.Hash32              `json:"parent_hash"`
	BlockHash            phase0.Hash32              `json:"block_hash"`
	BuilderPubkey        phase0.BLSPubKey           `json:"builder_pubkey"`
	ProposerPubkey       phase0.BLSPubKey           `json:"proposer_pubkey"`
	ProposerFeeRecipient bellatrix.ExecutionAddress `json:"proposer_fee_recipient"`
	GasLimit             uint64                     `json:"gas_limit,string"`
	GasUsed              uint64                     `json:"gas_used,string"`
	Value                boostTypes.U256Str         `json:"value"`
}

type BidTraceV2 struct {
	BidTrace
	BlockNumber uint64 `json:"block_number,string"`
	NumTx       uint64 `json:"num_tx,string"`
}

type BidTraceV2WithTimestamp struct {
	BidTraceV2
	Timestamp   int64 `json:"timestamp,string"`
	TimestampMs int64 `json:"timestamp_ms,string"`
}

type Cancellation struct {
	Slot              uint64           `json:"slot,string"`
	ParentHash        phase0.Hash32    `json:"parent_hash"`
	ProposerPublicKey phase0.BLSPubKey `json:"proposer_public_key"`
	BuilderPublicKey  phase0.BLSPubKey `json:"builder_public_key"`
}

const cancellationSSZSize = 8 + 32 + 48 + 48

func (c *Cancellation) MarshalSSZ() ([]byte, error) {
	buf := make([]byte, 0, cancellationSSZSize)
	buf = ssz.MarshalUint64(buf, c.Slot)
	buf = append(buf, c.ParentHash[:]...)
	buf = append(buf, c.ProposerPublicKey[:]...)
	buf = append(buf, c.BuilderPublicKey[:]...)
	return buf, nil
}

func (c *Cancellation) UnmarshalSSZ(buf []byte) error {
	if len(buf) != cancellationSSZSize {
		return fmt.Errorf("%w: cancellation is %d bytes, expected %d", ssz.ErrSize, len(buf), cancellationSSZSize)
	}
	c.Slot = ssz.UnmarshallUint64(buf[0:8])
	copy(c.ParentHash[:], buf[8:40])
	copy(c.ProposerPublicKey[:], buf[40:88])
	copy(c.BuilderPublicKey[:], buf[88:136])
	return nil
}

type SignedCancellation struct {
	Message   *Cancellation       `json:"message"`
	Signature phase0.BLSSignature `json:"signature"`
}

func (s *SignedCancellation) fields() []sszField {
	return []sszField{
		fixedField(cancellationSSZSize,
			func() ([]byte, error) {
				if s.Message == nil {
					return nil, errFieldMissing("message")
				}
				return s.Message.MarshalSSZ()
			},
			func(buf []byte) error {
				s.Message = new(Cancellation)
				return s.Message.UnmarshalSSZ(buf)
			},
		),
		signatureField(&s.Signature),
	}
}

func (s *SignedCancellation) MarshalSSZ() ([]byte, error) {
	return marshalContainer(s.fields()...)
}

func (s *SignedCancellation) UnmarshalSSZ(buf []byte) error {
	return unmarshalContainer(buf, s.fields()...)
}

// TopBidUpdate is streamed to top_bids WebSocket subscribers.
type TopBidUpdate struct {
	Timestamp     uint64                     `json:"timestamp,string"`
	Slot          uint64                     `json:"slot,string"`
	BlockNumber   uint64                     `json:"block_number,string"`
	BlockHash     phase0.Hash32              `json:"block_hash"`
	ParentHash    phase0.Hash32              `json:"parent_hash"`
	BuilderPubkey phase0.BLSPubKey           `json:"builder_pubkey"`
	FeeRecipient  bellatrix.ExecutionAddress `json:"fee_recipient"`
	Value         boostTypes.U256Str         `json:"value"`
}

type Filtering string

const (
	FilteringRegional Filtering = "regional"
	FilteringGlobal   Filtering = "global"
)

func (f *Filtering) UnmarshalText(text []byte) error {
	switch Filtering(text) {
	case FilteringRegional, FilteringGlobal:
		*f = Filtering(text)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidFiltering, string(text))
}

type ValidatorPreferences struct {
	Filtering       Filtering `json:"filtering"`
	TrustedBuilders []string  `json:"trusted_builders"`
}

// ValidatorsResponse is one entry of the relay getValidators response.
type ValidatorsResponse struct {
	Slot           uint64                                `json:"slot,string"`
	ValidatorIndex uint64                                `json:"validator_index,string"`
	Entry          *eth2ApiV1.SignedValidatorRegistration `json:"entry"`
	Preferences    *ValidatorPreferences                 `json:"preferences"`
}

// Query parameters. Zero values are omitted from requests and mean
// "not set" on the server.

type SubmitBlockQueryParams struct {
	Cancellations bool `schema:"cancellations,omitempty"`
}

type OrderBy string

const (
	OrderByValue         OrderBy = "value"
	OrderByNegativeValue OrderBy = "-value"
)

func ParseOrderBy(s string) (OrderBy, error) {
	switch OrderBy(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case OrderByValue:
		return OrderByValue, nil
	case OrderByNegativeValue:
		return OrderByNegativeValue, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrderBy, s)
}

type GetDeliveredPayloadsQueryParams struct {
	Slot           uint64  `schema:"slot,omitempty"`
	Cursor         uint64  `schema:"cursor,omitempty"`
	Limit          uint64  `schema:"limit,omitempty"`
	BlockHash      string  `schema:"block_hash,omitempty"`
	BlockNumber    uint64  `schema:"block_number,omitempty"`
	ProposerPubkey string  `schema:"proposer_pubkey,omitempty"`
	BuilderPubkey  string  `schema:"builder_pubkey,omitempty"`
	OrderBy        OrderBy `schema:"order_by,omitempty"`
}

type GetReceivedBidsQueryParams struct {
	Slot          uint64 `schema:"slot,omitempty"`
	BlockHash     string `schema:"block_hash,omitempty"`
	BlockNumber   uint64 `schema:"block_number,omitempty"`
	BuilderPubkey string `schema:"builder_pubkey,omitempty"`
	Limit         uint64 `schema:"limit,omitempty"`
}

type GetValidatorRegistrationQueryParams struct {
	Pubkey string `schema:"pubkey,required"`
}
