package types

import (
	builderBellatrix "github.com/attestantio/go-builder-client/api/bellatrix"
	builderCapella "github.com/attestantio/go-builder-client/api/capella"
	builderDeneb "github.com/attestantio/go-builder-client/api/deneb"
	builderElectra "github.com/attestantio/go-builder-client/api/electra"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/holiman/uint256"

	"github.com/sigp/ethereum-apis/common"
)

// SignedBuilderBid is the response of the builder getHeader endpoint.
type SignedBuilderBid struct {
	Version   common.ForkName
	Bellatrix *builderBellatrix.SignedBuilderBid
	Capella   *builderCapella.SignedBuilderBid
	Deneb     *builderDeneb.SignedBuilderBid
	Electra   *builderElectra.SignedBuilderBid
}

func (b *SignedBuilderBid) newVariant(fork common.ForkName) (variant, error) {
	switch fork {
	case common.ForkBellatrix:
		return new(builderBellatrix.SignedBuilderBid), nil
	case common.ForkCapella:
		return new(builderCapella.SignedBuilderBid), nil
	case common.ForkDeneb:
		return new(builderDeneb.SignedBuilderBid), nil
	case common.ForkElectra:
		return new(builderElectra.SignedBuilderBid), nil
	}
	return nil, unsupportedFork(fork, "SignedBuilderBid")
}

func (b *SignedBuilderBid) setVariant(fork common.ForkName, v variant) {
	*b = SignedBuilderBid{Version: fork}
	switch bid := v.(type) {
	case *builderBellatrix.SignedBuilderBid:
		b.Bellatrix = bid
	case *builderCapella.SignedBuilderBid:
		b.Capella = bid
	case *builderDeneb.SignedBuilderBid:
		b.Deneb = bid
	case *builderElectra.SignedBuilderBid:
		b.Electra = bid
	}
}

func (b SignedBuilderBid) active() (variant, error) {
	switch {
	case b.Version == common.ForkBellatrix && b.Bellatrix != nil:
		return b.Bellatrix, nil
	case b.Version == common.ForkCapella && b.Capella != nil:
		return b.Capella, nil
	case b.Version == common.ForkDeneb && b.Deneb != nil:
		return b.Deneb, nil
	case b.Version == common.ForkElectra && b.Electra != nil:
		return b.Electra, nil
	}
	return nil, emptyEnvelope("SignedBuilderBid", b.Version)
}

// Value returns the bid value, or nil for an empty envelope.
func (b SignedBuilderBid) Value() *uint256.Int {
	switch {
	case b.Bellatrix != nil && b.Bellatrix.Message != nil:
		return b.Bellatrix.Message.Value
	case b.Capella != nil && b.Capella.Message != nil:
		return b.Capella.Message.Value
	case b.Deneb != nil && b.Deneb.Message != nil:
		return b.Deneb.Message.Value
	case b.Electra != nil && b.Electra.Message != nil:
		return b.Electra.Message.Value
	}
	return nil
}

// BlockHash returns the execution block hash the bid commits to.
func (b SignedBuilderBid) BlockHash() (phase0.Hash32, error) {
	switch {
	case b.Bellatrix != nil && b.Bellatrix.Message != nil && b.Bellatrix.Message.Header != nil:
		return b.Bellatrix.Message.Header.BlockHash, nil
	case b.Capella != nil && b.Capella.Message != nil && b.Capella.Message.Header != nil:
		return b.Capella.Message.Header.BlockHash, nil
	case b.Deneb != nil && b.Deneb.Message != nil && b.Deneb.Message.Header != nil:
		return b.Deneb.Message.Header.BlockHash, nil
	case b.Electra != nil && b.Electra.Message != nil && b.Electra.Message.Header != nil:
		return b.Electra.Message.Header.BlockHash, nil
	}
	return phase0.Hash32{}, emptyEnvelope("SignedBuilderBid", b.Version)
}

func (b SignedBuilderBid) MarshalJSON() ([]byte, error) {
	return marshalVariantJSON(b.active())
}

func (b *SignedBuilderBid) UnmarshalJSON(data []byte) error {
	return unmarshalJSONProbe(b, data)
}

func (b *SignedBuilderBid) UnmarshalJSONByFork(fork common.ForkName, data []byte) error {
	return unmarshalJSONByFork(b, fork, data)
}

func (b SignedBuilderBid) MarshalSSZ() ([]byte, error) {
	return marshalVariantSSZ(b.active())
}

func (b *SignedBuilderBid) UnmarshalSSZByFork(fork common.ForkName, buf []byte) error {
	return unmarshalSSZByFork(b, fork, buf)
}
