package types

import (
	eth2ApiV1Bellatrix "github.com/attestantio/go-eth2-client/api/v1/bellatrix"
	eth2ApiV1Capella "github.com/attestantio/go-eth2-client/api/v1/capella"
	eth2ApiV1Deneb "github.com/attestantio/go-eth2-client/api/v1/deneb"
	eth2ApiV1Electra "github.com/attestantio/go-eth2-client/api/v1/electra"
	"github.com/attestantio/go-eth2-client/spec/phase0"

	"github.com/sigp/ethereum-apis/common"
)

// SignedBlindedBeaconBlock is the body of the builder submitBlindedBlock
// endpoint. SSZ bodies must carry a fork header.
type SignedBlindedBeaconBlock struct {
	Version   common.ForkName
	Bellatrix *eth2ApiV1Bellatrix.SignedBlindedBeaconBlock
	Capella   *eth2ApiV1Capella.SignedBlindedBeaconBlock
	Deneb     *eth2ApiV1Deneb.SignedBlindedBeaconBlock
	Electra   *eth2ApiV1Electra.SignedBlindedBeaconBlock
}

func (b *SignedBlindedBeaconBlock) newVariant(fork common.ForkName) (variant, error) {
	switch fork {
	case common.ForkBellatrix:
		return new(eth2ApiV1Bellatrix.SignedBlindedBeaconBlock), nil
	case common.ForkCapella:
		return new(eth2ApiV1Capella.SignedBlindedBeaconBlock), nil
	case common.ForkDeneb:
		return new(eth2ApiV1Deneb.SignedBlindedBeaconBlock), nil
	case common.ForkElectra:
		return new(eth2ApiV1Electra.SignedBlindedBeaconBlock), nil
	}
	return nil, unsupportedFork(fork, "SignedBlindedBeaconBlock")
}

func (b *SignedBlindedBeaconBlock) setVariant(fork common.ForkName, v variant) {
	*b = SignedBlindedBeaconBlock{Version: fork}
	switch block := v.(type) {
	case *eth2ApiV1Bellatrix.SignedBlindedBeaconBlock:
		b.Bellatrix = block
	case *eth2ApiV1Capella.SignedBlindedBeaconBlock:
		b.Capella = block
	case *eth2ApiV1Deneb.SignedBlindedBeaconBlock:
		b.Deneb = block
	case *eth2ApiV1Electra.SignedBlindedBeaconBlock:
		b.Electra = block
	}
}

func (b SignedBlindedBeaconBlock) active() (variant, error) {
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
	return nil, emptyEnvelope("SignedBlindedBeaconBlock", b.Version)
}

func (b SignedBlindedBeaconBlock) Slot() (phase0.Slot, error) {
	switch {
	case b.Bellatrix != nil && b.Bellatrix.Message != nil:
		return b.Bellatrix.Message.Slot, nil
	case b.Capella != nil && b.Capella.Message != nil:
		return b.Capella.Message.Slot, nil
	case b.Deneb != nil && b.Deneb.Message != nil:
		return b.Deneb.Message.Slot, nil
	case b.Electra != nil && b.Electra.Message != nil:
		return b.Electra.Message.Slot, nil
	}
	return 0, emptyEnvelope("SignedBlindedBeaconBlock", b.Version)
}

func (b SignedBlindedBeaconBlock) MarshalJSON() ([]byte, error) {
	return marshalVariantJSON(b.active())
}

func (b *SignedBlindedBeaconBlock) UnmarshalJSON(data []byte) error {
	return unmarshalJSONProbe(b, data)
}

func (b *SignedBlindedBeaconBlock) UnmarshalJSONByFork(fork common.ForkName, data []byte) error {
	return unmarshalJSONByFork(b, fork, data)
}

func (b SignedBlindedBeaconBlock) MarshalSSZ() ([]byte, error) {
	return marshalVariantSSZ(b.active())
}

func (b *SignedBlindedBeaconBlock) UnmarshalSSZByFork(fork common.ForkName, buf []byte) error {
	return unmarshalSSZByFork(b, fork, buf)
}
