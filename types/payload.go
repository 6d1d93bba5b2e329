package types

import (
	builderDeneb "github.com/attestantio/go-builder-client/api/deneb"
	"github.com/attestantio/go-eth2-client/spec/bellatrix"
	"github.com/attestantio/go-eth2-client/spec/capella"
	"github.com/attestantio/go-eth2-client/spec/phase0"

	"github.com/sigp/ethereum-apis/common"
)

// PayloadContents is the unblinded payload returned for a blinded block.
// Deneb and Electra share a layout, so untagged JSON resolves to Electra.
type PayloadContents struct {
	Version   common.ForkName
	Bellatrix *bellatrix.ExecutionPayload
	Capella   *capella.ExecutionPayload
	Deneb     *builderDeneb.ExecutionPayloadAndBlobsBundle
	Electra   *builderDeneb.ExecutionPayloadAndBlobsBundle
}

func (p *PayloadContents) newVariant(fork common.ForkName) (variant, error) {
	switch fork {
	case common.ForkBellatrix:
		return new(bellatrix.ExecutionPayload), nil
	case common.ForkCapella:
		return new(capella.ExecutionPayload), nil
	case common.ForkDeneb, common.ForkElectra:
		return new(builderDeneb.ExecutionPayloadAndBlobsBundle), nil
	}
	return nil, unsupportedFork(fork, "PayloadContents")
}

func (p *PayloadContents) setVariant(fork common.ForkName, v variant) {
	*p = PayloadContents{Version: fork}
	switch payload := v.(type) {
	case *bellatrix.ExecutionPayload:
		p.Bellatrix = payload
	case *capella.ExecutionPayload:
		p.Capella = payload
	case *builderDeneb.ExecutionPayloadAndBlobsBundle:
		if fork == common.ForkElectra {
			p.Electra = payload
		} else {
			p.Deneb = payload
		}
	}
}

func (p PayloadContents) active() (variant, error) {
	switch {
	case p.Version == common.ForkBellatrix && p.Bellatrix != nil:
		return p.Bellatrix, nil
	case p.Version == common.ForkCapella && p.Capella != nil:
		return p.Capella, nil
	case p.Version == common.ForkDeneb && p.Deneb != nil:
		return p.Deneb, nil
	case p.Version == common.ForkElectra && p.Electra != nil:
		return p.Electra, nil
	}
	return nil, emptyEnvelope("PayloadContents", p.Version)
}

// BlockHash returns the hash of the execution payload.
func (p PayloadContents) BlockHash() (phase0.Hash32, error) {
	switch {
	case p.Bellatrix != nil:
		return p.Bellatrix.BlockHash, nil
	case p.Capella != nil:
		return p.Capella.BlockHash, nil
	case p.Deneb != nil && p.Deneb.ExecutionPayload != nil:
		return p.Deneb.ExecutionPayload.BlockHash, nil
	case p.Electra != nil && p.Electra.ExecutionPayload != nil:
		return p.Electra.ExecutionPayload.BlockHash, nil
	}
	return phase0.Hash32{}, emptyEnvelope("PayloadContents", p.Version)
}

func (p PayloadContents) MarshalJSON() ([]byte, error) {
	return marshalVariantJSON(p.active())
}

func (p *PayloadContents) UnmarshalJSON(data []byte) error {
	return unmarshalJSONProbe(p, data)
}

func (p *PayloadContents) UnmarshalJSONByFork(fork common.ForkName, data []byte) error {
	return unmarshalJSONByFork(p, fork, data)
}

func (p PayloadContents) MarshalSSZ() ([]byte, error) {
	return marshalVariantSSZ(p.active())
}

func (p *PayloadContents) UnmarshalSSZByFork(fork common.ForkName, buf []byte) error {
	return unmarshalSSZByFork(p, fork, buf)
}
