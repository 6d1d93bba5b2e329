package types

import (
	builderBellatrix "github.com/attestantio/go-builder-client/api/bellatrix"
	builderCapella "github.com/attestantio/go-builder-client/api/capella"
	builderDeneb "github.com/attestantio/go-builder-client/api/deneb"
	builderElectra "github.com/attestantio/go-builder-client/api/electra"
	builderApiV1 "github.com/attestantio/go-builder-client/api/v1"

	"github.com/sigp/ethereum-apis/common"
)

// SubmitBlockRequest is a builder block submission to the relay. Builders do
// not always send a fork header with SSZ bodies, so untagged SSZ is resolved
// by probing newest fork first.
type SubmitBlockRequest struct {
	Version   common.ForkName
	Bellatrix *builderBellatrix.SubmitBlockRequest
	Capella   *builderCapella.SubmitBlockRequest
	Deneb     *builderDeneb.SubmitBlockRequest
	Electra   *builderElectra.SubmitBlockRequest
}

func (r *SubmitBlockRequest) newVariant(fork common.ForkName) (variant, error) {
	switch fork {
	case common.ForkBellatrix:
		return new(builderBellatrix.SubmitBlockRequest), nil
	case common.ForkCapella:
		return new(builderCapella.SubmitBlockRequest), nil
	case common.ForkDeneb:
		return new(builderDeneb.SubmitBlockRequest), nil
	case common.ForkElectra:
		return new(builderElectra.SubmitBlockRequest), nil
	}
	return nil, unsupportedFork(fork, "SubmitBlockRequest")
}

func (r *SubmitBlockRequest) setVariant(fork common.ForkName, v variant) {
	*r = SubmitBlockRequest{Version: fork}
	switch req := v.(type) {
	case *builderBellatrix.SubmitBlockRequest:
		r.Bellatrix = req
	case *builderCapella.SubmitBlockRequest:
		r.Capella = req
	case *builderDeneb.SubmitBlockRequest:
		r.Deneb = req
	case *builderElectra.SubmitBlockRequest:
		r.Electra = req
	}
}

func (r SubmitBlockRequest) active() (variant, error) {
	switch {
	case r.Version == common.ForkBellatrix && r.Bellatrix != nil:
		return r.Bellatrix, nil
	case r.Version == common.ForkCapella && r.Capella != nil:
		return r.Capella, nil
	case r.Version == common.ForkDeneb && r.Deneb != nil:
		return r.Deneb, nil
	case r.Version == common.ForkElectra && r.Electra != nil:
		return r.Electra, nil
	}
	return nil, emptyEnvelope("SubmitBlockRequest", r.Version)
}

// BidTrace returns the signed message of the submission.
func (r SubmitBlockRequest) BidTrace() *builderApiV1.BidTrace {
	switch {
	case r.Bellatrix != nil:
		return r.Bellatrix.Message
	case r.Capella != nil:
		return r.Capella.Message
	case r.Deneb != nil:
		return r.Deneb.Message
	case r.Electra != nil:
		return r.Electra.Message
	}
	return nil
}

func (r SubmitBlockRequest) MarshalJSON() ([]byte, error) {
	return marshalVariantJSON(r.active())
}

func (r *SubmitBlockRequest) UnmarshalJSON(data []byte) error {
	return unmarshalJSONProbe(r, data)
}

func (r *SubmitBlockRequest) UnmarshalJSONByFork(fork common.ForkName, data []byte) error {
	return unmarshalJSONByFork(r, fork, data)
}

func (r SubmitBlockRequest) MarshalSSZ() ([]byte, error) {
	return marshalVariantSSZ(r.active())
}

func (r *SubmitBlockRequest) UnmarshalSSZByFork(fork common.ForkName, buf []byte) error {
	return unmarshalSSZByFork(r, fork, buf)
}

// UnmarshalSSZ probes Electra, Deneb, Capella and Bellatrix in that order.
func (r *SubmitBlockRequest) UnmarshalSSZ(buf []byte) error {
	return unmarshalSSZProbe(r, buf)
}
