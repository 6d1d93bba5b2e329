package types

import (
	"bytes"
	"encoding/json"

	builderDeneb "github.com/attestantio/go-builder-client/api/deneb"
	builderApiV1 "github.com/attestantio/go-builder-client/api/v1"
	"github.com/attestantio/go-eth2-client/spec/bellatrix"
	"github.com/attestantio/go-eth2-client/spec/capella"
	"github.com/attestantio/go-eth2-client/spec/deneb"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/buger/jsonparser"

	"github.com/sigp/ethereum-apis/common"
)

// Header submissions are optimistic v2 bids: the bid trace and payload header
// arrive ahead of the full block. Unlike the other envelopes their variants
// are defined here, so JSON decoding rejects unknown fields to keep
// self-describing decode unambiguous.

type HeaderSubmissionBellatrix struct {
	BidTrace               *builderApiV1.BidTrace            `json:"bid_trace"`
	ExecutionPayloadHeader *bellatrix.ExecutionPayloadHeader `json:"execution_payload_header"`
}

type HeaderSubmissionCapella struct {
	BidTrace               *builderApiV1.BidTrace          `json:"bid_trace"`
	ExecutionPayloadHeader *capella.ExecutionPayloadHeader `json:"execution_payload_header"`
}

type HeaderSubmissionDeneb struct {
	BidTrace               *builderApiV1.BidTrace        `json:"bid_trace"`
	ExecutionPayloadHeader *deneb.ExecutionPayloadHeader `json:"execution_payload_header"`
	BlobsBundle            *builderDeneb.BlobsBundle     `json:"blobs_bundle"`
}

type HeaderSubmissionElectra struct {
	BidTrace               *builderApiV1.BidTrace        `json:"bid_trace"`
	ExecutionPayloadHeader *deneb.ExecutionPayloadHeader `json:"execution_payload_header"`
}

func (h *HeaderSubmissionBellatrix) fields() []sszField {
	return []sszField{bidTraceField(&h.BidTrace), objectField("execution_payload_header", &h.ExecutionPayloadHeader)}
}

func (h *HeaderSubmissionCapella) fields() []sszField {
	return []sszField{bidTraceField(&h.BidTrace), objectField("execution_payload_header", &h.ExecutionPayloadHeader)}
}

func (h *HeaderSubmissionDeneb) fields() []sszField {
	return []sszField{
		bidTraceField(&h.BidTrace),
		objectField("execution_payload_header", &h.ExecutionPayloadHeader),
		objectField("blobs_bundle", &h.BlobsBundle),
	}
}

func (h *HeaderSubmissionElectra) fields() []sszField {
	return []sszField{bidTraceField(&h.BidTrace), objectField("execution_payload_header", &h.ExecutionPayloadHeader)}
}

func (h *HeaderSubmissionBellatrix) MarshalSSZ() ([]byte, error) { return marshalContainer(h.fields()...) }
func (h *HeaderSubmissionCapella) MarshalSSZ() ([]byte, error)   { return marshalContainer(h.fields()...) }
func (h *HeaderSubmissionDeneb) MarshalSSZ() ([]byte, error)     { return marshalContainer(h.fields()...) }
func (h *HeaderSubmissionElectra) MarshalSSZ() ([]byte, error)   { return marshalContainer(h.fields()...) }

func (h *HeaderSubmissionBellatrix) UnmarshalSSZ(buf []byte) error {
	return unmarshalContainer(buf, h.fields()...)
}

func (h *HeaderSubmissionCapella) UnmarshalSSZ(buf []byte) error {
	return unmarshalContainer(buf, h.fields()...)
}

func (h *HeaderSubmissionDeneb) UnmarshalSSZ(buf []byte) error {
	return unmarshalContainer(buf, h.fields()...)
}

func (h *HeaderSubmissionElectra) UnmarshalSSZ(buf []byte) error {
	return unmarshalContainer(buf, h.fields()...)
}

func (h *HeaderSubmissionBellatrix) UnmarshalJSON(data []byte) error {
	type strict HeaderSubmissionBellatrix
	return decodeStrict(data, (*strict)(h), "bid_trace", "execution_payload_header")
}

func (h *HeaderSubmissionCapella) UnmarshalJSON(data []byte) error {
	type strict HeaderSubmissionCapella
	return decodeStrict(data, (*strict)(h), "bid_trace", "execution_payload_header")
}

func (h *HeaderSubmissionDeneb) UnmarshalJSON(data []byte) error {
	type strict HeaderSubmissionDeneb
	return decodeStrict(data, (*strict)(h), "bid_trace", "execution_payload_header", "blobs_bundle")
}

func (h *HeaderSubmissionElectra) UnmarshalJSON(data []byte) error {
	type strict HeaderSubmissionElectra
	return decodeStrict(data, (*strict)(h), "bid_trace", "execution_payload_header")
}

type SignedHeaderSubmissionBellatrix struct {
	Message   *HeaderSubmissionBellatrix `json:"message"`
	Signature phase0.BLSSignature        `json:"signature"`
}

type SignedHeaderSubmissionCapella struct {
	Message   *HeaderSubmissionCapella `json:"message"`
	Signature phase0.BLSSignature      `json:"signature"`
}

type SignedHeaderSubmissionDeneb struct {
	Message   *HeaderSubmissionDeneb `json:"message"`
	Signature phase0.BLSSignature    `json:"signature"`
}

type SignedHeaderSubmissionElectra struct {
	Message   *HeaderSubmissionElectra `json:"message"`
	Signature phase0.BLSSignature      `json:"signature"`
}

func (s *SignedHeaderSubmissionBellatrix) MarshalSSZ() ([]byte, error) {
	return marshalContainer(objectField("message", &s.Message), signatureField(&s.Signature))
}

func (s *SignedHeaderSubmissionCapella) MarshalSSZ() ([]byte, error) {
	return marshalContainer(objectField("message", &s.Message), signatureField(&s.Signature))
}

func (s *SignedHeaderSubmissionDeneb) MarshalSSZ() ([]byte, error) {
	return marshalContainer(objectField("message", &s.Message), signatureField(&s.Signature))
}

func (s *SignedHeaderSubmissionElectra) MarshalSSZ() ([]byte, error) {
	return marshalContainer(objectField("message", &s.Message), signatureField(&s.Signature))
}

func (s *SignedHeaderSubmissionBellatrix) UnmarshalSSZ(buf []byte) error {
	return unmarshalContainer(buf, objectField("message", &s.Message), signatureField(&s.Signature))
}

func (s *SignedHeaderSubmissionCapella) UnmarshalSSZ(buf []byte) error {
	return unmarshalContainer(buf, objectField("message", &s.Message), signatureField(&s.Signature))
}

func (s *SignedHeaderSubmissionDeneb) UnmarshalSSZ(buf []byte) error {
	return unmarshalContainer(buf, objectField("message", &s.Message), signatureField(&s.Signature))
}

func (s *SignedHeaderSubmissionElectra) UnmarshalSSZ(buf []byte) error {
	return unmarshalContainer(buf, objectField("message", &s.Message), signatureField(&s.Signature))
}

func (s *SignedHeaderSubmissionBellatrix) MarshalJSON() ([]byte, error) {
	type plain SignedHeaderSubmissionBellatrix
	return json.Marshal((*plain)(s))
}

func (s *SignedHeaderSubmissionCapella) MarshalJSON() ([]byte, error) {
	type plain SignedHeaderSubmissionCapella
	return json.Marshal((*plain)(s))
}

func (s *SignedHeaderSubmissionDeneb) MarshalJSON() ([]byte, error) {
	type plain SignedHeaderSubmissionDeneb
	return json.Marshal((*plain)(s))
}

func (s *SignedHeaderSubmissionElectra) MarshalJSON() ([]byte, error) {
	type plain SignedHeaderSubmissionElectra
	return json.Marshal((*plain)(s))
}

func (s *SignedHeaderSubmissionBellatrix) UnmarshalJSON(data []byte) error {
	type strict SignedHeaderSubmissionBellatrix
	return decodeStrict(data, (*strict)(s), "message", "signature")
}

func (s *SignedHeaderSubmissionCapella) UnmarshalJSON(data []byte) error {
	type strict SignedHeaderSubmissionCapella
	return decodeStrict(data, (*strict)(s), "message", "signature")
}

func (s *SignedHeaderSubmissionDeneb) UnmarshalJSON(data []byte) error {
	type strict SignedHeaderSubmissionDeneb
	return decodeStrict(data, (*strict)(s), "message", "signature")
}

func (s *SignedHeaderSubmissionElectra) UnmarshalJSON(data []byte) error {
	type strict SignedHeaderSubmissionElectra
	return decodeStrict(data, (*strict)(s), "message", "signature")
}

// decodeStrict decodes data into v rejecting unknown keys and requiring
// every key in required to be present.
func decodeStrict(data []byte, v any, required ...string) error {
	for _, key := range required {
		if _, _, _, err := jsonparser.Get(data, key); err != nil {
			return errFieldMissing(key)
		}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// SignedHeaderSubmission is the body of the relay headers endpoint. Untagged
// SSZ is probed like SubmitBlockRequest.
type SignedHeaderSubmission struct {
	Version   common.ForkName
	Bellatrix *SignedHeaderSubmissionBellatrix
	Capella   *SignedHeaderSubmissionCapella
	Deneb     *SignedHeaderSubmissionDeneb
	Electra   *SignedHeaderSubmissionElectra
}

func (s *SignedHeaderSubmission) newVariant(fork common.ForkName) (variant, error) {
	switch fork {
	case common.ForkBellatrix:
		return new(SignedHeaderSubmissionBellatrix), nil
	case common.ForkCapella:
		return new(SignedHeaderSubmissionCapella), nil
	case common.ForkDeneb:
		return new(SignedHeaderSubmissionDeneb), nil
	case common.ForkElectra:
		return new(SignedHeaderSubmissionElectra), nil
	}
	return nil, unsupportedFork(fork, "SignedHeaderSubmission")
}

func (s *SignedHeaderSubmission) setVariant(fork common.ForkName, v variant) {
	*s = SignedHeaderSubmission{Version: fork}
	switch sub := v.(type) {
	case *SignedHeaderSubmissionBellatrix:
		s.Bellatrix = sub
	case *SignedHeaderSubmissionCapella:
		s.Capella = sub
	case *SignedHeaderSubmissionDeneb:
		s.Deneb = sub
	case *SignedHeaderSubmissionElectra:
		s.Electra = sub
	}
}

func (s SignedHeaderSubmission) active() (variant, error) {
	switch {
	case s.Version == common.ForkBellatrix && s.Bellatrix != nil:
		return s.Bellatrix, nil
	case s.Version == common.ForkCapella && s.Capella != nil:
		return s.Capella, nil
	case s.Version == common.ForkDeneb && s.Deneb != nil:
		return s.Deneb, nil
	case s.Version == common.ForkElectra && s.Electra != nil:
		return s.Electra, nil
	}
	return nil, emptyEnvelope("SignedHeaderSubmission", s.Version)
}

func (s SignedHeaderSubmission) BidTrace() *builderApiV1.BidTrace {
	switch {
	case s.Bellatrix != nil && s.Bellatrix.Message != nil:
		return s.Bellatrix.Message.BidTrace
	case s.Capella != nil && s.Capella.Message != nil:
		return s.Capella.Message.BidTrace
	case s.Deneb != nil && s.Deneb.Message != nil:
		return s.Deneb.Message.BidTrace
	case s.Electra != nil && s.Electra.Message != nil:
		return s.Electra.Message.BidTrace
	}
	return nil
}

func (s SignedHeaderSubmission) MarshalJSON() ([]byte, error) {
	return marshalVariantJSON(s.active())
}

func (s *SignedHeaderSubmission) UnmarshalJSON(data []byte) error {
	return unmarshalJSONProbe(s, data)
}

func (s *SignedHeaderSubmission) UnmarshalJSONByFork(fork common.ForkName, data []byte) error {
	return unmarshalJSONByFork(s, fork, data)
}

func (s SignedHeaderSubmission) MarshalSSZ() ([]byte, error) {
	return marshalVariantSSZ(s.active())
}

func (s *SignedHeaderSubmission) UnmarshalSSZByFork(fork common.ForkName, buf []byte) error {
	return unmarshalSSZByFork(s, fork, buf)
}

// UnmarshalSSZ probes Electra, Deneb, Capella and Bellatrix in that order.
func (s *SignedHeaderSubmission) UnmarshalSSZ(buf []byte) error {
	return unmarshalSSZProbe(s, buf)
}
