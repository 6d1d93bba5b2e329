// Package types holds the builder and relay wire types. Payloads whose shape
// depends on the consensus fork are modelled as envelopes: one pointer per
// fork with Version naming the populated one.
package types

import (
	"encoding/json"
	"errors"
	"fmt"

	ssz "github.com/ferranbt/fastssz"

	"github.com/sigp/ethereum-apis/common"
)

var ErrEmptyEnvelope = errors.New("envelope has no payload for its version")

// variant is the codec contract every fork-specific payload satisfies.
type variant interface {
	json.Marshaler
	json.Unmarshaler
	ssz.Unmarshaler
	MarshalSSZ() ([]byte, error)
}

// envelope is implemented by the pointer of every fork-versioned type so the
// decode paths below can be shared.
type envelope interface {
	newVariant(fork common.ForkName) (variant, error)
	setVariant(fork common.ForkName, v variant)
}

func unsupportedFork(fork common.ForkName, typeName string) error {
	return fmt.Errorf("%w: %s has no %s variant", common.ErrUnknownFork, typeName, fork)
}

func marshalVariantJSON(v variant, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return v.MarshalJSON()
}

func marshalVariantSSZ(v variant, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return v.MarshalSSZ()
}

func unmarshalJSONByFork(e envelope, fork common.ForkName, data []byte) error {
	v, err := e.newVariant(fork)
	if err != nil {
		return err
	}
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	e.setVariant(fork, v)
	return nil
}

// unmarshalJSONProbe is the self-describing JSON decode. Variant decoders
// reject missing fields, so trying newest first picks the richest shape the
// document satisfies.
func unmarshalJSONProbe(e envelope, data []byte) error {
	var firstErr error
	for _, fork := range common.ForksNewestFirst() {
		err := unmarshalJSONByFork(e, fork, data)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return fmt.Errorf("%w: %v", common.ErrNoForkMatched, firstErr)
}

func unmarshalSSZByFork(e envelope, fork common.ForkName, buf []byte) error {
	v, err := e.newVariant(fork)
	if err != nil {
		return err
	}
	if err := v.UnmarshalSSZ(buf); err != nil {
		return err
	}
	e.setVariant(fork, v)
	return nil
}

// unmarshalSSZProbe decodes SSZ that arrived without a fork header.
func unmarshalSSZProbe(e envelope, buf []byte) error {
	fork, v, err := common.ProbeSSZ(buf, func(fork common.ForkName) ssz.Unmarshaler {
		v, err := e.newVariant(fork)
		if err != nil {
			return rejectAll{err}
		}
		return v
	})
	if err != nil {
		return err
	}
	e.setVariant(fork, v.(variant))
	return nil
}

type rejectAll struct{ err error }

func (r rejectAll) UnmarshalSSZ([]byte) error { return r.err }

func emptyEnvelope(typeName string, fork common.ForkName) error {
	return fmt.Errorf("%w: %s %s", ErrEmptyEnvelope, typeName, fork)
}
