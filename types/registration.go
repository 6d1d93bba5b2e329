package types

import (
	"fmt"

	eth2ApiV1 "github.com/attestantio/go-eth2-client/api/v1"
	ssz "github.com/ferranbt/fastssz"
)

const signedValidatorRegistrationSize = 180

// SignedValidatorRegistrations is the body of registerValidator. Its SSZ form
// is a list of fixed-size elements with no offsets.
type SignedValidatorRegistrations []*eth2ApiV1.SignedValidatorRegistration

func (r SignedValidatorRegistrations) MarshalSSZ() ([]byte, error) {
	buf := make([]byte, 0, len(r)*signedValidatorRegistrationSize)
	for i, registration := range r {
		if registration == nil {
			return nil, fmt.Errorf("registration %d is nil", i)
		}
		var err error
		if buf, err = registration.MarshalSSZTo(buf); err != nil {
			return nil, fmt.Errorf("registration %d: %w", i, err)
		}
	}
	return buf, nil
}

func (r *SignedValidatorRegistrations) UnmarshalSSZ(buf []byte) error {
	if len(buf)%signedValidatorRegistrationSize != 0 {
		return fmt.Errorf("%w: %d bytes is not a multiple of %d", ssz.ErrSize, len(buf), signedValidatorRegistrationSize)
	}
	registrations := make(SignedValidatorRegistrations, len(buf)/signedValidatorRegistrationSize)
	for i := range registrations {
		start := i * signedValidatorRegistrationSize
		registrations[i] = new(eth2ApiV1.SignedValidatorRegistration)
		if err := registrations[i].UnmarshalSSZ(buf[start : start+signedValidatorRegistrationSize]); err != nil {
			return fmt.Errorf("registration %d: %w", i, err)
		}
	}
	*r = registrations
	return nil
}
