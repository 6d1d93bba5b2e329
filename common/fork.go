package common

import (
	"errors"
	"fmt"
	"strings"

	"github.com/attestantio/go-eth2-client/spec"
)

var ErrUnknownFork = errors.New("unknown fork")

// ForkName identifies a consensus fork generation. Values are ordered.
type ForkName int

const (
	ForkBellatrix ForkName = iota
	ForkCapella
	ForkDeneb
	ForkElectra
)

var forksNewestFirst = []ForkName{ForkElectra, ForkDeneb, ForkCapella, ForkBellatrix}

func (f ForkName) String() string {
	switch f {
	case ForkBellatrix:
		return "bellatrix"
	case ForkCapella:
		return "capella"
	case ForkDeneb:
		return "deneb"
	case ForkElectra:
		return "electra"
	default:
		return fmt.Sprintf("fork(%d)", int(f))
	}
}

func (f ForkName) DataVersion() spec.DataVersion {
	switch f {
	case ForkBellatrix:
		return spec.DataVersionBellatrix
	case ForkCapella:
		return spec.DataVersionCapella
	case ForkDeneb:
		return spec.DataVersionDeneb
	case ForkElectra:
		return spec.DataVersionElectra
	default:
		return spec.DataVersionUnknown
	}
}

func (f ForkName) MarshalText() ([]byte, error) {
	if f < ForkBellatrix || f > ForkElectra {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFork, int(f))
	}
	return []byte(f.String()), nil
}

func (f *ForkName) UnmarshalText(text []byte) error {
	fork, err := ParseForkName(string(text))
	if err != nil {
		return err
	}
	*f = fork
	return nil
}

// ParseForkName parses a fork name case-insensitively.
func ParseForkName(s string) (ForkName, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bellatrix":
		return ForkBellatrix, nil
	case "capella":
		return ForkCapella, nil
	case "deneb":
		return ForkDeneb, nil
	case "electra":
		return ForkElectra, nil
	default:
		return ForkBellatrix, fmt.Errorf("%w: %q", ErrUnknownFork, s)
	}
}

// ForksNewestFirst returns the order in which untagged SSZ payloads are probed.
func ForksNewestFirst() []ForkName {
	forks := make([]ForkName, len(forksNewestFirst))
	copy(forks, forksNewestFirst)
	return forks
}
