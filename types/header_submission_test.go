package types_test

import (
	"encoding/json"
	"testing"

	ssz "github.com/ferranbt/fastssz"
	"github.com/stretchr/testify/require"

	"github.com/sigp/ethereum-apis/common"
	"github.com/sigp/ethereum-apis/internal/testfixtures"
	"github.com/sigp/ethereum-apis/types"
)

func TestSignedHeaderSubmissionRoundTrip(t *testing.T) {
	for _, fork := range allForks {
		t.Run(fork.String(), func(t *testing.T) {
			sub := testfixtures.SignedHeaderSubmission(fork, 42)

			sszBytes, err := sub.MarshalSSZ()
			require.NoError(t, err)

			probed := new(types.SignedHeaderSubmission)
			require.NoError(t, probed.UnmarshalSSZ(sszBytes))
			require.Equal(t, fork, probed.Version)
			require.Equal(t, uint64(42), uint64(probed.BidTrace().Slot))

			reencoded, err := probed.MarshalSSZ()
			require.NoError(t, err)
			require.Equal(t, sszBytes, reencoded)

			jsonBytes, err := json.Marshal(sub)
			require.NoError(t, err)

			fromJSON := new(types.SignedHeaderSubmission)
			require.NoError(t, json.Unmarshal(jsonBytes, fromJSON))
			require.Equal(t, fork, fromJSON.Version)
			reencoded, err = fromJSON.MarshalSSZ()
			require.NoError(t, err)
			require.Equal(t, sszBytes, reencoded)
		})
	}
}

func TestHeaderSubmissionStrictJSON(t *testing.T) {
	deneb, err := json.Marshal(testfixtures.SignedHeaderSubmission(common.ForkDeneb, 1))
	require.NoError(t, err)

	// The Electra variant shares the header type but has no blobs bundle.
	electra := new(types.SignedHeaderSubmissionElectra)
	require.Error(t, json.Unmarshal(deneb, electra))

	cases := []struct {
		description string
		input       string
	}{
		{
			description: "missing signature",
			input:       `{"message":{}}`,
		},
		{
			description: "unknown key",
			input:       `{"message":null,"signature":"0x00","extra":1}`,
		},
		{
			description: "not an object",
			input:       `[]`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			require.Error(t, json.Unmarshal([]byte(tc.input), new(types.SignedHeaderSubmissionCapella)))
		})
	}
}

func TestHeaderSubmissionSSZErrors(t *testing.T) {
	valid, err := testfixtures.SignedHeaderSubmission(common.ForkCapella, 1).MarshalSSZ()
	require.NoError(t, err)

	cases := []struct {
		description string
		input       []byte
		expected    error
	}{
		{
			description: "shorter than fixed part",
			input:       valid[:50],
			expected:    ssz.ErrSize,
		},
		{
			description: "first offset does not follow the fixed part",
			input:       append([]byte{0x00, 0x00, 0x00, 0x00}, valid[4:]...),
			expected:    ssz.ErrInvalidVariableOffset,
		},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			err := new(types.SignedHeaderSubmissionCapella).UnmarshalSSZ(tc.input)
			require.ErrorIs(t, err, tc.expected)
		})
	}

	_, err = (&types.SignedHeaderSubmissionCapella{}).MarshalSSZ()
	require.ErrorContains(t, err, "message missing")
}
