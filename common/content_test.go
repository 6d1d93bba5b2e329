package common

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAccept(t *testing.T) {
	cases := []struct {
		description string
		header      string
		expected    Accept
		expectedErr error
	}{
		{
			description: "higher q wins",
			header:      "application/json;q=0.9,application/octet-stream;q=1.0",
			expected:    AcceptSSZ,
		},
		{
			description: "wildcard",
			header:      "*/*",
			expected:    AcceptAny,
		},
		{
			description: "no recognised range",
			header:      "text/plain",
			expectedErr: ErrNoAcceptableMediaType,
		},
		{
			description: "empty header",
			header:      "",
			expectedErr: ErrNoAcceptableMediaType,
		},
		{
			description: "first wins ties",
			header:      "application/octet-stream,application/json",
			expected:    AcceptSSZ,
		},
		{
			description: "tie at scaled weight",
			header:      "application/json;q=0.5,application/octet-stream;q=0.5000",
			expected:    AcceptJSON,
		},
		{
			description: "unrecognised ranges are skipped",
			header:      "text/html,application/xhtml+xml;q=0.9,application/octet-stream;q=0.1",
			expected:    AcceptSSZ,
		},
		{
			description: "default q beats explicit lower q",
			header:      "application/octet-stream;q=0.99,application/json",
			expected:    AcceptJSON,
		},
		{
			description: "malformed q ignores the range",
			header:      "application/octet-stream;q=abc,application/json;q=0.1",
			expected:    AcceptJSON,
		},
		{
			description: "q=0 is not acceptable",
			header:      "application/octet-stream;q=0",
			expectedErr: ErrNoAcceptableMediaType,
		},
		{
			description: "q=0 range never wins",
			header:      "application/octet-stream;q=0,application/json;q=0.001",
			expected:    AcceptJSON,
		},
		{
			description: "all ranges refused",
			header:      "application/json;q=0,*/*;q=0.000",
			expectedErr: ErrNoAcceptableMediaType,
		},
		{
			description: "whitespace around ranges",
			header:      " application/json ; q=0.2 , */* ; q=0.3",
			expected:    AcceptAny,
		},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			accept, err := ParseAccept(c.header)
			if c.expectedErr != nil {
				require.ErrorIs(t, err, c.expectedErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.expected, accept)
		})
	}
}

func TestNegotiateContentType(t *testing.T) {
	cases := []struct {
		description string
		accept      string
		expected    ContentType
		expectErr   bool
	}{
		{description: "missing header", accept: "", expected: ContentTypeJSON},
		{description: "ssz", accept: "application/octet-stream", expected: ContentTypeSSZ},
		{description: "any", accept: "*/*", expected: ContentTypeJSON},
		{description: "unresolvable", accept: "text/plain", expected: ContentTypeJSON, expectErr: true},
		{description: "ssz refused", accept: "application/octet-stream;q=0", expected: ContentTypeJSON, expectErr: true},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if c.accept != "" {
				req.Header.Set(HeaderAccept, c.accept)
			}
			ct, err := NegotiateContentType(req)
			require.Equal(t, c.expected, ct)
			require.Equal(t, c.expectErr, errors.Is(err, ErrNoAcceptableMediaType))
		})
	}
}

func TestParseContentType(t *testing.T) {
	ct, ok := ParseContentType("application/json; charset=utf-8")
	require.True(t, ok)
	require.Equal(t, ContentTypeJSON, ct)

	ct, ok = ParseContentType("application/octet-stream")
	require.True(t, ok)
	require.Equal(t, ContentTypeSSZ, ct)

	_, ok = ParseContentType("text/plain")
	require.False(t, ok)

	_, ok = ParseContentType("")
	require.False(t, ok)
}
