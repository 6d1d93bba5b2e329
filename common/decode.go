package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	ssz "github.com/ferranbt/fastssz"
	"github.com/klauspost/compress/gzip"
)

var ErrBodyTooLarge = errors.New("body exceeds size limit")

// JSONForkDecoder is implemented by envelopes that can decode JSON for a
// known fork without probing.
type JSONForkDecoder interface {
	UnmarshalJSONByFork(fork ForkName, data []byte) error
}

// SSZForkDecoder is implemented by envelopes whose SSZ layout depends on the
// fork. Only envelopes that also implement ssz.Unmarshaler accept untagged
// SSZ, which they resolve by probing.
type SSZForkDecoder interface {
	UnmarshalSSZByFork(fork ForkName, buf []byte) error
}

// SSZMarshaler is the encoding half of the SSZ codec contract.
type SSZMarshaler interface {
	MarshalSSZ() ([]byte, error)
}

// DecodeRequest extracts the body of req into dst according to its
// Content-Type, Content-Encoding and Eth-Consensus-Version headers. The body
// is consumed exactly once. Errors are always *DecodeError.
func DecodeRequest(req *http.Request, dst any) error {
	body, err := ReadBody(req.Body)
	if err != nil {
		return badRequest(err)
	}
	return DecodeBody(
		req.Header.Get(HeaderContentType),
		req.Header.Get(HeaderContentEncoding),
		req.Header.Get(HeaderConsensusVersion),
		body,
		dst,
	)
}

// DecodeBody is the header-independent core of DecodeRequest, shared with
// the clients for response decoding.
func DecodeBody(contentType, contentEncoding, forkHeader string, body []byte, dst any) error {
	if strings.EqualFold(strings.TrimSpace(contentEncoding), EncodingGzip) {
		decompressed, err := gunzip(body)
		if err != nil {
			return badRequest(fmt.Errorf("gzip: %w", err))
		}
		body = decompressed
	}

	ct, ok := ParseContentType(contentType)
	if !ok {
		return unsupportedMediaType(fmt.Errorf("unsupported content type %q", contentType))
	}

	if ct == ContentTypeSSZ {
		return decodeSSZ(forkHeader, body, dst)
	}
	return decodeJSON(forkHeader, body, dst)
}

func decodeJSON(forkHeader string, body []byte, dst any) error {
	if forkDecoder, ok := dst.(JSONForkDecoder); ok && forkHeader != "" {
		fork, err := ParseForkName(forkHeader)
		if err != nil {
			return badRequest(err)
		}
		if err := forkDecoder.UnmarshalJSONByFork(fork, body); err != nil {
			return badRequest(fmt.Errorf("json (%s): %w", fork, err))
		}
		return nil
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return badRequest(fmt.Errorf("json: %w", err))
	}
	return nil
}

func decodeSSZ(forkHeader string, body []byte, dst any) error {
	if forkDecoder, ok := dst.(SSZForkDecoder); ok && forkHeader != "" {
		fork, err := ParseForkName(forkHeader)
		if err != nil {
			return badRequest(err)
		}
		if err := forkDecoder.UnmarshalSSZByFork(fork, body); err != nil {
			return badRequest(fmt.Errorf("ssz (%s): %w", fork, err))
		}
		return nil
	}

	unmarshaler, ok := dst.(ssz.Unmarshaler)
	if !ok {
		if _, versioned := dst.(SSZForkDecoder); versioned {
			return badRequest(ErrMissingFork)
		}
		return badRequest(fmt.Errorf("%w: %T", ErrNotSSZ, dst))
	}
	if err := unmarshaler.UnmarshalSSZ(body); err != nil {
		return badRequest(fmt.Errorf("ssz: %w", err))
	}
	return nil
}

// ProbeSSZ decodes buf against each fork newest first and returns the first
// fork that decodes cleanly. The order is part of the wire contract.
func ProbeSSZ[T ssz.Unmarshaler](buf []byte, newDecoder func(ForkName) T) (ForkName, T, error) {
	for _, fork := range forksNewestFirst {
		decoder := newDecoder(fork)
		if err := decoder.UnmarshalSSZ(buf); err == nil {
			return fork, decoder, nil
		}
	}
	var zero T
	return ForkBellatrix, zero, ErrNoForkMatched
}

// ReadBody reads at most MaxRequestBodyBytes from r.
func ReadBody(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r, MaxRequestBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > MaxRequestBodyBytes {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}

func gunzip(body []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return ReadBody(zr)
}

// Gzip compresses body for requests sent with Content-Encoding: gzip.
func Gzip(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode serializes v in the requested format.
func Encode(v any, contentType ContentType) ([]byte, error) {
	if contentType == ContentTypeSSZ {
		marshaler, ok := v.(SSZMarshaler)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrNotSSZ, v)
		}
		return marshaler.MarshalSSZ()
	}
	return json.Marshal(v)
}
