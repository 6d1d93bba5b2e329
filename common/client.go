package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/buger/jsonparser"
)

// JoinURL appends escaped path segments to base. Segments never introduce
// extra path separators.
func JoinURL(base *url.URL, segments ...string) *url.URL {
	escaped := make([]string, len(segments))
	for i, segment := range segments {
		escaped[i] = url.PathEscape(segment)
	}
	return base.JoinPath(escaped...)
}

// RequestOpts describes an outgoing request body and its headers.
type RequestOpts struct {
	Body            any
	ContentType     ContentType
	ContentEncoding ContentEncoding
	Fork            *ForkName
	Accept          string
}

// NewRequest builds a request for u, encoding opts.Body in opts.ContentType
// and compressing it when gzip is requested.
func NewRequest(ctx context.Context, method string, u *url.URL, opts RequestOpts) (*http.Request, error) {
	var body io.Reader
	if opts.Body != nil {
		payload, err := Encode(opts.Body, opts.ContentType)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		if opts.ContentEncoding == ContentEncodingGzip {
			if payload, err = Gzip(payload); err != nil {
				return nil, fmt.Errorf("compress request: %w", err)
			}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if opts.Body != nil {
		req.Header.Set(HeaderContentType, opts.ContentType.String())
		if opts.ContentEncoding == ContentEncodingGzip {
			req.Header.Set(HeaderContentEncoding, EncodingGzip)
		}
	}
	if opts.Fork != nil {
		req.Header.Set(HeaderConsensusVersion, opts.Fork.String())
	}
	if opts.Accept != "" {
		req.Header.Set(HeaderAccept, opts.Accept)
	}
	return req, nil
}

// Do sends req and decodes the response into dst, which may be nil when no
// body is expected.
func Do(client *http.Client, req *http.Request, dst any) error {
	resp, err := client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	return DecodeResponse(resp, dst)
}

// DecodeResponse mirrors DecodeRequest on the client side. JSON versioned
// envelopes are unwrapped and their version is used when the response has no
// Eth-Consensus-Version header. Non-2xx bodies decode as ErrorResponse.
func DecodeResponse(resp *http.Response, dst any) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return ErrNoContent
	}

	body, readErr := ReadBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if readErr != nil {
			return &StatusCodeError{StatusCode: resp.StatusCode, Err: readErr}
		}
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return &InvalidJSONError{Err: err, Raw: string(body)}
		}
		return &ServerError{StatusCode: resp.StatusCode, Response: errResp}
	}
	if readErr != nil {
		return &TransportError{Err: readErr}
	}
	if dst == nil {
		return nil
	}

	contentType := resp.Header.Get(HeaderContentType)
	if contentType == "" {
		contentType = MediaTypeJSON
	}
	contentEncoding := resp.Header.Get(HeaderContentEncoding)
	fork := resp.Header.Get(HeaderConsensusVersion)

	if ct, _ := ParseContentType(contentType); ct == ContentTypeJSON {
		if strings.EqualFold(strings.TrimSpace(contentEncoding), EncodingGzip) {
			var err error
			if body, err = gunzip(body); err != nil {
				return badRequest(fmt.Errorf("gzip: %w", err))
			}
			contentEncoding = ""
		}
		var unwrapped bool
		body, fork, unwrapped = unwrapVersioned(body, fork)
		if !unwrapped && isVersionedEnvelope(dst) {
			return &InvalidJSONError{Err: errors.New("missing versioned envelope"), Raw: string(body)}
		}
	}

	return DecodeBody(contentType, contentEncoding, fork, body, dst)
}

// unwrapVersioned returns the data field of a {"version","data"} object.
func unwrapVersioned(body []byte, fork string) ([]byte, string, bool) {
	data, dataType, _, err := jsonparser.Get(body, "data")
	if err != nil || (dataType != jsonparser.Object && dataType != jsonparser.Array) {
		return body, fork, false
	}
	version, err := jsonparser.GetString(body, "version")
	if err != nil {
		return body, fork, false
	}
	if fork == "" {
		fork = version
	}
	return data, fork, true
}

func isVersionedEnvelope(dst any) bool {
	_, ok := dst.(JSONForkDecoder)
	return ok
}
