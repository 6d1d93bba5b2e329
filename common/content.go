package common

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

var ErrNoAcceptableMediaType = errors.New("no acceptable media type")

// ContentType selects the wire format of a request or response body.
type ContentType int

const (
	ContentTypeJSON ContentType = iota
	ContentTypeSSZ
)

func (c ContentType) String() string {
	if c == ContentTypeSSZ {
		return MediaTypeOctetStream
	}
	return MediaTypeJSON
}

// ParseContentType prefix-matches a Content-Type header value.
func ParseContentType(header string) (ContentType, bool) {
	switch {
	case strings.HasPrefix(header, MediaTypeJSON):
		return ContentTypeJSON, true
	case strings.HasPrefix(header, MediaTypeOctetStream):
		return ContentTypeSSZ, true
	default:
		return ContentTypeJSON, false
	}
}

type ContentEncoding int

const (
	ContentEncodingNone ContentEncoding = iota
	ContentEncodingGzip
)

func (c ContentEncoding) String() string {
	if c == ContentEncodingGzip {
		return EncodingGzip
	}
	return ""
}

// Accept is the resolved preference of an Accept header.
type Accept int

const (
	AcceptJSON Accept = iota
	AcceptSSZ
	AcceptAny
)

func (a Accept) String() string {
	switch a {
	case AcceptSSZ:
		return MediaTypeOctetStream
	case AcceptAny:
		return MediaTypeAny
	default:
		return MediaTypeJSON
	}
}

// ContentType maps the preference to a concrete wire format. Any yields JSON.
func (a Accept) ContentType() ContentType {
	if a == AcceptSSZ {
		return ContentTypeSSZ
	}
	return ContentTypeJSON
}

// ParseAccept resolves an Accept header to the recognised media range with the
// highest q-value. Weights are compared as integers scaled by 1000 and the
// first range wins a tie. Unrecognised ranges and ranges with q=0 are
// skipped, and a header with no acceptable range is an error rather than an
// implicit JSON.
func ParseAccept(header string) (Accept, error) {
	var (
		best       Accept
		bestWeight int
	)

	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		mediaType, params, err := mime.ParseMediaType(part)
		if err != nil {
			continue
		}

		var accept Accept
		switch mediaType {
		case MediaTypeJSON:
			accept = AcceptJSON
		case MediaTypeOctetStream:
			accept = AcceptSSZ
		case MediaTypeAny:
			accept = AcceptAny
		default:
			continue
		}

		weight := 1000
		if q, ok := params["q"]; ok {
			weight, err = parseQValue(q)
			if err != nil {
				continue
			}
		}

		if weight > bestWeight {
			best, bestWeight = accept, weight
		}
	}

	if bestWeight == 0 {
		return AcceptJSON, fmt.Errorf("%w: %q", ErrNoAcceptableMediaType, header)
	}
	return best, nil
}

func parseQValue(q string) (int, error) {
	f, err := strconv.ParseFloat(q, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("q-value out of range: %s", q)
	}
	return int(f*1000 + 0.5), nil
}

// NegotiateContentType picks the response format for a request. A missing
// header or */* yields JSON. An unresolvable header also yields JSON and the
// resolver error is returned so the caller can log it.
func NegotiateContentType(req *http.Request) (ContentType, error) {
	header := req.Header.Get(HeaderAccept)
	if header == "" {
		return ContentTypeJSON, nil
	}
	accept, err := ParseAccept(header)
	if err != nil {
		return ContentTypeJSON, err
	}
	return accept.ContentType(), nil
}
