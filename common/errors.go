package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoContent     = errors.New("no content")
	ErrNoForkMatched = errors.New("payload did not decode under any fork")
	ErrMissingFork   = errors.New("missing or invalid " + HeaderConsensusVersion + " header")
	ErrNotSSZ        = errors.New("type has no ssz codec")
)

// ErrorResponse is the JSON error body of every builder and relay endpoint.
type ErrorResponse struct {
	Code        uint16   `json:"code"`
	Message     string   `json:"message"`
	Stacktraces []string `json:"stacktraces,omitempty"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{Code: uint16(code), Message: message}
}

func CustomInternalErr(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, message)
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// AsErrorResponse keeps a domain ErrorResponse intact, answers a DecodeError
// with its status and wraps anything else as an internal error.
func AsErrorResponse(err error) *ErrorResponse {
	var resp *ErrorResponse
	if errors.As(err, &resp) {
		return resp
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return NewErrorResponse(decodeErr.Status, decodeErr.publicMessage())
	}
	return CustomInternalErr(err.Error())
}

// DecodeError is a request body that could not be extracted. Status is 400 or
// 415; Err is kept for logs and never written to the client.
type DecodeError struct {
	Status int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed (%d): %v", e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) publicMessage() string {
	switch {
	case e.Status == http.StatusUnsupportedMediaType:
		return "unsupported content type"
	case errors.Is(e.Err, ErrMissingFork):
		return ErrMissingFork.Error()
	case errors.Is(e.Err, ErrBodyTooLarge):
		return ErrBodyTooLarge.Error()
	}
	return "invalid request body"
}

// RespondDecodeError answers a failed DecodeRequest with a bare status code.
func RespondDecodeError(w http.ResponseWriter, err error) {
	w.WriteHeader(DecodeErrorStatus(err))
}

// RespondNegotiatedError writes err as a JSON ErrorResponse labelled with the
// negotiated content type.
func RespondNegotiatedError(w http.ResponseWriter, log *logrus.Entry, err error, contentType ContentType) {
	respondError(w, log, AsErrorResponse(err), contentType)
}

func badRequest(err error) *DecodeError {
	return &DecodeError{Status: http.StatusBadRequest, Err: err}
}

func unsupportedMediaType(err error) *DecodeError {
	return &DecodeError{Status: http.StatusUnsupportedMediaType, Err: err}
}

// DecodeErrorStatus returns the status to answer an extraction error with.
func DecodeErrorStatus(err error) int {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Status
	}
	return http.StatusBadRequest
}

// ServerError is a non-2xx response whose body parsed as an ErrorResponse.
type ServerError struct {
	StatusCode int
	Response   ErrorResponse
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Response.Message)
}

// InvalidJSONError carries a body that should have been JSON but was not.
type InvalidJSONError struct {
	Err error
	Raw string
}

func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("invalid json: %v (body: %s)", e.Err, e.Raw)
}

func (e *InvalidJSONError) Unwrap() error { return e.Err }

// StatusCodeError is a non-2xx response whose body could not be read.
type StatusCodeError struct {
	StatusCode int
	Err        error
}

func (e *StatusCodeError) Error() string {
	return fmt.Sprintf("unexpected status %d: %v", e.StatusCode, e.Err)
}

func (e *StatusCodeError) Unwrap() error { return e.Err }

// TransportError wraps connection level failures. Nothing in this module
// retries them.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
