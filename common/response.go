package common

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http/httpguts"
)

type emptyMetadata struct{}

// VersionedResponse is the JSON success body of fork-versioned endpoints.
type VersionedResponse struct {
	Version  ForkName      `json:"version"`
	Metadata emptyMetadata `json:"metadata"`
	Data     any           `json:"data"`
}

// RespondVersioned writes value tagged with fork, or the error if err is
// non-nil. Success bodies follow contentType. Error bodies are JSON under
// the negotiated Content-Type label and carry no fork header.
func RespondVersioned(w http.ResponseWriter, log *logrus.Entry, value any, err error, contentType ContentType, fork ForkName) {
	if err != nil {
		respondError(w, log, AsErrorResponse(err), contentType)
		return
	}

	var body []byte
	if contentType == ContentTypeSSZ {
		body, err = Encode(value, ContentTypeSSZ)
	} else {
		body, err = json.Marshal(VersionedResponse{Version: fork, Data: value})
	}
	if err != nil {
		log.WithError(err).Error("could not encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := setHeaders(w, map[string]string{
		HeaderContentType:      contentType.String(),
		HeaderConsensusVersion: fork.String(),
	}); err != nil {
		log.WithError(err).Error("could not set response headers")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.WithError(err).Debug("could not write response body")
	}
}

// Respond writes a JSON response without a fork tag. A nil value yields an
// empty 200.
func Respond(w http.ResponseWriter, log *logrus.Entry, value any, err error) {
	if err != nil {
		respondError(w, log, AsErrorResponse(err), ContentTypeJSON)
		return
	}
	if value == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := json.Marshal(value)
	if err != nil {
		log.WithError(err).Error("could not encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set(HeaderContentType, MediaTypeJSON)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.WithError(err).Debug("could not write response body")
	}
}

// RespondError writes a JSON ErrorResponse with the given status.
func RespondError(w http.ResponseWriter, log *logrus.Entry, code int, message string) {
	respondError(w, log, NewErrorResponse(code, message), ContentTypeJSON)
}

func respondError(w http.ResponseWriter, log *logrus.Entry, errResp *ErrorResponse, contentType ContentType) {
	code := int(errResp.Code)
	if code < 100 || code > 999 {
		log.WithField("code", code).Warn("error response with invalid status code")
		code = http.StatusInternalServerError
	}

	body, err := json.Marshal(errResp)
	if err != nil {
		log.WithError(err).Error("could not encode error response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set(HeaderContentType, contentType.String())
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		log.WithError(err).Debug("could not write error body")
	}
}

func setHeaders(w http.ResponseWriter, headers map[string]string) error {
	for key, value := range headers {
		if !httpguts.ValidHeaderFieldValue(value) {
			return fmt.Errorf("invalid value for header %s: %q", key, value)
		}
	}
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	return nil
}
