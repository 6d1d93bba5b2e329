// Package common contains the content negotiation, fork versioning and
// encoding helpers shared by the builder and relay servers and clients.
package common

import (
	"os"
	"strconv"
	"time"

	"github.com/flashbots/go-utils/cli"
)

const (
	HeaderContentType      = "Content-Type"
	HeaderContentEncoding  = "Content-Encoding"
	HeaderAccept           = "Accept"
	HeaderConsensusVersion = "Eth-Consensus-Version"

	MediaTypeJSON        = "application/json"
	MediaTypeOctetStream = "application/octet-stream"
	MediaTypeAny         = "*/*"

	EncodingGzip = "gzip"
)

// MaxRequestBodyBytes bounds every request and response body read by this
// package. Blob-carrying payloads can be several megabytes.
var MaxRequestBodyBytes = int64(cli.GetEnvInt("MAX_REQUEST_BODY_BYTES", 10*1024*1024))

func GetEnvDurationSec(key string, defaultValueSec int) time.Duration {
	return time.Duration(cli.GetEnvInt(key, defaultValueSec)) * time.Second
}

func GetEnvUint64(key string, defaultValue uint64) uint64 {
	if value, ok := os.LookupEnv(key); ok {
		val, err := strconv.ParseUint(value, 10, 64)
		if err == nil {
			return val
		}
	}
	return defaultValue
}
