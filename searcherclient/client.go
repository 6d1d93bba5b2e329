// Package searcherclient sends bundles to builder RPC endpoints with
// eth_sendBundle.
package searcherclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/go-utils/cli"
	"github.com/flashbots/go-utils/jsonrpc"
	"github.com/sirupsen/logrus"
	uberatomic "go.uber.org/atomic"

	"github.com/sigp/ethereum-apis/common"
	"github.com/sigp/ethereum-apis/types/bundles"
)

const methodSendBundle = "eth_sendBundle"

var (
	ErrMissingLogOpt = errors.New("log parameter is nil")
	ErrMissingURLOpt = errors.New("rpc url is empty")
	ErrRequestClosed = errors.New("request context closed")
	ErrEmptyBundle   = errors.New("bundle has no transactions")

	maxConcurrentBundles = cli.GetEnvInt("MAX_CONCURRENT_BUNDLES", 4)
	bundleRequestTimeout = time.Duration(cli.GetEnvInt("BUNDLE_REQUEST_TIMEOUT_MS", 5_000)) * time.Millisecond
)

// RPCError is a JSON-RPC error object returned by the builder.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type ClientOpts struct {
	Log *logrus.Entry
	URL string

	// MaxConcurrent bounds in-flight bundles. Zero uses MAX_CONCURRENT_BUNDLES;
	// a negative value disables the bound.
	MaxConcurrent int
	HTTPClient    *http.Client
}

type Client struct {
	log    *logrus.Entry
	url    string
	client *http.Client

	cv            *sync.Cond
	inFlight      int
	maxConcurrent int

	requestID uberatomic.Uint64
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Log == nil {
		return nil, ErrMissingLogOpt
	}
	if opts.URL == "" {
		return nil, ErrMissingURLOpt
	}
	if opts.MaxConcurrent == 0 {
		opts.MaxConcurrent = maxConcurrentBundles
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: bundleRequestTimeout}
	}
	return &Client{
		log:           opts.Log.WithField("rpc", opts.URL),
		url:           opts.URL,
		client:        opts.HTTPClient,
		cv:            sync.NewCond(&sync.Mutex{}),
		maxConcurrent: opts.MaxConcurrent,
	}, nil
}

func (c *Client) acquire() {
	c.cv.L.Lock()
	for c.maxConcurrent > 0 && c.inFlight >= c.maxConcurrent {
		c.cv.Wait()
	}
	c.inFlight++
	c.cv.L.Unlock()
}

func (c *Client) release() {
	c.cv.L.Lock()
	c.inFlight--
	c.cv.Signal()
	c.cv.L.Unlock()
}

// InFlight returns the number of bundles currently being sent.
func (c *Client) InFlight() int {
	c.cv.L.Lock()
	defer c.cv.L.Unlock()
	return c.inFlight
}

// SendBundle submits bundle and returns the hash the builder assigned to it.
// Every transaction must decode before anything is sent.
func (c *Client) SendBundle(ctx context.Context, bundle bundles.Request) (gethcommon.Hash, error) {
	hashes, err := bundles.TransactionHashes(bundle)
	if err != nil {
		return gethcommon.Hash{}, err
	}
	if len(hashes) == 0 {
		return gethcommon.Hash{}, ErrEmptyBundle
	}

	c.acquire()
	defer c.release()

	if err := ctx.Err(); err != nil {
		return gethcommon.Hash{}, fmt.Errorf("%w, %w", ErrRequestClosed, err)
	}

	log := c.log.WithFields(logrus.Fields{
		"numTx":       len(hashes),
		"firstTx":     hashes[0].Hex(),
		"targetBlock": bundle.TargetBlock(),
	})

	req := jsonrpc.NewJSONRPCRequest(c.requestID.Inc(), methodSendBundle, bundle)
	result := new(bundles.EthBundleHash)
	if err := c.call(ctx, req, result); err != nil {
		log.WithError(err).Warn("could not send bundle")
		return gethcommon.Hash{}, err
	}
	log.WithField("bundleHash", result.BundleHash.Hex()).Debug("bundle sent")
	return result.BundleHash, nil
}

func (c *Client) call(ctx context.Context, rpcReq *jsonrpc.JSONRPCRequest, dst any) error {
	body, err := json.Marshal(rpcReq)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set(common.HeaderContentType, common.MediaTypeJSON)

	resp, err := c.client.Do(req)
	if err != nil {
		return &common.TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := common.ReadBody(resp.Body)
	if err != nil {
		return &common.StatusCodeError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &common.StatusCodeError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", respBody)}
	}

	res := new(jsonrpc.JSONRPCResponse)
	if err := json.Unmarshal(respBody, res); err != nil {
		return &common.InvalidJSONError{Err: err, Raw: string(respBody)}
	}
	if res.Error != nil {
		return &RPCError{Code: res.Error.Code, Message: res.Error.Message}
	}
	if err := json.Unmarshal(res.Result, dst); err != nil {
		return &common.InvalidJSONError{Err: err, Raw: string(res.Result)}
	}
	return nil
}
