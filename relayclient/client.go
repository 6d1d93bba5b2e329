// Package relayclient is a typed client for the relay builder and data APIs.
package relayclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	eth2ApiV1 "github.com/attestantio/go-eth2-client/api/v1"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/flashbots/go-utils/cli"
	"github.com/gorilla/schema"
	"github.com/sirupsen/logrus"

	"github.com/sigp/ethereum-apis/common"
	"github.com/sigp/ethereum-apis/types"
)

var (
	ErrMissingLogOpt = errors.New("log parameter is nil")
	ErrInvalidURL    = errors.New("invalid relay url")

	defaultTimeout = time.Duration(cli.GetEnvInt("RELAY_CLIENT_TIMEOUT_MS", 10_000)) * time.Millisecond
)

// SubmitOpts selects the wire format of a submission.
type SubmitOpts struct {
	ContentType     common.ContentType
	ContentEncoding common.ContentEncoding
}

type Client struct {
	baseURL      *url.URL
	client       *http.Client
	log          *logrus.Entry
	queryEncoder *schema.Encoder
}

// NewClient returns a client for the relay at baseURL. A nil httpClient is
// replaced with one using RELAY_CLIENT_TIMEOUT_MS.
func NewClient(log *logrus.Entry, baseURL string, httpClient *http.Client) (*Client, error) {
	if log == nil {
		return nil, ErrMissingLogOpt
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:      u,
		client:       httpClient,
		log:          log.WithField("relay", u.Host),
		queryEncoder: schema.NewEncoder(),
	}, nil
}

// url joins segments under /relay/v1 and encodes query, which may be nil.
func (c *Client) url(query any, segments ...string) (*url.URL, error) {
	u := common.JoinURL(c.baseURL, append([]string{"relay", "v1"}, segments...)...)
	if query == nil {
		return u, nil
	}
	values := url.Values{}
	if err := c.queryEncoder.Encode(query, values); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	u.RawQuery = values.Encode()
	return u, nil
}

func (c *Client) get(ctx context.Context, query any, dst any, segments ...string) error {
	u, err := c.url(query, segments...)
	if err != nil {
		return err
	}
	req, err := common.NewRequest(ctx, http.MethodGet, u, common.RequestOpts{Accept: common.MediaTypeJSON})
	if err != nil {
		return err
	}
	return common.Do(c.client, req, dst)
}

func (c *Client) submit(ctx context.Context, query any, body any, fork *common.ForkName, opts SubmitOpts, segments ...string) error {
	u, err := c.url(query, segments...)
	if err != nil {
		return err
	}
	req, err := common.NewRequest(ctx, http.MethodPost, u, common.RequestOpts{
		Body:            body,
		ContentType:     opts.ContentType,
		ContentEncoding: opts.ContentEncoding,
		Fork:            fork,
	})
	if err != nil {
		return err
	}
	return common.Do(c.client, req, nil)
}

func (c *Client) submissionLog(method string, fork common.ForkName, opts SubmitOpts) *logrus.Entry {
	return c.log.WithFields(logrus.Fields{
		"method":          method,
		"fork":            fork.String(),
		"contentType":     opts.ContentType.String(),
		"contentEncoding": opts.ContentEncoding.String(),
	})
}

// SubmitBlock posts a full block submission tagged with its fork.
func (c *Client) SubmitBlock(ctx context.Context, params types.SubmitBlockQueryParams, block *types.SubmitBlockRequest, opts SubmitOpts) error {
	fork := block.Version
	c.submissionLog("submitBlock", fork, opts).Debug("submitting block")
	return c.submit(ctx, params, block, &fork, opts, "builder", "blocks")
}

func (c *Client) SubmitBlockOptimisticV2(ctx context.Context, params types.SubmitBlockQueryParams, block *types.SubmitBlockRequest, opts SubmitOpts) error {
	fork := block.Version
	c.submissionLog("submitBlockOptimisticV2", fork, opts).Debug("submitting block")
	return c.submit(ctx, params, block, &fork, opts, "builder", "blocks_optimistic_v2")
}

func (c *Client) SubmitHeader(ctx context.Context, params types.SubmitBlockQueryParams, header *types.SignedHeaderSubmission, opts SubmitOpts) error {
	fork := header.Version
	c.submissionLog("submitHeader", fork, opts).Debug("submitting header")
	return c.submit(ctx, params, header, &fork, opts, "builder", "headers")
}

func (c *Client) SubmitCancellation(ctx context.Context, cancellation *types.SignedCancellation, contentType common.ContentType) error {
	return c.submit(ctx, nil, cancellation, nil, SubmitOpts{ContentType: contentType}, "builder", "cancel_bid")
}

func (c *Client) GetValidators(ctx context.Context) ([]types.ValidatorsResponse, error) {
	var validators []types.ValidatorsResponse
	if err := c.get(ctx, nil, &validators, "builder", "validators"); err != nil {
		return nil, err
	}
	return validators, nil
}

func (c *Client) GetDeliveredPayloads(ctx context.Context, params types.GetDeliveredPayloadsQueryParams) ([]types.BidTraceV2, error) {
	var payloads []types.BidTraceV2
	if err := c.get(ctx, params, &payloads, "data", "bidtraces", "proposer_payload_delivered"); err != nil {
		return nil, err
	}
	return payloads, nil
}

func (c *Client) GetReceivedBids(ctx context.Context, params types.GetReceivedBidsQueryParams) ([]types.BidTraceV2WithTimestamp, error) {
	var bids []types.BidTraceV2WithTimestamp
	if err := c.get(ctx, params, &bids, "data", "bidtraces", "builder_blocks_received"); err != nil {
		return nil, err
	}
	return bids, nil
}

func (c *Client) GetValidatorRegistration(ctx context.Context, pubkey phase0.BLSPubKey) (*eth2ApiV1.SignedValidatorRegistration, error) {
	params := types.GetValidatorRegistrationQueryParams{Pubkey: hexutil.Encode(pubkey[:])}
	registration := new(eth2ApiV1.SignedValidatorRegistration)
	if err := c.get(ctx, params, registration, "data", "validator_registration"); err != nil {
		return nil, err
	}
	return registration, nil
}
