// Package builderclient is a typed client for the builder API.
package builderclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/flashbots/go-utils/cli"
	"github.com/sirupsen/logrus"

	"github.com/sigp/ethereum-apis/common"
	"github.com/sigp/ethereum-apis/types"
)

var (
	ErrMissingLogOpt = errors.New("log parameter is nil")
	ErrInvalidURL    = errors.New("invalid builder url")

	defaultTimeout = time.Duration(cli.GetEnvInt("BUILDER_CLIENT_TIMEOUT_MS", 3_000)) * time.Millisecond
)

type Client struct {
	baseURL *url.URL
	client  *http.Client
	log     *logrus.Entry
}

// NewClient returns a client for the builder at baseURL. A nil httpClient is
// replaced with one using BUILDER_CLIENT_TIMEOUT_MS.
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
		baseURL: u,
		client:  httpClient,
		log:     log.WithField("builder", u.Host),
	}, nil
}

func (c *Client) url(segments ...string) *url.URL {
	return common.JoinURL(c.baseURL, append([]string{"eth", "v1", "builder"}, segments...)...)
}

func (c *Client) GetStatus(ctx context.Context) error {
	req, err := common.NewRequest(ctx, http.MethodGet, c.url("status"), common.RequestOpts{})
	if err != nil {
		return err
	}
	return common.Do(c.client, req, nil)
}

func (c *Client) RegisterValidators(ctx context.Context, registrations types.SignedValidatorRegistrations, contentType common.ContentType) error {
	req, err := common.NewRequest(ctx, http.MethodPost, c.url("validators"), common.RequestOpts{
		Body:        registrations,
		ContentType: contentType,
	})
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{
		"numRegistrations": len(registrations),
		"contentType":      contentType.String(),
	}).Debug("registering validators")
	return common.Do(c.client, req, nil)
}

// GetHeader asks for a bid in the requested format. A builder without a bid
// answers 204, returned as (nil, nil).
func (c *Client) GetHeader(ctx context.Context, slot uint64, parentHash phase0.Hash32, pubkey phase0.BLSPubKey, contentType common.ContentType) (*types.SignedBuilderBid, error) {
	u := c.url("header", strconv.FormatUint(slot, 10), hexutil.Encode(parentHash[:]), hexutil.Encode(pubkey[:]))
	req, err := common.NewRequest(ctx, http.MethodGet, u, common.RequestOpts{Accept: contentType.String()})
	if err != nil {
		return nil, err
	}

	bid := new(types.SignedBuilderBid)
	err = common.Do(c.client, req, bid)
	if errors.Is(err, common.ErrNoContent) {
		c.log.WithField("slot", slot).Debug("no bid")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// SubmitBlindedBlock sends block tagged with its fork and returns the
// unblinded payload.
func (c *Client) SubmitBlindedBlock(ctx context.Context, block *types.SignedBlindedBeaconBlock, contentType common.ContentType) (*types.PayloadContents, error) {
	fork := block.Version
	req, err := common.NewRequest(ctx, http.MethodPost, c.url("blinded_blocks"), common.RequestOpts{
		Body:        block,
		ContentType: contentType,
		Fork:        &fork,
		Accept:      contentType.String(),
	})
	if err != nil {
		return nil, err
	}

	contents := new(types.PayloadContents)
	if err := common.Do(c.client, req, contents); err != nil {
		return nil, err
	}
	return contents, nil
}
