// Package relayapi serves the relay builder and data APIs (/relay/v1/...) and
// the top-bid WebSocket feed.
package relayapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/NYTimes/gziphandler"
	builderApiV1 "github.com/attestantio/go-builder-client/api/v1"
	eth2ApiV1 "github.com/attestantio/go-eth2-client/api/v1"
	"github.com/flashbots/go-boost-utils/utils"
	"github.com/flashbots/go-utils/cli"
	"github.com/flashbots/go-utils/httplogger"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/sirupsen/logrus"

	"github.com/sigp/ethereum-apis/common"
	"github.com/sigp/ethereum-apis/types"
)

var (
	ErrMissingLogOpt      = errors.New("log parameter is nil")
	ErrMissingBackendsOpt = errors.New("no relay backend configured")
)

var (
	// Block builder API
	pathBuilderGetValidators    = "/relay/v1/builder/validators"
	pathSubmitNewBlock          = "/relay/v1/builder/blocks"
	pathSubmitBlockOptimisticV2 = "/relay/v1/builder/blocks_optimistic_v2"
	pathSubmitHeader            = "/relay/v1/builder/headers"
	pathCancelBid               = "/relay/v1/builder/cancel_bid"
	pathTopBids                 = "/relay/v1/builder/top_bids"

	// Data API
	pathDataProposerPayloadDelivered = "/relay/v1/data/bidtraces/proposer_payload_delivered"
	pathDataBuilderBidsReceived      = "/relay/v1/data/bidtraces/builder_blocks_received"
	pathDataValidatorRegistration    = "/relay/v1/data/validator_registration"

	dataMaxDeliveredLimit = uint64(cli.GetEnvInt("DATA_MAX_DELIVERED_LIMIT", 200))
	dataMaxBidsLimit      = uint64(cli.GetEnvInt("DATA_MAX_BIDS_LIMIT", 500))
)

// Builder serves block submissions and proposer duties.
type Builder interface {
	GetValidators(ctx context.Context) ([]types.ValidatorsResponse, error)
	SubmitBlock(ctx context.Context, params types.SubmitBlockQueryParams, req *types.SubmitBlockRequest) error
}

// Data serves the public data API.
type Data interface {
	GetDeliveredPayloads(ctx context.Context, params types.GetDeliveredPayloadsQueryParams) ([]types.BidTraceV2, error)
	GetReceivedBids(ctx context.Context, params types.GetReceivedBidsQueryParams) ([]types.BidTraceV2WithTimestamp, error)
	GetValidatorRegistration(ctx context.Context, params types.GetValidatorRegistrationQueryParams) (*eth2ApiV1.SignedValidatorRegistration, error)
}

// OptimisticV2 accepts headers ahead of their blocks.
type OptimisticV2 interface {
	SubmitHeader(ctx context.Context, params types.SubmitBlockQueryParams, sub *types.SignedHeaderSubmission) error
	SubmitBlockOptimisticV2(ctx context.Context, params types.SubmitBlockQueryParams, req *types.SubmitBlockRequest) error
}

type Cancellations interface {
	SubmitCancellation(ctx context.Context, cancellation *types.SignedCancellation) error
}

// TopBids streams top bid updates until ctx is cancelled or the channel is
// closed.
type TopBids interface {
	SubscribeTopBids(ctx context.Context) (<-chan types.TopBidUpdate, error)
}

// RelayAPIOpts contains the options for a relay. Routes are registered only
// for the backends that are set.
type RelayAPIOpts struct {
	Log        *logrus.Entry
	ListenAddr string

	Builder       Builder
	Data          Data
	OptimisticV2  OptimisticV2
	Cancellations Cancellations
	TopBids       TopBids
}

type RelayAPI struct {
	opts RelayAPIOpts
	log  *logrus.Entry
	srv  *common.Server

	queryDecoder *schema.Decoder
}

func NewRelayAPI(opts RelayAPIOpts) (*RelayAPI, error) {
	if opts.Log == nil {
		return nil, ErrMissingLogOpt
	}
	if opts.Builder == nil && opts.Data == nil && opts.OptimisticV2 == nil && opts.Cancellations == nil && opts.TopBids == nil {
		return nil, ErrMissingBackendsOpt
	}

	queryDecoder := schema.NewDecoder()
	queryDecoder.IgnoreUnknownKeys(true)

	return &RelayAPI{
		opts:         opts,
		log:          opts.Log,
		queryDecoder: queryDecoder,
	}, nil
}

func (api *RelayAPI) getRouter() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/livez", api.handleLivez).Methods(http.MethodGet)
	r.HandleFunc("/readyz", api.handleReadyz).Methods(http.MethodGet)

	if api.opts.Builder != nil {
		api.log.Info("block builder API enabled")
		r.HandleFunc(pathBuilderGetValidators, api.handleBuilderGetValidators).Methods(http.MethodGet)
		r.HandleFunc(pathSubmitNewBlock, api.handleSubmitNewBlock).Methods(http.MethodPost)
	}

	if api.opts.OptimisticV2 != nil {
		api.log.Info("optimistic v2 API enabled")
		r.HandleFunc(pathSubmitBlockOptimisticV2, api.handleSubmitBlockOptimisticV2).Methods(http.MethodPost)
		r.HandleFunc(pathSubmitHeader, api.handleSubmitHeader).Methods(http.MethodPost)
	}

	if api.opts.Cancellations != nil {
		api.log.Info("cancellations enabled")
		r.HandleFunc(pathCancelBid, api.handleCancelBid).Methods(http.MethodPost)
	}

	if api.opts.Data != nil {
		api.log.Info("data API enabled")
		r.HandleFunc(pathDataProposerPayloadDelivered, api.handleDataProposerPayloadDelivered).Methods(http.MethodGet)
		r.HandleFunc(pathDataBuilderBidsReceived, api.handleDataBuilderBidsReceived).Methods(http.MethodGet)
		r.HandleFunc(pathDataValidatorRegistration, api.handleDataValidatorRegistration).Methods(http.MethodGet)
	}

	loggedRouter := httplogger.LoggingMiddlewareLogrus(api.log, r)
	withGz := gziphandler.GzipHandler(loggedRouter)

	if api.opts.TopBids == nil {
		return withGz
	}

	// The WebSocket route needs the raw connection, so it sits in front of
	// the logging and gzip wrappers.
	api.log.Info("top bids feed enabled")
	root := mux.NewRouter()
	root.HandleFunc(pathTopBids, api.handleTopBids).Methods(http.MethodGet)
	root.PathPrefix("/").Handler(withGz)
	return root
}

// Handler returns the routed API without starting a listener, for embedding
// in another server or in tests.
func (api *RelayAPI) Handler() http.Handler {
	return api.getRouter()
}

// StartServer blocks serving the relay API on ListenAddr.
func (api *RelayAPI) StartServer() error {
	if api.srv == nil {
		api.srv = common.NewServer(api.log, api.opts.ListenAddr, api.getRouter())
	}
	return api.srv.Start()
}

func (api *RelayAPI) StopServer(ctx context.Context) error {
	if api.srv == nil {
		return nil
	}
	return api.srv.Stop(ctx)
}

func (api *RelayAPI) handleLivez(w http.ResponseWriter, req *http.Request) {
	common.Respond(w, api.log, common.HTTPMessageResp{Message: "live"}, nil)
}

func (api *RelayAPI) handleReadyz(w http.ResponseWriter, req *http.Request) {
	if api.srv != nil && api.srv.IsReady() {
		common.Respond(w, api.log, common.HTTPMessageResp{Message: "ready"}, nil)
		return
	}
	common.RespondError(w, api.log, http.StatusServiceUnavailable, "not ready")
}

// decodeQuery binds the URL query of req into dst.
func (api *RelayAPI) decodeQuery(req *http.Request, dst any) error {
	if err := api.queryDecoder.Decode(dst, req.URL.Query()); err != nil {
		return common.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
	}
	return nil
}

func requestLog(log *logrus.Entry, method string, req *http.Request) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"method":        method,
		"ua":            req.UserAgent(),
		"contentLength": req.ContentLength,
	})
}

// ---------------
//  BUILDER APIS
// ---------------

func (api *RelayAPI) handleBuilderGetValidators(w http.ResponseWriter, req *http.Request) {
	log := requestLog(api.log, "getValidators", req)
	validators, err := api.opts.Builder.GetValidators(req.Context())
	if err != nil {
		log.WithError(err).Warn("getValidators failed")
	}
	if err == nil && validators == nil {
		validators = []types.ValidatorsResponse{}
	}
	common.Respond(w, log, validators, err)
}

// decodeSubmission binds the query parameters and body shared by the block
// and header submission endpoints.
func (api *RelayAPI) decodeSubmission(w http.ResponseWriter, req *http.Request, log *logrus.Entry, dst any) (types.SubmitBlockQueryParams, bool) {
	var params types.SubmitBlockQueryParams
	if err := api.decodeQuery(req, &params); err != nil {
		common.Respond(w, log, nil, err)
		return params, false
	}
	if err := common.DecodeRequest(req, dst); err != nil {
		log.WithError(err).Warn("could not decode submission")
		common.RespondDecodeError(w, err)
		return params, false
	}
	return params, true
}

func withBidTrace(log *logrus.Entry, version common.ForkName, bidTrace *builderApiV1.BidTrace) *logrus.Entry {
	log = log.WithField("fork", version.String())
	if bidTrace == nil {
		return log
	}
	return log.WithFields(logrus.Fields{
		"slot":          bidTrace.Slot,
		"builderPubkey": bidTrace.BuilderPubkey.String(),
		"blockHash":     bidTrace.BlockHash.String(),
	})
}

func (api *RelayAPI) handleSubmitNewBlock(w http.ResponseWriter, req *http.Request) {
	log := requestLog(api.log, "submitNewBlock", req)
	submission := new(types.SubmitBlockRequest)
	params, ok := api.decodeSubmission(w, req, log, submission)
	if !ok {
		return
	}
	log = withBidTrace(log, submission.Version, submission.BidTrace())

	err := api.opts.Builder.SubmitBlock(req.Context(), params, submission)
	if err != nil {
		log.WithError(err).Warn("block submission failed")
	}
	common.Respond(w, log, nil, err)
}

func (api *RelayAPI) handleSubmitBlockOptimisticV2(w http.ResponseWriter, req *http.Request) {
	log := requestLog(api.log, "submitBlockOptimisticV2", req)
	submission := new(types.SubmitBlockRequest)
	params, ok := api.decodeSubmission(w, req, log, submission)
	if !ok {
		return
	}
	log = withBidTrace(log, submission.Version, submission.BidTrace())

	err := api.opts.OptimisticV2.SubmitBlockOptimisticV2(req.Context(), params, submission)
	if err != nil {
		log.WithError(err).Warn("optimistic block submission failed")
	}
	common.Respond(w, log, nil, err)
}

func (api *RelayAPI) handleSubmitHeader(w http.ResponseWriter, req *http.Request) {
	log := requestLog(api.log, "submitHeader", req)
	submission := new(types.SignedHeaderSubmission)
	params, ok := api.decodeSubmission(w, req, log, submission)
	if !ok {
		return
	}
	log = withBidTrace(log, submission.Version, submission.BidTrace())

	err := api.opts.OptimisticV2.SubmitHeader(req.Context(), params, submission)
	if err != nil {
		log.WithError(err).Warn("header submission failed")
	}
	common.Respond(w, log, nil, err)
}

func (api *RelayAPI) handleCancelBid(w http.ResponseWriter, req *http.Request) {
	log := requestLog(api.log, "cancelBid", req)
	cancellation := new(types.SignedCancellation)
	if err := common.DecodeRequest(req, cancellation); err != nil {
		log.WithError(err).Warn("could not decode cancellation")
		common.RespondDecodeError(w, err)
		return
	}
	if cancellation.Message == nil {
		common.RespondError(w, log, http.StatusBadRequest, "missing cancellation message")
		return
	}
	log = log.WithField("slot", cancellation.Message.Slot)

	err := api.opts.Cancellations.SubmitCancellation(req.Context(), cancellation)
	if err != nil {
		log.WithError(err).Warn("cancellation failed")
	}
	common.Respond(w, log, nil, err)
}

// ---------------
//  DATA APIS
// ---------------

func (api *RelayAPI) handleDataProposerPayloadDelivered(w http.ResponseWriter, req *http.Request) {
	log := requestLog(api.log, "getDeliveredPayloads", req)

	var params types.GetDeliveredPayloadsQueryParams
	if err := api.decodeQuery(req, &params); err != nil {
		common.Respond(w, log, nil, err)
		return
	}
	if params.Slot != 0 && params.Cursor != 0 {
		common.RespondError(w, log, http.StatusBadRequest, "cannot specify both slot and cursor")
		return
	}
	if params.Limit > dataMaxDeliveredLimit {
		common.RespondError(w, log, http.StatusBadRequest, fmt.Sprintf("maximum limit is %d", dataMaxDeliveredLimit))
		return
	}
	if _, err := types.ParseOrderBy(string(params.OrderBy)); err != nil {
		common.RespondError(w, log, http.StatusBadRequest, err.Error())
		return
	}
	if msg, ok := checkHexFilters(params.BlockHash, params.ProposerPubkey, params.BuilderPubkey); !ok {
		common.RespondError(w, log, http.StatusBadRequest, msg)
		return
	}

	payloads, err := api.opts.Data.GetDeliveredPayloads(req.Context(), params)
	if err != nil {
		log.WithError(err).Warn("getDeliveredPayloads failed")
	}
	if err == nil && payloads == nil {
		payloads = []types.BidTraceV2{}
	}
	common.Respond(w, log, payloads, err)
}

func (api *RelayAPI) handleDataBuilderBidsReceived(w http.ResponseWriter, req *http.Request) {
	log := requestLog(api.log, "getReceivedBids", req)

	var params types.GetReceivedBidsQueryParams
	if err := api.decodeQuery(req, &params); err != nil {
		common.Respond(w, log, nil, err)
		return
	}
	if params.Slot == 0 && params.BlockHash == "" && params.BlockNumber == 0 && params.BuilderPubkey == "" {
		common.RespondError(w, log, http.StatusBadRequest, "need to query for specific slot or block_hash or block_number or builder_pubkey")
		return
	}
	if params.Limit > dataMaxBidsLimit {
		common.RespondError(w, log, http.StatusBadRequest, fmt.Sprintf("maximum limit is %d", dataMaxBidsLimit))
		return
	}
	if msg, ok := checkHexFilters(params.BlockHash, "", params.BuilderPubkey); !ok {
		common.RespondError(w, log, http.StatusBadRequest, msg)
		return
	}

	bids, err := api.opts.Data.GetReceivedBids(req.Context(), params)
	if err != nil {
		log.WithError(err).Warn("getReceivedBids failed")
	}
	if err == nil && bids == nil {
		bids = []types.BidTraceV2WithTimestamp{}
	}
	common.Respond(w, log, bids, err)
}

func (api *RelayAPI) handleDataValidatorRegistration(w http.ResponseWriter, req *http.Request) {
	log := requestLog(api.log, "getValidatorRegistration", req)

	var params types.GetValidatorRegistrationQueryParams
	if err := api.decodeQuery(req, &params); err != nil {
		common.Respond(w, log, nil, err)
		return
	}
	if _, err := utils.HexToPubkey(params.Pubkey); err != nil {
		common.RespondError(w, log, http.StatusBadRequest, "invalid pubkey")
		return
	}

	registration, err := api.opts.Data.GetValidatorRegistration(req.Context(), params)
	if err == nil && registration == nil {
		err = common.NewErrorResponse(http.StatusBadRequest, "no registration found for validator "+params.Pubkey)
	}
	if err != nil {
		log.WithError(err).Debug("getValidatorRegistration failed")
	}
	common.Respond(w, log, registration, err)
}

// checkHexFilters validates the optional hex query filters.
func checkHexFilters(blockHash, proposerPubkey, builderPubkey string) (string, bool) {
	if blockHash != "" {
		if _, err := utils.HexToHash(blockHash); err != nil {
			return "invalid block_hash argument", false
		}
	}
	if proposerPubkey != "" {
		if _, err := utils.HexToPubkey(proposerPubkey); err != nil {
			return "invalid proposer_pubkey argument", false
		}
	}
	if builderPubkey != "" {
		if _, err := utils.HexToPubkey(builderPubkey); err != nil {
			return "invalid builder_pubkey argument", false
		}
	}
	return "", true
}
