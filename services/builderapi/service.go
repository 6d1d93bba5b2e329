// Package builderapi serves the builder API (/eth/v1/builder/...) consumed by
// beacon nodes and mev-boost, delegating to a Builder backend.
package builderapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/NYTimes/gziphandler"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/flashbots/go-boost-utils/utils"
	"github.com/flashbots/go-utils/httplogger"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/sigp/ethereum-apis/common"
	"github.com/sigp/ethereum-apis/types"
)

var (
	ErrMissingLogOpt     = errors.New("log parameter is nil")
	ErrMissingBuilderOpt = errors.New("builder backend is nil")

	ErrInvalidSlot   = errors.New("invalid slot")
	ErrInvalidHash   = errors.New("invalid hash")
	ErrInvalidPubkey = errors.New("invalid pubkey")
)

var (
	pathStatus            = "/eth/v1/builder/status"
	pathRegisterValidator = "/eth/v1/builder/validators"
	pathGetHeader         = "/eth/v1/builder/header/{slot}/{parent_hash}/{pubkey}"
	pathGetPayload        = "/eth/v1/builder/blinded_blocks"
)

// Builder is the backend of the builder API. GetHeader returns (nil, nil)
// when there is no bid, which is served as 204.
type Builder interface {
	common.ForkSchedule

	RegisterValidators(ctx context.Context, registrations types.SignedValidatorRegistrations) error
	SubmitBlindedBlock(ctx context.Context, block *types.SignedBlindedBeaconBlock) (*types.PayloadContents, error)
	GetHeader(ctx context.Context, slot uint64, parentHash phase0.Hash32, pubkey phase0.BLSPubKey) (*types.SignedBuilderBid, error)
}

type BuilderAPIOpts struct {
	Log        *logrus.Entry
	ListenAddr string
	Builder    Builder
}

type BuilderAPI struct {
	opts    BuilderAPIOpts
	log     *logrus.Entry
	builder Builder
	srv     *common.Server
}

func NewBuilderAPI(opts BuilderAPIOpts) (*BuilderAPI, error) {
	if opts.Log == nil {
		return nil, ErrMissingLogOpt
	}
	if opts.Builder == nil {
		return nil, ErrMissingBuilderOpt
	}
	return &BuilderAPI{
		opts:    opts,
		log:     opts.Log,
		builder: opts.Builder,
	}, nil
}

func (api *BuilderAPI) getRouter() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/livez", api.handleLivez).Methods(http.MethodGet)
	r.HandleFunc("/readyz", api.handleReadyz).Methods(http.MethodGet)

	r.HandleFunc(pathStatus, api.handleStatus).Methods(http.MethodGet)
	r.HandleFunc(pathRegisterValidator, api.handleRegisterValidator).Methods(http.MethodPost)
	r.HandleFunc(pathGetHeader, api.handleGetHeader).Methods(http.MethodGet)
	r.HandleFunc(pathGetPayload, api.handleGetPayload).Methods(http.MethodPost)

	loggedRouter := httplogger.LoggingMiddlewareLogrus(api.log, r)
	withGz := gziphandler.GzipHandler(loggedRouter)
	return withGz
}

// Handler returns the routed API without starting a listener, for embedding
// in another server or in tests.
func (api *BuilderAPI) Handler() http.Handler {
	return api.getRouter()
}

// StartServer blocks serving the builder API on ListenAddr.
func (api *BuilderAPI) StartServer() error {
	if api.srv == nil {
		api.srv = common.NewServer(api.log, api.opts.ListenAddr, api.getRouter())
	}
	return api.srv.Start()
}

func (api *BuilderAPI) StopServer(ctx context.Context) error {
	if api.srv == nil {
		return nil
	}
	return api.srv.Stop(ctx)
}

func (api *BuilderAPI) handleLivez(w http.ResponseWriter, req *http.Request) {
	common.Respond(w, api.log, common.HTTPMessageResp{Message: "live"}, nil)
}

func (api *BuilderAPI) handleReadyz(w http.ResponseWriter, req *http.Request) {
	if api.srv != nil && api.srv.IsReady() {
		common.Respond(w, api.log, common.HTTPMessageResp{Message: "ready"}, nil)
		return
	}
	common.RespondError(w, api.log, http.StatusServiceUnavailable, "not ready")
}

func (api *BuilderAPI) handleStatus(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// negotiate resolves the response content type, logging unresolvable Accept
// headers before falling back to JSON.
func negotiate(log *logrus.Entry, req *http.Request) common.ContentType {
	contentType, err := common.NegotiateContentType(req)
	if err != nil {
		log.WithError(err).Debug("falling back to JSON response")
	}
	return contentType
}

func (api *BuilderAPI) handleRegisterValidator(w http.ResponseWriter, req *http.Request) {
	log := api.log.WithFields(logrus.Fields{
		"method":        "registerValidator",
		"ua":            req.UserAgent(),
		"contentLength": req.ContentLength,
	})

	registrations := new(types.SignedValidatorRegistrations)
	if err := common.DecodeRequest(req, registrations); err != nil {
		log.WithError(err).Warn("could not decode registrations")
		common.RespondDecodeError(w, err)
		return
	}
	log = log.WithField("numRegistrations", len(*registrations))

	err := api.builder.RegisterValidators(req.Context(), *registrations)
	if err != nil {
		log.WithError(err).Warn("registration failed")
	}
	common.Respond(w, log, nil, err)
}

func (api *BuilderAPI) handleGetHeader(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	slotStr := vars["slot"]
	parentHashHex := vars["parent_hash"]
	proposerPubkeyHex := vars["pubkey"]

	log := api.log.WithFields(logrus.Fields{
		"method":     "getHeader",
		"slot":       slotStr,
		"parentHash": parentHashHex,
		"pubkey":     proposerPubkeyHex,
		"ua":         req.UserAgent(),
	})
	contentType := negotiate(log, req)

	badRequest := func(err error) {
		common.RespondNegotiatedError(w, log, common.NewErrorResponse(http.StatusBadRequest, err.Error()), contentType)
	}
	slot, err := strconv.ParseUint(slotStr, 10, 64)
	if err != nil {
		badRequest(ErrInvalidSlot)
		return
	}
	parentHash, err := utils.HexToHash(parentHashHex)
	if err != nil {
		badRequest(ErrInvalidHash)
		return
	}
	pubkey, err := utils.HexToPubkey(proposerPubkeyHex)
	if err != nil {
		badRequest(ErrInvalidPubkey)
		return
	}

	log.Debug("getHeader request received")
	bid, err := api.builder.GetHeader(req.Context(), slot, parentHash, pubkey)
	if err == nil && bid == nil {
		log.Debug("no bid available")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	fork := api.builder.ForkNameAtSlot(slot)
	if err == nil && bid.Version != fork {
		log.WithFields(logrus.Fields{
			"bidFork":  bid.Version,
			"slotFork": fork,
		}).Error("bid fork does not match slot")
		err = common.CustomInternalErr("bid fork does not match slot")
	}
	if err != nil {
		log.WithError(err).Warn("getHeader failed")
	}
	common.RespondVersioned(w, log, bid, err, contentType, fork)
}

func (api *BuilderAPI) handleGetPayload(w http.ResponseWriter, req *http.Request) {
	log := api.log.WithFields(logrus.Fields{
		"method":        "getPayload",
		"ua":            req.UserAgent(),
		"contentLength": req.ContentLength,
	})
	contentType := negotiate(log, req)

	block := new(types.SignedBlindedBeaconBlock)
	if err := common.DecodeRequest(req, block); err != nil {
		log.WithError(err).Warn("could not decode blinded block")
		common.RespondDecodeError(w, err)
		return
	}
	if slot, err := block.Slot(); err == nil {
		log = log.WithField("slot", slot)
	}

	contents, err := api.builder.SubmitBlindedBlock(req.Context(), block)
	if err == nil && contents == nil {
		err = common.CustomInternalErr("no payload returned")
	}
	if err != nil {
		log.WithError(err).Warn("getPayload failed")
		common.RespondNegotiatedError(w, log, err, contentType)
		return
	}
	common.RespondVersioned(w, log, contents, nil, contentType, contents.Version)
}
