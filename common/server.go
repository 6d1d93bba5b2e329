package common

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/cli"
	"github.com/sirupsen/logrus"
	uberatomic "go.uber.org/atomic"
)

var ErrServerAlreadyStarted = errors.New("server was already started")

var (
	// api settings
	apiReadTimeoutMs       = cli.GetEnvInt("API_TIMEOUT_READ_MS", 1500)
	apiReadHeaderTimeoutMs = cli.GetEnvInt("API_TIMEOUT_READHEADER_MS", 600)
	apiIdleTimeoutMs       = cli.GetEnvInt("API_TIMEOUT_IDLE_MS", 3_000)
	apiWriteTimeoutMs      = cli.GetEnvInt("API_TIMEOUT_WRITE_MS", 10_000)
	apiMaxHeaderBytes      = cli.GetEnvInt("API_MAX_HEADER_BYTES", 60_000)

	// api shutdown: wait time (to allow removal from load balancer before stopping http server)
	apiShutdownWaitDuration = GetEnvDurationSec("API_SHUTDOWN_WAIT_SEC", 30)
)

// Server runs an API handler with the relay's timeouts and readiness
// semantics.
type Server struct {
	log *logrus.Entry
	srv *http.Server

	// ShutdownWait is slept between flipping readiness and closing
	// listeners.
	ShutdownWait time.Duration

	srvStarted  uberatomic.Bool
	srvShutdown uberatomic.Bool
}

func NewServer(log *logrus.Entry, listenAddr string, handler http.Handler) *Server {
	return &Server{
		log:          log,
		ShutdownWait: apiShutdownWaitDuration,
		srv: &http.Server{
			Addr:    listenAddr,
			Handler: handler,

			ReadTimeout:       time.Duration(apiReadTimeoutMs) * time.Millisecond,
			ReadHeaderTimeout: time.Duration(apiReadHeaderTimeoutMs) * time.Millisecond,
			WriteTimeout:      time.Duration(apiWriteTimeoutMs) * time.Millisecond,
			IdleTimeout:       time.Duration(apiIdleTimeoutMs) * time.Millisecond,
			MaxHeaderBytes:    apiMaxHeaderBytes,
		},
	}
}

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	if s.srvStarted.Swap(true) {
		return ErrServerAlreadyStarted
	}
	s.log.WithField("listenAddr", s.srv.Addr).Info("starting server")
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) IsReady() bool {
	return s.srvStarted.Load() && !s.srvShutdown.Load()
}

// Stop gracefully shuts down the HTTP server:
// - Set ready /readyz to negative status
// - Wait a bit to allow removal of service from load balancer and draining of requests
func (s *Server) Stop(ctx context.Context) error {
	if wasStopping := s.srvShutdown.Swap(true); wasStopping {
		return nil
	}

	s.log.Info("Stopping server...")
	if s.ShutdownWait > 0 {
		s.log.Infof("Waiting %.2f seconds before shutdown...", s.ShutdownWait.Seconds())
		select {
		case <-time.After(s.ShutdownWait):
		case <-ctx.Done():
		}
	}
	return s.srv.Shutdown(ctx)
}

type HTTPMessageResp struct {
	Message string `json:"message"`
}
