package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/flashbots/go-utils/cli"
	"github.com/spf13/cobra"

	"github.com/sigp/ethereum-apis/common"
	"github.com/sigp/ethereum-apis/datastore"
	"github.com/sigp/ethereum-apis/services/relayapi"
)

var (
	topBidsDefaultListenAddr = cli.GetEnv("LISTEN_ADDR", "localhost:9062")
	topBidsDefaultRedisURI   = cli.GetEnv("REDIS_URI", "localhost:6379")

	topBidsListenAddr   string
	topBidsRedisURI     string
	topBidsRedisChannel string
)

func init() {
	rootCmd.AddCommand(topBidsCmd)
	topBidsCmd.Flags().StringVar(&topBidsListenAddr, "listen-addr", topBidsDefaultListenAddr, "listen address for webserver")
	topBidsCmd.Flags().StringVar(&topBidsRedisURI, "redis-uri", topBidsDefaultRedisURI, "redis uri")
	topBidsCmd.Flags().StringVar(&topBidsRedisChannel, "redis-channel", datastore.DefaultTopBidsChannel, "redis pub/sub channel carrying top bids")
}

var topBidsCmd = &cobra.Command{
	Use:   "topbids",
	Short: "Serve the top bids WebSocket feed from Redis",
	Run: func(cmd *cobra.Command, args []string) {
		log := common.LogSetup(logJSON, logLevel)
		log.Infof("ethereum-apis topbids starting")

		stream, err := datastore.NewTopBidStream(log, topBidsRedisURI, topBidsRedisChannel)
		if err != nil {
			log.WithError(err).Fatalf("Failed to connect to Redis at %s", topBidsRedisURI)
		}
		log.Infof("Connected to Redis at %s", topBidsRedisURI)

		srv, err := relayapi.NewRelayAPI(relayapi.RelayAPIOpts{
			Log:        log,
			ListenAddr: topBidsListenAddr,
			TopBids:    stream,
		})
		if err != nil {
			log.WithError(err).Fatal("failed to create service")
		}

		exit := make(chan os.Signal, 1)
		signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)

		log.Infof("Webserver starting on %s ...", topBidsListenAddr)
		go func() {
			if err := srv.StartServer(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Fatal("server error")
			}
		}()

		<-exit
		log.Info("Shutting down...")
		if err := srv.StopServer(context.Background()); err != nil {
			log.WithError(err).Error("server shutdown failed")
		}
		if err := stream.Close(); err != nil {
			log.WithError(err).Error("failed to close redis")
		}
		log.Info("bye")
	},
}
