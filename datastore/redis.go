// Package datastore carries top bid updates over Redis pub/sub so that every
// relay instance can feed its WebSocket subscribers.
package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flashbots/go-utils/cli"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sigp/ethereum-apis/types"
)

var (
	ErrMissingLogOpt = errors.New("log parameter is nil")

	DefaultTopBidsChannel = cli.GetEnv("REDIS_TOP_BIDS_CHANNEL", "top-bids")
)

func connectRedis(redisURI string) (*redis.Client, error) {
	// Handle both URIs and full URLs, assume unencrypted connections
	if !strings.Contains(redisURI, "://") {
		redisURI = "redis://" + redisURI
	}

	redisOpts, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		// unable to connect to redis
		client.Close()
		return nil, err
	}
	return client, nil
}

// TopBidStream publishes TopBidUpdates to a Redis channel and fans them out
// to local subscribers.
type TopBidStream struct {
	log     *logrus.Entry
	client  *redis.Client
	channel string
}

func NewTopBidStream(log *logrus.Entry, redisURI, channel string) (*TopBidStream, error) {
	if log == nil {
		return nil, ErrMissingLogOpt
	}
	client, err := connectRedis(redisURI)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if channel == "" {
		channel = DefaultTopBidsChannel
	}
	return &TopBidStream{
		log:     log.WithField("channel", channel),
		client:  client,
		channel: channel,
	}, nil
}

func (s *TopBidStream) PublishTopBid(ctx context.Context, update types.TopBidUpdate) error {
	msg, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel, msg).Err()
}

// SubscribeTopBids returns once the subscription is confirmed. The channel is
// closed when ctx is done. Messages that are not TopBidUpdate JSON are
// dropped.
func (s *TopBidStream) SubscribeTopBids(ctx context.Context) (<-chan types.TopBidUpdate, error) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channel, err)
	}

	updates := make(chan types.TopBidUpdate)
	go func() {
		defer close(updates)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var update types.TopBidUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					s.log.WithError(err).Warn("dropping malformed top bid")
					continue
				}
				select {
				case updates <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return updates, nil
}

func (s *TopBidStream) Close() error {
	return s.client.Close()
}
