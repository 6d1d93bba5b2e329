package relayclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sigp/ethereum-apis/common"
	"github.com/sigp/ethereum-apis/types"
)

// TopBidResult carries either an update or the error that interrupted the
// stream. Malformed frames are reported and the stream continues.
type TopBidResult struct {
	Update *types.TopBidUpdate
	Err    error
}

// SubscribeTopBids opens the top_bids WebSocket. The returned channel is
// closed when ctx is done or the relay ends the stream.
func (c *Client) SubscribeTopBids(ctx context.Context) (<-chan TopBidResult, error) {
	u := common.JoinURL(c.baseURL, "relay", "v1", "builder", "top_bids")
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, &common.StatusCodeError{StatusCode: resp.StatusCode, Err: err}
		}
		return nil, &common.TransportError{Err: err}
	}
	resp.Body.Close()
	c.log.WithField("url", u.String()).Info("subscribed to top bids")

	results := make(chan TopBidResult)
	go c.readTopBids(ctx, conn, results)
	return results, nil
}

func (c *Client) readTopBids(ctx context.Context, conn *websocket.Conn, results chan<- TopBidResult) {
	defer close(results)
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	send := func(result TopBidResult) bool {
		select {
		case results <- result:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			c.log.WithError(err).Warn("top bids stream failed")
			send(TopBidResult{Err: &common.TransportError{Err: fmt.Errorf("top bids: %w", err)}})
			return
		}

		update := new(types.TopBidUpdate)
		if err := json.Unmarshal(msg, update); err != nil {
			if !send(TopBidResult{Err: &common.InvalidJSONError{Err: err, Raw: string(msg)}}) {
				return
			}
			continue
		}
		if !send(TopBidResult{Update: update}) {
			return
		}
	}
}
