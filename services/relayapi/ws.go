package relayapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/flashbots/go-utils/cli"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sigp/ethereum-apis/types"
)

var wsWriteTimeout = time.Duration(cli.GetEnvInt("WS_WRITE_TIMEOUT_MS", 5_000)) * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleTopBids upgrades to a WebSocket and streams TopBidUpdate JSON text
// frames until either side goes away.
func (api *RelayAPI) handleTopBids(w http.ResponseWriter, req *http.Request) {
	log := api.log.WithFields(logrus.Fields{
		"method":     "topBids",
		"remoteAddr": req.RemoteAddr,
		"ua":         req.UserAgent(),
	})

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		// Upgrade has already answered with an HTTP error.
		log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	log.Info("top bids subscriber connected")
	api.serveTopBids(req.Context(), log, conn)
	log.Info("top bids subscriber disconnected")
}

func (api *RelayAPI) serveTopBids(ctx context.Context, log *logrus.Entry, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, err := api.opts.TopBids.SubscribeTopBids(ctx)
	if err != nil {
		log.WithError(err).Error("could not subscribe to top bids")
		closeConn(log, conn, websocket.CloseInternalServerErr)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		sendTopBids(ctx, log, conn, updates)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		receiveUntilClosed(log, conn)
	}()

	// Whichever side finishes first takes the other down. Closing the
	// connection unblocks the reader.
	<-ctx.Done()
	closeConn(log, conn, websocket.CloseNormalClosure)
	wg.Wait()
}

func sendTopBids(ctx context.Context, log *logrus.Entry, conn *websocket.Conn, updates <-chan types.TopBidUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				log.Debug("top bid stream ended")
				return
			}
			msg, err := json.Marshal(update)
			if err != nil {
				log.WithError(err).Error("could not encode top bid")
				continue
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).Debug("could not send top bid")
				return
			}
		}
	}
}

// receiveUntilClosed drains client frames until a close frame or error.
func receiveUntilClosed(log *logrus.Entry, conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("websocket read ended")
			}
			return
		}
	}
}

func closeConn(log *logrus.Entry, conn *websocket.Conn, code int) {
	msg := websocket.FormatCloseMessage(code, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout)); err != nil {
		log.WithError(err).Debug("could not send close frame")
	}
	if err := conn.Close(); err != nil {
		log.WithError(err).Debug("could not close websocket")
	}
}
