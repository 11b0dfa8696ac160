package server

import (
	"sync"
	"time"

	"series-canon/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // subscribe commands only
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is one websocket connection. Broadcast states are narrowed to the
// client's subscription before they are written.
type Client struct {
	hub  *APIServer
	conn *websocket.Conn
	send chan *models.MLatestData

	mu      sync.RWMutex
	sources []string
	metric  string
}

// -----------------------------------------------------------------------------

func (c *Client) subscribe(sources []string, metric string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = sources
	c.metric = metric
}

// -----------------------------------------------------------------------------

// view applies the subscription to state. Unsubscribed clients see everything.
func (c *Client) view(state *models.MLatestData) *models.MLatestData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.sources) == 0 && c.metric == "" {
		return state
	}
	return filterState(state, c.sources, c.metric)
}

// -----------------------------------------------------------------------------
// readPump - reads subscribe commands and watches the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.hub.Logger.Debug("Client %s disconnected", c.conn.RemoteAddr())
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Warning("WebSocket error: %v", err)
			}
			return
		}
		c.hub.HandleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends filtered states and keepalive pings
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case state, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(c.view(state)); err != nil {
				c.hub.Logger.Debug("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
