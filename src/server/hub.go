package server

import (
	"encoding/json"
	"net/http"

	"series-canon/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			s.stateMutex.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()
			return

		case client := <-s.register:
			s.stateMutex.Lock()
			s.clients[client] = struct{}{}
			s.stateMutex.Unlock()

			// Send initial state on connect
			s.stateMutex.RLock()
			client.send <- s.latestState
			s.stateMutex.RUnlock()

		case client := <-s.unregister:
			s.stateMutex.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()

		case message := <-s.broadcast:
			s.stateMutex.Lock()
			s.latestState = message

			// Broadcast to all clients
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.stateMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// UpdateAllDatas replaces the cached state without notifying clients
func (s *APIServer) UpdateAllDatas(data interface{}) {
	state, ok := toLatestData(data)
	if !ok {
		s.Logger.Warning("UpdateAllDatas expected models.MLatestData, got %T", data)
		return
	}

	s.stateMutex.Lock()
	s.latestState = state
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------

// Broadcast queues a run result for every connected client
func (s *APIServer) Broadcast(message interface{}) {
	state, ok := toLatestData(message)
	if !ok {
		s.Logger.Warning("Broadcast expected models.MLatestData, got %T", message)
		return
	}

	select {
	case s.broadcast <- state:
	case <-s.done:
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Warning("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MLatestData, 256),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage stores a subscribe command on the client and answers
// with the cached state narrowed to it.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	client.subscribe(cmd.Sources, cmd.Metric)

	// Channels are closed under the write lock, so holding the read lock
	// keeps client.send open while we use it.
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	if _, ok := s.clients[client]; !ok {
		return
	}
	select {
	case client.send <- s.latestState:
	default:
	}
}
