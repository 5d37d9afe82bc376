package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/logger"
	"github.com/cleberrangel/leads-admin-api/internal/metrics"
	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ChatResponder answers a chat message on behalf of a conversation
type ChatResponder interface {
	Respond(ctx context.Context, conversationID, text string) (*model.ChatMessage, error)
}

// Hub maintains the set of active clients grouped by conversation
type Hub struct {
	// Registered clients by conversation ID (one conversation may be open in several tabs)
	clients map[string]map[*Client]bool

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	mutex sync.RWMutex

	responder ChatResponder
	upgrader  websocket.Upgrader

	// Cancelled on shutdown; in-flight chatbot calls use it
	ctx    context.Context
	cancel context.CancelFunc

	logger *zerolog.Logger
}

// Message represents a generic WebSocket message
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// OutboundMessage is a message sent by the server
type OutboundMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ChatText is the payload of an inbound "message"
type ChatText struct {
	Text string `json:"text"`
}

// Typing is the payload of a "typing" indicator
type Typing struct {
	Typing bool `json:"typing"`
}

// ErrorPayload is the payload of an "error" message
type ErrorPayload struct {
	Error string `json:"error"`
}

// Message types
const (
	TypeConnection = "connection"
	TypeMessage    = "message"
	TypeTyping     = "typing"
	TypeError      = "error"
	TypePing       = "ping"
	TypePong       = "pong"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Time allowed for the chatbot to answer a single message
	replyTimeout = 45 * time.Second
)

// NewHub creates a new WebSocket hub. allowedOrigins follows CORS_ORIGINS ("*" allows any)
func NewHub(responder ChatResponder, allowedOrigins []string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		responder:  responder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     OriginChecker(allowedOrigins),
		},
		ctx:    ctx,
		cancel: cancel,
		logger: logger.Global(),
	}
}

// Run starts the hub's main loop and blocks until ctx is cancelled.
// On return every connection is closed
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	h.cancel()
	close(h.done)

	h.mutex.Lock()
	defer h.mutex.Unlock()

	closed := 0
	for id, clients := range h.clients {
		for client := range clients {
			close(client.Send)
			metrics.Get().DecrementWSConnection()
			closed++
		}
		delete(h.clients, id)
	}

	h.logger.Info().Int("connections", closed).Msg("WebSocket hub stopped")
}

// registerClient registers a new client
func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	if h.clients[client.ConversationID] == nil {
		h.clients[client.ConversationID] = make(map[*Client]bool)
	}
	h.clients[client.ConversationID][client] = true
	count := len(h.clients[client.ConversationID])
	h.mutex.Unlock()

	metrics.Get().IncrementWSConnection()

	h.logger.Info().
		Str("conversation", shortID(client.ConversationID)).
		Int("conversation_connections", count).
		Msg("WebSocket client registered")

	h.sendTo(client, OutboundMessage{
		Type: TypeConnection,
		Data: map[string]string{"status": "connected"},
	})
}

// unregisterClient unregisters a client
func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients, ok := h.clients[client.ConversationID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.Send)
	metrics.Get().DecrementWSConnection()

	if len(clients) == 0 {
		delete(h.clients, client.ConversationID)
	}

	h.logger.Info().
		Str("conversation", shortID(client.ConversationID)).
		Int("remaining_connections", len(clients)).
		Msg("WebSocket client unregistered")
}

// SendToConversation sends a message to every connection of a conversation
func (h *Hub) SendToConversation(conversationID string, message OutboundMessage) {
	data, err := encode(message)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal message for conversation")
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients, exists := h.clients[conversationID]
	if !exists {
		h.logger.Debug().
			Str("conversation", shortID(conversationID)).
			Msg("No WebSocket connections found for conversation")
		return
	}

	for client := range clients {
		h.push(client, data)
	}
}

// sendTo sends a message to a single registered client
func (h *Hub) sendTo(client *Client, message OutboundMessage) {
	data, err := encode(message)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal message for client")
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if !h.clients[client.ConversationID][client] {
		return
	}
	h.push(client, data)
}

// push must be called with the read lock held
func (h *Hub) push(client *Client, data []byte) {
	select {
	case client.Send <- data:
		metrics.Get().IncrementWSMessageOut()
	default:
		h.logger.Warn().
			Str("conversation", shortID(client.ConversationID)).
			Msg("Client send channel is full, dropping message")
	}
}

// ConnectionCount returns the total number of active connections
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}

// ConversationConnectionCount returns the number of connections for a conversation
func (h *Hub) ConversationConnectionCount(conversationID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[conversationID])
}

func encode(message OutboundMessage) ([]byte, error) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	return json.Marshal(message)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
