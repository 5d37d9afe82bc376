package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/logger"
	"github.com/cleberrangel/leads-admin-api/internal/metrics"
	"github.com/cleberrangel/leads-admin-api/internal/middleware"
	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	Send chan []byte

	// Conversation (chat session) this connection belongs to
	ConversationID string

	Hub *Hub

	// Connection metadata
	ClientIP    string
	ConnectedAt time.Time
}

// ServeWS handles websocket requests from the peer.
// Requires the conversation loaded by middleware.SessionAuth.Conversation
func (h *Hub) ServeWS(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{
			Success: false,
			Error:   "conversa não encontrada",
		})
		return
	}

	// A conversation opened by this request must reach the browser with the handshake
	var header http.Header
	if cookies := c.Writer.Header().Values("Set-Cookie"); len(cookies) > 0 {
		header = http.Header{"Set-Cookie": cookies}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, header)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("conversation", shortID(sess.ID)).
			Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		conn:           conn,
		Send:           make(chan []byte, 64),
		ConversationID: sess.ID,
		Hub:            h,
		ClientIP:       c.ClientIP(),
		ConnectedAt:    time.Now(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	ctx := logger.WithSessionID(context.Background(), sess.ID)
	logger.AuditWebSocket(ctx, logger.AuditActionWSConnect, shortID(sess.ID), client.ClientIP, nil)

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the responder
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.conn.Close()

		ctx := logger.WithSessionID(context.Background(), c.ConversationID)
		logger.AuditWebSocket(ctx, logger.AuditActionWSDisconnect, shortID(c.ConversationID), c.ClientIP, map[string]interface{}{
			"duration_s": int(time.Since(c.ConnectedAt).Seconds()),
		})
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
				c.Hub.logger.Warn().
					Err(err).
					Str("conversation", shortID(c.ConversationID)).
					Msg("WebSocket connection closed unexpectedly")
			}
			break
		}

		metrics.Get().IncrementWSMessageIn()
		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// handleMessage processes incoming messages from the client
func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Hub.logger.Debug().
			Err(err).
			Str("conversation", shortID(c.ConversationID)).
			Msg("Failed to unmarshal client message")
		c.Hub.sendTo(c, OutboundMessage{Type: TypeError, Data: ErrorPayload{Error: "mensagem inválida"}})
		return
	}

	switch msg.Type {
	case TypePing:
		c.Hub.sendTo(c, OutboundMessage{Type: TypePong})

	case TypeMessage:
		var payload ChatText
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.Hub.sendTo(c, OutboundMessage{Type: TypeError, Data: ErrorPayload{Error: "mensagem inválida"}})
			return
		}
		c.chat(payload.Text)

	default:
		c.Hub.logger.Debug().
			Str("conversation", shortID(c.ConversationID)).
			Str("message_type", msg.Type).
			Msg("Unknown message type received from client")
	}
}

// chat relays the text and brackets the wait with typing indicators.
// Runs inline so replies keep the order of the questions
func (c *Client) chat(text string) {
	text = middleware.SanitizeChatMessage(text)
	if text == "" {
		return
	}

	hub := c.Hub
	hub.SendToConversation(c.ConversationID, OutboundMessage{Type: TypeTyping, Data: Typing{Typing: true}})

	ctx, cancel := context.WithTimeout(hub.ctx, replyTimeout)
	defer cancel()
	ctx = logger.WithSessionID(ctx, c.ConversationID)

	reply, err := hub.responder.Respond(ctx, c.ConversationID, text)

	hub.SendToConversation(c.ConversationID, OutboundMessage{Type: TypeTyping, Data: Typing{Typing: false}})

	if err != nil {
		hub.sendTo(c, OutboundMessage{Type: TypeError, Data: ErrorPayload{Error: model.CurrentError(err)}})
		return
	}
	hub.SendToConversation(c.ConversationID, OutboundMessage{Type: TypeMessage, Data: reply})
}
