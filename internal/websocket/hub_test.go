package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/middleware"
	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/cleberrangel/leads-admin-api/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type fakeResponder struct {
	mu    sync.Mutex
	reply string
	err   error
	got   []string
}

func (f *fakeResponder) Respond(_ context.Context, conversationID, text string) (*model.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, conversationID+":"+text)
	if f.err != nil {
		return nil, f.err
	}
	msg := model.NewChatMessage("bot-1", model.SenderBot, f.reply, time.Now())
	return &msg, nil
}

func newTestClient(hub *Hub, conversationID string) *Client {
	return &Client{
		Send:           make(chan []byte, 10),
		ConversationID: conversationID,
		Hub:            hub,
		ConnectedAt:    time.Now(),
	}
}

// drainWelcomeMessage drains the welcome message sent during client registration
func drainWelcomeMessage(t *testing.T, client *Client) {
	t.Helper()
	select {
	case data := <-client.Send:
		if !strings.Contains(string(data), `"type":"connection"`) {
			t.Errorf("expected connection message, got %s", data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("no welcome message")
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	hub := NewHub(&fakeResponder{}, []string{"*"})
	a := newTestClient(hub, "conv-a")
	b := newTestClient(hub, "conv-a")
	c := newTestClient(hub, "conv-b")

	hub.registerClient(a)
	hub.registerClient(b)
	hub.registerClient(c)
	drainWelcomeMessage(t, a)

	if hub.ConnectionCount() != 3 || hub.ConversationConnectionCount("conv-a") != 2 {
		t.Fatalf("unexpected counts %d / %d", hub.ConnectionCount(), hub.ConversationConnectionCount("conv-a"))
	}

	hub.unregisterClient(a)
	hub.unregisterClient(a) // segundo unregister é no-op
	if _, ok := <-a.Send; ok {
		// canal deve estar fechado (welcome já drenado)
		t.Error("expected closed send channel")
	}
	if hub.ConversationConnectionCount("conv-a") != 1 {
		t.Errorf("expected 1 connection left, got %d", hub.ConversationConnectionCount("conv-a"))
	}

	hub.unregisterClient(b)
	if hub.ConversationConnectionCount("conv-a") != 0 || hub.ConnectionCount() != 1 {
		t.Error("conversation entry should be removed when empty")
	}
}

func TestSendToConversationOnlyReachesItsClients(t *testing.T) {
	hub := NewHub(&fakeResponder{}, []string{"*"})
	a := newTestClient(hub, "conv-a")
	other := newTestClient(hub, "conv-b")
	hub.registerClient(a)
	hub.registerClient(other)
	drainWelcomeMessage(t, a)
	drainWelcomeMessage(t, other)

	hub.SendToConversation("conv-a", OutboundMessage{Type: TypeTyping, Data: Typing{Typing: true}})

	select {
	case data := <-a.Send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != TypeTyping || msg.Timestamp.IsZero() {
			t.Errorf("unexpected message %s", data)
		}
	default:
		t.Error("expected message for conv-a")
	}

	select {
	case data := <-other.Send:
		t.Errorf("conv-b should not receive %s", data)
	default:
	}
}

func TestFullSendChannelDropsMessage(t *testing.T) {
	hub := NewHub(&fakeResponder{}, []string{"*"})
	client := &Client{Send: make(chan []byte, 1), ConversationID: "c", Hub: hub}
	hub.registerClient(client) // welcome ocupa o buffer

	hub.SendToConversation("c", OutboundMessage{Type: TypePong})
	if hub.ConversationConnectionCount("c") != 1 {
		t.Error("slow client should stay registered")
	}
}

func TestRunStopsAndClosesClients(t *testing.T) {
	hub := NewHub(&fakeResponder{}, []string{"*"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	client := newTestClient(hub, "conv")
	hub.register <- client
	drainWelcomeMessage(t, client)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	if _, ok := <-client.Send; ok {
		t.Error("expected send channel closed on shutdown")
	}
	if hub.ConnectionCount() != 0 {
		t.Error("expected no connections after shutdown")
	}
	if hub.ctx.Err() == nil {
		t.Error("hub context should be cancelled")
	}
}

func TestOriginChecker(t *testing.T) {
	check := OriginChecker([]string{"https://admin.example.com"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://admin.example.com", true},
		{"https://ADMIN.example.com", true},
		{"https://evil.example.com", false},
		{"http://api.local", true}, // mesmo host da requisição
		{"::bad", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "http://api.local/ws/chat", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := check(req); got != tt.want {
			t.Errorf("origin %q: expected %v, got %v", tt.origin, tt.want, got)
		}
	}

	if !OriginChecker([]string{"*"})(httptest.NewRequest(http.MethodGet, "/", nil)) {
		t.Error("wildcard should allow everything")
	}
}

// startServer sobe um servidor real com o hub e o middleware de conversa
func startServer(t *testing.T, responder ChatResponder) (*httptest.Server, *Hub, context.CancelFunc) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { store.Close() })

	hub := NewHub(responder, []string{"*"})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	auth := middleware.NewSessionAuth(store, middleware.CookieConfig{Name: middleware.ChatCookie})
	r := gin.New()
	r.GET("/ws/chat", auth.Conversation(), hub.ServeWS)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub, cancel
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestChatOverWebSocket(t *testing.T) {
	responder := &fakeResponder{reply: "Hi there"}
	srv, _, cancel := startServer(t, responder)
	defer cancel()

	conn := dial(t, srv)
	if msg := readType(t, conn); msg.Type != TypeConnection {
		t.Fatalf("expected connection, got %s", msg.Type)
	}

	if err := conn.WriteJSON(map[string]interface{}{"type": "message", "data": map[string]string{"text": " hello "}}); err != nil {
		t.Fatal(err)
	}

	typing := readType(t, conn)
	if typing.Type != TypeTyping || string(typing.Data) != `{"typing":true}` {
		t.Errorf("expected typing on, got %s %s", typing.Type, typing.Data)
	}
	if off := readType(t, conn); off.Type != TypeTyping || string(off.Data) != `{"typing":false}` {
		t.Errorf("expected typing off, got %s %s", off.Type, off.Data)
	}

	reply := readType(t, conn)
	var bot model.ChatMessage
	if err := json.Unmarshal(reply.Data, &bot); err != nil {
		t.Fatal(err)
	}
	if reply.Type != TypeMessage || bot.Text != "Hi there" || bot.From != model.SenderBot {
		t.Errorf("unexpected reply %s %+v", reply.Type, bot)
	}

	responder.mu.Lock()
	got := responder.got
	responder.mu.Unlock()
	if len(got) != 1 || !strings.HasSuffix(got[0], ":hello") {
		t.Errorf("expected sanitized text relayed, got %v", got)
	}
}

func TestChatOverWebSocketError(t *testing.T) {
	srv, _, cancel := startServer(t, &fakeResponder{err: model.ErrChatFailed})
	defer cancel()

	conn := dial(t, srv)
	readType(t, conn) // connection

	conn.WriteJSON(map[string]interface{}{"type": "message", "data": map[string]string{"text": "hello"}})
	readType(t, conn) // typing on
	readType(t, conn) // typing off

	msg := readType(t, conn)
	if msg.Type != TypeError || !strings.Contains(string(msg.Data), model.MsgServerError) {
		t.Errorf("expected error message, got %s %s", msg.Type, msg.Data)
	}
}

func TestPingPong(t *testing.T) {
	srv, _, cancel := startServer(t, &fakeResponder{})
	defer cancel()

	conn := dial(t, srv)
	readType(t, conn)

	conn.WriteJSON(map[string]string{"type": "ping"})
	if msg := readType(t, conn); msg.Type != TypePong {
		t.Errorf("expected pong, got %s", msg.Type)
	}

	conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	if msg := readType(t, conn); msg.Type != TypeError {
		t.Errorf("expected error for invalid json, got %s", msg.Type)
	}
}

func TestShutdownClosesConnections(t *testing.T) {
	srv, hub, cancel := startServer(t, &fakeResponder{})

	conn := dial(t, srv)
	readType(t, conn)

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatal("expected connection to be closed")
	}
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		t.Logf("connection ended with %v", err)
	}
	if hub.ConnectionCount() != 0 {
		t.Error("expected no registered connections")
	}
}

// Property: mensagens de uma conversa nunca chegam a outra
func TestConversationIsolationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("messages only reach the target conversation", prop.ForAll(
		func(nA, nB int) bool {
			hub := NewHub(&fakeResponder{}, []string{"*"})
			var a, b []*Client
			for i := 0; i < nA; i++ {
				c := newTestClient(hub, "a")
				hub.registerClient(c)
				<-c.Send
				a = append(a, c)
			}
			for i := 0; i < nB; i++ {
				c := newTestClient(hub, "b")
				hub.registerClient(c)
				<-c.Send
				b = append(b, c)
			}

			hub.SendToConversation("a", OutboundMessage{Type: TypePong})

			for _, c := range a {
				if len(c.Send) != 1 {
					return false
				}
			}
			for _, c := range b {
				if len(c.Send) != 0 {
					return false
				}
			}
			return hub.ConnectionCount() == nA+nB
		},
		gen.IntRange(0, 10),
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}
