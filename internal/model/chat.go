package model

import "time"

// Remetentes possíveis de uma mensagem do chat
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// ChatRequest é o payload aceito pelo endpoint /chat
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ChatReply é a resposta do backend do chatbot
type ChatReply struct {
	Reply string `json:"reply"`
}

// ChatMessage é uma linha da conversa exibida no estilo WhatsApp
type ChatMessage struct {
	ID     string    `json:"id"`
	From   string    `json:"from"`
	Text   string    `json:"text"`
	Time   string    `json:"time"` // HH:MM para exibição
	SentAt time.Time `json:"sent_at"`
}

// NewChatMessage cria uma mensagem com o horário formatado
func NewChatMessage(id, from, text string, at time.Time) ChatMessage {
	return ChatMessage{
		ID:     id,
		From:   from,
		Text:   text,
		Time:   at.Format("15:04"),
		SentAt: at,
	}
}
