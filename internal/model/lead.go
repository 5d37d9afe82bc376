package model

import "time"

// LeadsResponse representa a resposta da API de leads (GET /admin/leads)
type LeadsResponse struct {
	Leads []Lead `json:"leads"`
}

// Lead representa um contato capturado pelo chatbot
// Todos os campos, exceto o ID, são opcionais na API de origem
type Lead struct {
	ID        string `json:"_id"`
	Name      string `json:"name,omitempty"`
	Country   string `json:"country,omitempty"`
	Contact   string `json:"contact,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"` // ISO-8601 ou ausente
}

// CreatedTime interpreta CreatedAt; valores ausentes ou inválidos viram o instante zero (epoch)
func (l Lead) CreatedTime() time.Time {
	return ParseTimestamp(l.CreatedAt)
}

// timestampLayouts cobre os formatos ISO-8601 que a API costuma devolver
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp converte um timestamp ISO-8601 em time.Time
// Valores vazios ou que não fazem parse retornam time.Unix(0, 0)
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Unix(0, 0).UTC()
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Unix(0, 0).UTC()
}

// ErrorBody representa o corpo de erro devolvido pelas APIs externas
type ErrorBody struct {
	Error string `json:"error"`
}
