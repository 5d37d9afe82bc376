package model

import "time"

// LoginRequest representa o payload de login do painel admin
type LoginRequest struct {
	Key string `json:"key" binding:"required"`
}

// LeadQuery contém os parâmetros opcionais da listagem de leads
// Campos nil não alteram o estado da sessão
type LeadQuery struct {
	Search *string `form:"search"`
	Sort   *string `form:"sort"` // newest ou oldest, sem diferenciar maiúsculas
	Page   *int    `form:"page"`
}

// LeadRow é um lead pronto para exibição
type LeadRow struct {
	Lead
	Date         string `json:"date"`          // data formatada ou "-"
	Phone        string `json:"phone"`         // apenas dígitos
	PhoneDisplay string `json:"phone_display"` // formato internacional quando válido
	WhatsAppURL  string `json:"whatsapp_url,omitempty"`
}

// LeadsView é a resposta da listagem de leads
type LeadsView struct {
	Items       []LeadRow `json:"items"`
	TotalCount  int       `json:"total_count"`
	TotalPages  int       `json:"total_pages"`
	CurrentPage int       `json:"current_page"`
	PageSize    int       `json:"page_size"`
	Search      string    `json:"search"`
	Sort        string    `json:"sort"`
	Error       string    `json:"error,omitempty"`
}

// Response representa a resposta padrão da API
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// ErrorResponse representa uma resposta de erro
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SessionInfo descreve a sessão ativa para o frontend
type SessionInfo struct {
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
