package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/logger"
	"github.com/cleberrangel/leads-admin-api/internal/model"
	"golang.org/x/time/rate"
)

const (
	// HeaderAdminKey é o header de credencial da API de leads
	HeaderAdminKey = "x-admin-key"

	// DefaultTimeout timeout padrão para requisições
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerMinute limite conservador para a API de leads
	DefaultRequestsPerMinute = 600

	// maxErrorBody limita a leitura de corpos de erro
	maxErrorBody = 64 << 10
)

// Options configura os clientes HTTP
type Options struct {
	Timeout           time.Duration
	RequestsPerMinute int
	HTTPClient        *http.Client
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     30 * time.Second,
		},
	}
}

func (o Options) limiter() *rate.Limiter {
	rpm := o.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 20)
}

// LeadsClient é o cliente HTTP para a API administrativa de leads
// Não faz retry: erros são exibidos ao usuário, que decide recarregar
type LeadsClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewLeadsClient cria um novo cliente para baseURL (sem barra final)
func NewLeadsClient(baseURL string, opts Options) *LeadsClient {
	return &LeadsClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: opts.httpClient(),
		limiter:    opts.limiter(),
	}
}

// ListLeads busca todos os leads (GET /admin/leads)
// Resposta não-2xx vira *model.UpstreamError; falha de rede vira model.ErrServer
func (c *LeadsClient) ListLeads(ctx context.Context, adminKey string) ([]model.Lead, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", errors.Join(model.ErrServer, err))
	}

	resp, err := c.get(ctx, "/admin/leads", adminKey)
	if err != nil {
		return nil, fmt.Errorf("buscar leads: %w", errors.Join(model.ErrServer, err))
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, upstreamError(resp, model.ErrServer)
	}

	var body model.LeadsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", errors.Join(model.ErrServer, err))
	}
	if body.Leads == nil {
		body.Leads = []model.Lead{}
	}

	logger.Get(ctx).Debug().
		Int("leads", len(body.Leads)).
		Msg("Leads recebidos da API")

	return body.Leads, nil
}

// ExportCSV baixa o CSV de leads (GET /admin/leads/export)
// Falha de rede vira model.ErrExportFailed
func (c *LeadsClient) ExportCSV(ctx context.Context, adminKey string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", errors.Join(model.ErrExportFailed, err))
	}

	resp, err := c.get(ctx, "/admin/leads/export", adminKey)
	if err != nil {
		return nil, fmt.Errorf("exportar csv: %w", errors.Join(model.ErrExportFailed, err))
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, upstreamError(resp, model.ErrExportFailed)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ler csv: %w", errors.Join(model.ErrExportFailed, err))
	}
	return data, nil
}

func (c *LeadsClient) get(ctx context.Context, path, adminKey string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("criar request: %w", err)
	}
	req.Header.Set(HeaderAdminKey, adminKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executar request: %w", err)
	}
	return resp, nil
}

// ChatClient relaya mensagens para o backend do chatbot (POST /chat)
type ChatClient struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewChatClient cria um cliente para o endpoint de chat
func NewChatClient(url string, opts Options) *ChatClient {
	return &ChatClient{
		url:        url,
		httpClient: opts.httpClient(),
		limiter:    opts.limiter(),
	}
}

// Send envia a mensagem e devolve a resposta do bot
func (c *ChatClient) Send(ctx context.Context, message string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", errors.Join(model.ErrChatFailed, err))
	}

	payload, err := json.Marshal(model.ChatRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("criar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executar request: %w", errors.Join(model.ErrChatFailed, err))
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(body)), model.ErrChatFailed)
	}

	var reply model.ChatReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("decode response: %w", errors.Join(model.ErrChatFailed, err))
	}
	return reply.Reply, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// upstreamError lê o corpo {error} de uma resposta não-2xx.
// Corpo que não é JSON conta como falha de transporte (fallback)
func upstreamError(resp *http.Response, fallback error) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb model.ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return fmt.Errorf("status %d com corpo inválido: %w", resp.StatusCode, errors.Join(fallback, err))
	}

	return &model.UpstreamError{
		Status:  resp.StatusCode,
		Message: strings.TrimSpace(eb.Error),
	}
}
