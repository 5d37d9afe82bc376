package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config armazena as configurações da aplicação
type Config struct {
	LeadsAPIBaseURL string `validate:"required,url"`
	ChatAPIURL      string `validate:"required,url"`
	WidgetURL       string `validate:"required,url"`
	Port            string `validate:"required,numeric"`
	GinMode         string `validate:"oneof=debug release test"`
	LogLevel        string
	LogJSON         bool

	SessionTTL      time.Duration `validate:"gt=0"`
	CookieSecure    bool
	RedisURL        string `validate:"omitempty,url"`
	AdminKeyHash    string
	MetricsToken    string
	CORSOrigins     []string      `validate:"min=1"`
	PhoneRegion     string        `validate:"len=2"`
	UpstreamTimeout time.Duration `validate:"gt=0"`
	UpstreamRPM     int           `validate:"gt=0"`

	// PostgreSQL (opcional): com DB_HOST definido e sem REDIS_URL, as sessões vão para o banco
	DBHost     string
	DBPort     string `validate:"omitempty,numeric"`
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string `validate:"omitempty,oneof=disable require verify-ca verify-full"`
}

// UsePostgres indica se o store de sessões deve usar o PostgreSQL
func (c *Config) UsePostgres() bool {
	return c.RedisURL == "" && c.DBHost != ""
}

// ErrMissingBaseURL indica que a URL da API de leads não foi configurada
var ErrMissingBaseURL = errors.New("LEADS_API_BASE_URL não configurado")

var validate = validator.New()

// Load carrega as configurações do ambiente
func Load() (*Config, error) {
	// Tenta carregar .env de múltiplos locais
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	return FromEnv(os.Getenv)
}

// FromEnv monta a configuração a partir de uma função de lookup (facilita testes)
func FromEnv(getenv func(string) string) (*Config, error) {
	baseURL := strings.TrimRight(getenv("LEADS_API_BASE_URL"), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}

	cfg := &Config{
		LeadsAPIBaseURL: baseURL,
		ChatAPIURL:      getenv("CHAT_API_URL"),
		WidgetURL:       getenv("WIDGET_URL"),
		Port:            getenv("PORT"),
		GinMode:         getenv("GIN_MODE"),
		LogLevel:        getenv("LOG_LEVEL"),
		LogJSON:         parseBool(getenv("LOG_JSON")),
		CookieSecure:    parseBool(getenv("COOKIE_SECURE")),
		RedisURL:        getenv("REDIS_URL"),
		AdminKeyHash:    getenv("ADMIN_KEY_HASH"),
		MetricsToken:    getenv("METRICS_TOKEN"),
		PhoneRegion:     strings.ToUpper(getenv("PHONE_REGION")),
		DBHost:          getenv("DB_HOST"),
		DBPort:          getenv("DB_PORT"),
		DBUser:          getenv("DB_USER"),
		DBPassword:      getenv("DB_PASSWORD"),
		DBName:          getenv("DB_NAME"),
		DBSSLMode:       getenv("DB_SSLMODE"),
	}

	var err error
	if cfg.SessionTTL, err = parseDuration(getenv("SESSION_TTL"), 24*time.Hour); err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	if cfg.UpstreamTimeout, err = parseDuration(getenv("UPSTREAM_TIMEOUT"), 30*time.Second); err != nil {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT: %w", err)
	}

	cfg.UpstreamRPM = 600
	if v := getenv("UPSTREAM_RPM"); v != "" {
		rpm, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("UPSTREAM_RPM: %w", err)
		}
		cfg.UpstreamRPM = rpm
	}

	// Defaults
	if cfg.ChatAPIURL == "" {
		cfg.ChatAPIURL = cfg.LeadsAPIBaseURL + "/chat"
	}
	if cfg.WidgetURL == "" {
		cfg.WidgetURL = cfg.LeadsAPIBaseURL + "/chat-widget.html"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.GinMode == "" {
		cfg.GinMode = "debug"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = "IN"
	}
	if cfg.DBHost != "" && cfg.DBName == "" {
		cfg.DBName = "leads_admin"
	}
	cfg.CORSOrigins = splitList(getenv("CORS_ORIGINS"))
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuração inválida: %w", err)
	}

	return cfg, nil
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
