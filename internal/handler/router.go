package handler

import (
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/middleware"
	"github.com/cleberrangel/leads-admin-api/internal/service"
	"github.com/cleberrangel/leads-admin-api/internal/session"
	"github.com/cleberrangel/leads-admin-api/internal/websocket"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig reúne as dependências das rotas
type RouterConfig struct {
	Version      string
	Store        session.Store
	Leads        *service.LeadService
	Export       *service.ExportService
	Chat         *service.ChatService
	WidgetURL    string
	CORSOrigins  []string
	SessionTTL   time.Duration
	CookieSecure bool
	MetricsToken string
}

// Router é o engine gin pronto e o hub que precisa rodar junto com o servidor
type Router struct {
	Engine *gin.Engine
	Hub    *websocket.Hub
}

// NewRouter monta middlewares e rotas
func NewRouter(cfg RouterConfig) *Router {
	adminAuth := middleware.NewSessionAuth(cfg.Store, middleware.CookieConfig{
		Name:     middleware.SessionCookie,
		Duration: cfg.SessionTTL,
		Secure:   cfg.CookieSecure,
	})
	chatAuth := middleware.NewSessionAuth(cfg.Store, middleware.CookieConfig{
		Name:     middleware.ChatCookie,
		Duration: cfg.SessionTTL,
		Secure:   cfg.CookieSecure,
	})

	chatHandler := NewChatHandler(cfg.Chat, cfg.Store)
	hub := websocket.NewHub(chatHandler, cfg.CORSOrigins)
	chatHandler.SetNotifier(hub)

	authHandler := NewAuthHandler(cfg.Leads, adminAuth)
	leadsHandler := NewLeadsHandler(cfg.Leads, cfg.Export)
	healthHandler := NewHealthHandler(cfg.Store, hub, cfg.Version)
	wsHandler := NewWebSocketHandler(hub)
	widgetHandler := NewWidgetHandler(cfg.WidgetURL)

	r := gin.New()
	r.Use(middleware.RequestID()) // Request ID + logging estruturado
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	// Health e métricas
	r.GET("/health", healthHandler.LivenessCheck)
	r.GET("/health/ready", healthHandler.ReadinessCheck)
	metricsGroup := r.Group("/metrics")
	metricsGroup.Use(middleware.BearerAuth(middleware.AuthConfig{Token: cfg.MetricsToken}))
	{
		metricsGroup.GET("", healthHandler.GetMetrics)
		metricsGroup.GET("/websocket", wsHandler.GetConnectionStats)
		metricsGroup.GET("/sessions", healthHandler.GetSessionStats)
	}

	// Widget de chat
	r.GET("/widget.js", widgetHandler.Script)
	r.POST("/chat", chatHandler.Relay)

	chat := r.Group("/api/chat")
	chat.Use(chatAuth.Conversation())
	{
		chat.GET("/messages", chatHandler.Transcript)
		chat.POST("/messages", chatHandler.Send)
	}
	r.GET("/ws/chat", chatAuth.Conversation(), wsHandler.HandleConnection)

	// Painel de admin
	r.POST("/api/auth/login", authHandler.Login)

	admin := r.Group("/api")
	admin.Use(adminAuth.RequireAdmin())
	{
		admin.POST("/auth/logout", authHandler.Logout)
		admin.GET("/auth/me", authHandler.Me)
		admin.GET("/leads", leadsHandler.List)
		admin.POST("/leads/refresh", leadsHandler.Refresh)
		admin.GET("/leads/export", leadsHandler.ExportCSV)
		admin.GET("/leads/export.xlsx", leadsHandler.ExportXLSX)
	}

	return &Router{Engine: r, Hub: hub}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "x-admin-key", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Disposition", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			// Credenciais exigem origem explícita; ecoa a origem da requisição
			cfg.AllowOriginFunc = func(string) bool { return true }
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
