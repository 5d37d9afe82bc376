package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/client"
	"github.com/cleberrangel/leads-admin-api/internal/config"
	"github.com/cleberrangel/leads-admin-api/internal/database"
	"github.com/cleberrangel/leads-admin-api/internal/handler"
	"github.com/cleberrangel/leads-admin-api/internal/logger"
	"github.com/cleberrangel/leads-admin-api/internal/metrics"
	"github.com/cleberrangel/leads-admin-api/internal/migration"
	"github.com/cleberrangel/leads-admin-api/internal/repository"
	"github.com/cleberrangel/leads-admin-api/internal/service"
	"github.com/cleberrangel/leads-admin-api/internal/session"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const Version = "1.0.0"

const (
	shutdownTimeout        = 15 * time.Second
	sessionCleanupInterval = 10 * time.Minute
)

func main() {
	// Carrega configurações
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Erro ao carregar configurações: %v", err)
	}

	// Inicializa logger estruturado
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	logger.InitAudit()
	metrics.Init()
	log := logger.Global()
	log.Info().
		Str("version", Version).
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("log_json", cfg.LogJSON).
		Str("leads_api", cfg.LeadsAPIBaseURL).
		Msg("Leads Admin API iniciando")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, sessionRepo, err := openSessionStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Erro ao abrir store de sessões")
	}
	defer store.Close()

	// Inicializa dependências
	opts := client.Options{
		Timeout:           cfg.UpstreamTimeout,
		RequestsPerMinute: cfg.UpstreamRPM,
	}
	leadsClient := client.NewLeadsClient(cfg.LeadsAPIBaseURL, opts)
	chatClient := client.NewChatClient(cfg.ChatAPIURL, opts)

	leadService := service.NewLeadService(store, leadsClient, cfg.AdminKeyHash, cfg.PhoneRegion)
	exportService := service.NewExportService(leadService, leadsClient)
	chatService := service.NewChatService(store, chatClient)

	// Configura modo do Gin
	gin.SetMode(cfg.GinMode)

	router := handler.NewRouter(handler.RouterConfig{
		Version:      Version,
		Store:        store,
		Leads:        leadService,
		Export:       exportService,
		Chat:         chatService,
		WidgetURL:    cfg.WidgetURL,
		CORSOrigins:  cfg.CORSOrigins,
		SessionTTL:   cfg.SessionTTL,
		CookieSecure: cfg.CookieSecure,
		MetricsToken: cfg.MetricsToken,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return router.Hub.Run(gctx)
	})

	if sessionRepo != nil {
		g.Go(func() error {
			return sessionRepo.RunCleanup(gctx, sessionCleanupInterval)
		})
	}

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Servidor iniciando")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Encerrando servidor")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Servidor encerrado com erro")
		os.Exit(1)
	}
	log.Info().Msg("Servidor encerrado")
}

// openSessionStore escolhe o backend: Redis, PostgreSQL ou memória, nessa ordem.
// O repositório só é retornado no PostgreSQL, que precisa de limpeza periódica
func openSessionStore(ctx context.Context, cfg *config.Config) (session.ClosableStore, *repository.SessionRepository, error) {
	log := logger.Get(ctx)

	if !cfg.UsePostgres() {
		if cfg.RedisURL == "" {
			log.Warn().Msg("REDIS_URL e DB_HOST não configurados, sessões ficam em memória")
		}
		store, err := session.Open(cfg.RedisURL, cfg.SessionTTL)
		return store, nil, err
	}

	db, err := database.Connect(ctx, database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := migration.NewMigrator(db).Run(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	repo := repository.NewSessionRepository(db, cfg.SessionTTL)
	return repo, repo, nil
}
