package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chatinfra "github.com/reformante/cotizador-whatsapp-go/internal/chat/infra"
	"github.com/reformante/cotizador-whatsapp-go/internal/chat/intent"
	chatport "github.com/reformante/cotizador-whatsapp-go/internal/chat/port"
	chatsvc "github.com/reformante/cotizador-whatsapp-go/internal/chat/service"
	"github.com/reformante/cotizador-whatsapp-go/internal/config"
	"github.com/reformante/cotizador-whatsapp-go/internal/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/handler"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/catalog"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/observability"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/resilience"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/whatsapp"
	"github.com/reformante/cotizador-whatsapp-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("catalog_path", cfg.CatalogPath),
		zap.Float64("tax_rate", cfg.TaxRate),
		zap.String("openai_model", cfg.OpenAIModel),
		zap.Duration("ai_timeout", cfg.AITimeout),
		zap.Int("ai_history_window", cfg.AIHistoryWindow),
		zap.Bool("whatsapp_enabled", cfg.WhatsAppAccessToken != ""),
		zap.Bool("signature_check", cfg.WhatsAppAppSecret != ""),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "cotizador-whatsapp")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Catalog (fatal on failure) ---
	products, err := catalog.NewFileSource(cfg.CatalogPath).Load(context.Background())
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}
	intents, err := intent.Load(cfg.IntentsPath)
	if err != nil {
		logger.Fatal("failed to load intents", zap.Error(err))
	}
	productCatalog, err := service.NewCatalog(products, cfg.TaxRate, intents.Categories())
	if err != nil {
		logger.Fatal("invalid catalog", zap.Error(err))
	}
	logger.Info("catalog loaded", zap.Int("products", len(products)))

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	openaiBreaker := resilience.NewCircuitBreaker("openai", logger)
	whatsappBreaker := resilience.NewCircuitBreaker("whatsapp", logger)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	gateway := chatinfra.NewOpenAIGateway(
		chatinfra.GatewayConfig{
			APIKey:       cfg.OpenAIAPIKey,
			BaseURL:      cfg.OpenAIBaseURL,
			Model:        cfg.OpenAIModel,
			Temperature:  float32(cfg.OpenAITemperature),
			SystemPrompt: cfg.AISystemPrompt,
		},
		&http.Client{Timeout: cfg.AITimeout + time.Second},
		openaiBreaker,
		resilience.NewBulkhead(resilienceCfg.MaxConcurrency),
	)
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set: AI fallback calls will fail")
	}

	probes := []handler.HealthProbe{{Name: "openai", State: gateway.State}}

	var sender chatport.ReplySender
	if cfg.WhatsAppAccessToken != "" {
		wa := whatsapp.NewClient(httpClient, cfg.WhatsAppAPIURL, cfg.WhatsAppPhoneNumberID,
			cfg.WhatsAppAccessToken, whatsappBreaker, resilienceCfg)
		sender = wa
		probes = append(probes, handler.HealthProbe{Name: "whatsapp", State: wa.State})
	} else {
		logger.Warn("WHATSAPP_ACCESS_TOKEN not set: replies will only be logged")
		sender = whatsapp.NewLogSender(logger)
	}

	// --- Sessions ---
	sessions := chatinfra.NewMemorySessionStore(cfg.SessionTTL, metrics, logger)
	defer sessions.Close()
	metrics.RegisterSessionGauge(sessions.Len)

	// --- Services ---
	chatCfg := chatsvc.DefaultConfig()
	chatCfg.HistoryWindow = cfg.AIHistoryWindow
	chatCfg.AITimeout = cfg.AITimeout

	replies := chatsvc.DefaultReplies(domain.BankAccount{
		Bank:   cfg.BankName,
		Type:   cfg.BankAccountType,
		Number: cfg.BankAccountNumber,
		Holder: cfg.BankAccountHolder,
	})

	chatService := chatsvc.NewChatService(productCatalog, intents, sessions, gateway, replies, chatCfg, metrics, logger)

	adminAuth := service.NewAdminAuth(cfg.AdminJWTSecret)
	if adminAuth == nil {
		logger.Warn("ADMIN_JWT_SECRET not set: session inspection disabled")
	}

	// --- Router ---
	router := handler.NewRouter(chatService, productCatalog, sender, adminAuth, probes, handler.Config{
		VerifyToken:    cfg.WhatsAppVerifyToken,
		AppSecret:      cfg.WhatsAppAppSecret,
		MaxConcurrency: cfg.MaxConcurrency,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.AITimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
