package handler

import (
	"fmt"
	"net/http"

	chathandler "github.com/reformante/cotizador-whatsapp-go/internal/chat/handler"
	chatport "github.com/reformante/cotizador-whatsapp-go/internal/chat/port"
	chatsvc "github.com/reformante/cotizador-whatsapp-go/internal/chat/service"
	"github.com/reformante/cotizador-whatsapp-go/internal/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/observability"
	"github.com/reformante/cotizador-whatsapp-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Config holds the transport settings the router needs.
type Config struct {
	// VerifyToken answers the webhook subscription handshake.
	VerifyToken string

	// AppSecret enables X-Hub-Signature-256 checks when set.
	AppSecret string

	// MaxConcurrency caps customers processed in parallel per delivery.
	MaxConcurrency int
}

// HealthProbe reports the state of one upstream (breaker state string).
type HealthProbe struct {
	Name  string
	State func() string
}

// NewRouter creates the HTTP router with all routes and middleware.
// adminAuth may be nil: session inspection is then disabled.
func NewRouter(
	chatSvc *chatsvc.ChatService,
	catalog *service.Catalog,
	sender chatport.ReplySender,
	adminAuth *service.AdminAuth,
	probes []HealthProbe,
	cfg Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(catalog, probes))
	r.Get("/readyz", readyzHandler(catalog))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// =============================================
	// 📲 WhatsApp Cloud API webhook
	// =============================================
	r.Get("/webhook", webhookVerifyHandler(cfg.VerifyToken, logger))
	r.Post("/webhook", webhookReceiveHandler(chatSvc, sender, cfg, metrics, logger))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. 💬 Simulador de chat
		// POST /v1/chat/{customerId}
		// =============================================
		r.Post("/chat/{customerId}", chathandler.ChatHandler(chatSvc, logger))

		// =============================================
		// 2. 🧱 Catálogo
		// GET /v1/catalog
		// =============================================
		r.Get("/catalog", catalogHandler(catalog))

		// =============================================
		// 3. 📊 Métricas
		// GET /v1/metrics/bot
		// =============================================
		r.Get("/metrics/bot", botMetricsHandler(chatSvc, metrics))

		// =============================================
		// 4. 🔐 Sesiones (operadores)
		// GET    /v1/sessions/{customerId}
		// DELETE /v1/sessions/{customerId}
		// =============================================
		r.Route("/sessions", func(r chi.Router) {
			if adminAuth == nil {
				r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusServiceUnavailable, "admin routes disabled: ADMIN_JWT_SECRET not set")
				}))
				return
			}
			r.Use(AdminAuthMiddleware(adminAuth, logger))
			r.Get("/{customerId}", getSessionHandler(chatSvc, logger))
			r.Delete("/{customerId}", resetSessionHandler(chatSvc, logger))
		})
	})

	return r
}

// ============================================================
// Catálogo: GET /v1/catalog
// ============================================================

func catalogHandler(catalog *service.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products := catalog.Products()
		items := make([]domain.CatalogItemView, 0, len(products))
		for _, p := range products {
			items = append(items, domain.CatalogItemView{
				Name:         p.Name,
				BasePrice:    p.BasePrice,
				PriceWithTax: p.PriceWithTax(catalog.TaxRate()),
			})
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// ============================================================
// Métricas: GET /v1/metrics/bot
// ============================================================

func botMetricsHandler(chatSvc *chatsvc.ChatService, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetBotSnapshot(chatSvc.ActiveSessions()))
	}
}

// ============================================================
// Sesiones: GET/DELETE /v1/sessions/{customerId}
// ============================================================

func getSessionHandler(chatSvc *chatsvc.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/sessions/{customerId}")
		defer span.End()

		customerID := chi.URLParam(r, "customerId")
		span.SetAttributes(
			attribute.String("customer.id", customerID),
			attribute.String("admin.subject", AdminSubjectFromContext(r.Context())),
		)

		snap, err := chatSvc.Session(customerID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func resetSessionHandler(chatSvc *chatsvc.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := chi.URLParam(r, "customerId")
		if err := chatSvc.ResetSession(customerID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		logger.Info("session reset by operator",
			zap.String("customer_id", customerID),
			zap.String("admin_subject", AdminSubjectFromContext(r.Context())),
		)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Health
// ============================================================

func healthzHandler(catalog *service.Catalog, probes []HealthProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := []domain.ServiceHealth{{Name: "bot", Status: "up"}}

		if catalog != nil {
			services = append(services, domain.ServiceHealth{
				Name:   "catalog",
				Status: "up",
				Detail: fmt.Sprintf("%d products", len(catalog.Products())),
			})
		}

		overall := "healthy"
		for _, p := range probes {
			status := "up"
			switch p.State() {
			case "open":
				status = "open"
				overall = "degraded"
			case "half-open":
				status = "recovering"
			}
			services = append(services, domain.ServiceHealth{Name: p.Name, Status: status})
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler(catalog *service.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "catalog not loaded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
