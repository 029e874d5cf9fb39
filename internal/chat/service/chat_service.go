// Package service: chat_service.go implementa el ChatService.
//
// ============================================================
// ARQUITECTURA: lista ordenada de reglas
// ============================================================
//
// El ChatService es el orquestrador de cada mensaje que llega por WhatsApp.
// Corrige ortografía, normaliza el texto y evalúa las reglas en un orden
// FIJO; la primera regla que aplica produce la respuesta:
//
//  1. repetición     → mismo texto que el último mensaje: silencio
//  2. despacho       → "envíamelo" con cotización: datos de pago
//  3. pago           → "cómo pago", "ya transferí": datos de pago
//  4. dirección      → esperando dirección: se confirma el pedido
//  5. confirmado     → pedido cerrado: texto fijo
//  6. sugerencia     → palabra genérica ("cemento"): lista de opciones
//  7. cotización     → productos del catálogo: resumen acumulado
//  8. IA             → todo lo demás va al modelo de lenguaje
//
// Los adjuntos (imagen del comprobante, audio) se resuelven antes del texto.
//
// Cada respuesta se guarda como turno "assistant" en el historial.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/reformante/cotizador-whatsapp-go/internal/chat/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/chat/intent"
	"github.com/reformante/cotizador-whatsapp-go/internal/chat/port"
	maindomain "github.com/reformante/cotizador-whatsapp-go/internal/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/observability"
	coresvc "github.com/reformante/cotizador-whatsapp-go/internal/service"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// chatTracer es el tracer OpenTelemetry para el módulo de chat.
var chatTracer = otel.Tracer("chat/service")

// Config controla la ventana de historial y el timeout del modelo.
type Config struct {
	// HistoryWindow es cuántos turnos recientes se mandan al modelo (10).
	HistoryWindow int

	// HistoryLimit acota el historial guardado por cliente.
	HistoryLimit int

	// AITimeout es el tiempo máximo de espera por el modelo.
	AITimeout time.Duration
}

// DefaultConfig devuelve los valores usados en producción.
func DefaultConfig() Config {
	return Config{
		HistoryWindow: 10,
		HistoryLimit:  50,
		AITimeout:     20 * time.Second,
	}
}

// ============================================================
// Rule: contrato de cada regla
// ============================================================

// Rule es un paso de la lista ordenada.
//
// Applies: dice si la regla toma el mensaje
// Handle:  produce el texto de respuesta y aplica la transición de estado
type Rule interface {
	Route() domain.Route
	Applies(msg *Message) bool
	Handle(ctx context.Context, msg *Message) (string, error)
}

// Message es lo que cada regla recibe. Se arma con la sesión ya bloqueada.
type Message struct {
	Session *domain.Session

	// Raw es el texto tal como llegó.
	Raw string

	// Key es el texto corregido y normalizado: la base de toda comparación.
	Key string

	// items y suggestion se calculan una sola vez por mensaje.
	items      []maindomain.LineItem
	suggestion string
}

// ============================================================
// ChatService
// ============================================================

// ChatService procesa los mensajes entrantes y decide la respuesta.
type ChatService struct {
	store   port.SessionStore
	rules   []Rule
	replies Replies
	cfg     Config
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewChatService arma el servicio con la lista de reglas en el orden fijo.
func NewChatService(
	catalog *coresvc.Catalog,
	intents *intent.Table,
	store port.SessionStore,
	gateway port.CompletionGateway,
	replies Replies,
	cfg Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ChatService {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultConfig().HistoryWindow
	}
	if cfg.HistoryLimit < cfg.HistoryWindow {
		cfg.HistoryLimit = cfg.HistoryWindow
	}

	return &ChatService{
		store:   store,
		replies: replies,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		rules: []Rule{
			&repeatRule{},
			&dispatchRule{intents: intents, reply: replies.DispatchAck},
			&paymentRule{intents: intents, reply: replies.PaymentDetails},
			&addressRule{header: replies.OrderConfirmed},
			&confirmedRule{reply: replies.AlreadyConfirmed},
			&suggestionRule{catalog: catalog},
			&quotationRule{catalog: catalog},
			&aiRule{gateway: gateway, cfg: cfg, unavailable: replies.AIUnavailable, metrics: metrics, logger: logger},
		},
	}
}

// HandleMessage procesa un mensaje entrante y devuelve la respuesta.
//
// Un Reply silencioso (Text vacío) significa que no hay nada que enviar.
// Un error solo ocurre cuando el modelo de lenguaje falla; en ese caso el
// turno no tiene respuesta y el transporte debe reportar error.
func (s *ChatService) HandleMessage(ctx context.Context, in domain.InboundMessage) (*domain.Reply, error) {
	ctx, span := chatTracer.Start(ctx, "ChatService.HandleMessage")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("chat", time.Since(start))
	}()

	customerID := strings.TrimSpace(in.CustomerID)
	text := strings.TrimSpace(in.Text)
	if customerID == "" || (text == "" && in.Attachment == "") {
		s.metrics.IncrRoute(string(domain.RouteIgnored))
		return &domain.Reply{CustomerID: customerID, Route: domain.RouteIgnored}, nil
	}
	span.SetAttributes(attribute.String("customer.id", customerID))

	session := s.store.GetOrCreate(customerID)
	session.Lock()
	defer func() {
		session.UpdatedAt = time.Now()
		session.Unlock()
		s.store.Touch(session)
	}()

	var (
		reply *domain.Reply
		err   error
	)
	if in.Attachment != "" {
		reply = s.handleAttachment(session, in.Attachment)
	} else {
		reply, err = s.handleText(ctx, session, text)
	}
	if err != nil {
		s.metrics.IncrRoute("error")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("chat.route", string(reply.Route)),
		attribute.String("chat.state", string(reply.State)),
	)
	s.metrics.IncrRoute(string(reply.Route))
	s.logger.Info("chat message handled",
		zap.String("customer_id", customerID),
		zap.String("route", string(reply.Route)),
		zap.String("state", string(reply.State)),
		zap.Int("reply_length", len(reply.Text)),
	)
	return reply, nil
}

// handleAttachment resuelve imagen y audio. La imagen solo significa algo
// mientras se espera el comprobante; en cualquier otro estado se ignora.
func (s *ChatService) handleAttachment(session *domain.Session, kind domain.AttachmentKind) *domain.Reply {
	reply := &domain.Reply{CustomerID: session.CustomerID, Route: domain.RouteIgnored}

	switch kind {
	case domain.AttachmentImage:
		if session.State == domain.StateEsperandoComprobante {
			session.State = domain.StateEsperandoDireccion
			reply.Route = domain.RouteImage
			reply.Text = s.replies.AddressRequest
		}
	case domain.AttachmentAudio:
		reply.Route = domain.RouteAudio
		reply.Text = s.replies.AudioUnsupported
	}

	if reply.Text != "" {
		session.ForgetMessage()
		session.Append(domain.RoleAssistant, reply.Text, s.cfg.HistoryLimit)
	}
	reply.State = session.State
	return reply
}

// handleText evalúa las reglas en orden; la primera que aplica gana.
func (s *ChatService) handleText(ctx context.Context, session *domain.Session, text string) (*domain.Reply, error) {
	msg := &Message{
		Session: session,
		Raw:     text,
		Key:     coresvc.NormalizeMessage(text),
	}

	for _, rule := range s.rules {
		if !rule.Applies(msg) {
			continue
		}

		s.logger.Debug("chat rule matched",
			zap.String("customer_id", session.CustomerID),
			zap.String("route", string(rule.Route())),
		)

		answer, err := rule.Handle(ctx, msg)
		if err != nil {
			return nil, err
		}

		reply := &domain.Reply{CustomerID: session.CustomerID, Route: rule.Route(), Text: answer}
		if answer != "" {
			session.RememberMessage(msg.Key)
			session.Append(domain.RoleAssistant, answer, s.cfg.HistoryLimit)
		}
		reply.State = session.State
		return reply, nil
	}

	// La regla de IA siempre aplica; llegar aquí es un error de armado.
	return nil, errors.New("chat: no rule handled the message")
}

// Session devuelve una copia del estado del cliente (admin).
func (s *ChatService) Session(customerID string) (*domain.Snapshot, error) {
	session, ok := s.store.Get(customerID)
	if !ok {
		return nil, &maindomain.ErrNotFound{Resource: "session", ID: customerID}
	}
	session.Lock()
	defer session.Unlock()

	snap := session.Snapshot()
	return &snap, nil
}

// ResetSession descarta el estado del cliente (admin). Espera a que termine
// el turno en curso antes de borrar.
func (s *ChatService) ResetSession(customerID string) error {
	session, ok := s.store.Get(customerID)
	if !ok {
		return &maindomain.ErrNotFound{Resource: "session", ID: customerID}
	}
	session.Lock()
	defer session.Unlock()

	if !s.store.Delete(customerID) {
		return &maindomain.ErrNotFound{Resource: "session", ID: customerID}
	}
	s.logger.Info("chat session reset", zap.String("customer_id", customerID))
	return nil
}

// ActiveSessions es el número de sesiones en memoria.
func (s *ChatService) ActiveSessions() int {
	return s.store.Len()
}
