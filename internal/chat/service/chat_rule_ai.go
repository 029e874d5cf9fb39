package service

import (
	"context"
	"errors"

	"github.com/reformante/cotizador-whatsapp-go/internal/chat/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/chat/port"
	maindomain "github.com/reformante/cotizador-whatsapp-go/internal/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/observability"

	"go.uber.org/zap"
)

// ============================================================
// aiRule: fallback al modelo de lenguaje
// ============================================================
//
// Siempre aplica. Agrega el turno del cliente al historial y manda solo
// los últimos N turnos al modelo.
//
// Timeout o circuito abierto → texto fijo de "no disponible".
// Cualquier otro error sube al transporte y el turno queda sin respuesta.
type aiRule struct {
	gateway     port.CompletionGateway
	cfg         Config
	unavailable string
	metrics     *observability.Metrics
	logger      *zap.Logger
}

func (r *aiRule) Route() domain.Route { return domain.RouteAI }

func (r *aiRule) Applies(_ *Message) bool { return true }

func (r *aiRule) Handle(ctx context.Context, msg *Message) (string, error) {
	s := msg.Session
	s.Append(domain.RoleUser, msg.Raw, r.cfg.HistoryLimit)
	window := s.Window(r.cfg.HistoryWindow)

	if r.cfg.AITimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.AITimeout)
		defer cancel()
	}

	completion, err := r.gateway.Complete(ctx, window)
	if err != nil {
		r.metrics.IncrExternalError("openai")

		var timeoutErr *maindomain.ErrTimeout
		var circuitErr *maindomain.ErrCircuitOpen
		if errors.As(err, &timeoutErr) || errors.As(err, &circuitErr) || errors.Is(err, context.DeadlineExceeded) {
			r.logger.Warn("language model unavailable, sending fallback",
				zap.String("customer_id", s.CustomerID),
				zap.Error(err),
			)
			return r.unavailable, nil
		}

		r.logger.Error("language model call failed",
			zap.String("customer_id", s.CustomerID),
			zap.Error(err),
		)
		var extErr *maindomain.ErrExternalService
		if errors.As(err, &extErr) {
			return "", err
		}
		return "", &maindomain.ErrExternalService{Service: "openai", Err: err}
	}

	r.metrics.RecordTokens(completion.PromptTokens, completion.CompletionTokens)
	return completion.Text, nil
}
