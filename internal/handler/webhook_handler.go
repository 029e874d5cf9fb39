package handler

import (
	"context"
	"io"
	"net/http"

	chatdomain "github.com/reformante/cotizador-whatsapp-go/internal/chat/domain"
	chatport "github.com/reformante/cotizador-whatsapp-go/internal/chat/port"
	chatsvc "github.com/reformante/cotizador-whatsapp-go/internal/chat/service"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/observability"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/whatsapp"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxWebhookBody = 1 << 20

type webhookAck struct {
	Status    string `json:"status"`
	Processed int    `json:"processed"`
}

// ============================================================
// GET /webhook: subscription handshake
// ============================================================

func webhookVerifyHandler(verifyToken string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if verifyToken == "" || q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != verifyToken {
			logger.Warn("webhook verification rejected", zap.String("mode", q.Get("hub.mode")))
			w.WriteHeader(http.StatusForbidden)
			return
		}

		logger.Info("webhook verified")
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, q.Get("hub.challenge"))
	}
}

// ============================================================
// POST /webhook: inbound messages
// ============================================================
//
// Malformed payloads are acknowledged with 200 so the platform does not
// redeliver them. Messages of one customer run in order; different customers
// run in parallel. If any turn fails upstream the whole delivery answers 500.

func webhookReceiveHandler(chatSvc *chatsvc.ChatService, sender chatport.ReplySender, cfg Config, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /webhook")
		defer span.End()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			logger.Warn("webhook: unreadable body", zap.Error(err))
			writeJSON(w, http.StatusOK, webhookAck{Status: "ignored"})
			return
		}

		if cfg.AppSecret != "" && !whatsapp.VerifySignature(cfg.AppSecret, body, r.Header.Get(whatsapp.SignatureHeader)) {
			logger.Warn("webhook: bad signature", zap.String("remote_addr", r.RemoteAddr))
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}

		payload, err := whatsapp.ParsePayload(body)
		if err != nil {
			logger.Warn("webhook: malformed payload", zap.Error(err))
			writeJSON(w, http.StatusOK, webhookAck{Status: "ignored"})
			return
		}

		messages := whatsapp.ExtractMessages(payload)
		span.SetAttributes(attribute.Int("webhook.messages", len(messages)))
		if len(messages) == 0 {
			writeJSON(w, http.StatusOK, webhookAck{Status: "ignored"})
			return
		}

		// A dropped connection must not abort a turn halfway.
		ctx = context.WithoutCancel(ctx)
		if err := dispatchMessages(ctx, messages, chatSvc, sender, cfg.MaxConcurrency, metrics, logger); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, webhookAck{Status: "ok", Processed: len(messages)})
	}
}

// dispatchMessages groups by customer, keeping delivery order inside each
// group, and returns the first turn error.
func dispatchMessages(
	ctx context.Context,
	messages []chatdomain.InboundMessage,
	chatSvc *chatsvc.ChatService,
	sender chatport.ReplySender,
	limit int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) error {
	var order []string
	groups := make(map[string][]chatdomain.InboundMessage)
	for _, m := range messages {
		if _, ok := groups[m.CustomerID]; !ok {
			order = append(order, m.CustomerID)
		}
		groups[m.CustomerID] = append(groups[m.CustomerID], m)
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, customerID := range order {
		customerID := customerID
		batch := groups[customerID]
		g.Go(func() error {
			var firstErr error
			for _, m := range batch {
				reply, err := chatSvc.HandleMessage(ctx, m)
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				if reply.Silent() {
					continue
				}

				if err := sender.SendText(ctx, customerID, reply.Text); err != nil {
					metrics.IncrReply("failed")
					logger.Error("whatsapp reply failed",
						zap.String("customer_id", customerID),
						zap.String("route", string(reply.Route)),
						zap.Error(err),
					)
					continue
				}
				metrics.IncrReply("sent")
			}
			return firstErr
		})
	}

	return g.Wait()
}
