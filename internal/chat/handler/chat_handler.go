// Package handler: chat_handler.go implementa el simulador del chat:
// POST /v1/chat/{customerId}.
//
// ============================================================
// PARA QUÉ SIRVE
// ============================================================
//
// Es la misma conversación que llega por el webhook de WhatsApp, pero la
// respuesta vuelve en el cuerpo HTTP en lugar de enviarse al cliente.
// Sirve para pruebas manuales y para el panel interno.
//
// Request:
//
//	Content-Type: application/json
//	Body: {"query": "Necesito 5 bultos de cemento argos"}
//	Body: {"attachment": "image"}         // simula el comprobante
//
// Response (200 OK):
//
//	{"id": "...", "answer": "🤲 Cotización actual: ...", "route": "cotizacion", "state": "inicio"}
//
// Un mensaje repetido responde con answer vacío y route "repeat".
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/reformante/cotizador-whatsapp-go/internal/chat/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/chat/service"
	maindomain "github.com/reformante/cotizador-whatsapp-go/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// tracer es el tracer OpenTelemetry para chat/handler.
var tracer = otel.Tracer("chat/handler")

// ChatHandler devuelve el http.HandlerFunc de POST /v1/chat/{customerId}.
//
// El handler es fino: valida el cuerpo y delega todo al ChatService.
func ChatHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat/{customerId}")
		defer span.End()

		customerID := chi.URLParam(r, "customerId")
		if customerID == "" {
			writeError(w, http.StatusBadRequest, "customerId is required")
			return
		}
		span.SetAttributes(attribute.String("customer.id", customerID))

		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, `invalid request body: expected {"query": "your message"}`)
			return
		}

		in := domain.InboundMessage{CustomerID: customerID, Text: req.Query}
		switch domain.AttachmentKind(req.Attachment) {
		case "":
			if req.Query == "" {
				writeError(w, http.StatusBadRequest, "query is required")
				return
			}
		case domain.AttachmentImage, domain.AttachmentAudio:
			// El adjunto manda; el texto se ignora como en WhatsApp.
			in.Text = ""
			in.Attachment = domain.AttachmentKind(req.Attachment)
		default:
			writeError(w, http.StatusBadRequest, `attachment must be "image" or "audio"`)
			return
		}

		reply, err := chatSvc.HandleMessage(ctx, in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.ChatResponse{
			ID:     uuid.New().String(),
			Answer: reply.Text,
			Route:  reply.Route,
			State:  reply.State,
		})
	}
}

// ============================================================
// Helpers
// ============================================================

// writeJSON serializa data como JSON y la escribe en la respuesta.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError escribe un error con el formato estándar.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleServiceError traduce errores de dominio a códigos HTTP.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var external *maindomain.ErrExternalService
	if errors.As(err, &external) {
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(external.Err))
		writeError(w, http.StatusBadGateway, "external service unavailable: "+external.Service)
		return
	}
	logger.Error("unexpected error in chat handler", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}
