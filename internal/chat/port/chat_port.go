// Package port: chat_port.go define las interfaces (ports) que el núcleo
// de conversación necesita del mundo exterior.
//
// Siguiendo la arquitectura hexagonal, el ChatService depende de estas
// interfaces y NO de los clientes concretos (OpenAI, WhatsApp, memoria).
// Así los tests usan fakes y la persistencia se puede agregar después.
package port

import (
	"context"

	"github.com/reformante/cotizador-whatsapp-go/internal/chat/domain"
)

// Completion es la respuesta del modelo de lenguaje.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// CompletionGateway envía la ventana de turnos al modelo y devuelve su texto.
// Se llama como máximo una vez por turno; no reintenta.
type CompletionGateway interface {
	Complete(ctx context.Context, turns []domain.Turn) (*Completion, error)
}

// SessionStore guarda las sesiones por número de cliente.
//
// GetOrCreate es atómico: dos mensajes simultáneos del mismo cliente nuevo
// reciben la misma *Session.
type SessionStore interface {
	GetOrCreate(customerID string) *domain.Session
	Get(customerID string) (*domain.Session, bool)
	Touch(session *domain.Session)
	Delete(customerID string) bool
	Len() int
}

// ReplySender entrega la respuesta al cliente (WhatsApp Cloud API u otro).
// Los fallos de entrega son problema del adaptador: el núcleo no reintenta.
type ReplySender interface {
	SendText(ctx context.Context, to, body string) error
}
