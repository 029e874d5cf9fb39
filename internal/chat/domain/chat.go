// Package domain: chat.go define los tipos de la conversación por WhatsApp.
//
// El flujo completo de un mensaje:
//  1. El webhook (o el simulador HTTP) entrega (customerID, texto, adjunto)
//  2. El ChatService corrige ortografía y normaliza el texto
//  3. Las reglas se evalúan en orden fijo; la primera que aplica responde
//  4. La respuesta se guarda como turno "assistant" y se envía por el transporte
//
// Todo el estado vive en memoria del proceso. Un reinicio deja a todos los
// clientes en "inicio" con la cotización vacía (limitación conocida).
package domain

import (
	"sync"
	"time"

	maindomain "github.com/reformante/cotizador-whatsapp-go/internal/domain"
)

// ============================================================
// Estados de la conversación
// ============================================================

// State es el estado del cliente dentro del flujo de pedido.
type State string

const (
	// StateInicio es el estado inicial: cotizando o conversando.
	StateInicio State = "inicio"

	// StateEsperandoComprobante: ya se enviaron los datos de pago.
	StateEsperandoComprobante State = "esperando_comprobante"

	// StateEsperandoDireccion: llegó la imagen del comprobante, falta la dirección.
	StateEsperandoDireccion State = "esperando_direccion"

	// StatePedidoConfirmado: pedido cerrado. No hay transición de salida
	// salvo una nueva intención de pago o despacho.
	StatePedidoConfirmado State = "pedido_confirmado"
)

// ============================================================
// Turnos y mensajes
// ============================================================

// Role identifica quién dijo un turno.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn es un turno de la conversación, en el formato que espera el modelo.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// AttachmentKind es el tipo de adjunto que trae el mensaje entrante.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentAudio AttachmentKind = "audio"
)

// InboundMessage es lo que el transporte entrega al núcleo.
// Text y Attachment pueden venir vacíos; CustomerID es el número del cliente.
type InboundMessage struct {
	CustomerID string
	Text       string
	Attachment AttachmentKind
}

// Route nombra la regla que produjo (o suprimió) la respuesta.
type Route string

const (
	RouteIgnored    Route = "ignored"
	RouteRepeat     Route = "repeat"
	RouteImage      Route = "comprobante"
	RouteAudio      Route = "audio"
	RouteDispatch   Route = "despacho"
	RoutePayment    Route = "pago"
	RouteAddress    Route = "direccion"
	RouteConfirmed  Route = "pedido_confirmado"
	RouteSuggestion Route = "sugerencia"
	RouteQuotation  Route = "cotizacion"
	RouteAI         Route = "ia"
)

// Reply es el resultado de procesar un mensaje. Text vacío significa
// "no responder" (repetición, payload sin texto, etc.).
type Reply struct {
	CustomerID string `json:"customer_id"`
	Text       string `json:"text,omitempty"`
	Route      Route  `json:"route"`
	State      State  `json:"state"`
}

// Silent indica que no hay nada para enviar al cliente.
func (r *Reply) Silent() bool {
	return r == nil || r.Text == ""
}

// ============================================================
// Request/Response del simulador HTTP
// ============================================================

// ChatRequest es el body de POST /v1/chat/{customerId}.
type ChatRequest struct {
	Query      string `json:"query"`
	Attachment string `json:"attachment,omitempty"` // "image" | "audio"
}

// ChatResponse es lo que devuelve el simulador.
type ChatResponse struct {
	ID     string `json:"id"`
	Answer string `json:"answer"`
	Route  Route  `json:"route"`
	State  State  `json:"state"`
}

// ============================================================
// Sesión del cliente
// ============================================================

// Session es todo el estado por cliente. Se crea al primer mensaje.
//
// El mutex serializa los mensajes de un mismo cliente durante TODO el turno,
// incluida la llamada al modelo: dos mensajes intercalados del mismo número
// no pueden desordenar la cotización ni el estado.
type Session struct {
	mu sync.Mutex

	CustomerID      string
	State           State
	Quotation       maindomain.Quotation
	QuotedPhrases   map[string]struct{}
	LastMessage     string
	HasLastMessage  bool
	History         []Turn
	DeliveryAddress string
	UpdatedAt       time.Time
}

// NewSession crea la sesión en estado inicial.
func NewSession(customerID string) *Session {
	return &Session{
		CustomerID:    customerID,
		State:         StateInicio,
		QuotedPhrases: make(map[string]struct{}),
		UpdatedAt:     time.Now(),
	}
}

// Lock toma el turno del cliente.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock libera el turno del cliente.
func (s *Session) Unlock() { s.mu.Unlock() }

// AlreadyQuoted indica si esta frase normalizada ya generó una cotización.
func (s *Session) AlreadyQuoted(phrase string) bool {
	_, ok := s.QuotedPhrases[phrase]
	return ok
}

// MarkQuoted registra la frase como ya cotizada.
func (s *Session) MarkQuoted(phrase string) {
	s.QuotedPhrases[phrase] = struct{}{}
}

// IsRepeat indica si key es igual al último texto respondido. Un texto que
// normaliza a vacío ("👍", "?") también cuenta como repetición.
func (s *Session) IsRepeat(key string) bool {
	return s.HasLastMessage && s.LastMessage == key
}

// RememberMessage guarda key como el último texto respondido.
func (s *Session) RememberMessage(key string) {
	s.LastMessage = key
	s.HasLastMessage = true
}

// ForgetMessage corta la cadena de repeticiones (por ejemplo tras un adjunto).
func (s *Session) ForgetMessage() {
	s.LastMessage = ""
	s.HasLastMessage = false
}

// Append agrega un turno al historial, descartando los más viejos por
// encima de limit (limit <= 0 no recorta).
func (s *Session) Append(role Role, content string, limit int) {
	s.History = append(s.History, Turn{Role: role, Content: content})
	if limit > 0 && len(s.History) > limit {
		s.History = append([]Turn(nil), s.History[len(s.History)-limit:]...)
	}
}

// Window devuelve una copia de los últimos n turnos.
func (s *Session) Window(n int) []Turn {
	start := 0
	if n > 0 && len(s.History) > n {
		start = len(s.History) - n
	}
	out := make([]Turn, len(s.History)-start)
	copy(out, s.History[start:])
	return out
}

// Snapshot es la vista serializable de la sesión (admin).
type Snapshot struct {
	CustomerID      string                `json:"customer_id"`
	State           State                 `json:"state"`
	Quotation       []maindomain.LineItem `json:"quotation"`
	Total           int64                 `json:"total"`
	History         []Turn                `json:"history"`
	DeliveryAddress string                `json:"delivery_address,omitempty"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// Snapshot copia la sesión; el llamador debe tener el lock.
func (s *Session) Snapshot() Snapshot {
	items := make([]maindomain.LineItem, len(s.Quotation.Items))
	copy(items, s.Quotation.Items)
	return Snapshot{
		CustomerID:      s.CustomerID,
		State:           s.State,
		Quotation:       items,
		Total:           s.Quotation.Total(),
		History:         s.Window(0),
		DeliveryAddress: s.DeliveryAddress,
		UpdatedAt:       s.UpdatedAt,
	}
}
