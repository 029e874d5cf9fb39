package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/reformante/cotizador-whatsapp-go/internal/chat/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/chat/intent"
	coresvc "github.com/reformante/cotizador-whatsapp-go/internal/service"
)

// ============================================================
// Reglas de control: repetición, despacho, pago
// ============================================================

// repeatRule silencia el mismo texto enviado dos veces seguidas.
// No cambia estado ni historial.
type repeatRule struct{}

func (r *repeatRule) Route() domain.Route { return domain.RouteRepeat }

func (r *repeatRule) Applies(msg *Message) bool {
	return msg.Session.IsRepeat(msg.Key)
}

func (r *repeatRule) Handle(_ context.Context, _ *Message) (string, error) {
	return "", nil
}

// dispatchRule: "envíamelo" solo tiene sentido con algo cotizado.
type dispatchRule struct {
	intents *intent.Table
	reply   string
}

func (r *dispatchRule) Route() domain.Route { return domain.RouteDispatch }

func (r *dispatchRule) Applies(msg *Message) bool {
	return !msg.Session.Quotation.IsEmpty() && r.intents.Matches(intent.Dispatch, msg.Key)
}

func (r *dispatchRule) Handle(_ context.Context, msg *Message) (string, error) {
	msg.Session.State = domain.StateEsperandoComprobante
	return r.reply, nil
}

// paymentRule gana aunque el mensaje nombre productos.
type paymentRule struct {
	intents *intent.Table
	reply   string
}

func (r *paymentRule) Route() domain.Route { return domain.RoutePayment }

func (r *paymentRule) Applies(msg *Message) bool {
	return r.intents.Matches(intent.Payment, msg.Key)
}

func (r *paymentRule) Handle(_ context.Context, msg *Message) (string, error) {
	msg.Session.State = domain.StateEsperandoComprobante
	return r.reply, nil
}

// ============================================================
// Cierre del pedido: dirección y pedido confirmado
// ============================================================

// addressRule toma el texto como dirección de entrega y cierra el pedido.
type addressRule struct {
	header string
}

func (r *addressRule) Route() domain.Route { return domain.RouteAddress }

func (r *addressRule) Applies(msg *Message) bool {
	return msg.Session.State == domain.StateEsperandoDireccion
}

func (r *addressRule) Handle(_ context.Context, msg *Message) (string, error) {
	s := msg.Session
	s.DeliveryAddress = msg.Raw
	s.State = domain.StatePedidoConfirmado

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n📍 Dirección de entrega: %s", r.header, s.DeliveryAddress)
	if summary, ok := coresvc.RenderQuotation(&s.Quotation); ok {
		b.WriteString("\n\n")
		b.WriteString(summary)
	}
	b.WriteString("\n\nGracias por comprar en Reformante 🧱")
	return b.String(), nil
}

// confirmedRule: con el pedido cerrado solo queda el texto fijo.
type confirmedRule struct {
	reply string
}

func (r *confirmedRule) Route() domain.Route { return domain.RouteConfirmed }

func (r *confirmedRule) Applies(msg *Message) bool {
	return msg.Session.State == domain.StatePedidoConfirmado
}

func (r *confirmedRule) Handle(_ context.Context, _ *Message) (string, error) {
	return r.reply, nil
}

// ============================================================
// Catálogo: sugerencia genérica y cotización
// ============================================================

// suggestionRule lista las opciones cuando el cliente dice solo "cemento".
type suggestionRule struct {
	catalog *coresvc.Catalog
}

func (r *suggestionRule) Route() domain.Route { return domain.RouteSuggestion }

func (r *suggestionRule) Applies(msg *Message) bool {
	text, ok := r.catalog.Suggest(msg.Key)
	if ok {
		msg.suggestion = text
	}
	return ok
}

func (r *suggestionRule) Handle(_ context.Context, msg *Message) (string, error) {
	return msg.suggestion, nil
}

// quotationRule acumula los productos encontrados. Una frase ya cotizada
// no vuelve a entrar aquí: cae a la IA.
type quotationRule struct {
	catalog *coresvc.Catalog
}

func (r *quotationRule) Route() domain.Route { return domain.RouteQuotation }

func (r *quotationRule) Applies(msg *Message) bool {
	if msg.Session.AlreadyQuoted(msg.Key) {
		return false
	}
	msg.items = r.catalog.Match(msg.Key)
	return len(msg.items) > 0
}

func (r *quotationRule) Handle(_ context.Context, msg *Message) (string, error) {
	s := msg.Session
	s.Quotation.Accumulate(msg.items)
	s.MarkQuoted(msg.Key)

	summary, _ := coresvc.RenderQuotation(&s.Quotation)
	return summary, nil
}
