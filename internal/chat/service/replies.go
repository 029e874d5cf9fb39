package service

import (
	"fmt"

	maindomain "github.com/reformante/cotizador-whatsapp-go/internal/domain"
)

// Replies agrupa los textos fijos del bot. Se arman una vez al arrancar.
type Replies struct {
	// PaymentDetails son los datos de la cuenta para pagar.
	PaymentDetails string

	// DispatchAck confirma que el pedido cotizado pasa a despacho.
	DispatchAck string

	// AddressRequest se envía al recibir la imagen del comprobante.
	AddressRequest string

	// OrderConfirmed encabeza la confirmación al recibir la dirección.
	OrderConfirmed string

	// AlreadyConfirmed responde cualquier mensaje con el pedido ya cerrado.
	AlreadyConfirmed string

	// AudioUnsupported responde a notas de voz.
	AudioUnsupported string

	// AIUnavailable se usa cuando el modelo no responde a tiempo.
	AIUnavailable string
}

// DefaultReplies arma los textos con la cuenta bancaria configurada.
func DefaultReplies(acct maindomain.BankAccount) Replies {
	payment := fmt.Sprintf(`🏦 Datos para el pago:
Banco: %s
Tipo de cuenta: %s
Número: %s
A nombre de: %s

💬 Cuando realices el pago, por favor envíame el comprobante para confirmar tu pedido.`,
		acct.Bank, acct.Type, acct.Number, acct.Holder)

	return Replies{
		PaymentDetails: payment,
		DispatchAck: "🚚 ¡Perfecto! Dejamos tu pedido listo para despacho.\n" +
			"Para programar la entrega primero necesitamos confirmar el pago:\n\n" + payment,
		AddressRequest:   "🧾 ¡Recibimos tu comprobante! Ahora envíanos la dirección de entrega (barrio, ciudad y un teléfono de contacto).",
		OrderConfirmed:   "✅ ¡Pedido confirmado!",
		AlreadyConfirmed: "✅ Tu pedido ya está confirmado y en proceso de despacho. Si necesitas algo más, escríbenos y un asesor te atenderá.",
		AudioUnsupported: "🎧 Por ahora no puedo escuchar audios. ¿Me escribes lo que necesitas, por favor?",
		AIUnavailable:    "😔 En este momento no puedo responderte. Un asesor de Reformante te escribirá en breve.",
	}
}
