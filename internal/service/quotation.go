package service

import (
	"fmt"
	"strings"

	"github.com/reformante/cotizador-whatsapp-go/internal/domain"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MoneyFormatter renders whole pesos with thousands grouping ("$35,700").
type MoneyFormatter struct {
	printer *message.Printer
}

// NewMoneyFormatter groups thousands with commas.
func NewMoneyFormatter() *MoneyFormatter {
	return &MoneyFormatter{printer: message.NewPrinter(language.English)}
}

// Format returns the amount prefixed with "$".
func (f *MoneyFormatter) Format(amount int64) string {
	return "$" + f.printer.Sprintf("%d", amount)
}

var defaultMoney = NewMoneyFormatter()

// RenderQuotation builds the summary sent after each quotation update.
// Returns false for an empty quotation.
func RenderQuotation(q *domain.Quotation) (string, bool) {
	if q == nil || q.IsEmpty() {
		return "", false
	}

	lines := make([]string, 0, len(q.Items))
	for _, it := range q.Items {
		lines = append(lines, fmt.Sprintf("• %s – %d x %s = %s",
			it.ProductName, it.Quantity, defaultMoney.Format(it.UnitPrice), defaultMoney.Format(it.LineTotal)))
	}

	return fmt.Sprintf("🤲 Cotización actual:\n%s\n💰 Total con IVA incluido: %s",
		strings.Join(lines, "\n"), defaultMoney.Format(q.Total())), true
}
