// Package port defines the interfaces (ports) the core needs from outside.
// Following hexagonal architecture, these ports decouple the service layer
// from concrete file formats and clients.
package port

import (
	"context"

	"github.com/reformante/cotizador-whatsapp-go/internal/domain"
)

// CatalogSource loads the product list once at startup.
type CatalogSource interface {
	Load(ctx context.Context) ([]domain.Product, error)
}
