// Package domain: catalog.go define los tipos del catálogo y de la cotización.
//
// Los precios del catálogo vienen SIN IVA. Todo lo que se muestra al cliente
// (opciones, cotización, total) ya va con IVA incluido y redondeado a pesos.
package domain

import "math"

// DefaultTaxRate es el IVA colombiano aplicado a los precios base (19%).
const DefaultTaxRate = 0.19

// MaxQuantity es la cantidad más alta que se cotiza en una línea.
// Mantiene UnitPrice × Quantity lejos del desbordamiento de int64.
const MaxQuantity = 100000

// Product es una entrada del catálogo: nombre y precio base (antes de IVA).
// Se carga una sola vez al arrancar y no cambia durante la vida del proceso.
type Product struct {
	Name      string  `json:"nombre"`
	BasePrice float64 `json:"precio"`
}

// PriceWithTax devuelve el precio unitario con IVA, redondeado al peso.
func (p Product) PriceWithTax(taxRate float64) int64 {
	return int64(math.Round(p.BasePrice * (1 + taxRate)))
}

// LineItem es una línea de la cotización.
//
//	UnitPrice = round(BasePrice × (1 + IVA))
//	LineTotal = UnitPrice × Quantity
type LineItem struct {
	ProductName string `json:"producto"`
	Quantity    int    `json:"cantidad"`
	UnitPrice   int64  `json:"precio_unitario"`
	LineTotal   int64  `json:"total"`
}

// NewLineItem arma una línea a partir de un producto y una cantidad
// (entre 1 y MaxQuantity).
func NewLineItem(p Product, quantity int, taxRate float64) LineItem {
	if quantity < 1 {
		quantity = 1
	}
	if quantity > MaxQuantity {
		quantity = MaxQuantity
	}
	unit := p.PriceWithTax(taxRate)
	return LineItem{
		ProductName: p.Name,
		Quantity:    quantity,
		UnitPrice:   unit,
		LineTotal:   unit * int64(quantity),
	}
}
