package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/reformante/cotizador-whatsapp-go/internal/domain"
)

// DefaultCategories are the broad words that trigger the option list
// instead of a specific quotation.
var DefaultCategories = []string{"cemento"}

// catalogEntry caches the normalized form of a product so matching never
// re-normalizes the catalog per message.
type catalogEntry struct {
	product  domain.Product
	name     string // normalized name
	keywords []string
	quantity *regexp.Regexp // "<n> [unidad] [de] <first keyword>"
}

// Catalog is the immutable, pre-indexed product list.
type Catalog struct {
	entries    []catalogEntry
	categories []string
	taxRate    float64
	money      *MoneyFormatter
}

// NewCatalog indexes the products. An empty catalog or a product whose name
// normalizes to nothing is rejected: the bot must not serve without one.
func NewCatalog(products []domain.Product, taxRate float64, categories []string) (*Catalog, error) {
	if len(products) == 0 {
		return nil, &domain.ErrCatalog{Source: "products", Reason: "catalog is empty"}
	}
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	c := &Catalog{
		entries: make([]catalogEntry, 0, len(products)),
		taxRate: taxRate,
		money:   NewMoneyFormatter(),
	}
	for _, cat := range categories {
		if n := Normalize(cat); n != "" {
			c.categories = append(c.categories, n)
		}
	}

	for i, p := range products {
		name := Normalize(p.Name)
		keywords := strings.Fields(name)
		if len(keywords) == 0 {
			return nil, &domain.ErrCatalog{
				Source: "products",
				Reason: fmt.Sprintf("product #%d has an empty name", i+1),
			}
		}
		if p.BasePrice < 0 {
			return nil, &domain.ErrCatalog{
				Source: "products",
				Reason: fmt.Sprintf("product %q has a negative price", p.Name),
			}
		}
		c.entries = append(c.entries, catalogEntry{
			product:  p,
			name:     name,
			keywords: keywords,
			quantity: regexp.MustCompile(`(\d+)\s+(?:[a-z]+\s+)?(?:de\s+)?` + regexp.QuoteMeta(keywords[0])),
		})
	}
	return c, nil
}

// Products returns the catalog in load order.
func (c *Catalog) Products() []domain.Product {
	out := make([]domain.Product, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.product
	}
	return out
}

// TaxRate is the VAT rate applied to base prices.
func (c *Catalog) TaxRate() float64 {
	return c.taxRate
}

// Match returns one line item per catalog entry whose every keyword occurs
// in the normalized text (substring containment, any order). The quantity
// comes from "<n> [unidad] [de] <first keyword>" when present ("5 bultos de
// cemento argos"), else 1. A quantity above domain.MaxQuantity also reads as 1.
// Returns nil when nothing matched.
//
// Containment is substring based, so an entry whose keywords are a subset of
// another entry's keywords matches together with it.
func (c *Catalog) Match(normalized string) []domain.LineItem {
	if normalized == "" {
		return nil
	}

	var items []domain.LineItem
	seen := make(map[string]struct{})
	for _, e := range c.entries {
		if !containsAll(normalized, e.keywords) {
			continue
		}
		if _, dup := seen[e.product.Name]; dup {
			continue
		}
		seen[e.product.Name] = struct{}{}
		items = append(items, domain.NewLineItem(e.product, e.quantityIn(normalized), c.taxRate))
	}
	return items
}

// Suggest returns the option list for the first generic category word found
// in the normalized text, or false when no category word is present or no
// product belongs to it.
func (c *Catalog) Suggest(normalized string) (string, bool) {
	for _, cat := range c.categories {
		if !strings.Contains(normalized, cat) {
			continue
		}

		var lines []string
		for _, e := range c.entries {
			if strings.Contains(e.name, cat) {
				lines = append(lines, fmt.Sprintf("• %s – %s",
					e.product.Name, c.money.Format(e.product.PriceWithTax(c.taxRate))))
			}
		}
		if len(lines) == 0 {
			continue
		}
		return fmt.Sprintf("Claro que sí. Estas son las opciones de %s que tenemos:\n%s\n¿Cuál deseas cotizar?",
			cat, strings.Join(lines, "\n")), true
	}
	return "", false
}

func (e catalogEntry) quantityIn(normalized string) int {
	m := e.quantity.FindStringSubmatch(normalized)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > domain.MaxQuantity {
		return 1
	}
	return n
}

func containsAll(text string, keywords []string) bool {
	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	return true
}
