package service_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/reformante/cotizador-whatsapp-go/internal/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/service"
)

func testCatalog(t *testing.T, products ...domain.Product) *service.Catalog {
	t.Helper()
	if len(products) == 0 {
		products = []domain.Product{
			{Name: "Cemento Argos", BasePrice: 30000},
			{Name: "Cemento Holcim", BasePrice: 28000},
			{Name: "Bloque Nº 5", BasePrice: 1500},
			{Name: "Varilla corrugada 1/2", BasePrice: 21000},
		}
	}
	c, err := service.NewCatalog(products, domain.DefaultTaxRate, nil)
	if err != nil {
		t.Fatalf("expected catalog, got %v", err)
	}
	return c
}

func TestNewCatalog_RejectsEmpty(t *testing.T) {
	_, err := service.NewCatalog(nil, domain.DefaultTaxRate, nil)
	var catErr *domain.ErrCatalog
	if !errors.As(err, &catErr) {
		t.Fatalf("expected ErrCatalog, got %v", err)
	}
}

func TestNewCatalog_RejectsBlankName(t *testing.T) {
	_, err := service.NewCatalog([]domain.Product{{Name: " ¡! ", BasePrice: 10}}, domain.DefaultTaxRate, nil)
	if err == nil {
		t.Fatal("expected error for a product name without keywords")
	}
}

func TestMatch_DefaultQuantity(t *testing.T) {
	c := testCatalog(t, domain.Product{Name: "cemento argos", BasePrice: 30000})

	items := c.Match(service.NormalizeMessage("necesito cemento argos"))
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	want := domain.LineItem{ProductName: "cemento argos", Quantity: 1, UnitPrice: 35700, LineTotal: 35700}
	if items[0] != want {
		t.Errorf("expected %+v, got %+v", want, items[0])
	}
}

func TestMatch_ExplicitQuantity(t *testing.T) {
	c := testCatalog(t, domain.Product{Name: "cemento argos", BasePrice: 30000})

	items := c.Match(service.NormalizeMessage("necesito 5 bultos de cemento argos"))
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", items[0].Quantity)
	}
	if items[0].LineTotal != 178500 {
		t.Errorf("expected line total 178500, got %d", items[0].LineTotal)
	}
}

func TestMatch_QuantityForms(t *testing.T) {
	c := testCatalog(t, domain.Product{Name: "cemento argos", BasePrice: 30000})

	cases := map[string]int{
		"3 cemento argos":             3,
		"12 de cemento argos":         12,
		"dame 7 bolsas cemento argos": 7,
		"cemento argos para 4 pisos":  1,
	}
	for msg, want := range cases {
		items := c.Match(service.NormalizeMessage(msg))
		if len(items) != 1 {
			t.Fatalf("%q: expected 1 item, got %d", msg, len(items))
		}
		if items[0].Quantity != want {
			t.Errorf("%q: expected quantity %d, got %d", msg, want, items[0].Quantity)
		}
	}
}

func TestMatch_HugeQuantityFallsBackToOne(t *testing.T) {
	c := testCatalog(t, domain.Product{Name: "cemento argos", BasePrice: 30000})

	for _, msg := range []string{
		"necesito 900000000000000000 bultos de cemento argos",
		"necesito 100001 bultos de cemento argos",
	} {
		items := c.Match(service.NormalizeMessage(msg))
		if len(items) != 1 {
			t.Fatalf("%q: expected 1 item, got %d", msg, len(items))
		}
		if items[0].Quantity != 1 || items[0].LineTotal != 35700 {
			t.Errorf("%q: expected 1 x 35700, got %+v", msg, items[0])
		}
	}

	items := c.Match(service.NormalizeMessage("necesito 100000 bultos de cemento argos"))
	if items[0].Quantity != domain.MaxQuantity {
		t.Errorf("expected quantity %d, got %d", domain.MaxQuantity, items[0].Quantity)
	}
	if items[0].LineTotal != 35700*int64(domain.MaxQuantity) {
		t.Errorf("expected line total %d, got %d", 35700*int64(domain.MaxQuantity), items[0].LineTotal)
	}
}

func TestMatch_OrderIndependentAndAccentInsensitive(t *testing.T) {
	c := testCatalog(t)

	items := c.Match(service.NormalizeMessage("argos, el cemento por favor"))
	if len(items) != 1 || items[0].ProductName != "Cemento Argos" {
		t.Fatalf("expected Cemento Argos, got %+v", items)
	}

	items = c.Match(service.NormalizeMessage("un bloque nº 5"))
	if len(items) != 1 || items[0].ProductName != "Bloque Nº 5" {
		t.Fatalf("expected Bloque Nº 5, got %+v", items)
	}
}

func TestMatch_NoProduct(t *testing.T) {
	c := testCatalog(t)

	if items := c.Match(service.NormalizeMessage("hola, buenas tardes")); items != nil {
		t.Errorf("expected nil, got %+v", items)
	}
	if items := c.Match(""); items != nil {
		t.Errorf("expected nil for empty text, got %+v", items)
	}
}

func TestMatch_MultipleProducts(t *testing.T) {
	c := testCatalog(t)

	items := c.Match(service.NormalizeMessage("cemento argos y 20 bloque nº 5"))
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ProductName != "Cemento Argos" || items[1].ProductName != "Bloque Nº 5" {
		t.Errorf("expected catalog order, got %+v", items)
	}
	if items[1].Quantity != 20 {
		t.Errorf("expected 20 bloques, got %d", items[1].Quantity)
	}
}

func TestMatch_SubsetNamesBothMatch(t *testing.T) {
	c := testCatalog(t,
		domain.Product{Name: "tubo pvc", BasePrice: 10000},
		domain.Product{Name: "tubo pvc sanitario", BasePrice: 15000},
	)

	items := c.Match(service.NormalizeMessage("necesito tubo pvc sanitario"))
	if len(items) != 2 {
		t.Fatalf("expected both entries to match, got %+v", items)
	}
}

func TestMatch_DeduplicatesSameName(t *testing.T) {
	c := testCatalog(t,
		domain.Product{Name: "arena", BasePrice: 1000},
		domain.Product{Name: "arena", BasePrice: 2000},
	)

	items := c.Match("arena")
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].UnitPrice != 1190 {
		t.Errorf("expected first entry to win, got unit price %d", items[0].UnitPrice)
	}
}

func TestSuggest_GenericCategory(t *testing.T) {
	c := testCatalog(t)

	got, ok := c.Suggest(service.NormalizeMessage("¿Qué semento tienen?"))
	if !ok {
		t.Fatal("expected suggestion")
	}
	want := "Claro que sí. Estas son las opciones de cemento que tenemos:\n" +
		"• Cemento Argos – $35,700\n" +
		"• Cemento Holcim – $33,320\n" +
		"¿Cuál deseas cotizar?"
	if got != want {
		t.Errorf("unexpected suggestion:\n%s\nwant:\n%s", got, want)
	}
}

func TestSuggest_NoCategory(t *testing.T) {
	c := testCatalog(t)

	if _, ok := c.Suggest(service.NormalizeMessage("necesito bloque nº 5")); ok {
		t.Error("expected no suggestion")
	}
}

func TestSuggest_CategoryWithoutProducts(t *testing.T) {
	c := testCatalog(t, domain.Product{Name: "bloque", BasePrice: 1500})

	if _, ok := c.Suggest("cemento"); ok {
		t.Error("expected no suggestion when no product belongs to the category")
	}
}

func TestSuggest_CustomCategories(t *testing.T) {
	c, err := service.NewCatalog([]domain.Product{
		{Name: "Varilla 3/8", BasePrice: 12000},
		{Name: "Varilla 1/2", BasePrice: 21000},
	}, domain.DefaultTaxRate, []string{"Varilla"})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := c.Suggest("tienen varilla")
	if !ok {
		t.Fatal("expected suggestion")
	}
	if !strings.Contains(got, "opciones de varilla") || strings.Count(got, "•") != 2 {
		t.Errorf("unexpected suggestion: %s", got)
	}
}
