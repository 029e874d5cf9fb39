package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/reformante/cotizador-whatsapp-go/internal/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/catalog"

	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func writeXLSX(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cellName, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "productos.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}
	return path
}

func TestFileSource_JSON(t *testing.T) {
	path := writeFile(t, "productos_reformante.json",
		`[{"nombre": "Cemento Argos", "precio": 30000}, {"nombre": "Arena lavada", "precio": 15000.5}]`)

	products, err := catalog.NewFileSource(path).Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].Name != "Cemento Argos" || products[0].BasePrice != 30000 {
		t.Errorf("unexpected product: %+v", products[0])
	}
	if products[1].BasePrice != 15000.5 {
		t.Errorf("unexpected price: %v", products[1].BasePrice)
	}
}

func TestFileSource_XLSX(t *testing.T) {
	path := writeXLSX(t, [][]any{
		{"Código", "Nombre", "Precio"},
		{"A1", "Cemento Argos", 30000},
		{"A2", "", 99},
		{"A3", "Bloque de concreto", "$2,000"},
	})

	products, err := catalog.NewFileSource(path).Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products (blank row skipped), got %d", len(products))
	}
	if products[1].Name != "Bloque de concreto" || products[1].BasePrice != 2000 {
		t.Errorf("unexpected product: %+v", products[1])
	}
}

func TestFileSource_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.json")},
		{"bad json", writeFile(t, "bad.json", `{"nombre":`)},
		{"empty list", writeFile(t, "empty.json", `[]`)},
		{"unsupported", writeFile(t, "productos.csv", "nombre,precio\n")},
		{"xlsx without header", writeXLSX(t, [][]any{{"foo", "bar"}, {"Cemento", 1}})},
		{"xlsx bad price", writeXLSX(t, [][]any{{"nombre", "precio"}, {"Cemento", "treinta"}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.NewFileSource(tt.path).Load(context.Background())
			var catErr *domain.ErrCatalog
			if !errors.As(err, &catErr) {
				t.Fatalf("expected ErrCatalog, got %v", err)
			}
		})
	}
}
