// Package catalog reads the product list from disk. Two formats:
//
//	.json  [{"nombre": "Cemento Argos", "precio": 30000}, ...]
//	.xlsx  first sheet, header row with "nombre" and "precio" columns
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/reformante/cotizador-whatsapp-go/internal/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/port"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("infra/catalog")

// FileSource loads a catalog file, picking the decoder by extension.
type FileSource struct {
	Path string
}

var _ port.CatalogSource = (*FileSource)(nil)

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load reads and decodes the file. Every failure is an *domain.ErrCatalog.
func (s *FileSource) Load(ctx context.Context) ([]domain.Product, error) {
	_, span := tracer.Start(ctx, "FileSource.Load")
	defer span.End()
	span.SetAttributes(attribute.String("catalog.path", s.Path))

	var (
		products []domain.Product
		err      error
	)
	switch ext := strings.ToLower(filepath.Ext(s.Path)); ext {
	case ".json":
		products, err = s.loadJSON()
	case ".xlsx":
		products, err = s.loadXLSX()
	default:
		return nil, &domain.ErrCatalog{Source: s.Path, Reason: fmt.Sprintf("unsupported extension %q", ext)}
	}
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, &domain.ErrCatalog{Source: s.Path, Reason: "no products"}
	}

	span.SetAttributes(attribute.Int("catalog.products", len(products)))
	return products, nil
}

func (s *FileSource) loadJSON() ([]domain.Product, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &domain.ErrCatalog{Source: s.Path, Reason: "read file", Err: err}
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, &domain.ErrCatalog{Source: s.Path, Reason: "decode json", Err: err}
	}
	return products, nil
}

func (s *FileSource) loadXLSX() ([]domain.Product, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, &domain.ErrCatalog{Source: s.Path, Reason: "open xlsx", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &domain.ErrCatalog{Source: s.Path, Reason: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &domain.ErrCatalog{Source: s.Path, Reason: "read rows", Err: err}
	}
	if len(rows) == 0 {
		return nil, &domain.ErrCatalog{Source: s.Path, Reason: "empty sheet"}
	}

	nameCol, priceCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "nombre", "producto":
			nameCol = i
		case "precio", "precio base":
			priceCol = i
		}
	}
	if nameCol < 0 || priceCol < 0 {
		return nil, &domain.ErrCatalog{Source: s.Path, Reason: `header must have "nombre" and "precio" columns`}
	}

	var products []domain.Product
	for i, row := range rows[1:] {
		name := cell(row, nameCol)
		if name == "" {
			continue
		}
		price, err := parsePrice(cell(row, priceCol))
		if err != nil {
			return nil, &domain.ErrCatalog{
				Source: s.Path,
				Reason: fmt.Sprintf("row %d: invalid price for %q", i+2, name),
				Err:    err,
			}
		}
		products = append(products, domain.Product{Name: name, BasePrice: price})
	}
	return products, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parsePrice accepts "30000", "30000.5" and "$30,000".
func parsePrice(raw string) (float64, error) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	return strconv.ParseFloat(clean, 64)
}
