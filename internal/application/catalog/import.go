package catalog

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/catalog"
	"github.com/stocklink/pos/internal/domain/shared"
	"github.com/stocklink/pos/internal/infrastructure/csvimport"
	"github.com/stocklink/pos/internal/infrastructure/logger"
)

// Import columns. Only name and price are required.
const (
	ColumnName             = "name"
	ColumnCategory         = "category"
	ColumnImage            = "image"
	ColumnPrice            = "price"
	ColumnCostPrice        = "cost_price"
	ColumnStock            = "stock"
	ColumnReorderThreshold = "reorder_threshold"
)

// MaxImportRows bounds the data rows accepted in one file
const MaxImportRows = 5000

// ErrImportFile is returned when the upload cannot be read as a product CSV
var ErrImportFile = shared.NewDomainError("VALIDATION_FAILED", "Invalid product import file")

// ImportResult reports a product import. Imported is zero when any row
// failed or the import was a dry run.
type ImportResult struct {
	DryRun      bool                 `json:"dryRun"`
	TotalRows   int                  `json:"totalRows"`
	ValidRows   int                  `json:"validRows"`
	ErrorRows   int                  `json:"errorRows"`
	Imported    int                  `json:"imported"`
	Errors      []csvimport.RowError `json:"errors"`
	TotalErrors int                  `json:"totalErrors"`
	Truncated   bool                 `json:"truncated,omitempty"`
	Products    []ProductResponse    `json:"products,omitempty"`
}

// Import reads products from a CSV document. Every row is validated before
// anything is written; a file with any invalid row imports nothing.
func (s *ProductService) Import(ctx context.Context, r io.Reader, dryRun bool) (*ImportResult, error) {
	log := logger.Enrich(ctx, s.logger)

	parser, err := csvimport.NewParser(r)
	if err != nil {
		return nil, ErrImportFile.WithDetail("reason", err.Error())
	}
	if missing := parser.Missing(ColumnName, ColumnPrice); len(missing) > 0 {
		return nil, ErrImportFile.WithDetail("missingColumns", missing)
	}

	rows, err := parser.Rows()
	if err != nil {
		return nil, ErrImportFile.WithDetail("reason", err.Error())
	}
	if len(rows) == 0 {
		return nil, ErrImportFile.WithDetail("reason", "no data rows")
	}
	if len(rows) > MaxImportRows {
		return nil, ErrImportFile.WithDetail("reason", fmt.Sprintf("more than %d rows", MaxImportRows))
	}

	errs := csvimport.NewErrorCollection(csvimport.DefaultMaxErrors)
	seen := make(map[string]int, len(rows))
	products := make([]*catalog.Product, 0, len(rows))
	for _, row := range rows {
		p := productFromRow(row, errs)
		if p == nil {
			continue
		}
		key := strings.ToLower(p.Name)
		if first, dup := seen[key]; dup {
			errs.Add(csvimport.RowError{
				Line:    row.Line,
				Column:  ColumnName,
				Code:    csvimport.CodeDuplicate,
				Message: fmt.Sprintf("duplicate of line %d", first),
				Value:   p.Name,
			})
			continue
		}
		seen[key] = row.Line
		products = append(products, p)
	}

	result := &ImportResult{
		DryRun:      dryRun,
		TotalRows:   len(rows),
		ErrorRows:   errs.FailedLines(),
		Errors:      errs.Errors(),
		TotalErrors: errs.Total(),
		Truncated:   errs.Truncated(),
	}
	result.ValidRows = result.TotalRows - result.ErrorRows

	if errs.HasErrors() || dryRun {
		log.Info("Product import not applied",
			zap.Bool("dry_run", dryRun),
			zap.Int("rows", result.TotalRows),
			zap.Int("error_rows", result.ErrorRows),
		)
		return result, nil
	}

	if err := s.products.CreateBatch(ctx, products); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	result.Imported = len(products)
	result.Products = make([]ProductResponse, len(products))
	for i, p := range products {
		result.Products[i] = ToProductResponse(p)
	}
	log.Info("Products imported", zap.Int("count", result.Imported))
	return result, nil
}

// productFromRow validates a row and builds its product, or records the
// row's errors and returns nil
func productFromRow(row *csvimport.Row, errs *csvimport.ErrorCollection) *catalog.Product {
	before := errs.Total()

	d := catalog.ProductDetails{
		Name:     row.Get(ColumnName),
		Category: row.Get(ColumnCategory),
		Image:    row.Get(ColumnImage),
	}
	if d.Name == "" {
		errs.Required(row.Line, ColumnName)
	}
	if v := row.Get(ColumnPrice); v == "" {
		errs.Required(row.Line, ColumnPrice)
	} else if price, err := decimal.NewFromString(v); err != nil {
		errs.InvalidType(row.Line, ColumnPrice, "decimal", v)
	} else {
		d.Price = price
	}
	if v := row.Get(ColumnCostPrice); v != "" {
		cost, err := decimal.NewFromString(v)
		if err != nil {
			errs.InvalidType(row.Line, ColumnCostPrice, "decimal", v)
		}
		d.CostPrice = cost
	}
	if v := row.Get(ColumnStock); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil {
			errs.InvalidType(row.Line, ColumnStock, "integer", v)
		}
		d.Stock = stock
	}
	if v := row.Get(ColumnReorderThreshold); v != "" {
		threshold, err := strconv.Atoi(v)
		if err != nil {
			errs.InvalidType(row.Line, ColumnReorderThreshold, "integer", v)
		}
		d.ReorderThreshold = &threshold
	}
	if errs.Total() > before {
		return nil
	}

	p, err := catalog.NewProduct(d)
	if err != nil {
		errs.Add(csvimport.RowError{Line: row.Line, Code: csvimport.CodeInvalidValue, Message: err.Error()})
		return nil
	}
	return p
}
