// Package catalog importa el maestro de ítems desde CSV.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/medstock/internal/application/dto"
	"github.com/jhoicas/medstock/internal/domain"
)

// Columnas esperadas (la cabecera es obligatoria; el orden no importa).
var columns = []string{"name", "sku", "category", "unit", "min_level"}

// ItemRegistrar lo implementa *ledger.LedgerUseCase.
type ItemRegistrar interface {
	RegisterItem(ctx context.Context, in dto.RegisterItemRequest) (*dto.ItemResponse, error)
}

// Options del import.
type Options struct {
	Latin1    bool // archivo en ISO-8859-1 (exportes de hojas de cálculo antiguas)
	Delimiter rune // por defecto ','
}

// Result resumen del import. Las filas inválidas no detienen el proceso.
type Result struct {
	Rows     int
	Imported int
	Warnings []string
}

// ImportCSV registra cada fila con RegisterItem. Un error de almacenamiento aborta el import.
func ImportCSV(ctx context.Context, r io.Reader, registrar ItemRegistrar, opts Options) (*Result, error) {
	if opts.Latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("leer cabecera: %w", err)
	}
	index, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return res, fmt.Errorf("línea %d: %w", line, err)
		}
		res.Rows++

		in, err := toRequest(record, index)
		if err == nil {
			_, err = registrar.RegisterItem(ctx, in)
		}
		if err != nil {
			if errors.Is(err, domain.ErrStorage) {
				return res, fmt.Errorf("línea %d: %w", line, err)
			}
			res.Warnings = append(res.Warnings, fmt.Sprintf("línea %d: %v", line, err))
			continue
		}
		res.Imported++
	}
	return res, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		// BOM de Excel en la primera columna.
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		index[strings.ToLower(h)] = i
	}
	for _, required := range columns[:2] {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("cabecera sin columna %q (esperadas: %s)", required, strings.Join(columns, ","))
		}
	}
	return index, nil
}

func toRequest(record []string, index map[string]int) (dto.RegisterItemRequest, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	in := dto.RegisterItemRequest{
		Name:     field("name"),
		SKU:      field("sku"),
		Category: field("category"),
		Unit:     field("unit"),
	}
	if raw := field("min_level"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return in, domain.Invalid("min_level", "debe ser un entero")
		}
		in.MinLevel = &n
	}
	return in, nil
}
