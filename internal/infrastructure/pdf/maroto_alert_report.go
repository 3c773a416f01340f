// Package pdf genera el reporte imprimible de alertas de inventario con Maroto v2.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: título + horizonte │ fecha de generación           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: total / sin stock / bajo mínimo / por caducar     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: SKU | Nombre | Stock | Mínimo | Caducidad | Estado  │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/medstock/internal/application/reporting"
	"github.com/jhoicas/medstock/internal/domain/entity"
)

var _ reporting.AlertReportRenderer = (*MarotoAlertReport)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorDanger  = &props.Color{Red: 170, Green: 20, Blue: 20}
)

// MarotoAlertReport implementa reporting.AlertReportRenderer.
type MarotoAlertReport struct {
	author string
}

// NewMarotoAlertReport construye el generador. author va en los metadatos del PDF.
func NewMarotoAlertReport(author string) *MarotoAlertReport {
	return &MarotoAlertReport{author: author}
}

// RenderAlerts genera el PDF y devuelve sus bytes.
func (g *MarotoAlertReport) RenderAlerts(_ context.Context, alerts []reporting.Alert, horizonDays int, generatedAt time.Time) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Alertas de inventario", true).
		WithAuthor(g.author, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(horizonDays, generatedAt))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(reporting.Summarize(alerts)))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	if len(alerts) == 0 {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New("Sin alertas para el horizonte indicado.", props.Text{
				Size: 9, Align: align.Center, Top: 2, Color: colorGray,
			}),
		)))
	}
	m.AddRows(tableDetailRows(alerts)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(horizonDays int, generatedAt time.Time) core.Row {
	return row.New(16).Add(
		col.New(8).Add(
			text.New("ALERTAS DE INVENTARIO", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Caducidad en los próximos %d días, stock bajo mínimo o sin lotes", horizonDays), props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(4).Add(
			text.New("Generado: "+generatedAt.Format("2006-01-02 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 2, Color: colorGray,
			}),
		),
	)
}

func summaryRow(s reporting.AlertSummary) core.Row {
	cell := func(label string, n int) core.Col {
		return col.New(3).Add(
			text.New(label, props.Text{Size: 7, Align: align.Center, Color: colorGray, Top: 1}),
			text.New(fmt.Sprintf("%d", n), props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Center, Top: 5}),
		)
	}
	return row.New(14).Add(
		cell("ÍTEMS EN ALERTA", s.Total),
		cell("SIN STOCK", s.Out),
		cell("BAJO MÍNIMO", s.Low),
		cell("POR CADUCAR", s.ExpiringSoon),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("SKU", 2, align.Left),
		h("Nombre", 4, align.Left),
		h("Stock", 1, align.Right),
		h("Mínimo", 1, align.Right),
		h("Caducidad", 2, align.Center),
		h("Motivo", 2, align.Left),
	)
}

// tableDetailRows: una fila por ítem en alerta.
func tableDetailRows(alerts []reporting.Alert) []core.Row {
	result := make([]core.Row, 0, len(alerts))
	for _, a := range alerts {
		expiry := "—"
		if a.EarliestExpiry != nil {
			expiry = a.EarliestExpiry.Format(entity.DateLayout)
		}
		reasonStyle := props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1}
		if a.Status == entity.StockStatusOut {
			reasonStyle.Color = colorDanger
		}
		result = append(result, row.New(7).Add(
			col.New(2).Add(text.New(a.SKU, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(4).Add(text.New(a.Name, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(fmt.Sprintf("%d", a.CurrentStock), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(fmt.Sprintf("%d", a.MinLevel), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(expiry, props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(Reasons(a), reasonStyle)),
		))
	}
	return result
}

// Reasons motivos de inclusión legibles, separados por coma.
func Reasons(a reporting.Alert) string {
	var parts []string
	switch a.Status {
	case entity.StockStatusOut:
		parts = append(parts, "sin stock")
	case entity.StockStatusLow:
		parts = append(parts, "bajo mínimo")
	}
	if a.NoLots && a.Status != entity.StockStatusOut {
		parts = append(parts, "sin lotes")
	}
	if a.ExpiringSoon {
		parts = append(parts, "por caducar")
	}
	return strings.Join(parts, ", ")
}
