package reporting

import (
	"context"
	"time"
)

// AlertReportRenderer genera la representación imprimible de las alertas.
type AlertReportRenderer interface {
	RenderAlerts(ctx context.Context, alerts []Alert, horizonDays int, generatedAt time.Time) ([]byte, error)
}

// AlertReportUseCase reporte de alertas en PDF.
type AlertReportUseCase struct {
	reports  *ReportUseCase
	renderer AlertReportRenderer
}

// NewAlertReportUseCase construye el caso de uso.
func NewAlertReportUseCase(reports *ReportUseCase, renderer AlertReportRenderer) *AlertReportUseCase {
	return &AlertReportUseCase{reports: reports, renderer: renderer}
}

// Generate devuelve el documento con las mismas alertas que Alerts(days).
func (uc *AlertReportUseCase) Generate(ctx context.Context, days int) ([]byte, error) {
	alerts, err := uc.reports.AlertRecords(ctx, days)
	if err != nil {
		return nil, err
	}
	return uc.renderer.RenderAlerts(ctx, alerts, days, uc.reports.now())
}
