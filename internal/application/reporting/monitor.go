package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jhoicas/medstock/internal/domain/entity"
	"github.com/jhoicas/medstock/pkg/logger"
)

// AlertGauge publica el resultado de cada revisión (métricas).
type AlertGauge interface {
	SetAlertCounts(summary AlertSummary)
}

// AlertSummary conteos de una revisión de alertas.
type AlertSummary struct {
	Total        int
	Out          int
	Low          int
	NoLots       int
	ExpiringSoon int
}

// Summarize cuenta las alertas por motivo.
func Summarize(alerts []Alert) AlertSummary {
	s := AlertSummary{Total: len(alerts)}
	for _, a := range alerts {
		switch a.Status {
		case entity.StockStatusOut:
			s.Out++
		case entity.StockStatusLow:
			s.Low++
		}
		if a.NoLots {
			s.NoLots++
		}
		if a.ExpiringSoon {
			s.ExpiringSoon++
		}
	}
	return s
}

// AlertMonitor revisa periódicamente las alertas y registra el resultado.
type AlertMonitor struct {
	uc          *ReportUseCase
	schedule    string
	horizonDays int
	log         *logger.Logger
	gauge       AlertGauge
	cron        *cron.Cron
}

// NewAlertMonitor construye el monitor. schedule usa la sintaxis de robfig/cron ("@every 15m", "0 7 * * *").
func NewAlertMonitor(uc *ReportUseCase, schedule string, horizonDays int, log *logger.Logger, gauge AlertGauge) *AlertMonitor {
	return &AlertMonitor{
		uc:          uc,
		schedule:    schedule,
		horizonDays: horizonDays,
		log:         log,
		gauge:       gauge,
	}
}

// Start registra el job y arranca el planificador.
func (m *AlertMonitor) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(m.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, _ = m.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("registrar job de alertas %q: %w", m.schedule, err)
	}
	c.Start()
	m.cron = c
	m.log.Info().Str("schedule", m.schedule).Int("horizon_days", m.horizonDays).Msg("monitor de alertas iniciado")
	return nil
}

// Stop detiene el planificador y espera a que termine el job en curso.
func (m *AlertMonitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
}

// RunOnce ejecuta una revisión.
func (m *AlertMonitor) RunOnce(ctx context.Context) (AlertSummary, error) {
	alerts, err := m.uc.AlertRecords(ctx, m.horizonDays)
	if err != nil {
		m.log.Error().Err(err).Msg("revisión de alertas")
		return AlertSummary{}, err
	}
	summary := Summarize(alerts)
	if m.gauge != nil {
		m.gauge.SetAlertCounts(summary)
	}
	ev := m.log.Info()
	if summary.Total > 0 {
		ev = m.log.Warn()
	}
	ev.Int("total", summary.Total).
		Int("out", summary.Out).
		Int("low", summary.Low).
		Int("no_lots", summary.NoLots).
		Int("expiring_soon", summary.ExpiringSoon).
		Msg("revisión de alertas")
	return summary, nil
}
