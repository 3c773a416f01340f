// Package metrics expone contadores Prometheus del libro, de las alertas y del HTTP.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/medstock/internal/application/ledger"
	"github.com/jhoicas/medstock/internal/application/reporting"
	"github.com/jhoicas/medstock/internal/domain"
)

var (
	_ ledger.Recorder       = (*Metrics)(nil)
	_ reporting.AlertGauge = (*Metrics)(nil)
)

// Metrics colectores registrados en un registry propio.
type Metrics struct {
	registry *prometheus.Registry

	unitsReceived   prometheus.Counter
	unitsDispatched prometheus.Counter
	lotsAllocated   prometheus.Histogram
	operations      *prometheus.CounterVec
	failures        *prometheus.CounterVec
	alerts          *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registra los colectores con el prefijo dado (ej. "medstock").
func New(prefix string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		unitsReceived: f.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_units_received_total",
			Help: "Unidades recibidas en lotes",
		}),
		unitsDispatched: f.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_units_dispatched_total",
			Help: "Unidades despachadas",
		}),
		lotsAllocated: f.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "_dispatch_lots",
			Help:    "Lotes tocados por despacho",
			Buckets: []float64{1, 2, 3, 5, 8, 13},
		}),
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_ledger_operations_total",
			Help: "Operaciones del libro confirmadas",
		}, []string{"operation"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_ledger_failures_total",
			Help: "Operaciones del libro rechazadas o revertidas",
		}, []string{"operation", "kind"}),
		alerts: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_alerts",
			Help: "Ítems en alerta en la última revisión, por motivo",
		}, []string{"reason"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// Registry para tests y exportadores.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveReceive implementa ledger.Recorder.
func (m *Metrics) ObserveReceive(quantity int64) {
	m.operations.WithLabelValues("receive").Inc()
	m.unitsReceived.Add(float64(quantity))
}

// ObserveDispatch implementa ledger.Recorder.
func (m *Metrics) ObserveDispatch(quantity int64, lots int) {
	m.operations.WithLabelValues("dispatch").Inc()
	m.unitsDispatched.Add(float64(quantity))
	m.lotsAllocated.Observe(float64(lots))
}

// ObserveFailure implementa ledger.Recorder.
func (m *Metrics) ObserveFailure(op string, err error) {
	m.failures.WithLabelValues(op, FailureKind(err)).Inc()
}

// SetAlertCounts implementa reporting.AlertGauge.
func (m *Metrics) SetAlertCounts(s reporting.AlertSummary) {
	m.alerts.WithLabelValues("total").Set(float64(s.Total))
	m.alerts.WithLabelValues("out_of_stock").Set(float64(s.Out))
	m.alerts.WithLabelValues("low_stock").Set(float64(s.Low))
	m.alerts.WithLabelValues("no_lots").Set(float64(s.NoLots))
	m.alerts.WithLabelValues("expiring_soon").Set(float64(s.ExpiringSoon))
}

// FailureKind etiqueta corta para la taxonomía de errores.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrStorage):
		return "storage"
	default:
		return "other"
	}
}

// Middleware registra conteo y duración por ruta (plantilla, no path real).
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		path := c.Route().Path
		labels := []string{c.Method(), path, strconv.Itoa(status)}
		m.httpRequests.WithLabelValues(labels...).Inc()
		m.httpDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler expone /metrics.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
