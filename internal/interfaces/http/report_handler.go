package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/medstock/internal/application/reporting"
	"github.com/jhoicas/medstock/internal/domain"
	"github.com/jhoicas/medstock/pkg/logger"
)

// ReportHandler alertas, estadísticas y movimientos recientes (protegido).
type ReportHandler struct {
	uc     *reporting.ReportUseCase
	report *reporting.AlertReportUseCase
	log    *logger.Logger
}

// NewReportHandler construye el handler. report puede ser nil (sin PDF).
func NewReportHandler(uc *reporting.ReportUseCase, report *reporting.AlertReportUseCase, log *logger.Logger) *ReportHandler {
	return &ReportHandler{uc: uc, report: report, log: log}
}

// Alerts godoc
// @Summary      Alertas de inventario
// @Description  Ítems bajo el mínimo, sin lotes, o con un lote que caduca dentro de `days` días.
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        days  query  int  false  "Horizonte de caducidad en días (por defecto 30)"
// @Success      200  {object}  dto.AlertListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/alerts [get]
func (h *ReportHandler) Alerts(c *fiber.Ctx) error {
	days, err := queryInt(c, "days", reporting.DefaultHorizonDays)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.uc.Alerts(c.UserContext(), days)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Stats godoc
// @Summary      Estadísticas del inventario
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        days  query  int  false  "Horizonte de caducidad en días (por defecto 30)"
// @Success      200  {object}  dto.StatsResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stats [get]
func (h *ReportHandler) Stats(c *fiber.Ctx) error {
	days, err := queryInt(c, "days", reporting.DefaultHorizonDays)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.uc.Stats(c.UserContext(), days)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Transactions godoc
// @Summary      Últimos movimientos
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        limit  query  int  false  "Cantidad (por defecto 50, máximo 100)"
// @Success      200  {array}  dto.TransactionResponse
// @Router       /api/transactions [get]
func (h *ReportHandler) Transactions(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", reporting.DefaultTransactionsLimit)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.uc.RecentTransactions(c.UserContext(), limit)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// AlertsPDF godoc
// @Summary      Reporte de alertas en PDF
// @Tags         reports
// @Security     Bearer
// @Produce      application/pdf
// @Param        days  query  int  false  "Horizonte de caducidad en días (por defecto 30)"
// @Success      200
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/alerts.pdf [get]
func (h *ReportHandler) AlertsPDF(c *fiber.Ctx) error {
	days, err := queryInt(c, "days", reporting.DefaultHorizonDays)
	if err != nil {
		return writeError(c, h.log, err)
	}
	pdf, err := h.report.Generate(c.UserContext(), days)
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="alertas.pdf"`)
	return c.Send(pdf)
}

// queryInt lee un entero opcional de la query; vacío usa def.
func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Invalid(key, "debe ser un entero")
	}
	return n, nil
}
