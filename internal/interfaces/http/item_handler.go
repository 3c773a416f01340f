package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/medstock/internal/application/dto"
	"github.com/jhoicas/medstock/internal/application/ledger"
	"github.com/jhoicas/medstock/internal/application/reporting"
	"github.com/jhoicas/medstock/pkg/logger"
)

// ItemHandler alta de ítems y vista de stock (protegido).
type ItemHandler struct {
	ledger  *ledger.LedgerUseCase
	reports *reporting.ReportUseCase
	log     *logger.Logger
}

// NewItemHandler construye el handler.
func NewItemHandler(ledgerUC *ledger.LedgerUseCase, reports *reporting.ReportUseCase, log *logger.Logger) *ItemHandler {
	return &ItemHandler{ledger: ledgerUC, reports: reports, log: log}
}

// Register godoc
// @Summary      Registrar ítem
// @Description  Inserta el ítem o, si el SKU ya existe, sobrescribe nombre, categoría, unidad y mínimo. No modifica stock.
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterItemRequest  true  "name, sku, category, unit, min_level"
// @Success      201   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/items [post]
func (h *ItemHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.ledger.RegisterItem(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar ítems con stock
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        q  query  string  false  "Filtro por nombre o SKU (sin distinguir mayúsculas)"
// @Success      200  {object}  dto.ItemListResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/items [get]
func (h *ItemHandler) List(c *fiber.Ctx) error {
	out, err := h.reports.ListItems(c.UserContext(), c.Query("q"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Stock godoc
// @Summary      Stock actual de un ítem
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del ítem"
// @Success      200  {object}  dto.StockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/stock [get]
func (h *ItemHandler) Stock(c *fiber.Ctx) error {
	id := c.Params("id")
	n, err := h.reports.CurrentStock(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.StockResponse{ItemID: id, CurrentStock: n})
}

// Lots godoc
// @Summary      Lotes de un ítem
// @Description  Lotes con saldo en orden FEFO (caducidad ascendente, luego número de lote).
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del ítem"
// @Success      200  {object}  dto.LotListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/lots [get]
func (h *ItemHandler) Lots(c *fiber.Ctx) error {
	out, err := h.reports.ItemLots(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
