package reporting

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/medstock/internal/application/dto"
	"github.com/jhoicas/medstock/internal/application/ledger"
	"github.com/jhoicas/medstock/internal/domain"
	"github.com/jhoicas/medstock/internal/domain/entity"
	"github.com/jhoicas/medstock/internal/domain/repository"
)

// Límites de consulta.
const (
	DefaultHorizonDays       = 30
	DefaultTransactionsLimit = 50
	MaxTransactionsLimit     = 100
)

// Alert ítem que requiere atención, con los motivos de inclusión.
type Alert struct {
	entity.ItemSummary
	Status       string
	NoLots       bool
	ExpiringSoon bool
}

// ReportUseCase vista de stock y consultas de alertas/estadísticas. Solo lectura sobre el estado confirmado.
type ReportUseCase struct {
	stockRepo  repository.StockViewRepository
	reportRepo repository.ReportRepository
	now        func() time.Time
}

// NewReportUseCase construye el caso de uso. now puede ser nil (time.Now).
func NewReportUseCase(stockRepo repository.StockViewRepository, reportRepo repository.ReportRepository, now func() time.Time) *ReportUseCase {
	if now == nil {
		now = time.Now
	}
	return &ReportUseCase{stockRepo: stockRepo, reportRepo: reportRepo, now: now}
}

// CurrentStock stock del ítem (suma de sus lotes). Un ítem inexistente tiene stock 0.
func (uc *ReportUseCase) CurrentStock(ctx context.Context, itemID string) (int64, error) {
	id, err := parseItemID(itemID)
	if err != nil {
		return 0, err
	}
	n, err := uc.stockRepo.CurrentStock(ctx, id)
	if err != nil {
		return 0, domain.Storage("current stock", err)
	}
	return n, nil
}

// ItemLots lotes del ítem con saldo, en el orden en que Dispatch los consumiría.
func (uc *ReportUseCase) ItemLots(ctx context.Context, itemID string) (*dto.LotListResponse, error) {
	id, err := parseItemID(itemID)
	if err != nil {
		return nil, err
	}
	lots, err := uc.stockRepo.ListLots(ctx, id)
	if err != nil {
		return nil, domain.Storage("list lots", err)
	}
	out := make([]dto.LotResponse, 0, len(lots))
	for _, l := range lots {
		out = append(out, dto.LotResponse{
			ID:         l.ID,
			LotNumber:  l.LotNumber,
			ExpiryDate: l.ExpiryDate.Format(entity.DateLayout),
			Quantity:   l.Quantity,
			Location:   dto.OptionalString(l.Location),
			UpdatedAt:  l.UpdatedAt,
		})
	}
	return &dto.LotListResponse{ItemID: id, Lots: out}, nil
}

// parseItemID valida el identificador antes de consultar el almacén y lo devuelve en forma canónica.
func parseItemID(s string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", domain.Invalid("id", "identificador de ítem inválido")
	}
	return id.String(), nil
}

// ListItems ítems con su stock actual, ordenados por nombre.
func (uc *ReportUseCase) ListItems(ctx context.Context, search string) (*dto.ItemListResponse, error) {
	list, err := uc.stockRepo.ListItems(ctx, search)
	if err != nil {
		return nil, domain.Storage("list items", err)
	}
	items := make([]dto.ItemStockResponse, 0, len(list))
	for i := range list {
		items = append(items, dto.ItemStockResponse{
			ItemResponse: *ledger.ToItemResponse(&list[i].Item),
			CurrentStock: list[i].CurrentStock,
		})
	}
	return &dto.ItemListResponse{Items: items, Total: len(items)}, nil
}

// Horizon fecha límite de caducidad: hoy + days.
func (uc *ReportUseCase) Horizon(days int) time.Time {
	return entity.Day(uc.now()).AddDate(0, 0, days)
}

// AlertRecords ítems con stock bajo el mínimo, sin lotes, o con un lote que caduca en o antes de hoy+days.
func (uc *ReportUseCase) AlertRecords(ctx context.Context, days int) ([]Alert, error) {
	if days < 0 {
		return nil, domain.Invalid("days", "no puede ser negativo")
	}
	summaries, err := uc.reportRepo.Summaries(ctx)
	if err != nil {
		return nil, domain.Storage("alerts", err)
	}
	horizon := uc.Horizon(days)
	alerts := make([]Alert, 0)
	for _, s := range summaries {
		if !s.NeedsAttention(horizon) {
			continue
		}
		alerts = append(alerts, Alert{
			ItemSummary:  s,
			Status:       s.Status(),
			NoLots:       s.EarliestExpiry == nil,
			ExpiringSoon: s.ExpiresBy(horizon),
		})
	}
	return alerts, nil
}

// Alerts versión DTO de AlertRecords.
func (uc *ReportUseCase) Alerts(ctx context.Context, days int) (*dto.AlertListResponse, error) {
	records, err := uc.AlertRecords(ctx, days)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AlertResponse, 0, len(records))
	for _, a := range records {
		out = append(out, ToAlertResponse(a))
	}
	return &dto.AlertListResponse{HorizonDays: days, Total: len(out), Alerts: out}, nil
}

// Stats total de ítems, unidades en stock, ítems bajo mínimo e ítems con algún lote que caduca dentro de days.
func (uc *ReportUseCase) Stats(ctx context.Context, days int) (*dto.StatsResponse, error) {
	if days < 0 {
		return nil, domain.Invalid("days", "no puede ser negativo")
	}
	summaries, err := uc.reportRepo.Summaries(ctx)
	if err != nil {
		return nil, domain.Storage("stats", err)
	}
	st := ComputeStats(summaries, uc.Horizon(days))
	return &dto.StatsResponse{
		TotalItems:   st.TotalItems,
		UnitsInStock: st.UnitsInStock,
		LowStock:     st.LowStock,
		ExpiringSoon: st.ExpiringSoon,
	}, nil
}

// ComputeStats agrega las proyecciones por ítem.
func ComputeStats(summaries []entity.ItemSummary, horizon time.Time) entity.Stats {
	var st entity.Stats
	for _, s := range summaries {
		st.TotalItems++
		st.UnitsInStock += s.CurrentStock
		if s.IsLow() {
			st.LowStock++
		}
		if s.ExpiresBy(horizon) {
			st.ExpiringSoon++
		}
	}
	return st
}

// RecentTransactions movimientos más recientes (limit <= 0 usa 50; máximo 100).
func (uc *ReportUseCase) RecentTransactions(ctx context.Context, limit int) ([]dto.TransactionResponse, error) {
	limit = ClampLimit(limit)
	list, err := uc.reportRepo.RecentTransactions(ctx, limit)
	if err != nil {
		return nil, domain.Storage("recent transactions", err)
	}
	out := make([]dto.TransactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTransactionResponse(t))
	}
	return out, nil
}

// Ping verifica el almacén (health).
func (uc *ReportUseCase) Ping(ctx context.Context) error {
	return uc.reportRepo.Ping(ctx)
}

// ClampLimit aplica el valor por defecto y el máximo al límite de transacciones.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultTransactionsLimit
	}
	if limit > MaxTransactionsLimit {
		return MaxTransactionsLimit
	}
	return limit
}

// ToAlertResponse mapea una alerta a su DTO.
func ToAlertResponse(a Alert) dto.AlertResponse {
	var earliest *string
	if a.EarliestExpiry != nil {
		s := a.EarliestExpiry.Format(entity.DateLayout)
		earliest = &s
	}
	return dto.AlertResponse{
		ItemID:         a.ID,
		Name:           a.Name,
		SKU:            a.SKU,
		CurrentStock:   a.CurrentStock,
		MinLevel:       a.MinLevel,
		EarliestExpiry: earliest,
		Status:         a.Status,
		LowStock:       a.IsLow(),
		NoLots:         a.NoLots,
		ExpiringSoon:   a.ExpiringSoon,
	}
}

func toTransactionResponse(t entity.TransactionDetail) dto.TransactionResponse {
	var expiry *string
	if t.ExpiryDate != nil {
		s := t.ExpiryDate.Format(entity.DateLayout)
		expiry = &s
	}
	return dto.TransactionResponse{
		ID:             t.ID,
		ItemID:         dto.OptionalString(t.ItemID),
		LotID:          dto.OptionalString(t.LotID),
		SKU:            dto.OptionalString(t.SKU),
		LotNumber:      dto.OptionalString(t.LotNumber),
		ExpiryDate:     expiry,
		Location:       dto.OptionalString(t.Location),
		QuantityChange: t.QuantityChange,
		Type:           t.Type,
		Note:           dto.OptionalString(t.Note),
		CreatedAt:      t.CreatedAt,
	}
}
