package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/medstock/internal/application/dto"
	"github.com/jhoicas/medstock/internal/domain"
	"github.com/jhoicas/medstock/internal/domain/entity"
	"github.com/jhoicas/medstock/internal/domain/repository"
	"github.com/jhoicas/medstock/pkg/logger"
)

// LedgerUseCase motor del libro de inventario: único escritor de ítems, lotes y transacciones.
// No tiene bloqueos propios; la exclusión mutua se delega en las transacciones y bloqueos de fila del almacén.
type LedgerUseCase struct {
	txRunner TxRunner
	log      *logger.Logger
	recorder Recorder
	now      func() time.Time
	newID    func() string
}

// Option personaliza el caso de uso.
type Option func(*LedgerUseCase)

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(uc *LedgerUseCase) { uc.now = now }
}

// WithRecorder registra métricas de cada operación.
func WithRecorder(r Recorder) Option {
	return func(uc *LedgerUseCase) {
		if r != nil {
			uc.recorder = r
		}
	}
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(txRunner TxRunner, log *logger.Logger, opts ...Option) *LedgerUseCase {
	uc := &LedgerUseCase{
		txRunner: txRunner,
		log:      log,
		recorder: noopRecorder{},
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// RegisterItem inserta un ítem o, si el SKU ya existe, sobrescribe nombre/categoría/unidad/mínimo sin tocar stock.
func (uc *LedgerUseCase) RegisterItem(ctx context.Context, in dto.RegisterItemRequest) (*dto.ItemResponse, error) {
	name := strings.TrimSpace(in.Name)
	sku := strings.TrimSpace(in.SKU)
	if name == "" {
		return nil, domain.Invalid("name", "requerido")
	}
	if sku == "" {
		return nil, domain.Invalid("sku", "requerido")
	}
	var minLevel int64
	if in.MinLevel != nil {
		minLevel = *in.MinLevel
	}
	if minLevel < 0 {
		return nil, domain.Invalid("min_level", "no puede ser negativo")
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = entity.DefaultUnit
	}

	now := uc.now()
	candidate := &entity.Item{
		ID:        uc.newID(),
		Name:      name,
		SKU:       sku,
		Category:  strings.TrimSpace(in.Category),
		Unit:      unit,
		MinLevel:  minLevel,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var saved *entity.Item
	err := uc.txRunner.Run(ctx, func(
		itemRepo repository.ItemRepository,
		_ repository.LotRepository,
		_ repository.TransactionRepository,
	) error {
		var err error
		saved, err = itemRepo.UpsertBySKU(ctx, candidate)
		return err
	})
	if err != nil {
		return nil, uc.fail("register_item", err)
	}
	uc.log.Info().Str("sku", saved.SKU).Str("item_id", saved.ID).Msg("ítem registrado")
	return ToItemResponse(saved), nil
}

// Receive registra una entrada de stock en una unidad atómica:
// busca o crea el ítem, inserta o reabastece el lote y agrega la transacción RECEIVE.
func (uc *LedgerUseCase) Receive(ctx context.Context, in dto.ReceiveRequest) (*dto.ReceiveResponse, error) {
	sku := strings.TrimSpace(in.SKU)
	lotNumber := strings.TrimSpace(in.LotNumber)
	if sku == "" {
		return nil, domain.Invalid("sku", "requerido")
	}
	if lotNumber == "" {
		return nil, domain.Invalid("lot_number", "requerido")
	}
	expiry, err := ParseDate(in.ExpiryDate)
	if err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, domain.Invalid("quantity", "debe ser un entero positivo")
	}

	now := uc.now()
	minimal := entity.NewMinimalItem(uc.newID(), sku, now)
	var out *dto.ReceiveResponse

	err = uc.txRunner.Run(ctx, func(
		itemRepo repository.ItemRepository,
		lotRepo repository.LotRepository,
		txRepo repository.TransactionRepository,
	) error {
		item, err := itemRepo.FindOrCreate(ctx, minimal)
		if err != nil {
			return err
		}
		lot, err := lotRepo.UpsertReceipt(ctx, &entity.Lot{
			ID:         uc.newID(),
			ItemID:     item.ID,
			LotNumber:  lotNumber,
			ExpiryDate: expiry,
			Quantity:   in.Quantity,
			Location:   strings.TrimSpace(in.Location),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return err
		}
		if err := txRepo.Append(ctx, &entity.Transaction{
			ID:             uc.newID(),
			ItemID:         item.ID,
			LotID:          lot.ID,
			QuantityChange: in.Quantity,
			Type:           entity.TxTypeReceive,
			CreatedAt:      now,
		}); err != nil {
			return err
		}
		out = &dto.ReceiveResponse{
			Success:     true,
			ItemID:      item.ID,
			LotID:       lot.ID,
			LotQuantity: lot.Quantity,
			ItemCreated: item.ID == minimal.ID,
		}
		return nil
	})
	if err != nil {
		return nil, uc.fail("receive", err)
	}

	uc.recorder.ObserveReceive(in.Quantity)
	uc.log.Info().
		Str("sku", sku).
		Str("lot", lotNumber).
		Int64("quantity", in.Quantity).
		Int64("lot_quantity", out.LotQuantity).
		Bool("item_created", out.ItemCreated).
		Msg("recepción registrada")
	return out, nil
}

// Dispatch registra una salida asignando por FEFO (primero el lote que caduca antes).
// Solo considera lotes que puede bloquear sin esperar; si tras recorrerlos queda cantidad
// pendiente, aborta con InsufficientStockError y no se confirma ningún cambio.
func (uc *LedgerUseCase) Dispatch(ctx context.Context, in dto.DispatchRequest) (*dto.DispatchResponse, error) {
	sku := strings.TrimSpace(in.SKU)
	if sku == "" {
		return nil, domain.Invalid("sku", "requerido")
	}
	if in.Quantity <= 0 {
		return nil, domain.Invalid("quantity", "debe ser un entero positivo")
	}

	now := uc.now()
	reason := strings.TrimSpace(in.Reason)
	var allocations []dto.AllocationDTO

	err := uc.txRunner.Run(ctx, func(
		itemRepo repository.ItemRepository,
		lotRepo repository.LotRepository,
		txRepo repository.TransactionRepository,
	) error {
		allocations = nil

		item, err := itemRepo.GetBySKU(ctx, sku)
		if err != nil {
			return err
		}
		if item == nil {
			return &domain.NotFoundError{Entity: "item", Key: sku}
		}

		lots, err := lotRepo.LockAvailable(ctx, item.ID)
		if err != nil {
			return err
		}
		SortFEFO(lots)

		remaining := in.Quantity
		var emptied []string
		for _, lot := range lots {
			if remaining == 0 {
				break
			}
			take := min(remaining, lot.Quantity)
			if take <= 0 {
				continue
			}
			ok, err := lotRepo.DecrementIfUnchanged(ctx, lot.ID, lot.Quantity, take)
			if err != nil {
				return err
			}
			if !ok {
				// El saldo cambió de forma concurrente: este lote no aporta en este intento.
				continue
			}
			if err := txRepo.Append(ctx, &entity.Transaction{
				ID:             uc.newID(),
				ItemID:         item.ID,
				LotID:          lot.ID,
				QuantityChange: -take,
				Type:           entity.TxTypeDispatch,
				Note:           reason,
				CreatedAt:      now,
			}); err != nil {
				return err
			}
			remaining -= take
			if take == lot.Quantity {
				emptied = append(emptied, lot.ID)
			}
			allocations = append(allocations, dto.AllocationDTO{
				LotID:      lot.ID,
				LotNumber:  lot.LotNumber,
				ExpiryDate: lot.ExpiryDate.Format(entity.DateLayout),
				Quantity:   take,
			})
		}

		if remaining > 0 {
			return &domain.InsufficientStockError{
				SKU:       sku,
				Requested: in.Quantity,
				Available: in.Quantity - remaining,
			}
		}

		// Barrido limitado a los lotes que este despacho dejó en 0.
		if len(emptied) > 0 {
			if _, err := lotRepo.DeleteEmpty(ctx, emptied); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, uc.fail("dispatch", err)
	}

	uc.recorder.ObserveDispatch(in.Quantity, len(allocations))
	uc.log.Info().
		Str("sku", sku).
		Int64("quantity", in.Quantity).
		Int("lots", len(allocations)).
		Msg("despacho registrado")
	return &dto.DispatchResponse{Success: true, Allocations: allocations}, nil
}

// fail normaliza el error a la taxonomía del dominio, lo registra y lo devuelve.
func (uc *LedgerUseCase) fail(op string, err error) error {
	err = domain.Storage(op, err)
	uc.recorder.ObserveFailure(op, err)
	switch {
	case errors.Is(err, domain.ErrStorage):
		uc.log.Error().Err(err).Str("op", op).Msg("fallo del almacén, operación revertida")
	case errors.Is(err, domain.ErrInsufficientStock):
		uc.log.Warn().Err(err).Str("op", op).Msg("operación rechazada")
	default:
		uc.log.Debug().Err(err).Str("op", op).Msg("operación rechazada")
	}
	return err
}

// SortFEFO ordena lotes por caducidad ascendente; empate por número de lote.
func SortFEFO(lots []*entity.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].ExpiryDate.Equal(lots[j].ExpiryDate) {
			return lots[i].ExpiryDate.Before(lots[j].ExpiryDate)
		}
		return lots[i].LotNumber < lots[j].LotNumber
	})
}

// ParseDate valida una fecha de calendario YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, domain.Invalid("expiry_date", "requerido")
	}
	t, err := time.Parse(entity.DateLayout, s)
	if err != nil {
		return time.Time{}, domain.Invalid("expiry_date", "fecha inválida, formato YYYY-MM-DD")
	}
	return t, nil
}

// ToItemResponse mapea la entidad a su DTO de salida.
func ToItemResponse(it *entity.Item) *dto.ItemResponse {
	if it == nil {
		return nil
	}
	return &dto.ItemResponse{
		ID:        it.ID,
		Name:      it.Name,
		SKU:       it.SKU,
		Category:  dto.OptionalString(it.Category),
		Unit:      it.Unit,
		MinLevel:  it.MinLevel,
		Active:    it.Active,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
}
