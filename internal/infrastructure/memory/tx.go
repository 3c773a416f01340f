package memory

import (
	"context"
	"errors"

	"github.com/jhoicas/medstock/internal/application/ledger"
	"github.com/jhoicas/medstock/internal/domain"
	"github.com/jhoicas/medstock/internal/domain/entity"
	"github.com/jhoicas/medstock/internal/domain/repository"
)

var (
	errNegativeQuantity = errors.New("lots_quantity_check: cantidad negativa")
	errUnknownTxType    = errors.New("transactions_type_check: tipo desconocido")
)

var (
	_ repository.ItemRepository        = (*storeTx)(nil)
	_ repository.LotRepository         = (*storeTx)(nil)
	_ repository.TransactionRepository = (*storeTx)(nil)
)

// storeTx unidad atómica en curso. Sus escrituras viven en copias privadas hasta el commit;
// toda fila escrita está bloqueada por la tx, así que el commit no puede pisar a otra.
type storeTx struct {
	s  *Store
	id uint64

	items      map[string]*entity.Item // por SKU
	lots       map[string]*entity.Lot  // por ID
	newLotKeys map[lotKey]string
	deleted    map[string]bool
	txns       []entity.Transaction

	held []string
	done bool
}

// ── ItemRepository ───────────────────────────────────────────────────────────

func (t *storeTx) GetBySKU(_ context.Context, sku string) (*entity.Item, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	it := t.itemBySKU(sku)
	if it == nil {
		return nil, nil
	}
	return copyItem(it), nil
}

func (t *storeTx) UpsertBySKU(_ context.Context, item *entity.Item) (*entity.Item, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.acquire(t, itemLockKey(item.SKU), true)

	saved := copyItem(item)
	if existing := t.itemBySKU(item.SKU); existing != nil {
		saved = copyItem(existing)
		saved.Name = item.Name
		saved.Category = item.Category
		saved.Unit = item.Unit
		saved.MinLevel = item.MinLevel
		saved.UpdatedAt = item.UpdatedAt
	}
	t.items[saved.SKU] = saved
	return copyItem(saved), nil
}

func (t *storeTx) FindOrCreate(_ context.Context, minimal *entity.Item) (*entity.Item, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.acquire(t, itemLockKey(minimal.SKU), true)

	saved := copyItem(minimal)
	if existing := t.itemBySKU(minimal.SKU); existing != nil {
		saved = copyItem(existing)
		saved.UpdatedAt = minimal.UpdatedAt
	}
	t.items[saved.SKU] = saved
	return copyItem(saved), nil
}

// itemBySKU lectura con las escrituras propias de la tx. Requiere s.mu.
func (t *storeTx) itemBySKU(sku string) *entity.Item {
	if it, ok := t.items[sku]; ok {
		return it
	}
	if id, ok := t.s.skus[sku]; ok {
		return t.s.items[id]
	}
	return nil
}

// ── LotRepository ────────────────────────────────────────────────────────────

func (t *storeTx) UpsertReceipt(_ context.Context, lot *entity.Lot) (*entity.Lot, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	key := lotKey{itemID: lot.ItemID, lotNumber: lot.LotNumber}
	t.s.acquire(t, lotLockKey(key), true)

	var saved *entity.Lot
	if existing := t.lotByKey(key); existing != nil {
		saved = copyLot(existing)
		saved.Replenish(lot.Quantity, lot.ExpiryDate, lot.Location, lot.UpdatedAt)
	} else {
		saved = copyLot(lot)
		t.newLotKeys[key] = saved.ID
	}
	t.lots[saved.ID] = saved
	return copyLot(saved), nil
}

func (t *storeTx) LockAvailable(_ context.Context, itemID string) ([]*entity.Lot, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var out []*entity.Lot
	for _, l := range t.visibleLots(itemID) {
		if l.Quantity <= 0 {
			continue
		}
		key := lotKey{itemID: l.ItemID, lotNumber: l.LotNumber}
		if !t.s.acquire(t, lotLockKey(key), false) {
			continue
		}
		// Releer tras bloquear: el valor confirmado es el vigente.
		current := t.lotByKey(key)
		if current == nil || current.Quantity <= 0 {
			continue
		}
		out = append(out, copyLot(current))
	}
	ledger.SortFEFO(out)
	return out, nil
}

func (t *storeTx) DecrementIfUnchanged(_ context.Context, lotID string, expected, take int64) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	current := t.lotByID(lotID)
	if current == nil || current.Quantity != expected || take <= 0 || take > current.Quantity {
		return false, nil
	}
	key := lotKey{itemID: current.ItemID, lotNumber: current.LotNumber}
	if !t.s.acquire(t, lotLockKey(key), false) {
		return false, nil
	}
	updated := copyLot(current)
	updated.Quantity -= take
	t.lots[lotID] = updated
	return true, nil
}

func (t *storeTx) DeleteEmpty(_ context.Context, lotIDs []string) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var n int64
	for _, id := range lotIDs {
		current := t.lotByID(id)
		if current == nil || current.Quantity != 0 {
			continue
		}
		key := lotKey{itemID: current.ItemID, lotNumber: current.LotNumber}
		if !t.s.acquire(t, lotLockKey(key), false) {
			continue
		}
		t.deleted[id] = true
		delete(t.lots, id)
		n++
	}
	return n, nil
}

// visibleLots lotes del ítem: confirmados más los propios, sin los eliminados por la tx. Requiere s.mu.
func (t *storeTx) visibleLots(itemID string) []*entity.Lot {
	var out []*entity.Lot
	seen := make(map[string]bool)
	for id, l := range t.lots {
		if l.ItemID == itemID {
			out = append(out, l)
			seen[id] = true
		}
	}
	for id, l := range t.s.lots {
		if l.ItemID == itemID && !seen[id] && !t.deleted[id] {
			out = append(out, l)
		}
	}
	return out
}

// lotByID requiere s.mu.
func (t *storeTx) lotByID(id string) *entity.Lot {
	if t.deleted[id] {
		return nil
	}
	if l, ok := t.lots[id]; ok {
		return l
	}
	return t.s.lots[id]
}

// lotByKey requiere s.mu.
func (t *storeTx) lotByKey(key lotKey) *entity.Lot {
	if id, ok := t.newLotKeys[key]; ok {
		return t.lotByID(id)
	}
	if id, ok := t.s.lotKeys[key]; ok {
		return t.lotByID(id)
	}
	return nil
}

// ── TransactionRepository ────────────────────────────────────────────────────

func (t *storeTx) Append(_ context.Context, tx *entity.Transaction) error {
	if !entity.IsValidTxType(tx.Type) {
		return &domain.StorageError{Op: "insert transaction", Err: errUnknownTxType}
	}
	t.txns = append(t.txns, *tx)
	return nil
}

// ── Commit / Rollback ────────────────────────────────────────────────────────

func (t *storeTx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	defer s.release(t)

	if err := s.commitErr; err != nil {
		s.commitErr = nil
		return domain.Storage("commit transaction", err)
	}
	if err := t.checkConstraints(); err != nil {
		return err
	}

	for _, it := range t.items {
		s.items[it.ID] = it
		s.skus[it.SKU] = it.ID
	}
	for id, l := range t.lots {
		s.lots[id] = l
		s.lotKeys[lotKey{itemID: l.ItemID, lotNumber: l.LotNumber}] = id
	}
	for id := range t.deleted {
		if l, ok := s.lots[id]; ok {
			delete(s.lotKeys, lotKey{itemID: l.ItemID, lotNumber: l.LotNumber})
			delete(s.lots, id)
		}
	}
	s.txns = append(s.txns, t.txns...)
	if len(t.deleted) > 0 {
		// ON DELETE SET NULL: las transacciones sobreviven sin referencia al lote.
		for i := range s.txns {
			if t.deleted[s.txns[i].LotID] {
				s.txns[i].LotID = ""
			}
		}
	}
	return nil
}

// checkConstraints reproduce los CHECK y FK del esquema. Requiere s.mu.
func (t *storeTx) checkConstraints() error {
	for _, l := range t.lots {
		if l.Quantity < 0 {
			return domain.Storage("commit transaction", errNegativeQuantity)
		}
	}
	return nil
}

func (t *storeTx) rollback() {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	s.release(t)
}
