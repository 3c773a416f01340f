// Package memory implementa el almacén de inventario en memoria con el mismo contrato que PostgreSQL:
// unidades atómicas (commit/rollback), bloqueos de fila con selección SKIP LOCKED y lecturas
// que solo ven datos confirmados. Se usa en tests y con STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/jhoicas/medstock/internal/application/ledger"
	"github.com/jhoicas/medstock/internal/domain"
	"github.com/jhoicas/medstock/internal/domain/entity"
	"github.com/jhoicas/medstock/internal/domain/repository"
)

var (
	_ ledger.TxRunner                = (*Store)(nil)
	_ repository.StockViewRepository = (*Store)(nil)
	_ repository.ReportRepository    = (*Store)(nil)
)

type lotKey struct {
	itemID    string
	lotNumber string
}

// Store estado confirmado más la tabla de bloqueos de fila.
type Store struct {
	mu   sync.Mutex
	cond *sync.Cond

	items   map[string]*entity.Item // por ID
	skus    map[string]string       // SKU -> ID
	lots    map[string]*entity.Lot  // por ID
	lotKeys map[lotKey]string       // (ítem, número de lote) -> ID
	txns    []entity.Transaction    // orden de inserción

	locks  map[string]uint64 // clave de fila -> tx dueña
	nextTx uint64

	commitErr error // se devuelve en el próximo commit (simula fallo del almacén)
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	s := &Store{
		items:   make(map[string]*entity.Item),
		skus:    make(map[string]string),
		lots:    make(map[string]*entity.Lot),
		lotKeys: make(map[lotKey]string),
		locks:   make(map[string]uint64),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// FailNextCommit hace que el próximo commit falle con err y se revierta por completo.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

// Run ejecuta fn en una unidad atómica. Cualquier error (de fn, de contexto o de commit) la revierte entera.
func (s *Store) Run(ctx context.Context, fn func(
	itemRepo repository.ItemRepository,
	lotRepo repository.LotRepository,
	txRepo repository.TransactionRepository,
) error) error {
	t := s.begin()
	if err := fn(t, t, t); err != nil {
		t.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		t.rollback()
		return domain.Storage("commit transaction", err)
	}
	return t.commit()
}

func (s *Store) begin() *storeTx {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTx++
	return &storeTx{
		s:          s,
		id:         s.nextTx,
		items:      make(map[string]*entity.Item),
		lots:       make(map[string]*entity.Lot),
		newLotKeys: make(map[lotKey]string),
		deleted:    make(map[string]bool),
	}
}

// ── Lecturas confirmadas ─────────────────────────────────────────────────────

// Ping siempre disponible.
func (s *Store) Ping(context.Context) error { return nil }

// CurrentStock suma de los lotes confirmados del ítem.
func (s *Store) CurrentStock(_ context.Context, itemID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, l := range s.lots {
		if l.ItemID == itemID {
			total += l.Quantity
		}
	}
	return total, nil
}

// ListLots lotes confirmados del ítem en orden FEFO.
func (s *Store) ListLots(_ context.Context, itemID string) ([]*entity.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Lot, 0)
	for _, l := range s.lots {
		if l.ItemID == itemID {
			out = append(out, copyLot(l))
		}
	}
	ledger.SortFEFO(out)
	return out, nil
}

// ListItems ítems con stock; search filtra por nombre o SKU sin distinguir mayúsculas.
func (s *Store) ListItems(_ context.Context, search string) ([]entity.ItemStock, error) {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(search))

	s.mu.Lock()
	defer s.mu.Unlock()
	stock := s.stockByItem()
	out := make([]entity.ItemStock, 0, len(s.items))
	for _, it := range s.items {
		if needle != "" &&
			!strings.Contains(fold.String(it.Name), needle) &&
			!strings.Contains(fold.String(it.SKU), needle) {
			continue
		}
		out = append(out, entity.ItemStock{Item: *it, CurrentStock: stock[it.ID]})
	}
	sort.Slice(out, func(i, j int) bool { return byName(out[i].Item, out[j].Item) })
	return out, nil
}

// Summaries stock, número de lotes y caducidad más próxima por ítem.
func (s *Store) Summaries(context.Context) ([]entity.ItemSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.ItemSummary, 0, len(s.items))
	index := make(map[string]int, len(s.items))
	for _, it := range s.items {
		index[it.ID] = len(out)
		out = append(out, entity.ItemSummary{ItemStock: entity.ItemStock{Item: *it}})
	}
	for _, l := range s.lots {
		i, ok := index[l.ItemID]
		if !ok {
			continue
		}
		sum := &out[i]
		sum.CurrentStock += l.Quantity
		sum.LotCount++
		if sum.EarliestExpiry == nil || l.ExpiryDate.Before(*sum.EarliestExpiry) {
			exp := l.ExpiryDate
			sum.EarliestExpiry = &exp
		}
	}
	sort.Slice(out, func(i, j int) bool { return byName(out[i].Item, out[j].Item) })
	return out, nil
}

// RecentTransactions más recientes primero, enriquecidas con SKU y lote si aún existen.
func (s *Store) RecentTransactions(_ context.Context, limit int) ([]entity.TransactionDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ordered := make([]entity.Transaction, 0, len(s.txns))
	for i := len(s.txns) - 1; i >= 0; i-- {
		ordered = append(ordered, s.txns[i])
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].CreatedAt.After(ordered[j].CreatedAt) })
	if limit >= 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}

	out := make([]entity.TransactionDetail, 0, len(ordered))
	for _, t := range ordered {
		d := entity.TransactionDetail{Transaction: t}
		if it, ok := s.items[t.ItemID]; ok {
			d.SKU = it.SKU
		}
		if l, ok := s.lots[t.LotID]; ok {
			exp := l.ExpiryDate
			d.LotNumber = l.LotNumber
			d.ExpiryDate = &exp
			d.Location = l.Location
		}
		out = append(out, d)
	}
	return out, nil
}

// stockByItem requiere s.mu.
func (s *Store) stockByItem() map[string]int64 {
	stock := make(map[string]int64, len(s.items))
	for _, l := range s.lots {
		stock[l.ItemID] += l.Quantity
	}
	return stock
}

func byName(a, b entity.Item) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.SKU < b.SKU
}

// ── Bloqueos de fila ─────────────────────────────────────────────────────────

func itemLockKey(sku string) string { return "item:" + sku }

func lotLockKey(k lotKey) string { return "lot:" + k.itemID + "/" + k.lotNumber }

// acquire toma el bloqueo de la fila para la tx. Con wait=false devuelve false si otra tx lo tiene
// (SKIP LOCKED); con wait=true espera a que se libere. Requiere s.mu.
func (s *Store) acquire(t *storeTx, key string, wait bool) bool {
	for {
		owner, taken := s.locks[key]
		if !taken {
			s.locks[key] = t.id
			t.held = append(t.held, key)
			return true
		}
		if owner == t.id {
			return true
		}
		if !wait {
			return false
		}
		s.cond.Wait()
	}
}

// release libera los bloqueos de la tx. Requiere s.mu.
func (s *Store) release(t *storeTx) {
	for _, key := range t.held {
		if s.locks[key] == t.id {
			delete(s.locks, key)
		}
	}
	t.held = nil
	s.cond.Broadcast()
}

func copyItem(it *entity.Item) *entity.Item {
	c := *it
	return &c
}

func copyLot(l *entity.Lot) *entity.Lot {
	c := *l
	return &c
}
