package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/invoice-intake/backend/internal/models"
	"github.com/invoice-intake/backend/internal/query"
)

// MemoryStore is a mutex-guarded map of invoices.
type MemoryStore struct {
	mu       sync.RWMutex
	invoices map[string]*models.Invoice
	order    []string // insertion order of ids
	revision atomic.Uint64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		invoices: make(map[string]*models.Invoice),
	}
}

func (s *MemoryStore) Create(_ context.Context, in models.NewInvoice) (models.Invoice, error) {
	inv := in.Build(uuid.New().String())

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := inv.Clone()
	s.invoices[inv.ID] = &stored
	s.order = append(s.order, inv.ID)
	s.revision.Add(1)

	return inv, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.Invoice, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return models.Invoice{}, false, nil
	}
	return inv.Clone(), true, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, u models.InvoiceUpdate) (models.Invoice, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return models.Invoice{}, false, nil
	}

	merged := u.Apply(*inv)
	s.invoices[id] = &merged
	s.revision.Add(1)

	return merged.Clone(), true, nil
}

func (s *MemoryStore) All(_ context.Context) ([]models.Invoice, error) {
	return s.snapshot(), nil
}

func (s *MemoryStore) Query(_ context.Context, p query.Params) (models.PaginatedInvoices, error) {
	return query.Apply(s.snapshot(), p), nil
}

func (s *MemoryStore) Revision() uint64 {
	return s.revision.Load()
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) snapshot() []models.Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.Invoice, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.invoices[id].Clone())
	}
	return list
}

var _ Store = (*MemoryStore)(nil)
