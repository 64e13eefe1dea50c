// Package store holds invoice records for the lifetime of the process.
package store

import (
	"context"
	"fmt"

	"github.com/invoice-intake/backend/internal/models"
	"github.com/invoice-intake/backend/internal/query"
)

// Store owns every invoice record. Reads return copies, so callers change a
// record only through Update.
type Store interface {
	// Create assigns a fresh identifier and stores the record.
	Create(ctx context.Context, in models.NewInvoice) (models.Invoice, error)
	// Get returns false when no record has the identifier.
	Get(ctx context.Context, id string) (models.Invoice, bool, error)
	// Update merges u into the record and returns the result, or false if
	// the identifier is unknown. Status transitions are not validated here.
	Update(ctx context.Context, id string, u models.InvoiceUpdate) (models.Invoice, bool, error)
	// All enumerates records in insertion order.
	All(ctx context.Context) ([]models.Invoice, error)
	// Query returns one filtered, sorted page.
	Query(ctx context.Context, p query.Params) (models.PaginatedInvoices, error)
	// Revision changes after every successful mutation.
	Revision() uint64
	Close() error
}

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendDuckDB = "duckdb"
)

// Options configures New.
type Options struct {
	Backend       string
	DuckDBThreads int
}

// New opens the store selected by opts.Backend.
func New(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendDuckDB:
		return NewDuckStore(opts.DuckDBThreads)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
