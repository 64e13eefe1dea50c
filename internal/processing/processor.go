// Package processing moves invoices through their lifecycle after upload.
package processing

import (
	"context"
	"errors"

	"github.com/invoice-intake/backend/internal/models"
)

var (
	// ErrInvoiceNotFound is returned when Start is given an unknown id.
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("processor closed")
)

// Processor takes a freshly created invoice to a terminal status.
// A real implementation (document parsing, a work queue) can replace the
// Simulator without touching the store or the query engine.
type Processor interface {
	// Start begins processing asynchronously. Triggering an invoice that
	// has already left Pending is a no-op.
	Start(ctx context.Context, id string) error
	// Close stops accepting new work. Scheduled work still completes.
	Close()
	// Wait blocks until all scheduled work has finished.
	Wait()
}

// Notifier is told about every status change.
type Notifier interface {
	InvoiceChanged(inv models.Invoice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(inv models.Invoice)

func (f NotifierFunc) InvoiceChanged(inv models.Invoice) { f(inv) }

type nopNotifier struct{}

func (nopNotifier) InvoiceChanged(models.Invoice) {}
