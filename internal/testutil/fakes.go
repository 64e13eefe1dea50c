package testutil

import (
	"context"
	"sync"

	"github.com/invoice-intake/backend/internal/models"
	"github.com/invoice-intake/backend/internal/processing"
)

// FixedFabricator always returns the same details.
type FixedFabricator struct {
	Details processing.Details
	Err     error
}

// NewFixedFabricator returns a fabricator yielding client and amount.
func NewFixedFabricator(client string, amount float64) *FixedFabricator {
	return &FixedFabricator{Details: processing.Details{ClientName: client, Amount: amount}}
}

func (f *FixedFabricator) Fabricate(context.Context, string) (processing.Details, error) {
	return f.Details, f.Err
}

var _ processing.Fabricator = (*FixedFabricator)(nil)

// RecordingProcessor remembers which invoices were triggered and does nothing else.
type RecordingProcessor struct {
	mu      sync.Mutex
	started []string
	closed  bool

	// StartErr, when set, is returned by every Start call
	StartErr error
}

func (p *RecordingProcessor) Start(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.StartErr != nil {
		return p.StartErr
	}
	p.started = append(p.started, id)
	return nil
}

func (p *RecordingProcessor) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *RecordingProcessor) Wait() {}

// Started returns the triggered ids in call order.
func (p *RecordingProcessor) Started() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.started...)
}

// Closed reports whether Close was called.
func (p *RecordingProcessor) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var _ processing.Processor = (*RecordingProcessor)(nil)

// RecordingNotifier collects every published invoice.
type RecordingNotifier struct {
	mu      sync.Mutex
	updates []models.Invoice
}

func (n *RecordingNotifier) InvoiceChanged(inv models.Invoice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, inv.Clone())
}

// Updates returns the published invoices in order.
func (n *RecordingNotifier) Updates() []models.Invoice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Invoice(nil), n.updates...)
}

var _ processing.Notifier = (*RecordingNotifier)(nil)
