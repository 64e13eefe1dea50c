package processing

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/invoice-intake/backend/internal/metrics"
	"github.com/invoice-intake/backend/internal/models"
	"github.com/invoice-intake/backend/internal/store"
)

// SimulatorConfig controls the fake processing step.
type SimulatorConfig struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	FailureRate float64 // probability in [0, 1] that an invoice ends Failed
}

// DefaultSimulatorConfig waits 15-45s and fails one invoice in five.
var DefaultSimulatorConfig = SimulatorConfig{
	MinDelay:    15 * time.Second,
	MaxDelay:    45 * time.Second,
	FailureRate: 0.2,
}

// Simulator marks an invoice Processing, waits a random delay, then marks it
// Processed or Failed at random. No work is done on the file.
type Simulator struct {
	store    store.Store
	cfg      SimulatorConfig
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex // guards rng and closed
	rng    *rand.Rand
	closed bool
	wg     sync.WaitGroup

	startMu sync.Mutex // serializes the Pending -> Processing check-and-set
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand sets the random source (for deterministic tests).
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) { s.rng = r }
}

// WithNotifier sets the receiver of status changes.
func WithNotifier(n Notifier) Option {
	return func(s *Simulator) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// NewSimulator creates a Simulator writing to st.
func NewSimulator(st store.Store, cfg SimulatorConfig, opts ...Option) *Simulator {
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	s := &Simulator{
		store:    st,
		cfg:      cfg,
		notifier: nopNotifier{},
		logger:   slog.Default(),
		now:      time.Now,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "processing"))
	return s
}

// Start moves the invoice to Processing and schedules its outcome.
func (s *Simulator) Start(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	scheduled := false
	defer func() {
		if !scheduled {
			s.wg.Done()
		}
	}()

	s.startMu.Lock()
	defer s.startMu.Unlock()

	inv, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("loading invoice %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvoiceNotFound, id)
	}
	if !inv.Status.CanTransitionTo(models.InvoiceStatusProcessing) {
		s.logger.Debug("Invoice already triggered",
			slog.String("invoice_id", id),
			slog.String("status", string(inv.Status)),
		)
		return nil
	}

	started := s.now()
	status := models.InvoiceStatusProcessing
	inv, ok, err = s.store.Update(ctx, id, models.InvoiceUpdate{
		Status:              &status,
		ProcessingStartTime: &started,
	})
	if err != nil {
		return fmt.Errorf("marking invoice %s processing: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvoiceNotFound, id)
	}
	s.notifier.InvoiceChanged(inv)

	delay := s.drawDelay()
	metrics.ProcessingInFlight.Inc()
	time.AfterFunc(delay, func() {
		defer s.wg.Done()
		defer metrics.ProcessingInFlight.Dec()
		s.finish(id, started)
	})
	scheduled = true

	s.logger.Info("Invoice processing scheduled",
		slog.String("invoice_id", id),
		slog.Duration("delay", delay),
	)
	return nil
}

// finish draws the outcome. Invoices no longer in Processing are left alone.
func (s *Simulator) finish(id string, started time.Time) {
	ctx := context.Background()

	inv, ok, err := s.store.Get(ctx, id)
	if err != nil || !ok {
		s.logger.Error("Invoice vanished before processing finished",
			slog.String("invoice_id", id),
			slog.Any("error", err),
		)
		return
	}
	if !inv.Status.CanTransitionTo(models.InvoiceStatusProcessed) {
		return
	}

	status := models.InvoiceStatusFailed
	if s.drawSuccess() {
		status = models.InvoiceStatusProcessed
	}
	ended := s.now()

	inv, ok, err = s.store.Update(ctx, id, models.InvoiceUpdate{
		Status:            &status,
		ProcessingEndTime: &ended,
	})
	if err != nil || !ok {
		s.logger.Error("Failed to record processing outcome",
			slog.String("invoice_id", id),
			slog.Any("error", err),
		)
		return
	}

	metrics.ProcessingOutcomesTotal.WithLabelValues(string(status)).Inc()
	metrics.ProcessingDuration.Observe(ended.Sub(started).Seconds())
	s.notifier.InvoiceChanged(inv)

	s.logger.Info("Invoice processing finished",
		slog.String("invoice_id", id),
		slog.String("status", string(status)),
	)
}

// Close stops accepting new invoices.
func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Wait blocks until every scheduled invoice has reached a terminal status.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

// drawDelay is uniform in [MinDelay, MaxDelay).
func (s *Simulator) drawDelay() time.Duration {
	span := s.cfg.MaxDelay - s.cfg.MinDelay
	if span <= 0 {
		return s.cfg.MinDelay
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.MinDelay + time.Duration(s.rng.Int64N(int64(span)))
}

func (s *Simulator) drawSuccess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() >= s.cfg.FailureRate
}

var _ Processor = (*Simulator)(nil)
