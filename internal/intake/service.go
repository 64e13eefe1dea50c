// Package intake turns uploaded files into invoice records.
package intake

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/invoice-intake/backend/internal/metrics"
	"github.com/invoice-intake/backend/internal/models"
	"github.com/invoice-intake/backend/internal/processing"
	"github.com/invoice-intake/backend/internal/storage"
	"github.com/invoice-intake/backend/internal/store"
)

// AcceptedExtension is the only file extension turned into a record.
const AcceptedExtension = ".pdf"

// Upload is one file of an upload request.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// Result reports what an Ingest call did.
type Result struct {
	InvoiceIDs []string
	Skipped    int
}

// Service runs the per-file intake steps.
type Service struct {
	store      store.Store
	files      storage.Store
	fabricator processing.Fabricator
	processor  processing.Processor
	notifier   processing.Notifier
	logger     *slog.Logger
	now        func() time.Time
}

// Deps holds the collaborators of a Service. Notifier and Logger are optional.
type Deps struct {
	Store      store.Store
	Files      storage.Store
	Fabricator processing.Fabricator
	Processor  processing.Processor
	Notifier   processing.Notifier
	Logger     *slog.Logger
}

// NewService creates an intake service.
func NewService(deps Deps) *Service {
	s := &Service{
		store:      deps.Store,
		files:      deps.Files,
		fabricator: deps.Fabricator,
		processor:  deps.Processor,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		now:        time.Now,
	}
	if s.notifier == nil {
		s.notifier = processing.NotifierFunc(func(models.Invoice) {})
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(slog.String("component", "intake"))
	return s
}

// IsAccepted reports whether name has the accepted extension (any case).
func IsAccepted(name string) bool {
	return strings.EqualFold(filepath.Ext(name), AcceptedExtension)
}

// Ingest processes uploads in order. Non-PDF files are skipped. The first
// storage or store failure aborts the call; records created before it stay.
func (s *Service) Ingest(ctx context.Context, uploads []Upload) (Result, error) {
	result := Result{InvoiceIDs: []string{}}

	for _, up := range uploads {
		if !IsAccepted(up.Name) {
			result.Skipped++
			metrics.UploadsTotal.WithLabelValues("skipped").Inc()
			continue
		}

		inv, err := s.ingestOne(ctx, up)
		if err != nil {
			metrics.UploadsTotal.WithLabelValues("error").Inc()
			return result, fmt.Errorf("ingesting %s: %w", up.Name, err)
		}
		metrics.UploadsTotal.WithLabelValues("created").Inc()
		result.InvoiceIDs = append(result.InvoiceIDs, inv.ID)

		if err := s.processor.Start(ctx, inv.ID); err != nil {
			s.logger.Warn("Failed to trigger processing",
				slog.String("invoice_id", inv.ID),
				slog.Any("error", err),
			)
		}
	}

	if result.Skipped > 0 {
		s.logger.Info("Skipped non-PDF uploads", slog.Int("count", result.Skipped))
	}
	return result, nil
}

func (s *Service) ingestOne(ctx context.Context, up Upload) (models.Invoice, error) {
	src, err := up.Open()
	if err != nil {
		return models.Invoice{}, fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	stored, err := s.files.Save(up.Name, src)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("saving file: %w", err)
	}

	details, err := s.fabricator.Fabricate(ctx, up.Name)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("fabricating details: %w", err)
	}

	size := up.Size
	if size <= 0 {
		size = stored.Size
	}

	inv, err := s.store.Create(ctx, models.NewInvoice{
		FileName:   up.Name,
		FileSize:   size,
		ClientName: details.ClientName,
		Amount:     details.Amount,
		UploadDate: s.now(),
		Status:     models.InvoiceStatusPending,
		FilePath:   stored.StorageName,
	})
	if err != nil {
		return models.Invoice{}, fmt.Errorf("creating record: %w", err)
	}
	s.notifier.InvoiceChanged(inv)

	s.logger.Info("Invoice received",
		slog.String("invoice_id", inv.ID),
		slog.String("file_name", inv.FileName),
		slog.Int64("file_size", inv.FileSize),
	)
	return inv, nil
}
