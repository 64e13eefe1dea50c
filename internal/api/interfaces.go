// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/invoice-intake/backend/internal/intake"
	"github.com/labstack/echo/v4"
)

// InvoiceHandler serves the invoice list and single records
type InvoiceHandler interface {
	HandleListInvoices(c echo.Context) error
	HandleListInvoicesMsgpack(c echo.Context) error
	HandleGetInvoice(c echo.Context) error
	HandleGetInvoiceFile(c echo.Context) error
}

// UploadHandler accepts multipart invoice uploads
type UploadHandler interface {
	HandleUploadInvoices(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// FeedHandler pushes invoice changes to websocket clients
type FeedHandler interface {
	HandleInvoiceFeed(c echo.Context) error
}

// Ingester is the part of the intake service the upload handler needs.
// This allows mocking in tests
type Ingester interface {
	Ingest(ctx context.Context, uploads []intake.Upload) (intake.Result, error)
}

var _ Ingester = (*intake.Service)(nil)
