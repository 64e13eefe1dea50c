// handlers_invoices.go - Invoice list and record handlers
package api

import (
	"bytes"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/invoice-intake/backend/internal/models"
	"github.com/invoice-intake/backend/internal/query"
	"github.com/invoice-intake/backend/internal/storage"
	"github.com/invoice-intake/backend/internal/store"
)

const (
	msgInvoiceNotFound = "Invoice not found"
	msgFetchFailed     = "Failed to fetch invoices"

	// MIMEMsgpack is the content type of msgpack responses
	MIMEMsgpack = "application/msgpack"
)

// InvoiceHandlerImpl implements the InvoiceHandler interface
type InvoiceHandlerImpl struct {
	store    store.Store
	files    storage.Store
	defaults query.Defaults
}

// NewInvoiceHandler creates a new invoice handler instance
func NewInvoiceHandler(st store.Store, files storage.Store, defaults query.Defaults) InvoiceHandler {
	return &InvoiceHandlerImpl{
		store:    st,
		files:    files,
		defaults: defaults,
	}
}

// HandleListInvoices returns one filtered, sorted page as JSON
func (h *InvoiceHandlerImpl) HandleListInvoices(c echo.Context) error {
	page, err := h.queryPage(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// HandleListInvoicesMsgpack returns the same page as HandleListInvoices encoded with msgpack
func (h *InvoiceHandlerImpl) HandleListInvoicesMsgpack(c echo.Context) error {
	page, err := h.queryPage(c)
	if err != nil {
		return err
	}

	data, err := encodeMsgpack(page)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, MIMEMsgpack, data)
}

// HandleGetInvoice returns a single record
func (h *InvoiceHandlerImpl) HandleGetInvoice(c echo.Context) error {
	inv, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

// HandleGetInvoiceFile streams the stored PDF of a record
func (h *InvoiceHandlerImpl) HandleGetInvoiceFile(c echo.Context) error {
	inv, err := h.lookup(c)
	if err != nil {
		return err
	}

	rc, err := h.files.Open(inv.FilePath)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
		return NewNotFoundError("Invoice file not found")
	}
	if err != nil {
		return NewInternalError("failed to open invoice file", err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		`inline; filename="`+filepath.Base(inv.FileName)+`"`)
	return c.Stream(http.StatusOK, "application/pdf", rc)
}

func (h *InvoiceHandlerImpl) queryPage(c echo.Context) (models.PaginatedInvoices, error) {
	params, err := query.ParseParams(c.QueryParams(), h.defaults)
	if err != nil {
		return models.PaginatedInvoices{}, errorFromQuery(err)
	}

	page, err := h.store.Query(c.Request().Context(), params)
	if err != nil {
		return models.PaginatedInvoices{}, NewInternalError(msgFetchFailed, err)
	}
	return page, nil
}

func (h *InvoiceHandlerImpl) lookup(c echo.Context) (models.Invoice, error) {
	id := c.Param("id")
	if id == "" {
		return models.Invoice{}, NewNotFoundError(msgInvoiceNotFound)
	}

	inv, ok, err := h.store.Get(c.Request().Context(), id)
	if err != nil {
		return models.Invoice{}, NewInternalError("failed to fetch invoice", err)
	}
	if !ok {
		return models.Invoice{}, NewNotFoundError(msgInvoiceNotFound)
	}
	return inv, nil
}

// encodeMsgpack encodes v using its json tags so both formats share field names.
func encodeMsgpack(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
