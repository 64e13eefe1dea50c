// handlers_upload.go - Invoice upload handler
package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/invoice-intake/backend/internal/intake"
)

// UploadFormField is the multipart field carrying the invoice files
const UploadFormField = "files"

// UploadResponse is the body of POST /api/invoices/upload
type UploadResponse struct {
	Success    bool     `json:"success"`
	InvoiceIDs []string `json:"invoiceIds"`
	Message    string   `json:"message"`
}

// uploadFailure is the body of a rejected or failed upload
type uploadFailure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func failUpload(c echo.Context, status int, message string) error {
	return c.JSON(status, uploadFailure{Success: false, Message: message})
}

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	ingester Ingester
	logger   *slog.Logger
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(ingester Ingester, logger *slog.Logger) UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandlerImpl{
		ingester: ingester,
		logger:   logger.With(slog.String("component", "upload")),
	}
}

// HandleUploadInvoices accepts one or more files in the "files" field.
// Files without a .pdf extension are skipped.
func (h *UploadHandlerImpl) HandleUploadInvoices(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return failUpload(c, http.StatusBadRequest, "No files provided")
		}
		h.logger.Error("Failed to read multipart form", slog.Any("error", err))
		return failUpload(c, http.StatusInternalServerError, "Failed to upload files")
	}
	defer form.RemoveAll()

	headers := form.File[UploadFormField]
	if len(headers) == 0 {
		return failUpload(c, http.StatusBadRequest, "No files provided")
	}

	uploads := make([]intake.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, uploadFromHeader(fh))
	}

	result, err := h.ingester.Ingest(c.Request().Context(), uploads)
	if err != nil {
		h.logger.Error("Upload failed",
			slog.Int("files", len(uploads)),
			slog.Int("created", len(result.InvoiceIDs)),
			slog.Any("error", err),
		)
		return failUpload(c, http.StatusInternalServerError, "Failed to upload files")
	}

	return c.JSON(http.StatusOK, UploadResponse{
		Success:    true,
		InvoiceIDs: result.InvoiceIDs,
		Message:    fmt.Sprintf("Successfully uploaded %d invoice(s)", len(result.InvoiceIDs)),
	})
}

func uploadFromHeader(fh *multipart.FileHeader) intake.Upload {
	return intake.Upload{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}
