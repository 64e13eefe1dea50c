package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/invoice-intake/backend/internal/models"
	"github.com/invoice-intake/backend/internal/query"
	"github.com/invoice-intake/backend/internal/store"
	"github.com/invoice-intake/backend/internal/testutil"
)

// fixedStore serves a single known record so the JSON shape is reproducible.
type fixedStore struct {
	store.Store
	inv models.Invoice
}

func (s fixedStore) Get(_ context.Context, id string) (models.Invoice, bool, error) {
	if id != s.inv.ID {
		return models.Invoice{}, false, nil
	}
	return s.inv, true, nil
}

func fixedTime(sec int) *time.Time {
	t := time.Date(2024, 3, 1, 9, 30, sec, 0, time.UTC)
	return &t
}

func TestInvoiceJSONShape(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tests := []struct {
		name string
		inv  models.Invoice
	}{
		{
			name: "invoice_processed",
			inv: models.Invoice{
				ID:                  "6f1c2a9e-4d3b-4e7a-9a51-0c2d8e7b1f44",
				FileName:            "acme-march.pdf",
				FileSize:            48213,
				ClientName:          "Acme Corp",
				Amount:              4250,
				UploadDate:          *fixedTime(0),
				Status:              models.InvoiceStatusProcessed,
				FilePath:            "0b8f7c1e-2a34-4c59-8d6e-91f0a2b3c4d5.pdf",
				ProcessingStartTime: fixedTime(1),
				ProcessingEndTime:   fixedTime(31),
			},
		},
		{
			name: "invoice_pending",
			inv: models.Invoice{
				ID:         "a2d4e6f8-1b3c-4d5e-8f70-123456789abc",
				FileName:   "metro-q1.pdf",
				FileSize:   1024,
				ClientName: "Metro Dynamics",
				Amount:     500,
				UploadDate: *fixedTime(5),
				Status:     models.InvoiceStatusPending,
				FilePath:   "c3e5a7b9-0d2f-4a6c-8e1b-3d5f7a9c1e2b.pdf",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			h := NewInvoiceHandler(fixedStore{inv: tt.inv}, testutil.NewMockStorage(), query.DefaultDefaults)

			req := httptest.NewRequest(http.MethodGet, "/api/invoices/"+tt.inv.ID+"?pretty", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("id")
			c.SetParamValues(tt.inv.ID)

			require.NoError(t, h.HandleGetInvoice(c))
			require.Equal(t, http.StatusOK, rec.Code)

			g.Assert(t, tt.name, rec.Body.Bytes())
		})
	}
}
