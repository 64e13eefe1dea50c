package query

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/invoice-intake/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func invoice(i int, client string, amount float64, status models.InvoiceStatus) models.Invoice {
	return models.Invoice{
		ID:         fmt.Sprintf("inv-%02d", i),
		FileName:   fmt.Sprintf("invoice-%02d.pdf", i),
		FileSize:   int64(1000 + i),
		ClientName: client,
		Amount:     amount,
		UploadDate: baseTime.Add(time.Duration(i) * time.Minute),
		Status:     status,
	}
}

func sampleInvoices() []models.Invoice {
	return []models.Invoice{
		invoice(1, "Acme Corp", 900, models.InvoiceStatusProcessed),
		invoice(2, "TechStart Inc", 500, models.InvoiceStatusFailed),
		invoice(3, "Global Solutions", 7000, models.InvoiceStatusProcessing),
		invoice(4, "ACME Holdings", 1500, models.InvoiceStatusProcessed),
		invoice(5, "Blue Ocean Ltd", 3200, models.InvoiceStatusPending),
	}
}

func params(sortBy SortField, order SortOrder) Params {
	return Params{SortBy: sortBy, Order: order, Page: 1, Limit: 100}
}

func TestApply_StatusFilter(t *testing.T) {
	status := models.InvoiceStatusProcessed
	p := params(SortByUploadDate, Ascending)
	p.Status = &status

	page := Apply(sampleInvoices(), p)

	require.Equal(t, 2, page.Total)
	for _, inv := range page.Data {
		assert.Equal(t, models.InvoiceStatusProcessed, inv.Status)
	}
}

func TestApply_SearchIsCaseInsensitive(t *testing.T) {
	p := params(SortByUploadDate, Ascending)
	p.Search = "acme"

	page := Apply(sampleInvoices(), p)

	require.Equal(t, 2, page.Total)
	for _, inv := range page.Data {
		hay := strings.ToLower(inv.FileName + " " + inv.ClientName)
		assert.Contains(t, hay, "acme")
	}
}

func TestApply_SearchMatchesFileName(t *testing.T) {
	p := params(SortByUploadDate, Ascending)
	p.Search = "INVOICE-03"

	page := Apply(sampleInvoices(), p)

	require.Len(t, page.Data, 1)
	assert.Equal(t, "inv-03", page.Data[0].ID)
}

func TestApply_Pagination(t *testing.T) {
	var records []models.Invoice
	for i := 1; i <= 12; i++ {
		records = append(records, invoice(i, "Acme Corp", float64(i), models.InvoiceStatusPending))
	}

	page := Apply(records, Params{SortBy: SortByUploadDate, Order: Ascending, Page: 2, Limit: 5})

	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 5, page.Limit)
	require.Len(t, page.Data, 5)
	for i, inv := range page.Data {
		assert.Equal(t, fmt.Sprintf("inv-%02d", i+6), inv.ID)
	}

	last := Apply(records, Params{SortBy: SortByUploadDate, Order: Ascending, Page: 3, Limit: 5})
	assert.Len(t, last.Data, 2)

	beyond := Apply(records, Params{SortBy: SortByUploadDate, Order: Ascending, Page: 9, Limit: 5})
	assert.Equal(t, 12, beyond.Total)
	assert.NotNil(t, beyond.Data)
	assert.Empty(t, beyond.Data)

	huge, err := ParseParams(url.Values{"page": {"4611686018427387904"}, "limit": {"4"}}, DefaultDefaults)
	require.NoError(t, err)
	far := Apply(records[:1], huge)
	assert.Equal(t, 1, far.Total)
	assert.NotNil(t, far.Data)
	assert.Empty(t, far.Data)
}

func TestParams_Beyond(t *testing.T) {
	tests := []struct {
		page, limit, total int
		want               bool
	}{
		{page: 1, limit: 10, total: 0, want: true},
		{page: 1, limit: 10, total: 1, want: false},
		{page: 2, limit: 5, total: 10, want: true},
		{page: 2, limit: 5, total: 11, want: false},
		{page: math.MaxInt, limit: 100, total: 12, want: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d limit %d total %d", tt.page, tt.limit, tt.total), func(t *testing.T) {
			p := Params{Page: tt.page, Limit: tt.limit}
			assert.Equal(t, tt.want, p.Beyond(tt.total))
		})
	}
}

func TestApply_WhitespaceSearchMatchesAll(t *testing.T) {
	p, err := ParseParams(url.Values{"search": {"   "}}, DefaultDefaults)
	require.NoError(t, err)
	assert.Empty(t, p.Search)

	page := Apply(sampleInvoices(), p)
	assert.Equal(t, len(sampleInvoices()), page.Total)
}

func TestApply_SortByAmount(t *testing.T) {
	page := Apply(sampleInvoices(), params(SortByAmount, Ascending))
	for i := 1; i < len(page.Data); i++ {
		assert.LessOrEqual(t, page.Data[i-1].Amount, page.Data[i].Amount)
	}

	page = Apply(sampleInvoices(), params(SortByAmount, Descending))
	for i := 1; i < len(page.Data); i++ {
		assert.GreaterOrEqual(t, page.Data[i-1].Amount, page.Data[i].Amount)
	}
}

func TestApply_DefaultSortIsNewestFirst(t *testing.T) {
	page := Apply(sampleInvoices(), Params{})

	require.Len(t, page.Data, 5)
	assert.Equal(t, "inv-05", page.Data[0].ID)
	assert.Equal(t, "inv-01", page.Data[4].ID)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultDefaults.Limit, page.Limit)
}

func TestApply_TiesBrokenByID(t *testing.T) {
	records := []models.Invoice{
		invoice(3, "Same", 100, models.InvoiceStatusPending),
		invoice(1, "Same", 100, models.InvoiceStatusPending),
		invoice(2, "Same", 100, models.InvoiceStatusPending),
	}

	for _, order := range []SortOrder{Ascending, Descending} {
		page := Apply(records, params(SortByClientName, order))
		ids := []string{page.Data[0].ID, page.Data[1].ID, page.Data[2].ID}
		assert.Equal(t, []string{"inv-01", "inv-02", "inv-03"}, ids, "order %s", order)
	}
}

func TestApply_MissingTimestampsSortFirst(t *testing.T) {
	started := baseTime.Add(time.Hour)
	records := sampleInvoices()
	records[2].ProcessingStartTime = &started

	page := Apply(records, params(SortByProcessingStartTime, Ascending))
	assert.Equal(t, "inv-03", page.Data[len(page.Data)-1].ID)

	page = Apply(records, params(SortByProcessingStartTime, Descending))
	assert.Equal(t, "inv-03", page.Data[0].ID)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	records := sampleInvoices()
	before := append([]models.Invoice(nil), records...)

	Apply(records, params(SortByAmount, Descending))

	assert.Equal(t, before, records)
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    Params
		wantErr string
	}{
		{
			name:  "defaults",
			query: "",
			want:  Params{SortBy: SortByUploadDate, Order: Descending, Page: 1, Limit: 10},
		},
		{
			name:  "all values",
			query: "page=3&limit=25&sortBy=amount&sortOrder=asc&search=+acme+",
			want:  Params{SortBy: SortByAmount, Order: Ascending, Page: 3, Limit: 25, Search: "acme"},
		},
		{
			name:  "page below one is clamped",
			query: "page=-4",
			want:  Params{SortBy: SortByUploadDate, Order: Descending, Page: 1, Limit: 10},
		},
		{
			name:  "limit above max is clamped",
			query: "limit=5000",
			want:  Params{SortBy: SortByUploadDate, Order: Descending, Page: 1, Limit: 100},
		},
		{name: "zero limit", query: "limit=0", wantErr: "limit"},
		{name: "non-numeric page", query: "page=two", wantErr: "page"},
		{name: "unknown sort field", query: "sortBy=__proto__", wantErr: "sortBy"},
		{name: "bad sort order", query: "sortOrder=sideways", wantErr: "sortOrder"},
		{name: "unknown status", query: "status=processed", wantErr: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := ParseParams(v, DefaultDefaults)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidParam))
				var pe *ParamError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, tt.wantErr, pe.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseParams_Status(t *testing.T) {
	got, err := ParseParams(url.Values{"status": {"Failed"}}, DefaultDefaults)
	require.NoError(t, err)
	require.NotNil(t, got.Status)
	assert.Equal(t, models.InvoiceStatusFailed, *got.Status)
}

func TestParams_Key(t *testing.T) {
	status := models.InvoiceStatusPending
	a := Params{Status: &status, Search: "acme", SortBy: SortByAmount, Order: Ascending, Page: 2, Limit: 5}
	other := models.InvoiceStatusPending
	b := Params{Status: &other, Search: "acme", SortBy: SortByAmount, Order: Ascending, Page: 2, Limit: 5}

	assert.Equal(t, a.Key(), b.Key())

	b.Page = 3
	assert.NotEqual(t, a.Key(), b.Key())
}
