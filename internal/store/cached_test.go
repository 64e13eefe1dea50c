package store

import (
	"context"
	"testing"
	"time"

	"github.com/invoice-intake/backend/internal/models"
	"github.com/invoice-intake/backend/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records how often Query reaches the wrapped store.
type countingStore struct {
	Store
	queries int
}

func (c *countingStore) Query(ctx context.Context, p query.Params) (models.PaginatedInvoices, error) {
	c.queries++
	return c.Store.Query(ctx, p)
}

func TestCached_ServesRepeatedQueries(t *testing.T) {
	inner := &countingStore{Store: NewMemoryStore()}
	cached := NewCached(inner, 16, time.Minute)
	ctx := context.Background()

	_, err := cached.Create(ctx, newInvoice(1, "Acme Corp", 100))
	require.NoError(t, err)

	p := query.Params{SortBy: query.SortByAmount, Order: query.Ascending, Page: 1, Limit: 10}
	first, err := cached.Query(ctx, p)
	require.NoError(t, err)
	second, err := cached.Query(ctx, p)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.queries)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cached.Len())
}

func TestCached_MutationInvalidates(t *testing.T) {
	inner := &countingStore{Store: NewMemoryStore()}
	cached := NewCached(inner, 16, time.Minute)
	ctx := context.Background()

	inv, err := cached.Create(ctx, newInvoice(1, "Acme Corp", 100))
	require.NoError(t, err)

	p := query.Params{Page: 1, Limit: 10}
	before, err := cached.Query(ctx, p)
	require.NoError(t, err)
	require.Len(t, before.Data, 1)
	assert.Equal(t, models.InvoiceStatusPending, before.Data[0].Status)

	status := models.InvoiceStatusProcessing
	_, _, err = cached.Update(ctx, inv.ID, models.InvoiceUpdate{Status: &status})
	require.NoError(t, err)

	after, err := cached.Query(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.queries)
	assert.Equal(t, models.InvoiceStatusProcessing, after.Data[0].Status)
}

func TestCached_PagesAreNotShared(t *testing.T) {
	cached := NewCached(NewMemoryStore(), 16, time.Minute)
	ctx := context.Background()

	_, err := cached.Create(ctx, newInvoice(1, "Acme Corp", 100))
	require.NoError(t, err)

	p := query.Params{Page: 1, Limit: 10}
	page, err := cached.Query(ctx, p)
	require.NoError(t, err)
	page.Data[0].ClientName = "Changed"

	again, err := cached.Query(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", again.Data[0].ClientName)
}
